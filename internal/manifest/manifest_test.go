package manifest

import (
	"strings"
	"testing"
)

func TestAssemble(t *testing.T) {
	variants := []string{
		"tensorflow", "tensorflow-gpu", "tensorflow-cpu",
		"tf-nightly", "tf-nightly-gpu", "tf-nightly-cpu",
	}

	wantOrder := []string{"nengo", "numpy", "", "jinja2", "packaging", "progressbar2"}
	wantMins := map[string]string{
		"nengo":        "3.0.0",
		"numpy":        "1.16.0",
		"jinja2":       "2.10.1",
		"packaging":    "20.0",
		"progressbar2": "3.39.0",
	}

	for _, tf := range variants {
		t.Run(tf, func(t *testing.T) {
			core := Assemble(tf)
			if len(core) != len(wantOrder) {
				t.Fatalf("Assemble(%q) returned %d requirements, want %d", tf, len(core), len(wantOrder))
			}
			for i, r := range core {
				wantName := wantOrder[i]
				if wantName == "" {
					wantName = tf
				}
				if r.Name != wantName {
					t.Errorf("requirement %d = %q, want %q", i, r.Name, wantName)
				}
				wantMin := wantMins[r.Name]
				if wantMin == "" {
					wantMin = TensorFlowMin
				}
				if r.Min != wantMin {
					t.Errorf("requirement %s min = %q, want %q", r.Name, r.Min, wantMin)
				}
			}
			if err := Validate(core, nil); err != nil {
				t.Errorf("Validate(Assemble(%q)) error: %v", tf, err)
			}
		})
	}
}

func TestSpecifier(t *testing.T) {
	tests := []struct {
		req  Requirement
		want string
	}{
		{Requirement{Name: "tensorflow-gpu", Comparator: ">=", Min: "2.2.0"}, "tensorflow-gpu>=2.2.0"},
		{Requirement{Name: "numpy", Min: "1.16.0"}, "numpy>=1.16.0"},
		{Requirement{Name: "nengo"}, "nengo"},
		{Requirement{Name: "sphinx", Comparator: "==", Min: "3.1"}, "sphinx==3.1"},
		{
			Requirement{Name: "dataclasses", Comparator: ">=", Min: "0.6", Marker: `python_version < "3.7"`},
			`dataclasses>=0.6 ; python_version < "3.7"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.req.Specifier(); got != tt.want {
				t.Errorf("Specifier() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseSpecifier(t *testing.T) {
	tests := []struct {
		input   string
		want    Requirement
		wantErr bool
	}{
		{input: "numpy>=1.16.0", want: Requirement{Name: "numpy", Comparator: ">=", Min: "1.16.0"}},
		{input: "numpy >= 1.16.0", want: Requirement{Name: "numpy", Comparator: ">=", Min: "1.16.0"}},
		{input: "sphinx == 3.1", want: Requirement{Name: "sphinx", Comparator: "==", Min: "3.1"}},
		{input: "nengo", want: Requirement{Name: "nengo"}},
		{input: "ruamel.yaml>=0.16", want: Requirement{Name: "ruamel.yaml", Comparator: ">=", Min: "0.16"}},
		{input: "typing_extensions~=3.7", want: Requirement{Name: "typing_extensions", Comparator: "~=", Min: "3.7"}},
		{
			input: `dataclasses>=0.6 ; python_version < "3.7"`,
			want:  Requirement{Name: "dataclasses", Comparator: ">=", Min: "0.6", Marker: `python_version < "3.7"`},
		},
		{input: "foo>=", wantErr: true},
		{input: ">=1.0", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseSpecifier(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseSpecifier(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseSpecifier(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}
}

func TestSpecifierRoundTrip(t *testing.T) {
	for _, r := range Assemble("tf-nightly") {
		parsed, err := ParseSpecifier(r.Specifier())
		if err != nil {
			t.Fatalf("ParseSpecifier(%q) error: %v", r.Specifier(), err)
		}
		if parsed != r {
			t.Errorf("round trip of %q: got %+v, want %+v", r.Specifier(), parsed, r)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		core    []Requirement
		extras  map[string][]Requirement
		wantErr string
	}{
		{
			name: "valid with extras",
			core: Assemble("tensorflow-gpu"),
			extras: map[string][]Requirement{
				"docs":  {{Name: "sphinx", Comparator: ">=", Min: "1.8"}},
				"tests": {{Name: "pytest", Comparator: ">=", Min: "3.6"}},
			},
		},
		{
			name:    "no tensorflow entry",
			core:    []Requirement{{Name: "numpy", Min: "1.16.0"}},
			wantErr: "want exactly 1",
		},
		{
			name:    "two tensorflow entries",
			core:    append(Assemble("tensorflow"), Requirement{Name: "tf-nightly", Min: "2.2.0"}),
			wantErr: "want exactly 1",
		},
		{
			name: "tensorflow smuggled into an extra",
			core: Assemble("tensorflow"),
			extras: map[string][]Requirement{
				"gpu": {{Name: "tensorflow-gpu", Min: "2.2.0"}},
			},
			wantErr: "must not require TensorFlow",
		},
		{
			name:    "unparseable bound",
			core:    append(Assemble("tensorflow")[:5:5], Requirement{Name: "progressbar2", Min: "not.a.version!"}),
			wantErr: "progressbar2",
		},
		{
			name:    "empty name",
			core:    append(Assemble("tensorflow"), Requirement{}),
			wantErr: "empty name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.core, tt.extras)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() succeeded, want error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %q, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}
