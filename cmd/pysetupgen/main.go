package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/frederic-klein/pysetupgen/internal/config"
	"github.com/frederic-klein/pysetupgen/internal/manifest"
	"github.com/frederic-klein/pysetupgen/internal/pyenv"
	"github.com/frederic-klein/pysetupgen/internal/pypi"
	"github.com/frederic-klein/pysetupgen/internal/render"
	"github.com/frederic-klein/pysetupgen/internal/reqfile"
	"github.com/frederic-klein/pysetupgen/internal/variant"
)

var (
	configPath    string
	outputPath    string
	wheelBuild    bool
	packagingArgs []string
	pythonPath    string
	sitePaths     []string
	workers       int
	indexURL      string
	cacheDir      string
	verbose       bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "pysetupgen",
		Short: "Generates setup.py manifests for Python ML packages",
		Long:  "pysetupgen renders setup.py installation manifests from a YAML project config, selecting the TensorFlow distribution variant appropriate to the build mode and the installed environment.",
	}

	generateCmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate setup.py from the project config",
		RunE:  runGenerate,
	}
	generateCmd.Flags().StringVarP(&configPath, "config", "c", "./"+config.DefaultFileName, "Project config path")
	generateCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output path (overrides config)")
	generateCmd.Flags().BoolVar(&wheelBuild, "wheel", false, "Portable wheel build: pin the generic distribution")
	generateCmd.Flags().StringSliceVar(&packagingArgs, "packaging-args", nil, "Packaging tool arguments to scan for the wheel marker")
	generateCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")

	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "Check that the generated setup.py is up to date",
		RunE:  runCheck,
	}
	checkCmd.Flags().StringVarP(&configPath, "config", "c", "./"+config.DefaultFileName, "Project config path")
	checkCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Manifest path (overrides config)")
	checkCmd.Flags().BoolVar(&wheelBuild, "wheel", false, "Portable wheel build: pin the generic distribution")
	checkCmd.Flags().StringSliceVar(&packagingArgs, "packaging-args", nil, "Packaging tool arguments to scan for the wheel marker")
	checkCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")

	resolveCmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve the TensorFlow variant for this environment",
		RunE:  runResolve,
	}
	resolveCmd.Flags().BoolVar(&wheelBuild, "wheel", false, "Portable wheel build: pin the generic distribution")
	resolveCmd.Flags().StringSliceVar(&packagingArgs, "packaging-args", nil, "Packaging tool arguments to scan for the wheel marker")
	resolveCmd.Flags().StringVarP(&pythonPath, "python", "p", "python3", "Python interpreter to query for the search path")
	resolveCmd.Flags().StringArrayVar(&sitePaths, "site-path", nil, "Explicit search path entry (repeatable, skips the interpreter query)")
	resolveCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")

	verifyCmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify pinned requirements against the package index",
		RunE:  runVerify,
	}
	verifyCmd.Flags().StringVarP(&configPath, "config", "c", "./"+config.DefaultFileName, "Project config path")
	verifyCmd.Flags().IntVarP(&workers, "workers", "w", 5, "Parallel index queries")
	verifyCmd.Flags().StringVar(&indexURL, "index", pypi.DefaultBaseURL, "Package index URL")
	verifyCmd.Flags().StringVar(&cacheDir, "cache-dir", "", "Index response cache directory (default ~/.pysetupgen/cache)")
	verifyCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")

	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(verifyCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func logf() func(string, ...interface{}) {
	return func(format string, args ...interface{}) {
		if verbose {
			fmt.Printf(format+"\n", args...)
		}
	}
}

func buildMode() variant.BuildMode {
	if wheelBuild {
		return variant.BuildPortable
	}
	return variant.ModeFromArgs(packagingArgs)
}

func loadExtras(cfg *config.Project, log func(string, ...interface{})) (map[string][]manifest.Requirement, error) {
	if len(cfg.Extras) == 0 {
		return nil, nil
	}

	parser := reqfile.NewParser()
	extras := make(map[string][]manifest.Requirement, len(cfg.Extras))
	for name := range cfg.Extras {
		path := cfg.ExtrasPath(name)
		log("Parsing extra %q from %s", name, path)
		reqs, err := parser.Parse(path)
		if err != nil {
			return nil, fmt.Errorf("extra %q: %w", name, err)
		}
		extras[name] = reqs
	}
	return extras, nil
}

// manifestData runs the shared generate/check pipeline: config, extras,
// validation, template data.
func manifestData(log func(string, ...interface{})) (render.Data, string, error) {
	log("Loading config: %s", configPath)
	cfg, err := config.Load(configPath)
	if err != nil {
		return render.Data{}, "", fmt.Errorf("loading config: %w", err)
	}

	extras, err := loadExtras(cfg, log)
	if err != nil {
		return render.Data{}, "", fmt.Errorf("loading extras: %w", err)
	}

	// The manifest carries the install-time selection block in direct
	// mode, so the core list is assembled against the generic name either
	// way; concrete resolution is the resolve command's job.
	core := manifest.Assemble(variant.Generic)
	if err := manifest.Validate(core, extras); err != nil {
		return render.Data{}, "", fmt.Errorf("validating requirements: %w", err)
	}

	out := outputPath
	if out == "" {
		out = cfg.OutputPath()
	}

	return render.NewData(cfg, buildMode(), core, extras), out, nil
}

func runGenerate(cmd *cobra.Command, args []string) error {
	log := logf()

	data, out, err := manifestData(log)
	if err != nil {
		return err
	}

	log("Writing manifest: %s", out)
	outFile, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("creating manifest file: %w", err)
	}
	defer outFile.Close()

	if err := render.Render(outFile, data); err != nil {
		return fmt.Errorf("writing manifest: %w", err)
	}

	fmt.Printf("Generated %s\n", out)
	return nil
}

func runCheck(cmd *cobra.Command, args []string) error {
	log := logf()

	data, out, err := manifestData(log)
	if err != nil {
		return err
	}

	upToDate, summary, err := render.Check(out, data)
	if err != nil {
		return fmt.Errorf("checking manifest: %w", err)
	}
	if upToDate {
		fmt.Printf("%s is up to date\n", out)
		return nil
	}

	for _, line := range summary {
		fmt.Printf("  %s\n", line)
	}
	return fmt.Errorf("%s is out of date", out)
}

func runResolve(cmd *cobra.Command, args []string) error {
	log := logf()

	mode := buildMode()
	installed := make(map[string]bool)
	if mode == variant.BuildDirect {
		paths := sitePaths
		if len(paths) == 0 {
			log("Querying %s for its module search path", pythonPath)
			var err error
			paths, err = pyenv.InterpreterSearchPath(pythonPath)
			if err != nil {
				return fmt.Errorf("discovering search path: %w", err)
			}
		}

		log("Scanning %d search path entries", len(paths))
		var err error
		installed, err = pyenv.Snapshot(paths, pyenv.DefaultMarker)
		if err != nil {
			return fmt.Errorf("scanning environment: %w", err)
		}
		log("Found %d installed distributions", len(installed))
	}

	name := variant.Resolve(mode, installed)
	fmt.Printf("resolved: %s\n", name)
	fmt.Println("install_requires:")
	for _, req := range manifest.Assemble(name) {
		fmt.Printf("  %s\n", req.Specifier())
	}
	return nil
}

func runVerify(cmd *cobra.Command, args []string) error {
	log := logf()

	log("Loading config: %s", configPath)
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	extras, err := loadExtras(cfg, log)
	if err != nil {
		return fmt.Errorf("loading extras: %w", err)
	}

	reqs := manifest.Assemble(variant.Generic)
	names := make([]string, 0, len(extras))
	for name := range extras {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		reqs = append(reqs, extras[name]...)
	}

	// Deduplicate requirements shared between core and extras
	seen := make(map[string]bool)
	var unique []manifest.Requirement
	for _, req := range reqs {
		if !seen[req.Specifier()] {
			seen[req.Specifier()] = true
			unique = append(unique, req)
		}
	}

	dir := cacheDir
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("getting home directory: %w", err)
		}
		dir = filepath.Join(home, ".pysetupgen", "cache")
	}

	log("Verifying %d requirements against %s", len(unique), indexURL)
	client := pypi.NewClient(indexURL, dir)
	results := client.VerifyAll(unique, workers)
	sort.Slice(results, func(i, j int) bool { return results[i].Req.Name < results[j].Req.Name })

	failed := 0
	for _, res := range results {
		latest := ""
		if res.Latest != "" {
			latest = fmt.Sprintf(" (latest %s)", res.Latest)
		}
		switch {
		case res.Err != nil:
			failed++
			fmt.Printf("%-13s %s: %v\n", "error", res.Req.Specifier(), res.Err)
		case !res.Exists:
			failed++
			fmt.Printf("%-13s %s\n", "not-found", res.Req.Specifier())
		case !res.Satisfiable:
			failed++
			fmt.Printf("%-13s %s%s\n", "unsatisfiable", res.Req.Specifier(), latest)
		default:
			fmt.Printf("%-13s %s%s\n", "ok", res.Req.Specifier(), latest)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d requirements failed verification", failed, len(results))
	}
	fmt.Printf("All %d requirements satisfiable\n", len(results))
	return nil
}
