// Package pypi queries the package index's JSON API to confirm that
// pinned requirements are satisfiable upstream.
package pypi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const cacheTTL = 24 * time.Hour

// DefaultBaseURL is the public package index.
const DefaultBaseURL = "https://pypi.org"

// ErrNotFound reports a project the index has never heard of.
var ErrNotFound = errors.New("project not found on index")

// ProjectInfo is the slice of index metadata verification needs.
type ProjectInfo struct {
	Name     string
	Version  string
	Releases []string
}

type projectResponse struct {
	Info struct {
		Name    string `json:"name"`
		Version string `json:"version"`
	} `json:"info"`
	Releases map[string]json.RawMessage `json:"releases"`
}

// Client fetches project metadata from a package index, caching responses
// on disk.
type Client struct {
	baseURL  string
	cacheDir string
	client   *http.Client
}

// NewClient creates a client for the given index URL.
func NewClient(baseURL, cacheDir string) *Client {
	return &Client{
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		cacheDir: cacheDir,
		client:   &http.Client{},
	}
}

// Project fetches metadata for one project, from cache when fresh.
func (c *Client) Project(name string) (*ProjectInfo, error) {
	if err := os.MkdirAll(c.cacheDir, 0755); err != nil {
		return nil, fmt.Errorf("creating cache dir: %w", err)
	}

	cacheFile := filepath.Join(c.cacheDir, name+".json")
	if !isCacheValid(cacheFile) {
		if err := c.download(name, cacheFile); err != nil {
			return nil, err
		}
	}

	return parseCache(cacheFile)
}

func isCacheValid(cacheFile string) bool {
	info, err := os.Stat(cacheFile)
	if err != nil {
		return false
	}
	return time.Since(info.ModTime()) < cacheTTL
}

func (c *Client) download(name, cacheFile string) error {
	reqURL := fmt.Sprintf("%s/pypi/%s/json", c.baseURL, url.PathEscape(name))

	resp, err := c.client.Get(reqURL)
	if err != nil {
		return fmt.Errorf("querying index for %s: %w", name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("querying index for %s: HTTP %d", name, resp.StatusCode)
	}

	// Write to temp file first, then rename
	tmpPath := cacheFile + ".tmp"
	out, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("creating cache file: %w", err)
	}

	_, err = io.Copy(out, resp.Body)
	out.Close()
	if err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing cache file: %w", err)
	}

	if err := os.Rename(tmpPath, cacheFile); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming cache file: %w", err)
	}

	return nil
}

func parseCache(cacheFile string) (*ProjectInfo, error) {
	data, err := os.ReadFile(cacheFile)
	if err != nil {
		return nil, fmt.Errorf("opening cache file: %w", err)
	}

	var resp projectResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("parsing index response: %w", err)
	}

	info := &ProjectInfo{
		Name:     resp.Info.Name,
		Version:  resp.Info.Version,
		Releases: make([]string, 0, len(resp.Releases)),
	}
	for version := range resp.Releases {
		info.Releases = append(info.Releases, version)
	}
	return info, nil
}

// BaseURL returns the configured index URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}
