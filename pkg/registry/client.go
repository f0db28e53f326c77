package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

const (
	defaultRegistry   = "https://registry.npmjs.org"
	httpClientTimeout = 30 * time.Second
	defaultUserAgent  = "relevo/0.1.0"

	// abbreviatedAccept asks the registry for the abbreviated packument,
	// which carries dist-tags and the version list without readme payloads.
	abbreviatedAccept = "application/vnd.npm.install-v1+json"
)

// ErrNotFound reports that the registry has no packument for the package.
var ErrNotFound = errors.New("package not found")

// Packument is the registry document for one package.
type Packument struct {
	Name     string                 `json:"name"`
	DistTags map[string]string      `json:"dist-tags"`
	Versions map[string]VersionInfo `json:"versions"`
}

// VersionInfo is the abbreviated metadata for one published version.
type VersionInfo struct {
	Version    string `json:"version"`
	Deprecated string `json:"deprecated,omitempty"`
}

// VersionList returns every published version.
func (p *Packument) VersionList() []string {
	out := make([]string, 0, len(p.Versions))
	for v := range p.Versions {
		out = append(out, v)
	}
	return out
}

// DistTag returns the version a dist-tag such as "latest" points at.
func (p *Packument) DistTag(tag string) (string, bool) {
	v, ok := p.DistTags[tag]
	return v, ok
}

// Client fetches packuments from an npm registry.
type Client struct {
	httpClient *http.Client
	userAgent  string
	baseURL    string
}

// NewClient creates a Client that reads the NPM_CONFIG_REGISTRY environment
// variable to determine the registry endpoint. If it is unset, the public
// registry at https://registry.npmjs.org is used.
func NewClient() *Client {
	base := strings.TrimSpace(os.Getenv("NPM_CONFIG_REGISTRY"))
	if base == "" {
		base = defaultRegistry
	}
	return NewClientWithBase(base)
}

// NewClientWithBase creates a Client against an explicit registry endpoint.
func NewClientWithBase(base string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: httpClientTimeout},
		userAgent:  defaultUserAgent,
		baseURL:    strings.TrimRight(base, "/"),
	}
}

// BaseURL returns the registry endpoint the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Packument fetches the abbreviated packument for the named package. The name
// may be scoped ("@babel/core"). ErrNotFound is returned for unknown packages.
func (c *Client) Packument(ctx context.Context, name string) (*Packument, error) {
	url := fmt.Sprintf("%s/%s", c.baseURL, escapeName(name))

	data, err := c.fetch(ctx, url)
	if err != nil {
		return nil, err
	}

	var doc Packument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding packument for %s: %w", name, err)
	}
	return &doc, nil
}

// escapeName encodes a package name for use as a URL path segment. The
// registry expects the slash of a scoped name percent-encoded but the "@"
// kept literal.
func escapeName(name string) string {
	return strings.ReplaceAll(name, "/", "%2f")
}

// fetch performs a single HTTP GET for the given URL.
func (c *Client) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building request for %s: %w", url, err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", abbreviatedAccept)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("registry returned 404 for %s: %w", url, ErrNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body from %s: %w", url, err)
	}
	return data, nil
}
