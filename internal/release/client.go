// Package release talks to the GitHub Releases API to locate and download
// the kdg-kiosk .deb package.
package release

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/tiboeycken/kdg-kiosk-installer/internal/domain"
)

// Release is the subset of the GitHub release payload the installer needs
type Release struct {
	TagName string  `json:"tag_name"`
	Name    string  `json:"name"`
	Body    string  `json:"body"`
	Assets  []Asset `json:"assets"`
}

// Version returns the release version without the leading "v"
func (r *Release) Version() string {
	return strings.TrimPrefix(r.TagName, "v")
}

// Asset is a downloadable file attached to a release
type Asset struct {
	Name               string `json:"name"`
	BrowserDownloadURL string `json:"browser_download_url"`
	Size               int64  `json:"size"`
}

// Client is a GitHub Releases API client
type Client struct {
	apiBase      string
	repo         string
	assetPattern string
	httpClient   *http.Client
}

// NewClient creates a release client for the given owner/name repository.
// assetPattern names the expected .deb file with a {version} placeholder.
func NewClient(apiBase, repo, assetPattern string, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		apiBase:      strings.TrimRight(apiBase, "/"),
		repo:         repo,
		assetPattern: assetPattern,
		httpClient:   &http.Client{Timeout: timeout},
	}
}

// Latest fetches the latest release
func (c *Client) Latest(ctx context.Context) (*Release, error) {
	return c.get(ctx, fmt.Sprintf("%s/repos/%s/releases/latest", c.apiBase, c.repo))
}

// ByTag fetches the release for a specific version (with or without a
// leading "v")
func (c *Client) ByTag(ctx context.Context, version string) (*Release, error) {
	tag := version
	if !strings.HasPrefix(tag, "v") {
		tag = "v" + tag
	}
	return c.get(ctx, fmt.Sprintf("%s/repos/%s/releases/tags/%s", c.apiBase, c.repo, tag))
}

func (c *Client) get(ctx context.Context, url string) (*Release, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build release request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to GitHub: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: create a release on GitHub first", domain.ErrNoRelease)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch release info: %s", resp.Status)
	}

	var rel Release
	if err := json.NewDecoder(resp.Body).Decode(&rel); err != nil {
		return nil, fmt.Errorf("failed to decode release info: %w", err)
	}
	return &rel, nil
}

// FindDebAsset locates the .deb package in the release assets. The exact
// pattern match wins; any other .deb asset is accepted as a fallback.
func (c *Client) FindDebAsset(rel *Release, version string) (*Asset, error) {
	want := strings.ReplaceAll(c.assetPattern, "{version}", version)

	for i := range rel.Assets {
		if rel.Assets[i].Name == want {
			return &rel.Assets[i], nil
		}
	}
	for i := range rel.Assets {
		if strings.HasSuffix(rel.Assets[i].Name, ".deb") {
			return &rel.Assets[i], nil
		}
	}
	return nil, fmt.Errorf("%w: expected %s", domain.ErrAssetNotFound, want)
}
