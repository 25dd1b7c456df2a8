package modrinth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/APPLEPIE6969/Automodrinth/internal/support"
)

const maxAPIBody = 8 << 20

type Project struct {
	Slug      string `json:"slug"`
	Title     string `json:"title"`
	Downloads int64  `json:"downloads"`
}

type VersionFile struct {
	URL      string `json:"url"`
	Filename string `json:"filename"`
	Primary  bool   `json:"primary"`
	Size     int64  `json:"size"`
}

type Version struct {
	Name          string        `json:"name"`
	VersionNumber string        `json:"version_number"`
	Loaders       []string      `json:"loaders"`
	GameVersions  []string      `json:"game_versions"`
	Files         []VersionFile `json:"files"`
}

// Target is one downloadable file together with the version it belongs to.
type Target struct {
	Version Version
	File    VersionFile
}

// Client reads project metadata from the Modrinth v2 API. The metadata is
// fetched once and cached for the process lifetime; a failed load is retried
// on the next Ensure call.
type Client struct {
	apiBase   string
	projectID string
	pageURL   string
	http      *http.Client

	mu       sync.Mutex
	loaded   bool
	project  Project
	versions []Version
}

func NewClient(apiBase, projectID, pageURL string, timeout time.Duration) *Client {
	return &Client{
		apiBase:   apiBase,
		projectID: projectID,
		pageURL:   pageURL,
		http:      support.CreateDirectClient(timeout),
	}
}

// Ensure loads and caches the project and its version list on first use.
func (c *Client) Ensure(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.loaded {
		return nil
	}

	var project Project
	if err := c.getJSON(ctx, fmt.Sprintf("%s/project/%s", c.apiBase, c.projectID), &project); err != nil {
		return fmt.Errorf("load project %s: %w", c.projectID, err)
	}

	var versions []Version
	if err := c.getJSON(ctx, fmt.Sprintf("%s/project/%s/version", c.apiBase, c.projectID), &versions); err != nil {
		return fmt.Errorf("load versions for %s: %w", c.projectID, err)
	}

	c.project = project
	c.versions = versions
	c.loaded = true

	log.Info("Loaded project metadata",
		"project", project.Title,
		"versions", len(versions),
		"downloads", project.Downloads)
	return nil
}

func (c *Client) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", support.UserAgent())
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("api returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxAPIBody))
	if err != nil {
		return err
	}
	return json.Unmarshal(body, out)
}

func (c *Client) Project() Project {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.project
}

func (c *Client) Versions() []Version {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.versions
}

// PageURL is the public project page targeted by the view step.
func (c *Client) PageURL() string {
	if c.pageURL != "" {
		return c.pageURL
	}

	c.mu.Lock()
	slug := c.project.Slug
	c.mu.Unlock()
	if slug == "" {
		slug = c.projectID
	}
	return "https://modrinth.com/mod/" + slug
}

// RandomTarget picks a random version and one of its files, preferring the
// file flagged primary when the version has several.
func (c *Client) RandomTarget(rng support.Rand) (Target, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var eligible []Version
	for _, version := range c.versions {
		if len(version.Files) > 0 {
			eligible = append(eligible, version)
		}
	}
	if len(eligible) == 0 {
		return Target{}, fmt.Errorf("project %s has no downloadable files", c.projectID)
	}

	version := eligible[rng.Intn(len(eligible))]
	for _, file := range version.Files {
		if file.Primary {
			return Target{Version: version, File: file}, nil
		}
	}
	return Target{Version: version, File: version.Files[rng.Intn(len(version.Files))]}, nil
}
