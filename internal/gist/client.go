// Package gist publishes rendered documents to a GitHub-style gist API.
//
// Publishing is a thin two-verb client: create a new secret gist (POST) or
// patch an existing one identified by its URL. Whether to create or update
// is the caller's decision, driven by the post-URL to gist-URL mapping in
// the keycache store.
package gist

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// DefaultAPIURL is the GitHub gists endpoint.
const DefaultAPIURL = "https://api.github.com/gists"

// ErrMissingToken indicates publishing was requested without an API token
// configured. Configuration error: nothing is uploaded.
var ErrMissingToken = errors.New("gist API token not configured")

// Client publishes documents as gists.
type Client struct {
	http   *http.Client
	apiURL string
	token  string
}

// NewClient creates a gist client. apiURL defaults to DefaultAPIURL when
// empty; client defaults to a 10-second timeout when nil.
func NewClient(apiURL, token string, client *http.Client) *Client {
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{http: client, apiURL: apiURL, token: token}
}

// payload is the gist API request body for create and update.
type payload struct {
	Description string                    `json:"description"`
	Public      bool                      `json:"public"`
	Files       map[string]map[string]any `json:"files"`
}

// Create uploads content as a new secret gist and returns its HTML URL.
func (c *Client) Create(ctx context.Context, filename, description, content string) (string, error) {
	return c.send(ctx, http.MethodPost, c.apiURL, http.StatusCreated, filename, description, content)
}

// Update patches the gist at gistURL with new content and returns its HTML
// URL. The gist ID is the last path segment of the URL.
func (c *Client) Update(ctx context.Context, gistURL, filename, description, content string) (string, error) {
	parts := strings.Split(strings.TrimRight(gistURL, "/"), "/")
	id := parts[len(parts)-1]
	if id == "" {
		return "", fmt.Errorf("gist: cannot extract id from %q", gistURL)
	}
	return c.send(ctx, http.MethodPatch, c.apiURL+"/"+id, http.StatusOK, filename, description, content)
}

func (c *Client) send(ctx context.Context, method, url string, wantStatus int, filename, description, content string) (string, error) {
	if c.token == "" {
		return "", ErrMissingToken
	}

	body, err := json.Marshal(payload{
		Description: description,
		Public:      false,
		Files: map[string]map[string]any{
			filename: {"content": content},
		},
	})
	if err != nil {
		return "", fmt.Errorf("gist: marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("gist: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("gist: %s: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		return "", fmt.Errorf("gist: %s returned status %d, want %d", method, resp.StatusCode, wantStatus)
	}

	var out struct {
		HTMLURL string `json:"html_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("gist: decode response: %w", err)
	}
	if out.HTMLURL == "" {
		return "", errors.New("gist: response missing html_url")
	}
	return out.HTMLURL, nil
}
