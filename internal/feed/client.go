// Package feed fetches community-submitted questions from a paginated
// comment API.
//
// The API speaks JSON:API: each page carries comment records under "data",
// commenter identities under "included", and a "links.next" cursor URL.
// Pages are fetched strictly sequentially, one attempt each, with an
// optional read-through disk cache per page (always written, read only
// when enabled) so repeated runs against a slow upstream can be replayed
// offline.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// defaultPageDelay spaces out page fetches to stay polite to the upstream.
const defaultPageDelay = 100 * time.Millisecond

// Comment is one submitted question with its display metadata.
type Comment struct {
	// Author is the commenter's display name, or "Unknown User".
	Author string

	// Text is the comment body.
	Text string

	// URL links to the comment on the original post.
	URL string
}

// Client fetches all comments for one post.
type Client struct {
	http    *http.Client
	apiURL  string
	postURL string
	cookie  string
	cache   *PageCache
	useCache bool
	delay   time.Duration
}

// Config configures a feed client.
type Config struct {
	// APIURL is the post's comment API endpoint.
	APIURL string

	// PostURL is the public post URL, used to build per-comment links.
	PostURL string

	// Cookie is the session cookie sent with each request. May be empty
	// for public posts.
	Cookie string

	// CacheDir holds the per-page response cache. Empty disables caching
	// entirely.
	CacheDir string

	// ReadCache serves pages from CacheDir when present. Pages are always
	// written to CacheDir regardless.
	ReadCache bool

	// PageDelay overrides the pause between page fetches. Zero means the
	// default; tests use a negative value to disable.
	PageDelay time.Duration

	// HTTPClient overrides the HTTP client. Nil gets a 30-second timeout.
	HTTPClient *http.Client
}

// NewClient creates a feed client.
func NewClient(cfg Config) *Client {
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	delay := cfg.PageDelay
	if delay == 0 {
		delay = defaultPageDelay
	}
	if delay < 0 {
		delay = 0
	}
	var cache *PageCache
	if cfg.CacheDir != "" {
		cache = NewPageCache(cfg.CacheDir)
	}
	return &Client{
		http:     client,
		apiURL:   cfg.APIURL,
		postURL:  cfg.PostURL,
		cookie:   cfg.Cookie,
		cache:    cache,
		useCache: cfg.ReadCache,
		delay:    delay,
	}
}

// page is the JSON:API envelope for one comments page.
type page struct {
	Data     []commentRecord  `json:"data"`
	Included []includedRecord `json:"included"`
	Links    struct {
		Next string `json:"next"`
	} `json:"links"`
}

type commentRecord struct {
	Type       string `json:"type"`
	ID         string `json:"id"`
	Attributes struct {
		Body string `json:"body"`
	} `json:"attributes"`
	Relationships struct {
		Parent    *relationship `json:"parent"`
		Commenter *relationship `json:"commenter"`
	} `json:"relationships"`
}

type relationship struct {
	Data *struct {
		ID string `json:"id"`
	} `json:"data"`
}

type includedRecord struct {
	Type       string `json:"type"`
	ID         string `json:"id"`
	Attributes struct {
		FullName string `json:"full_name"`
	} `json:"attributes"`
}

// Comments fetches every page of comments for the post, in API order.
//
// Replies count toward the batch just like top-level comments; comments
// with an empty body are skipped. Any HTTP or decode failure is fatal
// (single attempt per page, no partial result).
func (c *Client) Comments(ctx context.Context) ([]Comment, error) {
	firstURL := c.apiURL + "/comments?page[count]=10&sort=-created"

	var (
		records  []commentRecord
		included []includedRecord
	)
	pageNum := 0
	for current := firstURL; current != ""; {
		pageNum++
		pg, fromCache, err := c.fetchPage(ctx, current, pageNum)
		if err != nil {
			return nil, err
		}
		records = append(records, pg.Data...)
		included = append(included, pg.Included...)
		current = pg.Links.Next

		if current != "" && !fromCache && c.delay > 0 {
			select {
			case <-time.After(c.delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}

	users := make(map[string]string)
	for _, inc := range included {
		if inc.Type == "user" && inc.Attributes.FullName != "" {
			users[inc.ID] = inc.Attributes.FullName
		}
	}

	var (
		comments []Comment
		topLevel int
		replies  int
	)
	for _, rec := range records {
		if rec.Type != "comment" {
			continue
		}
		if rec.Relationships.Parent != nil && rec.Relationships.Parent.Data != nil {
			replies++
		} else {
			topLevel++
		}
		if rec.Attributes.Body == "" {
			continue
		}

		author := "Unknown User"
		if rel := rec.Relationships.Commenter; rel != nil && rel.Data != nil {
			if name, ok := users[rel.Data.ID]; ok {
				author = name
			}
		}
		comments = append(comments, Comment{
			Author: author,
			Text:   rec.Attributes.Body,
			URL:    fmt.Sprintf("%s?comment=%s", c.postURL, rec.ID),
		})
	}

	slog.Info("fetched comments",
		"pages", pageNum, "total", len(records),
		"top_level", topLevel, "replies", replies)

	return comments, nil
}

// fetchPage returns one page, from the disk cache when enabled and
// present, otherwise from the network (and then writes the cache).
func (c *Client) fetchPage(ctx context.Context, url string, pageNum int) (*page, bool, error) {
	if c.cache != nil && c.useCache {
		if raw, ok := c.cache.Read(url); ok {
			slog.Debug("serving page from cache", "page", pageNum)
			var pg page
			if err := json.Unmarshal(raw, &pg); err == nil {
				return &pg, true, nil
			}
			// Corrupt cache entry falls through to the network.
			slog.Warn("unreadable page cache entry, refetching", "page", pageNum)
		}
	}

	slog.Debug("fetching page", "page", pageNum)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, false, fmt.Errorf("feed: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/vnd.api+json")
	if c.cookie != "" {
		req.Header.Set("Cookie", c.cookie)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, false, fmt.Errorf("feed: fetch page %d: %w", pageNum, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, false, fmt.Errorf("feed: fetch page %d: status %d", pageNum, resp.StatusCode)
	}

	raw := json.RawMessage{}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, false, fmt.Errorf("feed: decode page %d: %w", pageNum, err)
	}

	if c.cache != nil {
		if err := c.cache.Write(url, raw); err != nil {
			// Non-fatal: the run continues without the cached page.
			slog.Warn("could not write page cache", "page", pageNum, "error", err)
		}
	}

	var pg page
	if err := json.Unmarshal(raw, &pg); err != nil {
		return nil, false, fmt.Errorf("feed: parse page %d: %w", pageNum, err)
	}
	return &pg, false, nil
}
