package feed

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
)

// PageCache stores raw API pages on disk, one JSON file per page URL.
//
// Filenames are the MD5 of the page URL: pagination cursors make URLs long
// and filesystem-hostile, and MD5 is only a filename here, not an identity
// guarantee.
type PageCache struct {
	dir string
}

// NewPageCache creates a page cache rooted at dir. The directory is
// created lazily on first write.
func NewPageCache(dir string) *PageCache {
	return &PageCache{dir: dir}
}

// Read returns the cached page body for url, if present and readable.
func (p *PageCache) Read(url string) ([]byte, bool) {
	raw, err := os.ReadFile(p.path(url))
	if err != nil {
		return nil, false
	}
	return raw, true
}

// Write stores the page body for url, creating the cache directory if
// needed.
func (p *PageCache) Write(url string, body []byte) error {
	if err := os.MkdirAll(p.dir, 0o755); err != nil {
		return fmt.Errorf("page cache: %w", err)
	}
	if err := os.WriteFile(p.path(url), body, 0o644); err != nil {
		return fmt.Errorf("page cache: %w", err)
	}
	return nil
}

func (p *PageCache) path(url string) string {
	sum := md5.Sum([]byte(url))
	return filepath.Join(p.dir, hex.EncodeToString(sum[:])+".json")
}
