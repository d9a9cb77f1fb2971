package keycache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// GistURL returns the gist URL previously recorded for a post URL.
// Returns ("", nil) when no gist has been created for the post yet.
func (s *Store) GistURL(ctx context.Context, postURL string) (string, error) {
	var gistURL string
	err := s.db.QueryRowContext(ctx,
		`SELECT gist_url FROM gist_urls WHERE post_url = ?`, postURL,
	).Scan(&gistURL)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("gist url: %w", err)
	}
	return gistURL, nil
}

// PutGistURL records the gist URL for a post URL, replacing any previous
// mapping. Unlike keys, gist URLs may legitimately change (a deleted gist
// gets recreated), so this upserts.
func (s *Store) PutGistURL(ctx context.Context, postURL, gistURL string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO gist_urls (post_url, gist_url)
		VALUES (?, ?)
		ON CONFLICT(post_url) DO UPDATE SET gist_url = excluded.gist_url
	`, postURL, gistURL)
	if err != nil {
		return fmt.Errorf("put gist url: %w", err)
	}
	return nil
}
