package keycache

import (
	"context"
	"fmt"
)

// Load reads every cached key, nested by bit width then fingerprint.
//
// Callers treat a load failure as a warning, not an abort: the engine
// degrades to an empty cache and re-draws keys for everything it sees.
func (s *Store) Load(ctx context.Context) (map[int]map[string]uint64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT bit_width, fingerprint, rand_key
		FROM keys
		ORDER BY bit_width ASC, fingerprint ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("load keys: %w", err)
	}
	defer rows.Close()

	cache := make(map[int]map[string]uint64)
	for rows.Next() {
		var (
			bitWidth    int
			fingerprint string
			key         int64
		)
		if err := rows.Scan(&bitWidth, &fingerprint, &key); err != nil {
			return nil, fmt.Errorf("load keys: scan: %w", err)
		}
		sub := cache[bitWidth]
		if sub == nil {
			sub = make(map[string]uint64)
			cache[bitWidth] = sub
		}
		sub[fingerprint] = uint64(key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load keys: %w", err)
	}

	return cache, nil
}

// Save persists newly assigned keys for one bit width.
//
// Uses ON CONFLICT DO NOTHING: a fingerprint already keyed at this width
// keeps its original key, matching the never-updated-once-written contract.
// All entries are written in one transaction so a failed run persists
// either every new key or none.
//
// Callers treat a save failure as a warning, not an abort: the run
// continues with its in-memory assignment and the keys are re-drawn next
// time.
func (s *Store) Save(ctx context.Context, bitWidth int, entries map[string]uint64) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save keys: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO keys (bit_width, fingerprint, rand_key)
		VALUES (?, ?, ?)
		ON CONFLICT(bit_width, fingerprint) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("save keys: prepare: %w", err)
	}
	defer stmt.Close()

	for fingerprint, key := range entries {
		if _, err := stmt.ExecContext(ctx, bitWidth, fingerprint, int64(key)); err != nil {
			return fmt.Errorf("save keys: insert %s: %w", fingerprint, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save keys: commit: %w", err)
	}

	return nil
}

// CountByWidth reports how many keys are cached per bit width.
// Used by the cache stats command.
func (s *Store) CountByWidth(ctx context.Context) (map[int]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT bit_width, COUNT(*)
		FROM keys
		GROUP BY bit_width
		ORDER BY bit_width ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("count keys: %w", err)
	}
	defer rows.Close()

	counts := make(map[int]int)
	for rows.Next() {
		var width, n int
		if err := rows.Scan(&width, &n); err != nil {
			return nil, fmt.Errorf("count keys: scan: %w", err)
		}
		counts[width] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("count keys: %w", err)
	}

	return counts, nil
}
