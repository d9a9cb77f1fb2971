// Package testutil provides shared test doubles.
package testutil

import (
	"context"
	"errors"
)

// MemCache is an in-memory engine.Cache for tests and harness scenarios.
//
// It mirrors the keycache store's insert-only semantics: Save never
// overwrites an existing (bitWidth, fingerprint) entry. Failures can be
// injected to exercise the engine's warn-and-continue paths.
type MemCache struct {
	// Entries is the nested bitWidth -> fingerprint -> key mapping.
	// Exposed so tests can seed and inspect it directly.
	Entries map[int]map[string]uint64

	// FailLoad makes Load return an error.
	FailLoad bool

	// FailSave makes Save return an error.
	FailSave bool

	// Loads and Saves count calls, so tests can assert pseudo mode
	// never touches the cache.
	Loads int
	Saves int
}

// NewMemCache creates an empty in-memory cache.
func NewMemCache() *MemCache {
	return &MemCache{Entries: make(map[int]map[string]uint64)}
}

// Load implements engine.Cache.
func (c *MemCache) Load(_ context.Context) (map[int]map[string]uint64, error) {
	c.Loads++
	if c.FailLoad {
		return nil, errors.New("injected load failure")
	}
	// Deep copy so engine-side merging never mutates the seeded state.
	out := make(map[int]map[string]uint64, len(c.Entries))
	for width, sub := range c.Entries {
		cp := make(map[string]uint64, len(sub))
		for fp, key := range sub {
			cp[fp] = key
		}
		out[width] = cp
	}
	return out, nil
}

// Save implements engine.Cache.
func (c *MemCache) Save(_ context.Context, bitWidth int, entries map[string]uint64) error {
	c.Saves++
	if c.FailSave {
		return errors.New("injected save failure")
	}
	sub := c.Entries[bitWidth]
	if sub == nil {
		sub = make(map[string]uint64)
		c.Entries[bitWidth] = sub
	}
	for fp, key := range entries {
		if _, ok := sub[fp]; !ok {
			sub[fp] = key
		}
	}
	return nil
}

// Len returns the number of entries cached at the given bit width.
func (c *MemCache) Len(bitWidth int) int {
	return len(c.Entries[bitWidth])
}
