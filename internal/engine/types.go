package engine

import "context"

// Item is one question to be keyed. Identity for caching purposes is the
// fingerprint of Text only; the remaining fields are carried through
// unmodified for display.
type Item struct {
	// Text is the question's full text.
	Text string

	// Author is the display name of the submitter.
	Author string

	// SourceURL links back to the original comment.
	SourceURL string
}

// AssignedItem pairs an item with its resolved random key.
// Produced once per run; only the fingerprint-to-key mapping persists.
type AssignedItem struct {
	Key  uint64
	Item Item
}

// Result is the outcome of one assignment run.
type Result struct {
	// RunToken correlates log lines for this run.
	RunToken string

	// Items is the input batch sorted ascending by key.
	Items []AssignedItem

	// BitWidth is the width of every key in Items.
	BitWidth int

	// Quantum reports whether keys came from the quantum source.
	Quantum bool
}

// Cache persists assigned keys across runs, nested by bit width then
// fingerprint. Implemented by keycache.Store; tests use in-memory fakes.
//
// Cache failures are non-fatal to the engine: a failed Load degrades to an
// empty cache, a failed Save skips persistence. Both only warn.
type Cache interface {
	Load(ctx context.Context) (map[int]map[string]uint64, error)
	Save(ctx context.Context, bitWidth int, entries map[string]uint64) error
}
