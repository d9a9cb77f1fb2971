package engine

import (
	"sync"

	"github.com/google/uuid"
)

// RunTokenGenerator produces a correlation token for each assignment run.
// Tokens only appear in logs and the JSON output envelope; they never
// affect key assignment.
type RunTokenGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 run tokens.
//
// UUIDv7 embeds a timestamp in the most significant bits, so tokens sort
// by run start time, which is handy when grepping logs across runs.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 and returns it as a hyphenated string.
//
// Panics if UUID generation fails (should never happen in practice).
func (g UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// FixedTokenGenerator returns predetermined run tokens for testing.
//
// This keeps harness runs deterministic so rendered output can be compared
// against golden files.
//
// Thread-safety: safe for concurrent use via internal mutex.
type FixedTokenGenerator struct {
	mu     sync.Mutex
	tokens []string
	idx    int
}

// NewFixedTokenGenerator creates a generator that returns tokens in order.
// When the sequence is exhausted it keeps returning the last token.
func NewFixedTokenGenerator(tokens ...string) *FixedTokenGenerator {
	if len(tokens) == 0 {
		tokens = []string{"run-fixed"}
	}
	return &FixedTokenGenerator{tokens: tokens}
}

// Generate implements RunTokenGenerator.
func (g *FixedTokenGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.idx >= len(g.tokens) {
		return g.tokens[len(g.tokens)-1]
	}
	token := g.tokens[g.idx]
	g.idx++
	return token
}
