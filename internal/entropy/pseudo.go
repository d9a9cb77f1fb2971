package entropy

import (
	"context"
	"fmt"
	"math/rand/v2"
)

// Pseudo draws keys from a process-local pseudo-random generator.
//
// Pseudo mode is for testing and dry runs: it makes no network calls and
// must never be cached, so every run produces a fresh, non-deterministic
// ordering.
type Pseudo struct {
	rng *rand.Rand
}

// NewPseudo creates a pseudo source backed by the given generator.
// A nil rng falls back to a ChaCha8 generator seeded from the OS.
//
// The generator is injectable so tests can supply a fixed seed instead of
// reaching for process-global randomness.
func NewPseudo(rng *rand.Rand) *Pseudo {
	if rng == nil {
		var seed [32]byte
		for i := range seed {
			seed[i] = byte(rand.Uint64())
		}
		rng = rand.New(rand.NewChaCha8(seed))
	}
	return &Pseudo{rng: rng}
}

// Draw implements Source.
func (p *Pseudo) Draw(_ context.Context, count, bitsPerKey int) ([]uint64, error) {
	if count < 0 {
		return nil, fmt.Errorf("entropy: negative key count %d", count)
	}
	if bitsPerKey < 1 || bitsPerKey > MaxBitsPerKey {
		return nil, fmt.Errorf("entropy: bits per key %d out of range [1, %d]", bitsPerKey, MaxBitsPerKey)
	}

	keys := make([]uint64, count)
	for i := range keys {
		if bitsPerKey == MaxBitsPerKey {
			keys[i] = p.rng.Uint64()
		} else {
			keys[i] = p.rng.Uint64N(1 << uint(bitsPerKey))
		}
	}
	return keys, nil
}
