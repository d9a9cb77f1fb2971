package entropy

import (
	"context"
	"fmt"
)

// Fixed returns a predetermined key sequence for testing.
//
// This enables deterministic engine runs and golden document comparison.
// Tests provide a known sequence and verify the exact resulting order.
// Successive Draw calls consume the sequence left to right.
type Fixed struct {
	keys []uint64
	idx  int

	// Calls records each Draw's (count, bitsPerKey) for assertions.
	Calls [][2]int
}

// NewFixed creates a source that returns the given keys in order.
//
// Example:
//
//	src := entropy.NewFixed(5, 1, 3)
//	src.Draw(ctx, 3, 16) // [5, 1, 3]
//	src.Draw(ctx, 1, 16) // error: sequence exhausted
func NewFixed(keys ...uint64) *Fixed {
	return &Fixed{keys: keys}
}

// Draw implements Source. It fails when asked for more keys than remain,
// which lets tests assert that cached runs make no draw at all.
func (f *Fixed) Draw(_ context.Context, count, bitsPerKey int) ([]uint64, error) {
	f.Calls = append(f.Calls, [2]int{count, bitsPerKey})
	if count == 0 {
		return []uint64{}, nil
	}
	if f.idx+count > len(f.keys) {
		return nil, fmt.Errorf("entropy: fixed sequence exhausted (want %d keys, %d remain)", count, len(f.keys)-f.idx)
	}
	out := make([]uint64, count)
	copy(out, f.keys[f.idx:f.idx+count])
	f.idx += count
	return out, nil
}
