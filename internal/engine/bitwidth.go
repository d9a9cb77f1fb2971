package engine

import "math"

// minBitWidth is the floor for assigned key width.
const minBitWidth = 16

// BitWidth returns the key width in bits for a deployment that supports at
// most maxBatch items per run.
//
// The formula max(16, ceil(2*log2(maxBatch) + 10)) keeps the all-distinct
// probability overwhelming via the birthday bound: 2*log2(n) bits alone
// already make a collision among n keys unlikely, and the extra 10 bits
// push it three orders of magnitude further out.
//
// The width is derived from the configured maximum, NOT the actual batch
// size. It must be constant for a deployment so cached keys from runs of
// different sizes stay comparable.
func BitWidth(maxBatch int) int {
	if maxBatch < 1 {
		maxBatch = 1
	}
	bits := int(math.Ceil(2*math.Log2(float64(maxBatch)) + 10))
	if bits < minBitWidth {
		return minBitWidth
	}
	return bits
}
