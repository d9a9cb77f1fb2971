package engine

import (
	"errors"
	"fmt"
)

// CapacityError indicates the batch is at or above the deployment's
// maximum supported size. The maximum itself is reserved: a deployment
// configured for 500 accepts at most 499 items.
//
// Fatal: the run aborts with no output.
type CapacityError struct {
	Count int
	Max   int
}

// Error implements the error interface.
func (e *CapacityError) Error() string {
	return fmt.Sprintf("too many questions (%d), maximum is %d", e.Count, e.Max-1)
}

// IsCapacityError returns true if err is or wraps a CapacityError.
func IsCapacityError(err error) bool {
	var ce *CapacityError
	return errors.As(err, &ce)
}

// CollisionError indicates two items in one batch resolved to the same
// key. This points at cache corruption or an entropy-source coincidence
// rare enough to surface loudly.
//
// Fatal, deliberately: the engine never re-draws on collision. A retry
// loop would trade a visible failure for silent non-determinism.
type CollisionError struct {
	// Key is the colliding key value.
	Key uint64

	// BitWidth is the key width of the run.
	BitWidth int

	// Fingerprints are the item fingerprints that resolved to Key.
	Fingerprints []string
}

// Error implements the error interface.
func (e *CollisionError) Error() string {
	return fmt.Sprintf("random key collision: %d fingerprints share key %d at width %d",
		len(e.Fingerprints), e.Key, e.BitWidth)
}

// IsCollisionError returns true if err is or wraps a CollisionError.
func IsCollisionError(err error) bool {
	var ce *CollisionError
	return errors.As(err, &ce)
}
