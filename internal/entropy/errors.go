package entropy

import (
	"errors"
	"fmt"
)

// ErrMissingAPIKey indicates the quantum source was used without a
// configured API credential. This is a configuration error: the run
// aborts before any upstream call is made.
var ErrMissingAPIKey = errors.New("quantum entropy API key not configured")

// UpstreamError represents a malformed, incomplete, or failure-flagged
// response from the entropy provider. Upstream errors are fatal and never
// retried: the provider is rate- and size-limited, so blind retries are
// unsafe.
type UpstreamError struct {
	// Call is the 1-based index of the failing API call within the run.
	Call int

	// Status is the HTTP status code, if the response got that far.
	Status int

	// Reason describes what was wrong with the response.
	Reason string
}

// Error implements the error interface.
func (e *UpstreamError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("entropy upstream error (call %d, status %d): %s", e.Call, e.Status, e.Reason)
	}
	return fmt.Sprintf("entropy upstream error (call %d): %s", e.Call, e.Reason)
}

// IsUpstreamError returns true if err is or wraps an UpstreamError.
func IsUpstreamError(err error) bool {
	var ue *UpstreamError
	return errors.As(err, &ue)
}
