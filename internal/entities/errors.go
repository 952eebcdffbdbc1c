package entities

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across the repository and service layers.
// Callers match them with errors.Is; wrapping adds context without
// breaking classification.
var (
	// ErrNotFound is returned when a link does not exist or is not
	// visible through the accessor used (inactive rows are invisible
	// to the public resolution path).
	ErrNotFound = errors.New("link not found")

	// ErrCodeCollision is returned by a claim attempt when the short
	// code is already taken. It never escapes the allocation loop.
	ErrCodeCollision = errors.New("short code already taken")

	// ErrAllocationExhausted is returned when every claim attempt in
	// the retry budget collided.
	ErrAllocationExhausted = errors.New("failed to allocate a unique short code")

	// ErrUnauthorized is returned when a caller tries to mutate a link
	// it does not own. Distinct from ErrNotFound so the boundary can
	// decide what to disclose.
	ErrUnauthorized = errors.New("not authorized to modify this link")

	// ErrValidation is the base error for malformed input.
	ErrValidation = errors.New("validation failed")
)

// ValidationError wraps ErrValidation with the offending field.
func ValidationError(field, reason string) error {
	return fmt.Errorf("%w: %s: %s", ErrValidation, field, reason)
}
