package blueskythread

import (
	"errors"

	"Skythread/internal/core/threads"
)

// Sentinel errors for typed error checking
var (
	// ErrThreadNotFound indicates the root post does not exist or was deleted
	ErrThreadNotFound = errors.New("thread not found")

	// ErrThreadBlocked indicates the appview refused to serve the thread
	ErrThreadBlocked = errors.New("thread is blocked")

	// ErrCircuitOpen indicates the circuit breaker is open for the appview
	ErrCircuitOpen = errors.New("circuit breaker open")

	// ErrCacheMiss is returned when a cache entry is not found or has expired
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidURL indicates a bsky.app URL that cannot be turned into an AT-URI
	ErrInvalidURL = errors.New("invalid bsky.app post URL")
)

// IsNotFound checks if an error means the thread does not exist
func IsNotFound(err error) bool {
	return errors.Is(err, ErrThreadNotFound)
}

// IsUnavailable checks if an error means the thread exists but cannot be shown
// right now, either because it is blocked or because the appview is failing
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrThreadBlocked) || errors.Is(err, ErrCircuitOpen)
}

// IsInvalidReference checks if an error is caused by the caller's input
func IsInvalidReference(err error) bool {
	return threads.IsValidationError(err) || errors.Is(err, ErrInvalidURL)
}
