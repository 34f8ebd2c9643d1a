package threads

import "errors"

var (
	// ErrMissingReference indicates no thread reference was supplied
	ErrMissingReference = errors.New("thread reference is required")

	// ErrInvalidReference indicates the thread reference is not an at:// post URI
	ErrInvalidReference = errors.New("invalid thread reference")

	// ErrMalformedThread indicates the upstream document lacks a root post
	ErrMalformedThread = errors.New("malformed thread document")
)

// IsValidationError checks if an error is caused by a bad thread reference
func IsValidationError(err error) bool {
	return errors.Is(err, ErrMissingReference) ||
		errors.Is(err, ErrInvalidReference)
}
