package comments

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"Skythread/internal/atproto/identity"
	"Skythread/internal/core/blueskythread"
	"Skythread/internal/core/threads"
)

// ErrInvalidRequest indicates bad query parameters
var ErrInvalidRequest = errors.New("invalid request")

// errorResponse represents a standardized JSON error response
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// writeError writes a JSON error response with the given status code
func writeError(w http.ResponseWriter, statusCode int, errorType, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(errorResponse{
		Error:   errorType,
		Message: message,
	}); err != nil {
		log.Printf("Failed to encode error response: %v", err)
	}
}

// ErrorStatus classifies a load error into an HTTP status, an XRPC error
// name and a message safe to show to clients
func ErrorStatus(err error) (status int, errorType, message string) {
	var unresolved *identity.ErrNotFound

	switch {
	case errors.Is(err, ErrInvalidRequest), blueskythread.IsInvalidReference(err):
		return http.StatusBadRequest, "InvalidRequest", err.Error()

	case blueskythread.IsNotFound(err), errors.As(err, &unresolved):
		return http.StatusNotFound, "NotFound", "Thread not found"

	case errors.Is(err, blueskythread.ErrThreadBlocked):
		return http.StatusForbidden, "BlockedThread", "This thread is not available"

	case errors.Is(err, blueskythread.ErrCircuitOpen):
		return http.StatusServiceUnavailable, "UpstreamUnavailable",
			"Bluesky is not responding right now, please try again later"

	case errors.Is(err, threads.ErrMalformedThread):
		return http.StatusBadGateway, "UpstreamError", "Bluesky returned an unexpected response"

	default:
		return http.StatusInternalServerError, "InternalServerError", "An internal error occurred"
	}
}

// handleServiceError maps service-layer errors to HTTP responses
func handleServiceError(w http.ResponseWriter, err error) {
	status, errorType, message := ErrorStatus(err)
	if status >= http.StatusInternalServerError {
		// Don't leak internal error details to clients
		log.Printf("Unexpected error in comments handler: %v", err)
	}
	writeError(w, status, errorType, message)
}
