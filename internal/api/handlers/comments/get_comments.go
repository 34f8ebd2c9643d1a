// Package comments provides HTTP handlers for the thread comments API.
// These handlers follow XRPC conventions.
package comments

import (
	"encoding/json"
	"log"
	"net/http"
)

// GetCommentsHandler handles comment retrieval for Bluesky threads
type GetCommentsHandler struct {
	renderer *PageRenderer
}

// NewGetCommentsHandler creates a new handler for fetching comments
func NewGetCommentsHandler(renderer *PageRenderer) *GetCommentsHandler {
	return &GetCommentsHandler{
		renderer: renderer,
	}
}

// HandleGetComments handles GET /xrpc/app.skythread.getComments
// Returns one filtered, sorted and paginated page of a thread's replies
func (h *GetCommentsHandler) HandleGetComments(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "MethodNotAllowed", "Method not allowed")
		return
	}

	req, err := ParseRequest(r.URL.Query())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	page, err := h.renderer.Render(r.Context(), req)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(page); err != nil {
		// Log encoding errors but don't return error response (headers already sent)
		log.Printf("Failed to encode comments response: %v", err)
	}
}
