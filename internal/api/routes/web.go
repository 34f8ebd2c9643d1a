package routes

import (
	"github.com/go-chi/chi/v5"

	"Skythread/internal/web"
)

// RegisterWebRoutes registers the server-rendered comment widget
func RegisterWebRoutes(r chi.Router, handlers *web.Handlers) {
	r.Get("/comments", handlers.CommentsHandler)
}
