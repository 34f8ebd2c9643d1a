package routes

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"Skythread/internal/api/handlers/comments"
)

// RegisterCommentRoutes registers the comments XRPC endpoint on the router.
// The endpoint is read-only and meant to be called cross-origin by embedding
// pages, so it carries its own CORS policy.
func RegisterCommentRoutes(r chi.Router, renderer *comments.PageRenderer, allowedOrigins []string) {
	getHandler := comments.NewGetCommentsHandler(renderer)

	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	corsMiddleware := cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	})

	// app.skythread.getComments - one filtered, sorted page of a thread
	r.With(corsMiddleware).Get("/xrpc/app.skythread.getComments", getHandler.HandleGetComments)
	r.With(corsMiddleware).Options("/xrpc/app.skythread.getComments", getHandler.HandleGetComments)
}
