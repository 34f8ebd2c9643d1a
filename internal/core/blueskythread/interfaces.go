package blueskythread

import (
	"context"
	"time"

	"Skythread/internal/core/threads"
)

// Service loads Bluesky threads for display.
// It orchestrates reference validation, cache lookups, appview fetching and
// circuit breaking.
type Service interface {
	// LoadThread fetches and flattens the thread rooted at ref. ref is an
	// at:// post URI or a bsky.app post URL.
	LoadThread(ctx context.Context, ref string) (*threads.Thread, error)

	// Invalidate drops any cached document for the thread rooted at atURI.
	Invalidate(ctx context.Context, atURI string) error

	// ParseBlueskyURL converts a bsky.app post URL to an AT-URI.
	ParseBlueskyURL(ctx context.Context, url string) (string, error)

	// IsBlueskyURL checks if a URL is a valid bsky.app post URL.
	IsBlueskyURL(url string) bool
}

// CachedThread is a getPostThread response body as it was fetched.
// Documents are re-decoded on every hit so cached and fresh loads share one
// decoding path.
type CachedThread struct {
	FetchedAt time.Time
	Document  []byte
}

// Repository defines the interface for thread document cache persistence.
type Repository interface {
	// Get returns the cached document for atURI.
	// Returns ErrCacheMiss if not found or expired.
	Get(ctx context.Context, atURI string) (*CachedThread, error)

	// Set stores a document for atURI, replacing any existing entry.
	Set(ctx context.Context, atURI string, entry *CachedThread, ttl time.Duration) error

	// Delete removes the entry for atURI. Deleting a missing entry is not an error.
	Delete(ctx context.Context, atURI string) error
}
