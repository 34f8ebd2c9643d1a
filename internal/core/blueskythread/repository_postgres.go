package blueskythread

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/bluesky-social/indigo/atproto/syntax"

	"Skythread/internal/core/threads"
)

type postgresThreadRepo struct {
	db *sql.DB
}

// NewPostgresRepository creates a thread cache backed by the thread_cache table
func NewPostgresRepository(db *sql.DB) Repository {
	if db == nil {
		panic("blueskythread: db cannot be nil")
	}
	return &postgresThreadRepo{db: db}
}

// Get retrieves the cached document for atURI.
// Returns ErrCacheMiss if not found or expired.
func (r *postgresThreadRepo) Get(ctx context.Context, atURI string) (*CachedThread, error) {
	query := `
		SELECT document, fetched_at
		FROM thread_cache
		WHERE at_uri = $1 AND expires_at > NOW()
	`

	var entry CachedThread
	err := r.db.QueryRowContext(ctx, query, atURI).Scan(&entry.Document, &entry.FetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get thread cache entry: %w", err)
	}

	return &entry, nil
}

// Set stores a document for atURI. expires_at is NOW() + ttl.
func (r *postgresThreadRepo) Set(ctx context.Context, atURI string, entry *CachedThread, ttl time.Duration) error {
	if err := validateATURI(atURI); err != nil {
		return err
	}
	if entry == nil || len(entry.Document) == 0 {
		return fmt.Errorf("refusing to cache empty thread document for %s", atURI)
	}

	fetchedAt := entry.FetchedAt
	if fetchedAt.IsZero() {
		fetchedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO thread_cache (at_uri, document, fetched_at, expires_at)
		VALUES ($1, $2, $3, NOW() + $4::interval)
		ON CONFLICT (at_uri) DO UPDATE
		SET document = EXCLUDED.document,
		    fetched_at = EXCLUDED.fetched_at,
		    expires_at = EXCLUDED.expires_at
	`

	_, err := r.db.ExecContext(ctx, query, atURI, entry.Document, fetchedAt, formatInterval(ttl))
	if err != nil {
		return fmt.Errorf("failed to upsert thread cache entry: %w", err)
	}

	return nil
}

// Delete removes the entry for atURI
func (r *postgresThreadRepo) Delete(ctx context.Context, atURI string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM thread_cache WHERE at_uri = $1`, atURI); err != nil {
		return fmt.Errorf("failed to delete thread cache entry: %w", err)
	}
	return nil
}

// formatInterval converts a Go duration to a PostgreSQL interval string
// such as "15 minutes" or "24 hours"
func formatInterval(d time.Duration) string {
	seconds := int64(d.Seconds())

	switch {
	case seconds >= 86400 && seconds%86400 == 0:
		return fmt.Sprintf("%d days", seconds/86400)
	case seconds >= 3600 && seconds%3600 == 0:
		return fmt.Sprintf("%d hours", seconds/3600)
	case seconds >= 60 && seconds%60 == 0:
		return fmt.Sprintf("%d minutes", seconds/60)
	default:
		return fmt.Sprintf("%d seconds", seconds)
	}
}

const postCollection = "app.bsky.feed.post"

// validateATURI checks that atURI names an app.bsky.feed.post record, which
// keeps other collections out of the cache
func validateATURI(atURI string) error {
	uri, err := syntax.ParseATURI(atURI)
	if err != nil {
		return fmt.Errorf("%w: %v", threads.ErrInvalidReference, err)
	}
	if uri.Collection().String() != postCollection {
		return fmt.Errorf("%w: collection must be %s", threads.ErrInvalidReference, postCollection)
	}
	if uri.RecordKey().String() == "" {
		return fmt.Errorf("%w: missing record key", threads.ErrInvalidReference)
	}
	return nil
}
