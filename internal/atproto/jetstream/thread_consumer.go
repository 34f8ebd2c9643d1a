package jetstream

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// PostCollection is the NSID of Bluesky posts
const PostCollection = "app.bsky.feed.post"

// Invalidator drops a cached thread
type Invalidator interface {
	Invalidate(ctx context.Context, atURI string) error
}

// ThreadEventConsumer invalidates cached threads when a reply is created or
// deleted. Only threads registered through Watch are considered, so the bulk
// of the firehose costs one map lookup per event.
type ThreadEventConsumer struct {
	invalidator Invalidator
	watched     *expirable.LRU[string, struct{}]
}

// NewThreadEventConsumer creates a consumer remembering up to size watched
// threads for ttl after their last load
func NewThreadEventConsumer(invalidator Invalidator, size int, ttl time.Duration) *ThreadEventConsumer {
	if size <= 0 {
		size = 1024
	}
	return &ThreadEventConsumer{
		invalidator: invalidator,
		watched:     expirable.NewLRU[string, struct{}](size, nil, ttl),
	}
}

// Watch registers a loaded thread root for invalidation
func (c *ThreadEventConsumer) Watch(atURI string) {
	c.watched.Add(atURI, struct{}{})
}

// Watching reports whether atURI is registered
func (c *ThreadEventConsumer) Watching(atURI string) bool {
	return c.watched.Contains(atURI)
}

// HandleEvent processes a Jetstream event for post records
func (c *ThreadEventConsumer) HandleEvent(ctx context.Context, event *JetstreamEvent) error {
	if event.Kind != "commit" || event.Commit == nil {
		return nil
	}
	commit := event.Commit
	if commit.Collection != PostCollection {
		return nil
	}

	ownURI := fmt.Sprintf("at://%s/%s/%s", event.Did, commit.Collection, commit.RKey)

	switch commit.Operation {
	case "create", "update":
		root, err := threadRoot(commit.Record)
		if err != nil {
			return fmt.Errorf("failed to parse post record %s: %w", ownURI, err)
		}
		if root != "" {
			return c.invalidate(ctx, root, ownURI)
		}
		return c.invalidate(ctx, ownURI, ownURI)

	case "delete":
		// deletes carry no record; the post may itself be a watched root
		return c.invalidate(ctx, ownURI, ownURI)
	}
	return nil
}

func (c *ThreadEventConsumer) invalidate(ctx context.Context, root, cause string) error {
	if !c.watched.Contains(root) {
		return nil
	}
	if err := c.invalidator.Invalidate(ctx, root); err != nil {
		return err
	}
	log.Printf("[JETSTREAM] Invalidated thread %s (event for %s)", root, cause)
	return nil
}

// threadRoot returns the root URI of a reply record, or "" for top-level posts
func threadRoot(raw json.RawMessage) (string, error) {
	if len(raw) == 0 {
		return "", nil
	}
	var record postRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return "", err
	}
	if record.Reply == nil {
		return "", nil
	}
	return record.Reply.Root.URI, nil
}
