package blueskythread

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

type memoryEntry struct {
	expiresAt time.Time
	entry     CachedThread
}

// memoryThreadRepo keeps documents in an expiring LRU. The LRU evicts after
// maxTTL; shorter per-entry TTLs are enforced on read.
type memoryThreadRepo struct {
	now     func() time.Time
	entries *expirable.LRU[string, memoryEntry]
}

// NewMemoryRepository creates an in-process thread cache holding at most size
// documents, none of them longer than maxTTL
func NewMemoryRepository(size int, maxTTL time.Duration) Repository {
	if size <= 0 {
		size = 512
	}
	return &memoryThreadRepo{
		now:     time.Now,
		entries: expirable.NewLRU[string, memoryEntry](size, nil, maxTTL),
	}
}

func (r *memoryThreadRepo) Get(ctx context.Context, atURI string) (*CachedThread, error) {
	e, ok := r.entries.Get(atURI)
	if !ok {
		return nil, ErrCacheMiss
	}
	if !r.now().Before(e.expiresAt) {
		r.entries.Remove(atURI)
		return nil, ErrCacheMiss
	}
	entry := e.entry
	return &entry, nil
}

func (r *memoryThreadRepo) Set(ctx context.Context, atURI string, entry *CachedThread, ttl time.Duration) error {
	if err := validateATURI(atURI); err != nil {
		return err
	}
	if entry == nil {
		return nil
	}
	r.entries.Add(atURI, memoryEntry{entry: *entry, expiresAt: r.now().Add(ttl)})
	return nil
}

func (r *memoryThreadRepo) Delete(ctx context.Context, atURI string) error {
	r.entries.Remove(atURI)
	return nil
}
