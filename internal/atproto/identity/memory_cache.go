package identity

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// memoryCache implements IdentityCache with an expiring LRU
type memoryCache struct {
	entries *expirable.LRU[string, Identity]
}

// NewMemoryCache creates an in-process identity cache holding at most size
// entries for ttl each
func NewMemoryCache(size int, ttl time.Duration) IdentityCache {
	return &memoryCache{
		entries: expirable.NewLRU[string, Identity](size, nil, ttl),
	}
}

func (c *memoryCache) Get(ctx context.Context, identifier string) (*Identity, error) {
	key := normalizeIdentifier(identifier)
	ident, ok := c.entries.Get(key)
	if !ok {
		return nil, &ErrCacheMiss{Identifier: key}
	}
	return &ident, nil
}

func (c *memoryCache) Set(ctx context.Context, identity *Identity) error {
	if identity == nil {
		return nil
	}
	if identity.DID != "" {
		c.entries.Add(normalizeIdentifier(identity.DID), *identity)
	}
	if identity.Handle != "" {
		c.entries.Add(normalizeIdentifier(identity.Handle), *identity)
	}
	return nil
}

func (c *memoryCache) Purge(ctx context.Context, identifier string) error {
	key := normalizeIdentifier(identifier)
	if ident, ok := c.entries.Peek(key); ok {
		c.entries.Remove(normalizeIdentifier(ident.DID))
		c.entries.Remove(normalizeIdentifier(ident.Handle))
	}
	c.entries.Remove(key)
	return nil
}
