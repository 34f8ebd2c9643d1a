package identity

import (
	"context"
	"log"
)

// cachingResolver wraps a base resolver with caching
type cachingResolver struct {
	base  Resolver
	cache IdentityCache
}

func newCachingResolver(base Resolver, cache IdentityCache) Resolver {
	return &cachingResolver{
		base:  base,
		cache: cache,
	}
}

// Resolve checks the cache before falling back to the base resolver
func (r *cachingResolver) Resolve(ctx context.Context, identifier string) (*Identity, error) {
	if cached, err := r.cache.Get(ctx, identifier); err == nil {
		cached.Method = MethodCache
		return cached, nil
	}

	identity, err := r.base.Resolve(ctx, identifier)
	if err != nil {
		return nil, err
	}

	if cacheErr := r.cache.Set(ctx, identity); cacheErr != nil {
		log.Printf("[IDENTITY] Warning: failed to cache identity for %s: %v", identifier, cacheErr)
	}

	return identity, nil
}

// ResolveHandle resolves a handle to its DID and PDS URL
func (r *cachingResolver) ResolveHandle(ctx context.Context, handle string) (did, pdsURL string, err error) {
	identity, err := r.Resolve(ctx, handle)
	if err != nil {
		return "", "", err
	}
	return identity.DID, identity.PDSURL, nil
}

// Purge removes an identifier from the cache and propagates to base
func (r *cachingResolver) Purge(ctx context.Context, identifier string) error {
	if err := r.cache.Purge(ctx, identifier); err != nil {
		return err
	}
	return r.base.Purge(ctx, identifier)
}
