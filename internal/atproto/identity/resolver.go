package identity

import "context"

// Resolver provides methods for resolving atProto identities
type Resolver interface {
	// Resolve resolves a handle or DID to complete identity information
	Resolve(ctx context.Context, identifier string) (*Identity, error)

	// ResolveHandle resolves a handle to its DID and PDS URL
	ResolveHandle(ctx context.Context, handle string) (did, pdsURL string, err error)

	// Purge removes an identifier from any cache
	Purge(ctx context.Context, identifier string) error
}

// IdentityCache provides caching for resolved identities
type IdentityCache interface {
	// Get returns a cached identity by handle or DID, or *ErrCacheMiss
	Get(ctx context.Context, identifier string) (*Identity, error)

	// Set caches an identity under both its handle and its DID
	Set(ctx context.Context, identity *Identity) error

	// Purge removes all entries associated with an identifier
	Purge(ctx context.Context, identifier string) error
}
