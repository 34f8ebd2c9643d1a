package identity

import "time"

// ResolutionMethod indicates how an identity was resolved
type ResolutionMethod string

const (
	MethodCache     ResolutionMethod = "cache"
	MethodDirectory ResolutionMethod = "directory"
)

// Identity is a resolved atProto account
type Identity struct {
	ResolvedAt time.Time        // When this identity was resolved
	DID        string           // e.g. "did:plc:abc123"
	Handle     string           // e.g. "alice.bsky.social"
	PDSURL     string           // Personal Data Server URL
	Method     ResolutionMethod // cache or directory
}
