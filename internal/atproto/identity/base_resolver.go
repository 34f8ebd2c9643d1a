package identity

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	indigoIdentity "github.com/bluesky-social/indigo/atproto/identity"
	"github.com/bluesky-social/indigo/atproto/syntax"
)

// baseResolver resolves identities through an indigo Directory
type baseResolver struct {
	directory indigoIdentity.Directory
}

func newBaseResolver(plcURL, userAgent string, httpClient *http.Client) Resolver {
	return &baseResolver{
		directory: &indigoIdentity.BaseDirectory{
			PLCURL:     plcURL,
			HTTPClient: *httpClient,
			UserAgent:  userAgent,
		},
	}
}

// Resolve resolves a handle or DID through the directory
func (r *baseResolver) Resolve(ctx context.Context, identifier string) (*Identity, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, &ErrInvalidIdentifier{Identifier: identifier, Reason: "identifier cannot be empty"}
	}

	atID, err := syntax.ParseAtIdentifier(identifier)
	if err != nil {
		return nil, &ErrInvalidIdentifier{Identifier: identifier, Reason: err.Error()}
	}

	ident, err := r.directory.Lookup(ctx, *atID)
	if err != nil {
		if isNotFound(err) {
			return nil, &ErrNotFound{Identifier: identifier, Reason: err.Error()}
		}
		return nil, &ErrResolutionFailed{Identifier: identifier, Reason: err.Error()}
	}

	return &Identity{
		DID:        ident.DID.String(),
		Handle:     ident.Handle.String(),
		PDSURL:     ident.PDSEndpoint(),
		ResolvedAt: time.Now().UTC(),
		Method:     MethodDirectory,
	}, nil
}

// ResolveHandle resolves a handle to its DID and PDS URL
func (r *baseResolver) ResolveHandle(ctx context.Context, handle string) (did, pdsURL string, err error) {
	ident, err := r.Resolve(ctx, handle)
	if err != nil {
		return "", "", err
	}
	return ident.DID, ident.PDSURL, nil
}

// Purge is a no-op; the base resolver keeps no state
func (r *baseResolver) Purge(ctx context.Context, identifier string) error {
	return nil
}

func isNotFound(err error) bool {
	if errors.Is(err, indigoIdentity.ErrHandleNotFound) || errors.Is(err, indigoIdentity.ErrDIDNotFound) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "not found") || strings.Contains(msg, "NoRecordsFound")
}

// normalizeIdentifier lowercases handles; DIDs are case sensitive
func normalizeIdentifier(identifier string) string {
	identifier = strings.TrimSpace(identifier)
	if strings.HasPrefix(identifier, "did:") {
		return identifier
	}
	return strings.ToLower(strings.TrimPrefix(identifier, "@"))
}
