package blueskythread

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/bluesky-social/indigo/atproto/syntax"

	"Skythread/internal/atproto/identity"
)

// blueskyPostURLPattern matches https://bsky.app/profile/{handle|did}/post/{rkey}
var blueskyPostURLPattern = regexp.MustCompile(`^https://bsky\.app/profile/([^/]+)/post/([^/?#]+)/?$`)

// rkeyPattern matches valid rkey formats (alphanumeric, typically base32 TID format)
var rkeyPattern = regexp.MustCompile(`^[a-zA-Z0-9]+$`)

// IsBlueskyURL checks if a URL is a valid bsky.app post URL
func IsBlueskyURL(urlStr string) bool {
	return blueskyPostURLPattern.MatchString(strings.TrimSpace(urlStr))
}

// ParseBlueskyURL converts a bsky.app post URL to an AT-URI.
// Example: https://bsky.app/profile/user.bsky.social/post/abc123
//
//	-> at://did:plc:xxx/app.bsky.feed.post/abc123
//
// Handles are resolved to DIDs through resolver; DIDs are used as they are.
func ParseBlueskyURL(ctx context.Context, urlStr string, resolver identity.Resolver) (string, error) {
	urlStr = strings.TrimSpace(urlStr)

	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if parsedURL.Scheme != "https" {
		return "", fmt.Errorf("%w: URL must use HTTPS scheme", ErrInvalidURL)
	}
	if parsedURL.Host != "bsky.app" {
		return "", fmt.Errorf("%w: URL must be from bsky.app", ErrInvalidURL)
	}

	matches := blueskyPostURLPattern.FindStringSubmatch(urlStr)
	if len(matches) != 3 {
		return "", fmt.Errorf("%w: expected https://bsky.app/profile/{handle}/post/{rkey}", ErrInvalidURL)
	}
	actor, rkey := matches[1], matches[2]

	if err := validateRkey(rkey); err != nil {
		return "", fmt.Errorf("%w: invalid rkey: %v", ErrInvalidURL, err)
	}

	var did string
	if strings.HasPrefix(actor, "did:") {
		parsed, err := syntax.ParseDID(actor)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
		}
		did = parsed.String()
	} else {
		handle, err := syntax.ParseHandle(actor)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
		}
		if resolver == nil {
			return "", fmt.Errorf("cannot resolve handle %s: no identity resolver configured", handle)
		}
		resolvedDID, _, err := resolver.ResolveHandle(ctx, handle.Normalize().String())
		if err != nil {
			return "", fmt.Errorf("failed to resolve handle %s: %w", handle, err)
		}
		did = resolvedDID
	}

	return fmt.Sprintf("at://%s/app.bsky.feed.post/%s", did, rkey), nil
}

// validateRkey checks the record key of a post URL. TIDs are 13 characters;
// 3-20 alphanumerics are accepted.
func validateRkey(rkey string) error {
	if len(rkey) < 3 {
		return fmt.Errorf("rkey too short (minimum 3 characters)")
	}
	if len(rkey) > 20 {
		return fmt.Errorf("rkey too long (maximum 20 characters)")
	}
	if !rkeyPattern.MatchString(rkey) {
		return fmt.Errorf("rkey contains invalid characters (must be alphanumeric)")
	}
	return nil
}
