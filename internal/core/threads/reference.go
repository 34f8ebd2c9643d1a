package threads

import (
	"fmt"
	"strings"

	"github.com/bluesky-social/indigo/atproto/syntax"
)

const atURIPrefix = "at://"

// ValidateReference checks that ref is an AT-URI and returns it parsed.
// It is called before any network activity.
func ValidateReference(ref string) (syntax.ATURI, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", ErrMissingReference
	}
	if !strings.HasPrefix(ref, atURIPrefix) {
		return "", fmt.Errorf("%w: must start with %s", ErrInvalidReference, atURIPrefix)
	}

	uri, err := syntax.ParseATURI(ref)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidReference, err)
	}
	return uri, nil
}
