// Package richtext turns Bluesky post text plus byte-addressed facets into
// sanitized, typed spans ready to be embedded in HTML.
package richtext

import (
	"strings"

	"golang.org/x/net/html"
)

// Sanitize escapes raw so it can be embedded as HTML text content.
func Sanitize(raw string) string {
	if raw == "" {
		return ""
	}
	return html.EscapeString(raw)
}

// SanitizePtr is Sanitize for optional fields; nil yields "".
func SanitizePtr(raw *string) string {
	if raw == nil {
		return ""
	}
	return Sanitize(*raw)
}

// markLineBreaks converts newlines in already-escaped text into <br> elements.
func markLineBreaks(escaped string) string {
	return strings.ReplaceAll(escaped, "\n", "<br>")
}
