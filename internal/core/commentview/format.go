package commentview

import (
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"Skythread/internal/core/richtext"
	"Skythread/internal/core/threads"
)

const (
	// TimestampLayout renders e.g. "05 Mar 2024 02:07 PM".
	TimestampLayout = "02 Jan 2006 03:04 PM"

	UnknownDate = "Unknown date"
	InvalidDate = "Invalid Date"
)

// FormatTimestamp renders an atproto datetime in loc.
func FormatTimestamp(raw string, loc *time.Location) string {
	if raw == "" {
		return UnknownDate
	}
	t, ok := threads.ParseTimestamp(raw)
	if !ok {
		return InvalidDate
	}
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(TimestampLayout)
}

// FormatCount renders a counter with thousands separators.
func FormatCount(n int) string {
	return humanize.Comma(int64(n))
}

// Permalink builds the bsky.app web URL of a post, or "" when the author DID
// or record key is unknown.
func Permalink(appBaseURL, did, uri string) string {
	rkey := threads.RecordKey(uri)
	if did == "" || rkey == "" {
		return ""
	}
	return strings.TrimSuffix(appBaseURL, "/") + "/profile/" + did + "/post/" + rkey
}

// ProfileURL builds the bsky.app web URL of an actor.
func ProfileURL(appBaseURL, actor string) string {
	if actor == "" {
		return ""
	}
	return strings.TrimSuffix(appBaseURL, "/") + "/profile/" + actor
}

// excerpt truncates s to at most limit grapheme clusters, appending an
// ellipsis when anything was cut.
func excerpt(s string, limit int) string {
	cut, truncated := richtext.TruncateGraphemes(s, limit)
	if !truncated {
		return s
	}
	return strings.TrimRight(cut, " ") + "…"
}
