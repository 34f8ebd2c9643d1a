// Package threads models app.bsky.feed.getPostThread documents as a closed
// set of node variants and flattens them into a depth-annotated comment list.
package threads

import (
	"strings"
	"time"

	"github.com/bluesky-social/indigo/atproto/syntax"

	"Skythread/internal/core/richtext"
)

// Embed view lexicon types.
const (
	EmbedTypeImages          = "app.bsky.embed.images#view"
	EmbedTypeExternal        = "app.bsky.embed.external#view"
	EmbedTypeRecord          = "app.bsky.embed.record#view"
	EmbedTypeRecordWithMedia = "app.bsky.embed.recordWithMedia#view"
	EmbedTypeVideo           = "app.bsky.embed.video#view"

	RecordTypeViewRecord   = "app.bsky.embed.record#viewRecord"
	RecordTypeViewNotFound = "app.bsky.embed.record#viewNotFound"
	RecordTypeViewBlocked  = "app.bsky.embed.record#viewBlocked"
)

// PostView is the hydrated post carried by a threadViewPost node.
// Matches app.bsky.feed.defs#postView for the fields we render.
type PostView struct {
	Embed       *Embed  `json:"embed,omitempty"`
	Author      Author  `json:"author"`
	Record      Record  `json:"record"`
	URI         string  `json:"uri"`
	CID         string  `json:"cid"`
	IndexedAt   string  `json:"indexedAt,omitempty"`
	Labels      []Label `json:"labels,omitempty"`
	LikeCount   int     `json:"likeCount"`
	RepostCount int     `json:"repostCount"`
	ReplyCount  int     `json:"replyCount"`
	QuoteCount  int     `json:"quoteCount"`
}

// Author is the basic profile view of a post's author.
type Author struct {
	DisplayName *string `json:"displayName,omitempty"`
	Avatar      *string `json:"avatar,omitempty"`
	DID         string  `json:"did"`
	Handle      string  `json:"handle"`
}

// Record is the app.bsky.feed.post record of a post.
type Record struct {
	Text      string           `json:"text"`
	CreatedAt string           `json:"createdAt"`
	Facets    []richtext.Facet `json:"facets,omitempty"`
}

// Label is a moderation label applied to a post.
type Label struct {
	Src string `json:"src"`
	Val string `json:"val"`
}

// Embed is the hydrated embed view attached to a post.
type Embed struct {
	External  *EmbedExternal `json:"external,omitempty"`
	Record    *EmbedRecord   `json:"record,omitempty"`
	Media     *Embed         `json:"media,omitempty"`
	Type      string         `json:"$type"`
	Thumbnail string         `json:"thumbnail,omitempty"`
	Images    []EmbedImage   `json:"images,omitempty"`
}

// EmbedImage is one image of an images embed.
type EmbedImage struct {
	Thumb    string `json:"thumb,omitempty"`
	Fullsize string `json:"fullsize,omitempty"`
	Alt      string `json:"alt,omitempty"`
}

// EmbedExternal is an external link card.
type EmbedExternal struct {
	URI         string `json:"uri"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Thumb       string `json:"thumb,omitempty"`
}

// EmbedRecord is a quoted record view. For recordWithMedia embeds the view
// record sits one level deeper under Record.
type EmbedRecord struct {
	Author *Author      `json:"author,omitempty"`
	Record *EmbedRecord `json:"record,omitempty"`
	Type   string       `json:"$type,omitempty"`
	URI    string       `json:"uri,omitempty"`
}

// QuotedRecord returns the innermost record view of a record or
// recordWithMedia embed, or nil when the embed quotes nothing.
func (e *Embed) QuotedRecord() *EmbedRecord {
	if e == nil || e.Record == nil {
		return nil
	}
	if e.Record.Record != nil {
		return e.Record.Record
	}
	return e.Record
}

// HasForeignLabel reports whether any label was applied by someone other
// than the post's author.
func (p *PostView) HasForeignLabel() bool {
	for _, label := range p.Labels {
		if label.Src != p.Author.DID {
			return true
		}
	}
	return false
}

// CreatedTime parses the record's createdAt timestamp.
func (p *PostView) CreatedTime() (time.Time, bool) {
	return ParseTimestamp(p.Record.CreatedAt)
}

// ParseTimestamp parses an atproto datetime, accepting the common
// non-conformant variants clients emit. It reports false when raw is empty or
// unparsable.
func ParseTimestamp(raw string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, false
	}
	if dt, err := syntax.ParseDatetimeLenient(raw); err == nil {
		return dt.Time(), true
	}
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// RecordKey returns the last path segment of an AT-URI, or "" when there is none.
func RecordKey(uri string) string {
	if uri == "" {
		return ""
	}
	if parsed, err := syntax.ParseATURI(uri); err == nil {
		if rkey := parsed.RecordKey().String(); rkey != "" {
			return rkey
		}
	}
	idx := strings.LastIndex(uri, "/")
	return uri[idx+1:]
}
