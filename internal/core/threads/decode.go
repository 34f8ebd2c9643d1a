package threads

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// wireNode mirrors the union members of app.bsky.feed.defs#threadViewPost
// replies. The whole tree is decoded by a single json.Unmarshal; only the
// post payload has its own UnmarshalJSON, so a bad payload only loses the
// payload.
type wireNode struct {
	Type    string      `json:"$type"`
	URI     string      `json:"uri"`
	Post    wirePost    `json:"post"`
	Replies []*wireNode `json:"replies"`
}

// wirePost decodes a post view leniently. present is set for any non-null
// value, even one that failed to decode.
type wirePost struct {
	view    *PostView
	present bool
}

func (p *wirePost) UnmarshalJSON(data []byte) error {
	if isNull(data) {
		return nil
	}
	p.present = true
	var post PostView
	if err := json.Unmarshal(data, &post); err != nil {
		return nil
	}
	p.view = &post
	return nil
}

// DecodeThreadResponse decodes an app.bsky.feed.getPostThread response body.
// The root must be a thread post carrying a post payload.
func DecodeThreadResponse(data []byte) (*ThreadPost, error) {
	var doc struct {
		Thread *wireNode `json:"thread"`
	}
	if err := unmarshalLenient(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedThread, err)
	}
	if doc.Thread == nil {
		return nil, fmt.Errorf("%w: missing thread", ErrMalformedThread)
	}

	root, ok := doc.Thread.node().(*ThreadPost)
	if !ok {
		return nil, fmt.Errorf("%w: root is not a thread post", ErrMalformedThread)
	}
	if root.Post == nil {
		return nil, fmt.Errorf("%w: root has no post", ErrMalformedThread)
	}
	return root, nil
}

// DecodeNode decodes a single thread node and its replies. It never fails:
// anything that is not a recognizable node becomes an *UnknownNode.
func DecodeNode(raw json.RawMessage) PostNode {
	var w wireNode
	if err := unmarshalLenient(raw, &w); err != nil {
		return &UnknownNode{}
	}
	return w.node()
}

// unmarshalLenient reports syntax errors only. Values of the wrong JSON type
// are left zero, which turns a reply that is not an object into an unknown
// node.
func unmarshalLenient(data []byte, v any) error {
	err := json.Unmarshal(data, v)
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return nil
	}
	return err
}

func (w *wireNode) node() PostNode {
	replies := make([]PostNode, 0, len(w.Replies))
	for _, r := range w.Replies {
		if r == nil {
			continue
		}
		replies = append(replies, r.node())
	}

	switch w.Type {
	case TypeThreadViewPost:
		return &ThreadPost{Post: w.Post.view, Replies: replies}
	case TypeBlockedPost:
		return &BlockedPost{URI: w.URI, Replies: replies}
	case TypeNotFoundPost:
		return &NotFoundPost{URI: w.URI, Replies: replies}
	case "":
		// some serializers drop $type on the open union; a post payload is
		// enough to identify a thread post
		if w.Post.present {
			return &ThreadPost{Post: w.Post.view, Replies: replies}
		}
	}
	return &UnknownNode{Type: w.Type, URI: w.URI, Replies: replies}
}

func isNull(raw []byte) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}
