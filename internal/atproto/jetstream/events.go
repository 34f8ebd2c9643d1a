// Package jetstream subscribes to the Bluesky Jetstream firehose and drops
// cached threads that receive new or deleted replies.
package jetstream

import "encoding/json"

// JetstreamEvent represents an event from the Jetstream firehose
// Jetstream documentation: https://docs.bsky.app/docs/advanced-guides/jetstream
type JetstreamEvent struct {
	Commit *CommitEvent `json:"commit,omitempty"`
	Did    string       `json:"did"`
	Kind   string       `json:"kind"` // "account", "commit", "identity"
	TimeUS int64        `json:"time_us"`
}

// CommitEvent is a record create, update or delete in one repository
type CommitEvent struct {
	Record     json.RawMessage `json:"record,omitempty"`
	Rev        string          `json:"rev"`
	Operation  string          `json:"operation"` // "create", "update", "delete"
	Collection string          `json:"collection"`
	RKey       string          `json:"rkey"`
	CID        string          `json:"cid,omitempty"`
}

// postRecord is the subset of app.bsky.feed.post needed to find the thread
type postRecord struct {
	Reply *struct {
		Root   strongRef `json:"root"`
		Parent strongRef `json:"parent"`
	} `json:"reply,omitempty"`
}

type strongRef struct {
	URI string `json:"uri"`
	CID string `json:"cid"`
}
