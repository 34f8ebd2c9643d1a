package threads

import "time"

// Thread is one loaded thread: the decoded root and its flattened replies.
type Thread struct {
	FetchedAt time.Time     `json:"fetchedAt"`
	Root      *ThreadPost   `json:"-"`
	URI       string        `json:"uri"`
	Comments  []FlatComment `json:"comments"`
}

// RootPost is the post the thread hangs off. It is never nil for a Thread
// produced by DecodeThreadResponse.
func (t *Thread) RootPost() *PostView {
	if t == nil || t.Root == nil {
		return nil
	}
	return t.Root.Post
}

// NewThread flattens root into a Thread.
func NewThread(uri string, root *ThreadPost, fetchedAt time.Time, opts ...FlattenOption) *Thread {
	return &Thread{
		URI:       uri,
		Root:      root,
		Comments:  Flatten(root, opts...),
		FetchedAt: fetchedAt,
	}
}
