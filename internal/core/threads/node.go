package threads

// Thread node lexicon types.
const (
	TypeThreadViewPost = "app.bsky.feed.defs#threadViewPost"
	TypeBlockedPost    = "app.bsky.feed.defs#blockedPost"
	TypeNotFoundPost   = "app.bsky.feed.defs#notFoundPost"
)

// PostNode is one node of a thread tree. The set of implementations is closed:
// *ThreadPost, *BlockedPost, *NotFoundPost and *UnknownNode.
type PostNode interface {
	// NodeURI is the AT-URI the node refers to, "" when unknown.
	NodeURI() string
	// Children are the direct replies in upstream order.
	Children() []PostNode

	isPostNode()
}

// ThreadPost is a visible post. Post is nil when the payload was missing or
// could not be decoded, e.g. for a deleted record.
type ThreadPost struct {
	Post    *PostView
	Replies []PostNode
}

// BlockedPost stands in for a post hidden by a block relationship.
type BlockedPost struct {
	URI     string
	Replies []PostNode
}

// NotFoundPost stands in for a post that no longer exists.
type NotFoundPost struct {
	URI     string
	Replies []PostNode
}

// UnknownNode is any node whose $type is not recognized.
type UnknownNode struct {
	Type    string
	URI     string
	Replies []PostNode
}

func (n *ThreadPost) NodeURI() string {
	if n.Post == nil {
		return ""
	}
	return n.Post.URI
}

func (n *ThreadPost) Children() []PostNode { return n.Replies }
func (n *ThreadPost) isPostNode()          {}

func (n *BlockedPost) NodeURI() string      { return n.URI }
func (n *BlockedPost) Children() []PostNode { return n.Replies }
func (n *BlockedPost) isPostNode()          {}

func (n *NotFoundPost) NodeURI() string      { return n.URI }
func (n *NotFoundPost) Children() []PostNode { return n.Replies }
func (n *NotFoundPost) isPostNode()          {}

func (n *UnknownNode) NodeURI() string      { return n.URI }
func (n *UnknownNode) Children() []PostNode { return n.Replies }
func (n *UnknownNode) isPostNode()          {}
