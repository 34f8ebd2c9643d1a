package threads

import (
	"log/slog"

	"github.com/google/uuid"
)

// Variant identifies which node kind a flattened entry came from.
type Variant string

const (
	VariantThreadPost Variant = "threadViewPost"
	VariantBlocked    Variant = "blockedPost"
	VariantNotFound   Variant = "notFoundPost"
)

const placeholderPrefix = "placeholder-"

// RootGroupKey identifies the top-level reply an entry descends from.
type RootGroupKey struct {
	CreatedAt string `json:"createdAt"`
	URI       string `json:"uri"`
}

// FlatComment is one entry of a flattened thread.
// Post is set only for VariantThreadPost.
type FlatComment struct {
	Post      *PostView     `json:"post,omitempty"`
	RootGroup *RootGroupKey `json:"rootGroup,omitempty"`
	Variant   Variant       `json:"variant"`
	URI       string        `json:"uri"`
	Depth     int           `json:"depth"`
}

type flattenConfig struct {
	logger        *slog.Logger
	placeholderID func() string
	filterLabeled bool
}

// FlattenOption configures Flatten.
type FlattenOption func(*flattenConfig)

// WithLabelFilter drops posts carrying a label applied by anyone other than
// the post's author. Their replies are still visited.
func WithLabelFilter(enabled bool) FlattenOption {
	return func(c *flattenConfig) {
		c.filterLabeled = enabled
	}
}

// WithFlattenLogger sets the logger skipped nodes are reported to.
func WithFlattenLogger(logger *slog.Logger) FlattenOption {
	return func(c *flattenConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Flatten walks the tree below root depth-first and returns every descendant
// in pre-order. The root itself is never emitted; its direct replies have
// depth 1.
//
// Each entry carries the RootGroupKey of the depth-1 reply it descends from.
// Placeholders and payload-less nodes pass their inherited key down unchanged.
func Flatten(root PostNode, opts ...FlattenOption) []FlatComment {
	cfg := &flattenConfig{
		logger:        slog.Default(),
		placeholderID: func() string { return placeholderPrefix + uuid.NewString() },
	}
	for _, opt := range opts {
		opt(cfg)
	}

	out := make([]FlatComment, 0)
	if isNilNode(root) {
		return out
	}
	cfg.walkChildren(root.Children(), 1, nil, &out)
	return out
}

func (c *flattenConfig) walkChildren(children []PostNode, depth int, group *RootGroupKey, out *[]FlatComment) {
	for _, child := range children {
		c.walk(child, depth, group, out)
	}
}

func (c *flattenConfig) walk(node PostNode, depth int, group *RootGroupKey, out *[]FlatComment) {
	if isNilNode(node) {
		return
	}

	switch n := node.(type) {
	case *ThreadPost:
		if n.Post == nil {
			c.logger.Debug("skipping thread post without payload", "depth", depth)
			c.walkChildren(n.Replies, depth+1, group, out)
			return
		}
		if depth == 1 {
			group = &RootGroupKey{CreatedAt: n.Post.Record.CreatedAt, URI: n.Post.URI}
		}
		if c.filterLabeled && n.Post.HasForeignLabel() {
			c.logger.Debug("hiding labeled post", "uri", n.Post.URI)
		} else {
			*out = append(*out, FlatComment{
				Variant:   VariantThreadPost,
				URI:       n.Post.URI,
				Depth:     depth,
				Post:      n.Post,
				RootGroup: group,
			})
		}
		c.walkChildren(n.Replies, depth+1, group, out)

	case *BlockedPost:
		*out = append(*out, c.placeholder(VariantBlocked, n.URI, depth, group))
		c.walkChildren(n.Replies, depth+1, group, out)

	case *NotFoundPost:
		*out = append(*out, c.placeholder(VariantNotFound, n.URI, depth, group))
		c.walkChildren(n.Replies, depth+1, group, out)

	case *UnknownNode:
		c.logger.Debug("skipping unknown thread node", "type", n.Type, "depth", depth)
		c.walkChildren(n.Replies, depth+1, group, out)
	}
}

func (c *flattenConfig) placeholder(variant Variant, uri string, depth int, group *RootGroupKey) FlatComment {
	if uri == "" {
		uri = c.placeholderID()
	}
	return FlatComment{Variant: variant, URI: uri, Depth: depth, RootGroup: group}
}

// isNilNode catches both a nil interface and a typed nil pointer.
func isNilNode(node PostNode) bool {
	switch n := node.(type) {
	case nil:
		return true
	case *ThreadPost:
		return n == nil
	case *BlockedPost:
		return n == nil
	case *NotFoundPost:
		return n == nil
	case *UnknownNode:
		return n == nil
	}
	return false
}
