// Package commentview turns flattened thread entries into render-ready view
// models shared by the HTML widget, the JSON API and the terminal client.
package commentview

import (
	"html/template"
	"log/slog"
	"strings"
	"time"

	"Skythread/internal/core/display"
	"Skythread/internal/core/richtext"
	"Skythread/internal/core/threads"
)

const (
	// DefaultAppBaseURL is the web client permalinks point at.
	DefaultAppBaseURL = "https://bsky.app"

	unknownUser = "Unknown User"
)

// ViewKind tells a renderer which shape a CommentView has.
type ViewKind string

const (
	KindComment  ViewKind = "comment"
	KindBlocked  ViewKind = "blocked"
	KindNotFound ViewKind = "notFound"
	KindError    ViewKind = "error"
)

// Notices shown in place of a comment body.
const (
	NoticeBlocked      = "Blocked Post"
	NoticeNotFound     = "Post Not Found"
	NoticeDisplayError = "Error displaying comment."
	NoticeRenderError  = "Error rendering comment details."
)

// CommentView is one rendered entry. For anything but KindComment only Kind,
// Variant, URI, Depth and Notice are set.
type CommentView struct {
	Author    *AuthorView     `json:"author,omitempty"`
	Embed     *EmbedSummary   `json:"embed,omitempty"`
	Counters  *Counters       `json:"counters,omitempty"`
	Kind      ViewKind        `json:"kind"`
	Variant   threads.Variant `json:"variant"`
	URI       string          `json:"uri"`
	Notice    string          `json:"notice,omitempty"`
	CreatedAt string          `json:"createdAt,omitempty"`
	Timestamp string          `json:"timestamp,omitempty"`
	Body      template.HTML   `json:"body,omitempty"`
	Permalink string          `json:"permalink,omitempty"`
	Spans     []richtext.Span `json:"spans,omitempty"`
	Depth     int             `json:"depth"`
}

// AuthorView is the display identity of a comment author.
type AuthorView struct {
	DID         string `json:"did"`
	Handle      string `json:"handle,omitempty"`
	DisplayName string `json:"displayName"`
	Avatar      string `json:"avatar,omitempty"`
	ProfileURL  string `json:"profileUrl"`
}

// Counter is a raw count plus its formatted rendition.
type Counter struct {
	Display string `json:"display"`
	Count   int    `json:"count"`
}

// Counters are the per-comment engagement numbers.
type Counters struct {
	Likes   Counter `json:"likes"`
	Reposts Counter `json:"reposts"`
	Replies Counter `json:"replies"`
	Quotes  Counter `json:"quotes"`
}

// Builder converts thread data into view models.
type Builder struct {
	segmenter     *richtext.Segmenter
	location      *time.Location
	logger        *slog.Logger
	appBaseURL    string
	defaultAvatar string
}

// Option configures a Builder.
type Option func(*Builder)

// WithAppBaseURL sets the web client used for permalinks and profile links.
func WithAppBaseURL(base string) Option {
	return func(b *Builder) {
		if base != "" {
			b.appBaseURL = base
		}
	}
}

// WithLocation sets the zone timestamps are rendered in.
func WithLocation(loc *time.Location) Option {
	return func(b *Builder) {
		if loc != nil {
			b.location = loc
		}
	}
}

// WithSegmenter overrides the rich-text segmenter.
func WithSegmenter(s *richtext.Segmenter) Option {
	return func(b *Builder) {
		if s != nil {
			b.segmenter = s
		}
	}
}

// WithDefaultAvatar sets the avatar used for authors without one.
func WithDefaultAvatar(url string) Option {
	return func(b *Builder) {
		b.defaultAvatar = url
	}
}

// WithLogger sets the builder logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Builder) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// NewBuilder creates a Builder. Unless overridden, links point at bsky.app
// and timestamps render in UTC.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{
		location:   time.UTC,
		logger:     slog.Default(),
		appBaseURL: DefaultAppBaseURL,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.segmenter == nil {
		b.segmenter = richtext.NewSegmenter(
			richtext.WithProfileURLBase(strings.TrimSuffix(b.appBaseURL, "/")+"/profile/"),
			richtext.WithHashtagURLBase(strings.TrimSuffix(b.appBaseURL, "/")+"/hashtag/"),
			richtext.WithLogger(b.logger),
		)
	}
	return b
}

// Build renders a single flattened entry.
func (b *Builder) Build(c threads.FlatComment) CommentView {
	view := CommentView{Variant: c.Variant, URI: c.URI, Depth: c.Depth}

	switch c.Variant {
	case threads.VariantBlocked:
		view.Kind, view.Notice = KindBlocked, NoticeBlocked
		return view
	case threads.VariantNotFound:
		view.Kind, view.Notice = KindNotFound, NoticeNotFound
		return view
	}

	post := c.Post
	if c.Variant != threads.VariantThreadPost || post == nil {
		b.logger.Warn("cannot display comment entry", "variant", c.Variant, "uri", c.URI)
		view.Kind, view.Notice = KindError, NoticeDisplayError
		return view
	}
	if post.Author.DID == "" || post.Record.CreatedAt == "" || post.URI == "" {
		b.logger.Warn("comment is missing essential fields", "uri", post.URI)
		view.Kind, view.Notice = KindError, NoticeRenderError
		return view
	}

	spans := b.segmenter.Segment(post.Record.Text, post.Record.Facets)

	view.Kind = KindComment
	view.Author = b.author(post.Author)
	view.CreatedAt = post.Record.CreatedAt
	view.Timestamp = FormatTimestamp(post.Record.CreatedAt, b.location)
	view.Spans = spans
	view.Body = richtext.RenderHTML(spans)
	view.Embed = b.summarizeEmbed(post.Embed)
	view.Counters = countersOf(post)
	view.Permalink = Permalink(b.appBaseURL, post.Author.DID, post.URI)
	return view
}

func (b *Builder) author(a threads.Author) *AuthorView {
	view := &AuthorView{
		DID:        a.DID,
		Handle:     a.Handle,
		ProfileURL: ProfileURL(b.appBaseURL, a.DID),
		Avatar:     b.defaultAvatar,
	}
	switch {
	case a.DisplayName != nil && *a.DisplayName != "":
		view.DisplayName = *a.DisplayName
	case a.Handle != "":
		view.DisplayName = a.Handle
	default:
		view.DisplayName = unknownUser
	}
	if a.Avatar != nil && *a.Avatar != "" {
		view.Avatar = *a.Avatar
	}
	return view
}

func countersOf(p *threads.PostView) *Counters {
	counter := func(n int) Counter {
		return Counter{Count: n, Display: FormatCount(n)}
	}
	return &Counters{
		Likes:   counter(p.LikeCount),
		Reposts: counter(p.RepostCount),
		Replies: counter(p.ReplyCount),
		Quotes:  counter(p.QuoteCount),
	}
}

// Pagination is the reveal-more affordance.
type Pagination struct {
	HasMore       bool `json:"hasMore"`
	NextBatchSize int  `json:"nextBatchSize"`
	Revealed      int  `json:"revealed"`
	Total         int  `json:"total"`
}

// SortOption is one entry of a sort menu.
type SortOption struct {
	Value    display.SortMode `json:"value"`
	Label    string           `json:"label"`
	Selected bool             `json:"selected"`
}

// Empty-list messages.
const (
	EmptyNoMatch   = "No comments match your search."
	EmptyFiltered  = "No comments available based on current filters."
	EmptyNoReplies = "No comments yet. Be the first to reply on Bluesky!"
	EmptyNothing   = "No comments to display."
)

// PageView is everything needed to render one state of a thread.
type PageView struct {
	Stats        Stats         `json:"stats"`
	State        display.State `json:"state"`
	URI          string        `json:"uri"`
	JoinURL      string        `json:"joinUrl,omitempty"`
	EmptyMessage string        `json:"emptyMessage,omitempty"`
	Comments     []CommentView `json:"comments"`
	SortOptions  []SortOption  `json:"sortOptions"`
	Pagination   Pagination    `json:"pagination"`
}

// BuildPage renders the revealed entries of page together with the parent
// stats, pagination and join-conversation affordances. thread may be nil when
// nothing is loaded.
func (b *Builder) BuildPage(thread *threads.Thread, page display.Page) PageView {
	view := PageView{
		State:    page.State,
		Comments: make([]CommentView, 0, len(page.Revealed)),
		Pagination: Pagination{
			HasMore:       page.HasMore,
			NextBatchSize: page.NextBatchSize,
			Revealed:      len(page.Revealed),
			Total:         len(page.Ordered),
		},
		SortOptions: sortOptions(page.State.SortMode),
	}

	root := thread.RootPost()
	if thread != nil {
		view.URI = thread.URI
	}
	view.Stats = b.Stats(root)
	if root != nil {
		view.JoinURL = Permalink(b.appBaseURL, root.Author.DID, root.URI)
	}

	for _, c := range page.Revealed {
		view.Comments = append(view.Comments, b.Build(c))
	}

	if len(view.Comments) == 0 {
		view.EmptyMessage = emptyMessage(thread, page)
	}
	return view
}

func emptyMessage(thread *threads.Thread, page display.Page) string {
	switch {
	case page.State.SearchTerm != "":
		return EmptyNoMatch
	case thread != nil && len(thread.Comments) > 0 && len(page.Ordered) == 0:
		return EmptyFiltered
	case thread != nil && len(thread.Comments) == 0:
		return EmptyNoReplies
	default:
		return EmptyNothing
	}
}

func sortOptions(selected display.SortMode) []SortOption {
	modes := display.SortModes()
	out := make([]SortOption, len(modes))
	for i, m := range modes {
		out[i] = SortOption{Value: m, Label: m.Label(), Selected: m == selected}
	}
	return out
}
