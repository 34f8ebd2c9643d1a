package comments

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"Skythread/internal/core/commentview"
	"Skythread/internal/core/display"
	"Skythread/internal/core/threads"
)

// maxRevealed bounds the reveal cursor accepted from clients
const maxRevealed = 10000

// ThreadLoader loads a thread by at:// URI or bsky.app URL
type ThreadLoader interface {
	LoadThread(ctx context.Context, ref string) (*threads.Thread, error)
}

// Request represents the query parameters of a comments page
type Request struct {
	Ref      string           `json:"uri"`                // Required: at:// URI or bsky.app URL of the root post
	Search   string           `json:"q,omitempty"`        // Optional: case-insensitive search term
	Sort     display.SortMode `json:"sort,omitempty"`     // Optional: sort mode (default: oldest)
	Revealed int              `json:"revealed,omitempty"` // Optional: reveal cursor carried across requests
}

// ParseRequest reads a Request from query parameters. uri wins over url
// when both are present.
func ParseRequest(query url.Values) (*Request, error) {
	req := &Request{
		Ref:    strings.TrimSpace(query.Get("uri")),
		Search: query.Get("q"),
	}
	if req.Ref == "" {
		req.Ref = strings.TrimSpace(query.Get("url"))
	}
	if req.Ref == "" {
		return nil, fmt.Errorf("%w: uri or url parameter is required", ErrInvalidRequest)
	}

	sort, err := display.ParseSortMode(query.Get("sort"))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	req.Sort = sort

	if raw := query.Get("revealed"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: revealed must be a valid integer", ErrInvalidRequest)
		}
		if n < 0 {
			return nil, fmt.Errorf("%w: revealed must be non-negative", ErrInvalidRequest)
		}
		req.Revealed = min(n, maxRevealed)
	}

	return req, nil
}

// PageRenderer loads a thread and renders one display state of it
type PageRenderer struct {
	loader  ThreadLoader
	builder *commentview.Builder
	paging  display.Paging
}

// NewPageRenderer creates a PageRenderer
func NewPageRenderer(loader ThreadLoader, builder *commentview.Builder, paging display.Paging) *PageRenderer {
	if builder == nil {
		builder = commentview.NewBuilder()
	}
	return &PageRenderer{loader: loader, builder: builder, paging: paging}
}

// Render loads req.Ref and renders the page described by the rest of req
func (p *PageRenderer) Render(ctx context.Context, req *Request) (*commentview.PageView, error) {
	thread, err := p.loader.LoadThread(ctx, req.Ref)
	if err != nil {
		return nil, err
	}

	state := display.NewState(p.paging).
		WithSearchTerm(req.Search).
		WithSortMode(req.Sort)
	if req.Revealed > 0 {
		state = state.WithRevealed(req.Revealed)
	}

	page := display.Compute(thread.Comments, state)
	view := p.builder.BuildPage(thread, page)
	return &view, nil
}
