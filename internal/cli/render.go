// Package cli renders comment pages for the terminal and drives the
// interactive thread browser.
package cli

import (
	"fmt"
	"io"
	"strings"

	"Skythread/internal/core/commentview"
	"Skythread/internal/core/richtext"
)

// Renderer writes page views as styled terminal text.
type Renderer struct {
	w io.Writer
}

// NewRenderer creates a Renderer writing to w.
func NewRenderer(w io.Writer) *Renderer {
	return &Renderer{w: w}
}

// RenderPage writes the stats header, the revealed comments and the
// pagination footer.
func (r *Renderer) RenderPage(view commentview.PageView) error {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Thread " + view.URI))
	b.WriteString("\n")
	b.WriteString(statsStyle.Render(statsLine(view.Stats)))
	b.WriteString("\n")
	if view.State.SearchTerm != "" {
		fmt.Fprintf(&b, "search: %q  ", view.State.SearchTerm)
	}
	fmt.Fprintf(&b, "sort: %s\n\n", view.State.SortMode.Label())

	if len(view.Comments) == 0 {
		b.WriteString(noticeStyle.Render(view.EmptyMessage))
		b.WriteString("\n")
	}
	for _, c := range view.Comments {
		b.WriteString(renderComment(c))
		b.WriteString("\n")
	}

	b.WriteString(footerStyle.Render(footer(view)))
	b.WriteString("\n")

	_, err := io.WriteString(r.w, b.String())
	return err
}

// RenderError writes a failed load.
func (r *Renderer) RenderError(err error) error {
	_, werr := fmt.Fprintln(r.w, errorStyle.Render("Error loading comments: "+err.Error()))
	return werr
}

func statsLine(stats commentview.Stats) string {
	if len(stats.Items) == 0 {
		return stats.Message
	}
	parts := make([]string, len(stats.Items))
	for i, s := range stats.Items {
		parts[i] = s.Display + " " + s.Label
	}
	return strings.Join(parts, " · ")
}

func renderComment(c commentview.CommentView) string {
	if c.Kind != commentview.KindComment {
		return indentStyle(c.Depth).Render(noticeStyle.Render("[" + c.Notice + "]"))
	}

	var b strings.Builder
	b.WriteString(authorStyle.Render(c.Author.DisplayName))
	if c.Author.Handle != "" {
		b.WriteString(" ")
		b.WriteString(handleStyle.Render("@" + c.Author.Handle))
	}
	b.WriteString(" ")
	b.WriteString(timestampStyle.Render(c.Timestamp))
	b.WriteString("\n")
	b.WriteString(richtext.PlainText(c.Spans))

	if c.Embed != nil {
		if line := embedLine(c.Embed); line != "" {
			b.WriteString("\n")
			b.WriteString(embedStyle.Render(line))
		}
	}
	if c.Counters != nil {
		b.WriteString("\n")
		b.WriteString(countersStyle.Render(fmt.Sprintf("♥ %s  ⟲ %s  ↩ %s  ❝ %s",
			c.Counters.Likes.Display, c.Counters.Reposts.Display,
			c.Counters.Replies.Display, c.Counters.Quotes.Display)))
	}

	return indentStyle(c.Depth).Render(b.String())
}

func embedLine(e *commentview.EmbedSummary) string {
	switch e.Kind {
	case commentview.EmbedImages:
		if len(e.Images) == 1 {
			return "[1 image]"
		}
		return fmt.Sprintf("[%d images]", len(e.Images))
	case commentview.EmbedExternal:
		return "[link] " + e.External.Title + " <" + e.External.URI + ">"
	default:
		return "[" + e.Notice + "]"
	}
}

func footer(view commentview.PageView) string {
	p := view.Pagination
	if p.HasMore {
		return fmt.Sprintf("Showing %d of %d. Type 'more' to load %d more.", p.Revealed, p.Total, p.NextBatchSize)
	}
	return fmt.Sprintf("Showing %d of %d.", p.Revealed, p.Total)
}
