package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Skythread/internal/core/commentview"
	"Skythread/internal/core/threads"
	"Skythread/internal/core/threadsession"
)

const rootURI = "at://did:plc:alice123/app.bsky.feed.post/3kroot000000a"

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type stubLoader struct {
	thread *threads.Thread
	err    error
	refs   []string
}

func (l *stubLoader) LoadThread(ctx context.Context, ref string) (*threads.Thread, error) {
	l.refs = append(l.refs, ref)
	return l.thread, l.err
}

func strPtr(s string) *string { return &s }

func testThread(n int) *threads.Thread {
	replies := make([]threads.PostNode, 0, n+1)
	for i := 0; i < n; i++ {
		replies = append(replies, &threads.ThreadPost{Post: &threads.PostView{
			URI:       fmt.Sprintf("at://did:plc:user%d/app.bsky.feed.post/3kreply%05d", i, i),
			Author:    threads.Author{DID: fmt.Sprintf("did:plc:user%d", i), Handle: fmt.Sprintf("user%d.test", i)},
			Record:    threads.Record{Text: fmt.Sprintf("reply number %d", i), CreatedAt: fmt.Sprintf("2024-01-01T00:%02d:00Z", i)},
			LikeCount: i,
		}})
	}
	replies = append(replies, &threads.ThreadPost{
		Post: &threads.PostView{
			URI:       "at://did:plc:bob/app.bsky.feed.post/3kpopular0000",
			Author:    threads.Author{DID: "did:plc:bob", Handle: "bob.test", DisplayName: strPtr("Bob")},
			Record:    threads.Record{Text: "popular <take>", CreatedAt: "2024-01-02T00:00:00Z"},
			LikeCount: 1500,
		},
		Replies: []threads.PostNode{&threads.BlockedPost{URI: "at://did:plc:eve/app.bsky.feed.post/3kblocked0000"}},
	})

	root := &threads.ThreadPost{
		Post: &threads.PostView{
			URI:        rootURI,
			Author:     threads.Author{DID: "did:plc:alice123", Handle: "alice.test"},
			Record:     threads.Record{Text: "root", CreatedAt: "2023-12-31T00:00:00Z"},
			LikeCount:  2,
			ReplyCount: n + 1,
		},
		Replies: replies,
	}
	return threads.NewThread(rootURI, root, time.Now())
}

func newTestREPL(loader *stubLoader, in string) (*REPL, *bytes.Buffer) {
	var out bytes.Buffer
	session := threadsession.New(loader, threadsession.WithLogger(quietLogger))
	builder := commentview.NewBuilder(commentview.WithLogger(quietLogger))
	return NewREPL(session, builder, strings.NewReader(in), &out), &out
}

func TestREPL_LoadRendersFirstPage(t *testing.T) {
	loader := &stubLoader{thread: testThread(25)}
	repl, out := newTestREPL(loader, "load "+rootURI+"\nquit\n")

	require.NoError(t, repl.Run(context.Background()))

	text := out.String()
	assert.Equal(t, []string{rootURI}, loader.refs)
	assert.Contains(t, text, "Thread "+rootURI)
	assert.Contains(t, text, "2 Likes")
	assert.Contains(t, text, "reply number 0")
	assert.Contains(t, text, "Showing 20 of 26. Type 'more' to load 6 more.")
	assert.NotContains(t, text, "reply number 24")
}

func TestREPL_SortSearchAndMore(t *testing.T) {
	loader := &stubLoader{thread: testThread(25)}
	repl, out := newTestREPL(loader, "")
	ctx := context.Background()

	_, err := repl.Exec(ctx, "load "+rootURI)
	require.NoError(t, err)

	out.Reset()
	_, err = repl.Exec(ctx, "sort likes")
	require.NoError(t, err)
	text := out.String()
	assert.Contains(t, text, "sort: Most Liked")
	assert.Contains(t, text, "1,500")
	assert.Contains(t, text, "popular <take>")
	assert.Less(t, strings.Index(text, "popular <take>"), strings.Index(text, "reply number 24"))

	out.Reset()
	_, err = repl.Exec(ctx, "search popular")
	require.NoError(t, err)
	text = out.String()
	assert.Contains(t, text, `search: "popular"`)
	assert.Contains(t, text, "Showing 1 of 1.")
	assert.NotContains(t, text, "reply number")

	out.Reset()
	_, err = repl.Exec(ctx, "search")
	require.NoError(t, err)
	_, err = repl.Exec(ctx, "more")
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Showing 26 of 26.")
}

func TestREPL_Errors(t *testing.T) {
	t.Run("no thread loaded", func(t *testing.T) {
		repl, out := newTestREPL(&stubLoader{}, "")
		quit, err := repl.Exec(context.Background(), "more")
		require.NoError(t, err)
		assert.False(t, quit)
		assert.Contains(t, out.String(), "no thread loaded")
	})

	t.Run("load failure", func(t *testing.T) {
		repl, out := newTestREPL(&stubLoader{err: errors.New("thread not found")}, "")
		_, err := repl.Exec(context.Background(), "load at://nope")
		require.NoError(t, err)
		assert.Contains(t, out.String(), "Error loading comments: thread not found")
	})

	t.Run("unknown sort", func(t *testing.T) {
		repl, out := newTestREPL(&stubLoader{thread: testThread(1)}, "")
		_, err := repl.Exec(context.Background(), "load "+rootURI)
		require.NoError(t, err)
		out.Reset()
		_, err = repl.Exec(context.Background(), "sort sideways")
		require.NoError(t, err)
		assert.Contains(t, out.String(), `unknown sort mode "sideways"`)
	})

	t.Run("unknown command", func(t *testing.T) {
		repl, out := newTestREPL(&stubLoader{thread: testThread(1)}, "")
		_, err := repl.Exec(context.Background(), "load "+rootURI)
		require.NoError(t, err)
		_, err = repl.Exec(context.Background(), "dance")
		require.NoError(t, err)
		assert.Contains(t, out.String(), `unknown command "dance"`)
	})
}

func TestREPL_QuitAndEOF(t *testing.T) {
	repl, _ := newTestREPL(&stubLoader{}, "help\nexit\nload never-reached\n")
	require.NoError(t, repl.Run(context.Background()))
	assert.Nil(t, repl.session.Thread())

	repl, out := newTestREPL(&stubLoader{}, "help\n")
	require.NoError(t, repl.Run(context.Background()))
	assert.Contains(t, out.String(), "load <url|at-uri>")
}

func TestIndentStyle(t *testing.T) {
	assert.Equal(t, "x", indentStyle(1).Render("x"))
	assert.Equal(t, "  x", indentStyle(2).Render("x"))
	assert.Equal(t, strings.Repeat(" ", 16)+"x", indentStyle(40).Render("x"))
}
