package threadsession

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Skythread/internal/core/display"
	"Skythread/internal/core/threads"
)

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// blockingLoader hands out one gate per ref; LoadThread waits on the gate.
type blockingLoader struct {
	mu      sync.Mutex
	gates   map[string]chan result
	started chan string
	ctxs    map[string]context.Context
}

type result struct {
	thread *threads.Thread
	err    error
}

func newBlockingLoader() *blockingLoader {
	return &blockingLoader{
		gates:   make(map[string]chan result),
		started: make(chan string, 10),
		ctxs:    make(map[string]context.Context),
	}
}

func (l *blockingLoader) gate(ref string) chan result {
	l.mu.Lock()
	defer l.mu.Unlock()
	g, ok := l.gates[ref]
	if !ok {
		g = make(chan result, 1)
		l.gates[ref] = g
	}
	return g
}

func (l *blockingLoader) LoadThread(ctx context.Context, ref string) (*threads.Thread, error) {
	l.mu.Lock()
	l.ctxs[ref] = ctx
	l.mu.Unlock()
	l.started <- ref

	r := <-l.gate(ref)
	return r.thread, r.err
}

func (l *blockingLoader) ctx(ref string) context.Context {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ctxs[ref]
}

// staticLoader returns a fixed thread or error immediately.
type staticLoader struct {
	thread *threads.Thread
	err    error
}

func (l staticLoader) LoadThread(ctx context.Context, ref string) (*threads.Thread, error) {
	return l.thread, l.err
}

func buildThread(uri string, n int) *threads.Thread {
	replies := make([]threads.PostNode, n)
	for i := range replies {
		replies[i] = &threads.ThreadPost{Post: &threads.PostView{
			URI:    fmt.Sprintf("%s/reply%02d", uri, i),
			Author: threads.Author{DID: "did:plc:x", Handle: "x.test"},
			Record: threads.Record{
				Text:      fmt.Sprintf("reply number %d", i),
				CreatedAt: fmt.Sprintf("2024-01-01T00:%02d:00Z", i),
			},
		}}
	}
	root := &threads.ThreadPost{
		Post:    &threads.PostView{URI: uri, Record: threads.Record{CreatedAt: "2024-01-01T00:00:00Z"}},
		Replies: replies,
	}
	return threads.NewThread(uri, root, time.Now())
}

func waitStarted(t *testing.T, l *blockingLoader, want string) {
	t.Helper()
	select {
	case got := <-l.started:
		require.Equal(t, want, got)
	case <-time.After(2 * time.Second):
		t.Fatalf("load of %s never started", want)
	}
}

func TestSession_LoadAndPaginate(t *testing.T) {
	s := New(staticLoader{thread: buildThread("at://a", 45)},
		WithPaging(display.Paging{InitialPageSize: 20, PageIncrement: 30}),
		WithLogger(quietLogger))

	page, err := s.Load(context.Background(), "at://a")
	require.NoError(t, err)
	assert.Len(t, page.Revealed, 20)
	assert.True(t, page.HasMore)
	assert.False(t, s.Loading())
	assert.NotNil(t, s.Thread())

	page = s.RevealMore()
	assert.Len(t, page.Revealed, 45)
	assert.False(t, page.HasMore)

	page = s.RevealMore()
	assert.Len(t, page.Revealed, 45)
}

func TestSession_SearchResetsReveal(t *testing.T) {
	s := New(staticLoader{thread: buildThread("at://a", 60)}, WithLogger(quietLogger))
	_, err := s.Load(context.Background(), "at://a")
	require.NoError(t, err)

	page := s.RevealMore()
	require.Len(t, page.Revealed, 50)

	page = s.SetSearchTerm("reply number")
	assert.Len(t, page.Revealed, display.DefaultInitialPageSize)
	assert.Len(t, page.Ordered, 60)

	page = s.SetSearchTerm("number 42")
	require.Len(t, page.Ordered, 1)
	assert.Equal(t, "at://a/reply42", page.Ordered[0].URI)
}

func TestSession_SortMode(t *testing.T) {
	s := New(staticLoader{thread: buildThread("at://a", 3)}, WithLogger(quietLogger))
	_, err := s.Load(context.Background(), "at://a")
	require.NoError(t, err)

	page := s.SetSortMode(display.SortNewest)
	require.Len(t, page.Ordered, 3)
	assert.Equal(t, "at://a/reply02", page.Ordered[0].URI)
	assert.Equal(t, display.SortNewest, s.Page().State.SortMode)
}

func TestSession_LoadFailureClearsState(t *testing.T) {
	loader := &switchLoader{thread: buildThread("at://a", 5)}
	s := New(loader, WithLogger(quietLogger))

	_, err := s.Load(context.Background(), "at://a")
	require.NoError(t, err)
	s.SetSearchTerm("reply")

	loader.err = errors.New("upstream exploded")
	page, err := s.Load(context.Background(), "at://b")

	require.Error(t, err)
	assert.Equal(t, err, s.Err())
	assert.Nil(t, s.Thread())
	assert.Empty(t, page.Revealed)
	assert.Equal(t, "", page.State.SearchTerm)
}

type switchLoader struct {
	thread *threads.Thread
	err    error
}

func (l *switchLoader) LoadThread(ctx context.Context, ref string) (*threads.Thread, error) {
	if l.err != nil {
		return nil, l.err
	}
	return l.thread, nil
}

func TestSession_SupersededLoadIsDiscarded(t *testing.T) {
	loader := newBlockingLoader()
	s := New(loader, WithLogger(quietLogger))

	firstDone := make(chan error, 1)
	go func() {
		_, err := s.Load(context.Background(), "at://first")
		firstDone <- err
	}()
	waitStarted(t, loader, "at://first")
	assert.True(t, s.Loading())

	secondDone := make(chan error, 1)
	go func() {
		_, err := s.Load(context.Background(), "at://second")
		secondDone <- err
	}()
	waitStarted(t, loader, "at://second")

	// starting the second load cancels the first
	assert.ErrorIs(t, loader.ctx("at://first").Err(), context.Canceled)

	loader.gate("at://second") <- result{thread: buildThread("at://second", 2)}
	require.NoError(t, <-secondDone)

	loader.gate("at://first") <- result{thread: buildThread("at://first", 9)}
	assert.ErrorIs(t, <-firstDone, ErrSuperseded)

	require.NotNil(t, s.Thread())
	assert.Equal(t, "at://second", s.Thread().URI)
	assert.Len(t, s.Page().Ordered, 2)
	assert.False(t, s.Loading())
}

func TestSession_LoadResetsBeforeFetching(t *testing.T) {
	loader := newBlockingLoader()
	s := New(loader, WithLogger(quietLogger))

	loader.gate("at://a") <- result{thread: buildThread("at://a", 3)}
	_, err := s.Load(context.Background(), "at://a")
	require.NoError(t, err)
	waitStarted(t, loader, "at://a")

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = s.Load(context.Background(), "at://b")
	}()
	waitStarted(t, loader, "at://b")

	// the old thread is gone while the new one is still in flight
	assert.Nil(t, s.Thread())
	assert.Empty(t, s.Page().Ordered)

	loader.gate("at://b") <- result{err: errors.New("boom")}
	<-done
}

func TestSession_EmptyBeforeFirstLoad(t *testing.T) {
	s := New(staticLoader{})

	page := s.Page()
	assert.Empty(t, page.Revealed)
	assert.False(t, page.HasMore)
	assert.NoError(t, s.Err())
}
