// Package threadsession owns the single active thread of one viewer: it
// serializes loads, discards superseded results and re-runs the display
// pipeline on every search, sort or reveal change.
package threadsession

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"Skythread/internal/core/display"
	"Skythread/internal/core/threads"
)

// ErrSuperseded is returned by Load when a newer Load started before it finished.
var ErrSuperseded = errors.New("load superseded by a newer request")

// Loader retrieves and flattens a thread.
type Loader interface {
	LoadThread(ctx context.Context, ref string) (*threads.Thread, error)
}

// Session is safe for concurrent use; at most one load is active at a time.
type Session struct {
	loader Loader
	logger *slog.Logger
	cancel context.CancelFunc
	thread *threads.Thread
	err    error
	state  display.State
	paging display.Paging

	generation uint64
	mu         sync.Mutex
	loading    bool
}

// Option configures a Session.
type Option func(*Session)

// WithPaging sets the initial page size and increment.
func WithPaging(paging display.Paging) Option {
	return func(s *Session) {
		s.paging = paging
	}
}

// WithLogger sets the session logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates an empty session.
func New(loader Loader, opts ...Option) *Session {
	s := &Session{
		loader: loader,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.state = display.NewState(s.paging)
	return s
}

// Load replaces the active thread. All prior state is cleared before the
// loader is called, and any in-flight load is cancelled. If another Load
// starts before this one returns, the result is dropped and ErrSuperseded is
// returned.
func (s *Session) Load(ctx context.Context, ref string) (display.Page, error) {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.generation++
	gen := s.generation
	loadCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.thread = nil
	s.err = nil
	s.state = display.NewState(s.paging)
	s.loading = true
	s.mu.Unlock()

	thread, err := s.loader.LoadThread(loadCtx, ref)

	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.generation {
		cancel()
		s.logger.Debug("discarding superseded thread load", "ref", ref)
		return display.Page{}, ErrSuperseded
	}

	cancel()
	s.cancel = nil
	s.loading = false

	if err != nil {
		s.err = err
		s.logger.Warn("thread load failed", "ref", ref, "error", err)
		return s.pageLocked(), err
	}

	s.thread = thread
	s.logger.Debug("thread loaded", "uri", thread.URI, "comments", len(thread.Comments))
	return s.pageLocked(), nil
}

// SetSearchTerm filters the active thread by term.
func (s *Session) SetSearchTerm(term string) display.Page {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = s.state.WithSearchTerm(term)
	return s.pageLocked()
}

// SetSortMode reorders the active thread.
func (s *Session) SetSortMode(mode display.SortMode) display.Page {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = s.state.WithSortMode(mode)
	return s.pageLocked()
}

// RevealMore exposes the next batch of comments.
func (s *Session) RevealMore() display.Page {
	s.mu.Lock()
	defer s.mu.Unlock()
	current := s.pageLocked()
	s.state = s.state.RevealMore(len(current.Ordered))
	return s.pageLocked()
}

// Page recomputes the current page without changing state.
func (s *Session) Page() display.Page {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pageLocked()
}

// Thread returns the active thread, or nil while loading or after a failure.
func (s *Session) Thread() *threads.Thread {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.thread
}

// Err returns the error of the last completed load.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Loading reports whether a load is in flight.
func (s *Session) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

func (s *Session) pageLocked() display.Page {
	var comments []threads.FlatComment
	if s.thread != nil {
		comments = s.thread.Comments
	}
	return display.Compute(comments, s.state)
}
