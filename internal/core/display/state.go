// Package display filters, orders and paginates a flattened thread. Every
// function in it is pure: the same comments and State always yield the same Page.
package display

import (
	"errors"
	"fmt"
	"strings"

	"Skythread/internal/core/richtext"
)

const (
	// DefaultInitialPageSize is the number of entries revealed after a reset.
	DefaultInitialPageSize = 20
	// DefaultPageIncrement is how many more entries RevealMore exposes.
	DefaultPageIncrement = 30
	// MaxSearchTermGraphemes caps the search term; longer input is truncated.
	MaxSearchTermGraphemes = 200
)

// SortMode selects the ordering of displayed comments.
type SortMode string

const (
	SortOldest  SortMode = "oldest"
	SortNewest  SortMode = "newest"
	SortLikes   SortMode = "likes"
	SortReposts SortMode = "reposts"
	SortQuotes  SortMode = "quotes"
	SortReplies SortMode = "replies"

	DefaultSortMode = SortOldest
)

// ErrUnknownSortMode is returned by ParseSortMode for unrecognized input.
var ErrUnknownSortMode = errors.New("unknown sort mode")

var sortModes = []SortMode{SortOldest, SortNewest, SortLikes, SortReposts, SortQuotes, SortReplies}

// SortModes lists every supported mode in menu order.
func SortModes() []SortMode {
	out := make([]SortMode, len(sortModes))
	copy(out, sortModes)
	return out
}

// ParseSortMode parses a mode name. The empty string yields DefaultSortMode.
func ParseSortMode(raw string) (SortMode, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		return DefaultSortMode, nil
	}
	for _, m := range sortModes {
		if string(m) == raw {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownSortMode, raw)
}

// Label is the human readable name of a mode.
func (m SortMode) Label() string {
	switch m {
	case SortOldest:
		return "Oldest"
	case SortNewest:
		return "Newest"
	case SortLikes:
		return "Most Liked"
	case SortReposts:
		return "Most Reposted"
	case SortQuotes:
		return "Most Quoted"
	case SortReplies:
		return "Most Replies"
	default:
		return string(m)
	}
}

// Paging holds the reveal cursor step sizes. Zero values mean the defaults.
type Paging struct {
	InitialPageSize int `json:"initialPageSize"`
	PageIncrement   int `json:"pageIncrement"`
}

func (p Paging) initial() int {
	if p.InitialPageSize <= 0 {
		return DefaultInitialPageSize
	}
	return p.InitialPageSize
}

func (p Paging) increment() int {
	if p.PageIncrement <= 0 {
		return DefaultPageIncrement
	}
	return p.PageIncrement
}

// State is the viewer's current search, sort and reveal cursor.
// It is a value: every transition returns a new State.
type State struct {
	SearchTerm    string   `json:"searchTerm"`
	SortMode      SortMode `json:"sortMode"`
	Paging        Paging   `json:"paging"`
	RevealedCount int      `json:"revealedCount"`
}

// NewState returns the initial state for a freshly loaded thread.
func NewState(paging Paging) State {
	return State{
		SortMode:      DefaultSortMode,
		Paging:        paging,
		RevealedCount: paging.initial(),
	}
}

// WithSearchTerm sets the search term. A changed term resets the reveal cursor.
func (s State) WithSearchTerm(term string) State {
	term, _ = richtext.TruncateGraphemes(term, MaxSearchTermGraphemes)
	if term == s.SearchTerm {
		return s
	}
	s.SearchTerm = term
	s.RevealedCount = s.Paging.initial()
	return s
}

// WithSortMode sets the sort mode. A changed mode resets the reveal cursor.
func (s State) WithSortMode(mode SortMode) State {
	if mode == s.SortMode {
		return s
	}
	s.SortMode = mode
	s.RevealedCount = s.Paging.initial()
	return s
}

// RevealMore advances the cursor by one increment, clamped to total, the
// length of the current ordered sequence. The cursor never moves backwards.
func (s State) RevealMore(total int) State {
	if s.RevealedCount >= total {
		return s
	}
	s.RevealedCount = min(s.RevealedCount+s.Paging.increment(), total)
	return s
}

// WithRevealed restores a cursor carried across requests, e.g. from a query
// string. Values below the initial page size are raised to it.
func (s State) WithRevealed(count int) State {
	s.RevealedCount = max(count, s.Paging.initial())
	return s
}
