package display

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Skythread/internal/core/threads"
)

func comment(uri string, depth int, createdAt string, group *threads.RootGroupKey) threads.FlatComment {
	return threads.FlatComment{
		Variant: threads.VariantThreadPost,
		URI:     uri,
		Depth:   depth,
		Post: &threads.PostView{
			URI:    uri,
			Author: threads.Author{DID: "did:plc:" + uri, Handle: uri + ".bsky.social"},
			Record: threads.Record{Text: "post " + uri, CreatedAt: createdAt},
		},
		RootGroup: group,
	}
}

func topLevel(uri, createdAt string) threads.FlatComment {
	return comment(uri, 1, createdAt, &threads.RootGroupKey{CreatedAt: createdAt, URI: uri})
}

func uris(comments []threads.FlatComment) []string {
	out := make([]string, len(comments))
	for i, c := range comments {
		out[i] = c.URI
	}
	return out
}

func manyComments(n int) []threads.FlatComment {
	out := make([]threads.FlatComment, n)
	for i := range out {
		out[i] = topLevel(fmt.Sprintf("c%02d", i), fmt.Sprintf("2024-01-01T00:%02d:00Z", i))
	}
	return out
}

func TestCompute_Pagination(t *testing.T) {
	comments := manyComments(45)
	state := NewState(Paging{InitialPageSize: 20, PageIncrement: 30})

	page := Compute(comments, state)
	assert.Len(t, page.Revealed, 20)
	assert.True(t, page.HasMore)
	assert.Equal(t, 25, page.Remaining())
	assert.Equal(t, 25, page.NextBatchSize)

	state = state.RevealMore(len(page.Ordered))
	page = Compute(comments, state)
	assert.Len(t, page.Revealed, 45)
	assert.False(t, page.HasMore)
	assert.Equal(t, 0, page.NextBatchSize)
}

func TestCompute_NextBatchSizeCappedByIncrement(t *testing.T) {
	page := Compute(manyComments(100), NewState(Paging{}))

	assert.Len(t, page.Revealed, DefaultInitialPageSize)
	assert.Equal(t, DefaultPageIncrement, page.NextBatchSize)
}

func TestCompute_FewerThanOnePage(t *testing.T) {
	page := Compute(manyComments(3), NewState(Paging{}))

	assert.Len(t, page.Revealed, 3)
	assert.False(t, page.HasMore)
}

func TestCompute_Empty(t *testing.T) {
	page := Compute(nil, NewState(Paging{}))

	assert.Empty(t, page.Ordered)
	assert.Empty(t, page.Revealed)
	assert.False(t, page.HasMore)
}

func TestCompute_Idempotent(t *testing.T) {
	comments := manyComments(30)
	state := NewState(Paging{}).WithSortMode(SortNewest)

	first := Compute(comments, state)
	second := Compute(comments, state)

	assert.Equal(t, uris(first.Revealed), uris(second.Revealed))
	assert.Equal(t, first.HasMore, second.HasMore)
}

func TestCompute_DoesNotModifyInput(t *testing.T) {
	comments := manyComments(5)
	before := uris(comments)

	Compute(comments, NewState(Paging{}).WithSortMode(SortNewest))

	assert.Equal(t, before, uris(comments))
}

func TestCompute_FiltersPlaceholdersAndRoot(t *testing.T) {
	comments := []threads.FlatComment{
		topLevel("a", "2024-01-01T00:00:00Z"),
		{Variant: threads.VariantBlocked, URI: "blocked", Depth: 1},
		{Variant: threads.VariantNotFound, URI: "gone", Depth: 2},
		{Variant: threads.VariantThreadPost, URI: "no-payload", Depth: 1},
		comment("root", 0, "2024-01-01T00:00:00Z", nil),
	}

	page := Compute(comments, NewState(Paging{}))

	assert.Equal(t, []string{"a"}, uris(page.Ordered))
}

func TestCompute_Search(t *testing.T) {
	alice := topLevel("a", "2024-01-01T00:00:00Z")
	alice.Post.Record.Text = "I love GOLANG"

	bob := topLevel("b", "2024-01-01T00:01:00Z")
	bob.Post.Author.Handle = "gopher.bsky.social"

	carol := topLevel("c", "2024-01-01T00:02:00Z")
	name := "Go Fan"
	carol.Post.Author.DisplayName = &name

	dave := topLevel("d", "2024-01-01T00:03:00Z")

	comments := []threads.FlatComment{alice, bob, carol, dave}

	tests := []struct {
		term string
		want []string
	}{
		{term: "golang", want: []string{"a"}},
		{term: "GOPHER", want: []string{"b"}},
		{term: "fan", want: []string{"c"}},
		{term: "go", want: []string{"a", "b", "c"}},
		{term: "nothing matches", want: []string{}},
		{term: "", want: []string{"a", "b", "c", "d"}},
	}

	for _, tt := range tests {
		t.Run(tt.term, func(t *testing.T) {
			page := Compute(comments, NewState(Paging{}).WithSearchTerm(tt.term))
			assert.Equal(t, tt.want, uris(page.Ordered))
		})
	}
}

func TestCompute_ChronologicalGroupsByRoot(t *testing.T) {
	keyX := &threads.RootGroupKey{CreatedAt: "2024-01-01T01:00:00Z", URI: "X"}
	x := comment("X", 1, "2024-01-01T01:00:00Z", keyX)
	y := comment("Y", 2, "2024-01-01T03:00:00Z", keyX)
	z := topLevel("Z", "2024-01-01T02:00:00Z")

	comments := []threads.FlatComment{x, y, z}

	oldest := Compute(comments, NewState(Paging{}).WithSortMode(SortOldest))
	assert.Equal(t, []string{"X", "Y", "Z"}, uris(oldest.Ordered))

	newest := Compute(comments, NewState(Paging{}).WithSortMode(SortNewest))
	assert.Equal(t, []string{"Z", "Y", "X"}, uris(newest.Ordered))
}

func TestCompute_InvalidTimestampsSortLast(t *testing.T) {
	valid1 := topLevel("v1", "2024-01-01T01:00:00Z")
	valid2 := topLevel("v2", "2024-01-01T02:00:00Z")
	invalid := topLevel("bad", "not a date")
	missing := topLevel("missing", "")

	comments := []threads.FlatComment{invalid, valid2, missing, valid1}

	oldest := Compute(comments, NewState(Paging{}).WithSortMode(SortOldest))
	assert.Equal(t, []string{"v1", "v2"}, uris(oldest.Ordered)[:2])

	newest := Compute(comments, NewState(Paging{}).WithSortMode(SortNewest))
	assert.Equal(t, []string{"v2", "v1"}, uris(newest.Ordered)[:2])

	for _, page := range []Page{oldest, newest} {
		assert.ElementsMatch(t, []string{"bad", "missing"}, uris(page.Ordered)[2:])
	}
}

func TestCompute_SameRootTimeDifferentGroups(t *testing.T) {
	keyA := &threads.RootGroupKey{CreatedAt: "2024-01-01T01:00:00Z", URI: "A"}
	keyB := &threads.RootGroupKey{CreatedAt: "2024-01-01T01:00:00Z", URI: "B"}

	comments := []threads.FlatComment{
		comment("B", 1, "2024-01-01T01:00:00Z", keyB),
		comment("A", 1, "2024-01-01T01:00:00Z", keyA),
		comment("B-reply", 2, "2024-01-01T01:30:00Z", keyB),
		comment("A-reply", 2, "2024-01-01T02:00:00Z", keyA),
	}

	page := Compute(comments, NewState(Paging{}))

	assert.Equal(t, []string{"A", "A-reply", "B", "B-reply"}, uris(page.Ordered))
}

func TestCompute_EngagementSortIsStable(t *testing.T) {
	a := topLevel("a", "2024-01-01T00:00:00Z")
	b := topLevel("b", "2024-01-01T00:01:00Z")
	c := topLevel("c", "2024-01-01T00:02:00Z")
	d := topLevel("d", "2024-01-01T00:03:00Z")

	a.Post.LikeCount, b.Post.LikeCount, c.Post.LikeCount, d.Post.LikeCount = 1, 5, 1, 5
	a.Post.RepostCount, b.Post.RepostCount, c.Post.RepostCount, d.Post.RepostCount = 0, 0, 2, 0
	a.Post.QuoteCount, d.Post.QuoteCount = 3, 4
	b.Post.ReplyCount, c.Post.ReplyCount = 7, 7

	comments := []threads.FlatComment{a, b, c, d}

	tests := []struct {
		mode SortMode
		want []string
	}{
		{mode: SortLikes, want: []string{"b", "d", "a", "c"}},
		{mode: SortReposts, want: []string{"c", "a", "b", "d"}},
		{mode: SortQuotes, want: []string{"d", "a", "b", "c"}},
		{mode: SortReplies, want: []string{"b", "c", "a", "d"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			page := Compute(comments, NewState(Paging{}).WithSortMode(tt.mode))
			assert.Equal(t, tt.want, uris(page.Ordered))
		})
	}
}

func TestCompute_UnknownModeFallsBackToNewest(t *testing.T) {
	comments := []threads.FlatComment{
		topLevel("old", "2024-01-01T00:00:00Z"),
		topLevel("new", "2024-01-02T00:00:00Z"),
	}

	page := Compute(comments, State{SortMode: "random", RevealedCount: 10})

	assert.Equal(t, []string{"new", "old"}, uris(page.Ordered))
}

func TestState_Transitions(t *testing.T) {
	paging := Paging{InitialPageSize: 20, PageIncrement: 30}
	state := NewState(paging)

	assert.Equal(t, 20, state.RevealedCount)
	assert.Equal(t, SortOldest, state.SortMode)

	t.Run("search change resets cursor", func(t *testing.T) {
		s := state.RevealMore(100).RevealMore(100)
		require.Equal(t, 80, s.RevealedCount)

		s = s.WithSearchTerm("hello")
		assert.Equal(t, 20, s.RevealedCount)
		assert.Equal(t, "hello", s.SearchTerm)
	})

	t.Run("same search keeps cursor", func(t *testing.T) {
		s := state.WithSearchTerm("hello").RevealMore(100)
		assert.Equal(t, 50, s.WithSearchTerm("hello").RevealedCount)
	})

	t.Run("sort change resets cursor", func(t *testing.T) {
		s := state.RevealMore(100).WithSortMode(SortLikes)
		assert.Equal(t, 20, s.RevealedCount)
		assert.Equal(t, SortLikes, s.SortMode)
	})

	t.Run("same sort keeps cursor", func(t *testing.T) {
		s := state.RevealMore(100).WithSortMode(SortOldest)
		assert.Equal(t, 50, s.RevealedCount)
	})

	t.Run("reveal clamps to total", func(t *testing.T) {
		assert.Equal(t, 45, state.RevealMore(45).RevealedCount)
	})

	t.Run("reveal never shrinks", func(t *testing.T) {
		assert.Equal(t, 20, state.RevealMore(5).RevealedCount)
	})

	t.Run("transitions leave the receiver untouched", func(t *testing.T) {
		_ = state.WithSearchTerm("x").WithSortMode(SortLikes).RevealMore(100)
		assert.Equal(t, NewState(paging), state)
	})

	t.Run("restored cursor is at least one page", func(t *testing.T) {
		assert.Equal(t, 20, state.WithRevealed(3).RevealedCount)
		assert.Equal(t, 65, state.WithRevealed(65).RevealedCount)
	})
}

func TestState_SearchTermTruncated(t *testing.T) {
	long := strings.Repeat("👍🏽", MaxSearchTermGraphemes+10)

	s := NewState(Paging{}).WithSearchTerm(long)

	assert.Equal(t, strings.Repeat("👍🏽", MaxSearchTermGraphemes), s.SearchTerm)
}

func TestParseSortMode(t *testing.T) {
	for _, mode := range SortModes() {
		got, err := ParseSortMode(strings.ToUpper(string(mode)))
		require.NoError(t, err)
		assert.Equal(t, mode, got)
		assert.NotEmpty(t, mode.Label())
	}

	got, err := ParseSortMode("")
	require.NoError(t, err)
	assert.Equal(t, DefaultSortMode, got)

	_, err = ParseSortMode("random")
	assert.ErrorIs(t, err, ErrUnknownSortMode)
}
