package display

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"Skythread/internal/core/threads"
)

// Page is the result of running the pipeline once. Ordered holds every entry
// that passed the filter in display order; Revealed is the prefix of it exposed
// to presentation. NextBatchSize is how many entries the next RevealMore adds.
type Page struct {
	State         State
	Ordered       []threads.FlatComment
	Revealed      []threads.FlatComment
	NextBatchSize int
	HasMore       bool
}

// Remaining is the number of ordered entries not yet revealed.
func (p Page) Remaining() int {
	return len(p.Ordered) - len(p.Revealed)
}

// Compute filters, sorts and paginates comments for state. The input slice is
// never modified.
func Compute(comments []threads.FlatComment, state State) Page {
	ordered := filter(comments, state.SearchTerm)
	sortComments(ordered, state.SortMode)

	n := min(max(state.RevealedCount, 0), len(ordered))
	page := Page{
		Ordered:  ordered,
		Revealed: ordered[:n:n],
		State:    state,
		HasMore:  state.RevealedCount < len(ordered),
	}
	if page.HasMore {
		page.NextBatchSize = min(len(ordered)-n, state.Paging.increment())
	}
	return page
}

// filter keeps resolved thread posts below the root that match term.
func filter(comments []threads.FlatComment, term string) []threads.FlatComment {
	needle := strings.ToLower(term)
	out := make([]threads.FlatComment, 0, len(comments))
	for _, c := range comments {
		if c.Variant != threads.VariantThreadPost || c.Post == nil || c.Depth < 1 {
			continue
		}
		if needle != "" && !matches(c.Post, needle) {
			continue
		}
		out = append(out, c)
	}
	return out
}

func matches(post *threads.PostView, needle string) bool {
	if strings.Contains(strings.ToLower(post.Record.Text), needle) ||
		strings.Contains(strings.ToLower(post.Author.Handle), needle) {
		return true
	}
	return post.Author.DisplayName != nil &&
		strings.Contains(strings.ToLower(*post.Author.DisplayName), needle)
}

func sortComments(comments []threads.FlatComment, mode SortMode) {
	switch mode {
	case SortLikes, SortReposts, SortQuotes, SortReplies:
		counter := engagementCounter(mode)
		slices.SortStableFunc(comments, func(a, b threads.FlatComment) int {
			return cmp.Compare(counter(b.Post), counter(a.Post))
		})

	case SortOldest, SortNewest:
		dir := 1
		if mode == SortNewest {
			dir = -1
		}
		sortChronological(comments, dir)

	default:
		sortByOwnTime(comments)
	}
}

func engagementCounter(mode SortMode) func(*threads.PostView) int {
	switch mode {
	case SortReposts:
		return func(p *threads.PostView) int { return p.RepostCount }
	case SortQuotes:
		return func(p *threads.PostView) int { return p.QuoteCount }
	case SortReplies:
		return func(p *threads.PostView) int { return p.ReplyCount }
	default:
		return func(p *threads.PostView) int { return p.LikeCount }
	}
}

// timeKey is a parsed timestamp; invalid keys sort after valid ones in
// either direction.
type timeKey struct {
	t  time.Time
	ok bool
}

func compareTimeKeys(a, b timeKey, dir int) int {
	switch {
	case !a.ok && !b.ok:
		return 0
	case !a.ok:
		return 1
	case !b.ok:
		return -1
	}
	return dir * a.t.Compare(b.t)
}

type chronoKey struct {
	rootURI string
	root    timeKey
	own     timeKey
}

func chronoKeyOf(c threads.FlatComment) chronoKey {
	var k chronoKey
	if c.RootGroup != nil {
		k.rootURI = c.RootGroup.URI
		k.root.t, k.root.ok = threads.ParseTimestamp(c.RootGroup.CreatedAt)
	}
	k.own.t, k.own.ok = c.Post.CreatedTime()
	return k
}

// sortChronological orders by root-group time first so that a reply stays
// clustered with its depth-1 ancestor, then by the entry's own time.
func sortChronological(comments []threads.FlatComment, dir int) {
	type keyed struct {
		comment threads.FlatComment
		key     chronoKey
	}
	entries := make([]keyed, len(comments))
	for i, c := range comments {
		entries[i] = keyed{comment: c, key: chronoKeyOf(c)}
	}

	slices.SortStableFunc(entries, func(a, b keyed) int {
		if c := compareTimeKeys(a.key.root, b.key.root, dir); c != 0 {
			return c
		}
		// distinct groups that share a timestamp must not interleave
		if c := strings.Compare(a.key.rootURI, b.key.rootURI); c != 0 {
			return c
		}
		return compareTimeKeys(a.key.own, b.key.own, dir)
	})

	for i, e := range entries {
		comments[i] = e.comment
	}
}

func sortByOwnTime(comments []threads.FlatComment) {
	slices.SortStableFunc(comments, func(a, b threads.FlatComment) int {
		ta, okA := a.Post.CreatedTime()
		tb, okB := b.Post.CreatedTime()
		return compareTimeKeys(timeKey{ta, okA}, timeKey{tb, okB}, -1)
	})
}
