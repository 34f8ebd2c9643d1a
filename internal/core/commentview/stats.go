package commentview

import "Skythread/internal/core/threads"

const (
	// NoInteractions is shown when every parent counter is zero.
	NoInteractions = "No interactions yet."
	// StatsUnavailable is shown when the parent post cannot be identified.
	StatsUnavailable = "Could not load post details."
)

// Stat is one non-zero parent post counter.
type Stat struct {
	LinkTarget *string `json:"linkTarget"`
	Name       string  `json:"name"`
	Label      string  `json:"label"`
	Display    string  `json:"display"`
	Count      int     `json:"count"`
}

// Stats summarizes engagement on the thread's root post. Message is set only
// when Items is empty.
type Stats struct {
	Message string `json:"message,omitempty"`
	Items   []Stat `json:"items"`
}

type statCounter struct {
	name     string
	singular string
	plural   string
	suffix   string
	count    func(*threads.PostView) int
}

var statCounters = []statCounter{
	{name: "likes", singular: "Like", plural: "Likes", suffix: "/liked-by",
		count: func(p *threads.PostView) int { return p.LikeCount }},
	{name: "reposts", singular: "Repost", plural: "Reposts", suffix: "/reposted-by",
		count: func(p *threads.PostView) int { return p.RepostCount }},
	{name: "replies", singular: "Reply", plural: "Replies", suffix: "",
		count: func(p *threads.PostView) int { return p.ReplyCount }},
	{name: "quotes", singular: "Quote", plural: "Quotes", suffix: "/quotes",
		count: func(p *threads.PostView) int { return p.QuoteCount }},
}

// Stats builds the parent post summary. Zero counters are omitted; link
// targets are nil when no permalink can be derived.
func (b *Builder) Stats(post *threads.PostView) Stats {
	if post == nil || post.URI == "" || post.Author.DID == "" {
		return Stats{Items: []Stat{}, Message: StatsUnavailable}
	}

	permalink := Permalink(b.appBaseURL, post.Author.DID, post.URI)
	items := make([]Stat, 0, len(statCounters))
	for _, sc := range statCounters {
		n := sc.count(post)
		if n == 0 {
			continue
		}
		stat := Stat{
			Name:    sc.name,
			Count:   n,
			Display: FormatCount(n),
			Label:   sc.plural,
		}
		if n == 1 {
			stat.Label = sc.singular
		}
		if permalink != "" {
			target := permalink + sc.suffix
			stat.LinkTarget = &target
		}
		items = append(items, stat)
	}

	if len(items) == 0 {
		return Stats{Items: items, Message: NoInteractions}
	}
	return Stats{Items: items}
}
