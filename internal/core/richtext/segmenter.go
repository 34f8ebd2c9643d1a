package richtext

import (
	"cmp"
	"fmt"
	"html/template"
	"log/slog"
	"net/url"
	"regexp"
	"slices"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/text/encoding/unicode"
)

const (
	// DefaultProfileURLBase prefixes mention targets.
	DefaultProfileURLBase = "https://bsky.app/profile/"
	// DefaultHashtagURLBase prefixes hashtag targets.
	DefaultHashtagURLBase = "https://bsky.app/hashtag/"
	// DecodeErrorMarker replaces a byte range that could not be decoded.
	DecodeErrorMarker = "[Decoding Error]"
	// NoTarget is the href used when a feature carries no usable destination.
	NoTarget = "#"

	defaultLinkScheme = "https://"
)

var linkSchemePattern = regexp.MustCompile(`(?i)^(https?|mailto|ftp):`)

// AnomalyKind names a non-fatal problem found while segmenting.
type AnomalyKind string

const (
	AnomalyInvalidRange   AnomalyKind = "invalid_range"
	AnomalyUnknownFeature AnomalyKind = "unknown_feature"
	AnomalyDecodeFailure  AnomalyKind = "decode_failure"
)

// Anomaly describes a facet or byte range that was degraded instead of rendered.
type Anomaly struct {
	Kind      AnomalyKind
	Detail    string
	ByteStart int
	ByteEnd   int
}

// Segmenter converts text and facets into spans.
// A Segmenter is immutable after construction and safe for concurrent use.
type Segmenter struct {
	logger         *slog.Logger
	decode         func([]byte) (string, error)
	profileURLBase string
	hashtagURLBase string
}

// Option configures a Segmenter.
type Option func(*Segmenter)

// WithProfileURLBase sets the prefix used to build mention targets.
func WithProfileURLBase(base string) Option {
	return func(s *Segmenter) {
		s.profileURLBase = base
	}
}

// WithHashtagURLBase sets the prefix used to build hashtag targets.
func WithHashtagURLBase(base string) Option {
	return func(s *Segmenter) {
		s.hashtagURLBase = base
	}
}

// WithLogger sets the logger anomalies are reported to.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Segmenter) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewSegmenter creates a Segmenter with bsky.app link targets by default.
func NewSegmenter(opts ...Option) *Segmenter {
	s := &Segmenter{
		decode:         decodeUTF8,
		profileURLBase: DefaultProfileURLBase,
		hashtagURLBase: DefaultHashtagURLBase,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Segment returns the ordered spans for text annotated by facets.
// Malformed facets are skipped and logged; Segment never fails.
func (s *Segmenter) Segment(text string, facets []Facet) []Span {
	spans, _ := s.SegmentReport(text, facets)
	return spans
}

// SegmentReport is Segment that also returns every anomaly it absorbed.
//
// Facets are stably sorted by ByteStart and applied against a byte cursor.
// Overlapping facets are tolerated: the gap before a facet is only emitted when
// the facet starts after the cursor, while the facet's own range is always
// decoded from its own offsets and the cursor jumps to its end.
func (s *Segmenter) SegmentReport(text string, facets []Facet) ([]Span, []Anomaly) {
	if len(facets) == 0 {
		return []Span{{Kind: SpanPlain, Content: Sanitize(text)}}, nil
	}

	buf := []byte(text)
	size := len(buf)

	sorted := slices.Clone(facets)
	slices.SortStableFunc(sorted, func(a, b Facet) int {
		return cmp.Compare(byteStartOf(a), byteStartOf(b))
	})

	var (
		spans     []Span
		anomalies []Anomaly
		cursor    int
	)

	for _, facet := range sorted {
		if !validRange(facet.Index, size) {
			a := Anomaly{Kind: AnomalyInvalidRange, Detail: fmt.Sprintf("text is %d bytes", size)}
			if facet.Index != nil {
				a.ByteStart, a.ByteEnd = facet.Index.ByteStart, facet.Index.ByteEnd
			} else {
				a.Detail = "missing or non-integral index"
			}
			s.log().Warn("skipping invalid or out-of-bounds facet",
				"byteStart", a.ByteStart, "byteEnd", a.ByteEnd, "detail", a.Detail)
			anomalies = append(anomalies, a)
			continue
		}

		start, end := facet.Index.ByteStart, facet.Index.ByteEnd
		if start > cursor {
			spans = append(spans, Span{Kind: SpanPlain, Content: s.decodeRange(buf, cursor, start, &anomalies)})
		}

		facetText := s.decodeRange(buf, start, end, &anomalies)
		spans = append(spans, s.featureSpan(facet, facetText, &anomalies))
		cursor = end
	}

	if cursor < size {
		spans = append(spans, Span{Kind: SpanPlain, Content: s.decodeRange(buf, cursor, size, &anomalies)})
	}

	return spans, anomalies
}

// featureSpan types a decoded facet using only its first feature.
func (s *Segmenter) featureSpan(facet Facet, facetText string, anomalies *[]Anomaly) Span {
	if len(facet.Features) == 0 {
		return Span{Kind: SpanPlain, Content: facetText}
	}

	feature := facet.Features[0]
	switch feature.Kind {
	case FeatureLink:
		return Span{Kind: SpanLink, Content: facetText, Target: normalizeLinkTarget(feature.URI)}

	case FeatureMention:
		target := NoTarget
		if feature.DID != "" {
			target = s.profileURLBase + url.PathEscape(feature.DID)
		}
		return Span{Kind: SpanMention, Content: facetText, Target: target}

	case FeatureTag:
		bare := strings.TrimPrefix(feature.Tag, "#")
		target := NoTarget
		if bare != "" {
			target = s.hashtagURLBase + url.PathEscape(bare)
		}
		content := Sanitize(feature.Tag)
		if feature.Tag != "" && !strings.HasPrefix(content, "#") {
			content = "#" + content
		}
		if content == "" {
			content = facetText
		}
		return Span{Kind: SpanTag, Content: content, Target: target}

	default:
		s.log().Warn("unknown facet feature type", "type", feature.Type)
		*anomalies = append(*anomalies, Anomaly{
			Kind:      AnomalyUnknownFeature,
			Detail:    feature.Type,
			ByteStart: facet.Index.ByteStart,
			ByteEnd:   facet.Index.ByteEnd,
		})
		return Span{Kind: SpanPlain, Content: facetText}
	}
}

func (s *Segmenter) log() *slog.Logger {
	if s.logger != nil {
		return s.logger
	}
	return slog.Default()
}

// decodeRange decodes buf[from:to] leniently and sanitizes the result.
func (s *Segmenter) decodeRange(buf []byte, from, to int, anomalies *[]Anomaly) string {
	decoded, err := s.decode(buf[from:to])
	if err != nil {
		s.log().Warn("failed to decode text segment", "byteStart", from, "byteEnd", to, "error", err)
		*anomalies = append(*anomalies, Anomaly{
			Kind:      AnomalyDecodeFailure,
			Detail:    err.Error(),
			ByteStart: from,
			ByteEnd:   to,
		})
		return DecodeErrorMarker
	}
	return Sanitize(decoded)
}

// decodeUTF8 replaces malformed sequences with U+FFFD rather than failing.
func decodeUTF8(b []byte) (string, error) {
	out, err := unicode.UTF8.NewDecoder().Bytes(b)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func normalizeLinkTarget(uri string) string {
	if uri == "" {
		return NoTarget
	}
	if !linkSchemePattern.MatchString(uri) {
		return defaultLinkScheme + uri
	}
	return uri
}

func validRange(idx *ByteSlice, size int) bool {
	return idx != nil &&
		idx.ByteStart >= 0 &&
		idx.ByteEnd > idx.ByteStart &&
		idx.ByteEnd <= size
}

func byteStartOf(f Facet) int {
	if f.Index == nil {
		return 0
	}
	return f.Index.ByteStart
}

// RenderHTML concatenates spans into markup, wrapping annotated spans in
// anchors and marking line breaks.
func RenderHTML(spans []Span) template.HTML {
	var b strings.Builder
	for _, span := range spans {
		switch span.Kind {
		case SpanLink, SpanMention, SpanTag:
			fmt.Fprintf(&b, `<a href="%s" target="_blank" rel="noopener noreferrer">%s</a>`,
				html.EscapeString(span.Target), span.Content)
		default:
			b.WriteString(span.Content)
		}
	}
	// span content was escaped by Sanitize and targets are escaped above
	return template.HTML(markLineBreaks(b.String()))
}

// PlainText joins the spans back into unescaped text.
func PlainText(spans []Span) string {
	var b strings.Builder
	for _, span := range spans {
		b.WriteString(html.UnescapeString(span.Content))
	}
	return b.String()
}

var defaultSegmenter = NewSegmenter()

// Segment segments text with the default bsky.app targets.
func Segment(text string, facets []Facet) []Span {
	return defaultSegmenter.Segment(text, facets)
}
