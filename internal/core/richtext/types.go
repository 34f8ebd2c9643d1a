package richtext

import (
	"bytes"
	"encoding/json"
	"math"
)

// Lexicon type identifiers for the facet features we understand.
const (
	FeatureTypeLink    = "app.bsky.richtext.facet#link"
	FeatureTypeMention = "app.bsky.richtext.facet#mention"
	FeatureTypeTag     = "app.bsky.richtext.facet#tag"
)

// FeatureKind classifies a facet feature.
type FeatureKind int

const (
	FeatureUnknown FeatureKind = iota
	FeatureLink
	FeatureMention
	FeatureTag
)

// SpanKind classifies a segment of rendered text.
type SpanKind string

const (
	SpanPlain   SpanKind = "plain"
	SpanLink    SpanKind = "link"
	SpanMention SpanKind = "mention"
	SpanTag     SpanKind = "tag"
)

// Facet is a byte-range annotation over the UTF-8 encoding of a post's text.
// Index is nil when the wire data carried no usable integral range.
type Facet struct {
	Index    *ByteSlice `json:"index,omitempty"`
	Features []Feature  `json:"features,omitempty"`
}

// ByteSlice is a half-open [ByteStart, ByteEnd) range of UTF-8 bytes.
type ByteSlice struct {
	ByteStart int `json:"byteStart"`
	ByteEnd   int `json:"byteEnd"`
}

// Feature is one annotation of a facet. Only the field matching Kind is set.
type Feature struct {
	// Type is the raw $type as received, kept for logging unknown kinds
	Type string      `json:"$type"`
	URI  string      `json:"uri,omitempty"`
	DID  string      `json:"did,omitempty"`
	Tag  string      `json:"tag,omitempty"`
	Kind FeatureKind `json:"-"`
}

// Span is one typed, already-sanitized piece of a post body.
type Span struct {
	Kind    SpanKind `json:"kind"`
	Content string   `json:"content"`
	Target  string   `json:"target,omitempty"`
}

// NewLinkFacet builds a link facet over [start, end).
func NewLinkFacet(start, end int, uri string) Facet {
	return Facet{
		Index:    &ByteSlice{ByteStart: start, ByteEnd: end},
		Features: []Feature{{Type: FeatureTypeLink, Kind: FeatureLink, URI: uri}},
	}
}

// NewMentionFacet builds a mention facet over [start, end).
func NewMentionFacet(start, end int, did string) Facet {
	return Facet{
		Index:    &ByteSlice{ByteStart: start, ByteEnd: end},
		Features: []Feature{{Type: FeatureTypeMention, Kind: FeatureMention, DID: did}},
	}
}

// NewTagFacet builds a hashtag facet over [start, end).
func NewTagFacet(start, end int, tag string) Facet {
	return Facet{
		Index:    &ByteSlice{ByteStart: start, ByteEnd: end},
		Features: []Feature{{Type: FeatureTypeTag, Kind: FeatureTag, Tag: tag}},
	}
}

// wireFacet mirrors app.bsky.richtext.facet with loosely typed offsets so that
// floats, strings or missing values degrade into an invalid facet instead of
// failing the whole document.
type wireFacet struct {
	Index *struct {
		ByteStart json.RawMessage `json:"byteStart"`
		ByteEnd   json.RawMessage `json:"byteEnd"`
	} `json:"index"`
	Features []json.RawMessage `json:"features"`
}

// UnmarshalJSON decodes a facet leniently.
func (f *Facet) UnmarshalJSON(data []byte) error {
	var w wireFacet
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	*f = Facet{}
	if w.Index != nil {
		start, okStart := parseOffset(w.Index.ByteStart)
		end, okEnd := parseOffset(w.Index.ByteEnd)
		if okStart && okEnd {
			f.Index = &ByteSlice{ByteStart: start, ByteEnd: end}
		}
	}

	for _, raw := range w.Features {
		var feat Feature
		if err := json.Unmarshal(raw, &feat); err != nil {
			// a feature that is not even an object is kept as unknown
			f.Features = append(f.Features, Feature{Kind: FeatureUnknown})
			continue
		}
		feat.Kind = kindOf(feat.Type)
		f.Features = append(f.Features, feat)
	}
	return nil
}

func kindOf(lexType string) FeatureKind {
	switch lexType {
	case FeatureTypeLink:
		return FeatureLink
	case FeatureTypeMention:
		return FeatureMention
	case FeatureTypeTag:
		return FeatureTag
	default:
		return FeatureUnknown
	}
}

// parseOffset accepts JSON numbers that are finite and integral.
func parseOffset(raw json.RawMessage) (int, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, false
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, false
	}
	if math.IsNaN(n) || math.IsInf(n, 0) || n != math.Trunc(n) {
		return 0, false
	}
	if n > math.MaxInt32 || n < math.MinInt32 {
		return 0, false
	}
	return int(n), true
}
