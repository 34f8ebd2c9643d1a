package richtext

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "empty", in: "", want: ""},
		{name: "plain text unchanged", in: "hello world", want: "hello world"},
		{name: "markup escaped", in: `<b>"Tom" & 'Jerry'</b>`, want: "&lt;b&gt;&#34;Tom&#34; &amp; &#39;Jerry&#39;&lt;/b&gt;"},
		{name: "newlines kept", in: "a\nb", want: "a\nb"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Sanitize(tt.in))
		})
	}
}

func TestSanitizePtr_Nil(t *testing.T) {
	assert.Equal(t, "", SanitizePtr(nil))

	s := "<x>"
	assert.Equal(t, "&lt;x&gt;", SanitizePtr(&s))
}

func TestSegment_NoFacets(t *testing.T) {
	spans := Segment("line one\n<script>", nil)

	require.Len(t, spans, 1)
	assert.Equal(t, SpanPlain, spans[0].Kind)
	assert.Equal(t, "line one\n&lt;script&gt;", spans[0].Content)
	assert.Equal(t, "line one<br>&lt;script&gt;", string(RenderHTML(spans)))
}

func TestSegment_LinkGetsScheme(t *testing.T) {
	spans := Segment("hello world", []Facet{NewLinkFacet(6, 11, "example.com/world")})

	assert.Equal(t, []Span{
		{Kind: SpanPlain, Content: "hello "},
		{Kind: SpanLink, Content: "world", Target: "https://example.com/world"},
	}, spans)
}

func TestSegment_LinkSchemesKept(t *testing.T) {
	for _, uri := range []string{"http://a.dev", "HTTPS://a.dev", "mailto:me@a.dev", "ftp://files.a.dev"} {
		t.Run(uri, func(t *testing.T) {
			spans := Segment("go", []Facet{NewLinkFacet(0, 2, uri)})
			require.Len(t, spans, 1)
			assert.Equal(t, uri, spans[0].Target)
		})
	}
}

func TestSegment_InvalidFacetSkipped(t *testing.T) {
	tests := []struct {
		name  string
		facet Facet
	}{
		{name: "end before start", facet: NewLinkFacet(1, 1, "x.dev")},
		{name: "negative start", facet: NewLinkFacet(-1, 1, "x.dev")},
		{name: "end past text", facet: NewLinkFacet(0, 3, "x.dev")},
		{name: "missing index", facet: Facet{Features: []Feature{{Kind: FeatureLink, URI: "x.dev"}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spans, anomalies := NewSegmenter().SegmentReport("ab", []Facet{tt.facet})

			assert.Equal(t, []Span{{Kind: SpanPlain, Content: "ab"}}, spans)
			require.Len(t, anomalies, 1)
			assert.Equal(t, AnomalyInvalidRange, anomalies[0].Kind)
		})
	}
}

func TestSegment_MultiByteOffsets(t *testing.T) {
	// "héllo " is 7 bytes because é encodes to two bytes
	spans := Segment("héllo @bob", []Facet{NewMentionFacet(7, 11, "did:plc:bob")})

	assert.Equal(t, []Span{
		{Kind: SpanPlain, Content: "héllo "},
		{Kind: SpanMention, Content: "@bob", Target: "https://bsky.app/profile/did:plc:bob"},
	}, spans)
}

func TestSegment_SplitRuneDecodesLeniently(t *testing.T) {
	spans, anomalies := NewSegmenter().SegmentReport("é", []Facet{NewLinkFacet(0, 1, "x.dev")})

	require.Len(t, spans, 2)
	assert.Equal(t, "�", spans[0].Content)
	assert.Equal(t, "�", spans[1].Content)
	assert.Empty(t, anomalies)
}

func TestSegment_SortsFacetsByStart(t *testing.T) {
	spans := Segment("hello world", []Facet{
		NewTagFacet(6, 11, "world"),
		NewLinkFacet(0, 5, "https://hello.dev"),
	})

	assert.Equal(t, []Span{
		{Kind: SpanLink, Content: "hello", Target: "https://hello.dev"},
		{Kind: SpanPlain, Content: " "},
		{Kind: SpanTag, Content: "#world", Target: "https://bsky.app/hashtag/world"},
	}, spans)
}

func TestSegment_TiesKeepInputOrder(t *testing.T) {
	spans := Segment("abc", []Facet{
		NewLinkFacet(0, 3, "https://first.dev"),
		NewMentionFacet(0, 3, "did:plc:second"),
	})

	require.Len(t, spans, 2)
	assert.Equal(t, SpanLink, spans[0].Kind)
	assert.Equal(t, SpanMention, spans[1].Kind)
}

func TestSegment_OverlappingFacets(t *testing.T) {
	t.Run("second facet starts inside the first", func(t *testing.T) {
		spans := Segment("abcdefgh", []Facet{
			NewLinkFacet(0, 5, "https://a.dev"),
			NewTagFacet(3, 6, "x"),
		})

		assert.Equal(t, []Span{
			{Kind: SpanLink, Content: "abcde", Target: "https://a.dev"},
			{Kind: SpanTag, Content: "#x", Target: "https://bsky.app/hashtag/x"},
			{Kind: SpanPlain, Content: "gh"},
		}, spans)
	})

	t.Run("nested facet moves the cursor back", func(t *testing.T) {
		spans := Segment("abcdefgh", []Facet{
			NewLinkFacet(0, 6, "https://a.dev"),
			NewMentionFacet(2, 4, "did:plc:c"),
		})

		assert.Equal(t, []Span{
			{Kind: SpanLink, Content: "abcdef", Target: "https://a.dev"},
			{Kind: SpanMention, Content: "cd", Target: "https://bsky.app/profile/did:plc:c"},
			{Kind: SpanPlain, Content: "efgh"},
		}, spans)
	})
}

func TestSegment_Tags(t *testing.T) {
	tests := []struct {
		name        string
		tag         string
		wantContent string
		wantTarget  string
	}{
		{name: "bare tag gets hash", tag: "golang", wantContent: "#golang", wantTarget: "https://bsky.app/hashtag/golang"},
		{name: "hash kept once", tag: "#golang", wantContent: "#golang", wantTarget: "https://bsky.app/hashtag/golang"},
		{name: "unicode escaped in target", tag: "café", wantContent: "#café", wantTarget: "https://bsky.app/hashtag/caf%C3%A9"},
		{name: "empty tag falls back to text", tag: "", wantContent: "#tag", wantTarget: NoTarget},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spans := Segment("#tag", []Facet{NewTagFacet(0, 4, tt.tag)})
			require.Len(t, spans, 1)
			assert.Equal(t, SpanTag, spans[0].Kind)
			assert.Equal(t, tt.wantContent, spans[0].Content)
			assert.Equal(t, tt.wantTarget, spans[0].Target)
		})
	}
}

func TestSegment_FirstFeatureOnly(t *testing.T) {
	facet := NewLinkFacet(0, 2, "https://a.dev")
	facet.Features = append(facet.Features, Feature{Kind: FeatureTag, Tag: "ignored"})

	spans := Segment("hi", []Facet{facet})

	assert.Equal(t, []Span{{Kind: SpanLink, Content: "hi", Target: "https://a.dev"}}, spans)
}

func TestSegment_UnknownFeatureKeepsText(t *testing.T) {
	facet := Facet{
		Index:    &ByteSlice{ByteStart: 0, ByteEnd: 2},
		Features: []Feature{{Type: "app.bsky.richtext.facet#sparkle"}},
	}

	spans, anomalies := NewSegmenter().SegmentReport("hi there", []Facet{facet})

	assert.Equal(t, []Span{
		{Kind: SpanPlain, Content: "hi"},
		{Kind: SpanPlain, Content: " there"},
	}, spans)
	require.Len(t, anomalies, 1)
	assert.Equal(t, AnomalyUnknownFeature, anomalies[0].Kind)
}

func TestSegment_FacetWithoutFeatures(t *testing.T) {
	facet := Facet{Index: &ByteSlice{ByteStart: 0, ByteEnd: 2}}

	spans := Segment("hi", []Facet{facet})

	assert.Equal(t, []Span{{Kind: SpanPlain, Content: "hi"}}, spans)
}

func TestSegment_DecodeFailureIsLocal(t *testing.T) {
	s := NewSegmenter()
	s.decode = func(b []byte) (string, error) {
		if string(b) == "bad" {
			return "", errors.New("boom")
		}
		return string(b), nil
	}

	spans, anomalies := s.SegmentReport("ok bad", []Facet{NewLinkFacet(3, 6, "https://a.dev")})

	assert.Equal(t, []Span{
		{Kind: SpanPlain, Content: "ok "},
		{Kind: SpanLink, Content: DecodeErrorMarker, Target: "https://a.dev"},
	}, spans)
	require.Len(t, anomalies, 1)
	assert.Equal(t, AnomalyDecodeFailure, anomalies[0].Kind)
}

func TestSegment_EscapesFacetText(t *testing.T) {
	spans := Segment("<a> & b", []Facet{NewLinkFacet(0, 3, "https://a.dev/?q=1&r=2")})

	require.Len(t, spans, 2)
	assert.Equal(t, "&lt;a&gt;", spans[0].Content)
	assert.Equal(t, " &amp; b", spans[1].Content)
	assert.Equal(t,
		`<a href="https://a.dev/?q=1&amp;r=2" target="_blank" rel="noopener noreferrer">&lt;a&gt;</a> &amp; b`,
		string(RenderHTML(spans)))
}

func TestSegmenter_CustomBases(t *testing.T) {
	s := NewSegmenter(
		WithProfileURLBase("https://example.social/u/"),
		WithHashtagURLBase("https://example.social/t/"),
	)

	spans := s.Segment("@al #go", []Facet{
		NewMentionFacet(0, 3, "did:plc:al"),
		NewTagFacet(4, 7, "go"),
	})

	require.Len(t, spans, 3)
	assert.Equal(t, "https://example.social/u/did:plc:al", spans[0].Target)
	assert.Equal(t, "https://example.social/t/go", spans[2].Target)
}

func TestPlainText(t *testing.T) {
	spans := Segment("a < b\nc", []Facet{NewLinkFacet(4, 5, "b.dev")})
	assert.Equal(t, "a < b\nc", PlainText(spans))
}

func TestFacet_UnmarshalJSON(t *testing.T) {
	t.Run("link facet", func(t *testing.T) {
		var f Facet
		err := json.Unmarshal([]byte(`{
			"index": {"byteStart": 6, "byteEnd": 11},
			"features": [{"$type": "app.bsky.richtext.facet#link", "uri": "https://x.dev"}]
		}`), &f)
		require.NoError(t, err)
		require.NotNil(t, f.Index)
		assert.Equal(t, ByteSlice{ByteStart: 6, ByteEnd: 11}, *f.Index)
		require.Len(t, f.Features, 1)
		assert.Equal(t, FeatureLink, f.Features[0].Kind)
		assert.Equal(t, "https://x.dev", f.Features[0].URI)
	})

	t.Run("non-integral offsets leave index unset", func(t *testing.T) {
		var f Facet
		require.NoError(t, json.Unmarshal([]byte(`{"index": {"byteStart": 1.5, "byteEnd": 3}}`), &f))
		assert.Nil(t, f.Index)
	})

	t.Run("string offsets leave index unset", func(t *testing.T) {
		var f Facet
		require.NoError(t, json.Unmarshal([]byte(`{"index": {"byteStart": "1", "byteEnd": 3}}`), &f))
		assert.Nil(t, f.Index)
	})

	t.Run("missing index", func(t *testing.T) {
		var f Facet
		require.NoError(t, json.Unmarshal([]byte(`{"features": []}`), &f))
		assert.Nil(t, f.Index)
	})

	t.Run("unknown feature kind", func(t *testing.T) {
		var f Facet
		require.NoError(t, json.Unmarshal([]byte(`{
			"index": {"byteStart": 0, "byteEnd": 1},
			"features": [{"$type": "com.example.facet#thing"}, 42]
		}`), &f))
		require.Len(t, f.Features, 2)
		assert.Equal(t, FeatureUnknown, f.Features[0].Kind)
		assert.Equal(t, FeatureUnknown, f.Features[1].Kind)
	})
}
