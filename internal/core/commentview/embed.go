package commentview

import (
	"strings"

	"Skythread/internal/core/threads"
)

// MaxDescriptionGraphemes bounds external card descriptions.
const MaxDescriptionGraphemes = 300

// EmbedKind classifies an embed summary.
type EmbedKind string

const (
	EmbedImages        EmbedKind = "images"
	EmbedExternal      EmbedKind = "external"
	EmbedQuote         EmbedKind = "quote"
	EmbedQuoteNotFound EmbedKind = "quoteNotFound"
	EmbedQuoteBlocked  EmbedKind = "quoteBlocked"
	EmbedRecord        EmbedKind = "record"
	EmbedVideo         EmbedKind = "video"
	EmbedAttachment    EmbedKind = "attachment"
)

// legacy union members some appviews still emit inside record embeds
const (
	legacyNotFoundPost = "app.bsky.feed.defs#notFoundPost"
	legacyBlockedPost  = "app.bsky.feed.defs#blockedPost"
)

// EmbedSummary is a compact, presentation-neutral description of an embed.
type EmbedSummary struct {
	External *ExternalCard `json:"external,omitempty"`
	Kind     EmbedKind     `json:"kind"`
	Notice   string        `json:"notice,omitempty"`
	QuoteURL string        `json:"quoteUrl,omitempty"`
	Images   []ImageView   `json:"images,omitempty"`
}

// ImageView is one displayable image. Fullsize falls back to Thumb.
type ImageView struct {
	Thumb    string `json:"thumb"`
	Fullsize string `json:"fullsize"`
	Alt      string `json:"alt"`
}

// ExternalCard is a link preview.
type ExternalCard struct {
	URI         string `json:"uri"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Thumb       string `json:"thumb,omitempty"`
}

// summarizeEmbed returns nil when the post has no embed or nothing usable in it.
func (b *Builder) summarizeEmbed(embed *threads.Embed) *EmbedSummary {
	if embed == nil || embed.Type == "" {
		return nil
	}

	switch t := embed.Type; {
	case strings.Contains(t, "images"):
		return imagesSummary(embed.Images)

	case strings.Contains(t, "external"):
		return b.externalSummary(embed.External)

	case strings.Contains(t, "record"):
		return b.recordSummary(embed)

	case strings.Contains(t, "video"):
		return &EmbedSummary{Kind: EmbedVideo, Notice: "Video attachment available"}

	default:
		return &EmbedSummary{Kind: EmbedAttachment, Notice: "Attachment available"}
	}
}

func imagesSummary(images []threads.EmbedImage) *EmbedSummary {
	views := make([]ImageView, 0, len(images))
	for _, img := range images {
		if img.Thumb == "" {
			continue
		}
		view := ImageView{Thumb: img.Thumb, Fullsize: img.Fullsize, Alt: img.Alt}
		if view.Fullsize == "" {
			view.Fullsize = img.Thumb
		}
		if view.Alt == "" {
			view.Alt = "Embedded image"
		}
		views = append(views, view)
	}
	if len(views) == 0 {
		return nil
	}
	return &EmbedSummary{Kind: EmbedImages, Images: views}
}

func (b *Builder) externalSummary(ext *threads.EmbedExternal) *EmbedSummary {
	if ext == nil || ext.URI == "" {
		b.logger.Debug("skipping external embed without uri")
		return nil
	}
	card := &ExternalCard{
		URI:         ext.URI,
		Title:       ext.Title,
		Description: excerpt(ext.Description, MaxDescriptionGraphemes),
		Thumb:       ext.Thumb,
	}
	if card.Title == "" {
		card.Title = ext.URI
	}
	return &EmbedSummary{Kind: EmbedExternal, External: card}
}

func (b *Builder) recordSummary(embed *threads.Embed) *EmbedSummary {
	rec := embed.QuotedRecord()
	if rec == nil {
		return &EmbedSummary{Kind: EmbedRecord, Notice: "Embedded content available"}
	}

	switch rec.Type {
	case threads.RecordTypeViewRecord:
		notice := "Quoted post available"
		if strings.Contains(embed.Type, "Media") {
			notice = "Quoted post & Media available"
		}
		summary := &EmbedSummary{Kind: EmbedQuote, Notice: notice}
		if rec.Author != nil {
			summary.QuoteURL = Permalink(b.appBaseURL, rec.Author.DID, rec.URI)
		}
		return summary

	case threads.RecordTypeViewNotFound, legacyNotFoundPost:
		return &EmbedSummary{Kind: EmbedQuoteNotFound, Notice: "Quoted post not found"}

	case threads.RecordTypeViewBlocked, legacyBlockedPost:
		return &EmbedSummary{Kind: EmbedQuoteBlocked, Notice: "Quoted post is blocked"}

	default:
		b.logger.Debug("unsupported record type in embed", "type", rec.Type)
		return &EmbedSummary{Kind: EmbedRecord, Notice: "Embedded content available"}
	}
}
