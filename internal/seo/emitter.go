// Package seo builds the page metadata served at the crawler boundary: the
// document title/description pair, open-graph and twitter card tags, and the
// JSON-LD Article structured data.
//
// Output is a pure function of the canonical content plus the fixed site
// configuration, so emitting twice for the same input is byte-identical.
// Search engines and link-preview crawlers consume this verbatim; field
// names are a compatibility contract.
package seo

import (
	"fmt"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/quillpress/prerender/internal/config"
	"github.com/quillpress/prerender/internal/content"
)

const (
	descriptionMaxLen = 160
	twitterCardType   = "summary_large_image"
)

// PageMetadata is everything the render surface needs for <head> tags and
// the JSON-LD block.
type PageMetadata struct {
	Title          string            `json:"title"`
	Description    string            `json:"description"`
	CanonicalURL   string            `json:"canonicalUrl"`
	ImageURL       string            `json:"imageUrl"`
	OpenGraph      map[string]string `json:"openGraph"`
	Twitter        map[string]string `json:"twitter"`
	StructuredData StructuredData    `json:"structuredData"`
}

// StructuredData is the schema.org Article object emitted as JSON-LD.
type StructuredData struct {
	Context          string           `json:"@context"`
	Type             string           `json:"@type"`
	Headline         string           `json:"headline"`
	Description      string           `json:"description"`
	Author           StructuredAuthor `json:"author"`
	DatePublished    string           `json:"datePublished,omitempty"`
	Image            string           `json:"image"`
	MainEntityOfPage string           `json:"mainEntityOfPage"`
	WordCount        int              `json:"wordCount"`
}

// StructuredAuthor is the schema.org Person nested in the Article.
type StructuredAuthor struct {
	Type string `json:"@type"`
	Name string `json:"name"`
}

// Emitter builds PageMetadata against a fixed public origin.
type Emitter struct {
	origin       string
	siteName     string
	defaultImage string
}

// NewEmitter creates an emitter from the site configuration.
func NewEmitter(cfg *config.SiteConfig) *Emitter {
	return &Emitter{
		origin:       strings.TrimRight(cfg.PublicOrigin, "/"),
		siteName:     cfg.SiteName,
		defaultImage: cfg.DefaultShareImage,
	}
}

// Emit produces the full metadata set for a canonical content object served
// under routeSlug.
func (e *Emitter) Emit(c *content.CanonicalContent, routeSlug string) PageMetadata {
	title := e.pageTitle(c)
	description := e.pageDescription(c)
	canonicalURL := e.origin + "/" + strings.TrimLeft(routeSlug, "/")
	imageURL := e.resolveImage(c.Author.ProfileImage)

	return PageMetadata{
		Title:        title,
		Description:  description,
		CanonicalURL: canonicalURL,
		ImageURL:     imageURL,
		OpenGraph: map[string]string{
			"og:title":       title,
			"og:description": description,
			"og:image":       imageURL,
			"og:url":         canonicalURL,
			"og:type":        "article",
			"og:site_name":   e.siteName,
		},
		Twitter: map[string]string{
			"twitter:card":        twitterCardType,
			"twitter:title":       title,
			"twitter:description": description,
			"twitter:image":       imageURL,
		},
		StructuredData: StructuredData{
			Context:     "https://schema.org",
			Type:        "Article",
			Headline:    contentTitle(c),
			Description: description,
			Author: StructuredAuthor{
				Type: "Person",
				Name: c.Author.DisplayName,
			},
			DatePublished:    datePublished(c.PublishedAt),
			Image:            imageURL,
			MainEntityOfPage: canonicalURL,
			WordCount:        c.WordCount(),
		},
	}
}

// pageTitle is "{content title} — {type label} by {author}".
func (e *Emitter) pageTitle(c *content.CanonicalContent) string {
	return fmt.Sprintf("%s — %s by %s", contentTitle(c), typeLabel(c.Type), c.Author.DisplayName)
}

// pageDescription prefers the record's own description and falls back to a
// generated sentence. The result is capped for snippet display.
func (e *Emitter) pageDescription(c *content.CanonicalContent) string {
	description := strings.TrimSpace(c.Description)
	if description == "" {
		description = fmt.Sprintf("Read %q by %s on %s.", contentTitle(c), c.Author.DisplayName, e.siteName)
	}
	return truncate(description, descriptionMaxLen)
}

// resolveImage makes an image path absolute against the public origin. An
// image tag must never be emitted empty, so absence or an unparseable value
// falls back to the default social-share image.
func (e *Emitter) resolveImage(path string) string {
	if strings.TrimSpace(path) == "" {
		path = e.defaultImage
	}

	parsed, err := url.Parse(path)
	if err != nil {
		parsed, err = url.Parse(e.defaultImage)
		if err != nil {
			return e.origin + "/" + strings.TrimLeft(e.defaultImage, "/")
		}
	}

	if parsed.IsAbs() {
		return parsed.String()
	}
	return e.origin + "/" + strings.TrimLeft(parsed.String(), "/")
}

func contentTitle(c *content.CanonicalContent) string {
	if strings.TrimSpace(c.Title) == "" {
		return "Untitled"
	}
	return c.Title
}

// typeLabel turns the canonical type into a display label ("poem" -> "Poem").
func typeLabel(contentType string) string {
	if contentType == "" {
		return "Article"
	}
	return strings.ToUpper(contentType[:1]) + contentType[1:]
}

func datePublished(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// truncate cuts s at the last word boundary before max bytes, appending an
// ellipsis when anything was dropped. The cut never lands mid-rune: crawlers
// consume the description verbatim, so the output must stay valid UTF-8.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := s[:max]
	for len(cut) > 0 {
		r, size := utf8.DecodeLastRuneInString(cut)
		if r != utf8.RuneError || size > 1 {
			break
		}
		// Trailing bytes of a rune split by the cap.
		cut = cut[:len(cut)-1]
	}
	if idx := strings.LastIndexByte(cut, ' '); idx > 0 {
		cut = cut[:idx]
	}
	return strings.TrimRight(cut, " .,;:") + "…"
}
