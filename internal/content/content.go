// Package content turns raw backend records of unknown shape into a single
// canonical representation the render surface and metadata emitter consume.
//
// Records arrive from the backend in at least five incompatible shapes
// (embedded section arrays, id-only references, bare body strings, excerpt
// stubs). Normalization is centralized here: it is pure, does no I/O, and
// has no failure mode. Every input, including an empty record, maps to a
// valid CanonicalContent.
package content

import (
	"time"
)

// Sentinel identity values used when a record carries no resolvable author.
const (
	UnknownAuthorID = "unknown"
	AnonymousName   = "Anonymous"
)

// wordsPerMinute is the reading-speed divisor for ReadingTimeMinutes.
const wordsPerMinute = 200

// RawRecord is an untyped record as received from the backend. No shape is
// guaranteed; Normalize resolves whatever arrived.
type RawRecord map[string]any

// Tag is a normalized content tag. Slug is always derived when the upstream
// value does not carry one.
type Tag struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// Author is a resolved author identity. ID and DisplayName are never empty;
// they fall back to UnknownAuthorID and AnonymousName.
type Author struct {
	ID           string `json:"id"`
	DisplayName  string `json:"displayName"`
	ProfileImage string `json:"profileImage,omitempty"`
}

// Section is one titled block of body text. WordCount is always recomputed
// from Body, never trusted from upstream.
type Section struct {
	Title     string   `json:"title"`
	Body      string   `json:"body"`
	WordCount int      `json:"wordCount"`
	Tags      []string `json:"tags"`
	Footnotes []string `json:"footnotes,omitempty"`
}

// CanonicalContent is the normalized representation of a content record,
// independent of upstream shape. Sections is never empty; when no real
// content is resolvable a placeholder section is synthesized. The value is
// owned by the caller once produced and is never mutated afterwards.
type CanonicalContent struct {
	ID                 string    `json:"id"`
	Title              string    `json:"title"`
	Description        string    `json:"description"`
	Type               string    `json:"type"`
	PublishedAt        time.Time `json:"publishedAt"`
	Author             Author    `json:"author"`
	Sections           []Section `json:"sections"`
	Tags               []Tag     `json:"tags"`
	ReadingTimeMinutes int       `json:"readingTimeMinutes"`
}

// WordCount returns the aggregate word count across all sections.
func (c *CanonicalContent) WordCount() int {
	total := 0
	for i := range c.Sections {
		total += c.Sections[i].WordCount
	}
	return total
}
