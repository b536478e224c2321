package content

import (
	"fmt"
	"strings"
	"time"
)

// sectionArrayFields are the embedded-section field variants, in resolution
// order.
var sectionArrayFields = []string{"contents", "contentItems", "contentObjects"}

// unavailableBody is the floor fallback when a record resolves to nothing.
const unavailableBody = "Content is not available at this time."

// Normalize produces the canonical representation of a raw backend record.
// It is total: any input, including an empty record, yields a value with at
// least one section.
func Normalize(raw RawRecord) CanonicalContent {
	if raw == nil {
		raw = RawRecord{}
	}

	tags := recordTags(raw)
	canonical := CanonicalContent{
		ID:          raw.str("_id", "id", "slug"),
		Title:       raw.str("title"),
		Description: raw.str("description", "excerpt"),
		Type:        firstNonEmpty(raw.str("type", "category"), "article"),
		PublishedAt: publishedAt(raw),
		Author:      resolveAuthor(raw),
		Tags:        tags,
		Sections:    resolveSections(raw, tags),
	}
	canonical.ReadingTimeMinutes = readingTime(canonical.Sections)
	return canonical
}

// resolveSections walks the ordered shape chain; the first matching rule
// wins. The result is never empty.
func resolveSections(raw RawRecord, tags []Tag) []Section {
	// 1. Embedded section arrays.
	for _, field := range sectionArrayFields {
		if elements, ok := raw.list(field); ok {
			return mapSections(raw, elements, tags)
		}
	}

	// 2. Id-only references, content not embedded.
	if ids, ok := raw.list("contentIds"); ok {
		return []Section{referenceSection(raw, ids, tags)}
	}

	// 3. Single content field, string or object.
	if v, ok := raw["content"]; ok {
		switch c := v.(type) {
		case string:
			if strings.TrimSpace(c) != "" {
				return []Section{newSection(raw.str("title"), c, tagNames(tags), nil)}
			}
		case map[string]any:
			return []Section{mapSection(raw, c, tags)}
		}
	}

	// 4. Bare body or text.
	if body := raw.str("body", "text"); body != "" {
		return []Section{newSection(raw.str("title"), body, tagNames(tags), nil)}
	}

	// 5. Excerpt or description only.
	if preview := raw.str("excerpt", "description"); preview != "" {
		body := preview + "\n\n(This is a preview excerpt; the full content is not included.)"
		return []Section{newSection(raw.str("title"), body, tagNames(tags), nil)}
	}

	// 6. Nothing at all.
	return []Section{newSection(raw.str("title"), unavailableBody, tagNames(tags), nil)}
}

// mapSections maps each embedded element through the section-mapping rule.
func mapSections(raw RawRecord, elements []any, tags []Tag) []Section {
	sections := make([]Section, 0, len(elements))
	for _, el := range elements {
		obj, ok := el.(map[string]any)
		if !ok {
			// Array of bare strings shows up in very old records.
			if s := strings.TrimSpace(asString(el)); s != "" {
				sections = append(sections, newSection(raw.str("title"), s, tagNames(tags), nil))
			}
			continue
		}
		sections = append(sections, mapSection(raw, obj, tags))
	}
	if len(sections) == 0 {
		return []Section{newSection(raw.str("title"), unavailableBody, tagNames(tags), nil)}
	}
	return sections
}

// mapSection applies the per-element section-mapping rule: body from the
// first non-blank candidate, title and tags inherited from the record when
// the element provides none.
func mapSection(raw RawRecord, element map[string]any, recordLevel []Tag) Section {
	el := RawRecord(element)

	body := el.str("body", "text", "html", "raw", "markdown")
	if body == "" {
		if nested, ok := el.obj("content"); ok {
			body = RawRecord(nested).str("body", "text", "html")
		}
	}
	if body == "" {
		body = el.str("excerpt")
	}
	if body == "" {
		body = raw.str("excerpt", "description")
	}

	title := el.str("title")
	if title == "" {
		title = raw.str("title")
	}

	var names []string
	sectionTags := false
	for _, field := range tagFieldNames {
		if values, ok := el.list(field); ok {
			names = tagNames(normalizeTags(values))
			sectionTags = true
			break
		}
	}
	if !sectionTags {
		names = tagNames(recordLevel)
	}

	return newSection(title, body, names, footnotes(el))
}

// referenceSection synthesizes the single placeholder for records that carry
// content ids without embedded content, keeping whatever preview text exists.
func referenceSection(raw RawRecord, ids []any, tags []Tag) Section {
	idStrings := make([]string, 0, len(ids))
	for _, id := range ids {
		if s := strings.TrimSpace(asString(id)); s != "" {
			idStrings = append(idStrings, s)
		}
	}

	body := fmt.Sprintf("This record references %d content items that are loaded separately: %s.",
		len(idStrings), strings.Join(idStrings, ", "))
	if preview := raw.str("excerpt", "description"); preview != "" {
		body += "\n\nPreview: " + preview
	}

	return newSection(raw.str("title"), body, tagNames(tags), nil)
}

// newSection builds a Section with the recomputed word count. Upstream counts
// are never trusted. An empty body falls back to counting the title.
func newSection(title, body string, tags []string, notes []string) Section {
	counted := body
	if strings.TrimSpace(counted) == "" {
		counted = title
	}
	if tags == nil {
		tags = []string{}
	}
	return Section{
		Title:     title,
		Body:      body,
		WordCount: countWords(counted),
		Tags:      tags,
		Footnotes: notes,
	}
}

func footnotes(el RawRecord) []string {
	values, ok := el.list("footnotes")
	if !ok {
		return nil
	}
	notes := make([]string, 0, len(values))
	for _, v := range values {
		if s := strings.TrimSpace(asString(v)); s != "" {
			notes = append(notes, s)
		}
	}
	if len(notes) == 0 {
		return nil
	}
	return notes
}

// readingTime is ceil(total words / 200) with a floor of one minute.
func readingTime(sections []Section) int {
	total := 0
	for i := range sections {
		total += sections[i].WordCount
	}
	minutes := (total + wordsPerMinute - 1) / wordsPerMinute
	if minutes < 1 {
		minutes = 1
	}
	return minutes
}

func publishedAt(raw RawRecord) time.Time {
	for _, key := range []string{"publishedAt", "publishedDate", "createdAt"} {
		if v, ok := raw[key]; ok {
			if t := asTime(v); !t.IsZero() {
				return t
			}
		}
	}
	return time.Time{}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
