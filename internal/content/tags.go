package content

import (
	"strings"
)

// tagFieldNames are the per-record and per-section tag fields seen in the
// wild, in resolution order.
var tagFieldNames = []string{"tags", "tagList", "contentTags"}

// Slugify derives a URL-safe identifier from a display name: lowercase,
// internal whitespace collapsed to hyphens, everything outside [a-z0-9-]
// stripped.
func Slugify(name string) string {
	lowered := strings.ToLower(strings.TrimSpace(name))
	hyphenated := strings.Join(strings.Fields(lowered), "-")

	var b strings.Builder
	b.Grow(len(hyphenated))
	for _, r := range hyphenated {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// normalizeTag converts one raw tag value, string or object, to a Tag.
// Returns false when nothing usable is present.
func normalizeTag(v any) (Tag, bool) {
	switch t := v.(type) {
	case string:
		name := strings.TrimSpace(t)
		if name == "" {
			return Tag{}, false
		}
		return Tag{Name: name, Slug: Slugify(name)}, true
	case map[string]any:
		raw := RawRecord(t)
		name := raw.str("name", "label", "tag")
		slug := raw.str("slug")
		if slug == "" {
			slug = Slugify(name)
		}
		id := raw.str("_id", "id")
		if name == "" && slug == "" && id == "" {
			return Tag{}, false
		}
		if name == "" {
			name = slug
		}
		return Tag{ID: id, Name: name, Slug: slug}, true
	default:
		return Tag{}, false
	}
}

// dedupKey picks the identity used to drop duplicate tags: slug, then name,
// then id.
func (t Tag) dedupKey() string {
	if t.Slug != "" {
		return "slug:" + t.Slug
	}
	if t.Name != "" {
		return "name:" + t.Name
	}
	return "id:" + t.ID
}

// normalizeTags maps raw tag values to Tags, dropping later duplicates while
// preserving insertion order.
func normalizeTags(values []any) []Tag {
	tags := make([]Tag, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		tag, ok := normalizeTag(v)
		if !ok {
			continue
		}
		key := tag.dedupKey()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		tags = append(tags, tag)
	}
	return tags
}

// recordTags resolves the record-level tag list from the first tag field
// present.
func recordTags(r RawRecord) []Tag {
	for _, field := range tagFieldNames {
		if values, ok := r.list(field); ok {
			return normalizeTags(values)
		}
	}
	return []Tag{}
}

// tagNames projects tags to their display names, for section-level tags.
func tagNames(tags []Tag) []string {
	names := make([]string, 0, len(tags))
	for _, t := range tags {
		names = append(names, t.Name)
	}
	return names
}
