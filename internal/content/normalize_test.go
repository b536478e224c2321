package content_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillpress/prerender/internal/content"
)

func TestNormalizeTotality(t *testing.T) {
	testCases := []struct {
		name string
		raw  content.RawRecord
	}{
		{name: "nil record", raw: nil},
		{name: "empty record", raw: content.RawRecord{}},
		{name: "only junk fields", raw: content.RawRecord{"widget": 42, "flag": true}},
		{name: "empty contents array", raw: content.RawRecord{"contents": []any{}}},
		{name: "contents of wrong element types", raw: content.RawRecord{"contents": []any{12.5, nil}}},
		{name: "whitespace content string", raw: content.RawRecord{"content": "   "}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := content.Normalize(tc.raw)

			require.NotEmpty(t, c.Sections, "sections must never be empty")
			assert.GreaterOrEqual(t, c.ReadingTimeMinutes, 1)
			assert.NotEmpty(t, c.Author.ID)
			assert.NotEmpty(t, c.Author.DisplayName)
			assert.NotNil(t, c.Tags)
		})
	}
}

func TestNormalizeSectionRules(t *testing.T) {
	t.Run("embedded contents array maps every element", func(t *testing.T) {
		c := content.Normalize(content.RawRecord{
			"title": "Record Title",
			"contents": []any{
				map[string]any{"title": "First", "body": "one two three"},
				map[string]any{"text": "four five"},
			},
		})

		require.Len(t, c.Sections, 2)
		assert.Equal(t, "First", c.Sections[0].Title)
		assert.Equal(t, "one two three", c.Sections[0].Body)
		// Element without a title inherits the record title.
		assert.Equal(t, "Record Title", c.Sections[1].Title)
		assert.Equal(t, "four five", c.Sections[1].Body)
	})

	t.Run("contentItems and contentObjects are accepted", func(t *testing.T) {
		for _, field := range []string{"contentItems", "contentObjects"} {
			c := content.Normalize(content.RawRecord{
				field: []any{map[string]any{"body": "section body"}},
			})
			require.Len(t, c.Sections, 1, field)
			assert.Equal(t, "section body", c.Sections[0].Body, field)
		}
	})

	t.Run("contentIds synthesize one placeholder with ids and preview", func(t *testing.T) {
		c := content.Normalize(content.RawRecord{
			"title":      "Tide",
			"contentIds": []any{"c1", "c2"},
			"excerpt":    "short preview",
		})

		require.Len(t, c.Sections, 1)
		assert.Contains(t, c.Sections[0].Body, "2 content items")
		assert.Contains(t, c.Sections[0].Body, "c1, c2")
		assert.Contains(t, c.Sections[0].Body, "short preview")
	})

	t.Run("content string becomes one section", func(t *testing.T) {
		c := content.Normalize(content.RawRecord{"title": "T", "content": "hello world"})

		require.Len(t, c.Sections, 1)
		assert.Equal(t, "hello world", c.Sections[0].Body)
	})

	t.Run("content object goes through section mapping", func(t *testing.T) {
		c := content.Normalize(content.RawRecord{
			"content": map[string]any{"body": "object body"},
		})

		require.Len(t, c.Sections, 1)
		assert.Equal(t, "object body", c.Sections[0].Body)
	})

	t.Run("bare body and text fields", func(t *testing.T) {
		c := content.Normalize(content.RawRecord{"body": "plain body"})
		require.Len(t, c.Sections, 1)
		assert.Equal(t, "plain body", c.Sections[0].Body)

		c = content.Normalize(content.RawRecord{"text": "plain text"})
		require.Len(t, c.Sections, 1)
		assert.Equal(t, "plain text", c.Sections[0].Body)
	})

	t.Run("excerpt only is marked as a preview", func(t *testing.T) {
		c := content.Normalize(content.RawRecord{"excerpt": "just a taste"})

		require.Len(t, c.Sections, 1)
		assert.Contains(t, c.Sections[0].Body, "just a taste")
		assert.Contains(t, c.Sections[0].Body, "preview")
	})

	t.Run("nothing present yields the unavailable placeholder", func(t *testing.T) {
		c := content.Normalize(content.RawRecord{})

		require.Len(t, c.Sections, 1)
		assert.Contains(t, c.Sections[0].Body, "not available at this time")
	})
}

func TestSectionMappingBodyChain(t *testing.T) {
	testCases := []struct {
		name     string
		element  map[string]any
		wantBody string
	}{
		{
			name:     "body wins over text",
			element:  map[string]any{"body": "from body", "text": "from text"},
			wantBody: "from body",
		},
		{
			name:     "html after text",
			element:  map[string]any{"html": "<p>from html</p>"},
			wantBody: "<p>from html</p>",
		},
		{
			name:     "raw and markdown",
			element:  map[string]any{"markdown": "# from markdown"},
			wantBody: "# from markdown",
		},
		{
			name:     "whitespace body falls through",
			element:  map[string]any{"body": "   ", "text": "from text"},
			wantBody: "from text",
		},
		{
			name:     "nested content object",
			element:  map[string]any{"content": map[string]any{"text": "nested text"}},
			wantBody: "nested text",
		},
		{
			name:     "element excerpt",
			element:  map[string]any{"excerpt": "element excerpt"},
			wantBody: "element excerpt",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := content.Normalize(content.RawRecord{"contents": []any{tc.element}})

			require.Len(t, c.Sections, 1)
			assert.Equal(t, tc.wantBody, c.Sections[0].Body)
		})
	}
}

func TestSectionMappingFallsBackToRecordExcerpt(t *testing.T) {
	c := content.Normalize(content.RawRecord{
		"excerpt":  "record excerpt",
		"contents": []any{map[string]any{"title": "Empty Element"}},
	})

	require.Len(t, c.Sections, 1)
	assert.Equal(t, "record excerpt", c.Sections[0].Body)
}

func TestWordCountIsRecomputed(t *testing.T) {
	// An upstream-provided count must never be trusted.
	c := content.Normalize(content.RawRecord{
		"contents": []any{
			map[string]any{"body": "one two three", "wordCount": 999.0},
		},
	})

	require.Len(t, c.Sections, 1)
	assert.Equal(t, 3, c.Sections[0].WordCount)
}

func TestWordCountFallsBackToTitle(t *testing.T) {
	c := content.Normalize(content.RawRecord{
		"title":    "Three Word Title",
		"contents": []any{map[string]any{"title": "Three Word Title"}},
	})

	require.Len(t, c.Sections, 1)
	assert.Empty(t, c.Sections[0].Body)
	assert.Equal(t, 3, c.Sections[0].WordCount)
}

func TestSectionTagsInheritance(t *testing.T) {
	t.Run("element tags win", func(t *testing.T) {
		c := content.Normalize(content.RawRecord{
			"tags": []any{"record-tag"},
			"contents": []any{
				map[string]any{"body": "x", "tagList": []any{"element-tag"}},
			},
		})

		require.Len(t, c.Sections, 1)
		assert.Equal(t, []string{"element-tag"}, c.Sections[0].Tags)
	})

	t.Run("record tags inherited", func(t *testing.T) {
		c := content.Normalize(content.RawRecord{
			"tags":     []any{"record-tag"},
			"contents": []any{map[string]any{"body": "x"}},
		})

		require.Len(t, c.Sections, 1)
		assert.Equal(t, []string{"record-tag"}, c.Sections[0].Tags)
	})
}

func TestReadingTime(t *testing.T) {
	longBody := ""
	for i := 0; i < 450; i++ {
		longBody += "word "
	}

	testCases := []struct {
		name string
		raw  content.RawRecord
		want int
	}{
		{name: "empty record floors at one", raw: content.RawRecord{}, want: 1},
		{name: "short body floors at one", raw: content.RawRecord{"body": "a few words"}, want: 1},
		{name: "450 words is three minutes", raw: content.RawRecord{"body": longBody}, want: 3},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, content.Normalize(tc.raw).ReadingTimeMinutes)
		})
	}
}

func TestNormalizeEndToEnd(t *testing.T) {
	c := content.Normalize(content.RawRecord{
		"_id":        "p1",
		"title":      "Tide",
		"contentIds": []any{"c1", "c2"},
		"excerpt":    "short preview",
		"tags":       []any{"ocean", "ocean"},
	})

	assert.Equal(t, "p1", c.ID)
	assert.Equal(t, "Tide", c.Title)

	require.Len(t, c.Sections, 1)
	assert.Contains(t, c.Sections[0].Body, "2 content items")
	assert.Contains(t, c.Sections[0].Body, "short preview")

	require.Len(t, c.Tags, 1)
	assert.Equal(t, "ocean", c.Tags[0].Name)
	assert.Equal(t, "ocean", c.Tags[0].Slug)

	assert.Equal(t, content.UnknownAuthorID, c.Author.ID)
	assert.Equal(t, content.AnonymousName, c.Author.DisplayName)
}
