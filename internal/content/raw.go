package content

import (
	"fmt"
	"strings"
	"time"
)

// asString coerces scalar values to a usable string. Numeric ids show up as
// json.Number-style floats after decoding.
func asString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case float64:
		if s == float64(int64(s)) {
			return fmt.Sprintf("%d", int64(s))
		}
		return fmt.Sprintf("%v", s)
	case int:
		return fmt.Sprintf("%d", s)
	case int64:
		return fmt.Sprintf("%d", s)
	case bool:
		return fmt.Sprintf("%t", s)
	default:
		return ""
	}
}

// str returns the first non-blank string value among the given keys.
func (r RawRecord) str(keys ...string) string {
	for _, k := range keys {
		if s := strings.TrimSpace(asString(r[k])); s != "" {
			return s
		}
	}
	return ""
}

// obj returns the value under key when it is an object.
func (r RawRecord) obj(key string) (map[string]any, bool) {
	m, ok := r[key].(map[string]any)
	return m, ok
}

// list returns the value under key when it is a non-empty array.
func (r RawRecord) list(key string) ([]any, bool) {
	l, ok := r[key].([]any)
	if !ok || len(l) == 0 {
		return nil, false
	}
	return l, true
}

// has reports whether any of the keys holds a non-blank scalar.
func (r RawRecord) has(keys ...string) bool {
	return r.str(keys...) != ""
}

// asTime parses the assorted timestamp encodings the backend emits.
func asTime(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t
	case string:
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
			if parsed, err := time.Parse(layout, t); err == nil {
				return parsed
			}
		}
	case float64:
		// Epoch millis or seconds.
		if t > 1e12 {
			return time.UnixMilli(int64(t)).UTC()
		}
		if t > 0 {
			return time.Unix(int64(t), 0).UTC()
		}
	}
	return time.Time{}
}

// countWords is the word-count invariant: whitespace-delimited tokens of s.
func countWords(s string) int {
	return len(strings.Fields(s))
}
