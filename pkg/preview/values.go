package preview

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// isoLayout is the UTC timestamp shape every normalized date uses.
const isoLayout = "2006-01-02T15:04:05Z"

// stringField returns v as a string when it is a non-empty string.
func stringField(v any) (string, bool) {
	s, ok := v.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

// coalesce returns the first non-empty string among vals.
func coalesce(vals ...any) (string, bool) {
	for _, v := range vals {
		if s, ok := stringField(v); ok {
			return s, true
		}
	}
	return "", false
}

func optString(s string, ok bool) *string {
	if !ok {
		return nil
	}
	return &s
}

// intField reads a counter from any numeric representation providers use:
// JSON numbers, Go integers or decimal strings (YouTube statistics).
func intField(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case float32:
		return floatToInt(float64(n))
	case float64:
		return floatToInt(n)
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, true
		}
		if f, err := n.Float64(); err == nil {
			return floatToInt(f)
		}
	case string:
		s := strings.TrimSpace(n)
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i, true
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return floatToInt(f)
		}
	}
	return 0, false
}

func floatToInt(f float64) (int64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return int64(f), true
}

// counter reads a non-negative counter. Negative values (a downvoted Reddit
// post) are clamped to zero.
func counter(v any) *int64 {
	n, ok := intField(v)
	if !ok {
		return nil
	}
	if n < 0 {
		n = 0
	}
	return &n
}

func boolField(v any) (bool, bool) {
	b, ok := v.(bool)
	return b, ok
}

// record returns v as a RawRecord when it is a JSON object.
func record(v any) RawRecord {
	switch m := v.(type) {
	case RawRecord:
		return m
	case map[string]any:
		return RawRecord(m)
	}
	return nil
}

func stringList(v any) []string {
	switch list := v.(type) {
	case []string:
		return append([]string(nil), list...)
	case []any:
		out := make([]string, 0, len(list))
		for _, x := range list {
			if s, ok := x.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// isoDate converts a provider timestamp string to UTC ISO-8601. When no
// layout matches, the raw string is passed through unchanged.
func isoDate(s string) string {
	layouts := []string{
		time.RFC3339Nano,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		time.RFC1123Z,
		time.RFC1123,
		"2006-01-02",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC().Format(isoLayout)
		}
	}
	return s
}

// epochDate converts a Unix epoch in seconds to UTC ISO-8601.
func epochDate(v any) (string, bool) {
	switch n := v.(type) {
	case string:
		if n == "" {
			return "", false
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return n, true
		}
		return epochDate(f)
	default:
		secs, ok := intField(v)
		if !ok || secs == 0 {
			return "", false
		}
		return time.Unix(secs, 0).UTC().Format(isoLayout), true
	}
}

// truncateRunes caps s at n characters.
func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}

func joinNonEmpty(parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " ")
}
