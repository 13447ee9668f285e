// Package preview maps raw provider payloads from content platforms into a
// single canonical preview schema.
package preview

// Platform identifies which content platform a preview came from.
type Platform string

const (
	PlatformYouTube Platform = "youtube"
	PlatformReddit  Platform = "reddit"
	PlatformUnknown Platform = "unknown"
)

// SnippetMaxLen caps the snippet length in characters.
const SnippetMaxLen = 400

// RawRecord is an undecoded provider payload, as produced by encoding/json
// or by a provider client.
type RawRecord map[string]any

// Engagement holds whatever counters the platform exposes. A nil counter is
// unknown, which is not the same thing as zero.
type Engagement struct {
	Views    *int64 `json:"views"`
	Likes    *int64 `json:"likes"`
	Comments *int64 `json:"comments"`
}

// Media holds optional hints for downstream filtering.
type Media struct {
	HasVideo    *bool  `json:"has_video"`
	DurationSec *int64 `json:"duration_sec"`
}

// CanonicalPreview is the platform-agnostic view of one discovered item.
// It is never mutated after creation.
type CanonicalPreview struct {
	Platform          Platform   `json:"platform"`
	URL               *string    `json:"url"`
	Title             *string    `json:"title"`
	Snippet           string     `json:"snippet"`
	TranscriptSnippet string     `json:"transcript_snippet,omitempty"`
	Author            *string    `json:"author"`
	Date              *string    `json:"date"`
	Hashtags          []string   `json:"hashtags"`
	Engagement        Engagement `json:"engagement"`
	Media             Media      `json:"media"`
	Raw               RawRecord  `json:"raw,omitempty"`
}

// Record returns the preview in canonical record form. Normalizing the
// returned record yields the same preview again.
func (p CanonicalPreview) Record() RawRecord {
	rec := RawRecord{
		"platform": string(p.Platform),
		"url":      derefString(p.URL),
		"title":    derefString(p.Title),
		"snippet":  p.Snippet,
		"author":   derefString(p.Author),
		"date":     derefString(p.Date),
		"hashtags": append([]string(nil), p.Hashtags...),
		"engagement": map[string]any{
			"views":    derefInt(p.Engagement.Views),
			"likes":    derefInt(p.Engagement.Likes),
			"comments": derefInt(p.Engagement.Comments),
		},
		"media": map[string]any{
			"has_video":    derefBool(p.Media.HasVideo),
			"duration_sec": derefInt(p.Media.DurationSec),
		},
	}
	if p.TranscriptSnippet != "" {
		rec["transcript_snippet"] = p.TranscriptSnippet
	}
	if p.Raw != nil {
		rec["raw"] = p.Raw
	}
	return rec
}

// Text is the preview text the scorer matches against: title, snippet and
// transcript snippet joined by single spaces, empty parts skipped.
func (p CanonicalPreview) Text() string {
	return joinNonEmpty(derefOrEmpty(p.Title), p.Snippet, p.TranscriptSnippet)
}

// TotalEngagement sums the counters that are present.
func (e Engagement) TotalEngagement() (total int64, known bool) {
	for _, v := range []*int64{e.Views, e.Likes, e.Comments} {
		if v != nil {
			total += *v
			known = true
		}
	}
	return total, known
}

func derefString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func derefInt(n *int64) any {
	if n == nil {
		return nil
	}
	return *n
}

func derefBool(b *bool) any {
	if b == nil {
		return nil
	}
	return *b
}

func derefOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
