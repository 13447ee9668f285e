package preview

// genericMapper is the best-effort fallback for platforms without a
// dedicated variant. It reads the common field names and never synthesizes
// missing values.
type genericMapper struct {
	platform Platform
}

func (g genericMapper) Platform() Platform { return g.platform }

func (g genericMapper) Map(raw RawRecord) CanonicalPreview {
	title, hasTitle := stringField(raw["title"])
	body, _ := coalesce(raw["description"], raw["body"], raw["text"])

	p := CanonicalPreview{
		Platform: g.platform,
		URL:      optString(stringField(raw["url"])),
		Title:    optString(title, hasTitle),
		Snippet:  truncateRunes(body, SnippetMaxLen),
		Author:   optString(stringField(raw["author"])),
		Hashtags: ExtractHashtags(title, body),
		Raw:      raw,
	}
	if published, ok := coalesce(raw["published"], raw["created_at"], raw["date"]); ok {
		d := isoDate(published)
		p.Date = &d
	}
	return p
}
