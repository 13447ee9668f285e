package preview

// redditMapper accepts a listing child ({"kind":..., "data":{...}}) or a
// flattened post object; both the public and OAuth APIs use these shapes.
type redditMapper struct{}

func (redditMapper) Platform() Platform { return PlatformReddit }

func (redditMapper) Map(raw RawRecord) CanonicalPreview {
	data := record(raw["data"])
	if data == nil {
		data = raw
	}

	p := CanonicalPreview{
		Platform: PlatformReddit,
		Raw:      raw,
	}

	if u, ok := stringField(data["url_overridden_by_dest"]); ok {
		p.URL = &u
	} else if permalink, ok := stringField(data["permalink"]); ok {
		u := "https://www.reddit.com" + permalink
		p.URL = &u
	}

	title, hasTitle := stringField(data["title"])
	selftext, _ := stringField(data["selftext"])
	p.Title = optString(title, hasTitle)
	if selftext != "" {
		p.Snippet = truncateRunes(selftext, SnippetMaxLen)
	} else {
		p.Snippet = truncateRunes(title, SnippetMaxLen)
	}
	p.Author = optString(stringField(data["author"]))
	p.Date = optString(epochDate(data["created_utc"]))
	p.Hashtags = ExtractHashtags(title, selftext)

	// Reddit exposes no view counter; score approximates likes.
	p.Engagement = Engagement{
		Likes:    counter(data["score"]),
		Comments: counter(data["num_comments"]),
	}

	if isVideo, ok := boolField(data["is_video"]); ok {
		p.Media.HasVideo = &isVideo
	}
	if media := record(data["media"]); media != nil {
		hasVideo := true
		p.Media.HasVideo = &hasVideo
		if video := record(media["reddit_video"]); video != nil {
			p.Media.DurationSec = counter(video["duration"])
		}
	}
	return p
}
