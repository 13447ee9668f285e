package preview

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elonfeng/seedradar/pkg/rankerr"
)

func TestExtractHashtags(t *testing.T) {
	tests := []struct {
		name  string
		texts []string
		want  []string
	}{
		{"lowercase first-seen order", []string{"Check out #AI_research and #ml!"}, []string{"ai_research", "ml"}},
		{"dedupes across texts", []string{"#Go is fun", "more #go and #Rust"}, []string{"go", "rust"}},
		{"needs two characters", []string{"#a #bc"}, []string{"bc"}},
		{"ignores mid-word markers", []string{"email me at foo#bar"}, []string{}},
		{"separator before marker", []string{"(#tag1),[#tag2]"}, []string{"tag1", "tag2"}},
		{"empty", nil, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractHashtags(tt.texts...))
		})
	}
}

func TestExtractHashtags_CapsAtThirty(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 40; i++ {
		b.WriteString(" #tag")
		b.WriteString(strings.Repeat("x", i%5+1))
		b.WriteString(string(rune('a' + i%26)))
		b.WriteString(string(rune('a' + i/26)))
	}
	tags := ExtractHashtags(b.String())
	assert.Len(t, tags, MaxHashtags)
}

func TestNormalize_NilRecord(t *testing.T) {
	_, err := Normalize("youtube", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, rankerr.ErrInvalidInput))
}

func TestNormalize_YouTube(t *testing.T) {
	raw := RawRecord{
		"id":           "abc123",
		"title":        "Ketamine therapy explained #Neuro",
		"description":  "A deep dive. #neuro #Science",
		"channelTitle": "NeuroTalk",
		"publishedAt":  "2025-10-30T19:02:55+02:00",
		"statistics":   map[string]any{"viewCount": "1000", "likeCount": "45", "commentCount": float64(7)},
		"contentDetails": map[string]any{
			"duration": "PT1H2M3S",
		},
	}

	p, err := Normalize("YouTube", raw)
	require.NoError(t, err)

	assert.Equal(t, PlatformYouTube, p.Platform)
	require.NotNil(t, p.URL)
	assert.Equal(t, "https://www.youtube.com/watch?v=abc123", *p.URL)
	require.NotNil(t, p.Title)
	assert.Equal(t, "Ketamine therapy explained #Neuro", *p.Title)
	assert.Equal(t, "A deep dive. #neuro #Science", p.Snippet)
	require.NotNil(t, p.Author)
	assert.Equal(t, "NeuroTalk", *p.Author)
	require.NotNil(t, p.Date)
	assert.Equal(t, "2025-10-30T17:02:55Z", *p.Date)
	assert.Equal(t, []string{"neuro", "science"}, p.Hashtags)
	assert.Equal(t, int64(1000), *p.Engagement.Views)
	assert.Equal(t, int64(45), *p.Engagement.Likes)
	assert.Equal(t, int64(7), *p.Engagement.Comments)
	require.NotNil(t, p.Media.HasVideo)
	assert.True(t, *p.Media.HasVideo)
	assert.Equal(t, int64(3723), *p.Media.DurationSec)
}

func TestNormalize_YouTubeSearchShape(t *testing.T) {
	raw := RawRecord{
		"id": map[string]any{"kind": "youtube#video", "videoId": "xyz"},
		"snippet": map[string]any{
			"title":       "Snippet title",
			"description": strings.Repeat("é", 500),
			"publishedAt": "not a date",
		},
	}

	p, err := Normalize("yt", raw)
	require.NoError(t, err)

	assert.Equal(t, "https://www.youtube.com/watch?v=xyz", *p.URL)
	assert.Equal(t, "Snippet title", *p.Title)
	assert.Equal(t, SnippetMaxLen, len([]rune(p.Snippet)))
	assert.Equal(t, "not a date", *p.Date, "unparseable dates pass through")
	assert.Nil(t, p.Engagement.Views, "absent counters stay absent")
	assert.Nil(t, p.Engagement.Likes)
	assert.Nil(t, p.Engagement.Comments)
	assert.Nil(t, p.Media.DurationSec)
}

func TestNormalize_Reddit(t *testing.T) {
	raw := RawRecord{
		"kind": "t3",
		"data": map[string]any{
			"title":        "Ask: rTMS vs tDCS? #depression",
			"selftext":     "",
			"author":       "someone",
			"permalink":    "/r/neuro/comments/1/ask/",
			"created_utc":  float64(1761843775),
			"score":        float64(-3),
			"num_comments": float64(12),
		},
	}

	p, err := Normalize("reddit", raw)
	require.NoError(t, err)

	assert.Equal(t, PlatformReddit, p.Platform)
	assert.Equal(t, "https://www.reddit.com/r/neuro/comments/1/ask/", *p.URL)
	assert.Equal(t, "Ask: rTMS vs tDCS? #depression", p.Snippet, "snippet falls back to title")
	assert.Equal(t, "2025-10-30T17:02:55Z", *p.Date)
	assert.Equal(t, []string{"depression"}, p.Hashtags)
	assert.Nil(t, p.Engagement.Views)
	assert.Equal(t, int64(0), *p.Engagement.Likes, "negative score clamps to zero")
	assert.Equal(t, int64(12), *p.Engagement.Comments)
	assert.Nil(t, p.Media.HasVideo)
}

func TestNormalize_RedditFlattenedWithVideo(t *testing.T) {
	raw := RawRecord{
		"title":                  "clip",
		"selftext":               "body text",
		"url_overridden_by_dest": "https://v.redd.it/abc",
		"is_video":               true,
		"media":                  map[string]any{"reddit_video": map[string]any{"duration": float64(42)}},
	}

	p, err := Normalize("reddit", raw)
	require.NoError(t, err)

	assert.Equal(t, "https://v.redd.it/abc", *p.URL)
	assert.Equal(t, "body text", p.Snippet)
	assert.True(t, *p.Media.HasVideo)
	assert.Equal(t, int64(42), *p.Media.DurationSec)
	assert.Nil(t, p.Date)
}

func TestNormalize_Generic(t *testing.T) {
	raw := RawRecord{
		"title":     "Toot about #Fediverse",
		"text":      "longer #text body",
		"url":       "https://mastodon.example/@a/1",
		"author":    "a",
		"published": "Mon, 02 Jan 2006 15:04:05 -0700",
	}

	p, err := Normalize("Mastodon", raw)
	require.NoError(t, err)

	assert.Equal(t, Platform("mastodon"), p.Platform)
	assert.Equal(t, "longer #text body", p.Snippet)
	assert.Equal(t, []string{"fediverse", "text"}, p.Hashtags)
	assert.Equal(t, "2006-01-02T22:04:05Z", *p.Date)
	assert.Nil(t, p.Engagement.Views)
	assert.Nil(t, p.Media.HasVideo)

	unknown, err := Normalize("", RawRecord{"body": "x"})
	require.NoError(t, err)
	assert.Equal(t, PlatformUnknown, unknown.Platform)
	assert.Nil(t, unknown.Title)
	assert.Nil(t, unknown.URL)
}

func TestNormalize_Idempotent(t *testing.T) {
	raws := map[string]RawRecord{
		"youtube": {"id": "v1", "title": "t #x", "description": "d", "statistics": map[string]any{"viewCount": "5"}},
		"reddit":  {"data": map[string]any{"title": "r", "permalink": "/r/x/1", "created_utc": float64(1)}},
		"bluesky": {"title": "b", "text": "#hello world"},
	}
	for platform, raw := range raws {
		t.Run(platform, func(t *testing.T) {
			first, err := Normalize(platform, raw)
			require.NoError(t, err)

			second, err := Normalize(platform, first.Record())
			require.NoError(t, err)
			assert.Equal(t, first, second)
		})
	}
}

func TestNormalize_CanonicalJSONReturnedUnchanged(t *testing.T) {
	var rec RawRecord
	require.NoError(t, json.Unmarshal([]byte(`{
		"platform": "youtube",
		"url": "https://www.youtube.com/watch?v=a",
		"title": "Already normalized",
		"snippet": "kept as-is #not_extracted",
		"hashtags": ["given"],
		"engagement": {"views": 10, "likes": null, "comments": 2}
	}`), &rec))

	p, err := Normalize("reddit", rec)
	require.NoError(t, err)

	assert.Equal(t, PlatformYouTube, p.Platform, "canonical platform wins over the argument")
	assert.Equal(t, []string{"given"}, p.Hashtags, "hashtags are not re-derived")
	assert.Equal(t, int64(10), *p.Engagement.Views)
	assert.Nil(t, p.Engagement.Likes)
	assert.Equal(t, int64(2), *p.Engagement.Comments)
}

func TestParseISODuration(t *testing.T) {
	tests := map[string]struct {
		secs int64
		ok   bool
	}{
		"PT15S":    {15, true},
		"PT4M":     {240, true},
		"PT1H2M3S": {3723, true},
		"P1DT1S":   {86401, true},
		"PT":       {0, false},
		"garbage":  {0, false},
	}
	for in, want := range tests {
		secs, ok := ParseISODuration(in)
		assert.Equal(t, want.ok, ok, in)
		assert.Equal(t, want.secs, secs, in)
	}
}

func TestCanonicalPreview_Text(t *testing.T) {
	title := "Title"
	p := CanonicalPreview{Title: &title, Snippet: "snippet", TranscriptSnippet: "spoken"}
	assert.Equal(t, "Title snippet spoken", p.Text())
	assert.Equal(t, "", CanonicalPreview{}.Text())
}
