package preview

import (
	"fmt"
	"regexp"
	"strconv"
)

// youtubeMapper accepts the merged item shape the YouTube provider emits:
// search snippet plus videos.list statistics and contentDetails.
type youtubeMapper struct{}

func (youtubeMapper) Platform() Platform { return PlatformYouTube }

func (youtubeMapper) Map(raw RawRecord) CanonicalPreview {
	snippet := record(raw["snippet"])
	stats := record(raw["statistics"])
	content := record(raw["contentDetails"])

	p := CanonicalPreview{
		Platform: PlatformYouTube,
		Raw:      raw,
	}

	if id, ok := youtubeVideoID(raw); ok {
		u := fmt.Sprintf("https://www.youtube.com/watch?v=%s", id)
		p.URL = &u
	}

	title, hasTitle := coalesce(raw["title"], snippet["title"])
	desc, _ := coalesce(raw["description"], snippet["description"])
	p.Title = optString(title, hasTitle)
	p.Snippet = truncateRunes(desc, SnippetMaxLen)
	p.Author = optString(coalesce(raw["channelTitle"], snippet["channelTitle"]))

	if published, ok := coalesce(raw["publishedAt"], snippet["publishedAt"]); ok {
		d := isoDate(published)
		p.Date = &d
	}

	p.Hashtags = ExtractHashtags(title, desc)
	p.Engagement = Engagement{
		Views:    counter(stats["viewCount"]),
		Likes:    counter(stats["likeCount"]),
		Comments: counter(stats["commentCount"]),
	}

	hasVideo := true
	p.Media.HasVideo = &hasVideo
	p.Media.DurationSec = counter(raw["durationSec"])
	if p.Media.DurationSec == nil {
		if iso, ok := stringField(content["duration"]); ok {
			if secs, ok := ParseISODuration(iso); ok {
				p.Media.DurationSec = &secs
			}
		}
	}
	return p
}

// youtubeVideoID reads the id from the flattened shape ("id" or "videoId")
// or from a search result where "id" is an object.
func youtubeVideoID(raw RawRecord) (string, bool) {
	if id, ok := coalesce(raw["id"], raw["videoId"]); ok {
		return id, true
	}
	if idObj := record(raw["id"]); idObj != nil {
		return stringField(idObj["videoId"])
	}
	return "", false
}

var isoDurationRE = regexp.MustCompile(`^P(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?)?$`)

// ParseISODuration converts a YouTube contentDetails duration such as
// "PT1H2M3S" into seconds.
func ParseISODuration(s string) (int64, bool) {
	m := isoDurationRE.FindStringSubmatch(s)
	if m == nil || s == "P" || s == "PT" {
		return 0, false
	}
	var total int64
	for i, unit := range []int64{86400, 3600, 60, 1} {
		if m[i+1] == "" {
			continue
		}
		n, err := strconv.ParseInt(m[i+1], 10, 64)
		if err != nil {
			return 0, false
		}
		total += n * unit
	}
	return total, true
}
