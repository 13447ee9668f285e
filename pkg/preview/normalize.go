package preview

import (
	"fmt"
	"strings"

	"github.com/elonfeng/seedradar/pkg/rankerr"
)

// Mapper maps one platform's raw payload shape into a CanonicalPreview.
// Supporting a new platform means adding a Mapper, not editing Normalize.
type Mapper interface {
	Platform() Platform
	Map(raw RawRecord) CanonicalPreview
}

// MapperFor returns the mapper variant for a platform name. Unknown
// platforms get the generic best-effort mapper.
func MapperFor(platform string) Mapper {
	p := strings.ToLower(strings.TrimSpace(platform))
	switch p {
	case "youtube", "yt":
		return youtubeMapper{}
	case "reddit":
		return redditMapper{}
	case "":
		return genericMapper{platform: PlatformUnknown}
	}
	return genericMapper{platform: Platform(p)}
}

// Normalize converts a platform-native raw record into the canonical
// schema. A record that is already canonical is returned unchanged.
func Normalize(platform string, raw RawRecord) (CanonicalPreview, error) {
	if raw == nil {
		return CanonicalPreview{}, fmt.Errorf("normalize %s preview: nil record: %w", platform, rankerr.ErrInvalidInput)
	}
	if IsCanonical(raw) {
		return fromCanonical(raw), nil
	}
	return MapperFor(platform).Map(raw), nil
}

// IsCanonical reports whether raw already has the canonical shape: the
// platform, url and title keys are present and platform is set.
func IsCanonical(raw RawRecord) bool {
	p, hasPlatform := raw["platform"]
	_, hasURL := raw["url"]
	_, hasTitle := raw["title"]
	return hasPlatform && p != nil && hasURL && hasTitle
}

// fromCanonical reads a canonical record without re-deriving any field.
func fromCanonical(rec RawRecord) CanonicalPreview {
	platform, _ := stringField(rec["platform"])
	p := CanonicalPreview{
		Platform: Platform(platform),
		URL:      optString(stringField(rec["url"])),
		Title:    optString(stringField(rec["title"])),
		Author:   optString(stringField(rec["author"])),
		Date:     optString(stringField(rec["date"])),
		Hashtags: stringList(rec["hashtags"]),
		Raw:      record(rec["raw"]),
	}
	p.Snippet, _ = stringField(rec["snippet"])
	p.TranscriptSnippet, _ = stringField(rec["transcript_snippet"])
	if p.Hashtags == nil {
		p.Hashtags = []string{}
	}
	if eng := record(rec["engagement"]); eng != nil {
		p.Engagement = Engagement{
			Views:    counter(eng["views"]),
			Likes:    counter(eng["likes"]),
			Comments: counter(eng["comments"]),
		}
	}
	if media := record(rec["media"]); media != nil {
		if b, ok := boolField(media["has_video"]); ok {
			p.Media.HasVideo = &b
		}
		p.Media.DurationSec = counter(media["duration_sec"])
	}
	return p
}
