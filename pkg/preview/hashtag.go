package preview

import (
	"regexp"
	"strings"
)

// MaxHashtags caps how many hashtags a preview keeps.
const MaxHashtags = 30

// hashtagRE matches '#' at the start of the text or after a separator,
// followed by 2-50 word characters.
var hashtagRE = regexp.MustCompile(`(?:^|[\s()\[\]{}.,!?;:'"/\\-])#([A-Za-z0-9_]{2,50})`)

// ExtractHashtags returns the lowercase hashtags found across texts in
// first-seen order, without duplicates and capped at MaxHashtags.
func ExtractHashtags(texts ...string) []string {
	seen := make(map[string]bool)
	tags := []string{}
	for _, text := range texts {
		if text == "" {
			continue
		}
		for _, m := range hashtagRE.FindAllStringSubmatch(text, -1) {
			tag := strings.ToLower(m[1])
			if seen[tag] {
				continue
			}
			seen[tag] = true
			tags = append(tags, tag)
		}
	}
	if len(tags) > MaxHashtags {
		tags = tags[:MaxHashtags]
	}
	return tags
}
