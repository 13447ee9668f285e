package relevance

import "strings"

// Seed is a topic profile an operator wants matching content for. It is
// treated as immutable for the duration of a scoring pass.
type Seed struct {
	ID               string       `json:"id,omitempty" yaml:"id,omitempty"`
	Title            string       `json:"title,omitempty" yaml:"title,omitempty"`
	Description      string       `json:"description,omitempty" yaml:"description,omitempty"`
	Transcript       string       `json:"transcript,omitempty" yaml:"transcript,omitempty"`
	OCR              string       `json:"ocr,omitempty" yaml:"ocr,omitempty"`
	Body             string       `json:"body,omitempty" yaml:"body,omitempty"`
	ImportantPhrases []string     `json:"important_phrases,omitempty" yaml:"important_phrases,omitempty"`
	Metadata         SeedMetadata `json:"metadata" yaml:"metadata"`
}

// SeedMetadata carries the seed's hashtags (lowercase, no '#'), author and
// language.
type SeedMetadata struct {
	Hashtags []string `json:"hashtags,omitempty" yaml:"hashtags,omitempty"`
	Author   string   `json:"author,omitempty" yaml:"author,omitempty"`
	Language string   `json:"language,omitempty" yaml:"language,omitempty"`
}

// Text is the document the seed contributes to semantic similarity.
func (s *Seed) Text() string {
	var parts []string
	for _, p := range []string{s.Title, s.Description, s.Transcript} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

// hashtagSet returns the seed hashtags as a set, tolerating a leading '#'
// or mixed case from hand-written seeds.
func (s *Seed) hashtagSet() map[string]bool {
	set := make(map[string]bool, len(s.Metadata.Hashtags))
	for _, h := range s.Metadata.Hashtags {
		h = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(h), "#"))
		if h != "" {
			set[h] = true
		}
	}
	return set
}
