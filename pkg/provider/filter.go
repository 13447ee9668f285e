package provider

import (
	"regexp"
	"strings"
)

var (
	quotedPhrase = regexp.MustCompile(`"((?:[^"\\]|\\.)*)"`)
	operatorWord = regexp.MustCompile(`^(?i:or|and|not)$`)
)

// Filter matches text against include and exclude keyword lists.
type Filter struct {
	keywords []string
	exclude  []string
}

// NewFilter creates a case-insensitive filter. A filter without keywords
// matches everything that is not excluded.
func NewFilter(keywords, excludeKeywords []string) *Filter {
	return &Filter{keywords: lowerAll(keywords), exclude: lowerAll(excludeKeywords)}
}

// Matches reports whether text contains any keyword and no excluded one.
func (f *Filter) Matches(text string) bool {
	lower := strings.ToLower(text)

	for _, ex := range f.exclude {
		if strings.Contains(lower, ex) {
			return false
		}
	}
	if len(f.keywords) == 0 {
		return true
	}
	for _, kw := range f.keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// KeywordsFromQuery turns a search query into filter keywords. Quoted
// phrases are kept whole; operators, hashtag marks and search prefixes such
// as title: or from:<author> are dropped, as are words shorter than three
// characters.
func KeywordsFromQuery(query string) []string {
	var out []string
	for _, m := range quotedPhrase.FindAllStringSubmatch(query, -1) {
		if p := strings.TrimSpace(strings.ReplaceAll(m[1], `\"`, `"`)); p != "" {
			out = append(out, p)
		}
	}
	rest := quotedPhrase.ReplaceAllString(query, " ")
	for _, w := range strings.Fields(rest) {
		if strings.HasPrefix(w, "from:") || operatorWord.MatchString(w) {
			continue
		}
		w = strings.TrimPrefix(w, "title:")
		w = strings.TrimLeft(w, "#@")
		if len([]rune(w)) >= 3 {
			out = append(out, w)
		}
	}
	return out
}

func lowerAll(list []string) []string {
	out := make([]string, 0, len(list))
	for _, s := range list {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}
