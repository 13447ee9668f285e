// Package query turns a seed profile into per-platform search strings.
package query

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/elonfeng/seedradar/pkg/relevance"
)

// Platforms lists the platforms queries are generated for, highest priority
// first.
var Platforms = []string{
	"youtube", "reddit", "bluesky", "mastodon", "spotify",
	"apple podcasts", "instagram", "threads", "facebook", "x",
}

const (
	maxPhrases          = 6
	sentencesPerField   = 3
	minSentenceWords    = 4
	topTermsPerSeed     = 10
	fallbackPhraseRunes = 80
)

var (
	termPattern   = regexp.MustCompile(`[A-Za-z0-9#@']{2,}`)
	sentenceBreak = regexp.MustCompile(`[.!?]\s+`)
)

var stopwords = map[string]bool{
	"the": true, "and": true, "a": true, "an": true, "to": true, "in": true, "on": true,
	"of": true, "for": true, "with": true, "is": true, "this": true, "that": true,
	"it": true, "by": true, "be": true, "are": true, "as": true, "at": true,
}

// QuerySet is the three query variants produced for one platform.
type QuerySet struct {
	Platform      string `json:"platform" yaml:"platform"`
	Precise       string `json:"precise" yaml:"precise"`
	Broad         string `json:"broad" yaml:"broad"`
	HashtagPhrase string `json:"hashtag_phrase" yaml:"hashtag_phrase"`
}

// Queries returns the non-empty variants, precise first.
func (q QuerySet) Queries() []string {
	var out []string
	seen := make(map[string]bool)
	for _, s := range []string{q.Precise, q.Broad, q.HashtagPhrase} {
		if s != "" && !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

// Options tunes query generation. The zero value is the default.
type Options struct {
	// OmitAuthor disables the from:<author> prefix on precise queries.
	OmitAuthor bool
}

// NormalizeText lowercases s, drops punctuation other than '-' and '+', and
// collapses whitespace.
func NormalizeText(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case r == '\'' || r == '’':
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '+':
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// TopTerms returns up to k terms of text ordered by descending frequency,
// ties kept in order of first appearance. Stopwords and bare numbers are
// skipped.
func TopTerms(text string, k int) []string {
	counts := make(map[string]int)
	var order []string
	for _, tok := range termPattern.FindAllString(text, -1) {
		tok = strings.ToLower(tok)
		if stopwords[tok] || isDigits(tok) {
			continue
		}
		if counts[tok] == 0 {
			order = append(order, tok)
		}
		counts[tok]++
	}
	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	if len(order) > k {
		order = order[:k]
	}
	return order
}

// PhraseCandidates picks representative phrases from a seed: the title, then
// up to three sentences of at least four words from each long-form field.
func PhraseCandidates(seed *relevance.Seed) []string {
	var raw []string
	if seed.Title != "" {
		raw = append(raw, seed.Title)
	}
	for _, field := range []string{seed.Description, seed.Transcript, seed.OCR, seed.Body} {
		if field == "" {
			continue
		}
		taken := 0
		for _, s := range sentenceBreak.Split(field, -1) {
			if taken == sentencesPerField {
				break
			}
			if len(strings.Fields(s)) >= minSentenceWords {
				raw = append(raw, s)
				taken++
			}
		}
	}

	out := make([]string, 0, maxPhrases)
	seen := make(map[string]bool)
	for _, p := range raw {
		p = NormalizeText(p)
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
		if len(out) == maxPhrases {
			break
		}
	}
	return out
}

// ForPlatform builds the precise, broad and hashtag queries for one
// platform. Unknown platforms get the generic templates.
func ForPlatform(seed *relevance.Seed, platform string, opts Options) QuerySet {
	title := NormalizeText(seed.Title)
	phrases := PhraseCandidates(seed)
	combined := collapse(strings.Join([]string{seed.Title, seed.Description, seed.Transcript, seed.OCR, seed.Body}, " "))
	terms := TopTerms(combined, topTermsPerSeed)
	tags := seed.Metadata.Hashtags

	fallback := NormalizeText(truncate(combined, fallbackPhraseRunes))
	if len(phrases) > 0 {
		fallback = phrases[0]
	}
	titleFirst := quoted(firstNonEmpty(title, fallback))

	q := QuerySet{Platform: strings.ToLower(platform)}
	switch q.Platform {
	case "youtube":
		q.Precise = titleFirst
		q.Broad = strings.Join(head(terms, 6), " ")
		q.HashtagPhrase = strings.Join(head(bare(tags), 3), " ")
		if title != "" {
			q.HashtagPhrase = joinQuery(q.HashtagPhrase, q.Precise)
		}
	case "reddit":
		q.Precise = titleFirst
		if title != "" {
			q.Precise = "title:" + quoted(title)
		}
		q.Broad = strings.Join(head(terms, 8), " OR ")
		q.HashtagPhrase = strings.Join(head(hashed(tags), 4), " ")
		if title != "" {
			q.HashtagPhrase = joinQuery(q.HashtagPhrase, q.Precise)
		}
	case "bluesky", "mastodon":
		q.Precise = quoted(firstNonEmpty(fallback, title))
		q.Broad = strings.Join(head(terms, 8), " ")
		q.HashtagPhrase = strings.Join(head(hashed(tags), 6), " ")
	case "spotify", "apple podcasts":
		q.Precise = titleFirst
		q.Broad = strings.Join(head(terms, 10), " ")
	case "x", "twitter":
		q.Precise = titleFirst
		q.Broad = strings.Join(head(terms, 8), " OR ")
		q.HashtagPhrase = strings.Join(head(hashed(tags), 6), " ")
	case "instagram", "threads", "facebook":
		q.Precise = titleFirst
		q.Broad = strings.Join(head(terms, 8), " ")
		q.HashtagPhrase = strings.Join(head(hashed(tags), 6), " ")
	default:
		q.Precise = titleFirst
		q.Broad = strings.Join(head(terms, 8), " ")
		q.HashtagPhrase = strings.Join(head(hashed(tags), 4), " ")
	}

	if author := strings.TrimSpace(seed.Metadata.Author); author != "" && !opts.OmitAuthor {
		q.Precise = joinQuery("from:"+author, q.Precise)
	}
	return q
}

// ForPlatforms builds query sets for each platform in order.
func ForPlatforms(seed *relevance.Seed, platforms []string, opts Options) []QuerySet {
	out := make([]QuerySet, 0, len(platforms))
	for _, p := range platforms {
		out = append(out, ForPlatform(seed, p, opts))
	}
	return out
}

func quoted(s string) string {
	if s == "" {
		return ""
	}
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}

func joinQuery(parts ...string) string {
	return collapse(strings.Join(parts, " "))
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func head(list []string, n int) []string {
	if len(list) > n {
		return list[:n]
	}
	return list
}

func bare(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = strings.TrimPrefix(strings.TrimSpace(t), "#"); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func hashed(tags []string) []string {
	out := bare(tags)
	for i, t := range out {
		out[i] = "#" + t
	}
	return out
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		r = r[:n]
	}
	return string(r)
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
