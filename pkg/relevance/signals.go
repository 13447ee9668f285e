package relevance

import (
	"math"
	"strings"

	"github.com/elonfeng/seedradar/pkg/preview"
)

// Signal names, in the order they are reported.
const (
	SignalSemantic   = "semantic_similarity"
	SignalLexical    = "lexical_overlap"
	SignalHashtag    = "hashtag_overlap"
	SignalMedia      = "media_match"
	SignalFreshness  = "freshness"
	SignalEngagement = "engagement"
)

// SignalNames returns the six signal names.
func SignalNames() []string {
	return []string{SignalSemantic, SignalLexical, SignalHashtag, SignalMedia, SignalFreshness, SignalEngagement}
}

// MediaKeywords mark previews whose format suits the seed's media types.
var MediaKeywords = []string{"podcast", "interview", "tutorial", "how-to", "review", "news", "explainer"}

// signals holds the six raw values, each in [0,1].
type signals struct {
	semantic   float64
	lexical    float64
	hashtag    float64
	media      float64
	freshness  float64
	engagement float64
}

func (s signals) combine(w Weights) float64 {
	return w.Semantic*s.semantic +
		w.Lexical*s.lexical +
		w.Hashtag*s.hashtag +
		w.Media*s.media +
		w.Freshness*s.freshness +
		w.Engagement*s.engagement
}

func (s signals) asMap() map[string]float64 {
	return map[string]float64{
		SignalSemantic:   round3(s.semantic),
		SignalLexical:    round3(s.lexical),
		SignalHashtag:    round3(s.hashtag),
		SignalMedia:      round3(s.media),
		SignalFreshness:  round3(s.freshness),
		SignalEngagement: round3(s.engagement),
	}
}

// lexicalOverlap is the fraction of important phrases found in text.
func lexicalOverlap(phrases []string, text string) float64 {
	if len(phrases) == 0 {
		return 0
	}
	lower := strings.ToLower(text)
	hits := 0
	for _, p := range phrases {
		p = strings.Trim(p, `"`)
		if p != "" && strings.Contains(lower, strings.ToLower(p)) {
			hits++
		}
	}
	return float64(hits) / float64(len(phrases))
}

// hashtagOverlap is |seed ∩ preview| / |seed|.
func hashtagOverlap(seedTags map[string]bool, previewTags []string) float64 {
	if len(seedTags) == 0 {
		return 0
	}
	shared := make(map[string]bool)
	for _, t := range previewTags {
		if seedTags[t] {
			shared[t] = true
		}
	}
	return float64(len(shared)) / float64(len(seedTags))
}

func mediaMatch(text string) float64 {
	lower := strings.ToLower(text)
	for _, kw := range MediaKeywords {
		if strings.Contains(lower, kw) {
			return 1
		}
	}
	return 0
}

// freshness is binary: a dated preview scores 1, an undated one 0.5.
func freshness(p *preview.CanonicalPreview) float64 {
	if p.Date != nil && *p.Date != "" {
		return 1
	}
	return 0.5
}

// engagement sums the present counters under one linear cap. Views and
// likes have very different natural scales; this is a known simplification.
func engagement(e preview.Engagement, saturation float64) float64 {
	total, known := e.TotalEngagement()
	if !known {
		return 0
	}
	return clamp01(float64(total) / saturation)
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
