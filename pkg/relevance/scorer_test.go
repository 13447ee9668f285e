package relevance

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elonfeng/seedradar/pkg/preview"
	"github.com/elonfeng/seedradar/pkg/rankerr"
)

func newTestScorer(t *testing.T, opts ...Option) *Scorer {
	t.Helper()
	s, err := NewScorer(DefaultConfig(), opts...)
	require.NoError(t, err)
	return s
}

func normalized(t *testing.T, platform string, raw preview.RawRecord) *preview.CanonicalPreview {
	t.Helper()
	p, err := preview.Normalize(platform, raw)
	require.NoError(t, err)
	return &p
}

func strPtr(s string) *string { return &s }

func intPtr(n int64) *int64 { return &n }

func TestScorer_MoreOverlapScoresHigher(t *testing.T) {
	s := newTestScorer(t)
	seed := &Seed{Title: "ketamine therapy overview", Description: "mechanisms and safety"}

	low, err := s.Score(seed, normalized(t, "youtube", preview.RawRecord{"title": "gardening tips", "description": "soil and water"}))
	require.NoError(t, err)
	high, err := s.Score(seed, normalized(t, "youtube", preview.RawRecord{"title": "ketamine therapy safety", "description": "mechanisms dosing"}))
	require.NoError(t, err)

	assert.Less(t, low.Score, high.Score)
	assert.Equal(t, 9, low.Score)
	assert.Equal(t, 28, high.Score)
	assert.InDelta(t, 0.102, low.Signals[SignalSemantic], 1e-9)
	assert.InDelta(t, 0.580, high.Signals[SignalSemantic], 1e-9)
	assert.Equal(t, DecisionReject, high.Decision)
}

func TestScorer_ScoreIsBounded(t *testing.T) {
	s := newTestScorer(t)
	seed := &Seed{
		Title:            "podcast interview about sleep science",
		ImportantPhrases: []string{`"sleep science"`, "podcast"},
		Metadata:         SeedMetadata{Hashtags: []string{"sleep"}},
	}

	tests := []struct {
		name    string
		preview *preview.CanonicalPreview
	}{
		{"empty preview", &preview.CanonicalPreview{}},
		{"perfect match", &preview.CanonicalPreview{
			Title:      strPtr("podcast interview about sleep science"),
			Date:       strPtr("2025-01-01T00:00:00Z"),
			Hashtags:   []string{"sleep"},
			Engagement: preview.Engagement{Views: intPtr(math.MaxInt32), Likes: intPtr(10)},
		}},
		{"unrelated", &preview.CanonicalPreview{Title: strPtr("stock market"), Snippet: "quarterly earnings"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := s.Score(seed, tt.preview)
			require.NoError(t, err)

			assert.GreaterOrEqual(t, res.Score, 0)
			assert.LessOrEqual(t, res.Score, 100)
			require.Len(t, res.Signals, 6)
			for _, name := range SignalNames() {
				v, ok := res.Signals[name]
				require.True(t, ok, name)
				assert.GreaterOrEqual(t, v, 0.0, name)
				assert.LessOrEqual(t, v, 1.0, name)
			}
		})
	}

	res, err := s.Score(seed, tests[1].preview)
	require.NoError(t, err)
	assert.Equal(t, 100, res.Score)
	assert.Equal(t, DecisionKeep, res.Decision)
}

func TestScorer_EmptyPhrasesAndHashtagsScoreZero(t *testing.T) {
	s := newTestScorer(t)
	seed := &Seed{Title: "anything"}

	res, err := s.Score(seed, &preview.CanonicalPreview{Title: strPtr("anything"), Hashtags: []string{"x"}})
	require.NoError(t, err)

	assert.Equal(t, 0.0, res.Signals[SignalLexical])
	assert.Equal(t, 0.0, res.Signals[SignalHashtag])
}

func TestScorer_NilArguments(t *testing.T) {
	s := newTestScorer(t)

	_, err := s.Score(nil, &preview.CanonicalPreview{})
	assert.True(t, errors.Is(err, rankerr.ErrInvalidInput))

	_, err = s.Score(&Seed{}, nil)
	assert.True(t, errors.Is(err, rankerr.ErrInvalidInput))
}

func TestScorer_DecisionBoundaries(t *testing.T) {
	s := newTestScorer(t)

	assert.Equal(t, DecisionKeep, s.Decide(100))
	assert.Equal(t, DecisionKeep, s.Decide(65))
	assert.Equal(t, DecisionConsider, s.Decide(64))
	assert.Equal(t, DecisionConsider, s.Decide(50))
	assert.Equal(t, DecisionReject, s.Decide(49))
	assert.Equal(t, DecisionReject, s.Decide(0))
}

func TestScorer_CalibratedKeepThreshold(t *testing.T) {
	cfg := DefaultConfig()
	cfg.KeepThreshold = 57.5
	s, err := NewScorer(cfg)
	require.NoError(t, err)

	assert.Equal(t, DecisionKeep, s.Decide(58))
	assert.Equal(t, DecisionConsider, s.Decide(57))
}

func TestScorer_Deterministic(t *testing.T) {
	s := newTestScorer(t)
	seed := &Seed{Title: "rTMS vs tDCS for depression", ImportantPhrases: []string{"tdcs"}}
	p := normalized(t, "reddit", preview.RawRecord{"title": "tDCS results", "selftext": "my depression news", "score": float64(300)})

	first, err := s.Score(seed, p)
	require.NoError(t, err)
	second, err := s.Score(seed, p)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestScorer_Signals(t *testing.T) {
	s := newTestScorer(t)
	seed := &Seed{
		Title:            "sleep",
		ImportantPhrases: []string{`"deep sleep"`, "missing phrase"},
		Metadata:         SeedMetadata{Hashtags: []string{"#Sleep", "science"}},
	}
	p := &preview.CanonicalPreview{
		Title:      strPtr("Deep Sleep explainer"),
		Hashtags:   []string{"sleep", "other"},
		Engagement: preview.Engagement{Views: intPtr(4000), Comments: intPtr(1000)},
	}

	res, err := s.Score(seed, p)
	require.NoError(t, err)

	assert.Equal(t, 0.5, res.Signals[SignalLexical])
	assert.Equal(t, 0.5, res.Signals[SignalHashtag])
	assert.Equal(t, 1.0, res.Signals[SignalMedia])
	assert.Equal(t, 0.5, res.Signals[SignalFreshness])
	assert.Equal(t, 0.5, res.Signals[SignalEngagement])

	p.Date = strPtr("2025-01-01T00:00:00Z")
	p.Engagement = preview.Engagement{}
	res, err = s.Score(seed, p)
	require.NoError(t, err)
	assert.Equal(t, 1.0, res.Signals[SignalFreshness])
	assert.Equal(t, 0.0, res.Signals[SignalEngagement], "absent counters contribute nothing")
}

type fixedSimilarity float64

func (f fixedSimilarity) Similarity(string, string) float64 { return float64(f) }

func TestScorer_WithSimilarityIsClamped(t *testing.T) {
	seed := &Seed{Title: "x"}
	p := &preview.CanonicalPreview{Title: strPtr("y")}

	res, err := newTestScorer(t, WithSimilarity(fixedSimilarity(3))).Score(seed, p)
	require.NoError(t, err)
	assert.Equal(t, 1.0, res.Signals[SignalSemantic])

	res, err = newTestScorer(t, WithSimilarity(fixedSimilarity(math.NaN()))).Score(seed, p)
	require.NoError(t, err)
	assert.Equal(t, 0.0, res.Signals[SignalSemantic])
}

func TestScorer_ScoreRaw(t *testing.T) {
	s := newTestScorer(t)

	p, res, err := s.ScoreRaw(&Seed{Title: "sourdough baking"}, "youtube", preview.RawRecord{
		"id":    "v",
		"title": "Sourdough baking tutorial",
	})
	require.NoError(t, err)
	assert.Equal(t, preview.PlatformYouTube, p.Platform)
	assert.Equal(t, 1.0, res.Signals[SignalMedia])

	_, _, err = s.ScoreRaw(&Seed{}, "youtube", nil)
	assert.True(t, errors.Is(err, rankerr.ErrInvalidInput))
}

func TestTFIDFCosine(t *testing.T) {
	sim := TFIDFCosine{}

	assert.Equal(t, 0.0, sim.Similarity("", "text"))
	assert.Equal(t, 0.0, sim.Similarity("text", ""))
	assert.Equal(t, 0.0, sim.Similarity("a ! ?", "b"), "single-character tokens are dropped")
	assert.Equal(t, 0.0, sim.Similarity("alpha beta", "gamma delta"))
	assert.InDelta(t, 1.0, sim.Similarity("same words here", "Same, words here!"), 1e-12)
	assert.InDelta(t, sim.Similarity("one two three", "two four"), sim.Similarity("two four", "one two three"), 1e-12)
}
