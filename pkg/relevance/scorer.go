// Package relevance scores content previews against a seed topic profile
// using six bounded signals combined by a validated weight vector.
package relevance

import (
	"fmt"
	"math"

	"github.com/elonfeng/seedradar/pkg/preview"
	"github.com/elonfeng/seedradar/pkg/rankerr"
)

// Decision is the discrete outcome derived from a score.
type Decision string

const (
	DecisionKeep     Decision = "keep"
	DecisionConsider Decision = "consider"
	DecisionReject   Decision = "reject"
)

// ScoreResult is the output of scoring one seed/preview pair.
type ScoreResult struct {
	Score    int                `json:"score"`
	Decision Decision           `json:"decision"`
	Signals  map[string]float64 `json:"signals"`
}

// Scorer is safe for concurrent use; it holds only immutable configuration.
type Scorer struct {
	cfg        Config
	similarity Similarity
}

// Option customizes a Scorer.
type Option func(*Scorer)

// WithSimilarity replaces the TF-IDF baseline with another model.
func WithSimilarity(sim Similarity) Option {
	return func(s *Scorer) {
		if sim != nil {
			s.similarity = sim
		}
	}
}

// NewScorer validates cfg and returns a Scorer.
func NewScorer(cfg Config, opts ...Option) (*Scorer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("new scorer: %w", err)
	}
	s := &Scorer{
		cfg:        cfg,
		similarity: TFIDFCosine{MaxFeatures: DefaultMaxFeatures},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Config returns the configuration the scorer was built with.
func (s *Scorer) Config() Config {
	return s.cfg
}

// Score computes the relevance of p to seed. Missing optional fields degrade
// the affected signal to zero; only a nil seed or preview is an error.
func (s *Scorer) Score(seed *Seed, p *preview.CanonicalPreview) (ScoreResult, error) {
	if seed == nil {
		return ScoreResult{}, fmt.Errorf("score preview: nil seed: %w", rankerr.ErrInvalidInput)
	}
	if p == nil {
		return ScoreResult{}, fmt.Errorf("score preview: nil preview: %w", rankerr.ErrInvalidInput)
	}

	text := p.Text()
	sig := signals{
		semantic:   clamp01(s.similarity.Similarity(seed.Text(), text)),
		lexical:    lexicalOverlap(seed.ImportantPhrases, text),
		hashtag:    hashtagOverlap(seed.hashtagSet(), p.Hashtags),
		media:      mediaMatch(text),
		freshness:  freshness(p),
		engagement: engagement(p.Engagement, s.cfg.EngagementSaturation),
	}

	score := int(sig.combine(s.cfg.Weights) * 100)
	score = max(0, min(100, score))

	return ScoreResult{
		Score:    score,
		Decision: s.Decide(score),
		Signals:  sig.asMap(),
	}, nil
}

// ScoreRaw normalizes a raw provider record and scores it.
func (s *Scorer) ScoreRaw(seed *Seed, platform string, raw preview.RawRecord) (preview.CanonicalPreview, ScoreResult, error) {
	p, err := preview.Normalize(platform, raw)
	if err != nil {
		return preview.CanonicalPreview{}, ScoreResult{}, err
	}
	res, err := s.Score(seed, &p)
	return p, res, err
}

// Decide maps a 0-100 score to a decision using the configured cut-points.
func (s *Scorer) Decide(score int) Decision {
	return Decide(float64(score), s.cfg.KeepThreshold, s.cfg.ConsiderThreshold)
}

// Decide is monotone in score: keep at or above keep, consider at or above
// consider, reject below.
func Decide(score, keep, consider float64) Decision {
	switch {
	case math.IsNaN(score):
		return DecisionReject
	case score >= keep:
		return DecisionKeep
	case score >= consider:
		return DecisionConsider
	}
	return DecisionReject
}
