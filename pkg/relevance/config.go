package relevance

import (
	"fmt"
	"math"

	"github.com/elonfeng/seedradar/pkg/rankerr"
)

// WeightTolerance is how far the weight sum may drift from 1.0.
const WeightTolerance = 1e-6

// Weights is the linear combination applied to the six signals.
type Weights struct {
	Semantic   float64 `json:"semantic" yaml:"semantic"`
	Lexical    float64 `json:"lexical" yaml:"lexical"`
	Hashtag    float64 `json:"hashtag" yaml:"hashtag"`
	Media      float64 `json:"media" yaml:"media"`
	Freshness  float64 `json:"freshness" yaml:"freshness"`
	Engagement float64 `json:"engagement" yaml:"engagement"`
}

// DefaultWeights returns 0.40/0.20/0.10/0.10/0.10/0.10.
func DefaultWeights() Weights {
	return Weights{
		Semantic:   0.40,
		Lexical:    0.20,
		Hashtag:    0.10,
		Media:      0.10,
		Freshness:  0.10,
		Engagement: 0.10,
	}
}

// Sum returns the total weight.
func (w Weights) Sum() float64 {
	return w.Semantic + w.Lexical + w.Hashtag + w.Media + w.Freshness + w.Engagement
}

// Validate checks that every weight is a finite non-negative number and
// that they sum to 1.
func (w Weights) Validate() error {
	named := map[string]float64{
		SignalSemantic:   w.Semantic,
		SignalLexical:    w.Lexical,
		SignalHashtag:    w.Hashtag,
		SignalMedia:      w.Media,
		SignalFreshness:  w.Freshness,
		SignalEngagement: w.Engagement,
	}
	for _, name := range SignalNames() {
		v := named[name]
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return fmt.Errorf("weight %s = %v: %w", name, v, rankerr.ErrInvalidConfiguration)
		}
	}
	if sum := w.Sum(); math.Abs(sum-1) > WeightTolerance {
		return fmt.Errorf("weights sum to %.9f, want 1: %w", sum, rankerr.ErrInvalidConfiguration)
	}
	return nil
}

// Config is the scorer configuration. It is built once at startup and
// passed to NewScorer; scoring code never reads the environment.
type Config struct {
	Weights Weights `json:"weights" yaml:"weights"`

	// KeepThreshold and ConsiderThreshold are cut-points on the 0-100 scale.
	KeepThreshold     float64 `json:"keep_threshold" yaml:"keep_threshold"`
	ConsiderThreshold float64 `json:"consider_threshold" yaml:"consider_threshold"`

	// EngagementSaturation is the summed counter value that maps to 1.0.
	EngagementSaturation float64 `json:"engagement_saturation" yaml:"engagement_saturation"`

	// FreshnessHalfLifeDays is accepted and validated but not used:
	// freshness is binary until a decay function is settled.
	FreshnessHalfLifeDays float64 `json:"freshness_half_life_days" yaml:"freshness_half_life_days"`
}

// DefaultConfig returns the baseline weights with cut-points 65/50.
func DefaultConfig() Config {
	return Config{
		Weights:               DefaultWeights(),
		KeepThreshold:         65,
		ConsiderThreshold:     50,
		EngagementSaturation:  10000,
		FreshnessHalfLifeDays: 14,
	}
}

// Validate fails fast with rankerr.ErrInvalidConfiguration.
func (c Config) Validate() error {
	if err := c.Weights.Validate(); err != nil {
		return err
	}
	if math.IsNaN(c.KeepThreshold) || math.IsNaN(c.ConsiderThreshold) ||
		c.ConsiderThreshold < 0 || c.KeepThreshold > 100 || c.ConsiderThreshold > c.KeepThreshold {
		return fmt.Errorf("thresholds consider=%v keep=%v must satisfy 0 <= consider <= keep <= 100: %w",
			c.ConsiderThreshold, c.KeepThreshold, rankerr.ErrInvalidConfiguration)
	}
	if !(c.EngagementSaturation > 0) || math.IsInf(c.EngagementSaturation, 0) {
		return fmt.Errorf("engagement saturation %v must be positive: %w", c.EngagementSaturation, rankerr.ErrInvalidConfiguration)
	}
	if c.FreshnessHalfLifeDays < 0 || math.IsNaN(c.FreshnessHalfLifeDays) {
		return fmt.Errorf("freshness half-life %v must not be negative: %w", c.FreshnessHalfLifeDays, rankerr.ErrInvalidConfiguration)
	}
	return nil
}
