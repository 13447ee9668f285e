// Package calibrate sweeps keep-thresholds over a hand-labeled devset and
// recommends an operating point for the scorer.
package calibrate

import (
	"fmt"
	"math"

	"github.com/elonfeng/seedradar/pkg/rankerr"
)

const (
	// GridSteps is the number of intervals in a non-degenerate sweep, which
	// therefore has GridSteps+1 points.
	GridSteps = 100

	// DegenerateEpsilon spaces the three points used when every score is equal.
	DegenerateEpsilon = 1e-6
)

// LabeledSample is one annotated score. GoldKeep is 1 for relevant, 0 for not.
type LabeledSample struct {
	Score    float64 `json:"score"`
	GoldKeep int     `json:"gold_keep"`
}

// SweepPoint holds the metrics for one candidate threshold.
type SweepPoint struct {
	Threshold float64 `json:"threshold"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
}

// Summary holds the threshold-independent metrics and the recommendation.
// ROCAUC and AveragePrecision are NaN when undefined for the sample.
type Summary struct {
	Samples          int        `json:"samples"`
	Positives        int        `json:"positives"`
	ROCAUC           float64    `json:"roc_auc"`
	AveragePrecision float64    `json:"average_precision"`
	Recommended      SweepPoint `json:"recommended"`
}

// Sweep evaluates precision, recall and F1 across the threshold grid and
// picks the recommended threshold. Samples without a 0/1 label or with a
// non-finite score are ignored.
func Sweep(samples []LabeledSample) (Summary, []SweepPoint, error) {
	scores, labels := usable(samples)
	if len(scores) == 0 {
		return Summary{}, nil, fmt.Errorf("sweep thresholds: no samples with gold_keep in {0,1} and a valid score: %w",
			rankerr.ErrInsufficientData)
	}

	points := make([]SweepPoint, 0, GridSteps+1)
	for _, t := range Grid(scores) {
		points = append(points, evaluate(t, scores, labels))
	}

	positives := 0
	for _, y := range labels {
		positives += y
	}

	summary := Summary{
		Samples:          len(scores),
		Positives:        positives,
		ROCAUC:           ROCAUC(scores, labels),
		AveragePrecision: AveragePrecision(scores, labels),
		Recommended:      Recommend(points),
	}
	return summary, points, nil
}

// Grid returns the candidate thresholds: 101 evenly spaced points over
// [min, max], or three points straddling the value when all scores match.
func Grid(scores []float64) []float64 {
	if len(scores) == 0 {
		return nil
	}
	lo, hi := scores[0], scores[0]
	for _, s := range scores[1:] {
		lo = math.Min(lo, s)
		hi = math.Max(hi, s)
	}
	if hi <= lo {
		return []float64{lo - DegenerateEpsilon, lo, lo + DegenerateEpsilon}
	}
	step := (hi - lo) / GridSteps
	grid := make([]float64, GridSteps+1)
	for i := range grid {
		grid[i] = lo + float64(i)*step
	}
	grid[GridSteps] = hi
	return grid
}

// Recommend returns the point with the highest F1, breaking ties by higher
// precision and then by the higher (more conservative) threshold.
func Recommend(points []SweepPoint) SweepPoint {
	var best SweepPoint
	for i, p := range points {
		if i == 0 || better(p, best) {
			best = p
		}
	}
	return best
}

func better(a, b SweepPoint) bool {
	if a.F1 != b.F1 {
		return a.F1 > b.F1
	}
	if a.Precision != b.Precision {
		return a.Precision > b.Precision
	}
	return a.Threshold > b.Threshold
}

func usable(samples []LabeledSample) ([]float64, []int) {
	scores := make([]float64, 0, len(samples))
	labels := make([]int, 0, len(samples))
	for _, s := range samples {
		if s.GoldKeep != 0 && s.GoldKeep != 1 {
			continue
		}
		if math.IsNaN(s.Score) || math.IsInf(s.Score, 0) {
			continue
		}
		scores = append(scores, s.Score)
		labels = append(labels, s.GoldKeep)
	}
	return scores, labels
}

// evaluate predicts keep iff score >= t. Undefined ratios count as 0.
func evaluate(t float64, scores []float64, labels []int) SweepPoint {
	var tp, fp, fn int
	for i, s := range scores {
		predicted := s >= t
		switch {
		case predicted && labels[i] == 1:
			tp++
		case predicted:
			fp++
		case labels[i] == 1:
			fn++
		}
	}
	return SweepPoint{
		Threshold: t,
		Precision: ratio(tp, tp+fp),
		Recall:    ratio(tp, tp+fn),
		F1:        ratio(2*tp, 2*tp+fp+fn),
	}
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}
