package calibrate

import (
	"math"
	"sort"
)

// ROCAUC is the area under the ROC curve computed from the Mann-Whitney rank
// statistic, tied scores sharing their average rank. It is NaN unless both
// classes are present.
func ROCAUC(scores []float64, labels []int) float64 {
	var pos, neg int
	for _, y := range labels {
		if y == 1 {
			pos++
		} else {
			neg++
		}
	}
	if pos == 0 || neg == 0 {
		return math.NaN()
	}

	idx := sortedIndex(scores, false)
	ranks := make([]float64, len(scores))
	for i := 0; i < len(idx); {
		j := i
		for j+1 < len(idx) && scores[idx[j+1]] == scores[idx[i]] {
			j++
		}
		avg := float64(i+j)/2 + 1
		for k := i; k <= j; k++ {
			ranks[idx[k]] = avg
		}
		i = j + 1
	}

	var posRankSum float64
	for i, y := range labels {
		if y == 1 {
			posRankSum += ranks[i]
		}
	}
	u := posRankSum - float64(pos)*float64(pos+1)/2
	return u / (float64(pos) * float64(neg))
}

// AveragePrecision summarizes the precision-recall curve as the sum over
// distinct score thresholds of (R_n - R_{n-1}) * P_n. It is NaN when there
// are no positive labels.
func AveragePrecision(scores []float64, labels []int) float64 {
	var pos int
	for _, y := range labels {
		pos += y
	}
	if pos == 0 {
		return math.NaN()
	}

	idx := sortedIndex(scores, true)
	var tp, fp int
	var ap, prevRecall float64
	for i := 0; i < len(idx); i++ {
		if labels[idx[i]] == 1 {
			tp++
		} else {
			fp++
		}
		// Only close a step once every sample sharing this score is counted.
		if i+1 < len(idx) && scores[idx[i+1]] == scores[idx[i]] {
			continue
		}
		recall := float64(tp) / float64(pos)
		precision := float64(tp) / float64(tp+fp)
		ap += (recall - prevRecall) * precision
		prevRecall = recall
	}
	return ap
}

func sortedIndex(scores []float64, desc bool) []int {
	idx := make([]int, len(scores))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		if desc {
			return scores[idx[a]] > scores[idx[b]]
		}
		return scores[idx[a]] < scores[idx[b]]
	})
	return idx
}
