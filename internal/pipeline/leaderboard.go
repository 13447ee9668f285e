package pipeline

import (
	"math/rand/v2"
	"sort"

	"github.com/elonfeng/seedradar/internal/store"
)

// DefaultSampleBins is the number of score bins used for labeling samples.
const DefaultSampleBins = 8

// Leaderboard keeps rows scoring at least minScore and returns, for each seed,
// its topK highest scores. Seeds appear in order of their best row.
func Leaderboard(rows []store.ScoredPreview, minScore, topK int) []store.ScoredPreview {
	kept := make([]store.ScoredPreview, 0, len(rows))
	for _, r := range rows {
		if r.Score >= minScore {
			kept = append(kept, r)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Score > kept[j].Score
	})

	perSeed := make(map[string]int)
	var order []string
	bySeed := make(map[string][]store.ScoredPreview)
	for _, r := range kept {
		if topK > 0 && perSeed[r.SeedID] >= topK {
			continue
		}
		if perSeed[r.SeedID] == 0 {
			order = append(order, r.SeedID)
		}
		perSeed[r.SeedID]++
		bySeed[r.SeedID] = append(bySeed[r.SeedID], r)
	}

	out := make([]store.ScoredPreview, 0, len(kept))
	for _, id := range order {
		out = append(out, bySeed[id]...)
	}
	return out
}

// StratifiedSample draws up to n rows spread across bins equal-width score
// bins so annotators see the whole score range. Thin bins are topped up with
// random rows not yet chosen.
func StratifiedSample(rows []store.ScoredPreview, n, bins int, rng *rand.Rand) []store.ScoredPreview {
	if n <= 0 || len(rows) == 0 {
		return nil
	}
	if bins <= 0 {
		bins = DefaultSampleBins
	}

	lo, hi := rows[0].Score, rows[0].Score
	for _, r := range rows[1:] {
		lo = min(lo, r.Score)
		hi = max(hi, r.Score)
	}
	if hi <= lo {
		return shuffled(rows, rng)[:min(n, len(rows))]
	}

	buckets := make([][]int, bins)
	span := float64(hi - lo)
	for i, r := range rows {
		idx := int(float64(r.Score-lo) / span * float64(bins-1))
		buckets[idx] = append(buckets[idx], i)
	}

	per := max(1, n/bins)
	chosen := make(map[int]bool)
	var out []store.ScoredPreview
	for _, b := range buckets {
		rng.Shuffle(len(b), func(i, j int) { b[i], b[j] = b[j], b[i] })
		for _, idx := range b[:min(per, len(b))] {
			chosen[idx] = true
			out = append(out, rows[idx])
		}
	}

	if len(out) < n {
		for _, idx := range rng.Perm(len(rows)) {
			if len(out) == n {
				break
			}
			if !chosen[idx] {
				chosen[idx] = true
				out = append(out, rows[idx])
			}
		}
	}
	return out[:min(n, len(out))]
}

func shuffled(rows []store.ScoredPreview, rng *rand.Rand) []store.ScoredPreview {
	out := append([]store.ScoredPreview(nil), rows...)
	rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}
