package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/elonfeng/seedradar/internal/logging"
	"github.com/elonfeng/seedradar/internal/metrics"
	"github.com/elonfeng/seedradar/internal/store"
	"github.com/elonfeng/seedradar/pkg/preview"
	"github.com/elonfeng/seedradar/pkg/relevance"
)

// DefaultConcurrency bounds parallel scoring when none is configured.
const DefaultConcurrency = 4

// BatchResult is the outcome for one record of a batch, at the record's
// input position.
type BatchResult struct {
	Preview preview.CanonicalPreview `json:"preview"`
	Result  relevance.ScoreResult    `json:"result"`
	Err     error                    `json:"-"`
}

// ScoreBatch normalizes and scores raws against seed in parallel. A record
// that fails only sets its own Err; the returned error is non-nil only when
// ctx is cancelled.
func ScoreBatch(ctx context.Context, scorer *relevance.Scorer, seed *relevance.Seed, platform string, raws []preview.RawRecord, concurrency int) ([]BatchResult, error) {
	results := make([]BatchResult, len(raws))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, concurrency))
	for i, raw := range raws {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			p, res, err := scorer.ScoreRaw(seed, platform, raw)
			results[i] = BatchResult{Preview: p, Result: res, Err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// ScoreStats summarizes one scoring pass.
type ScoreStats struct {
	Scored int `json:"scored"`
	Kept   int `json:"kept"`
	Failed int `json:"failed"`
}

// Runner scores stored previews that have no score yet.
type Runner struct {
	store       store.Store
	scorer      *relevance.Scorer
	log         logging.Logger
	metrics     *metrics.Metrics
	concurrency int
	batchSize   int
}

// NewRunner creates a scoring runner.
func NewRunner(st store.Store, scorer *relevance.Scorer, log logging.Logger, m *metrics.Metrics, concurrency, batchSize int) *Runner {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	if batchSize <= 0 {
		batchSize = 200
	}
	return &Runner{store: st, scorer: scorer, log: log, metrics: m, concurrency: concurrency, batchSize: batchSize}
}

type scoredRow struct {
	row    store.PreviewRow
	result relevance.ScoreResult
	err    error
}

// ScorePending scores up to limit unscored previews (one batch when
// limit <= 0) and saves the results.
func (r *Runner) ScorePending(ctx context.Context, limit int) (ScoreStats, error) {
	if limit <= 0 {
		limit = r.batchSize
	}
	start := time.Now()
	defer func() { r.metrics.ScoringDuration.Observe(time.Since(start).Seconds()) }()

	rows, err := r.store.ListUnscoredPreviews(ctx, limit)
	if err != nil {
		return ScoreStats{}, fmt.Errorf("score pending: %w", err)
	}

	seeds, err := r.loadSeeds(ctx, rows)
	if err != nil {
		return ScoreStats{}, err
	}

	scored := make([]scoredRow, len(rows))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i := range rows {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			scored[i] = scoredRow{row: rows[i]}
			seed, ok := seeds[rows[i].SeedID]
			if !ok {
				scored[i].err = fmt.Errorf("seed %s: %w", rows[i].SeedID, store.ErrNotFound)
				return nil
			}
			scored[i].result, scored[i].err = r.scorer.Score(seed, &rows[i].Preview)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return ScoreStats{}, err
	}

	var stats ScoreStats
	for _, s := range scored {
		if s.err == nil {
			s.err = r.store.SaveScore(ctx, store.ScoreRecord{
				PreviewID: s.row.ID,
				Score:     s.result.Score,
				Decision:  string(s.result.Decision),
				Signals:   s.result.Signals,
			})
		}
		if s.err != nil {
			if ctx.Err() != nil {
				return stats, ctx.Err()
			}
			stats.Failed++
			r.metrics.ScoreErrors.Inc()
			r.log.Warn("score preview failed", logging.String("preview_id", s.row.ID), logging.Error(s.err))
			continue
		}

		stats.Scored++
		if s.result.Decision == relevance.DecisionKeep {
			stats.Kept++
		}
		r.metrics.PreviewsScored.WithLabelValues(s.row.Platform, string(s.result.Decision)).Inc()
		r.metrics.Scores.WithLabelValues(s.row.Platform).Observe(float64(s.result.Score))
	}

	r.log.Info("scoring finished",
		logging.Int("scored", stats.Scored), logging.Int("kept", stats.Kept), logging.Int("failed", stats.Failed))
	return stats, nil
}

// loadSeeds fetches each distinct seed once. Seeds that no longer exist are
// left out so their previews fail individually.
func (r *Runner) loadSeeds(ctx context.Context, rows []store.PreviewRow) (map[string]*relevance.Seed, error) {
	seeds := make(map[string]*relevance.Seed)
	for _, row := range rows {
		if _, done := seeds[row.SeedID]; done {
			continue
		}
		seed, err := r.store.GetSeed(ctx, row.SeedID)
		if errors.Is(err, store.ErrNotFound) {
			seeds[row.SeedID] = nil
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("score pending: %w", err)
		}
		seeds[row.SeedID] = seed
	}
	for id, seed := range seeds {
		if seed == nil {
			delete(seeds, id)
		}
	}
	return seeds, nil
}
