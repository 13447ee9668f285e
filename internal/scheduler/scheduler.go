// Package scheduler drives periodic collection, scoring and alerting.
package scheduler

import (
	"context"
	"time"

	"github.com/elonfeng/seedradar/internal/logging"
	"github.com/elonfeng/seedradar/internal/pipeline"
	"github.com/elonfeng/seedradar/internal/store"
	"github.com/elonfeng/seedradar/pkg/alert"
	"github.com/elonfeng/seedradar/pkg/relevance"
)

// alertBatch bounds how many kept previews one alert pass picks up.
const alertBatch = 500

// Scheduler runs periodic collection and scoring, then alerts on newly kept
// previews.
type Scheduler struct {
	store      store.Store
	collector  *pipeline.Collector
	runner     *pipeline.Runner
	alertMgr   *alert.Manager
	log        logging.Logger
	collectInt time.Duration
	scoreInt   time.Duration
}

// New creates a new scheduler. Zero intervals fall back to one hour for
// collection and ten minutes for scoring.
func New(
	s store.Store,
	collector *pipeline.Collector,
	runner *pipeline.Runner,
	alertMgr *alert.Manager,
	log logging.Logger,
	collectInt, scoreInt time.Duration,
) *Scheduler {
	if collectInt <= 0 {
		collectInt = time.Hour
	}
	if scoreInt <= 0 {
		scoreInt = 10 * time.Minute
	}
	if alertMgr == nil {
		alertMgr = alert.NewManager(nil, nil)
	}
	return &Scheduler{
		store:      s,
		collector:  collector,
		runner:     runner,
		alertMgr:   alertMgr,
		log:        log,
		collectInt: collectInt,
		scoreInt:   scoreInt,
	}
}

// Run starts the scheduler loop. Blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	collectTicker := time.NewTicker(s.collectInt)
	scoreTicker := time.NewTicker(s.scoreInt)
	defer collectTicker.Stop()
	defer scoreTicker.Stop()

	// Run immediately on start.
	s.collect(ctx)
	s.scoreAndAlert(ctx)

	s.log.Info("scheduler running",
		logging.Duration("collect_interval", s.collectInt),
		logging.Duration("score_interval", s.scoreInt))

	for {
		select {
		case <-ctx.Done():
			s.log.Info("scheduler stopped")
			return ctx.Err()
		case <-collectTicker.C:
			s.collect(ctx)
		case <-scoreTicker.C:
			s.scoreAndAlert(ctx)
		}
	}
}

func (s *Scheduler) collect(ctx context.Context) {
	stats, err := s.collector.CollectAll(ctx, 0)
	if err != nil {
		s.log.Error("collection failed", logging.Error(err))
		return
	}
	s.log.Info("collection finished",
		logging.Int("queries", stats.Queries),
		logging.Int("stored", stats.Stored),
		logging.Int("failed", stats.Failed))
}

func (s *Scheduler) scoreAndAlert(ctx context.Context) {
	if _, err := s.runner.ScorePending(ctx, 0); err != nil {
		s.log.Error("scoring failed", logging.Error(err))
		return
	}
	if _, err := s.AlertKept(ctx); err != nil {
		s.log.Error("alerting failed", logging.Error(err))
	}
}

// AlertKept sends one notification per seed for kept previews that have not
// been alerted yet, and marks them alerted once every notifier accepted the
// message. It returns how many previews were marked.
func (s *Scheduler) AlertKept(ctx context.Context) (int, error) {
	if !s.alertMgr.HasNotifiers() {
		return 0, nil
	}

	rows, err := s.store.ListScored(ctx, store.ListScoredOpts{
		Decision:  string(relevance.DecisionKeep),
		Unalerted: true,
		Limit:     alertBatch,
	})
	if err != nil {
		return 0, err
	}

	var order []string
	bySeed := make(map[string][]store.ScoredPreview)
	for _, row := range rows {
		if _, ok := bySeed[row.SeedID]; !ok {
			order = append(order, row.SeedID)
		}
		bySeed[row.SeedID] = append(bySeed[row.SeedID], row)
	}

	marked := 0
	for _, seedID := range order {
		kept := bySeed[seedID]
		n := &alert.Notification{SeedID: seedID, Items: make([]alert.Item, 0, len(kept))}
		if seed, err := s.store.GetSeed(ctx, seedID); err == nil {
			n.SeedTitle = seed.Title
		}
		for _, row := range kept {
			n.Items = append(n.Items, alertItem(row))
		}

		if err := s.alertMgr.Broadcast(ctx, n); err != nil {
			s.log.Warn("alert failed", logging.String("seed_id", seedID), logging.Error(err))
			continue
		}

		for _, row := range kept {
			if err := s.store.MarkAlerted(ctx, row.ID); err != nil {
				s.log.Warn("mark alerted failed", logging.String("preview_id", row.ID), logging.Error(err))
				continue
			}
			marked++
		}
		s.log.Info("alerted", logging.String("seed_id", seedID), logging.Int("previews", len(kept)))
	}
	return marked, nil
}

func alertItem(row store.ScoredPreview) alert.Item {
	it := alert.Item{Platform: row.Platform, URL: row.URL, Score: row.Score}
	if row.Preview.Title != nil {
		it.Title = *row.Preview.Title
	}
	if it.Title == "" {
		it.Title = row.URL
	}
	if row.Preview.Author != nil {
		it.Author = *row.Preview.Author
	}
	return it
}
