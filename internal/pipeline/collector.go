// Package pipeline wires providers, the normalizer, the scorer and the store
// into collection and scoring passes.
package pipeline

import (
	"context"
	"fmt"

	"github.com/elonfeng/seedradar/internal/logging"
	"github.com/elonfeng/seedradar/internal/metrics"
	"github.com/elonfeng/seedradar/internal/store"
	"github.com/elonfeng/seedradar/pkg/preview"
	"github.com/elonfeng/seedradar/pkg/provider"
	"github.com/elonfeng/seedradar/pkg/query"
	"github.com/elonfeng/seedradar/pkg/relevance"
)

// CollectStats summarizes one collection pass.
type CollectStats struct {
	Queries int `json:"queries"`
	Fetched int `json:"fetched"`
	Stored  int `json:"stored"`
	Failed  int `json:"failed"`
}

func (s *CollectStats) add(o CollectStats) {
	s.Queries += o.Queries
	s.Fetched += o.Fetched
	s.Stored += o.Stored
	s.Failed += o.Failed
}

// Collector searches every provider for a seed and stores what it finds.
type Collector struct {
	store     store.Store
	providers []provider.Provider
	opts      query.Options
	log       logging.Logger
	metrics   *metrics.Metrics
}

// NewCollector creates a collector.
func NewCollector(st store.Store, providers []provider.Provider, opts query.Options, log logging.Logger, m *metrics.Metrics) *Collector {
	return &Collector{store: st, providers: providers, opts: opts, log: log, metrics: m}
}

// Collect runs each generated query against each provider. Failed searches
// and records that cannot be normalized or stored are logged and skipped;
// only cancellation aborts the pass.
func (c *Collector) Collect(ctx context.Context, seed *relevance.Seed) (CollectStats, error) {
	var stats CollectStats
	log := c.log.With(logging.String("seed_id", seed.ID))

	for _, p := range c.providers {
		platform := p.Platform()
		for _, q := range query.ForPlatform(seed, platform, c.opts).Queries() {
			if err := ctx.Err(); err != nil {
				return stats, err
			}
			stats.Queries++

			records, err := p.Search(ctx, q)
			if err != nil {
				stats.Failed++
				c.metrics.ProviderErrors.WithLabelValues(platform).Inc()
				log.Warn("provider search failed",
					logging.String("platform", platform), logging.String("query", q), logging.Error(err))
				continue
			}
			stats.Fetched += len(records)

			for _, raw := range records {
				if c.storeRecord(ctx, log, seed.ID, platform, q, raw) {
					stats.Stored++
				} else {
					stats.Failed++
				}
			}
		}
	}

	log.Info("collection finished",
		logging.Int("queries", stats.Queries), logging.Int("fetched", stats.Fetched),
		logging.Int("stored", stats.Stored), logging.Int("failed", stats.Failed))
	return stats, nil
}

func (c *Collector) storeRecord(ctx context.Context, log logging.Logger, seedID, platform, q string, raw preview.RawRecord) bool {
	p, err := preview.Normalize(platform, raw)
	if err != nil {
		log.Debug("skip record", logging.String("platform", platform), logging.Error(err))
		return false
	}
	row := &store.PreviewRow{SeedID: seedID, Platform: platform, Query: q, Preview: p}
	if err := c.store.UpsertPreview(ctx, row); err != nil {
		log.Warn("store preview failed", logging.String("platform", platform), logging.Error(err))
		return false
	}
	c.metrics.PreviewsCollected.WithLabelValues(platform).Inc()
	return true
}

// CollectAll runs Collect for up to limit stored seeds (all when limit <= 0).
func (c *Collector) CollectAll(ctx context.Context, limit int) (CollectStats, error) {
	seeds, err := c.store.ListSeeds(ctx, limit)
	if err != nil {
		return CollectStats{}, fmt.Errorf("collect all: %w", err)
	}

	var total CollectStats
	for i := range seeds {
		stats, err := c.Collect(ctx, &seeds[i])
		total.add(stats)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
