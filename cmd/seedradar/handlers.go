package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/elonfeng/seedradar/internal/config"
	"github.com/elonfeng/seedradar/internal/logging"
	"github.com/elonfeng/seedradar/internal/metrics"
	"github.com/elonfeng/seedradar/internal/pipeline"
	"github.com/elonfeng/seedradar/internal/report"
	"github.com/elonfeng/seedradar/internal/scheduler"
	"github.com/elonfeng/seedradar/internal/store"
	"github.com/elonfeng/seedradar/pkg/alert"
	"github.com/elonfeng/seedradar/pkg/calibrate"
	"github.com/elonfeng/seedradar/pkg/preview"
	"github.com/elonfeng/seedradar/pkg/provider"
	"github.com/elonfeng/seedradar/pkg/query"
	"github.com/elonfeng/seedradar/pkg/relevance"
	"github.com/elonfeng/seedradar/pkg/server"
)

// scanLimit bounds how many scored rows leaderboards and samples read.
const scanLimit = 10000

func loadConfig() (*config.Config, error) {
	if err := config.LoadDotEnv(envFiles...); err != nil {
		return nil, err
	}
	path := cfgFile
	if path == "" {
		if _, err := os.Stat("config.yaml"); err == nil {
			path = "config.yaml"
		}
	}
	return config.Load(path)
}

// env bundles what every store-backed command needs.
type env struct {
	cfg     *config.Config
	log     logging.Logger
	db      *store.SQLStore
	metrics *metrics.Metrics
}

func setup() (*env, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log, err := logging.New(cfg.Log)
	if err != nil {
		return nil, err
	}

	db, err := store.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	return &env{cfg: cfg, log: log, db: db, metrics: metrics.New()}, nil
}

func (e *env) Close() {
	e.db.Close()
	_ = e.log.Sync()
}

func (e *env) scorer() (*relevance.Scorer, error) {
	return relevance.NewScorer(e.cfg.Scoring)
}

func (e *env) runner() (*pipeline.Runner, error) {
	scorer, err := e.scorer()
	if err != nil {
		return nil, err
	}
	return pipeline.NewRunner(e.db, scorer, e.log, e.metrics, e.cfg.Pipeline.Concurrency, e.cfg.Pipeline.BatchSize), nil
}

func buildProviders(cfg *config.Config, log logging.Logger) []provider.Provider {
	var providers []provider.Provider

	yt := cfg.Providers.YouTube
	switch {
	case yt.Enabled && yt.APIKey != "":
		providers = append(providers, provider.NewYouTube(provider.YouTubeConfig{
			APIKey:          yt.APIKey,
			MaxResults:      yt.MaxResults,
			PublishedWithin: duration(yt.PublishedWithin),
		}))
	case yt.Enabled:
		log.Warn("youtube provider enabled without api key, skipping")
	}

	if rd := cfg.Providers.Reddit; rd.Enabled {
		providers = append(providers, provider.NewReddit(provider.RedditConfig{
			ClientID:     rd.ClientID,
			ClientSecret: rd.ClientSecret,
			UserAgent:    rd.UserAgent,
			Limit:        rd.Limit,
		}))
	}

	if rss := cfg.Providers.RSS; rss.Enabled && len(rss.Feeds) > 0 {
		providers = append(providers, provider.NewRSS(rss.Feeds, rss.ExcludeKeywords, duration(rss.MaxAge)))
	}

	return providers
}

// filterProviders keeps the providers whose platform is in wanted.
func filterProviders(all []provider.Provider, wanted []string) ([]provider.Provider, error) {
	if len(wanted) == 0 {
		return all, nil
	}
	set := make(map[string]bool)
	for _, w := range wanted {
		set[strings.ToLower(strings.TrimSpace(w))] = true
	}
	var out []provider.Provider
	for _, p := range all {
		if set[p.Platform()] {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no enabled providers for: %s", strings.Join(wanted, ", "))
	}
	return out, nil
}

func buildAlertManager(cfg *config.Config, m *metrics.Metrics) *alert.Manager {
	var notifiers []alert.Notifier

	if cfg.Alerts.Slack.Enabled && cfg.Alerts.Slack.WebhookURL != "" {
		notifiers = append(notifiers, alert.NewSlack(cfg.Alerts.Slack.WebhookURL))
	}
	if cfg.Alerts.Discord.Enabled && cfg.Alerts.Discord.WebhookURL != "" {
		notifiers = append(notifiers, alert.NewDiscord(cfg.Alerts.Discord.WebhookURL))
	}
	if cfg.Alerts.Webhook.Enabled && cfg.Alerts.Webhook.URL != "" {
		notifiers = append(notifiers, alert.NewWebhook(cfg.Alerts.Webhook.URL, cfg.Alerts.Webhook.Secret))
	}

	return alert.NewManager(notifiers, m.ObserveAlert)
}

// duration parses a duration the config already validated.
func duration(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}

// decodeSeeds accepts a single seed or a list of seeds. YAML is a superset
// of JSON, so one decoder serves both formats.
func decodeSeeds(data []byte) ([]relevance.Seed, error) {
	var list []relevance.Seed
	if err := yaml.Unmarshal(data, &list); err == nil {
		return list, nil
	}
	var one relevance.Seed
	if err := yaml.Unmarshal(data, &one); err != nil {
		return nil, fmt.Errorf("decode seeds: %w", err)
	}
	if one.Title == "" && one.Description == "" && len(one.ImportantPhrases) == 0 {
		return nil, nil
	}
	return []relevance.Seed{one}, nil
}

func runSeedImport(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read seeds: %w", err)
	}
	seeds, err := decodeSeeds(data)
	if err != nil {
		return err
	}
	if len(seeds) == 0 {
		return fmt.Errorf("no seeds in %s", path)
	}

	e, err := setup()
	if err != nil {
		return err
	}
	defer e.Close()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE")
	for i := range seeds {
		if err := e.db.UpsertSeed(ctx, &seeds[i]); err != nil {
			return err
		}
		fmt.Fprintf(w, "%s\t%s\n", seeds[i].ID, seeds[i].Title)
	}
	return w.Flush()
}

func runSeedList(ctx context.Context, jsonOutput bool, limit int) error {
	e, err := setup()
	if err != nil {
		return err
	}
	defer e.Close()

	seeds, err := e.db.ListSeeds(ctx, limit)
	if err != nil {
		return err
	}

	if jsonOutput {
		return writeJSON(os.Stdout, seeds)
	}
	if len(seeds) == 0 {
		fmt.Println("no seeds found (try: seedradar seed import seeds.yaml)")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tHASHTAGS")
	for _, s := range seeds {
		fmt.Fprintf(w, "%s\t%s\t%s\n", s.ID, s.Title, strings.Join(s.Metadata.Hashtags, ","))
	}
	return w.Flush()
}

func runQueries(ctx context.Context, seedID string, platforms []string, jsonOutput bool) error {
	e, err := setup()
	if err != nil {
		return err
	}
	defer e.Close()

	seed, err := e.db.GetSeed(ctx, seedID)
	if err != nil {
		return err
	}
	if len(platforms) == 0 {
		platforms = query.Platforms
	}

	sets := query.ForPlatforms(seed, platforms, e.cfg.Queries.Options())
	if jsonOutput {
		return writeJSON(os.Stdout, sets)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PLATFORM\tPRECISE\tBROAD\tHASHTAG")
	for _, s := range sets {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", s.Platform, s.Precise, s.Broad, s.HashtagPhrase)
	}
	return w.Flush()
}

func runNormalize(platform, path string) error {
	var in io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("open input: %w", err)
		}
		defer f.Close()
		in = f
	}

	dec := json.NewDecoder(in)
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("decode input: %w", err)
	}

	switch v := doc.(type) {
	case map[string]any:
		p, err := preview.Normalize(platform, v)
		if err != nil {
			return err
		}
		return writeJSON(os.Stdout, p)
	case []any:
		out := make([]preview.CanonicalPreview, 0, len(v))
		for i, item := range v {
			rec, _ := item.(map[string]any)
			p, err := preview.Normalize(platform, rec)
			if err != nil {
				return fmt.Errorf("record %d: %w", i, err)
			}
			out = append(out, p)
		}
		return writeJSON(os.Stdout, out)
	}
	return errors.New("input must be a JSON object or array of objects")
}

func runCollect(ctx context.Context, platforms []string, seedID string) error {
	e, err := setup()
	if err != nil {
		return err
	}
	defer e.Close()

	providers, err := filterProviders(buildProviders(e.cfg, e.log), platforms)
	if err != nil {
		return err
	}
	if len(providers) == 0 {
		return errors.New("no providers enabled")
	}

	collector := pipeline.NewCollector(e.db, providers, e.cfg.Queries.Options(), e.log, e.metrics)

	var stats pipeline.CollectStats
	if seedID != "" {
		seed, err := e.db.GetSeed(ctx, seedID)
		if err != nil {
			return err
		}
		stats, err = collector.Collect(ctx, seed)
		if err != nil {
			return err
		}
	} else {
		stats, err = collector.CollectAll(ctx, 0)
		if err != nil {
			return err
		}
	}

	fmt.Fprintf(os.Stderr, "queries: %d  fetched: %d  stored: %d  failed: %d\n",
		stats.Queries, stats.Fetched, stats.Stored, stats.Failed)
	return nil
}

func runScore(ctx context.Context, limit int) error {
	e, err := setup()
	if err != nil {
		return err
	}
	defer e.Close()

	runner, err := e.runner()
	if err != nil {
		return err
	}
	stats, err := runner.ScorePending(ctx, limit)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "scored: %d  kept: %d  failed: %d\n", stats.Scored, stats.Kept, stats.Failed)
	return nil
}

func runLeaderboard(ctx context.Context, minScore, topK int, csvPath string) error {
	e, err := setup()
	if err != nil {
		return err
	}
	defer e.Close()

	if minScore < 0 {
		minScore = int(math.Ceil(e.cfg.Scoring.KeepThreshold))
	}

	rows, err := e.db.ListScored(ctx, store.ListScoredOpts{MinScore: minScore, Limit: scanLimit})
	if err != nil {
		return err
	}
	board := pipeline.Leaderboard(rows, minScore, topK)

	if csvPath != "" {
		return writeFile(csvPath, func(w io.Writer) error { return report.WriteLeaderboard(w, board) })
	}
	if len(board) == 0 {
		fmt.Println("no previews above threshold (try: seedradar collect && seedradar score)")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SEED\tSCORE\tPLATFORM\tTITLE\tURL")
	for _, r := range board {
		title := ""
		if r.Preview.Title != nil {
			title = *r.Preview.Title
		}
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\n", r.SeedID, r.Score, r.Platform, title, r.URL)
	}
	return w.Flush()
}

func runSample(ctx context.Context, n, bins int, rngSeed uint64, out string) error {
	e, err := setup()
	if err != nil {
		return err
	}
	defer e.Close()

	rows, err := e.db.ListScored(ctx, store.ListScoredOpts{Limit: scanLimit})
	if err != nil {
		return err
	}
	sample := pipeline.StratifiedSample(rows, n, bins, rand.New(rand.NewPCG(rngSeed, rngSeed)))

	if err := writeFile(out, func(w io.Writer) error { return report.WriteLabelingSample(w, sample) }); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "sampled %d of %d scored previews\n", len(sample), len(rows))
	return nil
}

func runCalibrate(path, reportPath string, jsonOutput bool) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open devset: %w", err)
	}
	defer f.Close()

	samples, err := report.LoadDevset(f)
	if err != nil {
		return err
	}
	summary, points, err := calibrate.Sweep(samples)
	if err != nil {
		return err
	}

	if reportPath != "" {
		if err := writeFile(reportPath, func(w io.Writer) error { return report.WriteThresholdReport(w, points) }); err != nil {
			return err
		}
	}

	if jsonOutput {
		return writeJSON(os.Stdout, map[string]any{
			"samples":           summary.Samples,
			"positives":         summary.Positives,
			"roc_auc":           finiteOrNil(summary.ROCAUC),
			"average_precision": finiteOrNil(summary.AveragePrecision),
			"recommended":       summary.Recommended,
		})
	}

	fmt.Printf("samples:            %d (%d positive)\n", summary.Samples, summary.Positives)
	fmt.Printf("roc auc:            %.4f\n", summary.ROCAUC)
	fmt.Printf("average precision:  %.4f\n", summary.AveragePrecision)
	fmt.Printf("recommended keep:   %.4f (f1 %.4f, precision %.4f, recall %.4f)\n",
		summary.Recommended.Threshold, summary.Recommended.F1, summary.Recommended.Precision, summary.Recommended.Recall)
	return nil
}

func runServe(ctx context.Context, port int) error {
	e, err := setup()
	if err != nil {
		return err
	}
	defer e.Close()

	if port == 0 {
		port = e.cfg.Server.Port
	}
	scorer, err := e.scorer()
	if err != nil {
		return err
	}

	return server.New(e.db, scorer, e.metrics, e.log, port).ListenAndServe(ctx)
}

func runDaemon(ctx context.Context, port int) error {
	e, err := setup()
	if err != nil {
		return err
	}
	defer e.Close()

	if port == 0 {
		port = e.cfg.Server.Port
	}
	scorer, err := e.scorer()
	if err != nil {
		return err
	}

	providers := buildProviders(e.cfg, e.log)
	if len(providers) == 0 {
		e.log.Warn("no providers enabled, collection will find nothing")
	}

	sched := scheduler.New(e.db,
		pipeline.NewCollector(e.db, providers, e.cfg.Queries.Options(), e.log, e.metrics),
		pipeline.NewRunner(e.db, scorer, e.log, e.metrics, e.cfg.Pipeline.Concurrency, e.cfg.Pipeline.BatchSize),
		buildAlertManager(e.cfg, e.metrics),
		e.log,
		e.cfg.Schedule.ParseCollectInterval(),
		e.cfg.Schedule.ParseScoreInterval(),
	)
	srv := server.New(e.db, scorer, e.metrics, e.log, port)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := sched.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return srv.ListenAndServe(gctx)
	})

	err = g.Wait()
	e.log.Info("shut down")
	return err
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeFile runs write against path, or stdout when path is "-".
func writeFile(path string, write func(io.Writer) error) error {
	if path == "-" {
		return write(os.Stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func finiteOrNil(v float64) any {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}
