package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/elonfeng/seedradar/internal/logging"
	"github.com/elonfeng/seedradar/pkg/provider"
	"github.com/elonfeng/seedradar/pkg/query"
	"github.com/elonfeng/seedradar/pkg/rankerr"
	"github.com/elonfeng/seedradar/pkg/relevance"
)

// Config is the root configuration.
type Config struct {
	Database  DatabaseConfig   `yaml:"database"`
	Schedule  ScheduleConfig   `yaml:"schedule"`
	Providers ProvidersConfig  `yaml:"providers"`
	Queries   QueriesConfig    `yaml:"queries"`
	Scoring   relevance.Config `yaml:"scoring"`
	Pipeline  PipelineConfig   `yaml:"pipeline"`
	Alerts    AlertsConfig     `yaml:"alerts"`
	Server    ServerConfig     `yaml:"server"`
	Log       logging.Config   `yaml:"log"`
}

// DatabaseConfig selects the store backend. Driver is "sqlite" or "postgres".
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// ScheduleConfig configures collection and scoring intervals.
type ScheduleConfig struct {
	CollectInterval string `yaml:"collect_interval"`
	ScoreInterval   string `yaml:"score_interval"`
}

// ParseCollectInterval returns the collect interval as time.Duration.
func (s ScheduleConfig) ParseCollectInterval() time.Duration {
	return parseDuration(s.CollectInterval, time.Hour)
}

// ParseScoreInterval returns the score interval as time.Duration.
func (s ScheduleConfig) ParseScoreInterval() time.Duration {
	return parseDuration(s.ScoreInterval, 10*time.Minute)
}

// ProvidersConfig holds configuration for all platform providers.
type ProvidersConfig struct {
	YouTube YouTubeConfig `yaml:"youtube"`
	Reddit  RedditConfig  `yaml:"reddit"`
	RSS     RSSConfig     `yaml:"rss"`
}

// YouTubeConfig for the YouTube provider.
type YouTubeConfig struct {
	Enabled         bool   `yaml:"enabled"`
	APIKey          string `yaml:"api_key"`
	MaxResults      int    `yaml:"max_results"`
	PublishedWithin string `yaml:"published_within"`
}

// RedditConfig for the Reddit provider. OAuth is used when both client
// credentials are set.
type RedditConfig struct {
	Enabled      bool   `yaml:"enabled"`
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	UserAgent    string `yaml:"user_agent"`
	Limit        int    `yaml:"limit"`
}

// RSSConfig for the RSS provider.
type RSSConfig struct {
	Enabled         bool            `yaml:"enabled"`
	Feeds           []provider.Feed `yaml:"feeds"`
	ExcludeKeywords []string        `yaml:"exclude_keywords"`
	MaxAge          string          `yaml:"max_age"`
}

// QueriesConfig configures query generation.
type QueriesConfig struct {
	IncludeAuthor bool `yaml:"include_author"`
}

// Options converts the section to query options.
func (q QueriesConfig) Options() query.Options {
	return query.Options{OmitAuthor: !q.IncludeAuthor}
}

// PipelineConfig bounds the scoring batch.
type PipelineConfig struct {
	Concurrency int `yaml:"concurrency"`
	BatchSize   int `yaml:"batch_size"`
}

// AlertsConfig configures alert destinations for kept previews.
type AlertsConfig struct {
	Slack   SlackConfig   `yaml:"slack"`
	Discord DiscordConfig `yaml:"discord"`
	Webhook WebhookConfig `yaml:"webhook"`
}

// SlackConfig for Slack webhook alerts.
type SlackConfig struct {
	Enabled    bool   `yaml:"enabled"`
	WebhookURL string `yaml:"webhook_url"`
}

// DiscordConfig for Discord webhook alerts.
type DiscordConfig struct {
	Enabled    bool   `yaml:"enabled"`
	WebhookURL string `yaml:"webhook_url"`
}

// WebhookConfig for generic webhook alerts.
type WebhookConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
	Secret  string `yaml:"secret"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{Driver: "sqlite", DSN: "./seedradar.db"},
		Schedule: ScheduleConfig{
			CollectInterval: "1h",
			ScoreInterval:   "10m",
		},
		Providers: ProvidersConfig{
			YouTube: YouTubeConfig{MaxResults: 25},
			Reddit:  RedditConfig{Enabled: true, UserAgent: provider.DefaultUserAgent, Limit: 25},
			RSS:     RSSConfig{MaxAge: "720h"},
		},
		Queries:  QueriesConfig{IncludeAuthor: true},
		Scoring:  relevance.DefaultConfig(),
		Pipeline: PipelineConfig{Concurrency: 4, BatchSize: 200},
		Server:   ServerConfig{Port: 8080},
		Log:      logging.Config{Level: "info"},
	}
}

// LoadDotEnv loads KEY=value pairs from the given files into the process
// environment without overriding variables that are already set. Missing
// files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load env file %s: %w", p, err)
		}
	}
	return nil
}

// Load reads configuration from a YAML file, applies env var overrides and
// validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate fails fast with rankerr.ErrInvalidConfiguration.
func (c *Config) Validate() error {
	if err := c.Scoring.Validate(); err != nil {
		return fmt.Errorf("scoring: %w", err)
	}
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("database driver %q must be sqlite or postgres: %w", c.Database.Driver, rankerr.ErrInvalidConfiguration)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database dsn is empty: %w", rankerr.ErrInvalidConfiguration)
	}
	if c.Pipeline.Concurrency < 1 || c.Pipeline.BatchSize < 1 {
		return fmt.Errorf("pipeline concurrency %d and batch size %d must be positive: %w",
			c.Pipeline.Concurrency, c.Pipeline.BatchSize, rankerr.ErrInvalidConfiguration)
	}
	for name, v := range map[string]string{
		"schedule.collect_interval": c.Schedule.CollectInterval,
		"schedule.score_interval":   c.Schedule.ScoreInterval,
		"youtube.published_within":  c.Providers.YouTube.PublishedWithin,
		"rss.max_age":               c.Providers.RSS.MaxAge,
	} {
		if v == "" {
			continue
		}
		if _, err := time.ParseDuration(v); err != nil {
			return fmt.Errorf("%s %q: %w", name, v, rankerr.ErrInvalidConfiguration)
		}
	}
	return nil
}

// applyEnvOverrides overrides config values with environment variables.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("SEEDRADAR_DB_DRIVER"); v != "" {
		cfg.Database.Driver = v
	}
	if v := os.Getenv("SEEDRADAR_DB_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("YOUTUBE_API_KEY"); v != "" {
		cfg.Providers.YouTube.APIKey = v
		cfg.Providers.YouTube.Enabled = true
	}
	if v := os.Getenv("REDDIT_CLIENT_ID"); v != "" {
		cfg.Providers.Reddit.ClientID = v
	}
	if v := os.Getenv("REDDIT_CLIENT_SECRET"); v != "" {
		cfg.Providers.Reddit.ClientSecret = v
	}
	if v := os.Getenv("SLACK_WEBHOOK_URL"); v != "" {
		cfg.Alerts.Slack.WebhookURL = v
		cfg.Alerts.Slack.Enabled = true
	}
	if v := os.Getenv("DISCORD_WEBHOOK_URL"); v != "" {
		cfg.Alerts.Discord.WebhookURL = v
		cfg.Alerts.Discord.Enabled = true
	}
	if v := os.Getenv("SEEDRADAR_KEEP_THRESHOLD"); v != "" {
		keep, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("SEEDRADAR_KEEP_THRESHOLD %q: %w", v, rankerr.ErrInvalidConfiguration)
		}
		cfg.Scoring.KeepThreshold = keep
	}
	if v := os.Getenv("SEEDRADAR_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	return nil
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
