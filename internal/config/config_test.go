package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elonfeng/seedradar/pkg/rankerr"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 65.0, cfg.Scoring.KeepThreshold)
	assert.Equal(t, 50.0, cfg.Scoring.ConsiderThreshold)
	assert.Equal(t, time.Hour, cfg.Schedule.ParseCollectInterval())
	assert.False(t, cfg.Queries.Options().OmitAuthor)
}

func TestLoad_YAML(t *testing.T) {
	path := writeFile(t, "config.yaml", `
database:
  driver: postgres
  dsn: postgres://localhost/seedradar
scoring:
  keep_threshold: 57.5
  weights:
    semantic: 0.5
    lexical: 0.1
    hashtag: 0.1
    media: 0.1
    freshness: 0.1
    engagement: 0.1
providers:
  rss:
    enabled: true
    feeds:
      - name: science
        url: https://example.com/feed.xml
queries:
  include_author: false
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 57.5, cfg.Scoring.KeepThreshold)
	assert.Equal(t, 50.0, cfg.Scoring.ConsiderThreshold, "unset keys keep their defaults")
	assert.Equal(t, 0.5, cfg.Scoring.Weights.Semantic)
	require.Len(t, cfg.Providers.RSS.Feeds, 1)
	assert.Equal(t, "science", cfg.Providers.RSS.Feeds[0].Name)
	assert.True(t, cfg.Queries.Options().OmitAuthor)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SEEDRADAR_DB_DSN", "file:test.db")
	t.Setenv("YOUTUBE_API_KEY", "yt-key")
	t.Setenv("SLACK_WEBHOOK_URL", "https://hooks.slack.test/x")
	t.Setenv("SEEDRADAR_KEEP_THRESHOLD", "70")
	t.Setenv("SEEDRADAR_LOG_LEVEL", "debug")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "file:test.db", cfg.Database.DSN)
	assert.True(t, cfg.Providers.YouTube.Enabled)
	assert.Equal(t, "yt-key", cfg.Providers.YouTube.APIKey)
	assert.True(t, cfg.Alerts.Slack.Enabled)
	assert.Equal(t, 70.0, cfg.Scoring.KeepThreshold)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		env  map[string]string
	}{
		{name: "weights do not sum to one", yaml: "scoring:\n  weights:\n    semantic: 0.9\n"},
		{name: "consider above keep", yaml: "scoring:\n  consider_threshold: 80\n"},
		{name: "unknown driver", yaml: "database:\n  driver: mysql\n"},
		{name: "bad interval", yaml: "schedule:\n  collect_interval: often\n"},
		{name: "zero concurrency", yaml: "pipeline:\n  concurrency: 0\n"},
		{name: "keep threshold env not a number", env: map[string]string{"SEEDRADAR_KEEP_THRESHOLD": "high"}},
		{name: "keep threshold env below consider", env: map[string]string{"SEEDRADAR_KEEP_THRESHOLD": "10"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := ""
			if tt.yaml != "" {
				path = writeFile(t, "config.yaml", tt.yaml)
			}

			_, err := Load(path)
			assert.True(t, errors.Is(err, rankerr.ErrInvalidConfiguration), "got %v", err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.False(t, errors.Is(err, rankerr.ErrInvalidConfiguration))
}

func TestLoadDotEnv(t *testing.T) {
	const key = "SEEDRADAR_DOTENV_TEST_KEY"
	t.Cleanup(func() { os.Unsetenv(key) })
	path := writeFile(t, ".env", key+"=from-file\n")

	require.NoError(t, LoadDotEnv(path, filepath.Join(t.TempDir(), "missing.env")))
	assert.Equal(t, "from-file", os.Getenv(key))
}

func TestScheduleFallbacks(t *testing.T) {
	s := ScheduleConfig{CollectInterval: "bogus", ScoreInterval: "-1m"}
	assert.Equal(t, time.Hour, s.ParseCollectInterval())
	assert.Equal(t, 10*time.Minute, s.ParseScoreInterval())
}
