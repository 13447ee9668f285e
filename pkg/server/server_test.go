package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elonfeng/seedradar/internal/logging"
	"github.com/elonfeng/seedradar/internal/metrics"
	"github.com/elonfeng/seedradar/internal/store"
	"github.com/elonfeng/seedradar/pkg/preview"
	"github.com/elonfeng/seedradar/pkg/relevance"
)

func setupServer(t *testing.T) (*Server, *store.SQLStore, *metrics.Metrics) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st, err := store.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	scorer, err := relevance.NewScorer(relevance.DefaultConfig())
	require.NoError(t, err)

	m := metrics.New()
	return New(st, scorer, m, logging.NewNop(), 0), st, m
}

func do(t *testing.T, srv *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, http.NoBody)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

func seedPreviews(t *testing.T, st *store.SQLStore) {
	t.Helper()
	ctx := context.Background()
	for _, seedID := range []string{"a", "b"} {
		require.NoError(t, st.UpsertSeed(ctx, &relevance.Seed{ID: seedID, Title: "seed " + seedID}))
	}
	rows := []struct {
		seed     string
		platform string
		url      string
		score    int
		decision relevance.Decision
	}{
		{"a", "youtube", "https://y/1", 80, relevance.DecisionKeep},
		{"a", "reddit", "https://r/1", 55, relevance.DecisionConsider},
		{"b", "youtube", "https://y/2", 90, relevance.DecisionKeep},
	}
	for _, r := range rows {
		row := &store.PreviewRow{
			SeedID: r.seed, Platform: r.platform, URL: r.url,
			Preview: preview.CanonicalPreview{Platform: preview.Platform(r.platform)},
		}
		require.NoError(t, st.UpsertPreview(ctx, row))
		require.NoError(t, st.SaveScore(ctx, store.ScoreRecord{
			PreviewID: row.ID, Score: r.score, Decision: string(r.decision), Signals: map[string]float64{},
		}))
	}
}

func TestHealth(t *testing.T) {
	srv, _, m := setupServer(t)

	w := do(t, srv, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("GET", "/health", "200")))
}

func TestNormalize(t *testing.T) {
	srv, _, _ := setupServer(t)

	w := do(t, srv, http.MethodPost, "/api/v1/normalize",
		`{"platform":"reddit","raw":{"title":"Deep sleep","selftext":"slow waves","permalink":"/r/sleep/1"}}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Data preview.CanonicalPreview `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, preview.PlatformReddit, resp.Data.Platform)
	require.NotNil(t, resp.Data.Title)
	assert.Equal(t, "Deep sleep", *resp.Data.Title)
}

func TestNormalize_BadRequests(t *testing.T) {
	srv, _, _ := setupServer(t)

	assert.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodPost, "/api/v1/normalize", `{`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodPost, "/api/v1/normalize", `{"platform":"youtube"}`).Code)
}

func TestScore(t *testing.T) {
	srv, _, _ := setupServer(t)

	w := do(t, srv, http.MethodPost, "/api/v1/score",
		`{"seed":{"title":"deep sleep"},"platform":"youtube","raw":{"id":"v1","title":"deep sleep explained"}}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Data struct {
			Result relevance.ScoreResult `json:"result"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Data.Result.Signals, 6)
	assert.GreaterOrEqual(t, resp.Data.Result.Score, 0)
	assert.LessOrEqual(t, resp.Data.Result.Score, 100)

	missingSeed := do(t, srv, http.MethodPost, "/api/v1/score", `{"platform":"youtube","raw":{"title":"x"}}`)
	assert.Equal(t, http.StatusBadRequest, missingSeed.Code)
}

func TestPreviews(t *testing.T) {
	srv, st, _ := setupServer(t)
	seedPreviews(t, st)

	w := do(t, srv, http.MethodGet, "/api/v1/previews?seed_id=a&decision=keep", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data  []store.ScoredPreview `json:"data"`
		Count int                   `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, 1, resp.Count)
	assert.Equal(t, "https://y/1", resp.Data[0].URL)

	assert.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodGet, "/api/v1/previews?limit=-1", "").Code)
}

func TestLeaderboard(t *testing.T) {
	srv, st, _ := setupServer(t)
	seedPreviews(t, st)

	w := do(t, srv, http.MethodGet, "/api/v1/leaderboard", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data []store.ScoredPreview `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 2)
	assert.Equal(t, 90, resp.Data[0].Score)
	assert.Equal(t, 80, resp.Data[1].Score)
}

func TestPlatforms(t *testing.T) {
	srv, st, _ := setupServer(t)
	seedPreviews(t, st)

	w := do(t, srv, http.MethodGet, "/api/v1/platforms", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data []platformInfo `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Data)
	assert.Equal(t, platformInfo{Name: "youtube", Previews: 2}, resp.Data[0])
	assert.Equal(t, platformInfo{Name: "reddit", Previews: 1}, resp.Data[1])
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _, _ := setupServer(t)

	do(t, srv, http.MethodGet, "/health", "")
	w := do(t, srv, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `seedradar_http_requests_total{method="GET",route="/health",status="200"} 1`)
}
