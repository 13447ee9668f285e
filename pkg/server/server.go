// Package server exposes scoring and stored results over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/elonfeng/seedradar/internal/logging"
	"github.com/elonfeng/seedradar/internal/metrics"
	"github.com/elonfeng/seedradar/internal/pipeline"
	"github.com/elonfeng/seedradar/internal/store"
	"github.com/elonfeng/seedradar/pkg/preview"
	"github.com/elonfeng/seedradar/pkg/query"
	"github.com/elonfeng/seedradar/pkg/rankerr"
	"github.com/elonfeng/seedradar/pkg/relevance"
)

const (
	defaultListLimit   = 100
	leaderboardScan    = 1000
	defaultLeaderboard = 10
	shutdownTimeout    = 10 * time.Second
)

// Server provides the HTTP API.
type Server struct {
	store   store.Store
	scorer  *relevance.Scorer
	metrics *metrics.Metrics
	log     logging.Logger
	port    int
	router  *gin.Engine
}

// New creates a new HTTP server.
func New(s store.Store, scorer *relevance.Scorer, m *metrics.Metrics, log logging.Logger, port int) *Server {
	if port == 0 {
		port = 8080
	}
	srv := &Server{
		store:   s,
		scorer:  scorer,
		metrics: m,
		log:     log,
		port:    port,
	}
	srv.router = srv.buildRouter()
	return srv
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) buildRouter() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.countRequests())

	r.GET("/health", s.handleHealth)
	r.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	v1 := r.Group("/api/v1")
	v1.POST("/normalize", s.handleNormalize)
	v1.POST("/score", s.handleScore)
	v1.GET("/seeds", s.handleSeeds)
	v1.GET("/previews", s.handlePreviews)
	v1.GET("/leaderboard", s.handleLeaderboard)
	v1.GET("/platforms", s.handlePlatforms)
	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("server listening", logging.String("addr", httpSrv.Addr))
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown server: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) countRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		s.metrics.HTTPRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type normalizeRequest struct {
	Platform string            `json:"platform"`
	Raw      preview.RawRecord `json:"raw"`
}

func (s *Server) handleNormalize(c *gin.Context) {
	var req normalizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, fmt.Errorf("decode request: %v: %w", err, rankerr.ErrInvalidInput))
		return
	}

	p, err := preview.Normalize(req.Platform, req.Raw)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": p})
}

type scoreRequest struct {
	Seed     *relevance.Seed   `json:"seed"`
	Platform string            `json:"platform"`
	Raw      preview.RawRecord `json:"raw"`
}

func (s *Server) handleScore(c *gin.Context) {
	var req scoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, fmt.Errorf("decode request: %v: %w", err, rankerr.ErrInvalidInput))
		return
	}

	p, result, err := s.scorer.ScoreRaw(req.Seed, req.Platform, req.Raw)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"preview": p, "result": result}})
}

func (s *Server) handleSeeds(c *gin.Context) {
	limit, err := intParam(c, "limit", defaultListLimit)
	if err != nil {
		writeError(c, err)
		return
	}

	seeds, err := s.store.ListSeeds(c.Request.Context(), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": seeds, "count": len(seeds)})
}

func (s *Server) handlePreviews(c *gin.Context) {
	minScore, err := intParam(c, "min_score", 0)
	if err != nil {
		writeError(c, err)
		return
	}
	limit, err := intParam(c, "limit", defaultListLimit)
	if err != nil {
		writeError(c, err)
		return
	}

	rows, err := s.store.ListScored(c.Request.Context(), store.ListScoredOpts{
		SeedID:   c.Query("seed_id"),
		Platform: c.Query("platform"),
		Decision: c.Query("decision"),
		MinScore: minScore,
		Limit:    limit,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": rows, "count": len(rows)})
}

func (s *Server) handleLeaderboard(c *gin.Context) {
	minScore, err := intParam(c, "min_score", int(s.scorer.Config().KeepThreshold))
	if err != nil {
		writeError(c, err)
		return
	}
	topK, err := intParam(c, "top_k", defaultLeaderboard)
	if err != nil {
		writeError(c, err)
		return
	}

	rows, err := s.store.ListScored(c.Request.Context(), store.ListScoredOpts{
		SeedID:   c.Query("seed_id"),
		MinScore: minScore,
		Limit:    leaderboardScan,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	board := pipeline.Leaderboard(rows, minScore, topK)
	c.JSON(http.StatusOK, gin.H{"data": board, "count": len(board)})
}

type platformInfo struct {
	Name     string `json:"name"`
	Previews int    `json:"previews"`
}

func (s *Server) handlePlatforms(c *gin.Context) {
	counts, err := s.store.CountByPlatform(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	names := slices.Clone(query.Platforms)
	var extra []string
	for name := range counts {
		if !slices.Contains(names, name) {
			extra = append(extra, name)
		}
	}
	slices.Sort(extra)
	names = append(names, extra...)

	infos := make([]platformInfo, 0, len(names))
	for _, name := range names {
		infos = append(infos, platformInfo{Name: name, Previews: counts[name]})
	}
	c.JSON(http.StatusOK, gin.H{"data": infos, "count": len(infos)})
}

func intParam(c *gin.Context, name string, def int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("query parameter %s=%q: %w", name, raw, rankerr.ErrInvalidInput)
	}
	return n, nil
}

func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, rankerr.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound):
		status = http.StatusNotFound
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}
