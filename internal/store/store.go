// Package store persists seeds, collected previews and their scores in
// SQLite or PostgreSQL.
package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/elonfeng/seedradar/pkg/preview"
	"github.com/elonfeng/seedradar/pkg/relevance"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// PreviewRow is a stored preview collected for a seed.
type PreviewRow struct {
	ID          string                   `db:"id" json:"id"`
	SeedID      string                   `db:"seed_id" json:"seed_id"`
	Platform    string                   `db:"platform" json:"platform"`
	URL         string                   `db:"url" json:"url"`
	Query       string                   `db:"query" json:"query,omitempty"`
	CollectedAt time.Time                `db:"collected_at" json:"collected_at"`
	Preview     preview.CanonicalPreview `db:"-" json:"preview"`
	PreviewJSON string                   `db:"preview" json:"-"`
}

// ScoreRecord is the result of scoring one stored preview.
type ScoreRecord struct {
	PreviewID string             `json:"preview_id"`
	Score     int                `json:"score"`
	Decision  string             `json:"decision"`
	Signals   map[string]float64 `json:"signals"`
	ScoredAt  time.Time          `json:"scored_at"`
}

// ScoredPreview joins a preview with its latest score.
type ScoredPreview struct {
	PreviewRow
	Score       int                `db:"score" json:"score"`
	Decision    string             `db:"decision" json:"decision"`
	ScoredAt    time.Time          `db:"scored_at" json:"scored_at"`
	Alerted     bool               `db:"alerted" json:"alerted"`
	Signals     map[string]float64 `db:"-" json:"signals"`
	SignalsJSON string             `db:"signals" json:"-"`
}

// ListScoredOpts controls scored preview listing.
type ListScoredOpts struct {
	SeedID    string
	Platform  string
	Decision  string
	MinScore  int
	Unalerted bool
	Limit     int
}

// Store is the persistence interface.
type Store interface {
	UpsertSeed(ctx context.Context, seed *relevance.Seed) error
	GetSeed(ctx context.Context, id string) (*relevance.Seed, error)
	ListSeeds(ctx context.Context, limit int) ([]relevance.Seed, error)

	UpsertPreview(ctx context.Context, row *PreviewRow) error
	ListUnscoredPreviews(ctx context.Context, limit int) ([]PreviewRow, error)

	SaveScore(ctx context.Context, rec ScoreRecord) error
	ListScored(ctx context.Context, opts ListScoredOpts) ([]ScoredPreview, error)
	MarkAlerted(ctx context.Context, previewID string) error
	CountByPlatform(ctx context.Context) (map[string]int, error)

	Close() error
}

// SQLStore implements Store on database/sql via sqlx.
type SQLStore struct {
	db  *sqlx.DB
	sb  sq.StatementBuilderType
	now func() time.Time
}

// Open connects to driver ("sqlite" or "postgres") and runs migrations.
func Open(driver, dsn string) (*SQLStore, error) {
	var placeholder sq.PlaceholderFormat
	switch driver {
	case "sqlite":
		placeholder = sq.Question
		dsn = sqliteDSN(dsn)
	case "postgres":
		placeholder = sq.Dollar
	default:
		return nil, fmt.Errorf("open store: unsupported driver %q", driver)
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == "sqlite" {
		// One connection keeps :memory: databases shared and writers serialized.
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLStore{
		db:  db,
		sb:  sq.StatementBuilder.PlaceholderFormat(placeholder),
		now: func() time.Time { return time.Now().UTC() },
	}, nil
}

func sqliteDSN(dsn string) string {
	if dsn == ":memory:" || strings.Contains(dsn, "?") {
		return dsn
	}
	return dsn + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

// UpsertSeed stores seed, assigning a new ID when it has none.
func (s *SQLStore) UpsertSeed(ctx context.Context, seed *relevance.Seed) error {
	if seed.ID == "" {
		seed.ID = uuid.NewString()
	}
	profile, err := json.Marshal(seed)
	if err != nil {
		return fmt.Errorf("encode seed %s: %w", seed.ID, err)
	}
	now := s.now()

	query, args, err := s.sb.Insert("seeds").
		Columns("id", "title", "profile", "created_at", "updated_at").
		Values(seed.ID, seed.Title, string(profile), now, now).
		Suffix("ON CONFLICT (id) DO UPDATE SET title = excluded.title, profile = excluded.profile, updated_at = excluded.updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert seed: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert seed %s: %w", seed.ID, err)
	}
	return nil
}

func (s *SQLStore) GetSeed(ctx context.Context, id string) (*relevance.Seed, error) {
	query, args, err := s.sb.Select("profile").From("seeds").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get seed: %w", err)
	}
	var profile string
	if err := s.db.GetContext(ctx, &profile, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("get seed %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("get seed %s: %w", id, err)
	}
	var seed relevance.Seed
	if err := json.Unmarshal([]byte(profile), &seed); err != nil {
		return nil, fmt.Errorf("decode seed %s: %w", id, err)
	}
	seed.ID = id
	return &seed, nil
}

func (s *SQLStore) ListSeeds(ctx context.Context, limit int) ([]relevance.Seed, error) {
	qb := s.sb.Select("id", "profile").From("seeds").OrderBy("created_at", "id")
	if limit > 0 {
		qb = qb.Limit(uint64(limit))
	}
	query, args, err := qb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list seeds: %w", err)
	}

	var rows []struct {
		ID      string `db:"id"`
		Profile string `db:"profile"`
	}
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list seeds: %w", err)
	}

	seeds := make([]relevance.Seed, 0, len(rows))
	for _, r := range rows {
		var seed relevance.Seed
		if err := json.Unmarshal([]byte(r.Profile), &seed); err != nil {
			return nil, fmt.Errorf("decode seed %s: %w", r.ID, err)
		}
		seed.ID = r.ID
		seeds = append(seeds, seed)
	}
	return seeds, nil
}

// UpsertPreview stores a preview once per seed, platform and URL. Previews
// without a URL are keyed by a hash of their content. On return row.ID holds
// the stored row's ID.
func (s *SQLStore) UpsertPreview(ctx context.Context, row *PreviewRow) error {
	if row.SeedID == "" {
		return fmt.Errorf("upsert preview: empty seed id")
	}
	if row.Platform == "" {
		row.Platform = string(row.Preview.Platform)
	}
	if row.ID == "" {
		row.ID = uuid.NewString()
	}
	if row.CollectedAt.IsZero() {
		row.CollectedAt = s.now()
	}
	if row.Preview.URL != nil {
		row.URL = *row.Preview.URL
	}

	data, err := json.Marshal(row.Preview)
	if err != nil {
		return fmt.Errorf("encode preview: %w", err)
	}
	row.PreviewJSON = string(data)

	query, args, err := s.sb.Insert("previews").
		Columns("id", "seed_id", "platform", "dedup_key", "url", "query", "preview", "collected_at").
		Values(row.ID, row.SeedID, row.Platform, dedupKey(row.URL, data), row.URL, row.Query, row.PreviewJSON, row.CollectedAt).
		Suffix("ON CONFLICT (seed_id, platform, dedup_key) DO UPDATE SET preview = excluded.preview, collected_at = excluded.collected_at RETURNING id").
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert preview: %w", err)
	}
	if err := s.db.QueryRowxContext(ctx, query, args...).Scan(&row.ID); err != nil {
		return fmt.Errorf("upsert preview %s: %w", row.URL, err)
	}
	return nil
}

func dedupKey(url string, content []byte) string {
	if url != "" {
		return url
	}
	sum := sha256.Sum256(content)
	return "sha256:" + hex.EncodeToString(sum[:])
}

var previewColumns = []string{"p.id", "p.seed_id", "p.platform", "p.url", "p.query", "p.preview", "p.collected_at"}

// ListUnscoredPreviews returns previews without a score, oldest first.
func (s *SQLStore) ListUnscoredPreviews(ctx context.Context, limit int) ([]PreviewRow, error) {
	qb := s.sb.Select(previewColumns...).
		From("previews p").
		LeftJoin("preview_scores s ON s.preview_id = p.id").
		Where("s.preview_id IS NULL").
		OrderBy("p.collected_at", "p.id")
	if limit > 0 {
		qb = qb.Limit(uint64(limit))
	}
	query, args, err := qb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list unscored: %w", err)
	}

	var rows []PreviewRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list unscored previews: %w", err)
	}
	for i := range rows {
		if err := json.Unmarshal([]byte(rows[i].PreviewJSON), &rows[i].Preview); err != nil {
			return nil, fmt.Errorf("decode preview %s: %w", rows[i].ID, err)
		}
	}
	return rows, nil
}

// SaveScore records or replaces the score for a preview. Re-scoring keeps
// the alerted flag.
func (s *SQLStore) SaveScore(ctx context.Context, rec ScoreRecord) error {
	if rec.ScoredAt.IsZero() {
		rec.ScoredAt = s.now()
	}
	signals, err := json.Marshal(rec.Signals)
	if err != nil {
		return fmt.Errorf("encode signals: %w", err)
	}

	query, args, err := s.sb.Insert("preview_scores").
		Columns("preview_id", "score", "decision", "signals", "scored_at", "alerted").
		Values(rec.PreviewID, rec.Score, rec.Decision, string(signals), rec.ScoredAt, false).
		Suffix("ON CONFLICT (preview_id) DO UPDATE SET score = excluded.score, decision = excluded.decision, signals = excluded.signals, scored_at = excluded.scored_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build save score: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("save score %s: %w", rec.PreviewID, err)
	}
	return nil
}

// ListScored returns scored previews, highest score first.
func (s *SQLStore) ListScored(ctx context.Context, opts ListScoredOpts) ([]ScoredPreview, error) {
	cols := append(append([]string(nil), previewColumns...), "s.score", "s.decision", "s.signals", "s.scored_at", "s.alerted")
	qb := s.sb.Select(cols...).
		From("previews p").
		Join("preview_scores s ON s.preview_id = p.id")

	if opts.SeedID != "" {
		qb = qb.Where(sq.Eq{"p.seed_id": opts.SeedID})
	}
	if opts.Platform != "" {
		qb = qb.Where(sq.Eq{"p.platform": opts.Platform})
	}
	if opts.Decision != "" {
		qb = qb.Where(sq.Eq{"s.decision": opts.Decision})
	}
	if opts.MinScore > 0 {
		qb = qb.Where(sq.GtOrEq{"s.score": opts.MinScore})
	}
	if opts.Unalerted {
		qb = qb.Where(sq.Eq{"s.alerted": false})
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = 100
	}
	query, args, err := qb.OrderBy("s.score DESC", "p.collected_at DESC", "p.id").Limit(uint64(limit)).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list scored: %w", err)
	}

	var rows []ScoredPreview
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list scored previews: %w", err)
	}
	for i := range rows {
		if err := json.Unmarshal([]byte(rows[i].PreviewJSON), &rows[i].Preview); err != nil {
			return nil, fmt.Errorf("decode preview %s: %w", rows[i].ID, err)
		}
		if err := json.Unmarshal([]byte(rows[i].SignalsJSON), &rows[i].Signals); err != nil {
			return nil, fmt.Errorf("decode signals %s: %w", rows[i].ID, err)
		}
	}
	return rows, nil
}

func (s *SQLStore) MarkAlerted(ctx context.Context, previewID string) error {
	query, args, err := s.sb.Update("preview_scores").
		Set("alerted", true).
		Where(sq.Eq{"preview_id": previewID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build mark alerted: %w", err)
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("mark alerted %s: %w", previewID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("mark alerted %s: %w", previewID, ErrNotFound)
	}
	return nil
}

func (s *SQLStore) CountByPlatform(ctx context.Context) (map[string]int, error) {
	query, args, err := s.sb.Select("platform", "COUNT(*) AS cnt").From("previews").GroupBy("platform").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build count by platform: %w", err)
	}
	rows, err := s.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("count previews by platform: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var platform string
		var cnt int
		if err := rows.Scan(&platform, &cnt); err != nil {
			return nil, err
		}
		counts[platform] = cnt
	}
	return counts, rows.Err()
}
