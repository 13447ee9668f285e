package store

// schema is portable between SQLite and PostgreSQL.
const schema = `
CREATE TABLE IF NOT EXISTS seeds (
    id         TEXT PRIMARY KEY,
    title      TEXT NOT NULL DEFAULT '',
    profile    TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS previews (
    id           TEXT PRIMARY KEY,
    seed_id      TEXT NOT NULL REFERENCES seeds(id),
    platform     TEXT NOT NULL,
    dedup_key    TEXT NOT NULL,
    url          TEXT NOT NULL DEFAULT '',
    query        TEXT NOT NULL DEFAULT '',
    preview      TEXT NOT NULL,
    collected_at TIMESTAMP NOT NULL,
    UNIQUE(seed_id, platform, dedup_key)
);

CREATE INDEX IF NOT EXISTS idx_previews_seed ON previews(seed_id);
CREATE INDEX IF NOT EXISTS idx_previews_collected_at ON previews(collected_at);

CREATE TABLE IF NOT EXISTS preview_scores (
    preview_id TEXT PRIMARY KEY REFERENCES previews(id),
    score      INTEGER NOT NULL,
    decision   TEXT NOT NULL,
    signals    TEXT NOT NULL DEFAULT '{}',
    scored_at  TIMESTAMP NOT NULL,
    alerted    BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE INDEX IF NOT EXISTS idx_preview_scores_score ON preview_scores(score);
`
