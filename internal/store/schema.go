package store

// Schema creates the runs table. Timestamps are RFC 3339 text in UTC.
const Schema = `
CREATE TABLE IF NOT EXISTS runs (
    id          TEXT PRIMARY KEY,
    symbol      TEXT NOT NULL,
    strategy    TEXT NOT NULL,
    parameters  TEXT NOT NULL DEFAULT '{}',
    status      TEXT NOT NULL,
    error       TEXT NOT NULL DEFAULT '',
    results     TEXT,
    created_at  TEXT NOT NULL,
    updated_at  TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_symbol ON runs(symbol);
CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
`
