package store

// Schema is the DDL for the mailwatch dedup database.
const Schema = `
CREATE TABLE IF NOT EXISTS evaluated (
    message_id   TEXT PRIMARY KEY,
    matched      INTEGER NOT NULL DEFAULT 0,
    evaluated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS matches (
    message_id    TEXT PRIMARY KEY,
    sender        TEXT NOT NULL,
    subject       TEXT NOT NULL,
    received_at   TEXT NOT NULL,
    body_preview  TEXT,
    matched_files TEXT NOT NULL,
    recorded_at   TEXT NOT NULL,
    FOREIGN KEY (message_id) REFERENCES evaluated(message_id)
);

CREATE INDEX IF NOT EXISTS idx_matches_received ON matches(received_at DESC, message_id);
`
