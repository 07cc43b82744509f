// Package store provides the SQLite-backed dedup store for mailwatch.
//
// The store is the sole durable state of the engine: the set of message
// ids that have been evaluated, and the match record for each message
// that matched. Both only grow (except for an explicit Clear), and every
// match id is also an evaluated id.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rvashist/mailwatch/internal/types"
	_ "modernc.org/sqlite"
)

// ConsistencyError reports an attempt to record a different outcome for
// a message that was already evaluated. It indicates a logic bug: the
// first recorded outcome is the source of truth and is never overwritten.
type ConsistencyError struct {
	MessageID string
	Detail    string
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("dedup store: conflicting outcome for message %s: %s", e.MessageID, e.Detail)
}

// Store wraps a SQLite connection for dedup operations.
type Store struct {
	conn *sql.DB
	path string

	// Serializes RecordEvaluated so two concurrent records of the same id
	// cannot interleave between the existence check and the insert.
	mu sync.Mutex
}

// Open opens (or creates) a mailwatch database at the given path.
func Open(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create directory %s: %w", dir, err)
	}

	conn, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := conn.Exec(Schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return &Store{conn: conn, path: dbPath}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Now returns the current time as an ISO 8601 string.
func Now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// Discover finds the mailwatch database by walking up from cwd.
// Returns the path to .mailwatch/watch.db or empty string if not found.
func Discover() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		candidate := filepath.Join(dir, ".mailwatch", "watch.db")
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

// HasEvaluated reports whether a message id has already been evaluated.
func (s *Store) HasEvaluated(id string) bool {
	var n int
	s.conn.QueryRow("SELECT 1 FROM evaluated WHERE message_id = ?", id).Scan(&n)
	return n == 1
}

// Contains reports whether a message id produced a match record.
func (s *Store) Contains(id string) bool {
	var n int
	s.conn.QueryRow("SELECT 1 FROM matches WHERE message_id = ?", id).Scan(&n)
	return n == 1
}

// RecordEvaluated marks a message as evaluated, storing its match record
// when rec is non-nil. Recording the same id twice with the same outcome
// is a no-op; recording a different outcome returns a ConsistencyError.
// The write is committed before RecordEvaluated returns, so a caller may
// notify immediately afterwards without risking a duplicate on restart.
func (s *Store) RecordEvaluated(id string, rec *types.MatchRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched int
	err := s.conn.QueryRow("SELECT matched FROM evaluated WHERE message_id = ?", id).Scan(&matched)
	switch {
	case err == sql.ErrNoRows:
		return s.insertOutcome(id, rec)
	case err != nil:
		return fmt.Errorf("lookup evaluated %s: %w", id, err)
	}

	// Already evaluated: verify the outcome is identical.
	if (matched == 1) != (rec != nil) {
		return &ConsistencyError{
			MessageID: id,
			Detail:    fmt.Sprintf("recorded matched=%v, got matched=%v", matched == 1, rec != nil),
		}
	}
	if rec == nil {
		return nil
	}

	var filesJSON string
	if err := s.conn.QueryRow("SELECT matched_files FROM matches WHERE message_id = ?", id).Scan(&filesJSON); err != nil {
		return fmt.Errorf("lookup match %s: %w", id, err)
	}
	var existing []string
	if err := json.Unmarshal([]byte(filesJSON), &existing); err != nil {
		return fmt.Errorf("decode matched files for %s: %w", id, err)
	}
	if !equalStrings(existing, rec.MatchedFilenames) {
		return &ConsistencyError{
			MessageID: id,
			Detail:    fmt.Sprintf("recorded files %v, got %v", existing, rec.MatchedFilenames),
		}
	}
	return nil
}

func (s *Store) insertOutcome(id string, rec *types.MatchRecord) error {
	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin record: %w", err)
	}
	defer tx.Rollback()

	now := Now()
	matched := 0
	if rec != nil {
		matched = 1
	}
	if _, err := tx.Exec(
		"INSERT INTO evaluated (message_id, matched, evaluated_at) VALUES (?, ?, ?)",
		id, matched, now,
	); err != nil {
		return fmt.Errorf("insert evaluated %s: %w", id, err)
	}

	if rec != nil {
		files, err := json.Marshal(rec.MatchedFilenames)
		if err != nil {
			return fmt.Errorf("encode matched files: %w", err)
		}
		if _, err := tx.Exec(`
			INSERT INTO matches
				(message_id, sender, subject, received_at, body_preview, matched_files, recorded_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			rec.MessageID, rec.Sender, rec.Subject,
			rec.ReceivedAt.UTC().Format(time.RFC3339), nullStr(rec.BodyPreview),
			string(files), now,
		); err != nil {
			return fmt.Errorf("insert match %s: %w", id, err)
		}
	}

	return tx.Commit()
}

// ListMatches returns all match records ordered by receivedAt descending,
// ties broken by message id for determinism.
func (s *Store) ListMatches() ([]*types.MatchRecord, error) {
	rows, err := s.conn.Query(`
		SELECT message_id, sender, subject, received_at, body_preview, matched_files
		FROM matches
		ORDER BY received_at DESC, message_id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*types.MatchRecord
	for rows.Next() {
		rec := &types.MatchRecord{}
		var receivedAt, filesJSON string
		var preview sql.NullString
		if err := rows.Scan(
			&rec.MessageID, &rec.Sender, &rec.Subject, &receivedAt, &preview, &filesJSON,
		); err != nil {
			return nil, err
		}
		rec.BodyPreview = preview.String
		if t, err := time.Parse(time.RFC3339, receivedAt); err == nil {
			rec.ReceivedAt = t
		}
		if err := json.Unmarshal([]byte(filesJSON), &rec.MatchedFilenames); err != nil {
			return nil, fmt.Errorf("decode matched files for %s: %w", rec.MessageID, err)
		}
		result = append(result, rec)
	}
	return result, rows.Err()
}

// EvaluatedCount returns how many messages have been evaluated.
func (s *Store) EvaluatedCount() int {
	var n int
	s.conn.QueryRow("SELECT COUNT(*) FROM evaluated").Scan(&n)
	return n
}

// MatchCount returns how many messages produced matches.
func (s *Store) MatchCount() int {
	var n int
	s.conn.QueryRow("SELECT COUNT(*) FROM matches").Scan(&n)
	return n
}

// LatestEvaluatedAt returns the most recent evaluation timestamp, or ""
// when nothing has been evaluated yet.
func (s *Store) LatestEvaluatedAt() string {
	var t sql.NullString
	s.conn.QueryRow("SELECT MAX(evaluated_at) FROM evaluated").Scan(&t)
	if t.Valid {
		return t.String
	}
	return ""
}

// Clear wipes all match records and evaluated ids in one transaction, so
// every message becomes eligible for re-evaluation. This is the only
// operation that shrinks the store.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin clear: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM matches"); err != nil {
		return fmt.Errorf("clear matches: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM evaluated"); err != nil {
		return fmt.Errorf("clear evaluated: %w", err)
	}
	return tx.Commit()
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func nullStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}
