package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"git.home.luguber.info/inful/sitepublisher/internal/foundation/errors"
)

// DefaultListLimit is used when List is called with a non-positive limit.
const DefaultListLimit = 50

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteStore opens (and migrates) the history database.
// Use ":memory:" for an in-memory database, or a file path for persistent storage.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, errors.HistoryError("could not open history database").WithCause(err).WithContext("path", dbPath).Build()
	}
	// A single connection keeps ":memory:" databases shared across calls.
	db.SetMaxOpenConns(1)

	s := newStore(db)
	if err := s.initialize(); err != nil {
		_ = db.Close()
		return nil, errors.HistoryError("failed to initialize history schema").WithCause(err).Build()
	}
	return s, nil
}

func newStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS publishes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		publish_id TEXT NOT NULL UNIQUE,
		started_at INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL,
		outcome TEXT NOT NULL,
		reference TEXT,
		succeeded TEXT NOT NULL,
		failed TEXT NOT NULL,
		trigger_status TEXT NOT NULL,
		trigger_error TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_publishes_started_at ON publishes(started_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Record implements Store.
func (s *SQLiteStore) Record(ctx context.Context, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	succeeded, err := json.Marshal(nonNil(e.Succeeded))
	if err != nil {
		return errors.HistoryError("marshal succeeded targets").WithCause(err).Build()
	}
	failed := []FailedTarget{}
	if e.Failed != nil {
		failed = e.Failed
	}
	failedJSON, err := json.Marshal(failed)
	if err != nil {
		return errors.HistoryError("marshal failed targets").WithCause(err).Build()
	}
	if e.TriggerStatus == "" {
		e.TriggerStatus = TriggerSkipped
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO publishes (publish_id, started_at, duration_ms, outcome, reference, succeeded, failed, trigger_status, trigger_error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.PublishID, e.StartedAt.UnixMilli(), e.DurationMS, e.Outcome, e.Reference,
		string(succeeded), string(failedJSON), string(e.TriggerStatus), e.TriggerError,
	)
	if err != nil {
		return errors.HistoryError("failed to record publish").WithCause(err).WithContext("publish_id", e.PublishID).Build()
	}
	return nil
}

// RecordTrigger implements Store.
func (s *SQLiteStore) RecordTrigger(ctx context.Context, publishID string, status TriggerStatus, triggerErr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"UPDATE publishes SET trigger_status = ?, trigger_error = ? WHERE publish_id = ?",
		string(status), triggerErr, publishID,
	)
	if err != nil {
		return errors.HistoryError("failed to record trigger result").WithCause(err).WithContext("publish_id", publishID).Build()
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errors.NotFoundError("publish not found in history").WithContext("publish_id", publishID).Build()
	}
	return nil
}

const selectColumns = "SELECT id, publish_id, started_at, duration_ms, outcome, reference, succeeded, failed, trigger_status, trigger_error FROM publishes"

// Get implements Store.
func (s *SQLiteStore) Get(ctx context.Context, publishID string) (*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, selectColumns+" WHERE publish_id = ?", publishID)
	if err != nil {
		return nil, errors.HistoryError("failed to query history").WithCause(err).Build()
	}
	defer func() { _ = rows.Close() }()

	entries, err := scanEntries(rows)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, errors.NotFoundError("publish not found in history").WithContext("publish_id", publishID).Build()
	}
	return &entries[0], nil
}

// List implements Store.
func (s *SQLiteStore) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, selectColumns+" ORDER BY started_at DESC, id DESC LIMIT ?", limit)
	if err != nil {
		return nil, errors.HistoryError("failed to query history").WithCause(err).Build()
	}
	defer func() { _ = rows.Close() }()
	return scanEntries(rows)
}

// Prune implements Store.
func (s *SQLiteStore) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM publishes WHERE started_at < ?", cutoff.UnixMilli())
	if err != nil {
		return 0, errors.HistoryError("failed to prune history").WithCause(err).Build()
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.HistoryError("failed to count pruned rows").WithCause(err).Build()
	}
	return n, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	var entries []Entry
	for rows.Next() {
		var (
			e                 Entry
			startedAt, durMS  int64
			reference, trgErr sql.NullString
			succeeded, failed string
			status            string
		)
		if err := rows.Scan(&e.ID, &e.PublishID, &startedAt, &durMS, &e.Outcome, &reference, &succeeded, &failed, &status, &trgErr); err != nil {
			return nil, errors.HistoryError("failed to scan history row").WithCause(err).Build()
		}
		e.StartedAt = time.UnixMilli(startedAt).UTC()
		e.DurationMS = durMS
		e.Reference = reference.String
		e.TriggerStatus = TriggerStatus(status)
		e.TriggerError = trgErr.String
		if err := json.Unmarshal([]byte(succeeded), &e.Succeeded); err != nil {
			return nil, errors.HistoryError("failed to decode succeeded targets").WithCause(err).Build()
		}
		if err := json.Unmarshal([]byte(failed), &e.Failed); err != nil {
			return nil, errors.HistoryError("failed to decode failed targets").WithCause(err).Build()
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.HistoryError("failed to iterate history rows").WithCause(err).Build()
	}
	return entries, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// IsNotFound reports whether err means the publish id is unknown.
func IsNotFound(err error) bool {
	return errors.HasCategory(err, errors.CategoryNotFound)
}
