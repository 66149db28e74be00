package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/charleschow/ns-market/internal/telemetry"

	_ "modernc.org/sqlite"
)

const (
	maxJournalBytes int64 = 256 << 20 // 256 MiB
	evictBatchSize        = 100
	vacuumInterval        = 50
)

// Store journals raw host push frames in a FIFO SQLite database capped at
// ~256 MiB. Oldest rows are evicted when the budget is exceeded. It is a
// diagnostic log; nothing in a live session reads it back.
type Store struct {
	db           *sql.DB
	mu           sync.Mutex
	wg           sync.WaitGroup
	cachedSize   int64
	evictCounter int
	maxBytes     int64
}

// Entry is one journaled frame.
type Entry struct {
	ID       int64
	Action   string
	Received time.Time
	Raw      []byte
}

func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create journal dir: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	db.SetMaxOpenConns(1)

	var avMode int
	if err := db.QueryRow(`PRAGMA auto_vacuum`).Scan(&avMode); err != nil {
		db.Close()
		return nil, fmt.Errorf("read auto_vacuum: %w", err)
	}
	if avMode != 2 { // 2 = INCREMENTAL
		if _, err := db.Exec(`PRAGMA auto_vacuum = INCREMENTAL`); err != nil {
			db.Close()
			return nil, fmt.Errorf("set auto_vacuum: %w", err)
		}
		if _, err := db.Exec(`VACUUM`); err != nil {
			telemetry.Warnf("journal: VACUUM to enable auto_vacuum failed: %v", err)
		}
	}

	for _, stmt := range []string{
		`CREATE TABLE IF NOT EXISTS inbound_frames (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			action    TEXT    NOT NULL,
			received  TEXT    NOT NULL,
			byte_size INTEGER NOT NULL,
			raw       BLOB    NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_frames_action ON inbound_frames(action)`,
	} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("init journal schema (%s): %w", stmt, err)
		}
	}

	var size int64
	row := db.QueryRow(`SELECT COALESCE(SUM(byte_size), 0) FROM inbound_frames`)
	if err := row.Scan(&size); err != nil {
		db.Close()
		return nil, fmt.Errorf("read current journal size: %w", err)
	}

	telemetry.Infof("journal: opened %s rows_bytes=%d", path, size)

	return &Store{db: db, cachedSize: size, maxBytes: maxJournalBytes}, nil
}

// Record stores a raw frame asynchronously. A nil Store is a no-op.
func (s *Store) Record(action string, raw []byte) {
	if s == nil {
		return
	}
	if action == "" {
		action = "unknown"
	}
	rawLen := int64(len(raw))
	rawCopy := make([]byte, rawLen)
	copy(rawCopy, raw)
	received := time.Now().UTC().Format(time.RFC3339Nano)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.mu.Lock()
		defer s.mu.Unlock()

		_, err := s.db.Exec(
			`INSERT INTO inbound_frames (action, received, byte_size, raw) VALUES (?, ?, ?, ?)`,
			action, received, rawLen, rawCopy,
		)
		if err != nil {
			telemetry.Warnf("journal: insert failed: %v", err)
			return
		}
		telemetry.Metrics.JournalWrites.Inc()

		s.cachedSize += rawLen
		if s.cachedSize > s.maxBytes {
			s.evict()
		}
	}()
}

func (s *Store) evict() {
	for s.cachedSize > s.maxBytes {
		freed, err := s.evictBatch()
		if err != nil {
			telemetry.Warnf("journal: eviction failed: %v", err)
			break
		}
		if freed == 0 {
			break
		}
		s.cachedSize -= freed
		s.evictCounter++

		if s.evictCounter%vacuumInterval == 0 {
			if _, err := s.db.Exec(`PRAGMA incremental_vacuum`); err != nil {
				telemetry.Warnf("journal: incremental_vacuum failed: %v", err)
			}
		}
	}
}

// evictBatch deletes the oldest evictBatchSize rows and returns the bytes
// they held.
func (s *Store) evictBatch() (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	var freed int64
	var lastID sql.NullInt64
	err = tx.QueryRow(
		`SELECT COALESCE(SUM(byte_size), 0), MAX(id)
		FROM (SELECT id, byte_size FROM inbound_frames ORDER BY id ASC LIMIT ?)`,
		evictBatchSize,
	).Scan(&freed, &lastID)
	if err != nil {
		return 0, fmt.Errorf("size oldest batch: %w", err)
	}
	if !lastID.Valid {
		return 0, nil
	}
	if _, err := tx.Exec(`DELETE FROM inbound_frames WHERE id <= ?`, lastID.Int64); err != nil {
		return 0, fmt.Errorf("delete oldest batch: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return freed, nil
}

// Flush waits for pending Record calls to land.
func (s *Store) Flush() {
	if s == nil {
		return
	}
	s.wg.Wait()
}

// Filter narrows Query. Zero values match everything.
type Filter struct {
	Action   string
	Contains string // substring of the raw frame
	Limit    int    // most recent N; 0 means all
}

// Query returns matching frames oldest first.
func (s *Store) Query(ctx context.Context, f Filter) ([]Entry, error) {
	q := `SELECT id, action, received, raw FROM inbound_frames WHERE 1=1`
	var args []any
	if f.Action != "" {
		q += ` AND action = ?`
		args = append(args, f.Action)
	}
	if f.Contains != "" {
		q += ` AND CAST(raw AS TEXT) LIKE ?`
		args = append(args, "%"+f.Contains+"%")
	}
	q += ` ORDER BY id DESC`
	if f.Limit > 0 {
		q += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query journal: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var received string
		if err := rows.Scan(&e.ID, &e.Action, &received, &e.Raw); err != nil {
			return nil, fmt.Errorf("scan journal row: %w", err)
		}
		e.Received, _ = time.Parse(time.RFC3339Nano, received)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate journal: %w", err)
	}

	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	s.Flush()
	return s.db.Close()
}
