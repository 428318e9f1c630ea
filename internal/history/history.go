// Package history persists run records and per-recommendation outcomes to
// SQLite so past runs can be inspected from the CLI.
package history

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	started_at     DATETIME NOT NULL,
	finished_at    DATETIME,
	album_recs     INTEGER NOT NULL DEFAULT 0,
	track_recs     INTEGER NOT NULL DEFAULT 0,
	snatched       INTEGER NOT NULL DEFAULT 0,
	skipped        INTEGER NOT NULL DEFAULT 0,
	failed         INTEGER NOT NULL DEFAULT 0,
	bytes_snatched INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS outcomes (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id       INTEGER NOT NULL REFERENCES runs(id),
	kind         TEXT NOT NULL,
	context      TEXT NOT NULL DEFAULT '',
	artist       TEXT NOT NULL,
	release_name TEXT NOT NULL,
	track        TEXT NOT NULL DEFAULT '',
	torrent_id   INTEGER NOT NULL DEFAULT 0,
	status       TEXT NOT NULL,
	detail       TEXT NOT NULL DEFAULT '',
	token_used   INTEGER NOT NULL DEFAULT 0,
	path         TEXT NOT NULL DEFAULT '',
	created_at   DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_outcomes_run ON outcomes(run_id);
`

// Outcome statuses.
const (
	StatusSnatched = "snatched"
	StatusSkipped  = "skipped"
	StatusFailed   = "failed"
)

// Run is one recorded engine run.
type Run struct {
	ID            int64
	StartedAt     time.Time
	FinishedAt    time.Time
	AlbumRecs     int
	TrackRecs     int
	Snatched      int
	Skipped       int
	Failed        int
	BytesSnatched int64
}

// Outcome is the terminal state of one recommendation within a run. Detail
// carries the skip reason or failure category.
type Outcome struct {
	RunID     int64
	Kind      string
	Context   string
	Artist    string
	Release   string
	Track     string
	TorrentID int64
	Status    string
	Detail    string
	TokenUsed bool
	Path      string
}

// Store is the SQLite-backed run history.
type Store struct {
	db  *sql.DB
	log *slog.Logger
}

// Open creates or opens the history database at path.
func Open(path string, log *slog.Logger) (*Store, error) {
	if log == nil {
		log = slog.Default()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening history db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing history schema: %w", err)
	}
	return &Store{db: db, log: log.With("component", "history")}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// StartRun records the beginning of a run and returns its id.
func (s *Store) StartRun(albumRecs, trackRecs int) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO runs (started_at, album_recs, track_recs) VALUES (?, ?, ?)`,
		time.Now().UTC(), albumRecs, trackRecs,
	)
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}
	return res.LastInsertId()
}

// FinishRun stamps the run's end and final counters.
func (s *Store) FinishRun(runID int64, snatched, skipped, failed int, bytesSnatched int64) error {
	_, err := s.db.Exec(
		`UPDATE runs SET finished_at = ?, snatched = ?, skipped = ?, failed = ?, bytes_snatched = ? WHERE id = ?`,
		time.Now().UTC(), snatched, skipped, failed, bytesSnatched, runID,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}

// RecordOutcome appends one recommendation outcome to the run.
func (s *Store) RecordOutcome(o Outcome) error {
	_, err := s.db.Exec(
		`INSERT INTO outcomes
			(run_id, kind, context, artist, release_name, track, torrent_id, status, detail, token_used, path, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.RunID, o.Kind, o.Context, o.Artist, o.Release, o.Track,
		o.TorrentID, o.Status, o.Detail, o.TokenUsed, o.Path, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert outcome: %w", err)
	}
	return nil
}

// Runs returns the most recent runs, newest first.
func (s *Store) Runs(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(
		`SELECT id, started_at, COALESCE(finished_at, started_at),
			album_recs, track_recs, snatched, skipped, failed, bytes_snatched
		 FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.StartedAt, &r.FinishedAt,
			&r.AlbumRecs, &r.TrackRecs, &r.Snatched, &r.Skipped, &r.Failed, &r.BytesSnatched); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Outcomes returns every outcome recorded for a run, in insertion order.
func (s *Store) Outcomes(runID int64) ([]Outcome, error) {
	rows, err := s.db.Query(
		`SELECT run_id, kind, context, artist, release_name, track, torrent_id, status, detail, token_used, path
		 FROM outcomes WHERE run_id = ? ORDER BY id ASC`, runID)
	if err != nil {
		return nil, fmt.Errorf("query outcomes: %w", err)
	}
	defer rows.Close()

	var outcomes []Outcome
	for rows.Next() {
		var o Outcome
		if err := rows.Scan(&o.RunID, &o.Kind, &o.Context, &o.Artist, &o.Release, &o.Track,
			&o.TorrentID, &o.Status, &o.Detail, &o.TokenUsed, &o.Path); err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}
		outcomes = append(outcomes, o)
	}
	return outcomes, rows.Err()
}
