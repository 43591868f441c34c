package history

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/NodePath81/netgauge/internal/engine"
	_ "github.com/mattn/go-sqlite3"
)

// ErrNoHistory means the store holds no prior run to compare against.
var ErrNoHistory = errors.New("no previous results")

// Entry is one stored run, flattened to the figures worth comparing
// across time.
type Entry struct {
	ID              string
	Timestamp       time.Time
	ServerID        int
	ServerName      string
	ServerHost      string
	IdleMeanMs      float64
	IdleJitterMs    float64
	IdleLoss        float64
	DownloadBps     float64
	UploadBps       float64
	DownloadBytes   int64
	UploadBytes     int64
	DownloadDeltaMs float64
	UploadDeltaMs   float64
	DownloadGrade   string
	UploadGrade     string
}

// Store keeps past results in a local sqlite database.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	timestamp INTEGER NOT NULL,
	server_id INTEGER,
	server_name TEXT,
	server_host TEXT,
	idle_mean_ms REAL,
	idle_jitter_ms REAL,
	idle_loss REAL,
	download_bps REAL,
	upload_bps REAL,
	download_bytes INTEGER,
	upload_bytes INTEGER,
	download_delta_ms REAL,
	upload_delta_ms REAL,
	download_grade TEXT,
	upload_grade TEXT
);
CREATE INDEX IF NOT EXISTS runs_timestamp ON runs (timestamp);
`

func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply history schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Save persists one completed run.
func (s *Store) Save(res *engine.TestResult) error {
	_, err := s.db.Exec(`
		INSERT INTO runs (
			id, timestamp, server_id, server_name, server_host,
			idle_mean_ms, idle_jitter_ms, idle_loss,
			download_bps, upload_bps, download_bytes, upload_bytes,
			download_delta_ms, upload_delta_ms, download_grade, upload_grade
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		res.ID.String(), res.Timestamp.Unix(), res.Server.ID, res.Server.Name, res.Server.Host,
		res.Idle.MeanMs, res.Idle.JitterMs, res.Idle.Loss,
		res.Download.BitsPerSecond, res.Upload.BitsPerSecond,
		res.Download.Bytes, res.Upload.Bytes,
		res.DownloadLoaded.DeltaMs, res.UploadLoaded.DeltaMs,
		string(res.DownloadLoaded.Grade), string(res.UploadLoaded.Grade),
	)
	if err != nil {
		return fmt.Errorf("save result: %w", err)
	}
	return nil
}

// Recent returns up to n runs, newest first.
func (s *Store) Recent(n int) ([]Entry, error) {
	if n <= 0 {
		n = 10
	}
	rows, err := s.db.Query(`
		SELECT id, timestamp, server_id, server_name, server_host,
		       idle_mean_ms, idle_jitter_ms, idle_loss,
		       download_bps, upload_bps, download_bytes, upload_bytes,
		       download_delta_ms, upload_delta_ms, download_grade, upload_grade
		FROM runs
		ORDER BY timestamp DESC
		LIMIT ?`, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e  Entry
			ts int64
		)
		err := rows.Scan(
			&e.ID, &ts, &e.ServerID, &e.ServerName, &e.ServerHost,
			&e.IdleMeanMs, &e.IdleJitterMs, &e.IdleLoss,
			&e.DownloadBps, &e.UploadBps, &e.DownloadBytes, &e.UploadBytes,
			&e.DownloadDeltaMs, &e.UploadDeltaMs, &e.DownloadGrade, &e.UploadGrade,
		)
		if err != nil {
			return nil, err
		}
		e.Timestamp = time.Unix(ts, 0).UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}

// Latest returns the most recent stored run.
func (s *Store) Latest() (Entry, error) {
	entries, err := s.Recent(1)
	if err != nil {
		return Entry{}, err
	}
	if len(entries) == 0 {
		return Entry{}, ErrNoHistory
	}
	return entries[0], nil
}

// Prune deletes all but the newest keep runs.
func (s *Store) Prune(keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}
	res, err := s.db.Exec(`
		DELETE FROM runs WHERE id NOT IN (
			SELECT id FROM runs ORDER BY timestamp DESC LIMIT ?
		)`, keep)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
