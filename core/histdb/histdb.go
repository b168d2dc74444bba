// Package histdb persists accepted command lines to a sqlite database so the
// shell's history survives restarts.
package histdb

import (
	"database/sql"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Record is one persisted command.
type Record struct {
	Time       time.Time
	Session    string
	Line       string
	Builtin    string
	Background bool
}

// Store wraps the commands table. It is only used from the supervisor loop,
// so no locking is needed.
type Store struct {
	db   *sql.DB
	path string
}

// Open creates or opens the database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	s := &Store{db: db, path: path}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) init() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS commands (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp TEXT,
		session TEXT,
		line TEXT,
		builtin TEXT,
		background INTEGER
	);`)
	return err
}

// Save inserts a new record.
func (s *Store) Save(rec Record) error {
	if rec.Time.IsZero() {
		rec.Time = time.Now()
	}
	_, err := s.db.Exec(`INSERT INTO commands
		(timestamp, session, line, builtin, background)
		VALUES (?, ?, ?, ?, ?)`,
		rec.Time.Format(time.RFC3339),
		rec.Session,
		rec.Line,
		rec.Builtin,
		boolToInt(rec.Background),
	)
	return err
}

// Recent returns up to limit of the newest records, oldest first, so they can
// be replayed into an in-memory history in append order.
func (s *Store) Recent(limit int) ([]Record, error) {
	rows, err := s.db.Query(`SELECT timestamp, session, line, builtin, background
		FROM (SELECT * FROM commands ORDER BY id DESC LIMIT ?)
		ORDER BY id ASC`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		var ts string
		var background int
		if err := rows.Scan(&ts, &rec.Session, &rec.Line, &rec.Builtin, &background); err != nil {
			return nil, err
		}
		if t, err := time.Parse(time.RFC3339, ts); err == nil {
			rec.Time = t
		}
		rec.Background = background == 1
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Path returns the database path.
func (s *Store) Path() string { return s.path }

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
