// Package journal records every merge, archive and sync event in a local
// SQLite file so a run's effects can be audited after the fact.
package journal

import (
	"context"
	"database/sql"
	"time"

	_ "modernc.org/sqlite"
)

// Event kinds.
const (
	KindInsert       = "insert"
	KindUpdate       = "update"
	KindArchive      = "archive"
	KindRestore      = "restore"
	KindRemoteCreate = "remote-create"
	KindRemoteAdopt  = "remote-adopt"
	KindStatusPull   = "status-pull"
	KindRemoteDelete = "remote-delete"
	KindSkip         = "skip"
)

// Event is one journal row.
type Event struct {
	OccurredAt  time.Time
	Kind        string
	Title       string
	CourseCode  string
	Destination string
	Detail      string
}

type DB struct {
	sql *sql.DB
}

func Open(path string) (*DB, error) {
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS events (
  id          INTEGER PRIMARY KEY,
  occurred_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
  kind        TEXT NOT NULL,
  title       TEXT NOT NULL,
  course_code TEXT,
  destination TEXT,
  detail      TEXT
);
CREATE INDEX IF NOT EXISTS idx_events_time ON events(occurred_at);
CREATE INDEX IF NOT EXISTS idx_events_kind ON events(kind, occurred_at);
	`); err != nil {
		return nil, err
	}
	return &DB{sql: db}, nil
}

func (d *DB) Close() error {
	if d == nil || d.sql == nil {
		return nil
	}
	return d.sql.Close()
}

// Record appends one event.
func (d *DB) Record(ctx context.Context, e Event) error {
	_, err := d.sql.ExecContext(ctx,
		`INSERT INTO events(kind, title, course_code, destination, detail) VALUES(?,?,?,?,?)`,
		e.Kind, e.Title, nullIfEmpty(e.CourseCode), nullIfEmpty(e.Destination), nullIfEmpty(e.Detail))
	return err
}

// Recent returns the most recent events, newest first.
func (d *DB) Recent(ctx context.Context, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := d.sql.QueryContext(ctx,
		`SELECT occurred_at, kind, title, course_code, destination, detail
		 FROM events ORDER BY occurred_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []Event{}
	for rows.Next() {
		var e Event
		var occurredAt string
		var course, dest, detail sql.NullString
		if err := rows.Scan(&occurredAt, &e.Kind, &e.Title, &course, &dest, &detail); err != nil {
			return nil, err
		}
		// SQLite CURRENT_TIMESTAMP format first, RFC3339 as fallback.
		if t, perr := time.Parse("2006-01-02 15:04:05", occurredAt); perr == nil {
			e.OccurredAt = t
		} else if t2, perr2 := time.Parse(time.RFC3339, occurredAt); perr2 == nil {
			e.OccurredAt = t2
		}
		e.CourseCode = course.String
		e.Destination = dest.String
		e.Detail = detail.String
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

// CountByKind aggregates event counts per kind since the given time.
func (d *DB) CountByKind(ctx context.Context, since time.Time) (map[string]int, error) {
	// Bound as text in CURRENT_TIMESTAMP's format so the comparison works
	// on the stored strings.
	rows, err := d.sql.QueryContext(ctx,
		`SELECT kind, COUNT(*) FROM events WHERE occurred_at >= ? GROUP BY kind`,
		since.UTC().Format("2006-01-02 15:04:05"))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var kind string
		var n int
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, err
		}
		counts[kind] = n
	}
	return counts, rows.Err()
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
