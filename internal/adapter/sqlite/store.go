// Package sqlite persists normalized incidents so analyses can be rerun per owner.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/couchcryptid/wildlife-incident-analyzer/internal/domain"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS incidents (
	seq          INTEGER PRIMARY KEY AUTOINCREMENT,
	id           TEXT    NOT NULL UNIQUE,
	owner        TEXT    NOT NULL,
	lat          REAL    NOT NULL,
	lon          REAL    NOT NULL,
	species      TEXT    NOT NULL,
	category     TEXT    NOT NULL,
	severity     TEXT    NOT NULL,
	observed_at  TEXT    NOT NULL,
	processed_at TEXT    NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_incidents_owner ON incidents (owner, seq);
`

// Store is an incident repository backed by a SQLite file.
type Store struct {
	db *sql.DB
}

// Open creates or opens the database at path and applies the schema.
func Open(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("sqlite: empty database path")
	}
	q := url.Values{}
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", "foreign_keys(1)")
	q.Add("_pragma", "busy_timeout(5000)")

	db, err := sql.Open("sqlite", "file:"+path+"?"+q.Encode())
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// SaveBatch inserts incidents in one transaction. Incidents whose ID is already
// stored are skipped, so redelivered messages do not duplicate rows. It
// returns the number of rows actually inserted.
func (s *Store) SaveBatch(ctx context.Context, incidents []domain.Incident) (int, error) {
	if len(incidents) == 0 {
		return 0, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO incidents (id, owner, lat, lon, species, category, severity, observed_at, processed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING`)
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	inserted := 0
	for i := range incidents {
		inc := &incidents[i]
		res, err := stmt.ExecContext(ctx,
			inc.ID, inc.Owner, inc.Geo.Lat, inc.Geo.Lon,
			inc.Species, inc.Category, string(inc.Severity),
			formatTime(inc.ObservedAt), formatTime(inc.ProcessedAt),
		)
		if err != nil {
			return 0, fmt.Errorf("insert incident %s: %w", inc.ID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("rows affected: %w", err)
		}
		inserted += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit transaction: %w", err)
	}
	return inserted, nil
}

// ListByOwner returns every incident for owner in insertion order.
func (s *Store) ListByOwner(ctx context.Context, owner string) ([]domain.Incident, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner, lat, lon, species, category, severity, observed_at, processed_at
		FROM incidents WHERE owner = ? ORDER BY seq`, owner)
	if err != nil {
		return nil, fmt.Errorf("query incidents: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []domain.Incident
	for rows.Next() {
		var (
			inc                 domain.Incident
			severity            string
			observed, processed string
		)
		if err := rows.Scan(&inc.ID, &inc.Owner, &inc.Geo.Lat, &inc.Geo.Lon,
			&inc.Species, &inc.Category, &severity, &observed, &processed); err != nil {
			return nil, fmt.Errorf("scan incident: %w", err)
		}
		inc.Severity = domain.Severity(severity)
		if inc.ObservedAt, err = parseTime(observed); err != nil {
			return nil, fmt.Errorf("incident %s observed_at: %w", inc.ID, err)
		}
		if inc.ProcessedAt, err = parseTime(processed); err != nil {
			return nil, fmt.Errorf("incident %s processed_at: %w", inc.ID, err)
		}
		out = append(out, inc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate incidents: %w", err)
	}
	return out, nil
}

// Owners lists every owner with at least one stored incident, sorted.
func (s *Store) Owners(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT owner FROM incidents ORDER BY owner`)
	if err != nil {
		return nil, fmt.Errorf("query owners: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var owners []string
	for rows.Next() {
		var owner string
		if err := rows.Scan(&owner); err != nil {
			return nil, fmt.Errorf("scan owner: %w", err)
		}
		owners = append(owners, owner)
	}
	return owners, rows.Err()
}

// CheckReadiness reports whether the database answers a ping.
func (s *Store) CheckReadiness(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("sqlite not ready: %w", err)
	}
	return nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// formatTime keeps the reported offset so weekday patterns see the local date
// the incident was observed on.
func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}
