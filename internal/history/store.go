// Package history keeps a per-machine journal of completed scans in SQLite.
// The journal is advisory; filenames on disk remain the source of truth for
// cartridge and sequence numbering.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Record is one completed scan.
type Record struct {
	ID         int64
	SessionID  string
	Cartridge  string
	Filename   string
	Path       string
	Position   int
	Resolution int
	Mode       string
	Format     string
	Bytes      int64
	ScannedAt  time.Time
}

// Store wraps the history database.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the history database at dbPath.
func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("ensure history directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) initSchema(ctx context.Context) error {
	const schema = `
CREATE TABLE IF NOT EXISTS scans (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id  TEXT NOT NULL,
    cartridge   TEXT NOT NULL,
    filename    TEXT NOT NULL,
    path        TEXT NOT NULL,
    position    INTEGER NOT NULL,
    resolution  INTEGER NOT NULL,
    mode        TEXT NOT NULL,
    format      TEXT NOT NULL,
    bytes       INTEGER NOT NULL,
    scanned_at  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_scans_cartridge ON scans(cartridge);
CREATE INDEX IF NOT EXISTS idx_scans_session ON scans(session_id);
`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("init history schema: %w", err)
	}
	return nil
}

// Append records one completed scan and returns its row id.
func (s *Store) Append(ctx context.Context, rec Record) (int64, error) {
	scannedAt := rec.ScannedAt
	if scannedAt.IsZero() {
		scannedAt = time.Now()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO scans (session_id, cartridge, filename, path, position, resolution, mode, format, bytes, scanned_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.SessionID, rec.Cartridge, rec.Filename, rec.Path, rec.Position,
		rec.Resolution, rec.Mode, rec.Format, rec.Bytes,
		scannedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return 0, fmt.Errorf("append history record: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("history record id: %w", err)
	}
	return id, nil
}

// Recent returns the newest records, most recent first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, cartridge, filename, path, position, resolution, mode, format, bytes, scanned_at
         FROM scans ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

// ByCartridge returns all records for one cartridge label, oldest first.
func (s *Store) ByCartridge(ctx context.Context, cartridge string) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, cartridge, filename, path, position, resolution, mode, format, bytes, scanned_at
         FROM scans WHERE cartridge = ? ORDER BY id ASC`, cartridge)
	if err != nil {
		return nil, fmt.Errorf("query history for %s: %w", cartridge, err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

// SessionCount returns how many scans the given session has recorded.
func (s *Store) SessionCount(ctx context.Context, sessionID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM scans WHERE session_id = ?`, sessionID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count session scans: %w", err)
	}
	return count, nil
}

func scanRecords(rows *sql.Rows) ([]Record, error) {
	var records []Record
	for rows.Next() {
		var rec Record
		var scannedAt string
		if err := rows.Scan(&rec.ID, &rec.SessionID, &rec.Cartridge, &rec.Filename,
			&rec.Path, &rec.Position, &rec.Resolution, &rec.Mode, &rec.Format,
			&rec.Bytes, &scannedAt); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		if parsed, err := time.Parse(time.RFC3339, scannedAt); err == nil {
			rec.ScannedAt = parsed
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history rows: %w", err)
	}
	return records, nil
}
