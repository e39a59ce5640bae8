// Package store persists the UI selection and progress as a key-value snapshot in SQLite.
package store

import (
	"context"
	"database/sql"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	_ "modernc.org/sqlite"
)

const (
	keySourceURI     = "source_uri"
	keySelectedIndex = "selected_index"
	keyPositionMs    = "position_ms"
	keySavedAt       = "saved_at"
)

// Snapshot is the persisted UI state.
type Snapshot struct {
	SourceURI     string    // Identity of the selected track
	SelectedIndex int       // Index at save time; SourceURI wins if the list changed
	PositionMs    int64     // Last known position
	SavedAt       time.Time // Save time (second precision)
}

// Store is a SQLite-backed key-value snapshot store.
type Store struct {
	db *sql.DB
}

// Open opens or creates the store at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA journal_mode = WAL",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, errors.Wrapf(err, "failed to set pragma %q", pragma)
		}
	}

	schema := `
		CREATE TABLE IF NOT EXISTS ui_state (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to create schema")
	}

	return &Store{db: db}, nil
}

// Save replaces the stored snapshot.
func (s *Store) Save(ctx context.Context, snap Snapshot) error {
	if snap.SavedAt.IsZero() {
		snap.SavedAt = time.Now()
	}
	values := map[string]string{
		keySourceURI:     snap.SourceURI,
		keySelectedIndex: strconv.Itoa(snap.SelectedIndex),
		keyPositionMs:    strconv.FormatInt(snap.PositionMs, 10),
		keySavedAt:       strconv.FormatInt(snap.SavedAt.Unix(), 10),
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO ui_state (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`)
	if err != nil {
		return errors.Wrap(err, "failed to prepare upsert")
	}
	defer stmt.Close()

	now := time.Now().Unix()
	for k, v := range values {
		if _, err := stmt.ExecContext(ctx, k, v, now); err != nil {
			return errors.Wrapf(err, "failed to save %s", k)
		}
	}

	return errors.Wrap(tx.Commit(), "failed to commit snapshot")
}

// Load returns the stored snapshot. ok is false if nothing was saved yet.
func (s *Store) Load(ctx context.Context) (snap Snapshot, ok bool, err error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM ui_state`)
	if err != nil {
		return Snapshot{}, false, errors.Wrap(err, "failed to query snapshot")
	}
	defer rows.Close()

	values := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return Snapshot{}, false, errors.Wrap(err, "failed to scan snapshot row")
		}
		values[k] = v
	}
	if err := rows.Err(); err != nil {
		return Snapshot{}, false, errors.Wrap(err, "failed to read snapshot")
	}
	if len(values) == 0 {
		return Snapshot{}, false, nil
	}

	snap.SourceURI = values[keySourceURI]
	if snap.SelectedIndex, err = strconv.Atoi(values[keySelectedIndex]); err != nil {
		return Snapshot{}, false, errors.Wrap(err, "invalid selected_index")
	}
	if snap.PositionMs, err = strconv.ParseInt(values[keyPositionMs], 10, 64); err != nil {
		return Snapshot{}, false, errors.Wrap(err, "invalid position_ms")
	}
	savedAt, err := strconv.ParseInt(values[keySavedAt], 10, 64)
	if err != nil {
		return Snapshot{}, false, errors.Wrap(err, "invalid saved_at")
	}
	snap.SavedAt = time.Unix(savedAt, 0)

	return snap, true, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
