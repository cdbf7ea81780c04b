// Package statestore persists per-folder push state in SQLite.
package statestore

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"

	_ "modernc.org/sqlite"
)

// Entry is one persisted folder state.
type Entry struct {
	Folder    string    `json:"folder"`
	State     string    `json:"state"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store keeps push state strings keyed by folder name.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (or creates) the database at path. ":memory:" is accepted for
// tests.
func Open(path string) (*Store, error) {
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open state db")
	}
	// A single writer avoids SQLITE_BUSY between our own connections and
	// keeps ":memory:" databases shared.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, now: time.Now}
	if err := s.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "migrate state db")
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
	CREATE TABLE IF NOT EXISTS push_state (
		folder     TEXT PRIMARY KEY,
		state      TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);`)
	return err
}

// Get returns the stored state, or "" when the folder has none.
func (s *Store) Get(ctx context.Context, folder string) (string, error) {
	var state string
	err := s.db.QueryRowContext(ctx,
		`SELECT state FROM push_state WHERE folder = ?`, folder,
	).Scan(&state)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", errors.Wrapf(err, "get state for %s", folder)
	}
	return state, nil
}

// Put upserts the state of folder.
func (s *Store) Put(ctx context.Context, folder, state string) error {
	now := s.now().UTC().Format(time.RFC3339Nano)
	err := retryOnContention(ctx, func() error {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO push_state (folder, state, updated_at) VALUES (?, ?, ?)
			 ON CONFLICT(folder) DO UPDATE SET state = excluded.state, updated_at = excluded.updated_at`,
			folder, state, now,
		)
		return err
	})
	return errors.Wrapf(err, "put state for %s", folder)
}

// Delete forgets folder. It reports whether a row was removed.
func (s *Store) Delete(ctx context.Context, folder string) (bool, error) {
	var removed int64
	err := retryOnContention(ctx, func() error {
		res, err := s.db.ExecContext(ctx, `DELETE FROM push_state WHERE folder = ?`, folder)
		if err != nil {
			return err
		}
		removed, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return false, errors.Wrapf(err, "delete state for %s", folder)
	}
	return removed > 0, nil
}

// List returns every entry ordered by folder name.
func (s *Store) List(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT folder, state, updated_at FROM push_state ORDER BY folder`)
	if err != nil {
		return nil, errors.Wrap(err, "list states")
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e         Entry
			updatedAt string
		)
		if err := rows.Scan(&e.Folder, &e.State, &updatedAt); err != nil {
			return nil, errors.Wrap(err, "scan state")
		}
		e.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt)
		if err != nil {
			return nil, errors.Wrapf(err, "parse updated_at of %s", e.Folder)
		}
		entries = append(entries, e)
	}
	return entries, errors.Wrap(rows.Err(), "list states")
}
