// Package sqlitestore keeps collections in a single SQLite file.
package sqlitestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "modernc.org/sqlite"

	"github.com/warpVIT1/tarot-booking-app/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS collections (
	name       TEXT PRIMARY KEY,
	payload    TEXT NOT NULL,
	revision   INTEGER NOT NULL,
	updated_at TEXT NOT NULL
)`

type Store struct {
	path string
	db   *sql.DB
}

// Open creates the database file and schema if needed.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// one writer at a time; sqlite would answer SQLITE_BUSY otherwise
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Store{path: path, db: db}, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) ReadCollection(ctx context.Context, name string) (store.Snapshot, error) {
	var (
		payload  string
		revision int64
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT payload, revision FROM collections WHERE name = ?", name,
	).Scan(&payload, &revision)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Snapshot{}, nil
	}
	if err != nil {
		return store.Snapshot{}, err
	}

	records, err := store.DecodePayload([]byte(payload))
	if err != nil {
		return store.Snapshot{}, err
	}
	return store.Snapshot{
		Records:  records,
		Revision: strconv.FormatInt(revision, 10),
	}, nil
}

func (s *Store) WriteCollection(ctx context.Context, name string, records []json.RawMessage, expectedRevision string) error {
	payload, err := store.EncodePayload(records)
	if err != nil {
		return err
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)

	var res sql.Result
	if expectedRevision == "" {
		res, err = s.db.ExecContext(ctx,
			`INSERT INTO collections (name, payload, revision, updated_at) VALUES (?, ?, 1, ?)
			 ON CONFLICT(name) DO NOTHING`,
			name, string(payload), now,
		)
	} else {
		rev, perr := strconv.ParseInt(expectedRevision, 10, 64)
		if perr != nil {
			return store.ErrStaleRevision
		}
		res, err = s.db.ExecContext(ctx,
			`UPDATE collections SET payload = ?, revision = revision + 1, updated_at = ?
			 WHERE name = ? AND revision = ?`,
			string(payload), now, name, rev,
		)
	}
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrStaleRevision
	}
	return nil
}

var _ store.KeyedStore = (*Store)(nil)
