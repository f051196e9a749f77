// Package state persists file read offsets across restarts. Persistence is
// best effort: a missing or broken store never stops the forwarder, it only
// costs resumption (the engine falls back to tailing from the current end).
package state

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	// Pure-Go SQLite driver.
	_ "modernc.org/sqlite"

	"github.com/good-yellow-bee/docklog/internal/tracker"
)

const schema = `
CREATE TABLE IF NOT EXISTS offsets (
	source     TEXT    NOT NULL,
	path       TEXT    NOT NULL,
	dev        INTEGER NOT NULL,
	ino        INTEGER NOT NULL,
	offset     INTEGER NOT NULL,
	updated_at TIMESTAMP NOT NULL,
	PRIMARY KEY (source, dev, ino)
);
`

// Store is a SQLite-backed offset store keyed by (source, device, inode).
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the offset store at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open state database: %w", err)
	}

	// SQLite is single-writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping state database: %w", err)
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("execute %s: %w", pragma, err)
		}
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Offset returns the persisted offset for (source, id), if any.
func (s *Store) Offset(ctx context.Context, source string, id tracker.FileID) (int64, bool, error) {
	var offset int64
	err := s.db.QueryRowContext(ctx,
		`SELECT offset FROM offsets WHERE source = ? AND dev = ? AND ino = ?`,
		source, int64(id.Dev), int64(id.Ino),
	).Scan(&offset)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("query offset: %w", err)
	}
	return offset, true, nil
}

// Save upserts the offset for (source, id).
func (s *Store) Save(ctx context.Context, source, path string, id tracker.FileID, offset int64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO offsets (source, path, dev, ino, offset, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (source, dev, ino)
		DO UPDATE SET path = excluded.path, offset = excluded.offset, updated_at = excluded.updated_at`,
		source, path, int64(id.Dev), int64(id.Ino), offset, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("save offset: %w", err)
	}
	return nil
}

// Delete removes the persisted offset for (source, id).
func (s *Store) Delete(ctx context.Context, source string, id tracker.FileID) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM offsets WHERE source = ? AND dev = ? AND ino = ?`,
		source, int64(id.Dev), int64(id.Ino),
	)
	if err != nil {
		return fmt.Errorf("delete offset: %w", err)
	}
	return nil
}

// DeleteSource removes all persisted offsets for a source, used when a
// configuration reload drops the source entirely.
func (s *Store) DeleteSource(ctx context.Context, source string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM offsets WHERE source = ?`, source)
	if err != nil {
		return fmt.Errorf("delete source offsets: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
