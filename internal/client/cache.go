package client

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const (
	keyEstablishments = "establishments"
	keyLastUpdated    = "lastUpdated"
)

// Snapshot is the last list fetched while online.
type Snapshot struct {
	Payload     []byte
	LastUpdated time.Time
}

// SnapshotStore keeps a single snapshot slot in a local SQLite file.
type SnapshotStore struct {
	db *sql.DB
}

// OpenSnapshotStore opens or creates the store at path.
func OpenSnapshotStore(ctx context.Context, path string) (*SnapshotStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}
	db, err := sql.Open("sqlite", "file:"+path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &SnapshotStore{db: db}
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS kv (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);`); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return s, nil
}

func (s *SnapshotStore) Close() error {
	return s.db.Close()
}

// Save replaces the snapshot with payload taken at at.
func (s *SnapshotStore) Save(ctx context.Context, payload []byte, at time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	const upsert = `INSERT INTO kv (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value;`
	if _, err := tx.ExecContext(ctx, upsert, keyEstablishments, string(payload)); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	if _, err := tx.ExecContext(ctx, upsert, keyLastUpdated, at.UTC().Format(time.RFC3339Nano)); err != nil {
		return fmt.Errorf("save snapshot time: %w", err)
	}
	return tx.Commit()
}

// Load returns the stored snapshot, or nil when none was saved yet.
func (s *SnapshotStore) Load(ctx context.Context) (*Snapshot, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?;`, keyEstablishments).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	snap := &Snapshot{Payload: []byte(payload)}
	var at string
	err = s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?;`, keyLastUpdated).Scan(&at)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return nil, fmt.Errorf("load snapshot time: %w", err)
	default:
		if t, perr := time.Parse(time.RFC3339Nano, at); perr == nil {
			snap.LastUpdated = t
		}
	}
	return snap, nil
}
