package snapshot

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore is the fallback snapshot backend for deployments without
// Redis, one row per session at dir/snapshots.db.
type SQLiteStore struct {
	db *sql.DB
}

func OpenSQLiteStore(dir string) (*SQLiteStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating snapshot dir %s: %w", dir, err)
	}

	dbPath := filepath.Join(dir, "snapshots.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening snapshot db: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS snapshots (
		session_id TEXT PRIMARY KEY,
		seq        INTEGER NOT NULL,
		version    INTEGER NOT NULL,
		taken_at   TIMESTAMP NOT NULL,
		state      BLOB NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating snapshot table: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Save(ctx context.Context, sessionID string, state json.RawMessage, takenAt time.Time) (uint64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var seq uint64
	err = tx.QueryRowContext(ctx, `SELECT seq FROM snapshots WHERE session_id = ?`, sessionID).Scan(&seq)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return 0, err
	}
	seq++

	_, err = tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO snapshots (session_id, seq, version, taken_at, state)
		VALUES (?, ?, ?, ?, ?)
	`, sessionID, seq, Version, takenAt, []byte(state))
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return seq, nil
}

func (s *SQLiteStore) LoadLatest(ctx context.Context, sessionID string) (Record, error) {
	var rec Record
	var state []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT seq, version, taken_at, state FROM snapshots WHERE session_id = ?
	`, sessionID).Scan(&rec.Seq, &rec.Version, &rec.TakenAt, &state)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, err
	}
	if rec.Version != Version {
		return Record{}, ErrCorrupt
	}
	if !json.Valid(state) {
		return Record{}, ErrCorrupt
	}
	rec.State = state
	return rec, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, sessionID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM snapshots WHERE session_id = ?`, sessionID)
	return err
}

func (s *SQLiteStore) SessionIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT session_id FROM snapshots ORDER BY session_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
