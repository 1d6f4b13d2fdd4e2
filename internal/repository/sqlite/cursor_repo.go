package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/NordCoder/Nightwatch/internal/domain/cursor"
	_ "github.com/mattn/go-sqlite3"
)

var _ cursor.Store = (*CursorRepo)(nil)

const qSchema = `
CREATE TABLE IF NOT EXISTS lane_cursors (
    lane_id    TEXT PRIMARY KEY,
    commit_sha TEXT NOT NULL,
    updated_at TEXT NOT NULL
);`

// CursorRepo is a single-file cursor store for deployments without Postgres.
type CursorRepo struct {
	db *sql.DB
}

func Open(ctx context.Context, path string) (*CursorRepo, error) {
	if path == "" {
		return nil, errors.New("sqlite path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create sqlite dir: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1) // single writer
	db.SetMaxIdleConns(1)

	if _, err := db.ExecContext(ctx, qSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create lane_cursors: %w", err)
	}
	return &CursorRepo{db: db}, nil
}

func (r *CursorRepo) Get(ctx context.Context, laneID string) (string, bool, error) {
	var commit string
	err := r.db.QueryRowContext(ctx, `SELECT commit_sha FROM lane_cursors WHERE lane_id = ?`, laneID).Scan(&commit)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("get cursor: %w", err)
	}
	return commit, true, nil
}

func (r *CursorRepo) Set(ctx context.Context, laneID, commit string) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO lane_cursors (lane_id, commit_sha, updated_at) VALUES (?, ?, ?)
ON CONFLICT(lane_id) DO UPDATE SET commit_sha = excluded.commit_sha, updated_at = excluded.updated_at`,
		laneID, commit, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("set cursor: %w", err)
	}
	return nil
}

func (r *CursorRepo) Ping(ctx context.Context) error { return r.db.PingContext(ctx) }

func (r *CursorRepo) Close() error { return r.db.Close() }
