package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/NordCoder/Nightwatch/internal/domain/cursor"
	"github.com/jackc/pgx/v5"
)

var _ cursor.Store = (*CursorRepo)(nil)

type CursorRepo struct{ db *DB }

func NewCursorRepo(db *DB) *CursorRepo { return &CursorRepo{db: db} }

const (
	qCursorGet = `
SELECT commit_sha
FROM lane_cursors
WHERE lane_id = $1;`

	qCursorSet = `
INSERT INTO lane_cursors (lane_id, commit_sha, updated_at)
VALUES ($1, $2, now())
ON CONFLICT (lane_id) DO UPDATE
SET commit_sha = EXCLUDED.commit_sha,
    updated_at = now();`
)

func (r *CursorRepo) Get(ctx context.Context, laneID string) (string, bool, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var commit string
	if err := r.db.execQueryer(ctx).QueryRow(ctx, qCursorGet, laneID).Scan(&commit); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("get cursor: %w", err)
	}
	return commit, true, nil
}

func (r *CursorRepo) Set(ctx context.Context, laneID, commit string) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	if _, err := r.db.execQueryer(ctx).Exec(ctx, qCursorSet, laneID, commit); err != nil {
		return fmt.Errorf("set cursor: %w", classify(err))
	}
	return nil
}
