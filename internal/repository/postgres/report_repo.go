package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/NordCoder/Nightwatch/internal/domain/report"
	"github.com/jackc/pgx/v5"
)

var _ report.Repo = (*ReportRepo)(nil)

type ReportRepo struct{ db *DB }

func NewReportRepo(db *DB) *ReportRepo { return &ReportRepo{db: db} }

const (
	qReportInsert = `
INSERT INTO reports (id, body, lanes, failures, recoveries, created_at)
VALUES ($1, $2, $3, $4, $5, COALESCE($6, now()))
RETURNING created_at;`

	qReportByID = `
SELECT id::text, body, lanes, failures, recoveries, created_at
FROM reports
WHERE id = $1;`
)

func (r *ReportRepo) Create(ctx context.Context, rep *report.Report) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	eq := r.db.execQueryer(ctx)
	if err := eq.QueryRow(ctx, qReportInsert,
		rep.ID,
		rep.Text,
		rep.Lanes,
		rep.Failures,
		rep.Recoveries,
		nullTime(rep.CreatedAt),
	).Scan(&rep.CreatedAt); err != nil {
		return fmt.Errorf("insert report: %w", classify(err))
	}
	return nil
}

func (r *ReportRepo) GetByID(ctx context.Context, id string) (*report.Report, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var rep report.Report
	if err := scanReport(r.db.execQueryer(ctx).QueryRow(ctx, qReportByID, id), &rep); err != nil {
		return nil, err
	}
	return &rep, nil
}

func scanReport(row pgx.Row, rep *report.Report) error {
	if err := row.Scan(&rep.ID, &rep.Text, &rep.Lanes, &rep.Failures, &rep.Recoveries, &rep.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("scan report: %w", err)
	}
	return nil
}
