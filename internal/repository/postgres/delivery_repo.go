package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/NordCoder/Nightwatch/internal/domain/report"
)

var _ report.DeliveryRepo = (*DeliveryRepo)(nil)

type DeliveryRepo struct{ db *DB }

func NewDeliveryRepo(db *DB) *DeliveryRepo { return &DeliveryRepo{db: db} }

const (
	qDeliveryInsert = `
INSERT INTO report_deliveries (report_id, destination, target, delivered_at, error)
VALUES ($1, $2, $3, COALESCE($4, now()), $5)
RETURNING id, delivered_at;`

	qDeliveryByReport = `
SELECT id, report_id::text, destination, target, delivered_at, error
FROM report_deliveries
WHERE report_id = $1
ORDER BY id;`
)

func (r *DeliveryRepo) Create(ctx context.Context, d *report.Delivery) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	if err := r.db.Pool.QueryRow(ctx, qDeliveryInsert,
		d.ReportID,
		d.Destination,
		d.Target,
		nullTime(d.DeliveredAt),
		d.Error,
	).Scan(&d.ID, &d.DeliveredAt); err != nil {
		return fmt.Errorf("insert delivery: %w", classify(err))
	}
	return nil
}

func (r *DeliveryRepo) ListByReport(ctx context.Context, reportID string) ([]*report.Delivery, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.Pool.Query(ctx, qDeliveryByReport, reportID)
	if err != nil {
		return nil, fmt.Errorf("query deliveries: %w", err)
	}
	defer rows.Close()

	var out []*report.Delivery
	for rows.Next() {
		var d report.Delivery
		if err := rows.Scan(&d.ID, &d.ReportID, &d.Destination, &d.Target, &d.DeliveredAt, &d.Error); err != nil {
			return nil, fmt.Errorf("scan delivery: %w", err)
		}
		out = append(out, &d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
