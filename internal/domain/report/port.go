package report

import (
	"context"
	"time"
)

type Repo interface {
	Create(ctx context.Context, r *Report) error
	GetByID(ctx context.Context, id string) (*Report, error)
}

type DeliveryRepo interface {
	Create(ctx context.Context, d *Delivery) error
	ListByReport(ctx context.Context, reportID string) ([]*Delivery, error)
}

// Publisher hands a rendered report over to delivery.
type Publisher interface {
	Publish(ctx context.Context, r *Report) error
}

type Clock interface {
	Now() time.Time
}
