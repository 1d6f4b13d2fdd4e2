package repo

import (
	"context"
	"errors"

	"github.com/NordCoder/Nightwatch/internal/domain/report"
	"github.com/NordCoder/Nightwatch/internal/repository/postgres"
)

type DeliveryRepo struct{ R report.DeliveryRepo }

func (a DeliveryRepo) Record(ctx context.Context, d *report.Delivery) error {
	if a.R == nil {
		return nil
	}
	return a.R.Create(ctx, d)
}

// AlreadyDelivered reports whether any destination accepted the report.
func (a DeliveryRepo) AlreadyDelivered(ctx context.Context, reportID string) (bool, error) {
	if a.R == nil {
		return false, nil
	}
	list, err := a.R.ListByReport(ctx, reportID)
	if err != nil {
		if errors.Is(err, postgres.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	for _, d := range list {
		if d.Error == "" {
			return true, nil
		}
	}
	return false, nil
}
