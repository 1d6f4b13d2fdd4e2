package repo

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/NordCoder/Nightwatch/internal/domain/outbox"
	"github.com/NordCoder/Nightwatch/internal/domain/report"
	"github.com/NordCoder/Nightwatch/internal/notify"
	outboxsvc "github.com/NordCoder/Nightwatch/internal/outbox"
	"github.com/NordCoder/Nightwatch/internal/repository/postgres"
	"go.uber.org/zap"
)

// OutboxPublisher stores the report and queues it for the notifier in one transaction.
type OutboxPublisher struct {
	Tx      postgres.Transactor
	Reports report.Repo
	Outbox  outbox.Repository
}

func (p OutboxPublisher) Publish(ctx context.Context, r *report.Report) error {
	data, err := outboxsvc.EncodeReport(r)
	if err != nil {
		return err
	}
	return p.Tx.WithTx(ctx, func(ctx context.Context) error {
		if err := p.Reports.Create(ctx, r); err != nil {
			return err
		}
		return p.Outbox.Enqueue(ctx, r.ID, outbox.KindReportReady, data)
	})
}

// DirectPublisher delivers in-process. Reports and deliveries are recorded when
// the repos are set; a failed delivery record does not fail the publish.
type DirectPublisher struct {
	D          *notify.Dispatcher
	Reports    report.Repo
	Deliveries report.DeliveryRepo
	Log        *zap.Logger
}

func (p DirectPublisher) Publish(ctx context.Context, r *report.Report) error {
	if p.Reports != nil {
		if err := p.Reports.Create(ctx, r); err != nil {
			return err
		}
	}
	recs := p.D.Deliver(ctx, r)
	if p.Deliveries == nil {
		return nil
	}
	for i := range recs {
		if err := p.Deliveries.Create(ctx, &recs[i]); err != nil && p.Log != nil {
			p.Log.Warn("record delivery failed",
				zap.String("report_id", r.ID),
				zap.String("destination", recs[i].Destination),
				zap.Error(err),
			)
		}
	}
	return nil
}

// PrintPublisher writes the rendered report instead of sending it.
type PrintPublisher struct{ W io.Writer }

func (p PrintPublisher) Publish(_ context.Context, r *report.Report) error {
	_, err := fmt.Fprintln(p.W, r.Text)
	return err
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }
