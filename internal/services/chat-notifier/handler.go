package chat_notifier

import (
	"context"
	"fmt"

	"github.com/NordCoder/Nightwatch/internal/domain/report"
	"github.com/NordCoder/Nightwatch/internal/obs"
	"github.com/NordCoder/Nightwatch/internal/services/chat-notifier/repo"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var (
	mConsumed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_notifier_reports_consumed_total", Help: "Report messages consumed",
	})
	mDuplicates = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_notifier_reports_duplicate_total", Help: "Reports skipped because they were already delivered",
	})
	mErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_notifier_errors_total", Help: "Errors",
	})
)

type Deliverer interface {
	Deliver(ctx context.Context, rep *report.Report) []report.Delivery
}

type Handler struct {
	Deliveries repo.DeliveryRepo
	Out        Deliverer
	Log        *zap.Logger
}

// HandleReport delivers rep unless an earlier copy of the message already reached
// a destination. Kafka redelivers after a crash between send and commit.
func (h *Handler) HandleReport(ctx context.Context, rep *report.Report) error {
	mConsumed.Inc()
	log := obs.WithTrace(ctx, h.Log).With(zap.String("report_id", rep.ID))

	done, err := h.Deliveries.AlreadyDelivered(ctx, rep.ID)
	if err != nil {
		mErrors.Inc()
		return fmt.Errorf("check deliveries: %w", err)
	}
	if done {
		mDuplicates.Inc()
		log.Info("report already delivered; skipping")
		return nil
	}

	recs := h.Out.Deliver(ctx, rep)
	failed := 0
	for i := range recs {
		if recs[i].Error != "" {
			failed++
		}
		if err := h.Deliveries.Record(ctx, &recs[i]); err != nil {
			mErrors.Inc()
			log.Warn("record delivery failed", zap.String("destination", recs[i].Destination), zap.Error(err))
		}
	}
	log.Info("report handled",
		zap.Int("targets", len(recs)),
		zap.Int("failed", failed),
		zap.Int("failures", rep.Failures),
		zap.Int("recoveries", rep.Recoveries),
	)
	return nil
}
