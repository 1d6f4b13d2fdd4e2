package main

import (
	"context"
	"os"

	config "github.com/NordCoder/Nightwatch/internal/config/reporter"
	"github.com/NordCoder/Nightwatch/internal/domain/report"
	"github.com/NordCoder/Nightwatch/internal/notify"
	"github.com/NordCoder/Nightwatch/internal/obs/retry"
	outboxsvc "github.com/NordCoder/Nightwatch/internal/outbox"
	kafkaRepo "github.com/NordCoder/Nightwatch/internal/repository/kafka"
	pg "github.com/NordCoder/Nightwatch/internal/repository/postgres"
	"github.com/NordCoder/Nightwatch/internal/services/reporter/repo"
	"go.uber.org/zap"
)

// publisher returns the report publisher for the configured delivery mode.
// In outbox mode the returned runner moves queued reports to Kafka; it is nil
// otherwise.
func (a *app) publisher(ctx context.Context, dry bool) (report.Publisher, *outboxsvc.Runner) {
	if dry {
		return repo.PrintPublisher{W: os.Stdout}, nil
	}

	switch a.cfg.Delivery.Mode {
	case config.DeliveryDirect:
		d := notify.NewDispatcher(
			notify.NewMatrix(a.cfg.Matrix),
			notify.NewWebhook(a.cfg.Webhook),
			notify.NewMailer(a.cfg.SMTP).WithLogger(a.log),
		).WithLogger(a.log)
		a.log.Info("direct delivery", zap.Strings("destinations", d.Destinations()))

		pub := repo.DirectPublisher{D: d, Log: a.log}
		if a.db != nil {
			pub.Reports = pg.NewReportRepo(a.db)
			pub.Deliveries = pg.NewDeliveryRepo(a.db)
		}
		return pub, nil

	default:
		_ = kafkaRepo.EnsureTopic(ctx, a.cfg.Kafka.Brokers, kafkaRepo.TopicSpec{Name: a.cfg.Kafka.Topic}, a.log)
		prod := kafkaRepo.NewProducer(a.cfg.Kafka.Brokers, a.cfg.Kafka.Topic).WithLogger(a.log)
		a.onClose(func() { _ = prod.Close() })

		ob := pg.NewOutboxRepo(a.db)
		runner := outboxsvc.NewOutboxRunner(a.log, ob,
			outboxsvc.MakeGlobalOutboxHandler(kafkaRepo.NewReportEventsKafka(prod), retry.PublishPolicy(a.log)),
			outboxsvc.Config{
				Workers:       a.cfg.Outbox.Workers,
				BatchSize:     a.cfg.Outbox.BatchSize,
				Wait:          a.cfg.Outbox.Wait,
				InProgressTTL: a.cfg.Outbox.InProgressTTL,
			},
		)
		pub := repo.OutboxPublisher{
			Tx:      pg.NewTransactor(a.db, a.log),
			Reports: pg.NewReportRepo(a.db),
			Outbox:  ob,
		}
		return pub, runner
	}
}
