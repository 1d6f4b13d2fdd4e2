package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	config "github.com/NordCoder/Nightwatch/internal/config/chat-notifier"
	"github.com/NordCoder/Nightwatch/internal/notify"
	"github.com/NordCoder/Nightwatch/internal/obs"
	"github.com/NordCoder/Nightwatch/internal/repository/kafka"
	pg "github.com/NordCoder/Nightwatch/internal/repository/postgres"
	notifier "github.com/NordCoder/Nightwatch/internal/services/chat-notifier"
	"github.com/NordCoder/Nightwatch/internal/services/chat-notifier/repo"

	"go.uber.org/zap"
)

func wiring(db *pg.DB, cfg *config.Config, cons *kafka.Consumer, l *zap.Logger) *notifier.Controller {
	d := notify.NewDispatcher(
		notify.NewMatrix(cfg.Matrix),
		notify.NewWebhook(cfg.Webhook),
		notify.NewMailer(cfg.SMTP).WithLogger(l),
	).WithLogger(l)
	l.Info("destinations", zap.Strings("names", d.Destinations()))

	uc := &notifier.Handler{
		Deliveries: repo.DeliveryRepo{R: pg.NewDeliveryRepo(db)},
		Out:        d,
		Log:        l,
	}
	return &notifier.Controller{Log: l, Sub: cons, UC: uc}
}

func main() {
	// init
	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	path := "../config/chat-notifier.yaml"
	if p := os.Getenv("NIGHTWATCH_CONFIG"); p != "" {
		path = p
	}
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatal(err)
	}

	// logger
	l, err := obs.NewLogger(cfg.AsLoggerConfig())
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = l.Sync() }()

	l.Info("starting chat-notifier",
		zap.Any("kafka_in", cfg.In),
		zap.String("metrics_addr", cfg.Server.MetricsAddr),
	)

	// otel
	otelCloser, err := obs.SetupOTel(rootCtx, cfg.AsOTELConfig())
	if err != nil {
		l.Warn("otel init", zap.Error(err))
	}
	defer func() { _ = otelCloser.Shutdown(context.Background()) }()

	// db
	db, err := pg.NewDB(rootCtx, cfg.DB)
	if err != nil {
		l.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()
	l.Info("db connected")

	// metrics
	ms := obs.BootstrapMetricsServer(cfg.Server.MetricsAddr, func(ctx context.Context) error {
		hctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
		defer cancel()
		return db.Ping(hctx)
	}, l)

	// kafka
	cons := kafka.BootstrapConsumer(rootCtx, cfg.In.AsConsumerConfig(), l)
	defer func() { _ = cons.Close() }()
	l.Info("kafka consumer initialized",
		zap.Strings("brokers", cfg.In.Brokers),
		zap.String("group_id", cfg.In.GroupID),
		zap.String("topic", cfg.In.Topic),
	)

	// start
	ctrl := wiring(db, cfg, cons, l)
	errCh := make(chan error, 1)
	go func() {
		l.Info("controller starting")
		errCh <- ctrl.Run(rootCtx)
	}()

	// main loop
	select {
	case <-rootCtx.Done():
		l.Info("shutdown signal")
	case runErr := <-errCh:
		if runErr != nil && !errors.Is(runErr, context.Canceled) {
			l.Error("controller error", zap.Error(runErr))
		}
	}

	// graceful metrics server shutdown
	_ = obs.ShutdownServer(context.Background(), ms, 3*time.Second)
	l.Info("bye")
}
