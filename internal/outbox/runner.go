package outbox

import (
	"context"
	"sync"
	"time"

	"github.com/NordCoder/Nightwatch/internal/domain/outbox"
	"github.com/NordCoder/Nightwatch/internal/obs"
	"github.com/NordCoder/Nightwatch/internal/obs/retry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var (
	mPicked = promauto.NewCounter(prometheus.CounterOpts{
		Name: "outbox_picked_total", Help: "Messages picked into processing.",
	})
	mOk = promauto.NewCounter(prometheus.CounterOpts{
		Name: "outbox_processed_ok_total", Help: "Messages processed successfully.",
	})
	mErr = promauto.NewCounter(prometheus.CounterOpts{
		Name: "outbox_processed_err_total", Help: "Handler errors.",
	})
	mTickDur = promauto.NewHistogram(prometheus.HistogramOpts{
		Name: "outbox_tick_duration_seconds", Help: "Tick duration.",
		Buckets: prometheus.DefBuckets,
	})
	mBatchSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "outbox_last_batch_size", Help: "Size of last picked batch.",
	})
	mBacklog = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "outbox_backlog", Help: "Messages waiting to be published.",
	})
)

// backlogger is implemented by stores that can count unpublished messages.
type backlogger interface {
	Backlog(ctx context.Context) (int, error)
}

type Config struct {
	Workers       int
	BatchSize     int
	Wait          time.Duration
	InProgressTTL time.Duration
}

type Runner struct {
	log      *zap.Logger
	repo     outbox.Repository
	dispatch outbox.GlobalHandler
	cfg      Config
}

func NewOutboxRunner(log *zap.Logger, repo outbox.Repository, dispatch outbox.GlobalHandler, cfg Config) *Runner {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 20
	}
	if cfg.Wait <= 0 {
		cfg.Wait = time.Second
	}
	if cfg.InProgressTTL <= 0 {
		cfg.InProgressTTL = 30 * time.Second
	}
	return &Runner{log: obs.Component(log, "outbox.runner"), repo: repo, dispatch: dispatch, cfg: cfg}
}

// Run blocks until ctx is done and every worker has returned.
func (r *Runner) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for i := 0; i < r.cfg.Workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			r.worker(ctx, id)
		}(i)
	}
	wg.Wait()
}

func (r *Runner) worker(ctx context.Context, id int) {
	log := r.log.With(zap.Int("worker", id))
	log.Info("outbox worker started", zap.Duration("wait", r.cfg.Wait))

	ticker := time.NewTicker(r.cfg.Wait)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("outbox worker stop")
			return
		case <-ticker.C:
			r.tick(ctx)
		}
	}
}

// Flush processes one batch synchronously.
func (r *Runner) Flush(ctx context.Context) { r.tick(ctx) }

func (r *Runner) tick(ctx context.Context) {
	t0 := time.Now()
	defer func() { mTickDur.Observe(time.Since(t0).Seconds()) }()

	tr := otel.Tracer("outbox.runner")
	ctxSpan, span := tr.Start(ctx, "outbox.tick", trace.WithAttributes(
		attribute.Int("batch.limit", r.cfg.BatchSize),
		attribute.String("in_progress_ttl", r.cfg.InProgressTTL.String()),
	))
	defer span.End()

	messages, err := r.repo.PickBatch(ctxSpan, r.cfg.BatchSize, r.cfg.InProgressTTL)
	if err != nil {
		span.RecordError(err)
		mErr.Inc()
		obs.WithTrace(ctxSpan, r.log).Error("outbox pick error", zap.Error(err))
		return
	}
	mPicked.Add(float64(len(messages)))
	mBatchSize.Set(float64(len(messages)))
	if len(messages) == 0 {
		return
	}

	okKeys := make([]string, 0, len(messages))
	for _, m := range messages {
		if r.handle(ctx, tr, m) {
			okKeys = append(okKeys, m.IdempotencyKey)
		}
	}

	if err := r.repo.MarkSuccess(ctxSpan, okKeys); err != nil {
		span.RecordError(err)
		mErr.Inc()
		obs.WithTrace(ctxSpan, r.log).Error("mark success error", zap.Error(err))
	}
	if b, ok := r.repo.(backlogger); ok {
		if n, err := b.Backlog(ctxSpan); err == nil {
			mBacklog.Set(float64(n))
		}
	}
}

// handle runs m under the trace context captured when it was enqueued.
func (r *Runner) handle(ctx context.Context, tr trace.Tracer, m outbox.Message) bool {
	parent := otel.GetTextMapPropagator().Extract(ctx, propagation.MapCarrier{
		"traceparent": m.Traceparent,
		"tracestate":  m.Tracestate,
		"baggage":     m.Baggage,
	})
	msgCtx, span := tr.Start(parent, "outbox.dispatch", trace.WithAttributes(
		attribute.String("outbox.key", m.IdempotencyKey),
		attribute.Int("outbox.kind", int(m.Kind)),
	))
	defer span.End()

	log := obs.WithTrace(msgCtx, r.log).With(zap.String("key", m.IdempotencyKey), zap.Int("kind", int(m.Kind)))

	handler, err := r.dispatch(m.Kind)
	if err != nil {
		span.RecordError(err)
		mErr.Inc()
		log.Error("no handler for kind", zap.Error(err))
		return false
	}
	if err := handler(msgCtx, m.Data); err != nil {
		span.RecordError(err)
		mErr.Inc()
		if retry.IsPermanent(err) {
			log.Error("dropping undeliverable message", zap.Error(err))
			return true
		}
		log.Error("handler error", zap.Error(err))
		return false
	}
	mOk.Inc()
	return true
}
