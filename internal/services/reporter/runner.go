package reporter

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

var (
	mTicks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reporter_ticks_total", Help: "Detection passes run.",
	})
	mEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reporter_events_total", Help: "Events reported by direction.",
	}, []string{"direction"})
	mFetchErr = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reporter_fetch_errors_total", Help: "Lanes whose source failed during a tick.",
	})
	mSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reporter_ticks_skipped_total", Help: "Ticks skipped because the previous one was still running.",
	})
	mErr = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reporter_errors_total", Help: "Ticks that ended with a publish or cursor error.",
	})
	mReports = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reporter_reports_published_total", Help: "Reports handed over for delivery.",
	})
	mLoopDur = promauto.NewHistogram(prometheus.HistogramOpts{
		Name: "reporter_tick_duration_seconds", Help: "Reporter tick duration",
		Buckets: prometheus.DefBuckets,
	})
	mLastSuccess = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "reporter_last_success_timestamp_seconds", Help: "Unix time of the last tick without errors.",
	})
)

type Schedule struct {
	Cron        string
	Tick        time.Duration
	RunOnStart  bool
	TickTimeout time.Duration
}

type Ticker interface {
	Tick(ctx context.Context) (TickStats, error)
}

type Runner struct {
	Log   *zap.Logger
	UC    Ticker
	Sched Schedule

	// one tick at a time even if a cron slot fires during a slow tick
	mu sync.Mutex
}

func New(log *zap.Logger, uc Ticker, sched Schedule) *Runner {
	return &Runner{Log: log.With(zap.String("component", "reporter.runner")), UC: uc, Sched: sched}
}

// Once runs a single tick and returns its outcome.
func (r *Runner) Once(ctx context.Context) (TickStats, error) {
	return r.tick(ctx)
}

func (r *Runner) tick(ctx context.Context) (TickStats, error) {
	if !r.mu.TryLock() {
		mSkipped.Inc()
		r.Log.Warn("previous tick still running; skipping")
		return TickStats{}, nil
	}
	defer r.mu.Unlock()

	if r.Sched.TickTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Sched.TickTimeout)
		defer cancel()
	}

	start := time.Now()
	stats, err := r.UC.Tick(ctx)
	mTicks.Inc()
	mLoopDur.Observe(time.Since(start).Seconds())
	mFetchErr.Add(float64(stats.FetchErrors))
	mEvents.WithLabelValues("failure").Add(float64(stats.Failures))
	mEvents.WithLabelValues("recovery").Add(float64(stats.Recoveries))
	if stats.Published {
		mReports.Inc()
	}

	if err != nil {
		mErr.Inc()
		r.Log.Warn("tick error", zap.Error(err), zap.String("report_id", stats.ReportID))
		return stats, err
	}
	mLastSuccess.SetToCurrentTime()
	r.Log.Debug("tick done",
		zap.Int("lanes", stats.Lanes),
		zap.Int("failures", stats.Failures),
		zap.Int("recoveries", stats.Recoveries),
		zap.Int("fetch_errors", stats.FetchErrors),
		zap.Duration("elapsed", time.Since(start)),
	)
	return stats, nil
}

// Run ticks on the cron expression when set, else on a fixed interval.
func (r *Runner) Run(ctx context.Context) error {
	if r.Sched.RunOnStart {
		_, _ = r.tick(ctx)
	}
	if r.Sched.Cron != "" {
		return r.runCron(ctx)
	}
	return r.runTicker(ctx)
}

func (r *Runner) runTicker(ctx context.Context) error {
	if r.Sched.Tick <= 0 {
		return fmt.Errorf("tick interval must be positive, got %s", r.Sched.Tick)
	}
	ticker := time.NewTicker(r.Sched.Tick)
	defer ticker.Stop()

	r.Log.Info("scheduler started", zap.Duration("tick", r.Sched.Tick))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			_, _ = r.tick(ctx)
		}
	}
}

func (r *Runner) runCron(ctx context.Context) error {
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithLogger(cronLogger{l: r.Log}),
	)
	id, err := c.AddFunc(r.Sched.Cron, func() { _, _ = r.tick(ctx) })
	if err != nil {
		return fmt.Errorf("parse cron %q: %w", r.Sched.Cron, err)
	}
	c.Start()
	r.Log.Info("scheduler started", zap.String("cron", r.Sched.Cron), zap.Time("next", c.Entry(id).Next))

	<-ctx.Done()
	<-c.Stop().Done()
	return ctx.Err()
}

type cronLogger struct{ l *zap.Logger }

func (c cronLogger) Info(msg string, kv ...any) { c.l.Sugar().Debugw(msg, kv...) }
func (c cronLogger) Error(err error, msg string, kv ...any) {
	c.l.Sugar().Errorw(msg, append(kv, "error", err)...)
}
