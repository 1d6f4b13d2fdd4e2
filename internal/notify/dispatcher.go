package notify

import (
	"context"
	"sync"
	"time"

	"github.com/NordCoder/Nightwatch/internal/domain/report"
	"github.com/NordCoder/Nightwatch/internal/obs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	mDeliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nightwatch_deliveries_total",
		Help: "Report deliveries by destination and status.",
	}, []string{"destination", "status"})
	mDeliveryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "nightwatch_delivery_duration_seconds",
		Help:    "Time spent delivering one report to one target.",
		Buckets: prometheus.DefBuckets,
	}, []string{"destination"})
)

const maxParallelSends = 8

// Dispatcher delivers a report to every target of every configured destination.
// Delivery is best-effort: failures are logged and recorded, never retried.
type Dispatcher struct {
	dests []Destination
	log   *zap.Logger
	now   func() time.Time
}

func NewDispatcher(dests ...Destination) *Dispatcher {
	d := &Dispatcher{log: zap.L().With(zap.String("component", "notify.dispatcher")), now: time.Now}
	for _, dst := range dests {
		if dst != nil && dst.Configured() {
			d.dests = append(d.dests, dst)
		}
	}
	return d
}

func (d *Dispatcher) WithLogger(l *zap.Logger) *Dispatcher {
	if l == nil {
		return d
	}
	cp := *d
	cp.log = obs.Component(l, "notify.dispatcher")
	return &cp
}

func (d *Dispatcher) Destinations() []string {
	names := make([]string, 0, len(d.dests))
	for _, dst := range d.dests {
		names = append(names, dst.Name())
	}
	return names
}

type job struct {
	dst    Destination
	target string
}

// Deliver returns one record per attempted target, in no particular order.
func (d *Dispatcher) Deliver(ctx context.Context, rep *report.Report) []report.Delivery {
	log := obs.WithTrace(ctx, d.log).With(zap.String("report_id", rep.ID))

	var jobs []job
	for _, dst := range d.dests {
		targets, err := dst.Targets(ctx)
		if err != nil {
			log.Warn("resolve targets failed", zap.String("destination", dst.Name()), zap.Error(err))
			continue
		}
		for _, t := range targets {
			jobs = append(jobs, job{dst: dst, target: t})
		}
	}
	if len(jobs) == 0 {
		log.Warn("no destinations")
		return nil
	}

	var (
		mu  sync.Mutex
		out = make([]report.Delivery, 0, len(jobs))
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelSends)
	for _, j := range jobs {
		g.Go(func() error {
			rec := d.send(gctx, log, j, rep)
			mu.Lock()
			out = append(out, rec)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (d *Dispatcher) send(ctx context.Context, log *zap.Logger, j job, rep *report.Report) report.Delivery {
	name := j.dst.Name()
	rec := report.Delivery{ReportID: rep.ID, Destination: name, Target: j.target}

	start := time.Now()
	err := j.dst.Send(ctx, j.target, rep)
	mDeliveryLatency.WithLabelValues(name).Observe(time.Since(start).Seconds())

	if err != nil {
		mDeliveries.WithLabelValues(name, "error").Inc()
		log.Warn("delivery failed", zap.String("destination", name), zap.String("target", j.target), zap.Error(err))
		rec.Error = err.Error()
		return rec
	}
	mDeliveries.WithLabelValues(name, "ok").Inc()
	log.Info("report delivered", zap.String("destination", name), zap.String("target", j.target))
	rec.DeliveredAt = d.now().UTC()
	return rec
}
