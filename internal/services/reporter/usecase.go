package reporter

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/NordCoder/Nightwatch/internal/aggregator"
	"github.com/NordCoder/Nightwatch/internal/detector"
	"github.com/NordCoder/Nightwatch/internal/domain/cursor"
	"github.com/NordCoder/Nightwatch/internal/domain/event"
	"github.com/NordCoder/Nightwatch/internal/domain/lane"
	"github.com/NordCoder/Nightwatch/internal/domain/report"
	"github.com/NordCoder/Nightwatch/internal/obs"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type TickStats struct {
	Lanes       int
	FetchErrors int
	Failures    int
	Recoveries  int
	ReportID    string
	Published   bool
}

type Options struct {
	Concurrency int
	// DryRun publishes without advancing cursors.
	DryRun bool
}

// Usecase runs one detection pass over every lane and publishes the resulting report.
type Usecase struct {
	Lanes    []lane.Lane
	Source   lane.Source
	Cursors  cursor.Store
	Renderer *aggregator.Renderer
	Pub      report.Publisher
	Clock    report.Clock
	NewID    func() string
	Opts     Options

	log *zap.Logger
}

func NewUC(lanes []lane.Lane, src lane.Source, cursors cursor.Store, r *aggregator.Renderer, pub report.Publisher, clock report.Clock, opts Options) *Usecase {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	return &Usecase{
		Lanes:    lanes,
		Source:   src,
		Cursors:  cursors,
		Renderer: r,
		Pub:      pub,
		Clock:    clock,
		NewID:    uuid.NewString,
		Opts:     opts,
		log:      zap.L().With(zap.String("component", "reporter.uc")),
	}
}

func (u *Usecase) WithLogger(l *zap.Logger) *Usecase {
	if l == nil {
		return u
	}
	cp := *u
	cp.log = obs.Component(l, "reporter.uc")
	return &cp
}

// Tick never fails because of a single lane: fetch and cursor read errors only
// silence that lane. A non-nil error means publishing failed (no cursor moved) or
// some cursors could not be written after a successful publish.
func (u *Usecase) Tick(ctx context.Context) (TickStats, error) {
	tr := otel.Tracer("reporter.uc")
	ctx, span := tr.Start(ctx, "reporter.tick", trace.WithAttributes(attribute.Int("lanes", len(u.Lanes))))
	defer span.End()

	log := obs.WithTrace(ctx, u.log)
	stats := TickStats{Lanes: len(u.Lanes)}

	outcomes, fetchErrs := u.detectAll(ctx, log)
	stats.FetchErrors = fetchErrs

	agg := aggregator.Aggregate(outcomes)
	if agg.Empty() {
		log.Info("nothing to report", zap.Int("lanes", len(u.Lanes)), zap.Int("fetch_errors", fetchErrs))
		return stats, nil
	}
	stats.Failures, stats.Recoveries = len(agg.Failures), len(agg.Recoveries)

	text, err := u.Renderer.Render(agg)
	if err != nil {
		span.RecordError(err)
		return stats, fmt.Errorf("render report: %w", err)
	}

	rep := &report.Report{
		ID:         u.NewID(),
		Text:       text,
		Lanes:      agg.LaneIDs(),
		Failures:   stats.Failures,
		Recoveries: stats.Recoveries,
		CreatedAt:  u.Clock.Now().UTC(),
	}
	stats.ReportID = rep.ID
	span.SetAttributes(
		attribute.String("report.id", rep.ID),
		attribute.Int("report.failures", rep.Failures),
		attribute.Int("report.recoveries", rep.Recoveries),
	)

	if err := u.Pub.Publish(ctx, rep); err != nil {
		span.RecordError(err)
		return stats, fmt.Errorf("publish report: %w", err)
	}
	stats.Published = true
	log.Info("report published",
		zap.String("report_id", rep.ID),
		zap.Int("failures", rep.Failures),
		zap.Int("recoveries", rep.Recoveries),
	)

	if u.Opts.DryRun {
		return stats, nil
	}
	if err := u.advance(ctx, log, agg); err != nil {
		span.RecordError(err)
		return stats, err
	}
	return stats, nil
}

func (u *Usecase) detectAll(ctx context.Context, log *zap.Logger) ([]aggregator.Outcome, int) {
	outcomes := make([]aggregator.Outcome, len(u.Lanes))
	var fetchErrs atomic.Int32

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(u.Opts.Concurrency)
	for i, l := range u.Lanes {
		g.Go(func() error {
			ev, ok := u.detectLane(gctx, log.With(zap.String("lane", l.ID)), l, &fetchErrs)
			outcomes[i] = aggregator.Outcome{Lane: l}
			if ok {
				outcomes[i].Event = &ev
			}
			return nil
		})
	}
	_ = g.Wait()
	return outcomes, int(fetchErrs.Load())
}

func (u *Usecase) detectLane(ctx context.Context, log *zap.Logger, l lane.Lane, fetchErrs *atomic.Int32) (ev event.Event, ok bool) {
	results, err := u.Source.Results(ctx, l)
	if err != nil {
		fetchErrs.Add(1)
		log.Warn("fetch results failed; treating lane as empty", zap.Error(err))
		results = nil
	}

	last, found, err := u.Cursors.Get(ctx, l.ID)
	if err != nil {
		log.Warn("read cursor failed; continuing without it", zap.Error(err))
		last, found = "", false
	}
	if !found {
		last = ""
	}

	ev, ok = detector.Detect(l, results, last)
	if ok {
		log.Debug("lane event",
			zap.String("direction", ev.Direction.String()),
			zap.String("commit", ev.Result.ShortCommit()),
		)
	} else {
		log.Debug("lane quiet", zap.Int("results", len(results)), zap.Bool("has_cursor", found))
	}
	return ev, ok
}

func (u *Usecase) advance(ctx context.Context, log *zap.Logger, agg aggregator.Report) error {
	var errs []error
	for _, ev := range agg.Events() {
		if err := u.Cursors.Set(ctx, ev.Lane.ID, ev.Result.Commit); err != nil {
			log.Error("write cursor failed", zap.String("lane", ev.Lane.ID), zap.Error(err))
			errs = append(errs, fmt.Errorf("set cursor %s: %w", ev.Lane.ID, err))
		}
	}
	return errors.Join(errs...)
}
