package main

import (
	"context"

	"github.com/NordCoder/Nightwatch/internal/aggregator"
	"github.com/NordCoder/Nightwatch/internal/domain/report"
	"github.com/NordCoder/Nightwatch/internal/services/reporter"
	"github.com/NordCoder/Nightwatch/internal/services/reporter/repo"
)

func (a *app) runner(ctx context.Context, pub report.Publisher, dry bool) (*reporter.Runner, error) {
	lanes, src, err := a.initSources(ctx)
	if err != nil {
		return nil, err
	}

	renderer := aggregator.NewRenderer(aggregator.RandomGreeting(a.cfg.Report.Greetings, a.cfg.Report.Salutations))
	uc := reporter.NewUC(lanes, src, a.cursors, renderer, pub, repo.SystemClock{}, reporter.Options{
		Concurrency: a.cfg.Sched.Concurrency,
		DryRun:      dry,
	}).WithLogger(a.log)

	return reporter.New(a.log, uc, reporter.Schedule{
		Cron:        a.cfg.Sched.Cron,
		Tick:        a.cfg.Sched.Tick,
		RunOnStart:  a.cfg.Sched.RunOnStart,
		TickTimeout: a.cfg.Sched.TickTimeout,
	}), nil
}
