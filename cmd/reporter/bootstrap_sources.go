package main

import (
	"context"
	"fmt"

	"github.com/NordCoder/Nightwatch/internal/domain/lane"
	"github.com/NordCoder/Nightwatch/internal/obs"
	"github.com/NordCoder/Nightwatch/internal/source"
	ghsource "github.com/NordCoder/Nightwatch/internal/source/github"
	"github.com/NordCoder/Nightwatch/internal/source/nightly"
	"go.uber.org/zap"
)

// initSources builds the per-kind sources and resolves workflow lanes against
// GitHub. An unknown workflow name fails here, before any tick runs.
func (a *app) initSources(ctx context.Context) ([]lane.Lane, source.Router, error) {
	lanes, err := a.cfg.Lanes()
	if err != nil {
		return nil, nil, err
	}

	client := source.NewHTTPClient(a.cfg.HTTP)
	router := source.Router{}

	var nNightly, nWorkflow int
	for _, l := range lanes {
		switch l.Kind {
		case lane.KindNightly:
			nNightly++
		case lane.KindWorkflow:
			nWorkflow++
		}
	}

	if nNightly > 0 {
		router[lane.KindNightly] = nightly.New(client, a.cfg.Nightlies.URL, a.cfg.HTTP.Attempts).
			WithLogger(a.log)
	}

	if nWorkflow > 0 {
		gh, err := ghsource.New(a.cfg.GitHub, client, a.cfg.HTTP.Attempts)
		if err != nil {
			return nil, nil, fmt.Errorf("github source: %w", err)
		}
		gh = gh.WithLogger(a.log)
		lanes, err = gh.Resolve(ctx, lanes)
		if err != nil {
			return nil, nil, fmt.Errorf("resolve workflows: %w", err)
		}
		router[lane.KindWorkflow] = gh
	}

	obs.Component(a.log, "reporter.sources").Info("lanes configured",
		zap.Int("nightly", nNightly),
		zap.Int("workflow", nWorkflow),
	)
	return lanes, router, nil
}
