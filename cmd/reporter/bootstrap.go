package main

import (
	"context"
	"fmt"
	"time"

	config "github.com/NordCoder/Nightwatch/internal/config/reporter"
	"github.com/NordCoder/Nightwatch/internal/domain/cursor"
	"github.com/NordCoder/Nightwatch/internal/obs"
	"github.com/NordCoder/Nightwatch/internal/repository/memory"
	pg "github.com/NordCoder/Nightwatch/internal/repository/postgres"
	"github.com/NordCoder/Nightwatch/internal/repository/sqlite"
	"go.uber.org/zap"
)

// app holds everything a command needs; close releases it in reverse order.
type app struct {
	cfg     *config.Config
	log     *zap.Logger
	db      *pg.DB
	cursors cursor.Store
	health  obs.HealthFunc

	closers []func()
}

func bootstrap(ctx context.Context) (*app, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	l, err := obs.NewLogger(cfg.AsLoggerConfig())
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	a := &app{cfg: cfg, log: l}
	a.onClose(func() { _ = l.Sync() })

	otelCloser, err := obs.SetupOTel(ctx, cfg.AsOTELConfig())
	if err != nil {
		l.Warn("otel init", zap.Error(err))
	} else {
		a.onClose(func() { _ = otelCloser.Shutdown(context.Background()) })
	}

	if cfg.NeedsPostgres() {
		db, err := pg.NewDB(ctx, cfg.DB)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("db connect: %w", err)
		}
		a.db = db
		a.onClose(db.Close)
		l.Info("db connected")
	}

	if err := a.initCursors(ctx); err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

func (a *app) initCursors(ctx context.Context) error {
	switch a.cfg.Cursor.Driver {
	case config.CursorPostgres:
		a.cursors = pg.NewCursorRepo(a.db)
		a.health = pingWithin(a.db.Ping)
	case config.CursorSQLite:
		repo, err := sqlite.Open(ctx, a.cfg.Cursor.SQLitePath)
		if err != nil {
			return fmt.Errorf("open sqlite cursors: %w", err)
		}
		a.onClose(func() { _ = repo.Close() })
		a.cursors = repo
		a.health = pingWithin(repo.Ping)
	default:
		a.log.Warn("in-memory cursors: reports will repeat after a restart")
		a.cursors = memory.NewCursorRepo()
	}
	a.log.Info("cursor store ready", zap.String("driver", a.cfg.Cursor.Driver))
	return nil
}

func pingWithin(ping func(context.Context) error) obs.HealthFunc {
	return func(ctx context.Context) error {
		hctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
		defer cancel()
		return ping(hctx)
	}
}

func (a *app) onClose(f func()) { a.closers = append(a.closers, f) }

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
