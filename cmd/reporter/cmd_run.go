package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/NordCoder/Nightwatch/internal/obs"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"google.golang.org/grpc"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run ticks on the configured schedule until interrupted",
	RunE: func(cmd *cobra.Command, _ []string) error {
		rootCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := bootstrap(rootCtx)
		if err != nil {
			return err
		}
		defer a.close()
		l := a.log

		l.Info("starting reporter",
			zap.String("env", a.cfg.App.Env),
			zap.String("ver", a.cfg.App.Version),
			zap.String("cron", a.cfg.Sched.Cron),
			zap.Duration("tick", a.cfg.Sched.Tick),
			zap.String("delivery", a.cfg.Delivery.Mode),
			zap.String("metrics_addr", a.cfg.Sched.MetricsAddr),
		)

		pub, outboxRunner := a.publisher(rootCtx, false)
		runner, err := a.runner(rootCtx, pub, false)
		if err != nil {
			return err
		}

		// metrics
		ms := obs.BootstrapMetricsServer(a.cfg.Sched.MetricsAddr, a.health, l)

		// grpc health
		var grpcServer *grpc.Server
		grpcErrCh := make(chan error, 1)
		if a.cfg.Sched.GRPCAddr != "" {
			s, hs, ln, err := buildGRPCServer(a.cfg.Sched.GRPCAddr)
			if err != nil {
				return err
			}
			grpcServer = s
			go watchHealth(rootCtx, hs, a.health, 10*time.Second)
			go func() { grpcErrCh <- serveGRPC(s, ln, l) }()
		}

		var wg sync.WaitGroup
		if outboxRunner != nil {
			wg.Add(1)
			go func() {
				defer wg.Done()
				outboxRunner.Run(rootCtx)
			}()
		}

		errCh := make(chan error, 1)
		go func() { errCh <- runner.Run(rootCtx) }()
		l.Info("reporter started")

		var runErr error
		select {
		case <-rootCtx.Done():
			l.Info("shutdown signal")
		case runErr = <-errCh:
			if runErr != nil && !errors.Is(runErr, context.Canceled) {
				l.Error("runner error", zap.Error(runErr))
			}
		case runErr = <-grpcErrCh:
			if runErr != nil {
				l.Error("grpc serve", zap.Error(runErr))
			}
		}
		stop()

		_ = obs.ShutdownServer(context.Background(), ms, 3*time.Second)
		if grpcServer != nil {
			grpcServer.GracefulStop()
		}
		wg.Wait()
		l.Info("bye")

		if errors.Is(runErr, context.Canceled) {
			return nil
		}
		return runErr
	},
}
