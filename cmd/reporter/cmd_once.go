package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var onceCmd = &cobra.Command{
	Use:   "once",
	Short: "Run a single detection tick and exit",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := bootstrap(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		pub, outboxRunner := a.publisher(ctx, dryRun)
		r, err := a.runner(ctx, pub, dryRun)
		if err != nil {
			return err
		}

		st, err := r.Once(ctx)
		a.log.Info("tick done",
			zap.Bool("dry_run", dryRun),
			zap.Int("lanes", st.Lanes),
			zap.Int("failures", st.Failures),
			zap.Int("recoveries", st.Recoveries),
			zap.Bool("published", st.Published),
		)
		if st.Published && outboxRunner != nil {
			outboxRunner.Flush(context.WithoutCancel(ctx))
		}
		return err
	},
}
