package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"tracksync/internal/scheduler"
	"tracksync/internal/utils"
	"tracksync/syncer"
)

func newDaemonCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "daemon",
		Short: "Run the periodic background sync loop",
		Long: `Runs sync cycles for every entity type at the configured interval.
Cycles are skipped while the service is unreachable and resume on the
next tick once connectivity returns. Stop with SIGINT or SIGTERM.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(flagConfig)
			if err != nil {
				return err
			}
			defer app.Close()

			logger, closeLog, err := utils.NewDaemonLogger()
			if err != nil {
				return err
			}
			defer func() { _ = closeLog() }()

			interval := time.Duration(app.cfg.SyncIntervalMinutes) * time.Minute
			sched := scheduler.New(app.client.Ping)

			sched.RegisterPeriodic(interval, true, func(ctx context.Context) {
				reports, err := app.coord.SyncAll(ctx)
				if errors.Is(err, syncer.ErrUnauthorized) {
					logger.Printf("session invalidated, pausing until next login")
					return
				}
				if err != nil {
					logger.Printf("sync error: %v", err)
				}
				for _, r := range reports {
					if r == nil {
						continue
					}
					if len(r.Succeeded) > 0 || r.Pulled > 0 || len(r.Failed) > 0 {
						logger.Printf("%s: pushed=%d pulled=%d failed=%d",
							r.Type, len(r.Succeeded), r.Pulled, len(r.Failed))
					}
				}
			})

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			logger.Printf("daemon started, interval %s (PID %d)", interval, os.Getpid())
			utils.Infof("daemon running, sync every %s", interval)

			// Kick one cycle at startup so a freshly booted daemon does not
			// wait a full interval before the cache is usable.
			sched.TriggerOnce(ctx, func(ctx context.Context) {
				if _, err := app.coord.SyncAll(ctx); err != nil {
					logger.Printf("startup sync: %v", err)
				}
			})

			sched.Run(ctx)
			sched.Shutdown(10 * time.Second)
			logger.Printf("daemon stopped")
			return nil
		},
	}
}
