package main

import (
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lanceiro/radar-cli/internal/miner"
	"github.com/lanceiro/radar-cli/internal/monitoring"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run collect on a cron schedule",
	Long: `Schedule keeps the process alive and runs a collect pass on every cron
tick, each covering the window since the last successful collect. A tick
that fires while the previous pass is still running is skipped.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initCollect(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		spec, _ := cmd.Flags().GetString("cron")
		if spec == "" {
			spec = cfg.Schedule.Cron
		}

		c := cron.New(cron.WithChain(
			cron.SkipIfStillRunning(cron.DefaultLogger),
			cron.Recover(cron.DefaultLogger),
		))

		_, err = c.AddFunc(spec, func() {
			window, err := resolveWindow(ctx, env.Runs, "", "", 0)
			if err != nil {
				zap.L().Error("schedule: resolve window", zap.Error(err))
				return
			}

			counters, err := env.Miner.Run(ctx, miner.Options{
				Window:        window,
				ModalityCodes: cfg.Collect.ModalityCodes,
			})
			if err != nil {
				zap.L().Error("scheduled collect failed", zap.Error(err))
				return
			}

			zap.L().Info("scheduled collect complete",
				zap.Int("seen", counters.Seen),
				zap.Int("published", counters.Published),
				zap.Int("quarantined", counters.Quarantined),
				zap.Int("failed", counters.Failed),
			)
		})
		if err != nil {
			return eris.Wrapf(err, "schedule: parse cron %q", spec)
		}

		// Health checks ride along with the scheduler process.
		if cfg.Monitoring.WebhookURL != "" {
			collector := monitoring.NewCollector(env.Runs, env.Store)
			alerter := monitoring.NewAlerter(cfg.Monitoring)
			go monitoring.NewChecker(collector, alerter, cfg.Monitoring).Run(ctx)
		}

		zap.L().Info("scheduler started", zap.String("cron", spec))
		c.Start()

		<-ctx.Done()

		zap.L().Info("stopping scheduler")
		stopCtx := c.Stop()
		<-stopCtx.Done()

		return nil
	},
}

func init() {
	scheduleCmd.Flags().String("cron", "", "cron expression (default from config)")
	rootCmd.AddCommand(scheduleCmd)
}
