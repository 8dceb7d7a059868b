package monitoring

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/lanceiro/radar-cli/internal/config"
)

// Checker ties the collector and the alerter into a periodic loop. The
// schedule command runs one alongside the cron trigger so a silently dying
// pipeline gets noticed between collect passes.
type Checker struct {
	collector *Collector
	alerter   *Alerter
	interval  time.Duration
	lookback  int
}

// NewChecker builds a checker from the monitoring config block.
func NewChecker(collector *Collector, alerter *Alerter, cfg config.MonitoringConfig) *Checker {
	interval := time.Duration(cfg.CheckIntervalSecs) * time.Second
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	return &Checker{
		collector: collector,
		alerter:   alerter,
		interval:  interval,
		lookback:  cfg.LookbackWindowHours,
	}
}

// Run checks once immediately, then on every interval tick until ctx is
// cancelled.
func (c *Checker) Run(ctx context.Context) {
	log := zap.L().With(zap.String("component", "monitoring.checker"))
	log.Info("alert checker running",
		zap.Duration("interval", c.interval),
		zap.Int("lookback_hours", c.lookback),
	)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		if ctx.Err() != nil {
			log.Info("alert checker stopped")
			return
		}
		c.tick(ctx, log)

		select {
		case <-ctx.Done():
			log.Info("alert checker stopped")
			return
		case <-ticker.C:
		}
	}
}

func (c *Checker) tick(ctx context.Context, log *zap.Logger) {
	snap, err := c.collector.Collect(ctx, c.lookback)
	if err != nil {
		log.Error("monitoring: collect metrics", zap.Error(err))
		return
	}

	alerts := c.alerter.Evaluate(snap)
	if len(alerts) == 0 {
		log.Debug("monitoring: all checks healthy")
		return
	}

	sent := c.alerter.SendAlerts(ctx, alerts)
	log.Warn("monitoring: alerts triggered",
		zap.Int("triggered", len(alerts)),
		zap.Int("sent", sent),
	)
}
