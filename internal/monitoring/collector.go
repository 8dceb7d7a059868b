package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/lanceiro/radar-cli/internal/model"
)

// MetricsSnapshot holds a point-in-time view of pipeline health.
type MetricsSnapshot struct {
	// Collect runs within the lookback window.
	CollectTotal     int     `json:"collect_total"`
	CollectCompleted int     `json:"collect_completed"`
	CollectFailed    int     `json:"collect_failed"`
	CollectFailRate  float64 `json:"collect_fail_rate"`

	// Audit runs within the lookback window.
	AuditTotal  int `json:"audit_total"`
	AuditFailed int `json:"audit_failed"`

	// Record flow within the window, summed from run counters.
	WindowPublished   int `json:"window_published"`
	WindowQuarantined int `json:"window_quarantined"`
	// QuarantineRate is quarantined over all records decided in the window.
	QuarantineRate float64 `json:"quarantine_rate"`

	// Store totals.
	Published   int64 `json:"published"`
	Quarantined int64 `json:"quarantined"`

	// LastCollectAt is the most recent successful collect, nil when the
	// pipeline has never completed one.
	LastCollectAt *time.Time `json:"last_collect_at,omitempty"`

	// Metadata.
	LookbackHours int       `json:"lookback_hours"`
	CollectedAt   time.Time `json:"collected_at"`
}

// RunSource abstracts the run log methods the collector needs.
type RunSource interface {
	List(ctx context.Context, limit int) ([]model.Run, error)
	LastSuccess(ctx context.Context, kind model.RunKind) (*time.Time, error)
}

// StatusCounter abstracts the store's per-status totals.
type StatusCounter interface {
	Counts(ctx context.Context) (map[model.Status]int64, error)
}

// runScanLimit bounds how many recent runs one snapshot examines.
const runScanLimit = 500

// Collector gathers metrics from the run log and the notice store.
type Collector struct {
	runs    RunSource
	counter StatusCounter
}

// NewCollector creates a metrics collector.
func NewCollector(runs RunSource, counter StatusCounter) *Collector {
	return &Collector{runs: runs, counter: counter}
}

// Collect gathers a snapshot of pipeline metrics over the lookback window.
func (c *Collector) Collect(ctx context.Context, lookbackHours int) (*MetricsSnapshot, error) {
	snap := &MetricsSnapshot{
		LookbackHours: lookbackHours,
		CollectedAt:   time.Now().UTC(),
	}

	cutoff := time.Now().UTC().Add(-time.Duration(lookbackHours) * time.Hour)

	runs, err := c.runs.List(ctx, runScanLimit)
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list runs")
	}

	for _, r := range runs {
		if r.StartedAt.Before(cutoff) {
			continue
		}
		switch r.Kind {
		case model.RunCollect:
			snap.CollectTotal++
			switch r.Status {
			case model.RunCompleted:
				snap.CollectCompleted++
			case model.RunFailed:
				snap.CollectFailed++
			}
			snap.WindowPublished += r.Counters.Published
			snap.WindowQuarantined += r.Counters.Quarantined
		case model.RunAudit:
			snap.AuditTotal++
			if r.Status == model.RunFailed {
				snap.AuditFailed++
			}
		}
	}

	if finished := snap.CollectCompleted + snap.CollectFailed; finished > 0 {
		snap.CollectFailRate = float64(snap.CollectFailed) / float64(finished)
	}
	if decided := snap.WindowPublished + snap.WindowQuarantined; decided > 0 {
		snap.QuarantineRate = float64(snap.WindowQuarantined) / float64(decided)
	}

	last, err := c.runs.LastSuccess(ctx, model.RunCollect)
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: last collect")
	}
	snap.LastCollectAt = last

	if c.counter != nil {
		counts, err := c.counter.Counts(ctx)
		if err != nil {
			return nil, eris.Wrap(err, "monitoring: store counts")
		}
		snap.Published = counts[model.StatusPublished]
		snap.Quarantined = counts[model.StatusQuarantined]
	}

	return snap, nil
}
