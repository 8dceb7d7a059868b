package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/lanceiro/radar-cli/internal/config"
)

// AlertType identifies the kind of alert.
type AlertType string

const (
	AlertCollectFailureRate AlertType = "collect_failure_rate"
	AlertCollectStale       AlertType = "collect_stale"
	AlertQuarantineRate     AlertType = "quarantine_rate"
)

// Alert represents a single alert to be sent.
type Alert struct {
	Type      AlertType      `json:"type"`
	Severity  string         `json:"severity"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Alerter evaluates a MetricsSnapshot against configured thresholds
// and sends alerts via webhook when thresholds are breached.
type Alerter struct {
	cfg    config.MonitoringConfig
	client *http.Client
}

// NewAlerter creates a new Alerter with the given monitoring config.
func NewAlerter(cfg config.MonitoringConfig) *Alerter {
	return &Alerter{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Evaluate checks the snapshot against thresholds and returns any alerts.
func (a *Alerter) Evaluate(snap *MetricsSnapshot) []Alert {
	var alerts []Alert
	now := time.Now().UTC()

	// Check collect failure rate. At three scheduled runs a day, three
	// finished runs is a full day of signal.
	finished := snap.CollectCompleted + snap.CollectFailed
	if finished >= 3 && snap.CollectFailRate > a.cfg.FailureRateThreshold {
		alerts = append(alerts, Alert{
			Type:     AlertCollectFailureRate,
			Severity: "high",
			Message: fmt.Sprintf(
				"Collect failure rate %.1f%% exceeds threshold %.1f%% (%d failed / %d finished in last %dh)",
				snap.CollectFailRate*100, a.cfg.FailureRateThreshold*100,
				snap.CollectFailed, finished, snap.LookbackHours,
			),
			Details: map[string]any{
				"failure_rate": snap.CollectFailRate,
				"threshold":    a.cfg.FailureRateThreshold,
				"failed":       snap.CollectFailed,
				"finished":     finished,
			},
			Timestamp: now,
		})
	}

	// Check collect staleness.
	if a.cfg.StaleAfterHours > 0 {
		staleAfter := time.Duration(a.cfg.StaleAfterHours) * time.Hour
		if snap.LastCollectAt == nil || now.Sub(*snap.LastCollectAt) > staleAfter {
			msg := fmt.Sprintf("No successful collect in the last %dh", a.cfg.StaleAfterHours)
			details := map[string]any{"stale_after_hours": a.cfg.StaleAfterHours}
			if snap.LastCollectAt != nil {
				details["last_collect_at"] = snap.LastCollectAt.Format(time.RFC3339)
			}
			alerts = append(alerts, Alert{
				Type:      AlertCollectStale,
				Severity:  "high",
				Message:   msg,
				Details:   details,
				Timestamp: now,
			})
		}
	}

	// Check quarantine rate. A small window of decided records is noise.
	decided := snap.WindowPublished + snap.WindowQuarantined
	if a.cfg.QuarantineRateThreshold > 0 && decided >= 20 &&
		snap.QuarantineRate > a.cfg.QuarantineRateThreshold {
		alerts = append(alerts, Alert{
			Type:     AlertQuarantineRate,
			Severity: "medium",
			Message: fmt.Sprintf(
				"Quarantine rate %.1f%% exceeds threshold %.1f%% (%d quarantined / %d decided in last %dh)",
				snap.QuarantineRate*100, a.cfg.QuarantineRateThreshold*100,
				snap.WindowQuarantined, decided, snap.LookbackHours,
			),
			Details: map[string]any{
				"quarantine_rate": snap.QuarantineRate,
				"threshold":       a.cfg.QuarantineRateThreshold,
				"quarantined":     snap.WindowQuarantined,
				"decided":         decided,
			},
			Timestamp: now,
		})
	}

	return alerts
}

// SendAlerts posts each alert to the configured webhook and returns how
// many went through. No webhook configured means evaluation-only mode;
// triggered alerts still show up in the logs.
func (a *Alerter) SendAlerts(ctx context.Context, alerts []Alert) int {
	if a.cfg.WebhookURL == "" {
		return 0
	}

	sent := 0
	for _, alert := range alerts {
		log := zap.L().With(
			zap.String("type", string(alert.Type)),
			zap.String("severity", alert.Severity),
		)
		if err := a.post(ctx, alert); err != nil {
			log.Error("monitoring: alert delivery failed", zap.Error(err))
			continue
		}
		log.Info("monitoring: alert sent")
		sent++
	}
	return sent
}

func (a *Alerter) post(ctx context.Context, alert Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return eris.Wrap(err, "monitoring: marshal alert")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "monitoring: create webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "monitoring: webhook request")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return eris.Errorf("monitoring: webhook returned status %d", resp.StatusCode)
	}
	return nil
}
