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

	"github.com/Xprriacst/google-maps-scraper/internal/config"
)

// AlertType identifies the kind of alert.
type AlertType string

const (
	AlertRunFailureRate  AlertType = "run_failure_rate"
	AlertZeroContactRate AlertType = "zero_contact_rate"
)

// Severity levels carried by alerts.
const (
	SeverityHigh   = "high"
	SeverityMedium = "medium"
)

// Minimum sample sizes before a rate is trusted.
const (
	minFinishedRuns  = 5
	minProcessedLead = 20
)

// Alert is one threshold breach.
type Alert struct {
	Type      AlertType      `json:"type"`
	Severity  string         `json:"severity"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// notification is the webhook body: every alert of one check.
type notification struct {
	Service string  `json:"service"`
	Alerts  []Alert `json:"alerts"`
}

// rule turns a snapshot into at most one alert.
type rule func(snap *Snapshot, cfg config.MonitoringConfig) (Alert, bool)

var rules = []rule{failureRateRule, zeroContactRule}

func failureRateRule(snap *Snapshot, cfg config.MonitoringConfig) (Alert, bool) {
	finished := snap.RunsComplete + snap.RunsFailed
	if finished < minFinishedRuns || snap.FailRate <= cfg.FailureRateThreshold {
		return Alert{}, false
	}
	return Alert{
		Type:     AlertRunFailureRate,
		Severity: SeverityHigh,
		Message: fmt.Sprintf("run failure rate %.1f%% exceeds threshold %.1f%% (%d of %d runs in %dh)",
			snap.FailRate*100, cfg.FailureRateThreshold*100, snap.RunsFailed, finished, snap.LookbackHours),
		Details: map[string]any{
			"failure_rate": snap.FailRate,
			"threshold":    cfg.FailureRateThreshold,
			"failed":       snap.RunsFailed,
			"finished":     finished,
		},
	}, true
}

// A high zero-contact share usually means a source key expired or an
// upstream changed its response shape.
func zeroContactRule(snap *Snapshot, cfg config.MonitoringConfig) (Alert, bool) {
	if cfg.ZeroContactThreshold <= 0 || snap.Processed < minProcessedLead ||
		snap.ZeroContactRate <= cfg.ZeroContactThreshold {
		return Alert{}, false
	}
	return Alert{
		Type:     AlertZeroContactRate,
		Severity: SeverityMedium,
		Message: fmt.Sprintf("%.1f%% of businesses ended with no contact (%d of %d in %dh)",
			snap.ZeroContactRate*100, snap.ZeroContact, snap.Processed, snap.LookbackHours),
		Details: map[string]any{
			"zero_contact_rate": snap.ZeroContactRate,
			"threshold":         cfg.ZeroContactThreshold,
			"processed":         snap.Processed,
		},
	}, true
}

// Alerter evaluates a Snapshot against configured thresholds and posts
// breaches to a webhook.
type Alerter struct {
	cfg    config.MonitoringConfig
	client *http.Client
	now    func() time.Time
}

// NewAlerter creates an Alerter for cfg.
func NewAlerter(cfg config.MonitoringConfig) *Alerter {
	return &Alerter{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
		now:    time.Now,
	}
}

// Evaluate returns the alerts raised by snap, in rule order.
func (a *Alerter) Evaluate(snap *Snapshot) []Alert {
	var alerts []Alert
	ts := a.now().UTC()
	for _, r := range rules {
		if al, ok := r(snap, a.cfg); ok {
			al.Timestamp = ts
			alerts = append(alerts, al)
		}
	}
	return alerts
}

// SendAlerts posts alerts to the webhook in a single request and returns
// how many were delivered: all of them, or zero on failure.
func (a *Alerter) SendAlerts(ctx context.Context, alerts []Alert) int {
	if a.cfg.WebhookURL == "" || len(alerts) == 0 {
		return 0
	}
	if err := a.post(ctx, notification{Service: "leadgen", Alerts: alerts}); err != nil {
		zap.L().Error("monitoring: alert delivery failed", zap.Int("alerts", len(alerts)), zap.Error(err))
		return 0
	}
	for _, al := range alerts {
		zap.L().Info("monitoring: alert sent",
			zap.String("type", string(al.Type)),
			zap.String("severity", al.Severity),
		)
	}
	return len(alerts)
}

func (a *Alerter) post(ctx context.Context, n notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return eris.Wrap(err, "monitoring: encode alerts")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return eris.Wrap(err, "monitoring: build webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "monitoring: post webhook")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		return eris.Errorf("monitoring: webhook status %d", resp.StatusCode)
	}
	return nil
}
