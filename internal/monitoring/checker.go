package monitoring

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Xprriacst/google-maps-scraper/internal/config"
)

const defaultCheckInterval = 5 * time.Minute

// Checker evaluates run health on an interval while the server is up.
// An alert is delivered once when it is raised and again only after it
// has cleared and been raised anew.
type Checker struct {
	collector *Collector
	alerter   *Alerter
	cfg       config.MonitoringConfig

	mu     sync.Mutex
	active map[AlertType]bool
}

// NewChecker wires a collector and an alerter.
func NewChecker(collector *Collector, alerter *Alerter, cfg config.MonitoringConfig) *Checker {
	return &Checker{
		collector: collector,
		alerter:   alerter,
		cfg:       cfg,
		active:    make(map[AlertType]bool),
	}
}

// Run checks once immediately, then on every tick until ctx is done.
func (c *Checker) Run(ctx context.Context) {
	every := time.Duration(c.cfg.CheckIntervalSecs) * time.Second
	if every <= 0 {
		every = defaultCheckInterval
	}
	log := zap.L().With(zap.String("component", "monitoring.checker"))
	log.Info("health checker started", zap.Duration("every", every), zap.Int("window_hours", c.cfg.LookbackWindowHours))

	c.Check(ctx)
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info("health checker stopped")
			return
		case <-ticker.C:
			c.Check(ctx)
		}
	}
}

// Check evaluates one snapshot and delivers newly raised alerts. It
// returns the number of alerts currently raised.
func (c *Checker) Check(ctx context.Context) int {
	snap, err := c.collector.Collect(ctx, c.cfg.LookbackWindowHours)
	if err != nil {
		zap.L().Error("monitoring: collect run health", zap.Error(err))
		return 0
	}
	alerts := c.alerter.Evaluate(snap)
	fresh := c.track(alerts)
	if len(fresh) > 0 {
		sent := c.alerter.SendAlerts(ctx, fresh)
		if sent < len(fresh) {
			c.forget(fresh)
		}
	}
	zap.L().Debug("monitoring: health check",
		zap.Int("raised", len(alerts)),
		zap.Int("new", len(fresh)),
		zap.Int("runs", snap.RunsTotal),
	)
	return len(alerts)
}

// track records the raised set and returns the alerts that were not
// raised on the previous check.
func (c *Checker) track(alerts []Alert) []Alert {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := make(map[AlertType]bool, len(alerts))
	var fresh []Alert
	for _, al := range alerts {
		now[al.Type] = true
		if !c.active[al.Type] {
			fresh = append(fresh, al)
		}
	}
	c.active = now
	return fresh
}

// forget un-marks undelivered alerts so the next check retries them.
func (c *Checker) forget(alerts []Alert) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, al := range alerts {
		delete(c.active, al.Type)
	}
}
