package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/Xprriacst/google-maps-scraper/internal/model"
	"github.com/Xprriacst/google-maps-scraper/internal/store"
)

// collectLimit bounds how many runs one collection reads.
const collectLimit = 1000

// Snapshot holds a point-in-time view of run health.
type Snapshot struct {
	RunsTotal    int     `json:"runs_total"`
	RunsComplete int     `json:"runs_complete"`
	RunsFailed   int     `json:"runs_failed"`
	RunsQueued   int     `json:"runs_queued"`
	RunsRunning  int     `json:"runs_running"`
	FailRate     float64 `json:"fail_rate"`

	// Aggregated from the stats of completed runs.
	Processed       int     `json:"processed"`
	ZeroContact     int     `json:"zero_contact"`
	ZeroContactRate float64 `json:"zero_contact_rate"`
	Qualified       int     `json:"qualified"`
	AvgScore        float64 `json:"avg_score"`

	LookbackHours int       `json:"lookback_hours"`
	CollectedAt   time.Time `json:"collected_at"`
}

// RunLister is the slice of store.Store the collector reads.
type RunLister interface {
	ListRuns(ctx context.Context, filter store.RunFilter) ([]model.Run, error)
}

// Collector gathers run metrics from the store.
type Collector struct {
	runs RunLister
	now  func() time.Time
}

// NewCollector creates a new metrics collector.
func NewCollector(runs RunLister) *Collector {
	return &Collector{runs: runs, now: time.Now}
}

// Collect gathers a snapshot over runs created within the lookback window.
func (c *Collector) Collect(ctx context.Context, lookbackHours int) (*Snapshot, error) {
	now := c.now().UTC()
	snap := &Snapshot{LookbackHours: lookbackHours, CollectedAt: now}
	cutoff := now.Add(-time.Duration(lookbackHours) * time.Hour)

	runs, err := c.runs.ListRuns(ctx, store.RunFilter{Limit: collectLimit})
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list runs")
	}

	var scoreSum float64
	var scored int
	for _, r := range runs {
		if lookbackHours > 0 && r.CreatedAt.Before(cutoff) {
			continue
		}
		snap.RunsTotal++
		switch r.Status {
		case model.RunStatusComplete:
			snap.RunsComplete++
		case model.RunStatusFailed:
			snap.RunsFailed++
		case model.RunStatusQueued:
			snap.RunsQueued++
		case model.RunStatusRunning:
			snap.RunsRunning++
		}
		if r.Stats == nil {
			continue
		}
		snap.Processed += r.Stats.Processed
		snap.ZeroContact += r.Stats.ZeroContact
		snap.Qualified += r.Stats.Qualified
		if r.Stats.Processed > 0 {
			scoreSum += r.Stats.Average * float64(r.Stats.Processed)
			scored += r.Stats.Processed
		}
	}

	if finished := snap.RunsComplete + snap.RunsFailed; finished > 0 {
		snap.FailRate = float64(snap.RunsFailed) / float64(finished)
	}
	if snap.Processed > 0 {
		snap.ZeroContactRate = float64(snap.ZeroContact) / float64(snap.Processed)
	}
	if scored > 0 {
		snap.AvgScore = scoreSum / float64(scored)
	}
	return snap, nil
}
