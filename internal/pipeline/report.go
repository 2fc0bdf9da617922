package pipeline

import (
	"time"

	"github.com/Xprriacst/google-maps-scraper/internal/model"
	"github.com/Xprriacst/google-maps-scraper/internal/scorer"
	"github.com/Xprriacst/google-maps-scraper/internal/source"
)

// Report is the outcome of one run.
type Report struct {
	Query      string `json:"query"`
	Discovered int    `json:"discovered"`
	// Records holds every scored business in discovery order.
	Records []model.ScoredRecord `json:"records"`
	// Qualified holds the records at or above the minimum score, best
	// first. Sinks receive these.
	Qualified     []model.ScoredRecord      `json:"qualified"`
	Stats         scorer.Stats              `json:"stats"`
	SourceMetrics map[string]source.Metrics `json:"source_metrics"`
	Skipped       int                       `json:"skipped"`
	Duplicates    int                       `json:"duplicates"`
	CacheHits     int                       `json:"cache_hits"`
	ZeroContact   int                       `json:"zero_contact"`
	Exported      []string                  `json:"exported,omitempty"`
	Duration      time.Duration             `json:"duration"`
}

// RunStats condenses the report for the run record.
func (r *Report) RunStats() *model.RunStats {
	byCat := make(map[string]int, len(r.Stats.ByCategory))
	for c, n := range r.Stats.ByCategory {
		byCat[string(c)] = n
	}
	return &model.RunStats{
		Discovered:  r.Discovered,
		Processed:   len(r.Records),
		Skipped:     r.Skipped + r.Duplicates,
		CacheHits:   r.CacheHits,
		ZeroContact: r.ZeroContact,
		Qualified:   len(r.Qualified),
		Average:     r.Stats.Average,
		ByCategory:  byCat,
		Exported:    r.Exported,
	}
}
