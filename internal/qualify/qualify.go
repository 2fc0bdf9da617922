// Package qualify gates scored records before export.
package qualify

import (
	"sort"

	"github.com/Xprriacst/google-maps-scraper/internal/model"
)

// Filter keeps records with ScoreTotal >= minScore, best first. Records
// with equal totals keep their input order. The input slice is not
// modified.
func Filter(records []model.ScoredRecord, minScore int) []model.ScoredRecord {
	out := make([]model.ScoredRecord, 0, len(records))
	for _, r := range records {
		if r.ScoreTotal >= minScore {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ScoreTotal > out[j].ScoreTotal
	})
	return out
}

// ByCategory keeps only records in one of the given categories, in input
// order.
func ByCategory(records []model.ScoredRecord, cats ...model.Category) []model.ScoredRecord {
	want := make(map[model.Category]bool, len(cats))
	for _, c := range cats {
		want[c] = true
	}
	var out []model.ScoredRecord
	for _, r := range records {
		if want[r.Category] {
			out = append(out, r)
		}
	}
	return out
}
