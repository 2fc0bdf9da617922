package scorer

import (
	"math"
	"strings"

	"github.com/Xprriacst/google-maps-scraper/internal/model"
)

// Stats summarizes a batch of scored records.
type Stats struct {
	Total        int                    `json:"total"`
	ByCategory   map[model.Category]int `json:"by_category"`
	Average      float64                `json:"average"`
	WithEmail    int                    `json:"with_email"`
	WithContact  int                    `json:"with_contact"`
	ZeroContact  int                    `json:"zero_contact"`
	PremiumPct   float64                `json:"premium_pct"`
	QualifiedPct float64                `json:"qualified_pct"`
}

// Summarize computes Stats over records. Every category is present in
// ByCategory, with zero counts included.
func Summarize(records []model.ScoredRecord) Stats {
	s := Stats{ByCategory: make(map[model.Category]int, len(model.Categories))}
	for _, c := range model.Categories {
		s.ByCategory[c] = 0
	}
	if len(records) == 0 {
		return s
	}

	sum := 0
	for _, r := range records {
		s.Total++
		sum += r.ScoreTotal
		s.ByCategory[CategoryFor(r.ScoreTotal)]++
		if strings.TrimSpace(r.Contact.Primary.Email) != "" {
			s.WithEmail++
		}
		if strings.TrimSpace(r.Contact.Primary.Name) != "" {
			s.WithContact++
		}
		if r.Contact.Filled() == 0 {
			s.ZeroContact++
		}
	}

	s.Average = round1(float64(sum) / float64(s.Total))
	s.PremiumPct = round1(100 * float64(s.ByCategory[model.CategoryPremium]) / float64(s.Total))
	s.QualifiedPct = round1(100 * float64(s.ByCategory[model.CategoryQualified]) / float64(s.Total))
	return s
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
