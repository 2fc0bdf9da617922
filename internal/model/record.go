package model

import "time"

// Category is the prospecting quality band of a scored record.
type Category string

const (
	CategoryPremium   Category = "Premium"
	CategoryQualified Category = "Qualified"
	CategoryVerify    Category = "Verify"
	CategoryWeak      Category = "Weak"
)

// Categories lists every category from best to worst.
var Categories = []Category{CategoryPremium, CategoryQualified, CategoryVerify, CategoryWeak}

// Priority returns 1 for Premium through 4 for Weak.
func (c Category) Priority() int {
	switch c {
	case CategoryPremium:
		return 1
	case CategoryQualified:
		return 2
	case CategoryVerify:
		return 3
	default:
		return 4
	}
}

// ScoredRecord is the unit written to the cache and to export sinks.
type ScoredRecord struct {
	Business       RawBusiness   `json:"business"`
	Firm           FirmFacts     `json:"firm"`
	Contact        MergedContact `json:"contact"`
	SizeBracket    string        `json:"size_bracket,omitempty"`
	ScoreEmail     int           `json:"score_email"`
	ScoreContact   int           `json:"score_contact"`
	ScoreCompany   int           `json:"score_company"`
	ScoreTotal     int           `json:"score_total"`
	Category       Category      `json:"category"`
	Recommendation string        `json:"recommendation"`
	EnrichedAt     time.Time     `json:"enriched_at"`
	RefreshedAt    *time.Time    `json:"refreshed_at,omitempty"`
}

// Refresh replaces the discovery metadata with fresher values while
// keeping the merged contact and firm facts.
func (r *ScoredRecord) Refresh(fresh RawBusiness, at time.Time) {
	b := r.Business
	if fresh.Name != "" {
		b.Name = fresh.Name
	}
	if fresh.Address != "" {
		b.Address = fresh.Address
	}
	if fresh.Phone != "" {
		b.Phone = fresh.Phone
	}
	if fresh.Website != "" {
		b.Website = fresh.Website
	}
	if fresh.Category != "" {
		b.Category = fresh.Category
	}
	if fresh.SourceURL != "" {
		b.SourceURL = fresh.SourceURL
	}
	b.Rating = fresh.Rating
	b.ReviewCount = fresh.ReviewCount
	r.Business = b
	t := at
	r.RefreshedAt = &t
}
