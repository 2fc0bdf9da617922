package model

import (
	"regexp"
	"time"
)

// RunStatus represents the current state of a lead generation run.
type RunStatus string

const (
	RunStatusQueued   RunStatus = "queued"
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// RawBusiness is a business as returned by the discovery provider.
type RawBusiness struct {
	Name        string   `json:"name"`
	Address     string   `json:"address,omitempty"`
	Phone       string   `json:"phone,omitempty"`
	Website     string   `json:"website,omitempty"`
	Rating      *float64 `json:"rating,omitempty"`
	ReviewCount *int     `json:"review_count,omitempty"`
	Category    string   `json:"category,omitempty"`
	SourceURL   string   `json:"source_url,omitempty"` // opaque provider identifier
}

// RatingValue returns the rating or 0 when absent.
func (b RawBusiness) RatingValue() float64 {
	if b.Rating == nil {
		return 0
	}
	return *b.Rating
}

// ReviewCountValue returns the review count or 0 when absent.
func (b RawBusiness) ReviewCountValue() int {
	if b.ReviewCount == nil {
		return 0
	}
	return *b.ReviewCount
}

var postalCodeRe = regexp.MustCompile(`\b\d{5}\b`)

// PostalCode returns the last five-digit group of the address, or "".
func (b RawBusiness) PostalCode() string {
	m := postalCodeRe.FindAllString(b.Address, -1)
	if len(m) == 0 {
		return ""
	}
	return m[len(m)-1]
}

// FirmFacts holds registry-derived and estimated facts about a business.
type FirmFacts struct {
	LegalID                  string   `json:"legal_id,omitempty"`
	LegalForm                string   `json:"legal_form,omitempty"`
	Headcount                *int     `json:"headcount,omitempty"`
	HeadcountConfidence      float64  `json:"headcount_confidence,omitempty"`
	HeadcountSource          string   `json:"headcount_source,omitempty"`
	RevenueBracket           string   `json:"revenue_bracket,omitempty"`
	FoundingDate             string   `json:"founding_date,omitempty"`
	LegalRepresentativeName  string   `json:"legal_representative_name,omitempty"`
	LegalRepresentativeTitle string   `json:"legal_representative_title,omitempty"`
	Sources                  []string `json:"sources,omitempty"`
}

// HeadcountKnown reports whether a headcount has been set.
func (f FirmFacts) HeadcountKnown() bool {
	return f.Headcount != nil
}

// Fill copies every field of other that is still empty on f. Fields
// already set are never overwritten, so callers must apply sources in
// priority order.
func (f *FirmFacts) Fill(other FirmFacts) {
	fillString(&f.LegalID, other.LegalID)
	fillString(&f.LegalForm, other.LegalForm)
	fillString(&f.RevenueBracket, other.RevenueBracket)
	fillString(&f.FoundingDate, other.FoundingDate)
	if f.LegalRepresentativeName == "" && other.LegalRepresentativeName != "" {
		f.LegalRepresentativeName = other.LegalRepresentativeName
		f.LegalRepresentativeTitle = other.LegalRepresentativeTitle
	}
	if f.Headcount == nil && other.Headcount != nil {
		hc := *other.Headcount
		f.Headcount = &hc
		f.HeadcountConfidence = other.HeadcountConfidence
		f.HeadcountSource = other.HeadcountSource
	}
	for _, s := range other.Sources {
		if !containsString(f.Sources, s) {
			f.Sources = append(f.Sources, s)
		}
	}
}

func fillString(dst *string, v string) {
	if *dst == "" {
		*dst = v
	}
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// Run represents a single lead generation run started through the API or CLI.
type Run struct {
	ID        string    `json:"id"`
	Query     string    `json:"query"`
	Status    RunStatus `json:"status"`
	Stats     *RunStats `json:"stats,omitempty"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RunStats summarizes the outcome of a completed run.
type RunStats struct {
	Discovered  int            `json:"discovered"`
	Processed   int            `json:"processed"`
	Skipped     int            `json:"skipped"`
	CacheHits   int            `json:"cache_hits"`
	ZeroContact int            `json:"zero_contact"`
	Qualified   int            `json:"qualified"`
	Average     float64        `json:"average_score"`
	ByCategory  map[string]int `json:"by_category,omitempty"`
	Exported    []string       `json:"exported,omitempty"`
}
