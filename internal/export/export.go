// Package export writes scored leads to CSV, XLSX and Google Sheets.
package export

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Xprriacst/google-maps-scraper/internal/model"
)

// Sink receives the qualified records of a run. Write returns where the
// rows went: a file path or a spreadsheet URL.
type Sink interface {
	Name() string
	Write(ctx context.Context, records []model.ScoredRecord) (string, error)
}

// Header is the column contract shared by every sink.
var Header = func() []string {
	h := []string{
		"company", "score_total", "category", "priority", "recommendation",
		"score_email", "score_contact", "score_company", "size_bracket", "data_sources",
		"phone", "website", "address", "postal_code", "maps_category", "rating",
		"review_count", "source_url", "legal_id", "legal_form", "headcount",
		"headcount_source", "founding_date", "legal_representative",
		"legal_representative_title", "enriched_at",
	}
	for i := 1; i <= model.MaxSlots; i++ {
		for _, f := range slotFields {
			h = append(h, fmt.Sprintf("contact_%d_%s", i, f))
		}
	}
	return h
}()

var slotFields = []string{"name", "title", "email", "phone", "social_profile", "confidence", "provenance"}

// numericColumns are written as numbers where the format allows it.
var numericColumns = map[string]bool{
	"score_total": true, "priority": true, "score_email": true, "score_contact": true,
	"score_company": true, "rating": true, "review_count": true, "headcount": true,
}

// Rows flattens records into rows matching Header.
func Rows(records []model.ScoredRecord) [][]string {
	out := make([][]string, 0, len(records))
	for _, r := range records {
		out = append(out, Row(r))
	}
	return out
}

// Row flattens one record.
func Row(r model.ScoredRecord) []string {
	b, f := r.Business, r.Firm
	row := []string{
		b.Name,
		strconv.Itoa(r.ScoreTotal),
		string(r.Category),
		strconv.Itoa(r.Category.Priority()),
		r.Recommendation,
		strconv.Itoa(r.ScoreEmail),
		strconv.Itoa(r.ScoreContact),
		strconv.Itoa(r.ScoreCompany),
		r.SizeBracket,
		strings.Join(r.Contact.DataSources, ", "),
		b.Phone,
		b.Website,
		b.Address,
		b.PostalCode(),
		b.Category,
		optFloat(b.Rating),
		optInt(b.ReviewCount),
		b.SourceURL,
		f.LegalID,
		f.LegalForm,
		optInt(f.Headcount),
		f.HeadcountSource,
		f.FoundingDate,
		f.LegalRepresentativeName,
		f.LegalRepresentativeTitle,
		formatTime(r.EnrichedAt),
	}
	for _, s := range r.Contact.Slots {
		conf := ""
		if !s.Empty() {
			conf = string(s.EmailConfidence.Cap(model.ConfidenceHigh))
		}
		row = append(row, s.Name, s.Title, s.Email, s.Phone, s.SocialProfileURL, conf, s.Provenance)
	}
	return row
}

func optFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func optInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// fileName builds "<prefix>_<timestamp>.<ext>" inside dir.
func fileName(dir, prefix, ext string, at time.Time) string {
	if prefix == "" {
		prefix = "leads"
	}
	return filepath.Join(dir, fmt.Sprintf("%s_%s.%s", prefix, at.Format("20060102_150405"), ext))
}

// Fallback writes to Primary and, when that fails, to Secondary.
type Fallback struct {
	Primary   Sink
	Secondary Sink
}

func (f Fallback) Name() string { return f.Primary.Name() }

func (f Fallback) Write(ctx context.Context, records []model.ScoredRecord) (string, error) {
	loc, err := f.Primary.Write(ctx, records)
	if err == nil {
		return loc, nil
	}
	zap.L().Warn("export: primary sink failed, falling back",
		zap.String("primary", f.Primary.Name()),
		zap.String("fallback", f.Secondary.Name()),
		zap.Error(err),
	)
	return f.Secondary.Write(ctx, records)
}
