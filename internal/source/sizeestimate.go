package source

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/Xprriacst/google-maps-scraper/internal/estimate"
	"github.com/Xprriacst/google-maps-scraper/internal/model"
)

// HeadcountEstimator guesses a headcount.
type HeadcountEstimator interface {
	Estimate(ctx context.Context, in estimate.Input) (*estimate.Estimate, error)
}

// SizeEstimate is the last-resort FirmSource: an LLM guess from the
// company name, category and website text.
type SizeEstimate struct {
	base
	estimator HeadcountEstimator
	visitor   SiteVisitor
}

// NewSizeEstimate creates the size estimator. The visitor is optional;
// without it the guess relies on name and category only.
func NewSizeEstimate(e HeadcountEstimator, v SiteVisitor, opts ...Option) *SizeEstimate {
	return &SizeEstimate{
		base:      newBase(ProvenanceSizeEstimate, TierScraped, e != nil, opts),
		estimator: e,
		visitor:   v,
	}
}

// LookupFirm returns an estimated headcount.
func (s *SizeEstimate) LookupFirm(ctx context.Context, q Query) (model.FirmFacts, Metrics) {
	if !s.available || strings.TrimSpace(q.CompanyName) == "" {
		return model.FirmFacts{}, s.skipped().Metrics
	}
	in := estimate.Input{CompanyName: q.CompanyName, Category: q.Category}
	if s.visitor != nil && q.Website != "" {
		if site, err := s.visitor.Visit(ctx, q.Website); err == nil {
			in.SiteText = site.Text
		} else {
			zap.L().Debug("source: size estimate without site text",
				zap.String("company", q.CompanyName), zap.Error(err))
		}
	}

	est, m, err := invoke(ctx, &s.base, q, func(ctx context.Context) (*estimate.Estimate, error) {
		return s.estimator.Estimate(ctx, in)
	})
	if err != nil {
		return model.FirmFacts{}, m
	}
	m.Successes = 1
	n := est.Employees
	return model.FirmFacts{
		Headcount:           &n,
		HeadcountConfidence: est.Confidence,
		HeadcountSource:     ProvenanceSizeEstimate,
		Sources:             []string{ProvenanceSizeEstimate},
	}, m
}
