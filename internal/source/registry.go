package source

import (
	"context"
	"strings"
	"time"

	"github.com/Xprriacst/google-maps-scraper/internal/model"
	"github.com/Xprriacst/google-maps-scraper/internal/textnorm"
	"github.com/Xprriacst/google-maps-scraper/pkg/sirene"
)

const (
	registryHeadcountConfidence = 0.9
	registryMemoTTL             = 10 * time.Minute
	registryMemoMax             = 512
)

// Registry reads the French company registry. It is both a FirmSource
// (legal id, legal form, headcount band, creation date, representative)
// and a registry-tier contact Source listing the company's officers. One
// search serves both lookups for the same business.
type Registry struct {
	base
	client sirene.Client
	memo   *memo[*sirene.Company]
}

// NewRegistry creates the registry adapter. A nil client makes it
// unavailable.
func NewRegistry(client sirene.Client, opts ...Option) *Registry {
	return &Registry{
		base:   newBase(ProvenanceRegistry, TierRegistry, client != nil, opts),
		client: client,
		memo:   newMemo[*sirene.Company](registryMemoTTL, registryMemoMax),
	}
}

// LookupFirm maps the best registry match to firm facts.
func (r *Registry) LookupFirm(ctx context.Context, q Query) (model.FirmFacts, Metrics) {
	if !r.available || strings.TrimSpace(q.CompanyName) == "" {
		return model.FirmFacts{}, r.skipped().Metrics
	}
	co, m, err := invoke(ctx, &r.base, q, r.search(q))
	if err != nil {
		return model.FirmFacts{}, m
	}
	if co == nil {
		m.Empty = 1
		return model.FirmFacts{}, m
	}
	m.Successes = 1
	return FirmFactsFromCompany(*co), m
}

// Lookup returns the company's natural-person officers as candidates.
// They carry no email; the merge step derives one from the website.
func (r *Registry) Lookup(ctx context.Context, q Query) Result {
	if strings.TrimSpace(q.CompanyName) == "" {
		return r.skipped()
	}
	return r.lookup(ctx, q, func(ctx context.Context) ([]model.CandidateContact, error) {
		co, err := r.search(q)(ctx)
		if err != nil || co == nil {
			return nil, err
		}
		var out []model.CandidateContact
		for _, d := range co.Dirigeants {
			if !d.IsPerson() || len(out) == model.MaxSlots {
				continue
			}
			out = append(out, model.CandidateContact{
				Name:            d.FullName(),
				Title:           strings.TrimSpace(d.Qualite),
				EmailConfidence: model.ConfidenceNone,
			})
		}
		return out, nil
	})
}

// FirmFactsFromCompany converts a registry record.
func FirmFactsFromCompany(co sirene.Company) model.FirmFacts {
	f := model.FirmFacts{
		LegalID:      co.Siege.Siret,
		LegalForm:    co.NatureJuridique,
		FoundingDate: co.DateCreation,
		Sources:      []string{ProvenanceRegistry},
	}
	if f.LegalID == "" {
		f.LegalID = co.Siren
	}
	if n, ok := co.Headcount(); ok {
		f.Headcount = &n
		f.HeadcountConfidence = registryHeadcountConfidence
		f.HeadcountSource = ProvenanceRegistry
	}
	if d, ok := co.FirstPerson(); ok {
		f.LegalRepresentativeName = d.FullName()
		f.LegalRepresentativeTitle = strings.TrimSpace(d.Qualite)
	}
	return f
}

// search returns a call that finds the best match for q, sharing results
// between concurrent and recent identical queries.
func (r *Registry) search(q Query) func(context.Context) (*sirene.Company, error) {
	key := textnorm.Fold(q.CompanyName) + "|" + q.PostalCode
	return func(ctx context.Context) (*sirene.Company, error) {
		return r.memo.do(key, func() (*sirene.Company, error) {
			resp, err := r.client.Search(ctx, sirene.SearchRequest{
				Query:      q.CompanyName,
				PostalCode: q.PostalCode,
				PerPage:    1,
			})
			if err != nil {
				return nil, err
			}
			if len(resp.Results) == 0 {
				return nil, nil
			}
			co := resp.Results[0]
			return &co, nil
		})
	}
}
