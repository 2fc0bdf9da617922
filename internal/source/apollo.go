package source

import (
	"context"
	"strconv"
	"strings"

	"github.com/Xprriacst/google-maps-scraper/internal/model"
	"github.com/Xprriacst/google-maps-scraper/pkg/apollo"
)

// DefaultApolloPerPage is how many people one Apollo search returns.
const DefaultApolloPerPage = 5

// Apollo looks up decision makers in Apollo's people database.
type Apollo struct {
	base
	client  apollo.Client
	perPage int
}

// NewApollo creates the primary-tier Apollo adapter. A nil client makes
// it unavailable.
func NewApollo(client apollo.Client, perPage int, opts ...Option) *Apollo {
	if perPage <= 0 {
		perPage = DefaultApolloPerPage
	}
	return &Apollo{
		base:    newBase(ProvenanceApollo, TierPrimary, client != nil, opts),
		client:  client,
		perPage: perPage,
	}
}

// Lookup searches people at the company, filtered by target titles.
func (a *Apollo) Lookup(ctx context.Context, q Query) Result {
	if strings.TrimSpace(q.CompanyName) == "" && q.Domain == "" {
		return a.skipped()
	}
	req := apollo.PeopleSearchRequest{
		PersonTitles: q.TargetTitles,
		Page:         1,
		PerPage:      a.perPage,
	}
	if q.CompanyName != "" {
		req.OrganizationNames = []string{q.CompanyName}
	}
	if q.Domain != "" {
		req.OrganizationDomains = []string{q.Domain}
	}

	return a.lookup(ctx, q, func(ctx context.Context) ([]model.CandidateContact, error) {
		resp, err := a.client.SearchPeople(ctx, req)
		if err != nil {
			return nil, err
		}
		var out []model.CandidateContact
		for _, p := range resp.People {
			c := model.CandidateContact{
				Name:             p.FullName(),
				Title:            strings.TrimSpace(p.Title),
				Email:            strings.ToLower(strings.TrimSpace(p.Email)),
				Phone:            p.Phone(),
				SocialProfileURL: p.LinkedInURL,
				EmailConfidence:  apolloConfidence(p.Email, p.EmailStatus),
			}
			if c.Name == "" && c.Email == "" {
				continue
			}
			out = append(out, c)
		}
		return out, nil
	})
}

func apolloConfidence(email, status string) model.Confidence {
	switch {
	case strings.TrimSpace(email) == "":
		return model.ConfidenceNone
	case strings.EqualFold(status, "verified"):
		return model.ConfidenceHigh
	default:
		return model.ConfidenceMedium
	}
}

// ApolloOrg reads headcount and founding year from Apollo's organization
// enrichment.
type ApolloOrg struct {
	base
	client apollo.Client
}

// ApolloOrgName identifies the organization lookup in metrics. Facts it
// returns carry the apollo provenance.
const ApolloOrgName = "apollo_org"

// NewApolloOrg creates the Apollo firmographics lookup.
func NewApolloOrg(client apollo.Client, opts ...Option) *ApolloOrg {
	return &ApolloOrg{
		base:   newBase(ApolloOrgName, TierPrimary, client != nil, opts),
		client: client,
	}
}

// apolloHeadcountConfidence reflects that Apollo's counts are estimates
// built from profiles.
const apolloHeadcountConfidence = 0.7

// LookupFirm enriches the organization by domain, or by name without one.
func (a *ApolloOrg) LookupFirm(ctx context.Context, q Query) (model.FirmFacts, Metrics) {
	if !a.available || (q.Domain == "" && strings.TrimSpace(q.CompanyName) == "") {
		return model.FirmFacts{}, a.skipped().Metrics
	}
	req := apollo.OrganizationRequest{Domain: q.Domain}
	if q.Domain == "" {
		req.Name = q.CompanyName
	}

	org, m, err := invoke(ctx, &a.base, q, func(ctx context.Context) (*apollo.Organization, error) {
		return a.client.EnrichOrganization(ctx, req)
	})
	if err != nil {
		return model.FirmFacts{}, m
	}

	var f model.FirmFacts
	if org != nil && org.EstimatedNumEmployees != nil && *org.EstimatedNumEmployees > 0 {
		n := *org.EstimatedNumEmployees
		f.Headcount = &n
		f.HeadcountConfidence = apolloHeadcountConfidence
		f.HeadcountSource = ProvenanceApollo
	}
	if org != nil && org.FoundedYear != nil && *org.FoundedYear > 0 {
		f.FoundingDate = strconv.Itoa(*org.FoundedYear)
	}
	if f.Headcount == nil && f.FoundingDate == "" {
		m.Empty = 1
		return model.FirmFacts{}, m
	}
	f.Sources = []string{ProvenanceApollo}
	m.Successes = 1
	return f, m
}
