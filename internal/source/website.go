package source

import (
	"context"
	"strings"
	"time"

	"github.com/Xprriacst/google-maps-scraper/internal/domain"
	"github.com/Xprriacst/google-maps-scraper/internal/emailpattern"
	"github.com/Xprriacst/google-maps-scraper/internal/model"
	"github.com/Xprriacst/google-maps-scraper/internal/scrape"
	"github.com/Xprriacst/google-maps-scraper/internal/textnorm"
	"github.com/Xprriacst/google-maps-scraper/internal/title"
)

// SiteVisitor crawls a company website.
type SiteVisitor interface {
	Visit(ctx context.Context, website string) (*scrape.Site, error)
}

const (
	siteMemoTTL = 15 * time.Minute
	siteMemoMax = 256
)

// SharedVisitor lets the website and LLM adapters crawl each site once.
type SharedVisitor struct {
	inner SiteVisitor
	memo  *memo[*scrape.Site]
}

// NewSharedVisitor wraps v.
func NewSharedVisitor(v SiteVisitor) *SharedVisitor {
	return &SharedVisitor{inner: v, memo: newMemo[*scrape.Site](siteMemoTTL, siteMemoMax)}
}

// Visit crawls website unless a recent or in-flight crawl of the same
// site can be reused.
func (s *SharedVisitor) Visit(ctx context.Context, website string) (*scrape.Site, error) {
	key, ok := domain.SiteKey(website)
	if !ok {
		key = strings.TrimSpace(website)
	}
	return s.memo.do(key, func() (*scrape.Site, error) {
		return s.inner.Visit(ctx, website)
	})
}

// Website turns a company's own contact pages into candidates.
type Website struct {
	base
	visitor SiteVisitor
}

// NewWebsite creates the scraped-tier website adapter. A nil visitor
// makes it unavailable.
func NewWebsite(v SiteVisitor, opts ...Option) *Website {
	return &Website{
		base:    newBase(ProvenanceWebsite, TierScraped, v != nil, opts),
		visitor: v,
	}
}

// Lookup crawls the website. Named people become candidates with an
// address found on the site that contains their last name, or else a
// derived one. Leftover personal addresses become nameless candidates.
func (w *Website) Lookup(ctx context.Context, q Query) Result {
	if strings.TrimSpace(q.Website) == "" {
		return w.skipped()
	}
	return w.lookup(ctx, q, func(ctx context.Context) ([]model.CandidateContact, error) {
		site, err := w.visitor.Visit(ctx, q.Website)
		if err != nil {
			return nil, err
		}
		return CandidatesFromSite(site, q.Website), nil
	})
}

// CandidatesFromSite builds website candidates from a crawl.
func CandidatesFromSite(site *scrape.Site, website string) []model.CandidateContact {
	companyDomain, _ := domain.Company(website)
	used := make(map[string]bool)
	var out []model.CandidateContact

	for _, p := range site.People {
		if title.IsExcluded(p.Title) {
			continue
		}
		c := model.CandidateContact{Name: p.Name, Title: p.Title}
		if email, ok := matchEmail(p.Name, site.Emails); ok {
			used[email] = true
			c.Email = email
			c.EmailConfidence = model.ConfidenceMedium
			if d, ok := domain.FromEmail(email); ok && d == companyDomain {
				c.EmailConfidence = model.ConfidenceHigh
			}
		} else {
			r := emailpattern.Derive(p.Name, website, site.Emails)
			c.Email = r.Email
			c.EmailConfidence = r.Confidence
		}
		out = append(out, c)
	}

	for _, e := range site.Emails {
		if used[e] || emailpattern.IsGeneric(e) || !emailpattern.Valid(e) {
			continue
		}
		out = append(out, model.CandidateContact{Email: e, EmailConfidence: model.ConfidenceLow})
	}
	return out
}

// matchEmail finds an address whose local part contains the folded last
// name of fullName.
func matchEmail(fullName string, emails []string) (string, bool) {
	tokens := strings.Fields(fullName)
	if len(tokens) < 2 {
		return "", false
	}
	last := textnorm.Letters(tokens[len(tokens)-1])
	if len(last) < 2 {
		return "", false
	}
	for _, e := range emails {
		local, _, ok := emailpattern.Split(e)
		if ok && strings.Contains(textnorm.Letters(local), last) {
			return e, true
		}
	}
	return "", false
}
