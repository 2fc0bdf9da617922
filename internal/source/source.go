// Package source defines the contact lookup contract shared by every
// enrichment provider and the adapters that implement it.
package source

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Xprriacst/google-maps-scraper/internal/model"
	"github.com/Xprriacst/google-maps-scraper/internal/size"
)

// Tier is the trust level of a source. Lower values are more trusted.
type Tier int

const (
	TierPrimary   Tier = iota // business-data provider
	TierSecondary             // verified-contact provider
	TierRegistry              // legal registry fallback
	TierScraped               // scraped or constructed contacts
)

// Tiers lists every tier from most to least trusted.
var Tiers = []Tier{TierPrimary, TierSecondary, TierRegistry, TierScraped}

func (t Tier) String() string {
	switch t {
	case TierPrimary:
		return "primary"
	case TierSecondary:
		return "secondary"
	case TierRegistry:
		return "registry"
	case TierScraped:
		return "scraped"
	default:
		return "unknown"
	}
}

// Provenance tags.
const (
	ProvenanceApollo       = "apollo"
	ProvenanceDropcontact  = "dropcontact"
	ProvenanceRegistry     = "registry"
	ProvenanceWebsite      = "website"
	ProvenanceLLM          = "llm"
	ProvenanceSizeEstimate = "size_estimate"
)

// Query identifies the business a lookup is about.
type Query struct {
	CompanyName  string
	Domain       string // normalized, may be empty
	Website      string // as discovered, may be empty
	TargetTitles []string
	Bracket      size.Bracket
	LegalID      string
	PostalCode   string
	Category     string
}

// Metrics describes one lookup call. They are returned with each result
// and aggregated by the caller.
type Metrics struct {
	Source    string        `json:"source"`
	Requests  int           `json:"requests"`
	Successes int           `json:"successes"`
	Empty     int           `json:"empty"`
	Errors    int           `json:"errors"`
	Skipped   int           `json:"skipped"`
	Duration  time.Duration `json:"duration"`
	LastError string        `json:"last_error,omitempty"`
}

// Add accumulates o into m.
func (m *Metrics) Add(o Metrics) {
	if m.Source == "" {
		m.Source = o.Source
	}
	m.Requests += o.Requests
	m.Successes += o.Successes
	m.Empty += o.Empty
	m.Errors += o.Errors
	m.Skipped += o.Skipped
	m.Duration += o.Duration
	if o.LastError != "" {
		m.LastError = o.LastError
	}
}

// Result is the outcome of one lookup: candidates plus call metrics.
type Result struct {
	Source     string                   `json:"source"`
	Tier       Tier                     `json:"tier"`
	Candidates []model.CandidateContact `json:"candidates,omitempty"`
	Metrics    Metrics                  `json:"metrics"`
}

// Source is a contact lookup provider. Lookup never fails: errors and
// timeouts produce an empty Result whose Metrics record the failure.
type Source interface {
	Name() string
	Tier() Tier
	Available() bool
	Lookup(ctx context.Context, q Query) Result
}

// FirmSource supplies firmographic facts instead of contacts.
type FirmSource interface {
	Name() string
	Available() bool
	LookupFirm(ctx context.Context, q Query) (model.FirmFacts, Metrics)
}

// Set is an ordered collection of sources.
type Set struct {
	mu      sync.RWMutex
	sources map[string]Source
}

// NewSet creates a set holding the given sources.
func NewSet(sources ...Source) *Set {
	s := &Set{sources: make(map[string]Source, len(sources))}
	for _, src := range sources {
		s.Register(src)
	}
	return s
}

// Register adds or replaces a source by name.
func (s *Set) Register(src Source) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sources[src.Name()] = src
}

// Get returns a source by name, or nil if not registered.
func (s *Set) Get(name string) Source {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sources[name]
}

// All returns every registered source ordered by tier then name.
func (s *Set) All() []Source {
	s.mu.RLock()
	out := make([]Source, 0, len(s.sources))
	for _, src := range s.sources {
		out = append(out, src)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Tier() != out[j].Tier() {
			return out[i].Tier() < out[j].Tier()
		}
		return out[i].Name() < out[j].Name()
	})
	return out
}

// Available returns the sources whose capability flag is set, in order.
func (s *Set) Available() []Source {
	all := s.All()
	out := all[:0]
	for _, src := range all {
		if src.Available() {
			out = append(out, src)
		}
	}
	return out
}

// Empty returns the result reported for a source that produced nothing,
// such as an unavailable one.
func Empty(name string, tier Tier) Result {
	return Result{Source: name, Tier: tier, Metrics: Metrics{Source: name}}
}
