// Package merge folds candidate contacts from every source into up to
// three ranked contact slots per business.
package merge

import (
	"sort"
	"strings"

	"github.com/Xprriacst/google-maps-scraper/internal/emailpattern"
	"github.com/Xprriacst/google-maps-scraper/internal/model"
	"github.com/Xprriacst/google-maps-scraper/internal/size"
	"github.com/Xprriacst/google-maps-scraper/internal/source"
	"github.com/Xprriacst/google-maps-scraper/internal/textnorm"
	"github.com/Xprriacst/google-maps-scraper/internal/title"
)

// defaultRepresentativeTitle is used when the registry names a legal
// representative without a role.
const defaultRepresentativeTitle = "Gérant"

// Input is everything the engine needs for one business.
type Input struct {
	Results []source.Result
	Firm    model.FirmFacts
	Bracket size.Bracket
	// TargetTitles overrides size.TargetTitles(Bracket) when set.
	TargetTitles []string
	// Website is used to synthesize registry emails.
	Website string
}

// Engine merges and ranks candidates. It holds no per-call state and is
// safe for concurrent use.
type Engine struct {
	weights Weights
}

// New creates an engine. Invalid weights fall back to DefaultWeights.
func New(w Weights) *Engine {
	if w.Validate() != nil {
		w = DefaultWeights()
	}
	return &Engine{weights: w}
}

// Weights returns the weights in use.
func (e *Engine) Weights() Weights {
	return e.weights
}

type ranked struct {
	c     model.CandidateContact
	tier  source.Tier
	score int
	also  []string // provenance of collapsed duplicates
}

// Merge builds the MergedContact for one business. The output depends
// only on the input values, never on the order results arrived in.
func (e *Engine) Merge(in Input) model.MergedContact {
	targets := in.TargetTitles
	if len(targets) == 0 {
		targets = size.TargetTitles(in.Bracket)
	}

	pool := e.dedupe(e.pool(in, targets), targets)

	var out model.MergedContact
	sources := map[string]bool{}
	for _, s := range in.Firm.Sources {
		sources[s] = true
	}

	filled := 0
	for _, tier := range source.Tiers {
		if filled == model.MaxSlots {
			break
		}
		for _, r := range pool {
			if r.tier != tier || filled == model.MaxSlots {
				continue
			}
			out.Slots[filled] = model.SlotFromCandidate(r.c)
			filled++
			sources[r.c.Provenance] = true
			for _, p := range r.also {
				sources[p] = true
			}
		}
	}

	if filled == 0 && strings.TrimSpace(in.Firm.LegalRepresentativeName) != "" {
		out.Slots[0] = representativeSlot(in.Firm, in.Website)
		sources[source.ProvenanceRegistry] = true
	}

	out.Primary = out.Slots[0]
	out.DataSources = sortedKeys(sources)
	return out
}

// Score returns the ranking score of a candidate from tier t.
func (e *Engine) Score(c model.CandidateContact, t source.Tier, targets []string) int {
	w := e.weights
	s := w.tierScore(t)
	if i, ok := title.FirstMatch(c.Title, targets); ok {
		s += w.titleScore(i, len(targets))
	}
	if c.EmailConfidence == model.ConfidenceHigh {
		s += w.HighEmail
	}
	if strings.TrimSpace(c.SocialProfileURL) != "" {
		s += w.Social
	}
	return s
}

// pool collects usable candidates, ranked best first.
func (e *Engine) pool(in Input, targets []string) []ranked {
	var observed []string
	for _, res := range in.Results {
		for _, c := range res.Candidates {
			if emailpattern.Valid(c.Email) {
				observed = append(observed, strings.TrimSpace(c.Email))
			}
		}
	}
	sort.Strings(observed)

	var pool []ranked
	for _, res := range in.Results {
		for _, c := range res.Candidates {
			c = clean(c, res.Source)
			switch {
			case emailpattern.Valid(c.Email):
			case res.Tier == source.TierRegistry:
				if _, _, ok := emailpattern.SplitName(c.Name); !ok {
					continue
				}
				c = withDerivedEmail(c, in.Website, observed)
			default:
				continue
			}
			pool = append(pool, ranked{c: c, tier: res.Tier, score: e.Score(c, res.Tier, targets)})
		}
	}

	sort.SliceStable(pool, func(i, j int) bool { return better(pool[i], pool[j]) })
	return pool
}

// better is the total order used for ranking: score, then tier, then
// name. The remaining fields only separate exact ties.
func better(a, b ranked) bool {
	if a.score != b.score {
		return a.score > b.score
	}
	if a.tier != b.tier {
		return a.tier < b.tier
	}
	if a.c.Name != b.c.Name {
		return a.c.Name < b.c.Name
	}
	if a.c.Email != b.c.Email {
		return a.c.Email < b.c.Email
	}
	if a.c.Provenance != b.c.Provenance {
		return a.c.Provenance < b.c.Provenance
	}
	if a.c.Title != b.c.Title {
		return a.c.Title < b.c.Title
	}
	if a.c.Phone != b.c.Phone {
		return a.c.Phone < b.c.Phone
	}
	return a.c.SocialProfileURL < b.c.SocialProfileURL
}

// dedupe collapses candidates naming the same mailbox (or, without
// email, the same person). pool must be ranked; the best copy wins. It
// takes empty fields only from copies of its own tier, so a lower tier
// never leaks into a slot filled by a higher one. Merged copies are
// re-scored and the pool re-ranked.
func (e *Engine) dedupe(pool []ranked, targets []string) []ranked {
	index := map[string]int{}
	out := make([]ranked, 0, len(pool))
	changed := false
	for _, r := range pool {
		key := identity(r.c)
		if key == "" {
			out = append(out, r)
			continue
		}
		i, seen := index[key]
		if !seen {
			index[key] = len(out)
			out = append(out, r)
			continue
		}
		w := &out[i]
		if r.c.Provenance != w.c.Provenance {
			w.also = append(w.also, r.c.Provenance)
		}
		if r.tier != w.tier {
			continue
		}
		before := w.c
		fillEmpty(&w.c.Title, r.c.Title)
		fillEmpty(&w.c.Phone, r.c.Phone)
		fillEmpty(&w.c.SocialProfileURL, r.c.SocialProfileURL)
		fillEmpty(&w.c.Name, r.c.Name)
		if w.c != before {
			w.score = e.Score(w.c, w.tier, targets)
			changed = true
		}
	}
	if changed {
		sort.SliceStable(out, func(i, j int) bool { return better(out[i], out[j]) })
	}
	return out
}

func identity(c model.CandidateContact) string {
	if c.Email != "" {
		return "email:" + strings.ToLower(c.Email)
	}
	if n := textnorm.Fold(c.Name); n != "" {
		return "name:" + n
	}
	return ""
}

func clean(c model.CandidateContact, src string) model.CandidateContact {
	c.Name = textnorm.CollapseSpace(c.Name)
	c.Title = textnorm.CollapseSpace(c.Title)
	c.Email = strings.TrimSpace(c.Email)
	c.Phone = strings.TrimSpace(c.Phone)
	c.SocialProfileURL = strings.TrimSpace(c.SocialProfileURL)
	c.EmailConfidence = c.EmailConfidence.Cap(model.ConfidenceHigh)
	if c.Provenance == "" {
		c.Provenance = src
	}
	if c.Email == "" {
		c.EmailConfidence = model.ConfidenceNone
	}
	return c
}

func withDerivedEmail(c model.CandidateContact, website string, observed []string) model.CandidateContact {
	d := emailpattern.Derive(c.Name, website, observed)
	c.Email = d.Email
	c.EmailConfidence = d.Confidence.Cap(model.ConfidenceMedium)
	return c
}

func representativeSlot(f model.FirmFacts, website string) model.ContactSlot {
	t := strings.TrimSpace(f.LegalRepresentativeTitle)
	if t == "" {
		t = defaultRepresentativeTitle
	}
	c := withDerivedEmail(model.CandidateContact{
		Name:       textnorm.CollapseSpace(f.LegalRepresentativeName),
		Title:      t,
		Provenance: source.ProvenanceRegistry,
	}, website, nil)
	return model.SlotFromCandidate(c)
}

func fillEmpty(dst *string, v string) {
	if *dst == "" {
		*dst = v
	}
}

func sortedKeys(m map[string]bool) []string {
	if len(m) == 0 {
		return nil
	}
	out := make([]string, 0, len(m))
	for k := range m {
		if k != "" {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	if len(out) == 0 {
		return nil
	}
	return out
}
