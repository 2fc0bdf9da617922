package source

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Xprriacst/google-maps-scraper/internal/model"
	"github.com/Xprriacst/google-maps-scraper/internal/resilience"
)

// Option configures an adapter.
type Option func(*base)

// WithPolicy sets the retry policy used for each lookup.
func WithPolicy(p resilience.Policy) Option {
	return func(b *base) { b.policy = p }
}

// WithBreaker replaces the adapter's circuit breaker settings.
func WithBreaker(cfg resilience.BreakerConfig) Option {
	return func(b *base) { b.breaker = resilience.NewBreaker(b.name, cfg) }
}

// base carries what every adapter shares: identity, capability flag,
// retry policy and circuit breaker.
type base struct {
	name      string
	tier      Tier
	available bool
	policy    resilience.Policy
	breaker   *resilience.Breaker
}

func newBase(name string, tier Tier, available bool, opts []Option) base {
	b := base{
		name:      name,
		tier:      tier,
		available: available,
		policy:    resilience.DefaultPolicy(),
		breaker:   resilience.NewBreaker(name, resilience.DefaultBreakerConfig()),
	}
	for _, o := range opts {
		o(&b)
	}
	if b.policy.OnRetry == nil {
		b.policy.OnRetry = resilience.LogRetries(name, "lookup")
	}
	return b
}

func (b *base) Name() string    { return b.name }
func (b *base) Tier() Tier      { return b.tier }
func (b *base) Available() bool { return b.available }

func (b *base) skipped() Result {
	r := Empty(b.name, b.tier)
	r.Metrics.Skipped = 1
	return r
}

// lookup runs fn and turns its outcome into a Result. Errors are logged
// and recorded in the metrics, never returned.
func (b *base) lookup(ctx context.Context, q Query, fn func(context.Context) ([]model.CandidateContact, error)) Result {
	if !b.available {
		return b.skipped()
	}
	res := Empty(b.name, b.tier)
	cands, m, err := invoke(ctx, b, q, fn)
	res.Metrics = m
	if err != nil {
		return res
	}
	for i := range cands {
		cands[i].Provenance = b.name
	}
	if len(cands) == 0 {
		res.Metrics.Empty = 1
	} else {
		res.Metrics.Successes = 1
	}
	res.Candidates = cands
	return res
}

// invoke calls fn under the breaker and retry policy and times it.
func invoke[T any](ctx context.Context, b *base, q Query, fn func(context.Context) (T, error)) (T, Metrics, error) {
	m := Metrics{Source: b.name, Requests: 1}
	start := time.Now()
	v, err := resilience.Call(ctx, b.breaker, b.policy, fn)
	m.Duration = time.Since(start)
	if err != nil {
		m.Errors = 1
		m.LastError = err.Error()
		zap.L().Warn("source: lookup failed",
			zap.String("source", b.name),
			zap.String("company", q.CompanyName),
			zap.Error(err),
		)
	}
	return v, m, err
}

var (
	_ Source     = (*Apollo)(nil)
	_ Source     = (*Dropcontact)(nil)
	_ Source     = (*Registry)(nil)
	_ Source     = (*Website)(nil)
	_ Source     = (*LLM)(nil)
	_ FirmSource = (*ApolloOrg)(nil)
	_ FirmSource = (*Registry)(nil)
	_ FirmSource = (*SizeEstimate)(nil)
)
