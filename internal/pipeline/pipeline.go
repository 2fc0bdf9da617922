// Package pipeline runs a lead generation batch: discovery, enrichment,
// merge, scoring, qualification and export.
package pipeline

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Xprriacst/google-maps-scraper/internal/blacklist"
	"github.com/Xprriacst/google-maps-scraper/internal/domain"
	"github.com/Xprriacst/google-maps-scraper/internal/export"
	"github.com/Xprriacst/google-maps-scraper/internal/merge"
	"github.com/Xprriacst/google-maps-scraper/internal/model"
	"github.com/Xprriacst/google-maps-scraper/internal/monitoring"
	"github.com/Xprriacst/google-maps-scraper/internal/qualify"
	"github.com/Xprriacst/google-maps-scraper/internal/scorer"
	"github.com/Xprriacst/google-maps-scraper/internal/size"
	"github.com/Xprriacst/google-maps-scraper/internal/source"
	"github.com/Xprriacst/google-maps-scraper/internal/store"
)

const (
	defaultWorkers       = 4
	defaultLookupTimeout = 30 * time.Second
)

// Skip reasons.
const (
	SkipBlacklisted = "blacklisted"
	SkipDuplicate   = "duplicate"
)

// Deps are the collaborators of a Pipeline. Only Discoverer and Sources
// are required.
type Deps struct {
	Discoverer Discoverer
	Sources    *source.Set
	// Firm sources are consulted in order; later ones only fill gaps.
	Firm []source.FirmSource
	// SizeEstimate is only asked when no firm source knew the headcount.
	SizeEstimate source.FirmSource
	Merger       *merge.Engine
	Store        store.Store
	Blacklist    *blacklist.List
	Sinks        []export.Sink
}

// Options tune concurrency.
type Options struct {
	// Workers bounds both the businesses processed at once and the
	// concurrent lookups per business.
	Workers       int
	LookupTimeout time.Duration
	// Progress is called after each business with the done and total
	// counts. It may be called from several goroutines.
	Progress func(done, total int)
}

// Request describes one run.
type Request struct {
	Query        string
	MaxResults   int
	MinScore     int
	ForceRefresh bool
	// NoExport skips the sinks.
	NoExport bool
}

// Pipeline orchestrates a batch run.
type Pipeline struct {
	deps Deps
	opts Options
	now  func() time.Time
}

// New creates a Pipeline.
func New(deps Deps, opts Options) *Pipeline {
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if opts.LookupTimeout <= 0 {
		opts.LookupTimeout = defaultLookupTimeout
	}
	if deps.Merger == nil {
		deps.Merger = merge.New(merge.DefaultWeights())
	}
	if deps.Sources == nil {
		deps.Sources = source.NewSet()
	}
	return &Pipeline{deps: deps, opts: opts, now: time.Now}
}

// outcome is what processing one business produced.
type outcome struct {
	rec      model.ScoredRecord
	metrics  []source.Metrics
	cacheHit bool
	done     bool
}

// Run discovers, enriches and scores businesses for req.Query, then
// exports the qualified ones. A discovery failure yields an empty report.
// The report is returned even when export fails or ctx is canceled.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Report, error) {
	start := p.now()
	log := zap.L().With(zap.String("query", req.Query))
	log.Info("pipeline: starting run", zap.Int("max_results", req.MaxResults))

	report := &Report{Query: req.Query, SourceMetrics: make(map[string]source.Metrics)}

	businesses := p.discover(ctx, req)
	report.Discovered = len(businesses)

	work := p.screen(businesses, report)

	outcomes := make([]outcome, len(work))
	var finished atomic.Int64

	g := new(errgroup.Group)
	g.SetLimit(p.opts.Workers)
	for i, b := range work {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			// g.Go waits for a free worker, so ctx may have ended since.
			if ctx.Err() != nil {
				return nil
			}
			outcomes[i] = p.process(ctx, b, req)
			if p.opts.Progress != nil {
				p.opts.Progress(int(finished.Add(1)), len(work))
			}
			return nil
		})
	}
	_ = g.Wait()

	for _, o := range outcomes {
		if !o.done {
			continue
		}
		report.Records = append(report.Records, o.rec)
		if o.cacheHit {
			report.CacheHits++
		}
		if o.rec.Contact.Filled() == 0 {
			report.ZeroContact++
		}
		for _, m := range o.metrics {
			agg := report.SourceMetrics[m.Source]
			agg.Add(m)
			report.SourceMetrics[m.Source] = agg
		}
	}

	report.Qualified = qualify.Filter(report.Records, req.MinScore)
	report.Stats = scorer.Summarize(report.Records)

	var runErr error
	if err := ctx.Err(); err != nil {
		runErr = eris.Wrap(err, "pipeline: run canceled")
	} else if !req.NoExport {
		locs, err := p.Export(ctx, report.Qualified)
		report.Exported = locs
		if err != nil {
			runErr = err
		}
	}
	report.Duration = p.now().Sub(start)

	log.Info("pipeline: run complete",
		zap.Int("discovered", report.Discovered),
		zap.Int("processed", len(report.Records)),
		zap.Int("skipped", report.Skipped),
		zap.Int("duplicates", report.Duplicates),
		zap.Int("cache_hits", report.CacheHits),
		zap.Int("qualified", len(report.Qualified)),
		zap.Float64("average_score", report.Stats.Average),
		zap.Duration("duration", report.Duration),
	)
	return report, runErr
}

func (p *Pipeline) discover(ctx context.Context, req Request) []model.RawBusiness {
	if p.deps.Discoverer == nil {
		zap.L().Warn("pipeline: no discovery provider configured")
		return nil
	}
	businesses, err := p.deps.Discoverer.Discover(ctx, req.Query, req.MaxResults)
	if err != nil {
		zap.L().Warn("pipeline: discovery failed",
			zap.String("provider", p.deps.Discoverer.Name()),
			zap.Error(err),
		)
		return nil
	}
	return truncate(businesses, req.MaxResults)
}

// screen drops duplicates and blacklisted businesses.
func (p *Pipeline) screen(businesses []model.RawBusiness, report *Report) []model.RawBusiness {
	seen := store.NewKeySet()
	out := make([]model.RawBusiness, 0, len(businesses))
	for _, b := range businesses {
		if !seen.Add(store.KeyFor(b)) {
			report.Duplicates++
			monitoring.ObserveSkip(SkipDuplicate)
			continue
		}
		if p.deps.Blacklist.Contains(b.Name) {
			report.Skipped++
			monitoring.ObserveSkip(SkipBlacklisted)
			zap.L().Debug("pipeline: blacklisted business skipped", zap.String("company", b.Name))
			continue
		}
		out = append(out, b)
	}
	return out
}

// process turns one business into a scored record, from the cache when
// possible.
func (p *Pipeline) process(ctx context.Context, b model.RawBusiness, req Request) outcome {
	log := zap.L().With(zap.String("company", b.Name))
	key := store.KeyFor(b)

	if p.deps.Store != nil && !req.ForceRefresh && !key.IsZero() {
		if rec := p.cached(ctx, key, b); rec != nil {
			monitoring.ObserveCache(true)
			monitoring.ObserveRecord(*rec)
			log.Debug("pipeline: cache hit", zap.Int("score", rec.ScoreTotal))
			return outcome{rec: *rec, cacheHit: true, done: true}
		}
		monitoring.ObserveCache(false)
	}

	rec, metrics := p.Enrich(ctx, b)
	for _, m := range metrics {
		monitoring.ObserveLookup(m)
	}
	monitoring.ObserveRecord(rec)

	if p.deps.Store != nil && !key.IsZero() {
		if err := p.deps.Store.PutLead(ctx, key, rec); err != nil {
			log.Warn("pipeline: cache write failed", zap.Error(err))
		}
	}
	log.Debug("pipeline: business scored",
		zap.Int("score", rec.ScoreTotal),
		zap.String("category", string(rec.Category)),
		zap.Int("contacts", rec.Contact.Filled()),
	)
	return outcome{rec: rec, metrics: metrics, done: true}
}

// cached returns the stored record for key refreshed with b, or nil.
func (p *Pipeline) cached(ctx context.Context, key store.Key, b model.RawBusiness) *model.ScoredRecord {
	rec, err := p.deps.Store.GetLead(ctx, key)
	if err != nil {
		zap.L().Warn("pipeline: cache read failed", zap.String("key", key.String()), zap.Error(err))
		return nil
	}
	if rec == nil {
		return nil
	}
	rec.Refresh(b, p.now().UTC())
	scorer.Rescore(rec)
	if err := p.deps.Store.PutLead(ctx, key, *rec); err != nil {
		zap.L().Warn("pipeline: cache refresh write failed", zap.String("key", key.String()), zap.Error(err))
	}
	return rec
}

// Enrich runs firm lookups and every available contact source for b,
// then merges and scores the result. It never fails: a source that errors
// simply contributes nothing.
func (p *Pipeline) Enrich(ctx context.Context, b model.RawBusiness) (model.ScoredRecord, []source.Metrics) {
	d, _ := domain.Company(b.Website)
	q := source.Query{
		CompanyName: b.Name,
		Domain:      d,
		Website:     b.Website,
		PostalCode:  b.PostalCode(),
		Category:    b.Category,
	}

	var metrics []source.Metrics
	var firm model.FirmFacts
	for _, fs := range p.deps.Firm {
		facts, m := p.lookupFirm(ctx, fs, q)
		firm.Fill(facts)
		metrics = append(metrics, m)
		if q.LegalID == "" {
			q.LegalID = firm.LegalID
		}
	}
	if !firm.HeadcountKnown() && p.deps.SizeEstimate != nil {
		facts, m := p.lookupFirm(ctx, p.deps.SizeEstimate, q)
		firm.Fill(facts)
		metrics = append(metrics, m)
	}

	bracket := size.FromHeadcount(firm.Headcount)
	q.Bracket = bracket
	q.TargetTitles = size.TargetTitles(bracket)

	results := p.lookupAll(ctx, q)
	for _, r := range results {
		metrics = append(metrics, r.Metrics)
	}

	rec := model.ScoredRecord{
		Business:    b,
		Firm:        firm,
		SizeBracket: bracket.Label(),
		Contact: p.deps.Merger.Merge(merge.Input{
			Results: results,
			Firm:    firm,
			Bracket: bracket,
			Website: b.Website,
		}),
		EnrichedAt: p.now().UTC(),
	}
	scorer.Apply(&rec)
	return rec, metrics
}

func (p *Pipeline) lookupFirm(ctx context.Context, fs source.FirmSource, q source.Query) (model.FirmFacts, source.Metrics) {
	if !fs.Available() {
		return model.FirmFacts{}, source.Metrics{Source: fs.Name(), Skipped: 1}
	}
	lctx, cancel := p.lookupContext(ctx)
	defer cancel()
	return fs.LookupFirm(lctx, q)
}

// lookupAll queries every available source concurrently and waits for
// all of them. Results keep source order.
func (p *Pipeline) lookupAll(ctx context.Context, q source.Query) []source.Result {
	sources := p.deps.Sources.Available()
	results := make([]source.Result, len(sources))

	g := new(errgroup.Group)
	g.SetLimit(p.opts.Workers)
	for i, src := range sources {
		g.Go(func() error {
			lctx, cancel := p.lookupContext(ctx)
			defer cancel()
			results[i] = src.Lookup(lctx, q)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// lookupContext bounds one source call. Calls already issued finish under
// their own deadline even if the run is canceled.
func (p *Pipeline) lookupContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), p.opts.LookupTimeout)
}

// Export writes records to every sink and returns their locations. All
// sinks are attempted; the first error is returned.
func (p *Pipeline) Export(ctx context.Context, records []model.ScoredRecord) ([]string, error) {
	var locs []string
	var firstErr error
	for _, s := range p.deps.Sinks {
		loc, err := s.Write(ctx, records)
		if err != nil {
			zap.L().Error("pipeline: export failed", zap.String("sink", s.Name()), zap.Error(err))
			if firstErr == nil {
				firstErr = eris.Wrapf(err, "pipeline: export to %s", s.Name())
			}
			continue
		}
		zap.L().Info("pipeline: exported",
			zap.String("sink", s.Name()),
			zap.String("location", loc),
			zap.Int("records", len(records)),
		)
		locs = append(locs, loc)
	}
	return locs, firstErr
}
