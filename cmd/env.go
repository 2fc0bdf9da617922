package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/Xprriacst/google-maps-scraper/internal/blacklist"
	"github.com/Xprriacst/google-maps-scraper/internal/config"
	"github.com/Xprriacst/google-maps-scraper/internal/estimate"
	"github.com/Xprriacst/google-maps-scraper/internal/export"
	"github.com/Xprriacst/google-maps-scraper/internal/merge"
	"github.com/Xprriacst/google-maps-scraper/internal/pipeline"
	"github.com/Xprriacst/google-maps-scraper/internal/scrape"
	"github.com/Xprriacst/google-maps-scraper/internal/source"
	"github.com/Xprriacst/google-maps-scraper/internal/store"
	anthropicpkg "github.com/Xprriacst/google-maps-scraper/pkg/anthropic"
	"github.com/Xprriacst/google-maps-scraper/pkg/apify"
	"github.com/Xprriacst/google-maps-scraper/pkg/apollo"
	"github.com/Xprriacst/google-maps-scraper/pkg/dropcontact"
	"github.com/Xprriacst/google-maps-scraper/pkg/google"
	"github.com/Xprriacst/google-maps-scraper/pkg/sirene"
)

// pipelineEnv holds the store, blacklist and pipeline needed by the run
// and serve commands.
type pipelineEnv struct {
	Store     store.Store
	Blacklist *blacklist.List
	Pipeline  *pipeline.Pipeline
}

// Close releases resources held by the environment.
func (pe *pipelineEnv) Close() {
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
}

// envOptions override configuration for one command.
type envOptions struct {
	Format   string
	Workers  int
	Progress func(done, total int)
}

// initPipeline opens the store, builds every client the configuration
// enables and assembles the Pipeline. Callers should defer env.Close().
func initPipeline(ctx context.Context, c *config.Config, opts envOptions) (*pipelineEnv, error) {
	disc, err := buildDiscoverer(c)
	if err != nil {
		return nil, err
	}

	weights := merge.DefaultWeights()
	if c.Merge.RankingPath != "" {
		weights, err = merge.LoadWeights(c.Merge.RankingPath)
		if err != nil {
			return nil, err
		}
	}

	bl, err := blacklist.Load(c.Blacklist.Path)
	if err != nil {
		return nil, err
	}

	format := c.Export.Format
	if opts.Format != "" {
		format = opts.Format
	}
	sinks, err := buildSinks(ctx, c, format)
	if err != nil {
		return nil, err
	}

	st, err := initStore(ctx, c)
	if err != nil {
		return nil, err
	}

	srcs := buildSources(c)
	workers := c.Pipeline.Workers
	if opts.Workers > 0 {
		workers = opts.Workers
	}

	p := pipeline.New(pipeline.Deps{
		Discoverer:   disc,
		Sources:      srcs.set,
		Firm:         srcs.firm,
		SizeEstimate: srcs.sizeEstimate,
		Merger:       merge.New(weights),
		Store:        st,
		Blacklist:    bl,
		Sinks:        sinks,
	}, pipeline.Options{
		Workers:       workers,
		LookupTimeout: c.Pipeline.LookupTimeout(),
		Progress:      opts.Progress,
	})

	return &pipelineEnv{Store: st, Blacklist: bl, Pipeline: p}, nil
}

// initStore opens the configured lead cache and run store.
func initStore(ctx context.Context, c *config.Config) (store.Store, error) {
	st, err := store.Open(ctx, store.Config{
		Driver:        c.Store.Driver,
		DatabaseURL:   c.Store.DatabaseURL,
		RedisAddr:     c.Redis.Addr,
		RedisPassword: c.Redis.Password,
		RedisDB:       c.Redis.DB,
		TTL:           c.Store.CacheTTL(),
	})
	if err != nil {
		return nil, eris.Wrap(err, "init store")
	}
	return st, nil
}

func buildDiscoverer(c *config.Config) (pipeline.Discoverer, error) {
	switch c.Discovery.Provider {
	case "google":
		if c.Google.Key == "" {
			return nil, eris.New("discovery: google.key is required for the google provider")
		}
		client := google.NewClient(c.Google.Key, google.WithBaseURL(c.Google.BaseURL))
		return pipeline.NewGoogleDiscoverer(client, c.Discovery.Language, c.Discovery.Region), nil
	case "", "apify":
		if c.Apify.Token == "" {
			return nil, eris.New("discovery: apify.token is required for the apify provider")
		}
		client := apify.NewClient(c.Apify.Token,
			apify.WithBaseURL(c.Apify.BaseURL),
			apify.WithActorID(c.Apify.ActorID),
		)
		return pipeline.NewApifyDiscoverer(client, c.Discovery.Language), nil
	default:
		return nil, eris.Errorf("discovery: unknown provider %q", c.Discovery.Provider)
	}
}

type sources struct {
	set          *source.Set
	firm         []source.FirmSource
	sizeEstimate source.FirmSource
}

// buildSources registers every adapter. Adapters whose credentials or
// capability flag are missing are built with a nil client and report
// themselves unavailable.
func buildSources(c *config.Config) sources {
	var apolloClient apollo.Client
	if c.Apollo.Key != "" {
		apolloClient = apollo.NewClient(c.Apollo.Key, apollo.WithBaseURL(c.Apollo.BaseURL))
	}

	var dropcontactClient dropcontact.Client
	if c.Dropcontact.Key != "" {
		dropcontactClient = dropcontact.NewClient(c.Dropcontact.Key, dropcontact.WithBaseURL(c.Dropcontact.BaseURL))
	}
	poll := []dropcontact.PollOption{
		dropcontact.WithPollInterval(time.Duration(c.Dropcontact.PollIntervalSecs) * time.Second),
		dropcontact.WithMaxWait(time.Duration(c.Dropcontact.MaxWaitSecs) * time.Second),
	}

	var sireneClient sirene.Client
	if c.Sirene.Enabled {
		sireneClient = sirene.NewClient(sirene.WithBaseURL(c.Sirene.BaseURL))
	}

	var visitor source.SiteVisitor
	if c.Scrape.Enabled {
		fetcher := scrape.NewFetcher(scrape.FetcherConfig{
			Timeout:           time.Duration(c.Scrape.TimeoutSecs) * time.Second,
			RequestsPerSecond: c.Scrape.RequestsPerSecond,
			UserAgent:         c.Scrape.UserAgent,
		}, nil)
		visitor = source.NewSharedVisitor(scrape.NewCrawler(fetcher, c.Scrape.MaxPages))
	}

	var llmClient anthropicpkg.Client
	if c.Anthropic.Key != "" {
		llmClient = anthropicpkg.NewClient(c.Anthropic.Key)
	}
	var estimator source.HeadcountEstimator
	if llmClient != nil && c.Anthropic.SizeEstimate {
		estimator = estimate.New(llmClient, c.Anthropic.HaikuModel)
	}

	registry := source.NewRegistry(sireneClient)
	set := source.NewSet(
		source.NewApollo(apolloClient, c.Apollo.PerPage),
		source.NewDropcontact(dropcontactClient, poll),
		registry,
		source.NewWebsite(visitor),
		source.NewLLM(llmClient, visitor, c.Anthropic.HaikuModel),
	)

	for _, s := range set.All() {
		if !s.Available() {
			zap.L().Debug("source disabled", zap.String("source", s.Name()))
		}
	}

	return sources{
		set:          set,
		firm:         []source.FirmSource{registry, source.NewApolloOrg(apolloClient)},
		sizeEstimate: source.NewSizeEstimate(estimator, visitor),
	}
}

// buildSinks returns the sinks for format. Sheets falls back to CSV when
// it cannot be set up or a write fails.
func buildSinks(ctx context.Context, c *config.Config, format string) ([]export.Sink, error) {
	csvSink := export.NewCSV(c.Export.Dir, c.Export.Prefix)
	switch format {
	case "", "csv":
		return []export.Sink{csvSink}, nil
	case "xlsx":
		return []export.Sink{export.NewXLSX(c.Export.Dir, c.Export.Prefix, "")}, nil
	case "sheets":
		sheetsSink, err := export.NewSheets(ctx, export.SheetsConfig{
			SpreadsheetID:   c.Export.Sheets.SpreadsheetID,
			SheetName:       c.Export.Sheets.SheetName,
			CredentialsFile: c.Export.Sheets.CredentialsFile,
		})
		if err != nil {
			zap.L().Warn("sheets export unavailable, using csv", zap.Error(err))
			return []export.Sink{csvSink}, nil
		}
		return []export.Sink{export.Fallback{Primary: sheetsSink, Secondary: csvSink}}, nil
	default:
		return nil, eris.Errorf("export: unknown format %q", format)
	}
}
