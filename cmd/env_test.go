package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Xprriacst/google-maps-scraper/internal/config"
	"github.com/Xprriacst/google-maps-scraper/internal/export"
	"github.com/Xprriacst/google-maps-scraper/internal/source"
)

func availableNames(set *source.Set) []string {
	var out []string
	for _, s := range set.Available() {
		out = append(out, s.Name())
	}
	return out
}

// --- Discovery ---

func TestBuildDiscoverer(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     config.Config
		want    string
		wantErr string
	}{
		{
			name: "apify",
			cfg:  config.Config{Discovery: config.DiscoveryConfig{Provider: "apify"}, Apify: config.ApifyConfig{Token: "tok"}},
			want: "apify",
		},
		{
			name: "default provider is apify",
			cfg:  config.Config{Apify: config.ApifyConfig{Token: "tok"}},
			want: "apify",
		},
		{
			name: "google",
			cfg:  config.Config{Discovery: config.DiscoveryConfig{Provider: "google"}, Google: config.GoogleConfig{Key: "k"}},
			want: "google",
		},
		{
			name:    "apify without token",
			cfg:     config.Config{Discovery: config.DiscoveryConfig{Provider: "apify"}},
			wantErr: "apify.token is required",
		},
		{
			name:    "google without key",
			cfg:     config.Config{Discovery: config.DiscoveryConfig{Provider: "google"}},
			wantErr: "google.key is required",
		},
		{
			name:    "unknown",
			cfg:     config.Config{Discovery: config.DiscoveryConfig{Provider: "bing"}},
			wantErr: "unknown provider",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			d, err := buildDiscoverer(&tt.cfg)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, d.Name())
		})
	}
}

// --- Sources ---

func TestBuildSources_NothingConfigured(t *testing.T) {
	t.Parallel()

	s := buildSources(&config.Config{})
	assert.Len(t, s.set.All(), 5)
	assert.Empty(t, availableNames(s.set))
	require.Len(t, s.firm, 2)
	for _, f := range s.firm {
		assert.False(t, f.Available(), f.Name())
	}
	assert.False(t, s.sizeEstimate.Available())
}

func TestBuildSources_CapabilityFlags(t *testing.T) {
	t.Parallel()

	c := &config.Config{
		Apollo:      config.ApolloConfig{Key: "a", PerPage: 5},
		Dropcontact: config.DropcontactConfig{Key: "d", MaxWaitSecs: 60, PollIntervalSecs: 2},
		Sirene:      config.SireneConfig{Enabled: true},
		Scrape:      config.ScrapeConfig{Enabled: true, MaxPages: 3, TimeoutSecs: 10, RequestsPerSecond: 2},
		Anthropic:   config.AnthropicConfig{Key: "k", SizeEstimate: true},
	}
	s := buildSources(c)
	assert.Equal(t, []string{"apollo", "dropcontact", "registry", "llm", "website"}, availableNames(s.set))
	assert.True(t, s.sizeEstimate.Available())
	for _, f := range s.firm {
		assert.True(t, f.Available(), f.Name())
	}
}

func TestBuildSources_LLMNeedsScraping(t *testing.T) {
	t.Parallel()

	c := &config.Config{Anthropic: config.AnthropicConfig{Key: "k", SizeEstimate: false}}
	s := buildSources(c)
	assert.Empty(t, availableNames(s.set))
	assert.False(t, s.sizeEstimate.Available())
}

// --- Sinks ---

func TestBuildSinks(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	c := &config.Config{Export: config.ExportConfig{
		Dir:    dir,
		Prefix: "leads",
		Sheets: config.SheetsConfig{SpreadsheetID: "sheet", CredentialsFile: filepath.Join(dir, "missing.json")},
	}}

	tests := []struct {
		format  string
		want    string
		wantErr bool
	}{
		{format: "", want: "csv"},
		{format: "csv", want: "csv"},
		{format: "xlsx", want: "xlsx"},
		{format: "sheets", want: "csv"}, // credentials missing
		{format: "pdf", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			t.Parallel()
			sinks, err := buildSinks(context.Background(), c, tt.format)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Len(t, sinks, 1)
			assert.Equal(t, tt.want, sinks[0].Name())
			_, isFallback := sinks[0].(export.Fallback)
			assert.False(t, isFallback)
		})
	}
}

// --- Environment ---

func TestInitPipeline(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	c := &config.Config{
		Store:     config.StoreConfig{Driver: "sqlite", DatabaseURL: filepath.Join(dir, "leadgen.db"), CacheTTLHours: 24},
		Pipeline:  config.PipelineConfig{Workers: 2, LookupTimeoutSecs: 5},
		Apify:     config.ApifyConfig{Token: "tok"},
		Export:    config.ExportConfig{Format: "csv", Dir: dir},
		Blacklist: config.BlacklistConfig{Path: filepath.Join(dir, "blacklist.json")},
	}

	env, err := initPipeline(context.Background(), c, envOptions{Workers: 1})
	require.NoError(t, err)
	defer env.Close()

	assert.NotNil(t, env.Pipeline)
	assert.NotNil(t, env.Store)
	assert.Zero(t, env.Blacklist.Len())
}

func TestInitPipeline_BadRanking(t *testing.T) {
	t.Parallel()

	c := &config.Config{
		Apify: config.ApifyConfig{Token: "tok"},
		Merge: config.MergeConfig{RankingPath: filepath.Join(t.TempDir(), "nope.yaml")},
	}
	_, err := initPipeline(context.Background(), c, envOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "merge: read ranking")
}
