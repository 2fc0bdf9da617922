package main

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Xprriacst/google-maps-scraper/internal/model"
	"github.com/Xprriacst/google-maps-scraper/internal/monitoring"
	"github.com/Xprriacst/google-maps-scraper/internal/pipeline"
	"github.com/Xprriacst/google-maps-scraper/internal/scorer"
	"github.com/Xprriacst/google-maps-scraper/internal/source"
)

func sampleReport() *pipeline.Report {
	return &pipeline.Report{
		Query:      "plombier Lyon",
		Discovered: 12,
		Records:    make([]model.ScoredRecord, 10),
		Qualified:  make([]model.ScoredRecord, 4),
		Stats: scorer.Stats{
			Average:    58.5,
			ByCategory: map[model.Category]int{model.CategoryPremium: 2, model.CategoryQualified: 2, model.CategoryVerify: 3, model.CategoryWeak: 3},
		},
		SourceMetrics: map[string]source.Metrics{
			"website": {Source: "website", Requests: 10, Successes: 6, Empty: 4},
			"apollo":  {Source: "apollo", Requests: 10, Successes: 7, Errors: 1, Empty: 2},
		},
		Skipped:     1,
		Duplicates:  1,
		CacheHits:   3,
		ZeroContact: 2,
		Exported:    []string{"out/leads_20260504_093000.csv"},
		Duration:    4200 * time.Millisecond,
	}
}

// --- Report output ---

func TestFormatReport(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	formatReport(&buf, sampleReport())
	out := buf.String()

	assert.Contains(t, out, "plombier Lyon")
	assert.Contains(t, out, "10 (cache hits 3)")
	assert.Contains(t, out, "1 blacklisted, 1 duplicates")
	assert.Contains(t, out, "58.5")
	assert.Contains(t, out, "4.2s")
	assert.Contains(t, out, "Exported to out/leads_20260504_093000.csv")
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("apollo")), bytes.Index(buf.Bytes(), []byte("website")))
}

func TestFormatReport_NoSources(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	formatReport(&buf, &pipeline.Report{Query: "x"})
	assert.NotContains(t, buf.String(), "SOURCE")
	assert.NotContains(t, buf.String(), "Exported")
}

func TestNewProgress(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	progress := newProgress(&buf)
	for i := 1; i <= 3; i++ {
		progress(i, 3)
	}
	assert.Contains(t, buf.String(), "Enriching businesses")
	assert.Contains(t, buf.String(), "3/3")
}

// --- executeRun ---

func TestExecuteRun_Complete(t *testing.T) {
	t.Parallel()
	st := openTestStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, "plombier Lyon")
	require.NoError(t, err)

	before := counterValue(t, model.RunStatusComplete)
	report, err := executeRun(ctx, st, &fakeRunner{}, run, pipeline.Request{Query: "plombier Lyon"})
	require.NoError(t, err)
	require.NotNil(t, report)

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusComplete, got.Status)
	assert.Empty(t, got.Error)
	assert.Equal(t, 3, got.Stats.Processed)
	assert.GreaterOrEqual(t, counterValue(t, model.RunStatusComplete)-before, 1.0)
}

func TestExecuteRun_RecordsFailureAfterCancel(t *testing.T) {
	t.Parallel()
	st := openTestStore(t)

	run, err := st.CreateRun(context.Background(), "garage Lille")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = executeRun(ctx, st, &fakeRunner{err: context.Canceled}, run, pipeline.Request{Query: "garage Lille"})
	require.ErrorIs(t, err, context.Canceled)

	got, err := st.GetRun(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusFailed, got.Status)
	assert.Equal(t, "context canceled", got.Error)
}

func counterValue(t *testing.T, status model.RunStatus) float64 {
	t.Helper()
	return testutil.ToFloat64(monitoring.RunsTotal.WithLabelValues(string(status)))
}
