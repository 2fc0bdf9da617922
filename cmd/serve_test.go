package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Xprriacst/google-maps-scraper/internal/config"
	"github.com/Xprriacst/google-maps-scraper/internal/model"
	"github.com/Xprriacst/google-maps-scraper/internal/pipeline"
	"github.com/Xprriacst/google-maps-scraper/internal/store"
)

// fakeRunner records requests and returns a canned report.
type fakeRunner struct {
	mu   sync.Mutex
	reqs []pipeline.Request
	err  error
}

func (f *fakeRunner) Run(_ context.Context, req pipeline.Request) (*pipeline.Report, error) {
	f.mu.Lock()
	f.reqs = append(f.reqs, req)
	f.mu.Unlock()

	rep := &pipeline.Report{
		Query:      req.Query,
		Discovered: 3,
		Records:    make([]model.ScoredRecord, 3),
		Qualified:  make([]model.ScoredRecord, 1),
		Duplicates: 1,
	}
	return rep, f.err
}

func (f *fakeRunner) requests() []pipeline.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]pipeline.Request(nil), f.reqs...)
}

func openTestStore(t *testing.T) store.Store {
	t.Helper()
	st, err := store.Open(context.Background(), store.Config{
		Driver:      "sqlite",
		DatabaseURL: filepath.Join(t.TempDir(), "leadgen.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func testConfig() *config.Config {
	return &config.Config{
		Pipeline: config.PipelineConfig{MinScore: 50, MaxResults: 20, Workers: 2, LookupTimeoutSecs: 5},
	}
}

func newTestAPI(t *testing.T, r runner) (*api, http.Handler, store.Store) {
	t.Helper()
	st := openTestStore(t)
	a := newAPI(context.Background(), st, r, testConfig())
	return a, buildRouter(a, nil), st
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v))
	return v
}

// --- Health and metrics ---

func TestRouter_Health(t *testing.T) {
	t.Parallel()
	_, h, _ := newTestAPI(t, &fakeRunner{})

	rr := do(t, h, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "application/json")
	assert.Equal(t, "ok", decode[map[string]string](t, rr)["status"])
}

func TestRouter_Metrics(t *testing.T) {
	t.Parallel()
	_, h, _ := newTestAPI(t, &fakeRunner{})

	do(t, h, http.MethodGet, "/health", nil)
	rr := do(t, h, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "leadgen_http_requests_total")
}

func TestRouter_CORS(t *testing.T) {
	t.Parallel()
	_, h, _ := newTestAPI(t, &fakeRunner{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
}

// --- Start and status ---

func TestRouter_StartRunsInBackground(t *testing.T) {
	t.Parallel()
	fr := &fakeRunner{}
	a, h, _ := newTestAPI(t, fr)

	rr := do(t, h, http.MethodPost, "/api/start", map[string]any{"query": "plombier Lyon", "min_score": 60})
	require.Equal(t, http.StatusAccepted, rr.Code)
	resp := decode[map[string]string](t, rr)
	assert.Equal(t, "queued", resp["status"])
	require.NotEmpty(t, resp["run_id"])

	a.Wait()

	reqs := fr.requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "plombier Lyon", reqs[0].Query)
	assert.Equal(t, 60, reqs[0].MinScore)
	assert.Equal(t, 20, reqs[0].MaxResults)

	rr = do(t, h, http.MethodGet, "/api/status/"+resp["run_id"], nil)
	require.Equal(t, http.StatusOK, rr.Code)
	run := decode[model.Run](t, rr)
	assert.Equal(t, model.RunStatusComplete, run.Status)
	require.NotNil(t, run.Stats)
	assert.Equal(t, 3, run.Stats.Discovered)
	assert.Equal(t, 3, run.Stats.Processed)
	assert.Equal(t, 1, run.Stats.Qualified)
	assert.Equal(t, 1, run.Stats.Skipped)
}

func TestRouter_StartDefaults(t *testing.T) {
	t.Parallel()
	fr := &fakeRunner{}
	a, h, _ := newTestAPI(t, fr)

	rr := do(t, h, http.MethodPost, "/api/start", map[string]any{"query": "fleuriste Nantes", "max_results": 5, "min_score": 0})
	require.Equal(t, http.StatusAccepted, rr.Code)
	a.Wait()

	reqs := fr.requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, 5, reqs[0].MaxResults)
	assert.Equal(t, 0, reqs[0].MinScore)

	rr = do(t, h, http.MethodPost, "/api/start", map[string]any{"query": "fleuriste Nantes"})
	require.Equal(t, http.StatusAccepted, rr.Code)
	a.Wait()
	assert.Equal(t, 50, fr.requests()[1].MinScore)
}

func TestRouter_StartFailedRun(t *testing.T) {
	t.Parallel()
	fr := &fakeRunner{err: eris.New("pipeline: export to csv: disk full")}
	a, h, st := newTestAPI(t, fr)

	rr := do(t, h, http.MethodPost, "/api/start", map[string]any{"query": "garage Lille"})
	require.Equal(t, http.StatusAccepted, rr.Code)
	a.Wait()

	run, err := st.GetRun(context.Background(), decode[map[string]string](t, rr)["run_id"])
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusFailed, run.Status)
	assert.Contains(t, run.Error, "disk full")
	require.NotNil(t, run.Stats)
	assert.Equal(t, 3, run.Stats.Processed)
}

func TestRouter_StartValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body any
		want string
	}{
		{"malformed", "{", "invalid request body"},
		{"missing query", map[string]any{"max_results": 10}, "invalid Query: failed required"},
		{"min score too high", map[string]any{"query": "x", "min_score": 101}, "invalid MinScore: failed lte"},
		{"negative max results", map[string]any{"query": "x", "max_results": -1}, "invalid MaxResults: failed gte"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			fr := &fakeRunner{}
			_, h, _ := newTestAPI(t, fr)

			rr := do(t, h, http.MethodPost, "/api/start", tt.body)
			assert.Equal(t, http.StatusBadRequest, rr.Code)
			assert.Equal(t, tt.want, decode[map[string]string](t, rr)["error"])
			assert.Empty(t, fr.requests())
		})
	}
}

func TestRouter_StatusNotFound(t *testing.T) {
	t.Parallel()
	_, h, _ := newTestAPI(t, &fakeRunner{})

	rr := do(t, h, http.MethodGet, "/api/status/does-not-exist", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "run not found", decode[map[string]string](t, rr)["error"])
}

// --- Listing ---

func TestRouter_Runs(t *testing.T) {
	t.Parallel()
	_, h, st := newTestAPI(t, &fakeRunner{})

	rr := do(t, h, http.MethodGet, "/api/runs", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "[]\n", rr.Body.String())

	_, err := st.CreateRun(context.Background(), "boulangerie Paris")
	require.NoError(t, err)

	rr = do(t, h, http.MethodGet, "/api/runs?status=queued&limit=10", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	runs := decode[[]model.Run](t, rr)
	require.Len(t, runs, 1)
	assert.Equal(t, "boulangerie Paris", runs[0].Query)

	rr = do(t, h, http.MethodGet, "/api/runs?status=failed", nil)
	assert.Empty(t, decode[[]model.Run](t, rr))

	rr = do(t, h, http.MethodGet, "/api/runs?limit=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestRouter_Leads(t *testing.T) {
	t.Parallel()
	_, h, st := newTestAPI(t, &fakeRunner{})
	ctx := context.Background()

	for i, score := range []int{85, 40} {
		b := model.RawBusiness{Name: fmt.Sprintf("Entreprise %d", i), SourceURL: fmt.Sprintf("https://maps.google.com/?cid=%d", i)}
		cat := model.CategoryPremium
		if score < 50 {
			cat = model.CategoryWeak
		}
		rec := model.ScoredRecord{Business: b, ScoreTotal: score, Category: cat, EnrichedAt: time.Now()}
		require.NoError(t, st.PutLead(ctx, store.KeyFor(b), rec))
	}

	rr := do(t, h, http.MethodGet, "/api/leads", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode[[]model.ScoredRecord](t, rr), 2)

	rr = do(t, h, http.MethodGet, "/api/leads?min_score=50", nil)
	leads := decode[[]model.ScoredRecord](t, rr)
	require.Len(t, leads, 1)
	assert.Equal(t, 85, leads[0].ScoreTotal)

	rr = do(t, h, http.MethodGet, "/api/leads?category=Weak", nil)
	leads = decode[[]model.ScoredRecord](t, rr)
	require.Len(t, leads, 1)
	assert.Equal(t, 40, leads[0].ScoreTotal)

	rr = do(t, h, http.MethodGet, "/api/leads?min_score=-3", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

// --- Server lifecycle ---

func TestResolvePort(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 9090, resolvePort(9090, 8080))
	assert.Equal(t, 8080, resolvePort(0, 8080))
}

func TestStartServer_GracefulShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	_, h, _ := newTestAPI(t, &fakeRunner{})

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())

	errCh := make(chan error, 1)
	go func() {
		errCh <- startServer(ctx, h, port)
	}()

	var ready bool
	for range 50 {
		resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/health", port))
		if err == nil {
			_ = resp.Body.Close()
			ready = resp.StatusCode == http.StatusOK
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	require.True(t, ready, "server did not become ready in time")

	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestStartServer_PortInUse(t *testing.T) {
	l, err := net.Listen("tcp", ":0")
	require.NoError(t, err)
	defer l.Close() //nolint:errcheck

	err = startServer(context.Background(), http.NewServeMux(), l.Addr().(*net.TCPAddr).Port)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server listen")
}
