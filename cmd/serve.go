package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Xprriacst/google-maps-scraper/internal/config"
	"github.com/Xprriacst/google-maps-scraper/internal/model"
	"github.com/Xprriacst/google-maps-scraper/internal/monitoring"
	"github.com/Xprriacst/google-maps-scraper/internal/pipeline"
	"github.com/Xprriacst/google-maps-scraper/internal/store"
)

const shutdownTimeout = 30 * time.Second

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API for launching and tracking runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx, cfg, envOptions{})
		if err != nil {
			return err
		}
		defer env.Close()

		if cfg.Monitoring.Enabled {
			checker := monitoring.NewChecker(
				monitoring.NewCollector(env.Store),
				monitoring.NewAlerter(cfg.Monitoring),
				cfg.Monitoring,
			)
			go checker.Run(ctx)
		}

		a := newAPI(ctx, env.Store, env.Pipeline, cfg)
		err = startServer(ctx, buildRouter(a, cfg.Server.AllowedOrigins), resolvePort(servePort, cfg.Server.Port))
		a.Wait()
		return err
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

// resolvePort prefers the flag over the configured port.
func resolvePort(flag, configured int) int {
	if flag != 0 {
		return flag
	}
	return configured
}

// startServer serves h on port until ctx is done, then shuts down
// gracefully.
func startServer(ctx context.Context, h http.Handler, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- eris.Wrap(err, "server listen")
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	zap.L().Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return eris.Wrap(err, "server shutdown")
	}
	return nil
}

// api serves the run endpoints. Runs started through it execute in the
// background under the server's context.
type api struct {
	ctx      context.Context
	st       store.Store
	runner   runner
	defaults config.PipelineConfig
	validate *validator.Validate

	wg sync.WaitGroup
}

func newAPI(ctx context.Context, st store.Store, r runner, c *config.Config) *api {
	return &api{
		ctx:      ctx,
		st:       st,
		runner:   r,
		defaults: c.Pipeline,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Wait blocks until every background run has recorded its outcome.
func (a *api) Wait() { a.wg.Wait() }

// buildRouter wires the API routes and middleware.
func buildRouter(a *api, allowedOrigins []string) *chi.Mux {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(monitoring.Instrument)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/start", a.handleStart)
		r.Get("/status/{id}", a.handleStatus)
		r.Get("/runs", a.handleRuns)
		r.Get("/leads", a.handleLeads)
	})
	return r
}

type startRequest struct {
	Query        string `json:"query" validate:"required"`
	MaxResults   int    `json:"max_results" validate:"gte=0,lte=500"`
	MinScore     *int   `json:"min_score" validate:"omitempty,gte=0,lte=100"`
	ForceRefresh bool   `json:"force_refresh"`
}

func (a *api) handleStart(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := a.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	preq := pipeline.Request{
		Query:        req.Query,
		MaxResults:   req.MaxResults,
		MinScore:     a.defaults.MinScore,
		ForceRefresh: req.ForceRefresh || a.defaults.ForceRefresh,
	}
	if preq.MaxResults == 0 {
		preq.MaxResults = a.defaults.MaxResults
	}
	if req.MinScore != nil {
		preq.MinScore = *req.MinScore
	}

	run, err := a.st.CreateRun(r.Context(), req.Query)
	if err != nil {
		zap.L().Error("api: create run", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not create run")
		return
	}

	id := run.ID
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		_, _ = executeRun(a.ctx, a.st, a.runner, run, preq)
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{
		"run_id": id,
		"status": string(model.RunStatusQueued),
	})
}

func (a *api) handleStatus(w http.ResponseWriter, r *http.Request) {
	run, err := a.st.GetRun(r.Context(), chi.URLParam(r, "id"))
	if eris.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	if err != nil {
		zap.L().Error("api: get run", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not load run")
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (a *api) handleRuns(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, ok := intParam(w, q.Get("limit"), 50)
	if !ok {
		return
	}
	runs, err := a.st.ListRuns(r.Context(), store.RunFilter{
		Status: model.RunStatus(q.Get("status")),
		Limit:  limit,
	})
	if err != nil {
		zap.L().Error("api: list runs", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not list runs")
		return
	}
	if runs == nil {
		runs = []model.Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (a *api) handleLeads(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, ok := intParam(w, q.Get("limit"), 100)
	if !ok {
		return
	}
	minScore, ok := intParam(w, q.Get("min_score"), 0)
	if !ok {
		return
	}
	leads, err := a.st.ListLeads(r.Context(), store.LeadFilter{
		MinScore: minScore,
		Category: model.Category(q.Get("category")),
		Limit:    limit,
	})
	if err != nil {
		zap.L().Error("api: list leads", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not list leads")
		return
	}
	if leads == nil {
		leads = []model.ScoredRecord{}
	}
	writeJSON(w, http.StatusOK, leads)
}

// intParam parses a non-negative query parameter, writing a 400 when it
// is malformed.
func intParam(w http.ResponseWriter, raw string, def int) (int, bool) {
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		writeError(w, http.StatusBadRequest, "invalid integer parameter "+strconv.Quote(raw))
		return 0, false
	}
	return n, true
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return fmt.Sprintf("invalid %s: failed %s", fe.Field(), fe.Tag())
	}
	return err.Error()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
