package main

import (
	"context"

	"go.uber.org/zap"

	"github.com/Xprriacst/google-maps-scraper/internal/model"
	"github.com/Xprriacst/google-maps-scraper/internal/monitoring"
	"github.com/Xprriacst/google-maps-scraper/internal/pipeline"
	"github.com/Xprriacst/google-maps-scraper/internal/store"
)

// runner executes one lead generation run.
type runner interface {
	Run(ctx context.Context, req pipeline.Request) (*pipeline.Report, error)
}

// executeRun drives run through running to complete or failed, recording
// the outcome in st. The final update survives cancellation of ctx.
func executeRun(ctx context.Context, st store.Store, p runner, run *model.Run, req pipeline.Request) (*pipeline.Report, error) {
	log := zap.L().With(zap.String("run_id", run.ID), zap.String("query", run.Query))

	run.Status = model.RunStatusRunning
	if err := st.UpdateRun(ctx, run); err != nil {
		log.Warn("run: mark running failed", zap.Error(err))
	}

	monitoring.RunsInFlight.Inc()
	report, err := p.Run(ctx, req)
	monitoring.RunsInFlight.Dec()

	if report != nil {
		run.Stats = report.RunStats()
	}
	if err != nil {
		run.Status = model.RunStatusFailed
		run.Error = err.Error()
		log.Error("run failed", zap.Error(err))
	} else {
		run.Status = model.RunStatusComplete
		log.Info("run complete",
			zap.Int("discovered", report.Discovered),
			zap.Int("processed", len(report.Records)),
			zap.Int("qualified", len(report.Qualified)),
			zap.Duration("duration", report.Duration),
		)
	}
	monitoring.ObserveRun(run.Status)

	if uerr := st.UpdateRun(context.WithoutCancel(ctx), run); uerr != nil {
		log.Warn("run: record outcome failed", zap.Error(uerr))
	}
	return report, err
}
