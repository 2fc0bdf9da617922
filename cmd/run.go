package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Xprriacst/google-maps-scraper/internal/model"
	"github.com/Xprriacst/google-maps-scraper/internal/pipeline"
)

var runCmd = &cobra.Command{
	Use:   "run <query>",
	Short: "Discover, enrich, score and export leads for a search query",
	Example: `  leadgen run "plombier Lyon"
  leadgen run "expert comptable Bordeaux" --max-results 100 --min-score 60 --format xlsx`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		maxResults, _ := cmd.Flags().GetInt("max-results")
		minScore, _ := cmd.Flags().GetInt("min-score")
		format, _ := cmd.Flags().GetString("format")
		force, _ := cmd.Flags().GetBool("force-refresh")
		workers, _ := cmd.Flags().GetInt("workers")
		noExport, _ := cmd.Flags().GetBool("no-export")
		quiet, _ := cmd.Flags().GetBool("quiet")
		asJSON, _ := cmd.Flags().GetBool("json")

		if !cmd.Flags().Changed("max-results") {
			maxResults = cfg.Pipeline.MaxResults
		}
		if !cmd.Flags().Changed("min-score") {
			minScore = cfg.Pipeline.MinScore
		}
		if minScore < 0 || minScore > 100 {
			return eris.Errorf("run: min-score must be between 0 and 100, got %d", minScore)
		}

		var progress func(done, total int)
		if !quiet && !asJSON {
			progress = newProgress(os.Stderr)
		}

		env, err := initPipeline(ctx, cfg, envOptions{Format: format, Workers: workers, Progress: progress})
		if err != nil {
			return err
		}
		defer env.Close()

		run, err := env.Store.CreateRun(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "run: create run")
		}
		zap.L().Info("run started", zap.String("run_id", run.ID), zap.String("query", run.Query))

		report, err := executeRun(ctx, env.Store, env.Pipeline, run, pipeline.Request{
			Query:        args[0],
			MaxResults:   maxResults,
			MinScore:     minScore,
			ForceRefresh: force || cfg.Pipeline.ForceRefresh,
			NoExport:     noExport,
		})
		if report != nil {
			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				if jerr := enc.Encode(report); jerr != nil {
					return jerr
				}
			} else {
				formatReport(os.Stdout, report)
			}
		}
		if err != nil {
			return eris.Wrap(err, "run")
		}
		return nil
	},
}

func init() {
	runCmd.Flags().Int("max-results", 50, "maximum businesses to discover (default from config)")
	runCmd.Flags().Int("min-score", 50, "minimum score for a lead to be exported (default from config)")
	runCmd.Flags().String("format", "", "export format: csv, xlsx or sheets (default from config)")
	runCmd.Flags().Bool("force-refresh", false, "ignore cached leads and enrich every business again")
	runCmd.Flags().Int("workers", 0, "businesses enriched concurrently (default from config)")
	runCmd.Flags().Bool("no-export", false, "score only, skip the export")
	runCmd.Flags().Bool("quiet", false, "hide the progress bar")
	runCmd.Flags().Bool("json", false, "print the full report as JSON")
	rootCmd.AddCommand(runCmd)
}

// newProgress returns a pipeline progress callback drawing a bar on w. The
// bar is created on the first call, once the business count is known.
func newProgress(w io.Writer) func(done, total int) {
	var (
		once sync.Once
		bar  *progressbar.ProgressBar
	)
	return func(_, total int) {
		once.Do(func() {
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetWriter(w),
				progressbar.OptionSetDescription("Enriching businesses"),
				progressbar.OptionShowCount(),
				progressbar.OptionSetWidth(40),
				progressbar.OptionShowElapsedTimeOnFinish(),
				progressbar.OptionOnCompletion(func() {
					_, _ = fmt.Fprintln(w)
				}),
			)
		})
		_ = bar.Add(1)
	}
}

// formatReport writes a human summary of a run to out.
func formatReport(out io.Writer, r *pipeline.Report) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Query:\t%s\n", r.Query)
	_, _ = fmt.Fprintf(w, "Discovered:\t%d\n", r.Discovered)
	_, _ = fmt.Fprintf(w, "Processed:\t%d (cache hits %d)\n", len(r.Records), r.CacheHits)
	_, _ = fmt.Fprintf(w, "Skipped:\t%d blacklisted, %d duplicates\n", r.Skipped, r.Duplicates)
	_, _ = fmt.Fprintf(w, "Without contact:\t%d\n", r.ZeroContact)
	_, _ = fmt.Fprintf(w, "Average score:\t%.1f\n", r.Stats.Average)
	for _, c := range model.Categories {
		_, _ = fmt.Fprintf(w, "  %s:\t%d\n", c, r.Stats.ByCategory[c])
	}
	_, _ = fmt.Fprintf(w, "Qualified:\t%d\n", len(r.Qualified))
	_, _ = fmt.Fprintf(w, "Duration:\t%s\n", r.Duration.Round(100*time.Millisecond))
	_ = w.Flush()

	if len(r.SourceMetrics) > 0 {
		_, _ = fmt.Fprintln(out)
		formatSourceMetrics(out, r)
	}
	for _, loc := range r.Exported {
		_, _ = fmt.Fprintf(out, "\nExported to %s\n", loc)
	}
}

func formatSourceMetrics(out io.Writer, r *pipeline.Report) {
	names := make([]string, 0, len(r.SourceMetrics))
	for n := range r.SourceMetrics {
		names = append(names, n)
	}
	sort.Strings(names)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "SOURCE\tREQUESTS\tSUCCESS\tEMPTY\tERRORS\tSKIPPED\tTIME")
	for _, n := range names {
		m := r.SourceMetrics[n]
		_, _ = fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t%d\t%s\n",
			n, m.Requests, m.Successes, m.Empty, m.Errors, m.Skipped, m.Duration.Round(time.Millisecond))
	}
	_ = w.Flush()
}
