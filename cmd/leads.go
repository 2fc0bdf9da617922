package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Xprriacst/google-maps-scraper/internal/model"
	"github.com/Xprriacst/google-maps-scraper/internal/qualify"
	"github.com/Xprriacst/google-maps-scraper/internal/scorer"
	"github.com/Xprriacst/google-maps-scraper/internal/store"
)

var leadsCmd = &cobra.Command{
	Use:   "leads",
	Short: "Inspect and export cached leads",
}

// -- leads list --

var leadsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cached leads, best first",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		st, err := initStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		filter, err := leadFilterFromFlags(cmd)
		if err != nil {
			return err
		}
		leads, err := st.ListLeads(ctx, filter)
		if err != nil {
			return eris.Wrap(err, "leads list")
		}
		if len(leads) == 0 {
			fmt.Fprintln(os.Stderr, "No leads found.")
			return nil
		}
		formatLeadsList(os.Stdout, leads)
		return nil
	},
}

// -- leads stats --

var leadsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize cached lead scores",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		st, err := initStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		leads, err := st.ListLeads(ctx, store.LeadFilter{})
		if err != nil {
			return eris.Wrap(err, "leads stats")
		}
		stats := scorer.Summarize(leads)

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(stats)
		}
		formatLeadStats(os.Stdout, stats)
		return nil
	},
}

// -- leads export --

var leadsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export qualified cached leads without running discovery",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		format, _ := cmd.Flags().GetString("format")
		if format == "" {
			format = cfg.Export.Format
		}
		sinks, err := buildSinks(ctx, cfg, format)
		if err != nil {
			return err
		}

		st, err := initStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		filter, err := leadFilterFromFlags(cmd)
		if err != nil {
			return err
		}
		leads, err := st.ListLeads(ctx, filter)
		if err != nil {
			return eris.Wrap(err, "leads export")
		}
		qualified := qualify.Filter(leads, filter.MinScore)

		for _, s := range sinks {
			loc, err := s.Write(ctx, qualified)
			if err != nil {
				return eris.Wrapf(err, "leads export to %s", s.Name())
			}
			zap.L().Info("leads exported", zap.String("sink", s.Name()), zap.Int("leads", len(qualified)))
			fmt.Fprintf(os.Stdout, "Exported %d leads to %s\n", len(qualified), loc)
		}
		return nil
	},
}

// -- leads purge --

var leadsPurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete expired leads from the cache",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		st, err := initStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		n, err := st.DeleteExpiredLeads(ctx)
		if err != nil {
			return eris.Wrap(err, "leads purge")
		}
		fmt.Fprintf(os.Stdout, "Deleted %d expired leads\n", n)
		return nil
	},
}

func init() {
	leadsListCmd.Flags().Int("min-score", 0, "minimum score")
	leadsListCmd.Flags().String("category", "", "filter by category (Premium, Qualified, Verify, Weak)")
	leadsListCmd.Flags().Int("limit", 50, "max number of leads to display")

	leadsExportCmd.Flags().Int("min-score", 50, "minimum score (default from config)")
	leadsExportCmd.Flags().String("category", "", "filter by category (Premium, Qualified, Verify, Weak)")
	leadsExportCmd.Flags().Int("limit", 0, "max number of leads (0 for all)")
	leadsExportCmd.Flags().String("format", "", "export format: csv, xlsx or sheets (default from config)")

	leadsStatsCmd.Flags().Bool("json", false, "print the stats as JSON")

	leadsCmd.AddCommand(leadsListCmd)
	leadsCmd.AddCommand(leadsStatsCmd)
	leadsCmd.AddCommand(leadsExportCmd)
	leadsCmd.AddCommand(leadsPurgeCmd)
	rootCmd.AddCommand(leadsCmd)
}

func leadFilterFromFlags(cmd *cobra.Command) (store.LeadFilter, error) {
	minScore, _ := cmd.Flags().GetInt("min-score")
	category, _ := cmd.Flags().GetString("category")
	limit, _ := cmd.Flags().GetInt("limit")

	if cmd.Name() == "export" && !cmd.Flags().Changed("min-score") {
		minScore = cfg.Pipeline.MinScore
	}
	if minScore < 0 || minScore > 100 {
		return store.LeadFilter{}, eris.Errorf("min-score must be between 0 and 100, got %d", minScore)
	}
	if category != "" && !validCategory(model.Category(category)) {
		return store.LeadFilter{}, eris.Errorf("unknown category %q", category)
	}
	return store.LeadFilter{MinScore: minScore, Category: model.Category(category), Limit: limit}, nil
}

func validCategory(c model.Category) bool {
	for _, k := range model.Categories {
		if k == c {
			return true
		}
	}
	return false
}

// formatLeadsList writes a tabular list of leads to out.
func formatLeadsList(out io.Writer, leads []model.ScoredRecord) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "SCORE\tCATEGORY\tCOMPANY\tCONTACT\tEMAIL\tSIZE")
	for _, l := range leads {
		p := l.Contact.Primary
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
			l.ScoreTotal, l.Category, truncate(l.Business.Name, 40), p.Name, p.Email, l.SizeBracket)
	}
	_ = w.Flush()
}

// formatLeadStats writes score statistics to out.
func formatLeadStats(out io.Writer, s scorer.Stats) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Leads:\t%d\n", s.Total)
	_, _ = fmt.Fprintf(w, "Average score:\t%.1f\n", s.Average)
	for _, c := range model.Categories {
		_, _ = fmt.Fprintf(w, "  %s:\t%d\n", c, s.ByCategory[c])
	}
	_, _ = fmt.Fprintf(w, "With email:\t%d\n", s.WithEmail)
	_, _ = fmt.Fprintf(w, "With contact:\t%d\n", s.WithContact)
	_, _ = fmt.Fprintf(w, "Without contact:\t%d\n", s.ZeroContact)
	_, _ = fmt.Fprintf(w, "Premium:\t%.1f%%\n", s.PremiumPct)
	_, _ = fmt.Fprintf(w, "Qualified:\t%.1f%%\n", s.QualifiedPct)
	_ = w.Flush()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
