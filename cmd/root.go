package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Xprriacst/google-maps-scraper/internal/config"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:          "leadgen",
	Short:        "Find and score decision makers of local businesses",
	Long:         "Discovers local businesses on Google Maps, finds their decision makers through Apollo, Dropcontact, the company registry and their own website, then scores and exports the qualified leads.",
	Version:      version,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("config")
		c, err := config.LoadFile(path)
		if err != nil {
			return eris.Wrap(err, "load config")
		}
		if err := applyLogFlags(cmd, &c.Log); err != nil {
			return err
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return eris.Wrap(err, "init logger")
		}
		zap.L().Debug("leadgen: config loaded",
			zap.String("version", version),
			zap.String("store", cfg.Store.Driver),
			zap.String("discovery", cfg.Discovery.Provider),
		)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

// applyLogFlags lets --log-level, --log-format and --verbose override the
// configured logger. --verbose wins over --log-level.
func applyLogFlags(cmd *cobra.Command, lc *config.LogConfig) error {
	flags := cmd.Flags()
	if flags.Changed("log-level") {
		lc.Level, _ = flags.GetString("log-level")
	}
	if flags.Changed("log-format") {
		format, _ := flags.GetString("log-format")
		if format != "json" && format != "console" {
			return eris.Errorf("invalid --log-format %q: want json or console", format)
		}
		lc.Format = format
	}
	if verbose, _ := flags.GetBool("verbose"); verbose {
		lc.Level = "debug"
	}
	return nil
}

func init() {
	addRootFlags(rootCmd)
}

func addRootFlags(cmd *cobra.Command) {
	pf := cmd.PersistentFlags()
	pf.String("config", "", "config file (default ./config.yaml)")
	pf.String("log-level", "", "log level: debug, info, warn or error (default from config)")
	pf.String("log-format", "", "log format: json or console (default from config)")
	pf.BoolP("verbose", "v", false, "shorthand for --log-level debug")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
