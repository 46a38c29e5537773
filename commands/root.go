// Package commands is the potato-prices command line.
package commands

import (
	"context"

	"github.com/spf13/cobra"

	"potato-prices/config"
	"potato-prices/utils"
)

var (
	cfg      *config.Config
	logger   *utils.Logger
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "potato-prices",
	Short: "potato-prices scrapes potato mandi prices and publishes per-state summaries.",
	Long: "potato-prices scrapes potato prices from several Indian market sites, " +
		"summarises them per state and merges the sources into one combined table.\n" +
		"Without a subcommand it performs a single run.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, _ []string) {
		cfg = config.Load()
		if logLevel != "" {
			cfg.LogLevel = logLevel
		}
		logger = utils.NewLoggerWithLevel(utils.ParseLevel(cfg.LogLevel))
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error). Overrides LOG_LEVEL.")
	rootCmd.RunE = runRun
}

// ExecuteContext runs the command line. The caller decides the exit code.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}
