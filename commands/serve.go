package commands

import (
	"github.com/spf13/cobra"

	"potato-prices/metrics"
	"potato-prices/server"
)

var (
	serveAddr string
	serveDir  string
)

var serveCmd = &cobra.Command{
	Use:   "serve [--addr :8080] [--dir <output dir>]",
	Short: "Serve the latest published tables and the run metrics over HTTP.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		addr := cfg.HTTPAddr
		if serveAddr != "" {
			addr = serveAddr
		}
		dir := cfg.OutputDir
		if serveDir != "" {
			dir = serveDir
		}

		logger.Info("=== Potato price API starting ===")
		logger.Info("Serving files from %s", dir)
		h := server.NewHandler(dir, metrics.NewCollector(metricsNamespace), logger)
		return server.ListenAndServe(cmd.Context(), addr, server.NewRouter(h), logger)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address. Overrides HTTP_ADDR.")
	serveCmd.Flags().StringVar(&serveDir, "dir", "", "Directory a run writes to. Overrides OUTPUT_DIR.")
	rootCmd.AddCommand(serveCmd)
}
