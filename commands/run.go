package commands

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"potato-prices/config"
	"potato-prices/metrics"
	"potato-prices/scraper/sources"
	"potato-prices/services"
	"potato-prices/storage"
	"potato-prices/utils"
)

// ErrAllSourcesFailed is returned by a run in which no source succeeded.
var ErrAllSourcesFailed = errors.New("every source failed")

// metricsNamespace prefixes every exported metric.
const metricsNamespace = "potato_prices"

var (
	runSources []string
	runOut     string
	runQuiet   bool
)

var runCmd = &cobra.Command{
	Use:   "run [--sources a,b] [--out <dir>]",
	Short: "Scrape every source once and publish the per-source and combined tables.",
	RunE:  runRun,
}

func init() {
	runCmd.Flags().StringSliceVar(&runSources, "sources", nil,
		"Sources to run (default from SOURCES, known: "+strings.Join(config.AllSources, ",")+").")
	runCmd.Flags().StringVar(&runOut, "out", "", "Output directory for the JSON and CSV files. Overrides OUTPUT_DIR.")
	runCmd.Flags().BoolVar(&runQuiet, "quiet", false, "Skip the console report.")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if len(runSources) > 0 {
		cfg.Sources = runSources
	}
	if runOut != "" {
		cfg.OutputDir = runOut
		cfg.CSVOutputPath = filepath.Join(runOut, "combined_prices.csv")
	}

	logger.Info("=== Potato price run starting ===")
	logger.Info("Config: sources: %v | concurrency: %d | rate: %dms | source timeout: %v",
		cfg.Sources, cfg.MaxConcurrency, cfg.RateLimitMs, cfg.SourceTimeout)
	if cfg.FixtureDir != "" {
		logger.Info("Replaying fixtures from %s", cfg.FixtureDir)
	}

	collector := metrics.NewCollector(metricsNamespace)
	runner, err := newRunner(cfg, logger, collector)
	if err != nil {
		return err
	}

	sinks, err := openSinks(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer sinks.Close()

	report := runner.Run(ctx)

	if err := sinks.Write(ctx, report); err != nil {
		logger.Error("Some outputs could not be written: %v", err)
	} else {
		logger.Info("Run %s written to %d outputs", report.RunID, sinks.Len())
	}

	if cfg.MetricsTextfile != "" {
		if err := collector.WriteTextfile(cfg.MetricsTextfile); err != nil {
			logger.Error("%v", err)
		}
	}

	if !runQuiet {
		services.NewReportService(logger).Print(cmd.OutOrStdout(), report)
		fmt.Fprintf(cmd.OutOrStdout(), "  Done. JSON → %s | CSV → %s\n\n", cfg.OutputDir, cfg.CSVOutputPath)
	}

	if len(report.Results) > 0 && report.Succeeded() == 0 {
		return fmt.Errorf("run %s: %w: %s", report.RunID, ErrAllSourcesFailed, strings.Join(report.Failures, ", "))
	}
	return nil
}

// newRunner wires the catalog, the resolver, the aggregator and the
// configured sources into a Runner.
func newRunner(cfg *config.Config, logger *utils.Logger, collector *metrics.Collector) (*services.Runner, error) {
	resolver, err := newResolver(cfg)
	if err != nil {
		return nil, err
	}
	aggregator := services.NewAggregator(resolver.Catalog(), cfg.PriceCeiling, logger)

	srcs, err := sources.Build(cfg, logger, resolver.Catalog(), cfg.Sources)
	if err != nil {
		return nil, err
	}
	return services.NewRunner(srcs, resolver, aggregator, collector, logger, cfg.SourceTimeout), nil
}

func newResolver(cfg *config.Config) (*services.Resolver, error) {
	catalog, err := config.LoadCatalog(cfg)
	if err != nil {
		return nil, err
	}
	districts, err := config.LoadDistricts(catalog.DistrictsFile)
	if err != nil {
		return nil, err
	}
	return services.NewResolver(catalog.CanonicalStates(), catalog.Aliases, districts, cfg.SimilarityThreshold), nil
}

// openSinks opens the file outputs, which are required, and the optional
// database and broker outputs, whose failures are only logged.
func openSinks(ctx context.Context, cfg *config.Config, logger *utils.Logger) (*storage.MultiWriter, error) {
	sinks := storage.NewMultiWriter()

	jsonWriter, err := storage.NewJSONWriter(cfg.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("json output: %w", err)
	}
	sinks.Add("json", jsonWriter)

	csvWriter, err := storage.NewCSVWriter(cfg.CSVOutputPath)
	if err != nil {
		sinks.Close()
		return nil, fmt.Errorf("csv output: %w", err)
	}
	sinks.Add("csv", csvWriter)

	if cfg.PostgresEnabled {
		connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		pgWriter, err := storage.NewPostgresWriter(connectCtx, cfg.DSN(), cfg.RetentionDays)
		cancel()
		if err != nil {
			logger.Error("Failed to connect to PostgreSQL: %v", err)
			logger.Error("Make sure Docker is running: docker compose up -d")
		} else {
			sinks.Add("postgres", pgWriter)
		}
	}

	if len(cfg.KafkaBrokers) > 0 {
		sinks.Add("kafka", storage.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic))
		logger.Info("Publishing runs to kafka topic %s", cfg.KafkaTopic)
	}
	return sinks, nil
}
