package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/rl1809/plant-floor/internal/adapter/metrics"
	"github.com/rl1809/plant-floor/internal/config"
	"github.com/rl1809/plant-floor/internal/core/domain"
	"github.com/rl1809/plant-floor/internal/core/service"
)

var (
	// Version information (set during build)
	version = "dev"
	commit  = "none"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "plantsim",
		Short:        "Concurrent assembly plant simulation",
		Version:      fmt.Sprintf("%s (%s)", version, commit),
		SilenceUsage: true,
	}
	root.AddCommand(newRunCommand(), newServeCommand())
	return root
}

func newRunCommand() *cobra.Command {
	loader := config.NewLoader()
	var configFile string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one simulation until every worker finishes its cycles",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loader.Load(configFile)
			if err != nil {
				return err
			}
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			return run(ctx, cfg)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&configFile, "config", os.Getenv("PLANT_CONFIG_FILE"), "Path to configuration file")
	flags.Int("part", 20, "Number of part workers")
	flags.Int("product", 16, "Number of product workers")
	flags.Int64("seed", 0, "Random seed (0 picks one from the clock)")
	flags.String("log-level", "info", "Log level (debug, info, warn, error)")

	v := loader.Viper()
	_ = v.BindPFlag("workers.part", flags.Lookup("part"))
	_ = v.BindPFlag("workers.product", flags.Lookup("product"))
	_ = v.BindPFlag("simulation.seed", flags.Lookup("seed"))
	_ = v.BindPFlag("log.level", flags.Lookup("log-level"))
	return cmd
}

func run(ctx context.Context, cfg *config.Config) error {
	logger, err := initLogger(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Sync()

	logger.Info("Starting plantsim",
		zap.String("version", version),
		zap.String("commit", commit),
	)

	collector := metrics.NewCollector(prometheus.NewRegistry())

	opts := append(cfg.SimulationOptions(),
		service.WithSink(newSinkFactory(cfg.Sinks, logger)),
		service.WithRecorder(collector),
		service.WithLogger(logger),
	)
	report, runErr := service.NewPlantSimulation(cfg.Workers.Part, cfg.Workers.Product, opts...).Run(ctx)

	if report != nil {
		printReport(report)
	}

	if cfg.Metrics.Textfile != "" {
		if err := collector.WriteTextfile(cfg.Metrics.Textfile); err != nil {
			logger.Error("Failed to write metrics", zap.Error(err))
		} else {
			logger.Info("Metrics written", zap.String("path", cfg.Metrics.Textfile))
		}
	}

	if runErr != nil {
		logger.Error("Simulation failed", zap.Error(runErr))
		return runErr
	}
	return nil
}

func printReport(r *service.Report) {
	fmt.Println(service.FinishMessage)
	fmt.Println("========== SIMULATION SUMMARY ==========")
	fmt.Printf("Run ID:           %s\n", r.RunID)
	fmt.Printf("Seed:             %d\n", r.Seed)
	fmt.Printf("Final buffer:     %s\n", r.Buffer)
	fmt.Printf("Final cart:       %s\n", r.Cart)
	for _, kind := range []domain.WorkerKind{domain.WorkerPart, domain.WorkerProduct} {
		s := r.Stats[kind]
		fmt.Printf("%-7s workers=%d completed=%d timedOut=%d lost=%d abandoned=%d retries=%d rollbacks=%d\n",
			kind, s.Workers, s.Completed, s.TimedOut, s.ReservationsLost, s.Abandoned, s.AdmitRetries, s.Rollbacks)
	}
	total := 0
	for _, n := range r.Ledger {
		total += n
	}
	fmt.Printf("Ledger entries:   %d (total completions %d)\n", len(r.Ledger), total)
	fmt.Println("=========================================")
}

// initLogger initializes the zap logger based on the log level and format
func initLogger(level, format string) (*zap.Logger, error) {
	var config zap.Config

	switch level {
	case "debug":
		config = zap.NewDevelopmentConfig()
	default:
		config = zap.NewProductionConfig()
		config.Level = parseLogLevel(level)
	}
	if format == "console" {
		config.Encoding = "console"
		config.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return config.Build()
}

// parseLogLevel parses the log level string
func parseLogLevel(level string) zap.AtomicLevel {
	switch level {
	case "warn":
		return zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		return zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		return zap.NewAtomicLevelAt(zap.InfoLevel)
	}
}
