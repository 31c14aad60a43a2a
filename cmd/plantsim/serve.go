package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rl1809/plant-floor/internal/adapter/handler"
	"github.com/rl1809/plant-floor/internal/adapter/metrics"
	"github.com/rl1809/plant-floor/internal/config"
	"github.com/rl1809/plant-floor/internal/core/service"
)

func newServeCommand() *cobra.Command {
	loader := config.NewLoader()
	var configFile string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve simulation runs over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loader.Load(configFile)
			if err != nil {
				return err
			}
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			return serve(ctx, cfg)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&configFile, "config", os.Getenv("PLANT_CONFIG_FILE"), "Path to configuration file")
	flags.String("addr", ":8080", "HTTP listen address")
	flags.Int64("max-concurrent", 4, "Simulations allowed to run at once")
	flags.Int("max-workers", 256, "Workers of each kind a single request may start")
	flags.String("log-level", "info", "Log level (debug, info, warn, error)")

	v := loader.Viper()
	_ = v.BindPFlag("server.addr", flags.Lookup("addr"))
	_ = v.BindPFlag("server.maxConcurrentRuns", flags.Lookup("max-concurrent"))
	_ = v.BindPFlag("server.maxWorkers", flags.Lookup("max-workers"))
	_ = v.BindPFlag("log.level", flags.Lookup("log-level"))
	return cmd
}

func serve(ctx context.Context, cfg *config.Config) error {
	logger, err := initLogger(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Sync()

	// concurrent runs would truncate each other's log file
	sinks := cfg.Sinks
	if sinks.File.Enabled {
		logger.Warn("File sink is disabled in serve mode", zap.String("path", sinks.File.Path))
		sinks.File.Enabled = false
	}

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	opts := append(cfg.SimulationOptions(),
		service.WithSink(newSinkFactory(sinks, logger)),
		service.WithRecorder(collector),
		service.WithLogger(logger),
	)
	httpHandler := handler.NewHTTPHandler(handler.Limits{
		MaxConcurrentRuns: cfg.Server.MaxConcurrentRuns,
		MaxWorkers:        cfg.Server.MaxWorkers,
		MaxAdmitAttempts:  cfg.ServerAdmitAttempts(),
	}, logger, opts...)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", httpHandler.HealthCheck)
	mux.HandleFunc("/api/simulations", httpHandler.RunSimulation)
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	httpServer := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: mux,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", zap.String("addr", cfg.Server.Addr))
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	logger.Info("HTTP server stopped")
	return nil
}
