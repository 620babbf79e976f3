package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"bikeshare-dashboard/internal/config"
	"bikeshare-dashboard/internal/handlers"
	"bikeshare-dashboard/internal/repository"
	"bikeshare-dashboard/internal/services"
	"bikeshare-dashboard/pkg/database"
	"bikeshare-dashboard/pkg/logging"
	"bikeshare-dashboard/pkg/metrics"
	"bikeshare-dashboard/pkg/tracing"
)

const version = "1.0.0"

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewStructuredLogger("bikeshare-api", version, logging.ParseLevel(cfg.Logging.Level))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info(ctx, "[STARTUP] Starting bike sharing dashboard server", logging.Fields{
		"version":        version,
		"server_host":    cfg.Server.Host,
		"server_port":    cfg.Server.Port,
		"dataset_source": cfg.Dataset.Source,
		"dataset_path":   cfg.Dataset.Path,
		"tracing":        cfg.Tracing.Enabled,
	})

	shutdownTracing, err := tracing.Setup(tracing.Config{
		ServiceName:    "bikeshare-api",
		ServiceVersion: version,
		Enabled:        cfg.Tracing.Enabled,
	})
	if err != nil {
		logger.Fatal(ctx, "[STARTUP_ERROR] Failed to set up tracing", logging.Fields{}, err)
	}
	defer shutdownTracing(context.Background())

	metricsCollector := metrics.NewCollector("bikeshare", prometheus.DefaultRegisterer)

	// The SQL store is only needed when the dataset lives there
	var (
		repo  repository.RentalRepository
		store handlers.HealthChecker
	)
	if cfg.Dataset.Source == config.SourceDatabase {
		db, err := database.New(cfg.Database.Connection(), logger, metricsCollector)
		if err != nil {
			logger.Fatal(ctx, "[STARTUP_ERROR] Failed to connect to database", logging.Fields{
				"driver": cfg.Database.Driver,
			}, err)
		}
		defer db.Close()

		repo = repository.NewRentalRepository(db, logger, metricsCollector)
		store = repo
	}

	ds, err := services.LoadDataset(ctx, cfg.Dataset, repo, logger, metricsCollector)
	if err != nil {
		logger.Fatal(ctx, "[STARTUP_ERROR] Failed to load dataset", logging.Fields{
			"source": cfg.Dataset.Source,
		}, err)
	}

	// Initialize services
	dashboardService := services.NewDashboardService(ds, logger, metricsCollector)
	exportService := services.NewExportService(logger)

	// Initialize handlers
	dashboardHandler := handlers.NewDashboardHandler(dashboardService, exportService, store, logger, metricsCollector)
	liveHandler := handlers.NewLiveHandler(dashboardService, logger, metricsCollector)

	// Setup router
	router := mux.NewRouter()
	router.Use(handlers.Recoverer(logger), handlers.RequestID, handlers.AccessLog(logger))
	if cfg.RateLimit.Enabled {
		limiter := handlers.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst, logger, metricsCollector, "/health", "/metrics")
		router.Use(limiter.Handler)
	}

	dashboardHandler.RegisterRoutes(router)
	liveHandler.RegisterRoutes(router)

	// Prometheus metrics endpoint
	router.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info(gctx, "[SERVER_START] HTTP server listening", logging.Fields{
			"address": server.Addr,
		})
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info(context.Background(), "[SHUTDOWN] Shutting down server...", logging.Fields{
			"live_clients": liveHandler.ClientCount(),
		})

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		liveHandler.CloseAll()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error(context.Background(), "[SHUTDOWN_ERROR] Server stopped with error", logging.Fields{}, err)
		os.Exit(1)
	}

	logger.Info(context.Background(), "[SHUTDOWN_COMPLETE] Server stopped", logging.Fields{})
}
