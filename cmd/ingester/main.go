package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"bikeshare-dashboard/internal/config"
	"bikeshare-dashboard/internal/repository"
	"bikeshare-dashboard/internal/services"
	"bikeshare-dashboard/pkg/database"
	"bikeshare-dashboard/pkg/logging"
	"bikeshare-dashboard/pkg/metrics"
)

const version = "1.0.0"

func main() {
	// Parse command-line flags
	dataDir := flag.String("data-dir", "./data", "Directory containing day.csv / .xlsx rental tables")
	file := flag.String("file", "", "Ingest a single file instead of a directory")
	batchSize := flag.Int("batch-size", services.DefaultBatchSize, "Number of records to write in each transaction")
	migrate := flag.Bool("migrate", true, "Create the schema before ingesting")
	flag.Parse()

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

	if *batchSize <= 0 {
		fmt.Fprintf(os.Stderr, "batch-size must be positive, got %d\n", *batchSize)
		os.Exit(2)
	}

	logger := logging.NewStructuredLogger("bikeshare-ingester", version, logging.ParseLevel(cfg.Logging.Level))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info(ctx, "[INGESTER_START] Starting rental data ingestion", logging.Fields{
		"version":    version,
		"data_dir":   *dataDir,
		"file":       *file,
		"batch_size": *batchSize,
		"driver":     cfg.Database.Driver,
	})

	metricsCollector := metrics.NewCollector("bikeshare_ingester", prometheus.NewRegistry())

	db, err := database.New(cfg.Database.Connection(), logger, metricsCollector)
	if err != nil {
		logger.Fatal(ctx, "[INGESTER_ERROR] Failed to connect to database", logging.Fields{}, err)
	}
	defer db.Close()

	rentalRepo := repository.NewRentalRepository(db, logger, metricsCollector)
	if *migrate {
		if err := rentalRepo.Migrate(ctx); err != nil {
			logger.Fatal(ctx, "[INGESTER_ERROR] Failed to migrate schema", logging.Fields{}, err)
		}
	}

	ingestionService := services.NewIngestionService(rentalRepo, logger, metricsCollector)

	var result *services.IngestionResult
	if *file != "" {
		result, err = ingestionService.IngestFile(ctx, *file, *batchSize)
	} else {
		result, err = ingestionService.IngestDirectory(ctx, *dataDir, *batchSize)
	}
	if err != nil {
		logger.Fatal(ctx, "[INGESTION_ERROR] Ingestion failed", logging.Fields{
			"error": err.Error(),
		}, err)
	}

	// Print results
	fmt.Println(strings.Repeat("=", 80))
	fmt.Println("INGESTION COMPLETE")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Total Files:        %d\n", result.TotalFiles)
	fmt.Printf("Total Records:      %d\n", result.TotalRecords)
	fmt.Printf("Successful Records: %d\n", result.SuccessfulRecords)
	fmt.Printf("Failed Records:     %d\n", result.FailedRecords)
	fmt.Printf("Duration:           %v\n", result.Duration)
	fmt.Printf("Records/Second:     %.2f\n", result.RecordsPerSecond())

	if len(result.Errors) > 0 {
		fmt.Printf("\nErrors (%d):\n", len(result.Errors))
		for i, errMsg := range result.Errors {
			if i < 10 {
				fmt.Printf("  - %s\n", errMsg)
			}
		}
		if len(result.Errors) > 10 {
			fmt.Printf("  ... and %d more errors\n", len(result.Errors)-10)
		}
	}

	if count, err := rentalRepo.CountRecords(ctx); err == nil {
		fmt.Printf("\nRecords in store:   %d\n", count)
	}

	logger.Info(ctx, "[INGESTER_COMPLETE] Ingestion completed", logging.Fields{
		"total_records":      result.TotalRecords,
		"successful_records": result.SuccessfulRecords,
		"failed_records":     result.FailedRecords,
		"duration_seconds":   result.Duration.Seconds(),
	})

	if len(result.Errors) > 0 {
		os.Exit(1)
	}
}
