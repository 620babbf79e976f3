package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"bikeshare-dashboard/internal/config"
	"bikeshare-dashboard/internal/repository"
	"bikeshare-dashboard/pkg/database"
	"bikeshare-dashboard/pkg/logging"
	"bikeshare-dashboard/pkg/metrics"
)

func main() {
	direction := flag.String("direction", "up", "Migration direction: up or down")
	flag.Parse()

	if *direction != "up" && *direction != "down" {
		fmt.Fprintf(os.Stderr, "Unknown direction %q, expected up or down\n", *direction)
		os.Exit(2)
	}

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

	// Progress goes to stdout; structured logs only on request
	logger := logging.NewStructuredLogger("bikeshare-migrate", "1.0.0", logging.ParseLevel(cfg.Logging.Level))
	if cfg.Logging.Level != "debug" {
		logger.SetOutput(io.Discard)
	}

	ctx := context.Background()
	metricsCollector := metrics.NewCollector("bikeshare_migrate", prometheus.NewRegistry())

	db, err := database.New(cfg.Database.Connection(), logger, metricsCollector)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	fmt.Printf("Connected to %s database successfully\n", db.Driver())

	repo := repository.NewRentalRepository(db, logger, metricsCollector)

	fmt.Printf("Running migration: daily_rentals %s\n", *direction)
	if *direction == "up" {
		err = repo.Migrate(ctx)
	} else {
		err = repo.DropSchema(ctx)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to execute migration: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Migration completed successfully")
}
