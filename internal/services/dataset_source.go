package services

import (
	"context"
	"fmt"

	"bikeshare-dashboard/internal/config"
	"bikeshare-dashboard/internal/dataset"
	"bikeshare-dashboard/internal/repository"
	"bikeshare-dashboard/pkg/logging"
	"bikeshare-dashboard/pkg/metrics"
)

// LoadDataset builds the immutable dataset from the configured source.
// repo is only consulted for the database source and may be nil otherwise.
func LoadDataset(ctx context.Context, cfg config.DatasetConfig, repo repository.RentalRepository, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) (*dataset.Dataset, error) {
	timer := metricsCollector.NewTimer(metricsCollector.DatasetLoad)

	var (
		ds  *dataset.Dataset
		err error
	)
	switch cfg.Source {
	case config.SourceCSV:
		ds, err = dataset.LoadCSV(cfg.Path)
	case config.SourceXLSX:
		ds, err = dataset.LoadXLSX(cfg.Path, cfg.Sheet)
	case config.SourceDatabase:
		if repo == nil {
			return nil, fmt.Errorf("dataset source %s requires a repository", cfg.Source)
		}
		records, listErr := repo.ListRecords(ctx, repository.RecordFilter{})
		if listErr != nil {
			return nil, fmt.Errorf("failed to read records: %w", listErr)
		}
		ds, err = dataset.New(config.SourceDatabase, records)
	default:
		return nil, fmt.Errorf("unsupported dataset source %q", cfg.Source)
	}
	elapsed := timer.ObserveDuration()

	if err != nil {
		logger.Error(ctx, "[DATASET_LOAD_ERROR] Failed to load dataset", logging.Fields{
			"source": cfg.Source,
			"path":   cfg.Path,
		}, err)
		return nil, fmt.Errorf("failed to load dataset: %w", err)
	}

	metricsCollector.SetDatasetRecords(ds.Len())
	logger.Info(ctx, "[DATASET_LOADED] Dataset loaded", logging.Fields{
		"source":      ds.Source(),
		"records":     ds.Len(),
		"bounds":      ds.Bounds().String(),
		"duration_ms": elapsed.Milliseconds(),
	})
	return ds, nil
}
