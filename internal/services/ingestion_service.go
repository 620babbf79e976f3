package services

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"bikeshare-dashboard/internal/dataset"
	"bikeshare-dashboard/internal/models"
	"bikeshare-dashboard/internal/repository"
	"bikeshare-dashboard/pkg/logging"
	"bikeshare-dashboard/pkg/metrics"
)

// DefaultBatchSize is the number of records written per transaction
const DefaultBatchSize = 250

// IngestionService copies rental tables from files into the SQL store
type IngestionService struct {
	repo    repository.RentalRepository
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// IngestionResult contains ingestion statistics
type IngestionResult struct {
	TotalFiles        int
	TotalRecords      int
	SuccessfulRecords int
	FailedRecords     int
	Duration          time.Duration
	Errors            []string
}

// RecordsPerSecond returns the write throughput of the run
func (r *IngestionResult) RecordsPerSecond() float64 {
	if r.Duration <= 0 {
		return 0
	}
	return float64(r.SuccessfulRecords) / r.Duration.Seconds()
}

// NewIngestionService creates a new ingestion service
func NewIngestionService(repo repository.RentalRepository, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *IngestionService {
	return &IngestionService{
		repo:    repo,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// IngestFile loads one CSV or XLSX file and upserts it in batches.
// A file that fails to load writes nothing.
func (s *IngestionService) IngestFile(ctx context.Context, path string, batchSize int) (*IngestionResult, error) {
	start := time.Now()
	result := &IngestionResult{TotalFiles: 1, Errors: make([]string, 0)}

	if err := s.ingestFile(ctx, path, batchSize, result); err != nil {
		return nil, err
	}

	s.finish(ctx, result, start)
	return result, nil
}

// IngestDirectory ingests every .csv and .xlsx file in dataDir.
// Failed files are reported in the result and do not stop the run.
func (s *IngestionService) IngestDirectory(ctx context.Context, dataDir string, batchSize int) (*IngestionResult, error) {
	start := time.Now()

	s.logger.Info(ctx, "[INGEST_START] Starting data ingestion", logging.Fields{
		"data_dir":   dataDir,
		"batch_size": batchSize,
		"stage":      "INITIALIZATION",
	})

	var files []string
	for _, pattern := range []string{"*.csv", "*.xlsx"} {
		matches, err := filepath.Glob(filepath.Join(dataDir, pattern))
		if err != nil {
			return nil, fmt.Errorf("failed to read directory: %w", err)
		}
		files = append(files, matches...)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no data files found in %s", dataDir)
	}
	sort.Strings(files)

	result := &IngestionResult{TotalFiles: len(files), Errors: make([]string, 0)}
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := s.ingestFile(ctx, path, batchSize, result); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("failed to ingest %s: %v", path, err))
			s.logger.Error(ctx, "[INGEST_FILE_ERROR] File ingestion failed", logging.Fields{
				"file_path": path,
				"stage":     "FILE_PROCESSING",
			}, err)
		}
	}

	s.finish(ctx, result, start)
	return result, nil
}

func (s *IngestionService) ingestFile(ctx context.Context, path string, batchSize int, result *IngestionResult) error {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	ds, err := dataset.Load(path)
	if err != nil {
		s.metrics.RecordIngestionError(ErrorKind(err))
		return fmt.Errorf("failed to load %s: %w", filepath.Base(path), err)
	}

	records := ds.Records()
	result.TotalRecords += len(records)

	written, failed := 0, 0
	for offset := 0; offset < len(records); offset += batchSize {
		end := offset + batchSize
		if end > len(records) {
			end = len(records)
		}
		batch := records[offset:end]

		n, err := s.repo.UpsertRecordsBatch(ctx, batch)
		if err != nil {
			failed += len(batch)
			s.metrics.RecordIngestionError("batch_error")
			result.Errors = append(result.Errors, fmt.Sprintf("%s records %s: %v", filepath.Base(path), batchSpan(batch), err))
			continue
		}
		written += n
	}
	result.SuccessfulRecords += written
	result.FailedRecords += failed

	s.logger.Info(ctx, "[INGEST_FILE_SUCCESS] File ingested", logging.Fields{
		"file_path":          path,
		"source":             ds.Source(),
		"bounds":             ds.Bounds().String(),
		"total_records":      len(records),
		"successful_records": written,
		"failed_records":     failed,
		"stage":              "FILE_COMPLETE",
	})
	return nil
}

func (s *IngestionService) finish(ctx context.Context, result *IngestionResult, start time.Time) {
	result.Duration = time.Since(start)
	s.metrics.IngestionDuration.Observe(result.Duration.Seconds())

	s.logger.Info(ctx, "[INGEST_COMPLETE] Data ingestion completed", logging.Fields{
		"total_files":        result.TotalFiles,
		"total_records":      result.TotalRecords,
		"successful_records": result.SuccessfulRecords,
		"failed_records":     result.FailedRecords,
		"duration_seconds":   result.Duration.Seconds(),
		"records_per_second": result.RecordsPerSecond(),
		"error_count":        len(result.Errors),
		"stage":              "COMPLETE",
	})
}

// batchSpan renders the first and last record id of a batch
func batchSpan(batch []models.RentalRecord) string {
	return fmt.Sprintf("%d-%d", batch[0].RecordID, batch[len(batch)-1].RecordID)
}
