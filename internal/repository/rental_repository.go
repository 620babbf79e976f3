package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"

	"bikeshare-dashboard/internal/models"
	"bikeshare-dashboard/pkg/database"
	"bikeshare-dashboard/pkg/logging"
	"bikeshare-dashboard/pkg/metrics"
)

// RentalRepository provides data access for daily rental records
type RentalRepository interface {
	// Schema
	Migrate(ctx context.Context) error
	DropSchema(ctx context.Context) error

	// Records
	UpsertRecordsBatch(ctx context.Context, records []models.RentalRecord) (int, error)
	GetRecord(ctx context.Context, recordID int64) (*models.RentalRecord, error)
	ListRecords(ctx context.Context, filter RecordFilter) ([]models.RentalRecord, error)
	CountRecords(ctx context.Context) (int, error)
	DateBounds(ctx context.Context) (models.DateRange, error)

	HealthCheck(ctx context.Context) error
}

// RecordFilter defines filters for querying records
// Zero Limit means no limit
type RecordFilter struct {
	StartDate *time.Time
	EndDate   *time.Time
	YearFlag  *models.YearFlag
	Limit     int
	Offset    int
}

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS daily_rentals (
		instant    INTEGER PRIMARY KEY,
		dteday     DATE NOT NULL,
		yr         SMALLINT NOT NULL,
		season     SMALLINT NOT NULL,
		mnth       SMALLINT NOT NULL,
		weathersit SMALLINT NOT NULL,
		casual     INTEGER NOT NULL CHECK (casual >= 0),
		registered INTEGER NOT NULL CHECK (registered >= 0),
		cnt        INTEGER NOT NULL CHECK (cnt >= 0)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_daily_rentals_dteday ON daily_rentals (dteday)`,
}

const recordColumns = `instant, dteday, yr, season, mnth, weathersit, casual, registered, cnt`

const upsertRecord = `
	INSERT INTO daily_rentals (` + recordColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (instant) DO UPDATE SET
		dteday = excluded.dteday,
		yr = excluded.yr,
		season = excluded.season,
		mnth = excluded.mnth,
		weathersit = excluded.weathersit,
		casual = excluded.casual,
		registered = excluded.registered,
		cnt = excluded.cnt
`

// rentalRepository implements RentalRepository over database.DB
type rentalRepository struct {
	db      *database.DB
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewRentalRepository creates a new rental repository
func NewRentalRepository(db *database.DB, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) RentalRepository {
	return &rentalRepository{
		db:      db,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// Migrate creates the daily_rentals table and its date index
func (r *rentalRepository) Migrate(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := r.db.ExecContext(ctx, "migrate", stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}

	r.logger.Info(ctx, "[REPO_MIGRATE] Schema is up to date", logging.Fields{
		"driver": r.db.Driver(),
	})
	return nil
}

// DropSchema removes the daily_rentals table
func (r *rentalRepository) DropSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, "drop_schema", `DROP TABLE IF EXISTS daily_rentals`); err != nil {
		return fmt.Errorf("failed to drop schema: %w", err)
	}

	r.logger.Info(ctx, "[REPO_DROP] Schema dropped", logging.Fields{
		"driver": r.db.Driver(),
	})
	return nil
}

// UpsertRecordsBatch writes records in one transaction, replacing rows with the same instant
func (r *rentalRepository) UpsertRecordsBatch(ctx context.Context, records []models.RentalRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	start := time.Now()
	err := r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		stmt, err := tx.PreparexContext(ctx, tx.Rebind(upsertRecord))
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer stmt.Close()

		for _, rec := range records {
			_, err := stmt.ExecContext(ctx,
				rec.RecordID,
				rec.Date,
				int(rec.YearFlag),
				int(rec.Season),
				rec.Month,
				int(rec.WeatherSituation),
				rec.CasualCount,
				rec.RegisteredCount,
				rec.TotalCount,
			)
			if err != nil {
				return fmt.Errorf("failed to upsert record %d: %w", rec.RecordID, err)
			}
		}
		return nil
	})
	if err != nil {
		r.metrics.RecordDBError("batch_upsert_error")
		return 0, err
	}

	r.metrics.IngestionBatchSize.Observe(float64(len(records)))
	r.metrics.IngestionRecordsTotal.Add(float64(len(records)))
	r.logger.Debug(ctx, "[REPO_BATCH_UPSERT] Batch upsert completed", logging.Fields{
		"count":       len(records),
		"duration_ms": time.Since(start).Milliseconds(),
	})

	return len(records), nil
}

// GetRecord retrieves a single day by record id
func (r *rentalRepository) GetRecord(ctx context.Context, recordID int64) (*models.RentalRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM daily_rentals WHERE instant = ?`

	var rec models.RentalRecord
	err := r.db.GetContext(ctx, "get_record", &rec, query, recordID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &NotFoundError{
			Resource: "rental_record",
			ID:       strconv.FormatInt(recordID, 10),
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get record: %w", err)
	}

	rec.Date = models.TruncateDay(rec.Date)
	return &rec, nil
}

// ListRecords returns records ordered by date and id
func (r *rentalRepository) ListRecords(ctx context.Context, filter RecordFilter) ([]models.RentalRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM daily_rentals WHERE 1=1`
	args := []interface{}{}

	if filter.StartDate != nil {
		query += " AND dteday >= ?"
		args = append(args, models.TruncateDay(*filter.StartDate))
	}
	if filter.EndDate != nil {
		query += " AND dteday <= ?"
		args = append(args, models.TruncateDay(*filter.EndDate))
	}
	if filter.YearFlag != nil {
		query += " AND yr = ?"
		args = append(args, int(*filter.YearFlag))
	}

	query += " ORDER BY dteday, instant"
	if filter.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, filter.Limit, filter.Offset)
	}

	var records []models.RentalRecord
	if err := r.db.SelectContext(ctx, "list_records", &records, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}

	for i := range records {
		records[i].Date = models.TruncateDay(records[i].Date)
	}
	return records, nil
}

// CountRecords returns the number of stored days
func (r *rentalRepository) CountRecords(ctx context.Context) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, "count_records", &count, `SELECT COUNT(*) FROM daily_rentals`); err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return count, nil
}

// DateBounds returns the first and last stored day
// models.ErrEmptyDataset is returned for an empty table
func (r *rentalRepository) DateBounds(ctx context.Context) (models.DateRange, error) {
	// ORDER BY keeps the declared column type, which sqlite drops for MIN/MAX
	var first, last time.Time
	err := r.db.GetContext(ctx, "date_bounds", &first, `SELECT dteday FROM daily_rentals ORDER BY dteday ASC LIMIT 1`)
	if errors.Is(err, sql.ErrNoRows) {
		return models.DateRange{}, models.ErrEmptyDataset
	}
	if err != nil {
		return models.DateRange{}, fmt.Errorf("failed to read first date: %w", err)
	}
	if err := r.db.GetContext(ctx, "date_bounds", &last, `SELECT dteday FROM daily_rentals ORDER BY dteday DESC LIMIT 1`); err != nil {
		return models.DateRange{}, fmt.Errorf("failed to read last date: %w", err)
	}

	return models.NewDateRange(first, last), nil
}

// HealthCheck pings the database
func (r *rentalRepository) HealthCheck(ctx context.Context) error {
	return r.db.HealthCheck(ctx)
}

// NotFoundError indicates a requested resource was not found
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// IsTransient returns false as a missing row stays missing
func (e *NotFoundError) IsTransient() bool {
	return false
}
