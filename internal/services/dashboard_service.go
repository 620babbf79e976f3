package services

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"bikeshare-dashboard/internal/aggregation"
	"bikeshare-dashboard/internal/dataset"
	"bikeshare-dashboard/internal/models"
	"bikeshare-dashboard/pkg/logging"
	"bikeshare-dashboard/pkg/metrics"
	"bikeshare-dashboard/pkg/tracing"
)

// Error kinds used as metric labels and API error codes
const (
	KindInvalidRange     = "invalid_range"
	KindInsufficientData = "insufficient_data"
	KindUnknownEnum      = "unknown_enum_value"
	KindValidation       = "validation_error"
	KindSchema           = "schema_error"
	KindInternal         = "internal_error"
)

// ErrorKind classifies err by the typed domain error it wraps
func ErrorKind(err error) string {
	var (
		rangeErr        *models.RangeError
		insufficientErr *models.InsufficientDataError
		enumErr         *models.UnknownEnumValueError
		validationErr   *models.ValidationError
		schemaErr       *models.SchemaError
	)
	switch {
	case errors.As(err, &rangeErr):
		return KindInvalidRange
	case errors.As(err, &insufficientErr):
		return KindInsufficientData
	case errors.As(err, &enumErr):
		return KindUnknownEnum
	case errors.As(err, &validationErr):
		return KindValidation
	case errors.As(err, &schemaErr):
		return KindSchema
	default:
		return KindInternal
	}
}

// DashboardService renders dashboard views over one immutable dataset.
// Safe for concurrent use.
type DashboardService struct {
	ds      *dataset.Dataset
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
	tracer  trace.Tracer
}

// NewDashboardService creates a dashboard service for ds
func NewDashboardService(ds *dataset.Dataset, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *DashboardService {
	metricsCollector.SetDatasetRecords(ds.Len())

	return &DashboardService{
		ds:      ds,
		logger:  logger,
		metrics: metricsCollector,
		tracer:  tracing.Tracer(),
	}
}

// Bounds returns the first and last day of the dataset
func (s *DashboardService) Bounds() models.DateRange {
	return s.ds.Bounds()
}

// Source describes where the dataset was loaded from
func (s *DashboardService) Source() string {
	return s.ds.Source()
}

// RecordCount returns the number of loaded records
func (s *DashboardService) RecordCount() int {
	return s.ds.Len()
}

// Render computes the complete dashboard for r
func (s *DashboardService) Render(ctx context.Context, r models.DateRange) (*aggregation.Dashboard, error) {
	ctx, span := s.startSpan(ctx, "dashboard", r)
	defer span.End()
	timer := s.metrics.NewTimer(s.metrics.RenderDuration.WithLabelValues("dashboard"))

	d, err := aggregation.Render(s.ds, r)
	elapsed := timer.ObserveDuration()
	if err != nil {
		return nil, s.fail(ctx, span, "dashboard", r, err)
	}

	span.SetAttributes(
		attribute.String("effective_range", d.EffectiveRange.String()),
		attribute.Int("days", len(d.DailyOrders)),
		attribute.Int("total_rentals", d.Summary.TotalRentals),
	)
	s.logger.Debug(ctx, "[DASHBOARD_RENDER] Dashboard rendered", logging.Fields{
		"requested_range": r.String(),
		"effective_range": d.EffectiveRange.String(),
		"days":            len(d.DailyOrders),
		"total_rentals":   d.Summary.TotalRentals,
		"duration_ms":     elapsed.Milliseconds(),
	})
	return d, nil
}

// Daily returns the daily order totals for r
func (s *DashboardService) Daily(ctx context.Context, r models.DateRange) ([]aggregation.DailyOrders, error) {
	ctx, span := s.startSpan(ctx, "daily", r)
	defer span.End()
	defer s.metrics.NewTimer(s.metrics.RenderDuration.WithLabelValues("daily")).ObserveDuration()

	subset, err := s.subset(r)
	if err != nil {
		return nil, s.fail(ctx, span, "daily", r, err)
	}
	return aggregation.DailyOrderTotals(subset), nil
}

// Comparison returns the casual vs registered table for r
func (s *DashboardService) Comparison(ctx context.Context, r models.DateRange) ([]aggregation.DailyComparison, error) {
	ctx, span := s.startSpan(ctx, "comparison", r)
	defer span.End()
	defer s.metrics.NewTimer(s.metrics.RenderDuration.WithLabelValues("comparison")).ObserveDuration()

	subset, err := s.subset(r)
	if err != nil {
		return nil, s.fail(ctx, span, "comparison", r, err)
	}
	return aggregation.DailyComparisonTotals(subset), nil
}

// Weather returns per-situation totals for r, by code or by descending total
func (s *DashboardService) Weather(ctx context.Context, r models.DateRange, byTotal bool) ([]aggregation.WeatherTotal, error) {
	ctx, span := s.startSpan(ctx, "weather", r)
	defer span.End()
	defer s.metrics.NewTimer(s.metrics.RenderDuration.WithLabelValues("weather")).ObserveDuration()

	subset, err := s.subset(r)
	if err != nil {
		return nil, s.fail(ctx, span, "weather", r, err)
	}
	totals, err := aggregation.WeatherTotals(subset)
	if err != nil {
		return nil, s.fail(ctx, span, "weather", r, err)
	}
	if byTotal {
		return aggregation.SortByTotalDesc(totals), nil
	}
	return totals, nil
}

// Seasons returns the seasonal breakdown of one year over the whole dataset
func (s *DashboardService) Seasons(ctx context.Context, flag models.YearFlag) (aggregation.SeasonalBreakdown, error) {
	ctx, span := s.tracer.Start(ctx, "dashboard.seasons", trace.WithAttributes(attribute.Int("year_flag", int(flag))))
	defer span.End()
	defer s.metrics.NewTimer(s.metrics.RenderDuration.WithLabelValues("seasons")).ObserveDuration()

	out, err := aggregation.SeasonalBreakdownFor(s.ds.YearPartition(flag), flag)
	if err != nil {
		return aggregation.SeasonalBreakdown{}, s.fail(ctx, span, "seasons", s.ds.Bounds(), err)
	}
	return out, nil
}

// Months returns the monthly breakdown of one year over the whole dataset
func (s *DashboardService) Months(ctx context.Context, flag models.YearFlag) (aggregation.MonthlyBreakdown, error) {
	ctx, span := s.tracer.Start(ctx, "dashboard.months", trace.WithAttributes(attribute.Int("year_flag", int(flag))))
	defer span.End()
	defer s.metrics.NewTimer(s.metrics.RenderDuration.WithLabelValues("months")).ObserveDuration()

	out, err := aggregation.MonthlyBreakdownFor(s.ds.YearPartition(flag), flag)
	if err != nil {
		return aggregation.MonthlyBreakdown{}, s.fail(ctx, span, "months", s.ds.Bounds(), err)
	}
	return out, nil
}

// subset validates r, clamps it to the dataset and filters the records
func (s *DashboardService) subset(r models.DateRange) ([]models.RentalRecord, error) {
	r = models.NewDateRange(r.Start, r.End)
	if err := r.Validate(); err != nil {
		return nil, err
	}
	effective := r.Clamp(s.ds.MinDate(), s.ds.MaxDate())
	return aggregation.FilterByDateRange(s.ds.Records(), effective.Start, effective.End)
}

func (s *DashboardService) startSpan(ctx context.Context, view string, r models.DateRange) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "dashboard."+view, trace.WithAttributes(
		attribute.String("start_date", r.Start.Format(models.DateLayout)),
		attribute.String("end_date", r.End.Format(models.DateLayout)),
	))
}

// fail records err on the span and metrics; client errors log at WARN
func (s *DashboardService) fail(ctx context.Context, span trace.Span, view string, r models.DateRange, err error) error {
	kind := ErrorKind(err)
	s.metrics.RecordRenderError(kind)
	span.RecordError(err)
	span.SetStatus(codes.Error, kind)

	fields := logging.Fields{
		"view":       view,
		"range":      r.String(),
		"error_kind": kind,
	}
	if kind == KindInternal {
		s.logger.Error(ctx, "[DASHBOARD_ERROR] Render failed", fields, err)
	} else {
		fields["error"] = err.Error()
		s.logger.Warn(ctx, "[DASHBOARD_REJECTED] Render rejected", fields)
	}
	return err
}
