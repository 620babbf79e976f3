package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"bikeshare-dashboard/internal/models"
	"bikeshare-dashboard/internal/services"
	"bikeshare-dashboard/pkg/logging"
	"bikeshare-dashboard/pkg/metrics"
)

// HealthChecker is implemented by the optional SQL store
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// DashboardHandler handles dashboard API endpoints
type DashboardHandler struct {
	dashboard *services.DashboardService
	export    *services.ExportService
	store     HealthChecker
	logger    *logging.StructuredLogger
	metrics   *metrics.Collector
	validate  *validator.Validate
}

// NewDashboardHandler creates a new dashboard handler; store may be nil
func NewDashboardHandler(
	dashboard *services.DashboardService,
	export *services.ExportService,
	store HealthChecker,
	logger *logging.StructuredLogger,
	metricsCollector *metrics.Collector,
) *DashboardHandler {
	return &DashboardHandler{
		dashboard: dashboard,
		export:    export,
		store:     store,
		logger:    logger,
		metrics:   metricsCollector,
		validate:  newValidator(),
	}
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// BoundsResponse describes the loaded dataset
type BoundsResponse struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Records   int    `json:"records"`
	Source    string `json:"source"`
}

// GetDashboard handles GET /api/dashboard
func (h *DashboardHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/api/dashboard"
	defer h.observe(endpoint, time.Now())

	dr, err := h.parseRange(rangeFromQuery(r))
	if err != nil {
		h.sendDomainError(w, r, endpoint, err)
		return
	}

	d, err := h.dashboard.Render(r.Context(), dr)
	if err != nil {
		h.sendDomainError(w, r, endpoint, err)
		return
	}
	h.sendOK(w, r, endpoint, d)
}

// GetDaily handles GET /api/rentals/daily
func (h *DashboardHandler) GetDaily(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/api/rentals/daily"
	defer h.observe(endpoint, time.Now())

	dr, err := h.parseRange(rangeFromQuery(r))
	if err != nil {
		h.sendDomainError(w, r, endpoint, err)
		return
	}

	daily, err := h.dashboard.Daily(r.Context(), dr)
	if err != nil {
		h.sendDomainError(w, r, endpoint, err)
		return
	}
	h.sendOK(w, r, endpoint, daily)
}

// GetComparison handles GET /api/rentals/comparison
func (h *DashboardHandler) GetComparison(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/api/rentals/comparison"
	defer h.observe(endpoint, time.Now())

	dr, err := h.parseRange(rangeFromQuery(r))
	if err != nil {
		h.sendDomainError(w, r, endpoint, err)
		return
	}

	rows, err := h.dashboard.Comparison(r.Context(), dr)
	if err != nil {
		h.sendDomainError(w, r, endpoint, err)
		return
	}
	h.sendOK(w, r, endpoint, rows)
}

// GetWeather handles GET /api/rentals/weather
func (h *DashboardHandler) GetWeather(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/api/rentals/weather"
	defer h.observe(endpoint, time.Now())

	req := WeatherRequest{RangeRequest: rangeFromQuery(r), Order: r.URL.Query().Get("order")}
	if err := validateStruct(h.validate, req); err != nil {
		h.sendDomainError(w, r, endpoint, err)
		return
	}
	dr, err := h.parseRange(req.RangeRequest)
	if err != nil {
		h.sendDomainError(w, r, endpoint, err)
		return
	}

	totals, err := h.dashboard.Weather(r.Context(), dr, req.Order == "desc")
	if err != nil {
		h.sendDomainError(w, r, endpoint, err)
		return
	}
	h.sendOK(w, r, endpoint, totals)
}

// GetSeasons handles GET /api/rentals/seasons
func (h *DashboardHandler) GetSeasons(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/api/rentals/seasons"
	defer h.observe(endpoint, time.Now())

	flag, err := h.parseYear(r)
	if err != nil {
		h.sendDomainError(w, r, endpoint, err)
		return
	}

	seasons, err := h.dashboard.Seasons(r.Context(), flag)
	if err != nil {
		h.sendDomainError(w, r, endpoint, err)
		return
	}
	h.sendOK(w, r, endpoint, seasons)
}

// GetMonths handles GET /api/rentals/months
func (h *DashboardHandler) GetMonths(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/api/rentals/months"
	defer h.observe(endpoint, time.Now())

	flag, err := h.parseYear(r)
	if err != nil {
		h.sendDomainError(w, r, endpoint, err)
		return
	}

	months, err := h.dashboard.Months(r.Context(), flag)
	if err != nil {
		h.sendDomainError(w, r, endpoint, err)
		return
	}
	h.sendOK(w, r, endpoint, months)
}

// ExportWorkbook handles GET /api/dashboard/export.xlsx
func (h *DashboardHandler) ExportWorkbook(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/api/dashboard/export.xlsx"
	defer h.observe(endpoint, time.Now())
	ctx := r.Context()

	dr, err := h.parseRange(rangeFromQuery(r))
	if err != nil {
		h.sendDomainError(w, r, endpoint, err)
		return
	}

	d, err := h.dashboard.Render(ctx, dr)
	if err != nil {
		h.sendDomainError(w, r, endpoint, err)
		return
	}

	// buffer so a failed export can still be reported as JSON
	var buf bytes.Buffer
	if err := h.export.WriteWorkbook(ctx, &buf, d); err != nil {
		h.sendDomainError(w, r, endpoint, err)
		return
	}

	filename := fmt.Sprintf("bikeshare_%s_%s.xlsx",
		d.EffectiveRange.Start.Format(models.DateLayout),
		d.EffectiveRange.End.Format(models.DateLayout))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())

	h.metrics.RecordAPIRequest(endpoint, r.Method, "200")
}

// GetBounds handles GET /api/dataset/bounds
func (h *DashboardHandler) GetBounds(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/api/dataset/bounds"
	defer h.observe(endpoint, time.Now())

	bounds := h.dashboard.Bounds()
	h.sendOK(w, r, endpoint, BoundsResponse{
		StartDate: bounds.Start.Format(models.DateLayout),
		EndDate:   bounds.End.Format(models.DateLayout),
		Records:   h.dashboard.RecordCount(),
		Source:    h.dashboard.Source(),
	})
}

// HealthCheck handles GET /health
func (h *DashboardHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	status := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"records":   h.dashboard.RecordCount(),
	}
	code := http.StatusOK

	if h.store != nil {
		if err := h.store.HealthCheck(ctx); err != nil {
			h.logger.Warn(ctx, "[HEALTH_CHECK] Database unavailable", logging.Fields{
				"error": err.Error(),
			})
			status["status"] = "degraded"
			status["database"] = err.Error()
			code = http.StatusServiceUnavailable
		} else {
			status["database"] = "ok"
		}
	}

	h.logger.Debug(ctx, "[HEALTH_CHECK] Health check requested", logging.Fields{
		"status": status["status"],
	})
	h.sendJSON(w, status, code)
}

// parseRange validates the raw dates and resolves them against the dataset bounds
func (h *DashboardHandler) parseRange(req RangeRequest) (models.DateRange, error) {
	if err := validateStruct(h.validate, req); err != nil {
		return models.DateRange{}, err
	}
	return req.DateRange(h.dashboard.Bounds())
}

func (h *DashboardHandler) parseYear(r *http.Request) (models.YearFlag, error) {
	req := YearRequest{Year: r.URL.Query().Get("year")}
	if err := validateStruct(h.validate, req); err != nil {
		return 0, err
	}
	return req.YearFlag()
}

func (h *DashboardHandler) observe(endpoint string, start time.Time) {
	h.metrics.APIRequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
}

// StatusFor maps a domain error to its HTTP status
func StatusFor(err error) int {
	switch services.ErrorKind(err) {
	case services.KindInvalidRange, services.KindInsufficientData, services.KindValidation:
		return http.StatusBadRequest
	case services.KindUnknownEnum:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (h *DashboardHandler) sendDomainError(w http.ResponseWriter, r *http.Request, endpoint string, err error) {
	status := StatusFor(err)
	kind := services.ErrorKind(err)
	h.metrics.RecordAPIError(kind, endpoint)

	message := err.Error()
	if status == http.StatusInternalServerError {
		h.logger.Error(r.Context(), "[API_ERROR] Request failed", logging.Fields{
			"endpoint": endpoint,
		}, err)
		message = "internal error"
	}
	h.sendError(w, r, endpoint, message, status)
}

func (h *DashboardHandler) sendOK(w http.ResponseWriter, r *http.Request, endpoint string, data interface{}) {
	h.metrics.RecordAPIRequest(endpoint, r.Method, "200")
	h.sendJSON(w, data, http.StatusOK)
}

// sendJSON sends a JSON response
func (h *DashboardHandler) sendJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	sendJSON(w, data, statusCode)
}

// sendError sends an error response
func (h *DashboardHandler) sendError(w http.ResponseWriter, r *http.Request, endpoint, message string, statusCode int) {
	h.metrics.RecordAPIRequest(endpoint, r.Method, strconv.Itoa(statusCode))
	sendJSON(w, ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	}, statusCode)
}

func sendJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// RegisterRoutes registers all dashboard API routes
func (h *DashboardHandler) RegisterRoutes(router *mux.Router) {
	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/dashboard", h.GetDashboard).Methods(http.MethodGet)
	api.HandleFunc("/dashboard/export.xlsx", h.ExportWorkbook).Methods(http.MethodGet)
	api.HandleFunc("/rentals/daily", h.GetDaily).Methods(http.MethodGet)
	api.HandleFunc("/rentals/comparison", h.GetComparison).Methods(http.MethodGet)
	api.HandleFunc("/rentals/weather", h.GetWeather).Methods(http.MethodGet)
	api.HandleFunc("/rentals/seasons", h.GetSeasons).Methods(http.MethodGet)
	api.HandleFunc("/rentals/months", h.GetMonths).Methods(http.MethodGet)
	api.HandleFunc("/dataset/bounds", h.GetBounds).Methods(http.MethodGet)
	api.HandleFunc("/docs", SwaggerUI).Methods(http.MethodGet)
	router.HandleFunc(openAPIPath, OpenAPISpec).Methods(http.MethodGet)

	router.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)
}
