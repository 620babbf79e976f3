package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"bikeshare-dashboard/internal/aggregation"
	"bikeshare-dashboard/internal/dataset"
	"bikeshare-dashboard/internal/models"
)

func TestGetDashboard(t *testing.T) {
	router := newTestRouter(t, sampleDataset(t), nil)

	rr := get(t, router, "/api/dashboard?start_date=2011-01-01&end_date=2011-01-03")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var d aggregation.Dashboard
	decode(t, rr, &d)

	assert.Equal(t, 3135, d.Summary.TotalRentals)
	assert.Equal(t, 582, d.Summary.CasualTotal)
	assert.Equal(t, 2553, d.Summary.RegisteredTotal)
	require.NotNil(t, d.Summary.Delta)
	assert.Equal(t, 548, *d.Summary.Delta)
	assert.Equal(t, []int{985, 1786, 3135}, d.RunningTotal)
	assert.Len(t, d.DailyOrders, 3)
	assert.Len(t, d.Years, 2)
}

func TestGetDashboardDefaultsToDatasetBounds(t *testing.T) {
	router := newTestRouter(t, sampleDataset(t), nil)

	rr := get(t, router, "/api/dashboard")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var d aggregation.Dashboard
	decode(t, rr, &d)

	assert.Equal(t, "2011-01-01", d.EffectiveRange.Start.Format(models.DateLayout))
	assert.Equal(t, "2012-06-01", d.EffectiveRange.End.Format(models.DateLayout))
	assert.Equal(t, 3335, d.Summary.TotalRentals)
	assert.Equal(t, 4, d.Summary.DayCount)
}

func TestGetDashboardSingleDay(t *testing.T) {
	router := newTestRouter(t, sampleDataset(t), nil)

	rr := get(t, router, "/api/dashboard?start_date=2011-01-02&end_date=2011-01-02")
	require.Equal(t, http.StatusOK, rr.Code)

	var d aggregation.Dashboard
	decode(t, rr, &d)
	assert.Nil(t, d.Summary.Delta)
	assert.NotEmpty(t, d.Summary.DeltaError)
	assert.Equal(t, 801, d.Summary.TotalRentals)
}

func TestDashboardErrors(t *testing.T) {
	router := newTestRouter(t, sampleDataset(t), nil)

	tests := []struct {
		name    string
		target  string
		status  int
		message string
	}{
		{
			name:    "reversed range",
			target:  "/api/dashboard?start_date=2011-01-03&end_date=2011-01-01",
			status:  http.StatusBadRequest,
			message: "invalid date range: start 2011-01-03 is after end 2011-01-01",
		},
		{
			name:    "malformed start date",
			target:  "/api/dashboard?start_date=2011-13-01",
			status:  http.StatusBadRequest,
			message: "invalid start_date format, expected YYYY-MM-DD",
		},
		{
			name:    "malformed end date",
			target:  "/api/rentals/daily?end_date=yesterday",
			status:  http.StatusBadRequest,
			message: "invalid end_date format, expected YYYY-MM-DD",
		},
		{
			name:    "bad weather order",
			target:  "/api/rentals/weather?order=asc",
			status:  http.StatusBadRequest,
			message: "invalid order, expected one of: code, desc",
		},
		{
			name:    "missing year",
			target:  "/api/rentals/seasons",
			status:  http.StatusBadRequest,
			message: "year is required",
		},
		{
			name:    "unknown year",
			target:  "/api/rentals/months?year=2013",
			status:  http.StatusBadRequest,
			message: "invalid year, expected one of: 2011, 2012",
		},
		{
			name:    "export reversed range",
			target:  "/api/dashboard/export.xlsx?start_date=2012-01-01&end_date=2011-01-01",
			status:  http.StatusBadRequest,
			message: "invalid date range: start 2012-01-01 is after end 2011-01-01",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := get(t, router, tt.target)
			require.Equal(t, tt.status, rr.Code, rr.Body.String())

			var resp ErrorResponse
			decode(t, rr, &resp)
			assert.Equal(t, tt.status, resp.Code)
			assert.Equal(t, http.StatusText(tt.status), resp.Error)
			assert.Equal(t, tt.message, resp.Message)
		})
	}
}

func TestGetDailyGapFills(t *testing.T) {
	router := newTestRouter(t, sampleDataset(t), nil)

	rr := get(t, router, "/api/rentals/daily?start_date=2011-01-03&end_date=2011-01-06")
	require.Equal(t, http.StatusOK, rr.Code)

	var daily []aggregation.DailyOrders
	decode(t, rr, &daily)
	require.Len(t, daily, 1)
	assert.Equal(t, 1349, daily[0].TotalCount)
}

func TestGetComparison(t *testing.T) {
	router := newTestRouter(t, sampleDataset(t), nil)

	rr := get(t, router, "/api/rentals/comparison?start_date=2011-01-01&end_date=2011-01-02")
	require.Equal(t, http.StatusOK, rr.Code)

	var rows []aggregation.DailyComparison
	decode(t, rr, &rows)
	require.Len(t, rows, 2)
	for _, row := range rows {
		assert.Equal(t, row.TotalCount, row.CasualCount+row.RegisteredCount)
	}
	assert.Equal(t, 331, rows[0].CasualCount)
}

func TestGetWeather(t *testing.T) {
	router := newTestRouter(t, sampleDataset(t), nil)

	tests := []struct {
		name  string
		query string
		want  []models.WeatherSituation
	}{
		{"code order", "", []models.WeatherSituation{models.WeatherClear, models.WeatherMistCloudy, models.WeatherLightSnowRain}},
		{"explicit code order", "?order=code", []models.WeatherSituation{models.WeatherClear, models.WeatherMistCloudy, models.WeatherLightSnowRain}},
		{"descending", "?order=desc", []models.WeatherSituation{models.WeatherMistCloudy, models.WeatherClear, models.WeatherLightSnowRain}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := get(t, router, "/api/rentals/weather"+tt.query)
			require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

			var totals []aggregation.WeatherTotal
			decode(t, rr, &totals)

			got := make([]models.WeatherSituation, len(totals))
			sum := 0
			for i, wt := range totals {
				got[i] = wt.Situation
				sum += wt.TotalCount
			}
			assert.Equal(t, tt.want, got)
			assert.Equal(t, 3335, sum)
		})
	}
}

func TestUnknownWeatherCodeIsUnprocessable(t *testing.T) {
	records := []models.RentalRecord{
		{RecordID: 1, Date: time.Date(2011, 1, 1, 0, 0, 0, 0, time.UTC), Season: models.SeasonSpring, Month: 1,
			WeatherSituation: models.WeatherClear, CasualCount: 1, RegisteredCount: 2, TotalCount: 3},
		{RecordID: 2, Date: time.Date(2011, 1, 2, 0, 0, 0, 0, time.UTC), Season: models.SeasonSpring, Month: 1,
			WeatherSituation: models.WeatherSituation(9), CasualCount: 1, RegisteredCount: 2, TotalCount: 3},
	}
	ds, err := dataset.New("corrupt", records)
	require.NoError(t, err)
	router := newTestRouter(t, ds, nil)

	rr := get(t, router, "/api/rentals/weather")
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code, rr.Body.String())

	var resp ErrorResponse
	decode(t, rr, &resp)
	assert.Equal(t, "unknown weathersit value: 9", resp.Message)
}

func TestGetSeasonsAndMonths(t *testing.T) {
	router := newTestRouter(t, sampleDataset(t), nil)

	rr := get(t, router, "/api/rentals/seasons?year=2012")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var seasons aggregation.SeasonalBreakdown
	decode(t, rr, &seasons)
	assert.Equal(t, 2012, seasons.Year)
	assert.Equal(t, [4]int{0, 50, 0, 0}, seasons.Casual)
	assert.Equal(t, [4]int{0, 150, 0, 0}, seasons.Registered)

	rr = get(t, router, "/api/rentals/months?year=2011")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var months aggregation.MonthlyBreakdown
	decode(t, rr, &months)
	assert.Equal(t, "January", months.Months[0])
	assert.Equal(t, 3135, months.Total[0])
	assert.Equal(t, 0, months.Total[5])
}

func TestExportWorkbook(t *testing.T) {
	router := newTestRouter(t, sampleDataset(t), nil)

	rr := get(t, router, "/api/dashboard/export.xlsx?start_date=2010-06-01&end_date=2011-01-03")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", rr.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="bikeshare_2011-01-01_2011-01-03.xlsx"`, rr.Header().Get("Content-Disposition"))

	f, err := excelize.OpenReader(bytes.NewReader(rr.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	assert.Contains(t, f.GetSheetList(), "Daily Orders")
}

func TestGetBounds(t *testing.T) {
	router := newTestRouter(t, sampleDataset(t), nil)

	rr := get(t, router, "/api/dataset/bounds")
	require.Equal(t, http.StatusOK, rr.Code)

	var bounds BoundsResponse
	decode(t, rr, &bounds)
	assert.Equal(t, BoundsResponse{StartDate: "2011-01-01", EndDate: "2012-06-01", Records: 4, Source: "sample"}, bounds)
}

func TestHealthCheck(t *testing.T) {
	tests := []struct {
		name     string
		store    HealthChecker
		status   int
		health   string
		database interface{}
	}{
		{"no database", nil, http.StatusOK, "healthy", nil},
		{"database ok", fakeStore{}, http.StatusOK, "healthy", "ok"},
		{"database down", fakeStore{err: errors.New("connection refused")}, http.StatusServiceUnavailable, "degraded", "connection refused"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(t, sampleDataset(t), tt.store)

			rr := get(t, router, "/health")
			require.Equal(t, tt.status, rr.Code)

			var body map[string]interface{}
			decode(t, rr, &body)
			assert.Equal(t, tt.health, body["status"])
			assert.Equal(t, tt.database, body["database"])
			assert.EqualValues(t, 4, body["records"])
		})
	}
}

func TestDocs(t *testing.T) {
	router := newTestRouter(t, sampleDataset(t), nil)

	rr := get(t, router, "/api/docs/openapi.json")
	require.Equal(t, http.StatusOK, rr.Code)
	var spec map[string]interface{}
	decode(t, rr, &spec)
	assert.Equal(t, "3.0.0", spec["openapi"])
	paths, ok := spec["paths"].(map[string]interface{})
	require.True(t, ok)
	for _, p := range []string{"/api/dashboard", "/api/rentals/weather", "/ws/dashboard", "/health"} {
		assert.Contains(t, paths, p)
	}

	rr = get(t, router, "/api/docs")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Bike Sharing Dashboard API Documentation")
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{&models.RangeError{}, http.StatusBadRequest},
		{&models.InsufficientDataError{Operation: "delta", Required: 2}, http.StatusBadRequest},
		{&models.ValidationError{Field: "start_date"}, http.StatusBadRequest},
		{fmt.Errorf("weather totals: %w", &models.UnknownEnumValueError{Enum: "weathersit", Value: 7}), http.StatusUnprocessableEntity},
		{&models.SchemaError{Column: "cnt"}, http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := StatusFor(tt.err); got != tt.want {
			t.Errorf("StatusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
