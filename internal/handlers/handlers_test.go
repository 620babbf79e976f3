package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"bikeshare-dashboard/internal/dataset"
	"bikeshare-dashboard/internal/services"
	"bikeshare-dashboard/pkg/logging"
	"bikeshare-dashboard/pkg/metrics"
)

const sampleCSV = `instant,dteday,season,yr,mnth,weathersit,casual,registered,cnt
1,2011-01-01,1,0,1,2,331,654,985
2,2011-01-02,1,0,1,2,131,670,801
3,2011-01-03,1,0,1,1,120,1229,1349
4,2012-06-01,2,1,6,3,50,150,200
`

func testLogger() *logging.StructuredLogger {
	logger := logging.NewStructuredLogger("handlers-test", "test", logging.DebugLevel)
	logger.SetOutput(io.Discard)
	return logger
}

func testMetrics() *metrics.Collector {
	return metrics.NewCollector("handlers_test", prometheus.NewRegistry())
}

func sampleDataset(t *testing.T) *dataset.Dataset {
	t.Helper()
	ds, err := dataset.ReadCSV("sample", strings.NewReader(sampleCSV))
	require.NoError(t, err)
	return ds
}

type fakeStore struct {
	err error
}

func (f fakeStore) HealthCheck(ctx context.Context) error {
	return f.err
}

func newTestRouter(t *testing.T, ds *dataset.Dataset, store HealthChecker) *mux.Router {
	t.Helper()
	logger := testLogger()
	m := testMetrics()

	dashboard := services.NewDashboardService(ds, logger, m)
	h := NewDashboardHandler(dashboard, services.NewExportService(logger), store, logger, m)

	router := mux.NewRouter()
	h.RegisterRoutes(router)
	return router
}

func get(t *testing.T, router http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), v), rr.Body.String())
}
