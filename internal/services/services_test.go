package services

import (
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"bikeshare-dashboard/internal/dataset"
	"bikeshare-dashboard/internal/models"
	"bikeshare-dashboard/internal/repository"
	"bikeshare-dashboard/pkg/database"
	"bikeshare-dashboard/pkg/logging"
	"bikeshare-dashboard/pkg/metrics"
)

const sampleCSV = `instant,dteday,season,yr,mnth,weathersit,casual,registered,cnt
1,2011-01-01,1,0,1,2,331,654,985
2,2011-01-02,1,0,1,2,131,670,801
3,2011-01-03,1,0,1,1,120,1229,1349
4,2012-06-01,2,1,6,3,50,150,200
`

func day(y int, mo time.Month, d int) time.Time {
	return time.Date(y, mo, d, 0, 0, 0, 0, time.UTC)
}

func testLogger() *logging.StructuredLogger {
	logger := logging.NewStructuredLogger("services-test", "test", logging.DebugLevel)
	logger.SetOutput(io.Discard)
	return logger
}

func testMetrics() *metrics.Collector {
	return metrics.NewCollector("services_test", prometheus.NewRegistry())
}

func sampleDataset(t *testing.T) *dataset.Dataset {
	t.Helper()
	ds, err := dataset.ReadCSV("sample", strings.NewReader(sampleCSV))
	require.NoError(t, err)
	return ds
}

func newRepository(t *testing.T, m *metrics.Collector) repository.RentalRepository {
	t.Helper()
	db, err := database.New(database.Config{
		Driver: database.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "services.db"),
	}, testLogger(), m)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := repository.NewRentalRepository(db, testLogger(), m)
	require.NoError(t, repo.Migrate(context.Background()))
	return repo
}

func fullRange() models.DateRange {
	return models.NewDateRange(day(2011, 1, 1), day(2012, 12, 31))
}
