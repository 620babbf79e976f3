package database

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bikeshare-dashboard/pkg/logging"
	"bikeshare-dashboard/pkg/metrics"
)

func openSQLite(t *testing.T) (*DB, *metrics.Collector) {
	t.Helper()
	logger := logging.NewStructuredLogger("database-test", "test", logging.ErrorLevel)
	logger.SetOutput(io.Discard)
	m := metrics.NewCollector("database_test", prometheus.NewRegistry())

	db, err := New(Config{Driver: DriverSQLite, Path: filepath.Join(t.TempDir(), "test.db")}, logger, m)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, m
}

func TestConfig_DSN(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		want    string
		wantErr bool
	}{
		{
			name: "postgres",
			cfg:  Config{Driver: DriverPostgres, Host: "db", Port: 5432, User: "u", Password: "p", Database: "bikes", SSLMode: "disable"},
			want: "host=db port=5432 user=u password=p dbname=bikes sslmode=disable",
		},
		{
			name: "sqlite",
			cfg:  Config{Driver: DriverSQLite, Path: "/tmp/bikes.db"},
			want: "file:/tmp/bikes.db?_busy_timeout=5000&_journal_mode=WAL",
		},
		{name: "sqlite without path", cfg: Config{Driver: DriverSQLite}, wantErr: true},
		{name: "unknown driver", cfg: Config{Driver: "mysql"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.cfg.DSN()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDB_SQLiteRoundTrip(t *testing.T) {
	db, m := openSQLite(t)
	ctx := context.Background()

	require.NoError(t, db.HealthCheck(ctx))
	assert.Equal(t, DriverSQLite, db.Driver())

	_, err := db.ExecContext(ctx, "create", "CREATE TABLE kv (k TEXT PRIMARY KEY, v INTEGER NOT NULL)")
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, "insert", "INSERT INTO kv (k, v) VALUES (?, ?), (?, ?)", "a", 1, "b", 2)
	require.NoError(t, err)

	var total int
	require.NoError(t, db.GetContext(ctx, "sum", &total, "SELECT SUM(v) FROM kv WHERE k IN (?, ?)", "a", "b"))
	assert.Equal(t, 3, total)

	var keys []string
	require.NoError(t, db.SelectContext(ctx, "keys", &keys, "SELECT k FROM kv ORDER BY k"))
	assert.Equal(t, []string{"a", "b"}, keys)

	var missing int
	err = db.GetContext(ctx, "missing", &missing, "SELECT v FROM kv WHERE k = ?", "zzz")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.DBErrorsTotal.WithLabelValues("get_error")), "no rows is not a db error")

	_, err = db.QueryContext(ctx, "bad", "SELECT nope FROM kv")
	assert.Error(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DBErrorsTotal.WithLabelValues("query_error")))
}

func TestDB_WithTx(t *testing.T) {
	db, _ := openSQLite(t)
	ctx := context.Background()

	_, err := db.ExecContext(ctx, "create", "CREATE TABLE kv (k TEXT PRIMARY KEY, v INTEGER NOT NULL)")
	require.NoError(t, err)

	boom := errors.New("boom")
	err = db.WithTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, "INSERT INTO kv (k, v) VALUES ('x', 1)"); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	var count int
	require.NoError(t, db.GetContext(ctx, "count", &count, "SELECT COUNT(*) FROM kv"))
	assert.Equal(t, 0, count, "rolled back")

	err = db.WithTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, "INSERT INTO kv (k, v) VALUES ('y', 2)")
		return err
	})
	require.NoError(t, err)
	require.NoError(t, db.GetContext(ctx, "count", &count, "SELECT COUNT(*) FROM kv"))
	assert.Equal(t, 1, count)
}

func TestNew_UnknownDriver(t *testing.T) {
	logger := logging.NewStructuredLogger("database-test", "test", logging.ErrorLevel)
	logger.SetOutput(io.Discard)

	_, err := New(Config{Driver: "oracle"}, logger, metrics.NewCollector("database_test", prometheus.NewRegistry()))
	assert.Error(t, err)
}
