package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

const sampleCSV = `instant,dteday,season,yr,mnth,weathersit,casual,registered,cnt
1,2011-01-01,1,0,1,2,331,654,985
2,2011-01-02,1,0,1,2,131,670,801
3,2011-01-03,1,0,1,1,120,1229,1349
`

func writeSample(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "day.csv")
	require.NoError(t, os.WriteFile(path, []byte(sampleCSV), 0o644))
	return path
}

func TestRunPrintsReport(t *testing.T) {
	data := writeSample(t)
	var out, errOut bytes.Buffer

	err := run(context.Background(), []string{"-data", data, "-start", "2011-01-01", "-end", "2011-01-02"}, &out, &errOut)
	require.NoError(t, err, errOut.String())

	report := out.String()
	assert.Contains(t, report, "BIKE SHARING DASHBOARD")
	assert.Contains(t, report, "Effective range: 2011-01-01..2011-01-02")
	assert.Contains(t, report, "Total rentals:    1786")
	assert.Contains(t, report, "Day-over-day:     -184")
	assert.Contains(t, report, "Mist + Cloudy")
	assert.Contains(t, report, "2012 by month (total)")
}

func TestRunSingleDayHasNoDelta(t *testing.T) {
	data := writeSample(t)
	var out, errOut bytes.Buffer

	require.NoError(t, run(context.Background(), []string{"-data", data, "-start", "2011-01-03", "-end", "2011-01-03"}, &out, &errOut))
	assert.Contains(t, out.String(), "Day-over-day:     n/a")
}

func TestRunWritesWorkbook(t *testing.T) {
	data := writeSample(t)
	xlsx := filepath.Join(t.TempDir(), "dashboard.xlsx")
	var out, errOut bytes.Buffer

	require.NoError(t, run(context.Background(), []string{"-data", data, "-xlsx", xlsx}, &out, &errOut))
	assert.Contains(t, out.String(), "Workbook written to "+xlsx)

	f, err := excelize.OpenFile(xlsx)
	require.NoError(t, err)
	defer f.Close()
	assert.Contains(t, f.GetSheetList(), "Summary")
}

func TestRunErrors(t *testing.T) {
	data := writeSample(t)

	tests := []struct {
		name string
		args []string
	}{
		{"missing file", []string{"-data", filepath.Join(t.TempDir(), "nope.csv")}},
		{"bad date", []string{"-data", data, "-start", "01/01/2011"}},
		{"reversed range", []string{"-data", data, "-start", "2011-01-03", "-end", "2011-01-01"}},
		{"unknown flag", []string{"-bogus"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out, errOut bytes.Buffer
			assert.Error(t, run(context.Background(), tt.args, &out, &errOut))
		})
	}
}

func TestBar(t *testing.T) {
	tests := []struct {
		value, top int
		want       int
	}{
		{0, 100, 0},
		{100, 100, barWidth},
		{50, 100, barWidth / 2},
		{1, 1000, 1},
		{10, 0, 0},
	}
	for _, tt := range tests {
		got := len([]rune(bar(tt.value, tt.top)))
		if got != tt.want {
			t.Errorf("bar(%d, %d) width = %d, want %d", tt.value, tt.top, got, tt.want)
		}
	}
}
