package dataset

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"bikeshare-dashboard/internal/models"
)

// Required source columns
const (
	ColumnDate       = "dteday"
	ColumnYear       = "yr"
	ColumnSeason     = "season"
	ColumnMonth      = "mnth"
	ColumnWeather    = "weathersit"
	ColumnCasual     = "casual"
	ColumnRegistered = "registered"
	ColumnCount      = "cnt"
	ColumnInstant    = "instant"
)

// RequiredColumns lists the columns every source must carry
var RequiredColumns = []string{
	ColumnInstant,
	ColumnDate,
	ColumnSeason,
	ColumnYear,
	ColumnMonth,
	ColumnWeather,
	ColumnCasual,
	ColumnRegistered,
	ColumnCount,
}

// Load reads a dataset from a CSV or XLSX file, chosen by extension
func Load(path string) (*Dataset, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return LoadXLSX(path, "")
	case ".csv", "":
		return LoadCSV(path)
	default:
		return nil, fmt.Errorf("unsupported dataset format: %s", filepath.Ext(path))
	}
}

// LoadCSV reads a dataset from a CSV file
func LoadCSV(path string) (*Dataset, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset: %w", err)
	}
	defer file.Close()

	return ReadCSV(filepath.Base(path), file)
}

// ReadCSV reads a dataset from CSV content
// Every column is read as a string so that type coercion stays in models
func ReadCSV(source string, r io.Reader) (*Dataset, error) {
	df := dataframe.ReadCSV(r,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
	)
	if df.Err != nil {
		return nil, fmt.Errorf("failed to read CSV %s: %w", source, df.Err)
	}

	// header cells may carry padding, as in "instant, dteday"
	names := df.Names()
	for i := range names {
		names[i] = strings.TrimSpace(names[i])
	}
	if err := df.SetNames(names...); err != nil {
		return nil, fmt.Errorf("failed to read CSV header %s: %w", source, err)
	}

	if err := checkSchema(source, names); err != nil {
		return nil, err
	}

	projected := df.Select(RequiredColumns)
	if projected.Err != nil {
		return nil, fmt.Errorf("failed to select columns from %s: %w", source, projected.Err)
	}

	// Records() yields the header row followed by the data rows
	rows := projected.Records()
	return fromRows(source, rows[0], rows[1:])
}

// checkSchema reports the first required column absent from header
func checkSchema(source string, header []string) error {
	present := make(map[string]bool, len(header))
	for _, name := range header {
		present[strings.TrimSpace(name)] = true
	}
	for _, col := range RequiredColumns {
		if !present[col] {
			return &models.SchemaError{Column: col, Source: source}
		}
	}
	return nil
}

// fromRows converts header-addressed string rows into a dataset
// The first failing row aborts the whole load
func fromRows(source string, header []string, rows [][]string) (*Dataset, error) {
	if err := checkSchema(source, header); err != nil {
		return nil, err
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(name)] = i
	}

	cell := func(row []string, col string) string {
		i := index[col]
		if i >= len(row) {
			return ""
		}
		return row[i]
	}

	records := make([]models.RentalRecord, 0, len(rows))
	for i, row := range rows {
		raw := models.RawRentalRecord{
			Date:       cell(row, ColumnDate),
			Year:       cell(row, ColumnYear),
			Season:     cell(row, ColumnSeason),
			Month:      cell(row, ColumnMonth),
			Weather:    cell(row, ColumnWeather),
			Casual:     cell(row, ColumnCasual),
			Registered: cell(row, ColumnRegistered),
			Count:      cell(row, ColumnCount),
			Instant:    cell(row, ColumnInstant),
		}

		rec, err := raw.ToRecord()
		if err != nil {
			// Row numbers are 1-based and count the header line
			return nil, fmt.Errorf("%s row %d: %w", source, i+2, err)
		}
		records = append(records, *rec)
	}

	return New(source, records)
}
