// Package dataset holds the immutable in-memory rental table and its loaders.
package dataset

import (
	"sort"
	"time"

	"bikeshare-dashboard/internal/models"
)

// Dataset is the rental table loaded once at startup
// It is never mutated after construction, so it is safe for concurrent readers
type Dataset struct {
	records []models.RentalRecord
	minDate time.Time
	maxDate time.Time
	source  string
}

// New builds a dataset from records, sorted ascending by date then record id
func New(source string, records []models.RentalRecord) (*Dataset, error) {
	if len(records) == 0 {
		return nil, models.ErrEmptyDataset
	}

	sorted := make([]models.RentalRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].Date.Equal(sorted[j].Date) {
			return sorted[i].Date.Before(sorted[j].Date)
		}
		return sorted[i].RecordID < sorted[j].RecordID
	})

	return &Dataset{
		records: sorted,
		minDate: sorted[0].Date,
		maxDate: sorted[len(sorted)-1].Date,
		source:  source,
	}, nil
}

// Records returns a copy of all records in date order
func (d *Dataset) Records() []models.RentalRecord {
	out := make([]models.RentalRecord, len(d.records))
	copy(out, d.records)
	return out
}

// Len returns the number of records
func (d *Dataset) Len() int {
	return len(d.records)
}

// MinDate returns the earliest record date
func (d *Dataset) MinDate() time.Time {
	return d.minDate
}

// MaxDate returns the latest record date
func (d *Dataset) MaxDate() time.Time {
	return d.maxDate
}

// Bounds returns [MinDate, MaxDate] as a range
func (d *Dataset) Bounds() models.DateRange {
	return models.DateRange{Start: d.minDate, End: d.maxDate}
}

// Source describes where the dataset was loaded from
func (d *Dataset) Source() string {
	return d.source
}

// YearPartition returns the records flagged with the given year
func (d *Dataset) YearPartition(flag models.YearFlag) []models.RentalRecord {
	out := make([]models.RentalRecord, 0, len(d.records)/2+1)
	for _, rec := range d.records {
		if rec.YearFlag == flag {
			out = append(out, rec)
		}
	}
	return out
}
