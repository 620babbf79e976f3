package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the calendar date format used by the dataset and the API
const DateLayout = "2006-01-02"

// dateLayouts lists the accepted encodings of the dteday column, most common first
var dateLayouts = []string{
	DateLayout,
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006/01/02",
	"20060102",
}

// RentalRecord represents one day of bike rentals
// Immutable once loaded into a dataset
type RentalRecord struct {
	RecordID         int64            `json:"record_id" db:"instant"`
	Date             time.Time        `json:"date" db:"dteday"`
	YearFlag         YearFlag         `json:"year_flag" db:"yr"`
	Season           Season           `json:"season" db:"season"`
	Month            int              `json:"month" db:"mnth"`
	WeatherSituation WeatherSituation `json:"weather_situation" db:"weathersit"`
	CasualCount      int              `json:"casual_count" db:"casual"`
	RegisteredCount  int              `json:"registered_count" db:"registered"`
	TotalCount       int              `json:"total_count" db:"cnt"`
}

// RawRentalRecord represents a single row of the source table before type coercion
// Used by the CSV and XLSX loaders
type RawRentalRecord struct {
	Date       string
	Year       string
	Season     string
	Month      string
	Weather    string
	Casual     string
	Registered string
	Count      string
	Instant    string
}

// ToRecord converts RawRentalRecord to RentalRecord
// Enumerated columns are checked against their lookup tables
func (r *RawRentalRecord) ToRecord() (*RentalRecord, error) {
	date, err := ParseDate(r.Date)
	if err != nil {
		return nil, err
	}

	id, err := parseInt64Field("instant", r.Instant)
	if err != nil {
		return nil, err
	}

	yr, err := parseIntField("yr", r.Year)
	if err != nil {
		return nil, err
	}
	yearFlag, err := ParseYearFlag(yr)
	if err != nil {
		return nil, err
	}

	seasonCode, err := parseIntField("season", r.Season)
	if err != nil {
		return nil, err
	}
	season, err := ParseSeason(seasonCode)
	if err != nil {
		return nil, err
	}

	month, err := parseIntField("mnth", r.Month)
	if err != nil {
		return nil, err
	}
	if !ValidMonth(month) {
		return nil, &UnknownEnumValueError{Enum: "month", Value: month}
	}

	weatherCode, err := parseIntField("weathersit", r.Weather)
	if err != nil {
		return nil, err
	}
	weather, err := ParseWeatherSituation(weatherCode)
	if err != nil {
		return nil, err
	}

	record := &RentalRecord{
		RecordID:         id,
		Date:             date,
		YearFlag:         yearFlag,
		Season:           season,
		Month:            month,
		WeatherSituation: weather,
	}

	// Counts are non-negative integers
	counts := []struct {
		field string
		raw   string
		dest  *int
	}{
		{"casual", r.Casual, &record.CasualCount},
		{"registered", r.Registered, &record.RegisteredCount},
		{"cnt", r.Count, &record.TotalCount},
	}
	for _, c := range counts {
		v, err := parseIntField(c.field, c.raw)
		if err != nil {
			return nil, err
		}
		if v < 0 {
			return nil, &ValidationError{
				Field:   c.field,
				Value:   c.raw,
				Message: fmt.Sprintf("%s must be non-negative", c.field),
			}
		}
		*c.dest = v
	}

	return record, nil
}

// ParseDate parses a dteday value and truncates it to a UTC calendar day
func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return TruncateDay(t), nil
		}
	}
	return time.Time{}, &ValidationError{
		Field:   "dteday",
		Value:   value,
		Message: "invalid date format, expected YYYY-MM-DD",
	}
}

// TruncateDay returns midnight UTC of the calendar day t falls on
func TruncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func parseIntField(field, value string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, &ValidationError{
			Field:   field,
			Value:   value,
			Message: fmt.Sprintf("invalid %s, expected integer", field),
		}
	}
	return v, nil
}

func parseInt64Field(field, value string) (int64, error) {
	v, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil {
		return 0, &ValidationError{
			Field:   field,
			Value:   value,
			Message: fmt.Sprintf("invalid %s, expected integer", field),
		}
	}
	return v, nil
}

// DateRange is an inclusive range of calendar days
type DateRange struct {
	Start time.Time `json:"start_date"`
	End   time.Time `json:"end_date"`
}

// NewDateRange builds a range over the calendar days of start and end
func NewDateRange(start, end time.Time) DateRange {
	return DateRange{Start: TruncateDay(start), End: TruncateDay(end)}
}

// Validate reports a RangeError when the range is reversed
func (r DateRange) Validate() error {
	if r.Start.After(r.End) {
		return &RangeError{Start: r.Start, End: r.End}
	}
	return nil
}

// Contains reports whether the calendar day of t lies within the range
func (r DateRange) Contains(t time.Time) bool {
	day := TruncateDay(t)
	return !day.Before(r.Start) && !day.After(r.End)
}

// Intersects reports whether the range overlaps [first, last]
func (r DateRange) Intersects(first, last time.Time) bool {
	return !r.End.Before(TruncateDay(first)) && !r.Start.After(TruncateDay(last))
}

// Clamp narrows the range to [first, last]
// A range outside the bounds is returned unchanged so that filtering yields nothing
func (r DateRange) Clamp(first, last time.Time) DateRange {
	if !r.Intersects(first, last) {
		return r
	}
	clamped := r
	if clamped.Start.Before(TruncateDay(first)) {
		clamped.Start = TruncateDay(first)
	}
	if clamped.End.After(TruncateDay(last)) {
		clamped.End = TruncateDay(last)
	}
	return clamped
}

// Days returns the number of calendar days covered by the range
func (r DateRange) Days() int {
	if r.Start.After(r.End) {
		return 0
	}
	return int(r.End.Sub(r.Start).Hours()/24) + 1
}

// String renders the range as "start..end"
func (r DateRange) String() string {
	return r.Start.Format(DateLayout) + ".." + r.End.Format(DateLayout)
}
