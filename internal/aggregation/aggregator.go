// Package aggregation derives the dashboard tables from the rental dataset.
//
// Every function here is pure: inputs are never modified and each call returns
// freshly allocated output, so identical inputs always give identical results.
package aggregation

import (
	"sort"
	"time"

	"bikeshare-dashboard/internal/models"
)

// DailyOrders is one row of the daily order totals table
type DailyOrders struct {
	Date        time.Time `json:"date"`
	RecordCount int       `json:"distinct_record_count"`
	TotalCount  int       `json:"total_count"`
}

// DailyComparison is one row of the casual vs registered table
type DailyComparison struct {
	Date            time.Time `json:"date"`
	RecordCount     int       `json:"distinct_record_count"`
	CasualCount     int       `json:"casual_count"`
	RegisteredCount int       `json:"registered_count"`
	TotalCount      int       `json:"total_count"`
}

// WeatherTotal is the rental total for one weather situation
type WeatherTotal struct {
	Situation  models.WeatherSituation `json:"weather_situation"`
	Label      string                  `json:"label"`
	TotalCount int                     `json:"total_count"`
}

// SeasonalBreakdown holds per-season sums for one year partition
// Series are positional in models.Seasons order
type SeasonalBreakdown struct {
	YearFlag   models.YearFlag `json:"year_flag"`
	Year       int             `json:"year"`
	Seasons    [4]string       `json:"seasons"`
	Casual     [4]int          `json:"casual_by_season"`
	Registered [4]int          `json:"registered_by_season"`
}

// MonthlyBreakdown holds per-month sums for one year partition
// Index 0 is January
type MonthlyBreakdown struct {
	YearFlag   models.YearFlag              `json:"year_flag"`
	Year       int                          `json:"year"`
	Months     [models.MonthsPerYear]string `json:"months"`
	Casual     [models.MonthsPerYear]int    `json:"casual_by_month"`
	Registered [models.MonthsPerYear]int    `json:"registered_by_month"`
	Total      [models.MonthsPerYear]int    `json:"total_by_month"`
}

// FilterByDateRange returns the records dated within [start, end], in input order
func FilterByDateRange(records []models.RentalRecord, start, end time.Time) ([]models.RentalRecord, error) {
	r := models.NewDateRange(start, end)
	if err := r.Validate(); err != nil {
		return nil, err
	}

	subset := make([]models.RentalRecord, 0, len(records))
	for _, rec := range records {
		if r.Contains(rec.Date) {
			subset = append(subset, rec)
		}
	}
	return subset, nil
}

// dayBucket accumulates one calendar day of records
type dayBucket struct {
	ids        map[int64]struct{}
	casual     int
	registered int
	total      int
}

// resampleDaily groups records into one bucket per calendar day
// Days between the first and last record with no rows get empty buckets
func resampleDaily(subset []models.RentalRecord) ([]time.Time, map[time.Time]*dayBucket) {
	buckets := make(map[time.Time]*dayBucket)
	if len(subset) == 0 {
		return nil, buckets
	}

	first := models.TruncateDay(subset[0].Date)
	last := first
	for _, rec := range subset {
		day := models.TruncateDay(rec.Date)
		if day.Before(first) {
			first = day
		}
		if day.After(last) {
			last = day
		}

		b, ok := buckets[day]
		if !ok {
			b = &dayBucket{ids: make(map[int64]struct{})}
			buckets[day] = b
		}
		b.ids[rec.RecordID] = struct{}{}
		b.casual += rec.CasualCount
		b.registered += rec.RegisteredCount
		b.total += rec.TotalCount
	}

	days := make([]time.Time, 0, int(last.Sub(first).Hours()/24)+1)
	for day := first; !day.After(last); day = day.AddDate(0, 0, 1) {
		if _, ok := buckets[day]; !ok {
			buckets[day] = &dayBucket{ids: map[int64]struct{}{}}
		}
		days = append(days, day)
	}
	return days, buckets
}

// DailyOrderTotals resamples the subset by day: distinct record count and rental sum
func DailyOrderTotals(subset []models.RentalRecord) []DailyOrders {
	days, buckets := resampleDaily(subset)

	out := make([]DailyOrders, 0, len(days))
	for _, day := range days {
		b := buckets[day]
		out = append(out, DailyOrders{
			Date:        day,
			RecordCount: len(b.ids),
			TotalCount:  b.total,
		})
	}
	return out
}

// DailyComparisonTotals resamples the subset by day with casual and registered sums
func DailyComparisonTotals(subset []models.RentalRecord) []DailyComparison {
	days, buckets := resampleDaily(subset)

	out := make([]DailyComparison, 0, len(days))
	for _, day := range days {
		b := buckets[day]
		out = append(out, DailyComparison{
			Date:            day,
			RecordCount:     len(b.ids),
			CasualCount:     b.casual,
			RegisteredCount: b.registered,
			TotalCount:      b.total,
		})
	}
	return out
}

// WeatherTotals sums rentals per weather situation, ascending by weather code
// Only situations present in the subset appear
func WeatherTotals(subset []models.RentalRecord) ([]WeatherTotal, error) {
	sums := make(map[models.WeatherSituation]int)
	for _, rec := range subset {
		if !rec.WeatherSituation.Valid() {
			return nil, &models.UnknownEnumValueError{Enum: "weathersit", Value: int(rec.WeatherSituation)}
		}
		sums[rec.WeatherSituation] += rec.TotalCount
	}

	out := make([]WeatherTotal, 0, len(sums))
	for _, w := range models.WeatherSituations {
		total, ok := sums[w]
		if !ok {
			continue
		}
		label, err := w.Label()
		if err != nil {
			return nil, err
		}
		out = append(out, WeatherTotal{Situation: w, Label: label, TotalCount: total})
	}
	return out, nil
}

// SortByTotalDesc returns a copy of totals ordered by descending rental count
// Ties keep weather code order
func SortByTotalDesc(totals []WeatherTotal) []WeatherTotal {
	out := make([]WeatherTotal, len(totals))
	copy(out, totals)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].TotalCount > out[j].TotalCount
	})
	return out
}

// SeasonalBreakdownFor sums casual and registered rentals per season for one year partition
func SeasonalBreakdownFor(records []models.RentalRecord, flag models.YearFlag) (SeasonalBreakdown, error) {
	if !flag.Valid() {
		return SeasonalBreakdown{}, &models.UnknownEnumValueError{Enum: "yr", Value: int(flag)}
	}

	out := SeasonalBreakdown{YearFlag: flag, Year: flag.Year()}
	for _, s := range models.Seasons {
		out.Seasons[s.Index()] = s.Label()
	}

	for _, rec := range records {
		if rec.YearFlag != flag {
			continue
		}
		if !rec.Season.Valid() {
			return SeasonalBreakdown{}, &models.UnknownEnumValueError{Enum: "season", Value: int(rec.Season)}
		}
		out.Casual[rec.Season.Index()] += rec.CasualCount
		out.Registered[rec.Season.Index()] += rec.RegisteredCount
	}
	return out, nil
}

// MonthlyBreakdownFor sums each count field per month for one year partition
func MonthlyBreakdownFor(records []models.RentalRecord, flag models.YearFlag) (MonthlyBreakdown, error) {
	if !flag.Valid() {
		return MonthlyBreakdown{}, &models.UnknownEnumValueError{Enum: "yr", Value: int(flag)}
	}

	out := MonthlyBreakdown{YearFlag: flag, Year: flag.Year()}
	for m := 1; m <= models.MonthsPerYear; m++ {
		out.Months[m-1] = models.MonthLabel(m)
	}

	for _, rec := range records {
		if rec.YearFlag != flag {
			continue
		}
		if !models.ValidMonth(rec.Month) {
			return MonthlyBreakdown{}, &models.UnknownEnumValueError{Enum: "month", Value: rec.Month}
		}
		i := rec.Month - 1
		out.Casual[i] += rec.CasualCount
		out.Registered[i] += rec.RegisteredCount
		out.Total[i] += rec.TotalCount
	}
	return out, nil
}
