package aggregation

import "bikeshare-dashboard/internal/models"

// Summary holds the scalar metrics shown above the charts
type Summary struct {
	TotalRentals    int    `json:"total_rentals"`
	CasualTotal     int    `json:"casual_total"`
	RegisteredTotal int    `json:"registered_total"`
	RecordCount     int    `json:"record_count"`
	DayCount        int    `json:"day_count"`
	Delta           *int   `json:"day_over_day_delta"`
	DeltaError      string `json:"day_over_day_delta_error,omitempty"`
}

// CustomerShare is the casual vs registered split in percent
type CustomerShare struct {
	CasualPercent     float64 `json:"casual_percent"`
	RegisteredPercent float64 `json:"registered_percent"`
}

// DayOverDayDelta returns total[last] - total[second to last]
func DayOverDayDelta(daily []DailyOrders) (int, error) {
	if len(daily) < 2 {
		return 0, &models.InsufficientDataError{
			Operation: "day-over-day delta",
			Required:  2,
			Available: len(daily),
		}
	}
	return daily[len(daily)-1].TotalCount - daily[len(daily)-2].TotalCount, nil
}

// RunningTotal returns the cumulative rental count per day
func RunningTotal(daily []DailyOrders) []int {
	out := make([]int, len(daily))
	sum := 0
	for i, d := range daily {
		sum += d.TotalCount
		out[i] = sum
	}
	return out
}

// Summarize computes the per-range scalar sums
// Empty inputs give zero sums and a delta error instead of a delta
func Summarize(daily []DailyOrders, comparison []DailyComparison) Summary {
	var s Summary
	for _, d := range daily {
		s.TotalRentals += d.TotalCount
		s.RecordCount += d.RecordCount
		if d.RecordCount > 0 {
			s.DayCount++
		}
	}
	for _, c := range comparison {
		s.CasualTotal += c.CasualCount
		s.RegisteredTotal += c.RegisteredCount
	}

	if delta, err := DayOverDayDelta(daily); err != nil {
		s.DeltaError = err.Error()
	} else {
		s.Delta = &delta
	}
	return s
}

// Share splits the summary's customers into casual and registered percentages
func Share(s Summary) CustomerShare {
	customers := s.CasualTotal + s.RegisteredTotal
	if customers == 0 {
		return CustomerShare{}
	}
	return CustomerShare{
		CasualPercent:     100 * float64(s.CasualTotal) / float64(customers),
		RegisteredPercent: 100 * float64(s.RegisteredTotal) / float64(customers),
	}
}
