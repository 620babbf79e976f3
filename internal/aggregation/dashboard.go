package aggregation

import (
	"fmt"

	"bikeshare-dashboard/internal/dataset"
	"bikeshare-dashboard/internal/models"
)

// YearBreakdown groups the seasonal and monthly views of one year partition
type YearBreakdown struct {
	Year    int               `json:"year"`
	Seasons SeasonalBreakdown `json:"seasons"`
	Months  MonthlyBreakdown  `json:"months"`
}

// Dashboard is everything the presentation layer needs for one date range
type Dashboard struct {
	RequestedRange  models.DateRange  `json:"requested_range"`
	EffectiveRange  models.DateRange  `json:"effective_range"`
	DatasetBounds   models.DateRange  `json:"dataset_bounds"`
	Summary         Summary           `json:"summary"`
	Share           CustomerShare     `json:"customer_share"`
	DailyOrders     []DailyOrders     `json:"daily_orders"`
	RunningTotal    []int             `json:"running_total"`
	DailyComparison []DailyComparison `json:"daily_comparison"`
	Weather         []WeatherTotal    `json:"weather"`
	WeatherRanked   []WeatherTotal    `json:"weather_ranked"`
	Years           []YearBreakdown   `json:"years"`
}

// Render recomputes every derived table for the requested range
// The range is clamped to the dataset bounds; year breakdowns always cover the whole dataset
func Render(ds *dataset.Dataset, requested models.DateRange) (*Dashboard, error) {
	requested = models.NewDateRange(requested.Start, requested.End)
	if err := requested.Validate(); err != nil {
		return nil, err
	}

	effective := requested.Clamp(ds.MinDate(), ds.MaxDate())
	records := ds.Records()

	subset, err := FilterByDateRange(records, effective.Start, effective.End)
	if err != nil {
		return nil, err
	}

	daily := DailyOrderTotals(subset)
	comparison := DailyComparisonTotals(subset)

	weather, err := WeatherTotals(subset)
	if err != nil {
		return nil, fmt.Errorf("weather totals: %w", err)
	}

	summary := Summarize(daily, comparison)

	years := make([]YearBreakdown, 0, len(models.YearFlags))
	for _, flag := range models.YearFlags {
		seasons, err := SeasonalBreakdownFor(records, flag)
		if err != nil {
			return nil, fmt.Errorf("seasonal breakdown %d: %w", flag.Year(), err)
		}
		months, err := MonthlyBreakdownFor(records, flag)
		if err != nil {
			return nil, fmt.Errorf("monthly breakdown %d: %w", flag.Year(), err)
		}
		years = append(years, YearBreakdown{Year: flag.Year(), Seasons: seasons, Months: months})
	}

	return &Dashboard{
		RequestedRange:  requested,
		EffectiveRange:  effective,
		DatasetBounds:   ds.Bounds(),
		Summary:         summary,
		Share:           Share(summary),
		DailyOrders:     daily,
		RunningTotal:    RunningTotal(daily),
		DailyComparison: comparison,
		Weather:         weather,
		WeatherRanked:   SortByTotalDesc(weather),
		Years:           years,
	}, nil
}
