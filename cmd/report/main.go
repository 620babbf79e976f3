package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"bikeshare-dashboard/internal/aggregation"
	"bikeshare-dashboard/internal/dataset"
	"bikeshare-dashboard/internal/models"
	"bikeshare-dashboard/internal/services"
	"bikeshare-dashboard/pkg/logging"
	"bikeshare-dashboard/pkg/metrics"
)

const (
	heavyRule = "════════════════════════════════════════════════════════════════"
	lightRule = "─────────────────────────────────────────────────────────────"
	barWidth  = 40
)

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run renders the dashboard for one range to out and optionally writes the workbook
func run(ctx context.Context, args []string, out, errOut io.Writer) error {
	fs := flag.NewFlagSet("report", flag.ContinueOnError)
	fs.SetOutput(errOut)
	dataPath := fs.String("data", "data/day.csv", "Rental table (.csv or .xlsx)")
	start := fs.String("start", "", "First day YYYY-MM-DD (default: first day of the dataset)")
	end := fs.String("end", "", "Last day YYYY-MM-DD (default: last day of the dataset)")
	xlsxPath := fs.String("xlsx", "", "Also write the dashboard workbook to this path")
	logLevel := fs.String("log-level", "warn", "Log level written to stderr")
	if err := fs.Parse(args); err != nil {
		return err
	}

	logger := logging.NewStructuredLogger("bikeshare-report", "1.0.0", logging.ParseLevel(*logLevel))
	logger.SetOutput(errOut)
	metricsCollector := metrics.NewCollector("bikeshare_report", prometheus.NewRegistry())

	ds, err := dataset.Load(*dataPath)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", *dataPath, err)
	}

	bounds := ds.Bounds()
	startDate, err := dateFlag(*start, bounds.Start)
	if err != nil {
		return err
	}
	endDate, err := dateFlag(*end, bounds.End)
	if err != nil {
		return err
	}

	dashboardService := services.NewDashboardService(ds, logger, metricsCollector)
	d, err := dashboardService.Render(ctx, models.NewDateRange(startDate, endDate))
	if err != nil {
		return err
	}

	printReport(out, d)

	if *xlsxPath != "" {
		f, err := os.Create(*xlsxPath)
		if err != nil {
			return fmt.Errorf("failed to create workbook: %w", err)
		}
		if err := services.NewExportService(logger).WriteWorkbook(ctx, f, d); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("failed to close workbook: %w", err)
		}
		fmt.Fprintf(out, "Workbook written to %s\n", *xlsxPath)
	}
	return nil
}

func dateFlag(value string, fallback time.Time) (time.Time, error) {
	if value == "" {
		return fallback, nil
	}
	return models.ParseDate(value)
}

// printReport writes the dashboard as a plain-text report
func printReport(w io.Writer, d *aggregation.Dashboard) {
	fmt.Fprintln(w, heavyRule)
	fmt.Fprintln(w, "BIKE SHARING DASHBOARD")
	fmt.Fprintln(w, heavyRule)
	fmt.Fprintf(w, "Dataset:         %s\n", d.DatasetBounds)
	fmt.Fprintf(w, "Requested range: %s\n", d.RequestedRange)
	fmt.Fprintf(w, "Effective range: %s\n", d.EffectiveRange)
	fmt.Fprintln(w)

	s := d.Summary
	fmt.Fprintf(w, "Total rentals:    %d\n", s.TotalRentals)
	fmt.Fprintf(w, "Casual:           %d (%.1f%%)\n", s.CasualTotal, d.Share.CasualPercent)
	fmt.Fprintf(w, "Registered:       %d (%.1f%%)\n", s.RegisteredTotal, d.Share.RegisteredPercent)
	fmt.Fprintf(w, "Days with data:   %d\n", s.DayCount)
	fmt.Fprintf(w, "Distinct records: %d\n", s.RecordCount)
	if s.Delta != nil {
		fmt.Fprintf(w, "Day-over-day:     %+d\n", *s.Delta)
	} else {
		fmt.Fprintf(w, "Day-over-day:     n/a (%s)\n", s.DeltaError)
	}
	fmt.Fprintln(w)

	section(w, "Rentals by weather")
	top := 0
	for _, wt := range d.WeatherRanked {
		if wt.TotalCount > top {
			top = wt.TotalCount
		}
	}
	for _, wt := range d.WeatherRanked {
		fmt.Fprintf(w, "  %-24s %8d %s\n", wt.Label, wt.TotalCount, bar(wt.TotalCount, top))
	}
	if len(d.WeatherRanked) == 0 {
		fmt.Fprintln(w, "  no rentals in range")
	}
	fmt.Fprintln(w)

	for _, y := range d.Years {
		section(w, fmt.Sprintf("%d by season (casual / registered)", y.Year))
		for i, label := range y.Seasons.Seasons {
			fmt.Fprintf(w, "  %-8s %8d / %8d\n", label, y.Seasons.Casual[i], y.Seasons.Registered[i])
		}
		fmt.Fprintln(w)

		section(w, fmt.Sprintf("%d by month (total)", y.Year))
		monthMax := 0
		for _, total := range y.Months.Total {
			if total > monthMax {
				monthMax = total
			}
		}
		for i, label := range y.Months.Months {
			fmt.Fprintf(w, "  %-10s %8d %s\n", label, y.Months.Total[i], bar(y.Months.Total[i], monthMax))
		}
		fmt.Fprintln(w)
	}
}

func section(w io.Writer, title string) {
	fmt.Fprintln(w, lightRule)
	fmt.Fprintln(w, title)
	fmt.Fprintln(w, lightRule)
}

func bar(value, top int) string {
	if top <= 0 || value <= 0 {
		return ""
	}
	n := value * barWidth / top
	if n == 0 {
		n = 1
	}
	return strings.Repeat("█", n)
}
