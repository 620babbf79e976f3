package services

import (
	"context"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"bikeshare-dashboard/internal/aggregation"
	"bikeshare-dashboard/internal/models"
	"bikeshare-dashboard/pkg/logging"
)

// Workbook sheet names, in order
const (
	SheetSummary   = "Summary"
	SheetDaily     = "Daily Orders"
	SheetCustomers = "Customers"
	SheetWeather   = "Weather"
	SheetSeasons   = "Seasons"
	SheetMonths    = "Months"
	defaultSheet   = "Sheet1"
)

// ExportService writes rendered dashboards as XLSX workbooks
type ExportService struct {
	logger *logging.StructuredLogger
}

// NewExportService creates a new export service
func NewExportService(logger *logging.StructuredLogger) *ExportService {
	return &ExportService{logger: logger}
}

// WriteWorkbook writes one sheet per dashboard table to w
func (s *ExportService) WriteWorkbook(ctx context.Context, w io.Writer, d *aggregation.Dashboard) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(defaultSheet, SheetSummary); err != nil {
		return fmt.Errorf("failed to name summary sheet: %w", err)
	}
	for _, name := range []string{SheetDaily, SheetCustomers, SheetWeather, SheetSeasons, SheetMonths} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("failed to create sheet %s: %w", name, err)
		}
	}

	writers := []struct {
		sheet string
		rows  [][]interface{}
	}{
		{SheetSummary, summaryRows(d)},
		{SheetDaily, dailyRows(d)},
		{SheetCustomers, customerRows(d)},
		{SheetWeather, weatherRows(d)},
		{SheetSeasons, seasonRows(d)},
		{SheetMonths, monthRows(d)},
	}
	for _, sw := range writers {
		if err := writeRows(f, sw.sheet, sw.rows); err != nil {
			return err
		}
	}

	if err := f.SetColWidth(SheetSummary, "A", "A", 28); err != nil {
		return fmt.Errorf("failed to size summary column: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}

	s.logger.Info(ctx, "[EXPORT_COMPLETE] Dashboard workbook written", logging.Fields{
		"effective_range": d.EffectiveRange.String(),
		"days":            len(d.DailyOrders),
	})
	return nil
}

func writeRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		row := row
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

func summaryRows(d *aggregation.Dashboard) [][]interface{} {
	var delta interface{} = d.Summary.DeltaError
	if d.Summary.Delta != nil {
		delta = *d.Summary.Delta
	}
	return [][]interface{}{
		{"Metric", "Value"},
		{"Requested range", d.RequestedRange.String()},
		{"Effective range", d.EffectiveRange.String()},
		{"Dataset bounds", d.DatasetBounds.String()},
		{"Total rentals", d.Summary.TotalRentals},
		{"Casual rentals", d.Summary.CasualTotal},
		{"Registered rentals", d.Summary.RegisteredTotal},
		{"Casual share %", d.Share.CasualPercent},
		{"Registered share %", d.Share.RegisteredPercent},
		{"Records", d.Summary.RecordCount},
		{"Days with data", d.Summary.DayCount},
		{"Day-over-day delta", delta},
	}
}

func dailyRows(d *aggregation.Dashboard) [][]interface{} {
	rows := [][]interface{}{{"Date", "Records", "Total", "Running total"}}
	for i, day := range d.DailyOrders {
		rows = append(rows, []interface{}{day.Date.Format(models.DateLayout), day.RecordCount, day.TotalCount, d.RunningTotal[i]})
	}
	return rows
}

func customerRows(d *aggregation.Dashboard) [][]interface{} {
	rows := [][]interface{}{{"Date", "Records", "Casual", "Registered", "Total"}}
	for _, day := range d.DailyComparison {
		rows = append(rows, []interface{}{day.Date.Format(models.DateLayout), day.RecordCount, day.CasualCount, day.RegisteredCount, day.TotalCount})
	}
	return rows
}

func weatherRows(d *aggregation.Dashboard) [][]interface{} {
	rows := [][]interface{}{{"Code", "Weather", "Total"}}
	for _, w := range d.WeatherRanked {
		rows = append(rows, []interface{}{int(w.Situation), w.Label, w.TotalCount})
	}
	return rows
}

func seasonRows(d *aggregation.Dashboard) [][]interface{} {
	rows := [][]interface{}{{"Year", "Season", "Casual", "Registered"}}
	for _, y := range d.Years {
		for i, season := range y.Seasons.Seasons {
			rows = append(rows, []interface{}{y.Year, season, y.Seasons.Casual[i], y.Seasons.Registered[i]})
		}
	}
	return rows
}

func monthRows(d *aggregation.Dashboard) [][]interface{} {
	rows := [][]interface{}{{"Year", "Month", "Casual", "Registered", "Total"}}
	for _, y := range d.Years {
		for i, month := range y.Months.Months {
			rows = append(rows, []interface{}{y.Year, month, y.Months.Casual[i], y.Months.Registered[i], y.Months.Total[i]})
		}
	}
	return rows
}
