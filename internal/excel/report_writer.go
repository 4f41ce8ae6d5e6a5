// Package excel renders the analytics reports as an xlsx workbook for
// download.
package excel

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"stocktrack/internal/analytics"
)

const (
	abcSheet      = "ABC Curve"
	forecastSheet = "Forecast"
)

// WriteReports writes a two-sheet workbook with the ABC classification and
// the demand forecast.
func WriteReports(w io.Writer, abc analytics.ABCReport, forecast analytics.ForecastReport) error {
	file := excelize.NewFile()
	defer file.Close()

	if err := file.SetSheetName("Sheet1", abcSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := file.NewSheet(forecastSheet); err != nil {
		return fmt.Errorf("add forecast sheet: %w", err)
	}

	if err := writeABC(file, abc); err != nil {
		return err
	}
	if err := writeForecast(file, forecast); err != nil {
		return err
	}

	if err := file.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeABC(file *excelize.File, report analytics.ABCReport) error {
	rows := [][]any{
		{"Band", "Product ID", "Product", "Period Revenue", "Cumulative %"},
	}
	for _, band := range analytics.Bands {
		for _, entry := range report.Bands[band] {
			rows = append(rows, []any{
				string(band),
				entry.ProductID,
				entry.ProductName,
				entry.PeriodRevenue,
				entry.CumulativePct,
			})
		}
	}
	rows = append(rows, []any{}, []any{"Total revenue", report.TotalRevenue})

	for i, row := range rows {
		cell := fmt.Sprintf("A%d", i+1)
		if err := file.SetSheetRow(abcSheet, cell, &row); err != nil {
			return fmt.Errorf("write abc row %d: %w", i+1, err)
		}
	}
	return nil
}

func writeForecast(file *excelize.File, report analytics.ForecastReport) error {
	rows := [][]any{
		{"Product ID", "Product", "Forecast (units)"},
	}
	for _, entry := range report.Entries {
		rows = append(rows, []any{entry.ProductID, entry.ProductName, entry.Units})
	}

	for i, row := range rows {
		cell := fmt.Sprintf("A%d", i+1)
		if err := file.SetSheetRow(forecastSheet, cell, &row); err != nil {
			return fmt.Errorf("write forecast row %d: %w", i+1, err)
		}
	}
	return nil
}
