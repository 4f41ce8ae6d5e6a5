package excel

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"stocktrack/internal/analytics"
)

func TestWriteReports(t *testing.T) {
	abc := analytics.ABCReport{
		TotalRevenue: 1000,
		Bands: map[analytics.Band][]analytics.ClassificationEntry{
			analytics.BandA: {{ProductID: "p1", ProductName: "Widget", PeriodRevenue: 700, CumulativePct: 70}},
			analytics.BandB: {{ProductID: "p2", ProductName: "Gadget", PeriodRevenue: 300, CumulativePct: 100}},
			analytics.BandC: {},
			analytics.BandD: {},
		},
	}
	forecast := analytics.ForecastReport{
		Window: 6,
		Entries: []analytics.ForecastEntry{
			{ProductID: "p1", ProductName: "Widget", Forecast: 30.4, Units: 30},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteReports(&buf, abc, forecast))

	workbook, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer workbook.Close()

	abcRows, err := workbook.GetRows(abcSheet)
	require.NoError(t, err)
	require.Equal(t, []string{"Band", "Product ID", "Product", "Period Revenue", "Cumulative %"}, abcRows[0])
	require.Equal(t, "A", abcRows[1][0])
	require.Equal(t, "p1", abcRows[1][1])
	require.Equal(t, "B", abcRows[2][0])
	// Blank spacer row, then the total.
	require.Equal(t, "Total revenue", abcRows[4][0])

	forecastRows, err := workbook.GetRows(forecastSheet)
	require.NoError(t, err)
	require.Equal(t, []string{"Product ID", "Product", "Forecast (units)"}, forecastRows[0])
	require.Equal(t, []string{"p1", "Widget", "30"}, forecastRows[1])
}
