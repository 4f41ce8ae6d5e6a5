package analytics

import (
	"testing"

	"github.com/stretchr/testify/require"

	"stocktrack/internal/domain"
)

func TestDefaultForecastConfig(t *testing.T) {
	cfg := DefaultForecastConfig()

	require.Equal(t, 6, cfg.Window)
	require.Len(t, cfg.Weights, 6)
	// The shipped weights sum to 1.04, slightly over-weighting recent
	// months. They are used as configured; only a warning is emitted.
	require.InDelta(t, 1.04, cfg.WeightSum(), 1e-9)
	require.False(t, cfg.WeightsBalanced())
}

func TestWeightsBalanced(t *testing.T) {
	cfg := ForecastConfig{Window: 2, Weights: []float64{0.5, 0.5}}
	require.True(t, cfg.WeightsBalanced())

	cfg.Weights = []float64{0.5, 0.502}
	require.False(t, cfg.WeightsBalanced())
}

func TestForecastWeightedAverage(t *testing.T) {
	asOf := domain.NewDate(2024, 6, 15)
	products := []domain.Product{testProduct("p1", "Widget", 5)}
	movements := []domain.Movement{
		testSale("p1", 10, domain.NewDate(2024, 3, 3)),
		testSale("p1", 20, domain.NewDate(2024, 4, 10)),
		testSale("p1", 12, domain.NewDate(2024, 5, 1)),
		testSale("p1", 18, domain.NewDate(2024, 5, 28)), // same month, summed
		testSale("p1", 40, domain.NewDate(2024, 6, 2)),
		testSale("p1", 99, domain.NewDate(2023, 12, 31)), // before the window
	}

	report := Forecast(products, movements, DefaultForecastConfig(), asOf)

	require.Equal(t, 6, report.Window)
	require.Len(t, report.Entries, 1)
	entry := report.Entries[0]
	require.Equal(t, "p1", entry.ProductID)
	// Series Jan..Jun is [0, 0, 10, 20, 30, 40].
	require.InDelta(t, 30.0, entry.Forecast, 1e-9)
	require.Equal(t, 30, entry.Units)
}

func TestForecastWindowCrossesYearBoundary(t *testing.T) {
	asOf := domain.NewDate(2024, 2, 1)
	products := []domain.Product{testProduct("p1", "Widget", 5)}
	movements := []domain.Movement{
		// Sep 2023 is the oldest month of the Sep..Feb window.
		testSale("p1", 100, domain.NewDate(2023, 9, 15)),
	}

	report := Forecast(products, movements, DefaultForecastConfig(), asOf)

	require.Len(t, report.Entries, 1)
	require.InDelta(t, 2.0, report.Entries[0].Forecast, 1e-9)
}

func TestForecastOmitsProductsWithoutSignal(t *testing.T) {
	asOf := domain.NewDate(2024, 6, 15)
	products := []domain.Product{
		testProduct("p1", "Active", 5),
		testProduct("p2", "Stale", 5),
		testProduct("p3", "Never sold", 5),
	}
	movements := []domain.Movement{
		testSale("p1", 10, domain.NewDate(2024, 6, 1)),
		testSale("p2", 10, domain.NewDate(2023, 6, 1)), // outside the window
	}

	report := Forecast(products, movements, DefaultForecastConfig(), asOf)

	require.Len(t, report.Entries, 1)
	require.Equal(t, "p1", report.Entries[0].ProductID)
}

func TestForecastOrdering(t *testing.T) {
	asOf := domain.NewDate(2024, 6, 15)
	products := []domain.Product{
		testProduct("p3", "Low", 5),
		testProduct("p2", "Tie b", 5),
		testProduct("p1", "Tie a", 5),
	}
	movements := []domain.Movement{
		testSale("p3", 5, domain.NewDate(2024, 6, 1)),
		testSale("p2", 50, domain.NewDate(2024, 6, 1)),
		testSale("p1", 50, domain.NewDate(2024, 6, 1)),
	}

	report := Forecast(products, movements, DefaultForecastConfig(), asOf)

	require.Len(t, report.Entries, 3)
	require.Equal(t, "p1", report.Entries[0].ProductID)
	require.Equal(t, "p2", report.Entries[1].ProductID)
	require.Equal(t, "p3", report.Entries[2].ProductID)
}

func TestForecastSkipsUnusableRecords(t *testing.T) {
	asOf := domain.NewDate(2024, 6, 15)
	products := []domain.Product{testProduct("p1", "Widget", 5)}
	movements := []domain.Movement{
		testSale("p1", 10, domain.NewDate(2024, 6, 1)),
		testSale("ghost", 10, domain.NewDate(2024, 6, 1)),
		testSale("p1", -2, domain.NewDate(2024, 6, 1)),
	}

	report := Forecast(products, movements, DefaultForecastConfig(), asOf)

	require.Equal(t, 2, report.Skipped)
	require.Len(t, report.Entries, 1)
	require.InDelta(t, 4.0, report.Entries[0].Forecast, 1e-9)
}

func TestNewEngineRejectsMismatchedWeights(t *testing.T) {
	cfg := ForecastConfig{Window: 3, Weights: []float64{0.5, 0.5}}
	_, err := NewEngine(nil, cfg, nil)
	require.Error(t, err)
}

func TestNewEngineDefaultsZeroWindow(t *testing.T) {
	eng, err := NewEngine(nil, ForecastConfig{}, nil)
	require.NoError(t, err)
	require.Equal(t, 6, eng.cfg.Window)
}
