package analytics

import (
	"math"
	"sort"

	"stocktrack/internal/domain"
)

// ForecastConfig holds the moving-average window and its weights, oldest to
// newest. The weights should sum to 1.0; a deviating sum is used as given
// but reported so the caller can warn.
type ForecastConfig struct {
	Window  int
	Weights []float64
}

func DefaultForecastConfig() ForecastConfig {
	return ForecastConfig{
		Window:  6,
		Weights: []float64{0.02, 0.02, 0.10, 0.20, 0.30, 0.40},
	}
}

func (c ForecastConfig) WeightSum() float64 {
	sum := 0.0
	for _, w := range c.Weights {
		sum += w
	}
	return sum
}

// WeightSumTolerance bounds how far the weight sum may drift from 1.0
// before a warning is warranted.
const WeightSumTolerance = 0.001

func (c ForecastConfig) WeightsBalanced() bool {
	return math.Abs(c.WeightSum()-1.0) <= WeightSumTolerance
}

type ForecastEntry struct {
	ProductID   string  `json:"product_id"`
	ProductName string  `json:"product_name"`
	Forecast    float64 `json:"forecast"`
	Units       int     `json:"forecast_quantity"`
}

type ForecastReport struct {
	Window  int             `json:"window_months"`
	Entries []ForecastEntry `json:"entries"`
	Skipped int             `json:"skipped_records,omitempty"`
}

// Forecast estimates next-month demand per product as the weighted average
// of the quantities sold in the trailing Window calendar months ending at
// asOf's month. Months with no sales contribute zero; products whose whole
// series is zero carry no signal and are omitted. The unrounded value is
// kept in Forecast, the report unit count in Units.
func Forecast(products []domain.Product, movements []domain.Movement, cfg ForecastConfig, asOf domain.Date) ForecastReport {
	index := make(map[string]domain.Product, len(products))
	for _, p := range products {
		index[p.ID] = p
	}

	soldByMonth := map[string]map[month]int{}
	skipped := 0
	for _, m := range movements {
		if m.Kind != domain.Sale {
			continue
		}
		if m.Quantity <= 0 || m.Date.IsZero() {
			skipped++
			continue
		}
		if _, ok := index[m.ProductID]; !ok {
			skipped++
			continue
		}
		buckets := soldByMonth[m.ProductID]
		if buckets == nil {
			buckets = map[month]int{}
			soldByMonth[m.ProductID] = buckets
		}
		buckets[monthOf(m.Date)] += m.Quantity
	}

	current := monthOf(asOf)
	report := ForecastReport{Window: cfg.Window, Skipped: skipped}

	for _, p := range products {
		buckets := soldByMonth[p.ID]
		series := make([]int, cfg.Window)
		allZero := true
		for i := 0; i < cfg.Window; i++ {
			qty := buckets[current.add(i-cfg.Window+1)]
			series[i] = qty
			if qty != 0 {
				allZero = false
			}
		}
		if allZero {
			continue
		}

		forecast := 0.0
		for i, qty := range series {
			forecast += float64(qty) * cfg.Weights[i]
		}
		report.Entries = append(report.Entries, ForecastEntry{
			ProductID:   p.ID,
			ProductName: p.Name,
			Forecast:    forecast,
			Units:       int(math.Round(forecast)),
		})
	}

	sort.Slice(report.Entries, func(i, j int) bool {
		if report.Entries[i].Forecast != report.Entries[j].Forecast {
			return report.Entries[i].Forecast > report.Entries[j].Forecast
		}
		return report.Entries[i].ProductID < report.Entries[j].ProductID
	})
	return report
}
