package analytics

import (
	"math"
	"sort"

	"stocktrack/internal/domain"
)

type Band string

const (
	BandA Band = "A"
	BandB Band = "B"
	BandC Band = "C"
	BandD Band = "D"
)

// Bands in report order, most to least important.
var Bands = []Band{BandA, BandB, BandC, BandD}

type ClassificationEntry struct {
	ProductID     string  `json:"product_id"`
	ProductName   string  `json:"product_name"`
	PeriodRevenue float64 `json:"period_revenue"`
	CumulativePct float64 `json:"cumulative_revenue_pct"`
}

type ABCReport struct {
	TotalRevenue float64                        `json:"total_revenue"`
	Bands        map[Band][]ClassificationEntry `json:"bands"`
	Skipped      int                            `json:"skipped_records,omitempty"`
}

// dominantTolerance is the relative tolerance for deciding that the single
// top product accounts for the whole period revenue.
const dominantTolerance = 1e-9

// Classify builds the ABC/D revenue-concentration curve from sale movements.
// Revenue per product is unit price times quantity sold; sale records whose
// product no longer exists are skipped and counted. Products are sorted by
// revenue descending (ties broken by ascending product id, so repeated runs
// over the same data agree) and banded by cumulative revenue share:
// <=70% A, <=90% B, <=99% C, else D.
//
// When the top product alone carries the whole revenue, it is classified A
// and every remaining product goes straight to D, skipping the percentage
// walk. The remainder-to-D rule is intentional and fixed.
func Classify(products []domain.Product, movements []domain.Movement) ABCReport {
	index := make(map[string]domain.Product, len(products))
	for _, p := range products {
		index[p.ID] = p
	}

	revenue := map[string]float64{}
	skipped := 0
	for _, m := range movements {
		if m.Kind != domain.Sale {
			continue
		}
		if m.Quantity <= 0 || m.Date.IsZero() {
			skipped++
			continue
		}
		p, ok := index[m.ProductID]
		if !ok {
			skipped++
			continue
		}
		revenue[m.ProductID] += p.UnitPrice * float64(m.Quantity)
	}

	report := ABCReport{Bands: emptyBands(), Skipped: skipped}

	entries := make([]ClassificationEntry, 0, len(revenue))
	for id, rev := range revenue {
		if rev <= 0 {
			continue
		}
		entries = append(entries, ClassificationEntry{
			ProductID:     id,
			ProductName:   index[id].Name,
			PeriodRevenue: rev,
		})
		report.TotalRevenue += rev
	}
	if len(entries) == 0 {
		return report
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].PeriodRevenue != entries[j].PeriodRevenue {
			return entries[i].PeriodRevenue > entries[j].PeriodRevenue
		}
		return entries[i].ProductID < entries[j].ProductID
	})

	total := report.TotalRevenue
	if total > 0 && math.Abs(entries[0].PeriodRevenue-total) <= dominantTolerance*total {
		entries[0].CumulativePct = 100
		report.Bands[BandA] = append(report.Bands[BandA], entries[0])
		for _, e := range entries[1:] {
			e.CumulativePct = 100
			report.Bands[BandD] = append(report.Bands[BandD], e)
		}
		return report
	}

	cumulative := 0.0
	for _, e := range entries {
		cumulative += e.PeriodRevenue
		if total > 0 {
			e.CumulativePct = cumulative / total * 100
		}
		band := bandFor(e.CumulativePct)
		report.Bands[band] = append(report.Bands[band], e)
	}
	return report
}

func bandFor(cumulativePct float64) Band {
	switch {
	case cumulativePct <= 70:
		return BandA
	case cumulativePct <= 90:
		return BandB
	case cumulativePct <= 99:
		return BandC
	default:
		return BandD
	}
}

func emptyBands() map[Band][]ClassificationEntry {
	bands := make(map[Band][]ClassificationEntry, len(Bands))
	for _, b := range Bands {
		bands[b] = []ClassificationEntry{}
	}
	return bands
}
