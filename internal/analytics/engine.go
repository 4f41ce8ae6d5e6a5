// Package analytics derives the two read-only reports from the movement
// history: the ABC/D revenue-concentration curve and the weighted
// moving-average demand forecast. Both are recomputed from scratch on every
// invocation over a consistent store snapshot.
package analytics

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"stocktrack/internal/domain"
	"stocktrack/internal/metrics"
	"stocktrack/internal/store"
)

type Engine struct {
	store store.Store
	log   *zap.Logger
	cfg   ForecastConfig

	now func() time.Time
}

func NewEngine(st store.Store, cfg ForecastConfig, log *zap.Logger) (*Engine, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("analytics")

	if cfg.Window <= 0 {
		cfg = DefaultForecastConfig()
	}
	if len(cfg.Weights) != cfg.Window {
		return nil, fmt.Errorf("forecast config: %d weights for a %d-month window", len(cfg.Weights), cfg.Window)
	}
	if !cfg.WeightsBalanced() {
		log.Warn("forecast weights do not sum to 1.0, forecasts may be skewed",
			zap.Float64("sum", cfg.WeightSum()))
	}

	return &Engine{store: st, log: log, cfg: cfg, now: time.Now}, nil
}

func (e *Engine) RevenueClassification(ctx context.Context) (ABCReport, error) {
	defer metrics.TrackReport("abc")(time.Now())

	products, movements, err := e.snapshot(ctx)
	if err != nil {
		return ABCReport{}, err
	}
	report := Classify(products, movements)
	if report.Skipped > 0 {
		e.log.Warn("classification skipped unusable sale records", zap.Int("records", report.Skipped))
	}
	return report, nil
}

func (e *Engine) DemandForecast(ctx context.Context) (ForecastReport, error) {
	defer metrics.TrackReport("forecast")(time.Now())

	products, movements, err := e.snapshot(ctx)
	if err != nil {
		return ForecastReport{}, err
	}
	report := Forecast(products, movements, e.cfg, domain.DateOf(e.now()))
	if report.Skipped > 0 {
		e.log.Warn("forecast skipped unusable sale records", zap.Int("records", report.Skipped))
	}
	return report, nil
}

// snapshot reads products and sale movements in one View, so a report never
// observes a half-committed ledger operation.
func (e *Engine) snapshot(ctx context.Context) ([]domain.Product, []domain.Movement, error) {
	var (
		products  []domain.Product
		movements []domain.Movement
	)
	err := e.store.View(ctx, func(tx store.Tx) error {
		var err error
		if products, err = tx.ListProducts(ctx); err != nil {
			return err
		}
		movements, err = tx.ListMovements(ctx, store.MovementFilter{Kind: domain.Sale})
		return err
	})
	if err != nil {
		return nil, nil, fmt.Errorf("analytics snapshot: %w", err)
	}
	return products, movements, nil
}
