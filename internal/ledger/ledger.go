// Package ledger owns the transactional purchase, sale, and settlement
// operations. Every mutation commits stock level, title, and movement record
// together or not at all.
package ledger

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"stocktrack/internal/domain"
	"stocktrack/internal/metrics"
	"stocktrack/internal/store"
)

const clockLayout = "15:04:05"

type Ledger struct {
	store store.Store
	log   *zap.Logger

	// Injectable for tests.
	now   func() time.Time
	newID func() string
}

func New(st store.Store, log *zap.Logger) *Ledger {
	if log == nil {
		log = zap.NewNop()
	}
	return &Ledger{
		store: st,
		log:   log.Named("ledger"),
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// RecordPurchase books a stock intake from a supplier: an unpaid payable
// title at the product's unit cost, the stock increase, and a PURCHASE
// movement, all in one transaction.
func (l *Ledger) RecordPurchase(ctx context.Context, productID string, quantity int, supplierID string) (domain.Title, error) {
	if quantity <= 0 {
		return domain.Title{}, domain.Invalid("quantity", "must be positive")
	}

	var (
		title       domain.Title
		onHandAfter int
	)
	err := l.store.Update(ctx, func(tx store.Tx) error {
		product, err := l.loadProduct(ctx, tx, productID)
		if err != nil {
			return err
		}
		supplier, err := l.loadCounterparty(ctx, tx, supplierID, domain.Supplier)
		if err != nil {
			return err
		}

		now := l.now()
		title = domain.Title{
			ID:             l.newID(),
			UnitAmount:     product.UnitCost,
			Quantity:       quantity,
			CounterpartyID: supplier.ID,
			Direction:      domain.Payable,
			CreatedAt:      now,
		}
		if err := tx.PutTitle(ctx, title); err != nil {
			return err
		}

		product.OnHand += quantity
		product.UpdatedAt = now
		onHandAfter = product.OnHand
		if err := tx.PutProduct(ctx, *product); err != nil {
			return err
		}

		return tx.AppendMovement(ctx, domain.Movement{
			Kind:           domain.Purchase,
			CounterpartyID: supplier.ID,
			ProductID:      product.ID,
			Quantity:       quantity,
			Date:           domain.DateOf(now),
			Time:           now.Format(clockLayout),
		})
	})
	if err != nil {
		return domain.Title{}, err
	}

	metrics.MovementsTotal.WithLabelValues("purchase").Inc()
	metrics.StockOnHand.WithLabelValues(productID).Set(float64(onHandAfter))
	l.log.Info("purchase recorded",
		zap.String("product_id", productID),
		zap.Int("quantity", quantity),
		zap.String("title_id", title.ID))
	return title, nil
}

// RecordSale books a stock issue to a customer. The sufficiency check and
// the decrement run inside the same store transaction, with the product row
// locked, so stock can never go negative even under concurrent sales.
func (l *Ledger) RecordSale(ctx context.Context, productID string, quantity int, customerID string) (domain.Title, error) {
	if quantity <= 0 {
		return domain.Title{}, domain.Invalid("quantity", "must be positive")
	}

	var (
		title       domain.Title
		onHandAfter int
	)
	err := l.store.Update(ctx, func(tx store.Tx) error {
		product, err := l.loadProduct(ctx, tx, productID)
		if err != nil {
			return err
		}
		customer, err := l.loadCounterparty(ctx, tx, customerID, domain.Customer)
		if err != nil {
			return err
		}

		if product.OnHand-quantity < 0 {
			return &domain.InsufficientStockError{
				ProductID: product.ID,
				Requested: quantity,
				Available: product.OnHand,
			}
		}

		now := l.now()
		title = domain.Title{
			ID:             l.newID(),
			UnitAmount:     product.UnitPrice,
			Quantity:       quantity,
			CounterpartyID: customer.ID,
			Direction:      domain.Receivable,
			CreatedAt:      now,
		}
		if err := tx.PutTitle(ctx, title); err != nil {
			return err
		}

		product.OnHand -= quantity
		product.UpdatedAt = now
		onHandAfter = product.OnHand
		if err := tx.PutProduct(ctx, *product); err != nil {
			return err
		}

		return tx.AppendMovement(ctx, domain.Movement{
			Kind:           domain.Sale,
			CounterpartyID: customer.ID,
			ProductID:      product.ID,
			Quantity:       quantity,
			Date:           domain.DateOf(now),
			Time:           now.Format(clockLayout),
		})
	})
	if err != nil {
		var insufficient *domain.InsufficientStockError
		if errors.As(err, &insufficient) {
			metrics.InsufficientStockTotal.Inc()
		}
		return domain.Title{}, err
	}

	metrics.MovementsTotal.WithLabelValues("sale").Inc()
	metrics.StockOnHand.WithLabelValues(productID).Set(float64(onHandAfter))
	l.log.Info("sale recorded",
		zap.String("product_id", productID),
		zap.Int("quantity", quantity),
		zap.String("title_id", title.ID))
	return title, nil
}

// SettleOutcome says what a settlement attempt did. Settling an already-paid
// or unknown title changes nothing; both are reported outcomes, not errors.
type SettleOutcome string

const (
	OutcomeSettled     SettleOutcome = "settled"
	OutcomeAlreadyPaid SettleOutcome = "already_paid"
	OutcomeUnknown     SettleOutcome = "unknown_title"
)

type SettleResult struct {
	Title   domain.Title
	Outcome SettleOutcome
}

// SettleTitle flips a title to paid.
func (l *Ledger) SettleTitle(ctx context.Context, titleID string) (SettleResult, error) {
	titleID = strings.TrimSpace(titleID)
	if titleID == "" {
		return SettleResult{}, domain.Invalid("title_id", "must not be empty")
	}

	var result SettleResult
	err := l.store.Update(ctx, func(tx store.Tx) error {
		title, err := tx.GetTitle(ctx, titleID)
		if errors.Is(err, domain.ErrNotFound) {
			result = SettleResult{Outcome: OutcomeUnknown}
			return nil
		}
		if err != nil {
			return err
		}
		if title.Paid {
			result = SettleResult{Title: *title, Outcome: OutcomeAlreadyPaid}
			return nil
		}
		title.Paid = true
		if err := tx.PutTitle(ctx, *title); err != nil {
			return err
		}
		result = SettleResult{Title: *title, Outcome: OutcomeSettled}
		return nil
	})
	if err != nil {
		return SettleResult{}, err
	}

	if result.Outcome == OutcomeSettled {
		metrics.TitlesSettledTotal.Inc()
	}
	l.log.Info("settle title", zap.String("title_id", titleID), zap.String("outcome", string(result.Outcome)))
	return result, nil
}

// OpenTitles lists the unpaid payables and receivables.
func (l *Ledger) OpenTitles(ctx context.Context) ([]domain.Title, error) {
	return l.Titles(ctx, true)
}

func (l *Ledger) Titles(ctx context.Context, openOnly bool) ([]domain.Title, error) {
	var titles []domain.Title
	err := l.store.View(ctx, func(tx store.Tx) error {
		var err error
		titles, err = tx.ListTitles(ctx, openOnly)
		return err
	})
	return titles, err
}

// Movements lists the audit trail, optionally bounded by dates (inclusive).
func (l *Ledger) Movements(ctx context.Context, from, to *domain.Date) ([]domain.Movement, error) {
	var movements []domain.Movement
	err := l.store.View(ctx, func(tx store.Tx) error {
		var err error
		movements, err = tx.ListMovements(ctx, store.MovementFilter{From: from, To: to})
		return err
	})
	return movements, err
}

func (l *Ledger) loadProduct(ctx context.Context, tx store.Tx, id string) (*domain.Product, error) {
	product, err := tx.GetProduct(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.Invalid("product_id", "unknown product "+id)
	}
	return product, err
}

func (l *Ledger) loadCounterparty(ctx context.Context, tx store.Tx, id string, want domain.CounterpartyKind) (*domain.Counterparty, error) {
	counterparty, err := tx.GetCounterparty(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.Invalid("counterparty_id", "unknown counterparty "+id)
	}
	if err != nil {
		return nil, err
	}
	if counterparty.Kind != want {
		return nil, domain.Invalid("counterparty_id", "counterparty "+id+" is not a "+string(want))
	}
	return counterparty, nil
}
