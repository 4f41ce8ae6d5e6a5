package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"stocktrack/internal/domain"
	"stocktrack/internal/store"
	"stocktrack/internal/store/file"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	st, err := file.Open(t.TempDir(), nil)
	require.NoError(t, err)
	t.Cleanup(st.Close)
	return st
}

func newTestLedger(t *testing.T, st store.Store) *Ledger {
	t.Helper()
	l := New(st, nil)
	l.now = func() time.Time {
		return time.Date(2024, 6, 15, 14, 30, 0, 0, time.UTC)
	}
	var seq int
	l.newID = func() string {
		seq++
		return fmt.Sprintf("title-%d", seq)
	}
	return l
}

func seedLedgerData(t *testing.T, st store.Store, onHand int) {
	t.Helper()
	ctx := context.Background()
	err := st.Update(ctx, func(tx store.Tx) error {
		if err := tx.PutProduct(ctx, domain.Product{
			ID:        "p1",
			Name:      "Widget",
			UnitCost:  3.5,
			UnitPrice: 9,
			OnHand:    onHand,
		}); err != nil {
			return err
		}
		if err := tx.PutCounterparty(ctx, domain.Counterparty{
			ID: "sup1", Name: "Acme Supply", Kind: domain.Supplier,
		}); err != nil {
			return err
		}
		return tx.PutCounterparty(ctx, domain.Counterparty{
			ID: "cust1", Name: "Jane", Kind: domain.Customer,
		})
	})
	require.NoError(t, err)
}

func getProduct(t *testing.T, st store.Store, id string) domain.Product {
	t.Helper()
	ctx := context.Background()
	var product domain.Product
	err := st.View(ctx, func(tx store.Tx) error {
		p, err := tx.GetProduct(ctx, id)
		if err != nil {
			return err
		}
		product = *p
		return nil
	})
	require.NoError(t, err)
	return product
}

func TestRecordPurchase(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	seedLedgerData(t, st, 5)
	l := newTestLedger(t, st)

	title, err := l.RecordPurchase(ctx, "p1", 10, "sup1")
	require.NoError(t, err)

	require.Equal(t, "title-1", title.ID)
	require.Equal(t, domain.Payable, title.Direction)
	require.Equal(t, "sup1", title.CounterpartyID)
	require.Equal(t, 3.5, title.UnitAmount)
	require.Equal(t, 10, title.Quantity)
	require.False(t, title.Paid)
	require.Equal(t, 35.0, title.Total())

	require.Equal(t, 15, getProduct(t, st, "p1").OnHand)

	movements, err := l.Movements(ctx, nil, nil)
	require.NoError(t, err)
	require.Len(t, movements, 1)
	require.Equal(t, domain.Movement{
		Kind:           domain.Purchase,
		CounterpartyID: "sup1",
		ProductID:      "p1",
		Quantity:       10,
		Date:           domain.NewDate(2024, 6, 15),
		Time:           "14:30:00",
	}, movements[0])
}

func TestRecordSale(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	seedLedgerData(t, st, 5)
	l := newTestLedger(t, st)

	title, err := l.RecordSale(ctx, "p1", 5, "cust1")
	require.NoError(t, err)

	require.Equal(t, domain.Receivable, title.Direction)
	require.Equal(t, 9.0, title.UnitAmount)
	require.Equal(t, 45.0, title.Total())

	// Selling the whole stock is allowed; only going below zero is not.
	require.Equal(t, 0, getProduct(t, st, "p1").OnHand)

	movements, err := l.Movements(ctx, nil, nil)
	require.NoError(t, err)
	require.Len(t, movements, 1)
	require.Equal(t, domain.Sale, movements[0].Kind)
}

func TestRecordSaleInsufficientStock(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	seedLedgerData(t, st, 5)
	l := newTestLedger(t, st)

	_, err := l.RecordSale(ctx, "p1", 6, "cust1")

	var insufficient *domain.InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	require.Equal(t, "p1", insufficient.ProductID)
	require.Equal(t, 6, insufficient.Requested)
	require.Equal(t, 5, insufficient.Available)

	// The rejected sale must leave no trace.
	require.Equal(t, 5, getProduct(t, st, "p1").OnHand)
	titles, err := l.Titles(ctx, false)
	require.NoError(t, err)
	require.Empty(t, titles)
	movements, err := l.Movements(ctx, nil, nil)
	require.NoError(t, err)
	require.Empty(t, movements)
}

func TestRecordValidation(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	seedLedgerData(t, st, 5)
	l := newTestLedger(t, st)

	tests := []struct {
		name string
		call func() error
	}{
		{"zero quantity", func() error {
			_, err := l.RecordSale(ctx, "p1", 0, "cust1")
			return err
		}},
		{"negative quantity", func() error {
			_, err := l.RecordPurchase(ctx, "p1", -3, "sup1")
			return err
		}},
		{"unknown product", func() error {
			_, err := l.RecordSale(ctx, "ghost", 1, "cust1")
			return err
		}},
		{"unknown counterparty", func() error {
			_, err := l.RecordPurchase(ctx, "p1", 1, "ghost")
			return err
		}},
		{"supplier on a sale", func() error {
			_, err := l.RecordSale(ctx, "p1", 1, "sup1")
			return err
		}},
		{"customer on a purchase", func() error {
			_, err := l.RecordPurchase(ctx, "p1", 1, "cust1")
			return err
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var validation *domain.ValidationError
			require.ErrorAs(t, tt.call(), &validation)
		})
	}

	require.Equal(t, 5, getProduct(t, st, "p1").OnHand)
}

func TestConcurrentSalesNeverOversell(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	seedLedgerData(t, st, 50)
	l := newTestLedger(t, st)

	const workers = 20
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = l.RecordSale(ctx, "p1", 5, "cust1")
		}(i)
	}
	wg.Wait()

	sold := 0
	for _, err := range errs {
		if err == nil {
			sold++
			continue
		}
		var insufficient *domain.InsufficientStockError
		require.ErrorAs(t, err, &insufficient)
	}
	require.Equal(t, 10, sold)
	require.Equal(t, 0, getProduct(t, st, "p1").OnHand)

	movements, err := l.Movements(ctx, nil, nil)
	require.NoError(t, err)
	require.Len(t, movements, sold)
}

func TestSettleTitle(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	seedLedgerData(t, st, 5)
	l := newTestLedger(t, st)

	title, err := l.RecordPurchase(ctx, "p1", 2, "sup1")
	require.NoError(t, err)

	open, err := l.OpenTitles(ctx)
	require.NoError(t, err)
	require.Len(t, open, 1)

	result, err := l.SettleTitle(ctx, title.ID)
	require.NoError(t, err)
	require.Equal(t, OutcomeSettled, result.Outcome)
	require.True(t, result.Title.Paid)

	open, err = l.OpenTitles(ctx)
	require.NoError(t, err)
	require.Empty(t, open)

	// Settling an already-paid title is a reported no-op.
	result, err = l.SettleTitle(ctx, title.ID)
	require.NoError(t, err)
	require.Equal(t, OutcomeAlreadyPaid, result.Outcome)
	require.True(t, result.Title.Paid)

	// So is settling a title that does not exist.
	result, err = l.SettleTitle(ctx, "ghost")
	require.NoError(t, err)
	require.Equal(t, OutcomeUnknown, result.Outcome)

	var validation *domain.ValidationError
	_, err = l.SettleTitle(ctx, "  ")
	require.ErrorAs(t, err, &validation)
}

func TestMovementsDateFilter(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	seedLedgerData(t, st, 100)
	l := newTestLedger(t, st)

	days := []time.Time{
		time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC),
		time.Date(2024, 6, 15, 9, 0, 0, 0, time.UTC),
		time.Date(2024, 6, 20, 9, 0, 0, 0, time.UTC),
	}
	for _, day := range days {
		l.now = func() time.Time { return day }
		_, err := l.RecordSale(ctx, "p1", 1, "cust1")
		require.NoError(t, err)
	}

	from := domain.NewDate(2024, 6, 12)
	to := domain.NewDate(2024, 6, 15)
	movements, err := l.Movements(ctx, &from, &to)
	require.NoError(t, err)
	require.Len(t, movements, 1)
	require.Equal(t, domain.NewDate(2024, 6, 15), movements[0].Date)

	movements, err = l.Movements(ctx, &from, nil)
	require.NoError(t, err)
	require.Len(t, movements, 2)
}

// appendFailStore simulates a persistence failure at the very last write of
// a transaction.
type appendFailStore struct {
	store.Store
}

func (s appendFailStore) Update(ctx context.Context, fn func(tx store.Tx) error) error {
	return s.Store.Update(ctx, func(tx store.Tx) error {
		return fn(appendFailTx{tx})
	})
}

type appendFailTx struct {
	store.Tx
}

func (appendFailTx) AppendMovement(context.Context, domain.Movement) error {
	return errors.New("append movement: disk full")
}

func TestFailedCommitLeavesNoTrace(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	seedLedgerData(t, st, 5)
	l := newTestLedger(t, appendFailStore{st})

	_, err := l.RecordSale(ctx, "p1", 2, "cust1")
	require.Error(t, err)

	// Stock and titles were written before the movement inside the same
	// transaction; the failure must roll all of it back.
	require.Equal(t, 5, getProduct(t, st, "p1").OnHand)

	probe := New(st, nil)
	titles, err := probe.Titles(ctx, false)
	require.NoError(t, err)
	require.Empty(t, titles)
	movements, err := probe.Movements(ctx, nil, nil)
	require.NoError(t, err)
	require.Empty(t, movements)
}
