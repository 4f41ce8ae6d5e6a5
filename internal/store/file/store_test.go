package file

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"stocktrack/internal/domain"
	"stocktrack/internal/store"
)

func TestReopenPersistence(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	product := domain.Product{
		ID: "p1", Name: "Widget, deluxe", UnitCost: 3.5, UnitPrice: 9,
		OnHand: 12, Category: "tools", CreatedAt: created, UpdatedAt: created,
	}
	counterparty := domain.Counterparty{
		ID: "c1", Name: "Acme", Kind: domain.Supplier,
		CreatedAt: created, UpdatedAt: created,
	}
	title := domain.Title{
		ID: "t1", UnitAmount: 3.5, Quantity: 12, CounterpartyID: "c1",
		Direction: domain.Payable, CreatedAt: created,
	}
	movement := domain.Movement{
		Kind: domain.Purchase, CounterpartyID: "c1", ProductID: "p1",
		Quantity: 12, Date: domain.NewDate(2024, 1, 2), Time: "03:04:05",
	}

	first, err := Open(dir, nil)
	require.NoError(t, err)
	err = first.Update(ctx, func(tx store.Tx) error {
		if err := tx.PutProduct(ctx, product); err != nil {
			return err
		}
		if err := tx.PutCounterparty(ctx, counterparty); err != nil {
			return err
		}
		if err := tx.PutTitle(ctx, title); err != nil {
			return err
		}
		return tx.AppendMovement(ctx, movement)
	})
	require.NoError(t, err)
	first.Close()

	second, err := Open(dir, nil)
	require.NoError(t, err)
	err = second.View(ctx, func(tx store.Tx) error {
		gotProduct, err := tx.GetProduct(ctx, "p1")
		require.NoError(t, err)
		require.Equal(t, product, *gotProduct)

		gotCounterparty, err := tx.GetCounterparty(ctx, "c1")
		require.NoError(t, err)
		require.Equal(t, counterparty, *gotCounterparty)

		gotTitle, err := tx.GetTitle(ctx, "t1")
		require.NoError(t, err)
		require.Equal(t, title, *gotTitle)

		movements, err := tx.ListMovements(ctx, store.MovementFilter{})
		require.NoError(t, err)
		require.Equal(t, []domain.Movement{movement}, movements)
		return nil
	})
	require.NoError(t, err)
}

func TestUpdateRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	st, err := Open(t.TempDir(), nil)
	require.NoError(t, err)

	boom := errors.New("boom")
	err = st.Update(ctx, func(tx store.Tx) error {
		if err := tx.PutProduct(ctx, domain.Product{ID: "p1", Name: "W"}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	err = st.View(ctx, func(tx store.Tx) error {
		_, err := tx.GetProduct(ctx, "p1")
		require.ErrorIs(t, err, domain.ErrNotFound)
		return nil
	})
	require.NoError(t, err)

	// Nothing reached disk either.
	_, statErr := os.Stat(filepath.Join(st.dir, productsFile))
	require.True(t, errors.Is(statErr, os.ErrNotExist))
}

func TestViewRejectsWrites(t *testing.T) {
	ctx := context.Background()
	st, err := Open(t.TempDir(), nil)
	require.NoError(t, err)

	err = st.View(ctx, func(tx store.Tx) error {
		return tx.PutProduct(ctx, domain.Product{ID: "p1"})
	})
	require.Error(t, err)
}

func TestDeleteMissingRecord(t *testing.T) {
	ctx := context.Background()
	st, err := Open(t.TempDir(), nil)
	require.NoError(t, err)

	err = st.Update(ctx, func(tx store.Tx) error {
		return tx.DeleteProduct(ctx, "ghost")
	})
	require.ErrorIs(t, err, domain.ErrNotFound)

	err = st.Update(ctx, func(tx store.Tx) error {
		return tx.DeleteCounterparty(ctx, "ghost")
	})
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestOpenSkipsUnparseableRows(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	data := movementHeader + "\n" +
		"SALE,c1,p1,3,2024-06-15,14:30:00\n" +
		"SALE,c1,p1,not-a-number,2024-06-15,14:30:00\n" +
		"TRANSFER,c1,p1,3,2024-06-15,14:30:00\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, movementsFile), []byte(data), 0o644))

	st, err := Open(dir, nil)
	require.NoError(t, err)

	err = st.View(ctx, func(tx store.Tx) error {
		movements, err := tx.ListMovements(ctx, store.MovementFilter{})
		require.NoError(t, err)
		require.Len(t, movements, 1)
		require.Equal(t, 3, movements[0].Quantity)
		return nil
	})
	require.NoError(t, err)
}

func TestListMovementsFilter(t *testing.T) {
	ctx := context.Background()
	st, err := Open(t.TempDir(), nil)
	require.NoError(t, err)

	days := []domain.Date{
		domain.NewDate(2024, 6, 10),
		domain.NewDate(2024, 6, 15),
		domain.NewDate(2024, 6, 20),
	}
	err = st.Update(ctx, func(tx store.Tx) error {
		for i, day := range days {
			kind := domain.Purchase
			if i%2 == 1 {
				kind = domain.Sale
			}
			if err := tx.AppendMovement(ctx, domain.Movement{
				Kind: kind, CounterpartyID: "c1", ProductID: "p1",
				Quantity: 1, Date: day, Time: "09:00:00",
			}); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	from := domain.NewDate(2024, 6, 12)
	to := domain.NewDate(2024, 6, 20)
	err = st.View(ctx, func(tx store.Tx) error {
		movements, err := tx.ListMovements(ctx, store.MovementFilter{From: &from, To: &to})
		require.NoError(t, err)
		require.Len(t, movements, 2)

		sales, err := tx.ListMovements(ctx, store.MovementFilter{Kind: domain.Sale})
		require.NoError(t, err)
		require.Len(t, sales, 1)
		return nil
	})
	require.NoError(t, err)
}

func TestListTitlesOpenOnly(t *testing.T) {
	ctx := context.Background()
	st, err := Open(t.TempDir(), nil)
	require.NoError(t, err)

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	err = st.Update(ctx, func(tx store.Tx) error {
		if err := tx.PutTitle(ctx, domain.Title{ID: "t1", Paid: true, CreatedAt: base}); err != nil {
			return err
		}
		if err := tx.PutTitle(ctx, domain.Title{ID: "t2", CreatedAt: base.Add(time.Hour)}); err != nil {
			return err
		}
		return tx.PutTitle(ctx, domain.Title{ID: "t3", CreatedAt: base})
	})
	require.NoError(t, err)

	err = st.View(ctx, func(tx store.Tx) error {
		open, err := tx.ListTitles(ctx, true)
		require.NoError(t, err)
		require.Len(t, open, 2)
		// Oldest first, id as tie-break.
		require.Equal(t, "t3", open[0].ID)
		require.Equal(t, "t2", open[1].ID)

		all, err := tx.ListTitles(ctx, false)
		require.NoError(t, err)
		require.Len(t, all, 3)
		return nil
	})
	require.NoError(t, err)
}
