// Package store defines the repository abstraction shared by the flat-file
// and PostgreSQL backends. Ledger and analytics code depends only on these
// interfaces; which backend is active is a deployment decision.
package store

import (
	"context"

	"stocktrack/internal/domain"
)

// MovementFilter narrows a movement listing. Zero values mean "no bound".
type MovementFilter struct {
	Kind domain.MovementKind
	From *domain.Date
	To   *domain.Date
}

func (f MovementFilter) Matches(m domain.Movement) bool {
	if f.Kind != "" && m.Kind != f.Kind {
		return false
	}
	if f.From != nil && m.Date.Before(*f.From) {
		return false
	}
	if f.To != nil && m.Date.After(*f.To) {
		return false
	}
	return true
}

// Store exposes transactional access to the five record kinds. View runs fn
// against a consistent read snapshot. Update runs fn inside a write
// transaction: if fn returns an error, or the commit itself fails, no effect
// of fn is observable afterwards.
type Store interface {
	View(ctx context.Context, fn func(tx Tx) error) error
	Update(ctx context.Context, fn func(tx Tx) error) error
	Close()
}

// Tx carries the per-record operations available inside a transaction.
// Inside Update, GetProduct locks the product row for the duration of the
// transaction, so a stock check followed by a PutProduct is a single
// critical section per product.
type Tx interface {
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	ListProducts(ctx context.Context) ([]domain.Product, error)
	PutProduct(ctx context.Context, p domain.Product) error
	DeleteProduct(ctx context.Context, id string) error

	GetCounterparty(ctx context.Context, id string) (*domain.Counterparty, error)
	ListCounterparties(ctx context.Context) ([]domain.Counterparty, error)
	PutCounterparty(ctx context.Context, c domain.Counterparty) error
	DeleteCounterparty(ctx context.Context, id string) error

	GetTitle(ctx context.Context, id string) (*domain.Title, error)
	ListTitles(ctx context.Context, openOnly bool) ([]domain.Title, error)
	PutTitle(ctx context.Context, t domain.Title) error

	AppendMovement(ctx context.Context, m domain.Movement) error
	ListMovements(ctx context.Context, filter MovementFilter) ([]domain.Movement, error)
}
