// Package registry manages the product and counterparty records the ledger
// operates on.
package registry

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"stocktrack/internal/domain"
	"stocktrack/internal/store"
	"stocktrack/internal/suggest"
)

type Registry struct {
	store           store.Store
	suggester       suggest.Suggester
	defaultCategory string
	log             *zap.Logger

	now   func() time.Time
	newID func() string
}

func New(st store.Store, suggester suggest.Suggester, defaultCategory string, log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	if suggester == nil {
		suggester = suggest.Static(defaultCategory)
	}
	return &Registry{
		store:           st,
		suggester:       suggester,
		defaultCategory: defaultCategory,
		log:             log.Named("registry"),
		now:             time.Now,
		newID:           uuid.NewString,
	}
}

type ProductInput struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	UnitCost  float64 `json:"unit_cost"`
	UnitPrice float64 `json:"unit_price"`
	OnHand    int     `json:"on_hand"`
	Category  string  `json:"category"`
}

type ProductPatch struct {
	Name      *string  `json:"name"`
	UnitCost  *float64 `json:"unit_cost"`
	UnitPrice *float64 `json:"unit_price"`
	Category  *string  `json:"category"`
}

func (r *Registry) CreateProduct(ctx context.Context, input ProductInput) (domain.Product, error) {
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return domain.Product{}, domain.Invalid("name", "must not be empty")
	}
	if input.UnitCost < 0 || input.UnitPrice < 0 {
		return domain.Product{}, domain.Invalid("price", "must not be negative")
	}
	if input.OnHand < 0 {
		return domain.Product{}, domain.Invalid("on_hand", "must not be negative")
	}
	input.ID = strings.TrimSpace(input.ID)
	if input.ID == "" {
		input.ID = r.newID()
	}

	category := strings.TrimSpace(input.Category)
	if category == "" {
		category = r.categorize(ctx, input.Name, input.UnitPrice)
	}

	now := r.now()
	product := domain.Product{
		ID:        input.ID,
		Name:      input.Name,
		UnitCost:  input.UnitCost,
		UnitPrice: input.UnitPrice,
		OnHand:    input.OnHand,
		Category:  category,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := r.store.Update(ctx, func(tx store.Tx) error {
		if _, err := tx.GetProduct(ctx, product.ID); err == nil {
			return domain.Invalid("id", "product "+product.ID+" already exists")
		}
		return tx.PutProduct(ctx, product)
	})
	if err != nil {
		return domain.Product{}, err
	}
	return product, nil
}

// categorize asks the suggestion service for a category, falling back to the
// configured default. Never fails product creation.
func (r *Registry) categorize(ctx context.Context, name string, price float64) string {
	category, err := r.suggester.SuggestCategory(ctx, name, price)
	if err != nil || strings.TrimSpace(category) == "" {
		r.log.Warn("category suggestion unavailable, using default",
			zap.String("product_name", name), zap.Error(err))
		return r.defaultCategory
	}
	return category
}

func (r *Registry) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	var product *domain.Product
	err := r.store.View(ctx, func(tx store.Tx) error {
		var err error
		product, err = tx.GetProduct(ctx, id)
		return err
	})
	return product, err
}

func (r *Registry) ListProducts(ctx context.Context) ([]domain.Product, error) {
	var products []domain.Product
	err := r.store.View(ctx, func(tx store.Tx) error {
		var err error
		products, err = tx.ListProducts(ctx)
		return err
	})
	return products, err
}

func (r *Registry) PatchProduct(ctx context.Context, id string, patch ProductPatch) (*domain.Product, error) {
	var updated *domain.Product
	err := r.store.Update(ctx, func(tx store.Tx) error {
		product, err := tx.GetProduct(ctx, id)
		if err != nil {
			return err
		}
		if patch.Name != nil {
			name := strings.TrimSpace(*patch.Name)
			if name == "" {
				return domain.Invalid("name", "must not be empty")
			}
			product.Name = name
		}
		if patch.UnitCost != nil {
			if *patch.UnitCost < 0 {
				return domain.Invalid("unit_cost", "must not be negative")
			}
			product.UnitCost = *patch.UnitCost
		}
		if patch.UnitPrice != nil {
			if *patch.UnitPrice < 0 {
				return domain.Invalid("unit_price", "must not be negative")
			}
			product.UnitPrice = *patch.UnitPrice
		}
		if patch.Category != nil {
			product.Category = strings.TrimSpace(*patch.Category)
		}
		product.UpdatedAt = r.now()
		if err := tx.PutProduct(ctx, *product); err != nil {
			return err
		}
		updated = product
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *Registry) DeleteProduct(ctx context.Context, id string) error {
	return r.store.Update(ctx, func(tx store.Tx) error {
		return tx.DeleteProduct(ctx, id)
	})
}

type CounterpartyInput struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Kind string `json:"kind"`
}

type CounterpartyPatch struct {
	Name *string `json:"name"`
	Kind *string `json:"kind"`
}

func (r *Registry) CreateCounterparty(ctx context.Context, input CounterpartyInput) (domain.Counterparty, error) {
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return domain.Counterparty{}, domain.Invalid("name", "must not be empty")
	}
	kind, ok := domain.ParseCounterpartyKind(input.Kind)
	if !ok {
		return domain.Counterparty{}, domain.Invalid("kind", "must be customer, supplier, or employee")
	}
	input.ID = strings.TrimSpace(input.ID)
	if input.ID == "" {
		input.ID = r.newID()
	}

	now := r.now()
	counterparty := domain.Counterparty{
		ID:        input.ID,
		Name:      input.Name,
		Kind:      kind,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := r.store.Update(ctx, func(tx store.Tx) error {
		if _, err := tx.GetCounterparty(ctx, counterparty.ID); err == nil {
			return domain.Invalid("id", "counterparty "+counterparty.ID+" already exists")
		}
		return tx.PutCounterparty(ctx, counterparty)
	})
	if err != nil {
		return domain.Counterparty{}, err
	}
	return counterparty, nil
}

func (r *Registry) GetCounterparty(ctx context.Context, id string) (*domain.Counterparty, error) {
	var counterparty *domain.Counterparty
	err := r.store.View(ctx, func(tx store.Tx) error {
		var err error
		counterparty, err = tx.GetCounterparty(ctx, id)
		return err
	})
	return counterparty, err
}

func (r *Registry) ListCounterparties(ctx context.Context) ([]domain.Counterparty, error) {
	var counterparties []domain.Counterparty
	err := r.store.View(ctx, func(tx store.Tx) error {
		var err error
		counterparties, err = tx.ListCounterparties(ctx)
		return err
	})
	return counterparties, err
}

func (r *Registry) PatchCounterparty(ctx context.Context, id string, patch CounterpartyPatch) (*domain.Counterparty, error) {
	var updated *domain.Counterparty
	err := r.store.Update(ctx, func(tx store.Tx) error {
		counterparty, err := tx.GetCounterparty(ctx, id)
		if err != nil {
			return err
		}
		if patch.Name != nil {
			name := strings.TrimSpace(*patch.Name)
			if name == "" {
				return domain.Invalid("name", "must not be empty")
			}
			counterparty.Name = name
		}
		if patch.Kind != nil {
			kind, ok := domain.ParseCounterpartyKind(*patch.Kind)
			if !ok {
				return domain.Invalid("kind", "must be customer, supplier, or employee")
			}
			counterparty.Kind = kind
		}
		counterparty.UpdatedAt = r.now()
		if err := tx.PutCounterparty(ctx, *counterparty); err != nil {
			return err
		}
		updated = counterparty
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *Registry) DeleteCounterparty(ctx context.Context, id string) error {
	return r.store.Update(ctx, func(tx store.Tx) error {
		return tx.DeleteCounterparty(ctx, id)
	})
}
