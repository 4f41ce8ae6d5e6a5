// Package postgres implements the store interfaces on PostgreSQL via pgx.
// Write transactions lock product rows with SELECT ... FOR UPDATE, so a
// stock check and the following update run as one critical section per
// product; read transactions see a consistent MVCC snapshot.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"stocktrack/internal/domain"
	"stocktrack/internal/store"
)

type Store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) Close() {
	s.pool.Close()
}

func (s *Store) View(ctx context.Context, fn func(tx store.Tx) error) error {
	return s.run(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly}, false, fn)
}

func (s *Store) Update(ctx context.Context, fn func(tx store.Tx) error) error {
	return s.run(ctx, pgx.TxOptions{}, true, fn)
}

func (s *Store) run(ctx context.Context, opts pgx.TxOptions, writable bool, fn func(tx store.Tx) error) error {
	pgtx, err := s.pool.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer pgtx.Rollback(ctx)

	if err := fn(&tx{tx: pgtx, writable: writable}); err != nil {
		return err
	}
	if err := pgtx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

type tx struct {
	tx       pgx.Tx
	writable bool
}

const productColumns = `
	id,
	name,
	unit_cost::double precision,
	unit_price::double precision,
	on_hand,
	category,
	created_at,
	updated_at
`

func (t *tx) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	query := "SELECT " + productColumns + " FROM products WHERE id = $1"
	if t.writable {
		query += " FOR UPDATE"
	}
	p, err := scanProduct(t.tx.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get product %s: %w", id, err)
	}
	return &p, nil
}

func (t *tx) ListProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := t.tx.Query(ctx, "SELECT "+productColumns+" FROM products ORDER BY id ASC")
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}
	return products, nil
}

func (t *tx) PutProduct(ctx context.Context, p domain.Product) error {
	if _, err := t.tx.Exec(ctx, `
		INSERT INTO products (id, name, unit_cost, unit_price, on_hand, category, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			unit_cost = EXCLUDED.unit_cost,
			unit_price = EXCLUDED.unit_price,
			on_hand = EXCLUDED.on_hand,
			category = EXCLUDED.category,
			updated_at = EXCLUDED.updated_at
	`, p.ID, p.Name, p.UnitCost, p.UnitPrice, p.OnHand, p.Category, p.CreatedAt, p.UpdatedAt); err != nil {
		return fmt.Errorf("put product %s: %w", p.ID, err)
	}
	return nil
}

func (t *tx) DeleteProduct(ctx context.Context, id string) error {
	cmd, err := t.tx.Exec(ctx, "DELETE FROM products WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete product %s: %w", id, err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (t *tx) GetCounterparty(ctx context.Context, id string) (*domain.Counterparty, error) {
	var c domain.Counterparty
	var kind string
	err := t.tx.QueryRow(ctx, `
		SELECT id, name, kind, created_at, updated_at
		FROM counterparties
		WHERE id = $1
	`, id).Scan(&c.ID, &c.Name, &kind, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get counterparty %s: %w", id, err)
	}
	c.Kind = domain.CounterpartyKind(kind)
	return &c, nil
}

func (t *tx) ListCounterparties(ctx context.Context) ([]domain.Counterparty, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT id, name, kind, created_at, updated_at
		FROM counterparties
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list counterparties: %w", err)
	}
	defer rows.Close()

	var list []domain.Counterparty
	for rows.Next() {
		var c domain.Counterparty
		var kind string
		if err := rows.Scan(&c.ID, &c.Name, &kind, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan counterparty: %w", err)
		}
		c.Kind = domain.CounterpartyKind(kind)
		list = append(list, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate counterparties: %w", err)
	}
	return list, nil
}

func (t *tx) PutCounterparty(ctx context.Context, c domain.Counterparty) error {
	if _, err := t.tx.Exec(ctx, `
		INSERT INTO counterparties (id, name, kind, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			kind = EXCLUDED.kind,
			updated_at = EXCLUDED.updated_at
	`, c.ID, c.Name, string(c.Kind), c.CreatedAt, c.UpdatedAt); err != nil {
		return fmt.Errorf("put counterparty %s: %w", c.ID, err)
	}
	return nil
}

func (t *tx) DeleteCounterparty(ctx context.Context, id string) error {
	cmd, err := t.tx.Exec(ctx, "DELETE FROM counterparties WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete counterparty %s: %w", id, err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (t *tx) GetTitle(ctx context.Context, id string) (*domain.Title, error) {
	query := `
		SELECT id, unit_amount::double precision, quantity, paid, counterparty_id, direction, created_at
		FROM titles
		WHERE id = $1
	`
	if t.writable {
		query += " FOR UPDATE"
	}
	title, err := scanTitle(t.tx.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get title %s: %w", id, err)
	}
	return &title, nil
}

func (t *tx) ListTitles(ctx context.Context, openOnly bool) ([]domain.Title, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT id, unit_amount::double precision, quantity, paid, counterparty_id, direction, created_at
		FROM titles
		WHERE ($1 = FALSE OR paid = FALSE)
		ORDER BY created_at ASC, id ASC
	`, openOnly)
	if err != nil {
		return nil, fmt.Errorf("list titles: %w", err)
	}
	defer rows.Close()

	var titles []domain.Title
	for rows.Next() {
		title, err := scanTitle(rows)
		if err != nil {
			return nil, fmt.Errorf("scan title: %w", err)
		}
		titles = append(titles, title)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate titles: %w", err)
	}
	return titles, nil
}

func (t *tx) PutTitle(ctx context.Context, title domain.Title) error {
	if _, err := t.tx.Exec(ctx, `
		INSERT INTO titles (id, unit_amount, quantity, paid, counterparty_id, direction, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET paid = EXCLUDED.paid
	`, title.ID, title.UnitAmount, title.Quantity, title.Paid, title.CounterpartyID, string(title.Direction), title.CreatedAt); err != nil {
		return fmt.Errorf("put title %s: %w", title.ID, err)
	}
	return nil
}

func (t *tx) AppendMovement(ctx context.Context, m domain.Movement) error {
	if _, err := t.tx.Exec(ctx, `
		INSERT INTO movements (kind, counterparty_id, product_id, quantity, occurred_on, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, string(m.Kind), m.CounterpartyID, m.ProductID, m.Quantity, m.Date.Time(), m.Time); err != nil {
		return fmt.Errorf("append movement: %w", err)
	}
	return nil
}

func (t *tx) ListMovements(ctx context.Context, filter store.MovementFilter) ([]domain.Movement, error) {
	query := `
		SELECT kind, counterparty_id, product_id, quantity, occurred_on, occurred_at
		FROM movements
		WHERE ($1 = '' OR kind = $1)
	`
	args := []any{string(filter.Kind)}
	idx := 2
	if filter.From != nil {
		query += fmt.Sprintf(" AND occurred_on >= $%d", idx)
		args = append(args, filter.From.Time())
		idx++
	}
	if filter.To != nil {
		query += fmt.Sprintf(" AND occurred_on <= $%d", idx)
		args = append(args, filter.To.Time())
		idx++
	}
	query += " ORDER BY id ASC"

	rows, err := t.tx.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list movements: %w", err)
	}
	defer rows.Close()

	var movements []domain.Movement
	for rows.Next() {
		var (
			m          domain.Movement
			kind       string
			occurredOn time.Time
		)
		if err := rows.Scan(&kind, &m.CounterpartyID, &m.ProductID, &m.Quantity, &occurredOn, &m.Time); err != nil {
			return nil, fmt.Errorf("scan movement: %w", err)
		}
		m.Kind = domain.MovementKind(kind)
		m.Date = domain.DateOf(occurredOn)
		movements = append(movements, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate movements: %w", err)
	}
	return movements, nil
}

func scanProduct(row pgx.Row) (domain.Product, error) {
	var p domain.Product
	if err := row.Scan(
		&p.ID,
		&p.Name,
		&p.UnitCost,
		&p.UnitPrice,
		&p.OnHand,
		&p.Category,
		&p.CreatedAt,
		&p.UpdatedAt,
	); err != nil {
		return domain.Product{}, err
	}
	return p, nil
}

func scanTitle(row pgx.Row) (domain.Title, error) {
	var (
		title     domain.Title
		direction string
	)
	if err := row.Scan(
		&title.ID,
		&title.UnitAmount,
		&title.Quantity,
		&title.Paid,
		&title.CounterpartyID,
		&direction,
		&title.CreatedAt,
	); err != nil {
		return domain.Title{}, err
	}
	title.Direction = domain.TitleDirection(direction)
	return title, nil
}
