package file

import (
	"fmt"
	"strconv"
	"time"

	"stocktrack/internal/domain"
)

// One CSV row per record, mirroring the layout the store has always used on
// disk. Parsing is lenient at the file level (bad rows are skipped by the
// loader) but strict at the row level.

const movementHeader = "Kind,CounterpartyID,ProductID,Quantity,Date,Time"

func productFields(p domain.Product) []string {
	return []string{
		p.ID,
		p.Name,
		formatFloat(p.UnitCost),
		formatFloat(p.UnitPrice),
		strconv.Itoa(p.OnHand),
		p.Category,
		p.CreatedAt.UTC().Format(time.RFC3339),
		p.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func parseProduct(fields []string) (domain.Product, error) {
	if len(fields) != 8 {
		return domain.Product{}, fmt.Errorf("product row has %d fields, want 8", len(fields))
	}
	cost, err := strconv.ParseFloat(fields[2], 64)
	if err != nil {
		return domain.Product{}, fmt.Errorf("product unit_cost: %w", err)
	}
	price, err := strconv.ParseFloat(fields[3], 64)
	if err != nil {
		return domain.Product{}, fmt.Errorf("product unit_price: %w", err)
	}
	onHand, err := strconv.Atoi(fields[4])
	if err != nil {
		return domain.Product{}, fmt.Errorf("product on_hand: %w", err)
	}
	if onHand < 0 {
		return domain.Product{}, fmt.Errorf("product on_hand is negative")
	}
	createdAt, err := time.Parse(time.RFC3339, fields[6])
	if err != nil {
		return domain.Product{}, fmt.Errorf("product created_at: %w", err)
	}
	updatedAt, err := time.Parse(time.RFC3339, fields[7])
	if err != nil {
		return domain.Product{}, fmt.Errorf("product updated_at: %w", err)
	}
	return domain.Product{
		ID:        fields[0],
		Name:      fields[1],
		UnitCost:  cost,
		UnitPrice: price,
		OnHand:    onHand,
		Category:  fields[5],
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}, nil
}

func counterpartyFields(c domain.Counterparty) []string {
	return []string{
		c.ID,
		c.Name,
		string(c.Kind),
		c.CreatedAt.UTC().Format(time.RFC3339),
		c.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func parseCounterparty(fields []string) (domain.Counterparty, error) {
	if len(fields) != 5 {
		return domain.Counterparty{}, fmt.Errorf("counterparty row has %d fields, want 5", len(fields))
	}
	kind, ok := domain.ParseCounterpartyKind(fields[2])
	if !ok {
		return domain.Counterparty{}, fmt.Errorf("counterparty kind %q", fields[2])
	}
	createdAt, err := time.Parse(time.RFC3339, fields[3])
	if err != nil {
		return domain.Counterparty{}, fmt.Errorf("counterparty created_at: %w", err)
	}
	updatedAt, err := time.Parse(time.RFC3339, fields[4])
	if err != nil {
		return domain.Counterparty{}, fmt.Errorf("counterparty updated_at: %w", err)
	}
	return domain.Counterparty{
		ID:        fields[0],
		Name:      fields[1],
		Kind:      kind,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}, nil
}

func titleFields(t domain.Title) []string {
	return []string{
		t.ID,
		formatFloat(t.UnitAmount),
		strconv.Itoa(t.Quantity),
		strconv.FormatBool(t.Paid),
		t.CounterpartyID,
		string(t.Direction),
		t.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func parseTitle(fields []string) (domain.Title, error) {
	if len(fields) != 7 {
		return domain.Title{}, fmt.Errorf("title row has %d fields, want 7", len(fields))
	}
	amount, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return domain.Title{}, fmt.Errorf("title unit_amount: %w", err)
	}
	quantity, err := strconv.Atoi(fields[2])
	if err != nil {
		return domain.Title{}, fmt.Errorf("title quantity: %w", err)
	}
	paid, err := strconv.ParseBool(fields[3])
	if err != nil {
		return domain.Title{}, fmt.Errorf("title paid: %w", err)
	}
	direction := domain.TitleDirection(fields[5])
	if direction != domain.Payable && direction != domain.Receivable {
		return domain.Title{}, fmt.Errorf("title direction %q", fields[5])
	}
	createdAt, err := time.Parse(time.RFC3339, fields[6])
	if err != nil {
		return domain.Title{}, fmt.Errorf("title created_at: %w", err)
	}
	return domain.Title{
		ID:             fields[0],
		UnitAmount:     amount,
		Quantity:       quantity,
		Paid:           paid,
		CounterpartyID: fields[4],
		Direction:      direction,
		CreatedAt:      createdAt,
	}, nil
}

func movementFields(m domain.Movement) []string {
	return []string{
		string(m.Kind),
		m.CounterpartyID,
		m.ProductID,
		strconv.Itoa(m.Quantity),
		m.Date.String(),
		m.Time,
	}
}

func parseMovement(fields []string) (domain.Movement, error) {
	if len(fields) != 6 {
		return domain.Movement{}, fmt.Errorf("movement row has %d fields, want 6", len(fields))
	}
	kind := domain.MovementKind(fields[0])
	if kind != domain.Purchase && kind != domain.Sale {
		return domain.Movement{}, fmt.Errorf("movement kind %q", fields[0])
	}
	quantity, err := strconv.Atoi(fields[3])
	if err != nil {
		return domain.Movement{}, fmt.Errorf("movement quantity: %w", err)
	}
	if quantity <= 0 {
		return domain.Movement{}, fmt.Errorf("movement quantity must be positive")
	}
	date, err := domain.ParseDate(fields[4])
	if err != nil {
		return domain.Movement{}, fmt.Errorf("movement date: %w", err)
	}
	return domain.Movement{
		Kind:           kind,
		CounterpartyID: fields[1],
		ProductID:      fields[2],
		Quantity:       quantity,
		Date:           date,
		Time:           fields[5],
	}, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
