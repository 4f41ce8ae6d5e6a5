package domain

import "time"

type CounterpartyKind string

const (
	Customer CounterpartyKind = "customer"
	Supplier CounterpartyKind = "supplier"
	Employee CounterpartyKind = "employee"
)

func ParseCounterpartyKind(raw string) (CounterpartyKind, bool) {
	switch CounterpartyKind(raw) {
	case Customer, Supplier, Employee:
		return CounterpartyKind(raw), true
	}
	return "", false
}

type TitleDirection string

const (
	Payable    TitleDirection = "payable"
	Receivable TitleDirection = "receivable"
)

type MovementKind string

const (
	Purchase MovementKind = "PURCHASE"
	Sale     MovementKind = "SALE"
)

type Product struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	UnitCost  float64   `json:"unit_cost"`
	UnitPrice float64   `json:"unit_price"`
	OnHand    int       `json:"on_hand"`
	Category  string    `json:"category"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Counterparty struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	Kind      CounterpartyKind `json:"kind"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// Title is an open payable or receivable balance. It is created exactly once
// per purchase or sale and only ever mutated by settlement.
type Title struct {
	ID             string         `json:"id"`
	UnitAmount     float64        `json:"unit_amount"`
	Quantity       int            `json:"quantity"`
	Paid           bool           `json:"paid"`
	CounterpartyID string         `json:"counterparty_id"`
	Direction      TitleDirection `json:"direction"`
	CreatedAt      time.Time      `json:"created_at"`
}

func (t Title) Total() float64 {
	return t.UnitAmount * float64(t.Quantity)
}

// Movement is one append-only log record. Records are never updated or
// deleted; they are the sole historical input to analytics.
type Movement struct {
	Kind           MovementKind `json:"kind"`
	CounterpartyID string       `json:"counterparty_id"`
	ProductID      string       `json:"product_id"`
	Quantity       int          `json:"quantity"`
	Date           Date         `json:"date"`
	Time           string       `json:"time"`
}
