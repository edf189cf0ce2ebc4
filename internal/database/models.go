package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type Table struct {
	ID             uuid.UUID
	TableNumber    int32
	Status         string
	CurrentOrderID pgtype.UUID
	CreatedAt      time.Time
}

type Order struct {
	ID            uuid.UUID
	TableID       uuid.UUID
	WaiterID      uuid.UUID
	Status        string
	Subtotal      pgtype.Numeric
	ServiceCharge pgtype.Numeric
	TotalAmount   pgtype.Numeric
	Paid          bool
	PaymentMethod pgtype.Text
	Version       int64
	CreatedAt     time.Time
	ClosedAt      pgtype.Timestamptz
}

type OrderItem struct {
	ID            uuid.UUID
	OrderID       uuid.UUID
	MenuItemID    uuid.UUID
	Name          string
	Quantity      int32
	UnitPrice     pgtype.Numeric
	TotalPrice    pgtype.Numeric
	Notes         pgtype.Text
	Station       string
	SentToKitchen bool
	SentAt        pgtype.Timestamptz
	BatchNumber   pgtype.Int4
	KitchenStatus string
	BarStatus     string
	StartedAt     pgtype.Timestamptz
	ReadyAt       pgtype.Timestamptz
	CreatedAt     time.Time
}

// OrderItemAddOn is a snapshot of an add-on at the moment the item was
// placed; catalog price changes never touch it.
type OrderItemAddOn struct {
	ID          uuid.UUID
	OrderItemID uuid.UUID
	AddOnID     uuid.UUID
	Name        string
	Price       pgtype.Numeric
}

type WaiterUser struct {
	ID           uuid.UUID
	Name         string
	Email        string
	PasswordHash string
	Role         string
	Active       bool
	LastLoginAt  pgtype.Timestamptz
	CreatedAt    time.Time
}
