package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const orderColumns = `id, table_id, waiter_id, status, subtotal, service_charge,
total_amount, paid, payment_method, version, created_at, closed_at`

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.TableID, &o.WaiterID, &o.Status, &o.Subtotal,
		&o.ServiceCharge, &o.TotalAmount, &o.Paid, &o.PaymentMethod,
		&o.Version, &o.CreatedAt, &o.ClosedAt)
	return o, err
}

const createOrder = `
INSERT INTO orders (table_id, waiter_id)
VALUES ($1, $2)
RETURNING ` + orderColumns

type CreateOrderParams struct {
	TableID  uuid.UUID
	WaiterID uuid.UUID
}

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, createOrder, arg.TableID, arg.WaiterID))
}

const getOrder = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

func (q *Queries) GetOrder(ctx context.Context, id uuid.UUID) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrder, id))
}

// GetOrderForUpdate locks the order row so item mutations, totals
// recomputes and batch numbering serialize per order.
const getOrderForUpdate = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1 FOR NO KEY UPDATE`

func (q *Queries) GetOrderForUpdate(ctx context.Context, id uuid.UUID) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrderForUpdate, id))
}

const getOpenOrderByTable = `SELECT ` + orderColumns + ` FROM orders WHERE table_id = $1 AND status = 'OPEN'`

func (q *Queries) GetOpenOrderByTable(ctx context.Context, tableID uuid.UUID) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOpenOrderByTable, tableID))
}

const listOpenOrders = `SELECT ` + orderColumns + ` FROM orders WHERE status = 'OPEN' ORDER BY created_at`

func (q *Queries) ListOpenOrders(ctx context.Context) ([]Order, error) {
	rows, err := q.db.Query(ctx, listOpenOrders)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var orders []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// FinishOrder performs the one-way OPEN → CLOSED/CANCELLED transition.
// The status guard makes a second terminal call return no rows.
const finishOrder = `
UPDATE orders
SET status = $2, paid = $3, payment_method = $4,
    closed_at = now(), version = version + 1
WHERE id = $1 AND status = 'OPEN'
RETURNING ` + orderColumns

type FinishOrderParams struct {
	ID            uuid.UUID
	Status        string
	Paid          bool
	PaymentMethod pgtype.Text
}

func (q *Queries) FinishOrder(ctx context.Context, arg FinishOrderParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, finishOrder,
		arg.ID, arg.Status, arg.Paid, arg.PaymentMethod))
}

const updateOrderTotals = `
UPDATE orders
SET subtotal = $2, service_charge = $3, total_amount = $4, version = version + 1
WHERE id = $1
RETURNING ` + orderColumns

type UpdateOrderTotalsParams struct {
	ID            uuid.UUID
	Subtotal      pgtype.Numeric
	ServiceCharge pgtype.Numeric
	TotalAmount   pgtype.Numeric
}

func (q *Queries) UpdateOrderTotals(ctx context.Context, arg UpdateOrderTotalsParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, updateOrderTotals,
		arg.ID, arg.Subtotal, arg.ServiceCharge, arg.TotalAmount))
}

// BumpOrderVersion advances the order's sync version for mutations that do
// not touch totals (send-to-kitchen, station status changes).
const bumpOrderVersion = `
UPDATE orders SET version = version + 1 WHERE id = $1
RETURNING ` + orderColumns

func (q *Queries) BumpOrderVersion(ctx context.Context, id uuid.UUID) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, bumpOrderVersion, id))
}
