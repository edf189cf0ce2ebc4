package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/tavolo-pos/api/internal/enum"
)

const orderItemColumns = `id, order_id, menu_item_id, name, quantity, unit_price,
total_price, notes, station, sent_to_kitchen, sent_at, batch_number,
kitchen_status, bar_status, started_at, ready_at, created_at`

func scanOrderItem(row pgx.Row) (OrderItem, error) {
	var it OrderItem
	err := row.Scan(&it.ID, &it.OrderID, &it.MenuItemID, &it.Name, &it.Quantity,
		&it.UnitPrice, &it.TotalPrice, &it.Notes, &it.Station, &it.SentToKitchen,
		&it.SentAt, &it.BatchNumber, &it.KitchenStatus, &it.BarStatus,
		&it.StartedAt, &it.ReadyAt, &it.CreatedAt)
	return it, err
}

func collectOrderItems(rows pgx.Rows) ([]OrderItem, error) {
	defer rows.Close()
	var items []OrderItem
	for rows.Next() {
		it, err := scanOrderItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

const createOrderItem = `
INSERT INTO order_items (order_id, menu_item_id, name, quantity, unit_price, total_price, notes, station)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING ` + orderItemColumns

type CreateOrderItemParams struct {
	OrderID    uuid.UUID
	MenuItemID uuid.UUID
	Name       string
	Quantity   int32
	UnitPrice  pgtype.Numeric
	TotalPrice pgtype.Numeric
	Notes      pgtype.Text
	Station    string
}

func (q *Queries) CreateOrderItem(ctx context.Context, arg CreateOrderItemParams) (OrderItem, error) {
	return scanOrderItem(q.db.QueryRow(ctx, createOrderItem,
		arg.OrderID, arg.MenuItemID, arg.Name, arg.Quantity,
		arg.UnitPrice, arg.TotalPrice, arg.Notes, arg.Station))
}

const getOrderItem = `SELECT ` + orderItemColumns + ` FROM order_items WHERE id = $1`

func (q *Queries) GetOrderItem(ctx context.Context, id uuid.UUID) (OrderItem, error) {
	return scanOrderItem(q.db.QueryRow(ctx, getOrderItem, id))
}

const listOrderItemsByOrder = `
SELECT ` + orderItemColumns + ` FROM order_items WHERE order_id = $1 ORDER BY created_at`

func (q *Queries) ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]OrderItem, error) {
	rows, err := q.db.Query(ctx, listOrderItemsByOrder, orderID)
	if err != nil {
		return nil, err
	}
	return collectOrderItems(rows)
}

// SumOrderItems reads the authoritative subtotal from the live item set.
// Called inside the same transaction as the write that triggered it.
const sumOrderItems = `
SELECT COALESCE(SUM(total_price), 0) FROM order_items WHERE order_id = $1`

func (q *Queries) SumOrderItems(ctx context.Context, orderID uuid.UUID) (pgtype.Numeric, error) {
	var sum pgtype.Numeric
	err := q.db.QueryRow(ctx, sumOrderItems, orderID).Scan(&sum)
	return sum, err
}

const updateOrderItemQuantity = `
UPDATE order_items
SET quantity = $2, total_price = $3
WHERE id = $1
RETURNING ` + orderItemColumns

type UpdateOrderItemQuantityParams struct {
	ID         uuid.UUID
	Quantity   int32
	TotalPrice pgtype.Numeric
}

func (q *Queries) UpdateOrderItemQuantity(ctx context.Context, arg UpdateOrderItemQuantityParams) (OrderItem, error) {
	return scanOrderItem(q.db.QueryRow(ctx, updateOrderItemQuantity,
		arg.ID, arg.Quantity, arg.TotalPrice))
}

const deleteOrderItem = `DELETE FROM order_items WHERE id = $1`

// DeleteOrderItem reports the number of rows removed so callers can map
// zero to a stale-reference error.
func (q *Queries) DeleteOrderItem(ctx context.Context, id uuid.UUID) (int64, error) {
	tag, err := q.db.Exec(ctx, deleteOrderItem, id)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const maxBatchNumber = `
SELECT COALESCE(MAX(batch_number), 0) FROM order_items WHERE order_id = $1`

func (q *Queries) MaxBatchNumber(ctx context.Context, orderID uuid.UUID) (int32, error) {
	var n int32
	err := q.db.QueryRow(ctx, maxBatchNumber, orderID).Scan(&n)
	return n, err
}

// MarkItemsSent stamps the batch onto the not-yet-sent subset only; items
// already sent keep their original batch_number.
const markItemsSent = `
UPDATE order_items
SET sent_to_kitchen = TRUE, sent_at = now(), batch_number = $3
WHERE order_id = $1 AND id = ANY($2) AND sent_to_kitchen = FALSE
RETURNING ` + orderItemColumns

type MarkItemsSentParams struct {
	OrderID     uuid.UUID
	ItemIDs     []uuid.UUID
	BatchNumber int32
}

func (q *Queries) MarkItemsSent(ctx context.Context, arg MarkItemsSentParams) ([]OrderItem, error) {
	rows, err := q.db.Query(ctx, markItemsSent, arg.OrderID, arg.ItemIDs, arg.BatchNumber)
	if err != nil {
		return nil, err
	}
	return collectOrderItems(rows)
}

// UpdateItemStationStatus writes the status column matching the item's
// station, guarded on the expected current status (compare-and-set).
// IN_PROGRESS stamps started_at; READY and ARCHIVED stamp ready_at.
const updateItemStationStatus = `
UPDATE order_items
SET kitchen_status = CASE WHEN station = 'KITCHEN' THEN $3 ELSE kitchen_status END,
    bar_status     = CASE WHEN station = 'BAR' THEN $3 ELSE bar_status END,
    started_at = CASE WHEN $3 = 'IN_PROGRESS' THEN now() ELSE started_at END,
    ready_at   = CASE WHEN $3 IN ('READY', 'ARCHIVED') THEN COALESCE(ready_at, now()) ELSE ready_at END
WHERE id = $1
  AND ((station = 'KITCHEN' AND kitchen_status = $2) OR (station = 'BAR' AND bar_status = $2))
RETURNING ` + orderItemColumns

type UpdateItemStationStatusParams struct {
	ID         uuid.UUID
	FromStatus string
	ToStatus   string
}

func (q *Queries) UpdateItemStationStatus(ctx context.Context, arg UpdateItemStationStatusParams) (OrderItem, error) {
	return scanOrderItem(q.db.QueryRow(ctx, updateItemStationStatus,
		arg.ID, arg.FromStatus, arg.ToStatus))
}

// ReadyBatchItems moves a whole batch from IN_PROGRESS to READY on each
// item's resolved station. Items in other batches or other states are
// untouched.
const readyBatchItems = `
UPDATE order_items
SET kitchen_status = CASE WHEN station = 'KITCHEN' THEN 'READY' ELSE kitchen_status END,
    bar_status     = CASE WHEN station = 'BAR' THEN 'READY' ELSE bar_status END,
    ready_at = now()
WHERE order_id = $1 AND batch_number = $2
  AND ((station = 'KITCHEN' AND kitchen_status = 'IN_PROGRESS')
    OR (station = 'BAR' AND bar_status = 'IN_PROGRESS'))
RETURNING ` + orderItemColumns

type ReadyBatchItemsParams struct {
	OrderID     uuid.UUID
	BatchNumber int32
}

func (q *Queries) ReadyBatchItems(ctx context.Context, arg ReadyBatchItemsParams) ([]OrderItem, error) {
	rows, err := q.db.Query(ctx, readyBatchItems, arg.OrderID, arg.BatchNumber)
	if err != nil {
		return nil, err
	}
	return collectOrderItems(rows)
}

// StationFeedRow joins the item with display grouping keys for the ticket
// screens.
type StationFeedRow struct {
	Item        OrderItem
	TableID     uuid.UUID
	TableNumber int32
}

func collectFeedRows(rows pgx.Rows) ([]StationFeedRow, error) {
	defer rows.Close()
	var feed []StationFeedRow
	for rows.Next() {
		var r StationFeedRow
		it := &r.Item
		err := rows.Scan(&it.ID, &it.OrderID, &it.MenuItemID, &it.Name, &it.Quantity,
			&it.UnitPrice, &it.TotalPrice, &it.Notes, &it.Station, &it.SentToKitchen,
			&it.SentAt, &it.BatchNumber, &it.KitchenStatus, &it.BarStatus,
			&it.StartedAt, &it.ReadyAt, &it.CreatedAt, &r.TableID, &r.TableNumber)
		if err != nil {
			return nil, err
		}
		feed = append(feed, r)
	}
	return feed, rows.Err()
}

const feedSelect = `
SELECT oi.id, oi.order_id, oi.menu_item_id, oi.name, oi.quantity, oi.unit_price,
       oi.total_price, oi.notes, oi.station, oi.sent_to_kitchen, oi.sent_at,
       oi.batch_number, oi.kitchen_status, oi.bar_status, oi.started_at,
       oi.ready_at, oi.created_at, t.id, t.table_number
FROM order_items oi
JOIN orders o ON o.id = oi.order_id
JOIN tables t ON t.id = o.table_id
WHERE oi.sent_to_kitchen = TRUE AND oi.station = $1`

// Kitchen works oldest ticket first.
const listKitchenFeed = feedSelect + `
  AND o.status = 'OPEN' AND oi.kitchen_status <> 'ARCHIVED'
ORDER BY oi.created_at`

// Bar groups by table, tables ordered by their earliest waiting item.
const listBarFeed = feedSelect + `
  AND o.status = 'OPEN' AND oi.bar_status <> 'ARCHIVED'
ORDER BY MIN(oi.created_at) OVER (PARTITION BY t.id), t.id, oi.created_at`

func (q *Queries) ListStationFeed(ctx context.Context, station string) ([]StationFeedRow, error) {
	sql := listKitchenFeed
	if station == enum.StationBar {
		sql = listBarFeed
	}
	rows, err := q.db.Query(ctx, sql, station)
	if err != nil {
		return nil, err
	}
	return collectFeedRows(rows)
}

// Archived items for historical review, newest batch activity first.
const listArchivedItems = feedSelect + `
  AND ((oi.station = 'KITCHEN' AND oi.kitchen_status = 'ARCHIVED')
    OR (oi.station = 'BAR' AND oi.bar_status = 'ARCHIVED'))
  AND oi.ready_at >= $2
ORDER BY oi.ready_at DESC, oi.order_id, oi.batch_number`

type ListArchivedItemsParams struct {
	Station string
	Since   time.Time
}

func (q *Queries) ListArchivedItems(ctx context.Context, arg ListArchivedItemsParams) ([]StationFeedRow, error) {
	rows, err := q.db.Query(ctx, listArchivedItems, arg.Station, arg.Since)
	if err != nil {
		return nil, err
	}
	return collectFeedRows(rows)
}

// --- Add-on snapshots ---

const createOrderItemAddOn = `
INSERT INTO order_item_add_ons (order_item_id, add_on_id, name, price)
VALUES ($1, $2, $3, $4)
RETURNING id, order_item_id, add_on_id, name, price`

type CreateOrderItemAddOnParams struct {
	OrderItemID uuid.UUID
	AddOnID     uuid.UUID
	Name        string
	Price       pgtype.Numeric
}

func (q *Queries) CreateOrderItemAddOn(ctx context.Context, arg CreateOrderItemAddOnParams) (OrderItemAddOn, error) {
	var a OrderItemAddOn
	err := q.db.QueryRow(ctx, createOrderItemAddOn,
		arg.OrderItemID, arg.AddOnID, arg.Name, arg.Price).
		Scan(&a.ID, &a.OrderItemID, &a.AddOnID, &a.Name, &a.Price)
	return a, err
}

const listOrderItemAddOns = `
SELECT id, order_item_id, add_on_id, name, price
FROM order_item_add_ons WHERE order_item_id = $1`

func (q *Queries) ListOrderItemAddOns(ctx context.Context, orderItemID uuid.UUID) ([]OrderItemAddOn, error) {
	rows, err := q.db.Query(ctx, listOrderItemAddOns, orderItemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var addOns []OrderItemAddOn
	for rows.Next() {
		var a OrderItemAddOn
		if err := rows.Scan(&a.ID, &a.OrderItemID, &a.AddOnID, &a.Name, &a.Price); err != nil {
			return nil, err
		}
		addOns = append(addOns, a)
	}
	return addOns, rows.Err()
}
