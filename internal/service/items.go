package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/tavolo-pos/api/internal/database"
	"github.com/tavolo-pos/api/internal/enum"
)

// Errors returned by the item and batch manager.
var (
	ErrOrderNotOpen      = errors.New("order is not open")
	ErrItemNotFound      = errors.New("item not found")
	ErrMenuItemNotFound  = errors.New("menu item not found")
	ErrAddOnNotFound     = errors.New("add-on not found")
	ErrInvalidQuantity   = errors.New("quantity must be > 0")
	ErrEmptyItems        = errors.New("item ids are required")
	ErrItemNotSent       = errors.New("item has not been sent to its station")
	ErrStationMismatch   = errors.New("item belongs to a different station")
	ErrInvalidStatusMove = errors.New("invalid station status transition")
)

// ItemStore defines the DB methods needed by item and batch operations.
// Satisfied by *database.Queries (and its WithTx variant).
type ItemStore interface {
	GetOrderForUpdate(ctx context.Context, id uuid.UUID) (database.Order, error)
	GetMenuItemForOrder(ctx context.Context, id uuid.UUID) (database.GetMenuItemForOrderRow, error)
	GetAddOnForOrder(ctx context.Context, id uuid.UUID) (database.GetAddOnForOrderRow, error)
	CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error)
	CreateOrderItemAddOn(ctx context.Context, arg database.CreateOrderItemAddOnParams) (database.OrderItemAddOn, error)
	GetOrderItem(ctx context.Context, id uuid.UUID) (database.OrderItem, error)
	UpdateOrderItemQuantity(ctx context.Context, arg database.UpdateOrderItemQuantityParams) (database.OrderItem, error)
	DeleteOrderItem(ctx context.Context, id uuid.UUID) (int64, error)
	SumOrderItems(ctx context.Context, orderID uuid.UUID) (pgtype.Numeric, error)
	UpdateOrderTotals(ctx context.Context, arg database.UpdateOrderTotalsParams) (database.Order, error)
	MaxBatchNumber(ctx context.Context, orderID uuid.UUID) (int32, error)
	MarkItemsSent(ctx context.Context, arg database.MarkItemsSentParams) ([]database.OrderItem, error)
	UpdateItemStationStatus(ctx context.Context, arg database.UpdateItemStationStatusParams) (database.OrderItem, error)
	ReadyBatchItems(ctx context.Context, arg database.ReadyBatchItemsParams) ([]database.OrderItem, error)
	BumpOrderVersion(ctx context.Context, id uuid.UUID) (database.Order, error)
}

// NewItemStore creates an ItemStore from a DBTX (pool or tx).
type NewItemStore func(db database.DBTX) ItemStore

// ItemService owns the per-item lifecycle and batch grouping.
type ItemService struct {
	pool     TxBeginner
	newStore NewItemStore
}

// NewItemService creates a new ItemService.
func NewItemService(pool TxBeginner, newStore NewItemStore) *ItemService {
	return &ItemService{pool: pool, newStore: newStore}
}

// AddItemRequest is the validated input for adding an item to an order.
type AddItemRequest struct {
	OrderID    uuid.UUID
	MenuItemID uuid.UUID
	Quantity   int32
	Notes      string
	AddOnIDs   []uuid.UUID
}

// ItemResult carries the mutated item and the order with recomputed totals.
type ItemResult struct {
	Item   database.OrderItem
	AddOns []database.OrderItemAddOn
	Order  database.Order
}

// SendResult is the outcome of a send-to-kitchen action. Batch is 0 when no
// unsent item was captured and no batch was created.
type SendResult struct {
	Batch int32
	Items []database.OrderItem
	Order database.Order
}

// BatchResult carries a batch transition and the order it belongs to.
type BatchResult struct {
	Items []database.OrderItem
	Order database.Order
}

// AddItem snapshots the current menu and add-on prices into a new item and
// recomputes the order totals in the same transaction.
func (s *ItemService) AddItem(ctx context.Context, req AddItemRequest) (*ItemResult, error) {
	if req.Quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	if _, err := s.lockOpenOrder(ctx, store, req.OrderID); err != nil {
		return nil, err
	}

	menuItem, err := store.GetMenuItemForOrder(ctx, req.MenuItemID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMenuItemNotFound
		}
		return nil, fmt.Errorf("get menu item: %w", err)
	}

	// Resolve add-ons and freeze their prices.
	addOnPrices := make([]decimal.Decimal, 0, len(req.AddOnIDs))
	addOnRows := make([]database.GetAddOnForOrderRow, 0, len(req.AddOnIDs))
	for i, id := range req.AddOnIDs {
		ao, err := store.GetAddOnForOrder(ctx, id)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, fmt.Errorf("add_ons[%d]: %w", i, ErrAddOnNotFound)
			}
			return nil, fmt.Errorf("add_ons[%d]: get add-on: %w", i, err)
		}
		addOnRows = append(addOnRows, ao)
		addOnPrices = append(addOnPrices, NumericToDecimal(ao.Price))
	}

	unitPrice := UnitPrice(NumericToDecimal(menuItem.Price), addOnPrices)
	lineTotal := LineTotal(unitPrice, req.Quantity)

	notes := pgtype.Text{}
	if req.Notes != "" {
		notes = pgtype.Text{String: req.Notes, Valid: true}
	}

	item, err := store.CreateOrderItem(ctx, database.CreateOrderItemParams{
		OrderID:    req.OrderID,
		MenuItemID: menuItem.ID,
		Name:       menuItem.Name,
		Quantity:   req.Quantity,
		UnitPrice:  decimalToNumeric(unitPrice),
		TotalPrice: decimalToNumeric(lineTotal),
		Notes:      notes,
		Station:    ResolveStation(menuItem.StationType),
	})
	if err != nil {
		return nil, fmt.Errorf("create order item: %w", err)
	}

	addOns := make([]database.OrderItemAddOn, 0, len(addOnRows))
	for _, ao := range addOnRows {
		snap, err := store.CreateOrderItemAddOn(ctx, database.CreateOrderItemAddOnParams{
			OrderItemID: item.ID,
			AddOnID:     ao.ID,
			Name:        ao.Name,
			Price:       ao.Price,
		})
		if err != nil {
			return nil, fmt.Errorf("create item add-on: %w", err)
		}
		addOns = append(addOns, snap)
	}

	order, err := recomputeTotals(ctx, store, req.OrderID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return &ItemResult{Item: item, AddOns: addOns, Order: order}, nil
}

// UpdateQuantity changes an item's quantity; zero removes the item.
func (s *ItemService) UpdateQuantity(ctx context.Context, orderID, itemID uuid.UUID, quantity int32) (*ItemResult, error) {
	if quantity < 0 {
		return nil, ErrInvalidQuantity
	}
	if quantity == 0 {
		return s.RemoveItem(ctx, orderID, itemID)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	if _, err := s.lockOpenOrder(ctx, store, orderID); err != nil {
		return nil, err
	}

	current, err := store.GetOrderItem(ctx, itemID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("get order item: %w", err)
	}
	if current.OrderID != orderID {
		return nil, ErrItemNotFound
	}

	lineTotal := LineTotal(NumericToDecimal(current.UnitPrice), quantity)
	item, err := store.UpdateOrderItemQuantity(ctx, database.UpdateOrderItemQuantityParams{
		ID:         itemID,
		Quantity:   quantity,
		TotalPrice: decimalToNumeric(lineTotal),
	})
	if err != nil {
		return nil, fmt.Errorf("update item quantity: %w", err)
	}

	order, err := recomputeTotals(ctx, store, orderID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return &ItemResult{Item: item, Order: order}, nil
}

// RemoveItem deletes an item and recomputes the order totals.
func (s *ItemService) RemoveItem(ctx context.Context, orderID, itemID uuid.UUID) (*ItemResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	if _, err := s.lockOpenOrder(ctx, store, orderID); err != nil {
		return nil, err
	}

	current, err := store.GetOrderItem(ctx, itemID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("get order item: %w", err)
	}
	if current.OrderID != orderID {
		return nil, ErrItemNotFound
	}

	deleted, err := store.DeleteOrderItem(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("delete order item: %w", err)
	}
	if deleted == 0 {
		return nil, ErrItemNotFound
	}

	order, err := recomputeTotals(ctx, store, orderID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return &ItemResult{Item: current, Order: order}, nil
}

// SendToKitchen stamps the next batch number onto the not-yet-sent subset
// of the given items. The order row lock serializes batch numbering, so
// numbers are strictly increasing from 1 per order. When every given item
// was already sent, no batch is created.
func (s *ItemService) SendToKitchen(ctx context.Context, orderID uuid.UUID, itemIDs []uuid.UUID) (*SendResult, error) {
	if len(itemIDs) == 0 {
		return nil, ErrEmptyItems
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	order, err := s.lockOpenOrder(ctx, store, orderID)
	if err != nil {
		return nil, err
	}

	maxBatch, err := store.MaxBatchNumber(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("max batch number: %w", err)
	}

	sent, err := store.MarkItemsSent(ctx, database.MarkItemsSentParams{
		OrderID:     orderID,
		ItemIDs:     itemIDs,
		BatchNumber: maxBatch + 1,
	})
	if err != nil {
		return nil, fmt.Errorf("mark items sent: %w", err)
	}
	if len(sent) == 0 {
		// Nothing captured: every id was already sent (or stale). No batch.
		return &SendResult{Order: *order}, nil
	}

	bumped, err := store.BumpOrderVersion(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("bump order version: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return &SendResult{Batch: maxBatch + 1, Items: sent, Order: bumped}, nil
}

// stationMoves is the forward-only station state machine. Backward or
// skipping writes are rejected until a staff-override flow exists.
var stationMoves = map[string]string{
	enum.StationStatusPending:    enum.StationStatusInProgress,
	enum.StationStatusInProgress: enum.StationStatusReady,
	enum.StationStatusReady:      enum.StationStatusArchived,
}

// UpdateStationStatus advances one item's station status. The write is a
// compare-and-set on the current status, so a concurrent display racing on
// the same item loses cleanly.
func (s *ItemService) UpdateStationStatus(ctx context.Context, itemID uuid.UUID, station, status string) (*ItemResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	current, err := store.GetOrderItem(ctx, itemID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("get order item: %w", err)
	}
	if current.Station != station {
		return nil, ErrStationMismatch
	}
	if !current.SentToKitchen {
		return nil, ErrItemNotSent
	}

	from := StationStatus(current.Station, current.KitchenStatus, current.BarStatus)
	if stationMoves[from] != status {
		return nil, ErrInvalidStatusMove
	}

	item, err := store.UpdateItemStationStatus(ctx, database.UpdateItemStationStatusParams{
		ID:         itemID,
		FromStatus: from,
		ToStatus:   status,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Status moved under us between read and write.
			return nil, ErrInvalidStatusMove
		}
		return nil, fmt.Errorf("update station status: %w", err)
	}

	order, err := store.BumpOrderVersion(ctx, current.OrderID)
	if err != nil {
		return nil, fmt.Errorf("bump order version: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return &ItemResult{Item: item, Order: order}, nil
}

// MarkBatchReady transitions every IN_PROGRESS item of the batch to READY
// on its resolved station, keeping the course together.
func (s *ItemService) MarkBatchReady(ctx context.Context, orderID uuid.UUID, batch int32) (*BatchResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	order, err := store.GetOrderForUpdate(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	items, err := store.ReadyBatchItems(ctx, database.ReadyBatchItemsParams{
		OrderID:     orderID,
		BatchNumber: batch,
	})
	if err != nil {
		return nil, fmt.Errorf("ready batch items: %w", err)
	}

	result := &BatchResult{Items: items, Order: order}
	if len(items) > 0 {
		bumped, err := store.BumpOrderVersion(ctx, orderID)
		if err != nil {
			return nil, fmt.Errorf("bump order version: %w", err)
		}
		result.Order = bumped
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return result, nil
}

// lockOpenOrder locks the order row for the duration of the transaction
// and rejects mutations on orders that are no longer open.
func (s *ItemService) lockOpenOrder(ctx context.Context, store ItemStore, orderID uuid.UUID) (*database.Order, error) {
	order, err := store.GetOrderForUpdate(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order.Status != enum.OrderStatusOpen {
		return nil, ErrOrderNotOpen
	}
	return &order, nil
}

// recomputeTotals rereads the full live item set and rewrites the derived
// totals. Runs inside the caller's transaction so the sum cannot observe a
// stale item list relative to the triggering write.
func recomputeTotals(ctx context.Context, store ItemStore, orderID uuid.UUID) (database.Order, error) {
	sum, err := store.SumOrderItems(ctx, orderID)
	if err != nil {
		return database.Order{}, fmt.Errorf("sum order items: %w", err)
	}
	totals := TotalsFromSubtotal(NumericToDecimal(sum))
	order, err := store.UpdateOrderTotals(ctx, database.UpdateOrderTotalsParams{
		ID:            orderID,
		Subtotal:      decimalToNumeric(totals.Subtotal),
		ServiceCharge: decimalToNumeric(totals.ServiceCharge),
		TotalAmount:   decimalToNumeric(totals.Total),
	})
	if err != nil {
		return database.Order{}, fmt.Errorf("update order totals: %w", err)
	}
	return order, nil
}
