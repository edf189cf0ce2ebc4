package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/tavolo-pos/api/internal/database"
	"github.com/tavolo-pos/api/internal/enum"
)

// Errors returned by the order lifecycle.
var (
	ErrTableNotFound      = errors.New("table not found")
	ErrTableUnavailable   = errors.New("table is not available")
	ErrOrderNotFound      = errors.New("order not found")
	ErrOrderAlreadyClosed = errors.New("order is already closed")
	ErrInvalidPayMethod   = errors.New("invalid payment method")
)

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// OrderStore defines the DB methods needed by the order lifecycle.
// Satisfied by *database.Queries (and its WithTx variant).
type OrderStore interface {
	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	OccupyTable(ctx context.Context, arg database.OccupyTableParams) (database.Table, error)
	FinishOrder(ctx context.Context, arg database.FinishOrderParams) (database.Order, error)
	ReleaseTable(ctx context.Context, id uuid.UUID) (database.Table, error)
	GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
}

// NewOrderStore creates an OrderStore from a DBTX (pool or tx).
type NewOrderStore func(db database.DBTX) OrderStore

// OrderService owns the table/order state machine.
type OrderService struct {
	pool     TxBeginner
	newStore NewOrderStore
}

// NewOrderService creates a new OrderService.
func NewOrderService(pool TxBeginner, newStore NewOrderStore) *OrderService {
	return &OrderService{pool: pool, newStore: newStore}
}

// OrderResult carries the order together with the table it moved.
type OrderResult struct {
	Order database.Order
	Table database.Table
}

// CreateOrder opens an order atomically with the table occupancy flip.
// The table update only matches status AVAILABLE, so of two racing calls
// exactly one wins; the loser's insert rolls back with the transaction.
func (s *OrderService) CreateOrder(ctx context.Context, tableID, waiterID uuid.UUID) (*OrderResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	order, err := store.CreateOrder(ctx, database.CreateOrderParams{
		TableID:  tableID,
		WaiterID: waiterID,
	})
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	table, err := store.OccupyTable(ctx, database.OccupyTableParams{
		ID:      tableID,
		OrderID: order.ID,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTableUnavailable
		}
		return nil, fmt.Errorf("occupy table: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return &OrderResult{Order: order, Table: table}, nil
}

// CloseOrder transitions an open order to CLOSED and releases its table.
func (s *OrderService) CloseOrder(ctx context.Context, orderID uuid.UUID) (*OrderResult, error) {
	return s.finish(ctx, orderID, enum.OrderStatusClosed, false, pgtype.Text{})
}

// CancelOrder transitions an open order to CANCELLED and releases its table.
func (s *OrderService) CancelOrder(ctx context.Context, orderID uuid.UUID) (*OrderResult, error) {
	return s.finish(ctx, orderID, enum.OrderStatusCancelled, false, pgtype.Text{})
}

// MarkPaid closes an open order as paid with the given method.
func (s *OrderService) MarkPaid(ctx context.Context, orderID uuid.UUID, method string) (*OrderResult, error) {
	switch method {
	case enum.PaymentMethodCash, enum.PaymentMethodCard, enum.PaymentMethodTransfer:
	default:
		return nil, ErrInvalidPayMethod
	}
	return s.finish(ctx, orderID, enum.OrderStatusClosed, true, pgtype.Text{String: method, Valid: true})
}

// finish performs the one-way terminal transition. The status guard in the
// update means a second call on the same order matches no rows; the fetch
// afterwards distinguishes a stale id from a double transition.
func (s *OrderService) finish(ctx context.Context, orderID uuid.UUID, status string, paid bool, method pgtype.Text) (*OrderResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	order, err := store.FinishOrder(ctx, database.FinishOrderParams{
		ID:            orderID,
		Status:        status,
		Paid:          paid,
		PaymentMethod: method,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			if _, getErr := store.GetOrder(ctx, orderID); getErr != nil {
				if errors.Is(getErr, pgx.ErrNoRows) {
					return nil, ErrOrderNotFound
				}
				return nil, fmt.Errorf("get order: %w", getErr)
			}
			return nil, ErrOrderAlreadyClosed
		}
		return nil, fmt.Errorf("finish order: %w", err)
	}

	table, err := store.ReleaseTable(ctx, order.TableID)
	if err != nil {
		return nil, fmt.Errorf("release table: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return &OrderResult{Order: order, Table: table}, nil
}
