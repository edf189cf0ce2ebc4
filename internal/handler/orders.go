package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/tavolo-pos/api/internal/database"
	"github.com/tavolo-pos/api/internal/service"
	"github.com/tavolo-pos/api/internal/ws"
)

// OrderStore defines the database methods needed by order read handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type OrderStore interface {
	GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
	ListOpenOrders(ctx context.Context) ([]database.Order, error)
	ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error)
	ListOrderItemAddOns(ctx context.Context, orderItemID uuid.UUID) ([]database.OrderItemAddOn, error)
}

// OrderLifecycle defines the service methods for terminal transitions.
// Satisfied by *service.OrderService.
type OrderLifecycle interface {
	CloseOrder(ctx context.Context, orderID uuid.UUID) (*service.OrderResult, error)
	CancelOrder(ctx context.Context, orderID uuid.UUID) (*service.OrderResult, error)
	MarkPaid(ctx context.Context, orderID uuid.UUID, method string) (*service.OrderResult, error)
}

// OrderHandler handles order endpoints.
type OrderHandler struct {
	store    OrderStore
	svc      OrderLifecycle
	notifier ws.Notifier
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(store OrderStore, svc OrderLifecycle, notifier ws.Notifier) *OrderHandler {
	return &OrderHandler{store: store, svc: svc, notifier: notifier}
}

// RegisterRoutes registers order endpoints on the given Chi router.
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Get("/{id}/bill", h.Bill)
	r.Post("/{id}/close", h.Close)
	r.Post("/{id}/cancel", h.Cancel)
	r.Post("/{id}/pay", h.Pay)
}

type payRequest struct {
	PaymentMethod string `json:"payment_method"`
}

// billResponse carries both the stored totals and the display-rounded
// total; the two are different numbers and clients must not conflate them.
type billResponse struct {
	OrderID       uuid.UUID      `json:"order_id"`
	Items         []itemResponse `json:"items"`
	Subtotal      string         `json:"subtotal"`
	ServiceCharge string         `json:"service_charge"`
	TotalAmount   string         `json:"total_amount"`
	DisplayTotal  string         `json:"display_total"`
	Paid          bool           `json:"paid"`
	Version       int64          `json:"version"`
}

// List handles GET /orders — the waiter's live order overview.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	orders, err := h.store.ListOpenOrders(r.Context())
	if err != nil {
		log.Printf("ERROR: list open orders: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	resp := make([]orderResponse, len(orders))
	for i, o := range orders {
		resp[i] = toOrderResponse(o)
	}
	writeJSON(w, http.StatusOK, map[string]any{"orders": resp})
}

// Get handles GET /orders/{id}.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	order, items, ok := h.fetchOrder(w, r)
	if !ok {
		return
	}
	resp := toOrderResponse(order)
	resp.Items = items
	writeJSON(w, http.StatusOK, resp)
}

// Bill handles GET /orders/{id}/bill.
func (h *OrderHandler) Bill(w http.ResponseWriter, r *http.Request) {
	order, items, ok := h.fetchOrder(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, billResponse{
		OrderID:       order.ID,
		Items:         items,
		Subtotal:      numericToString(order.Subtotal),
		ServiceCharge: numericToString(order.ServiceCharge),
		TotalAmount:   numericToString(order.TotalAmount),
		DisplayTotal:  service.DisplayTotal(service.NumericToDecimal(order.TotalAmount)).StringFixed(0),
		Paid:          order.Paid,
		Version:       order.Version,
	})
}

// Close handles POST /orders/{id}/close.
func (h *OrderHandler) Close(w http.ResponseWriter, r *http.Request) {
	h.finish(w, r, "order.closed", func(ctx context.Context, id uuid.UUID) (*service.OrderResult, error) {
		return h.svc.CloseOrder(ctx, id)
	})
}

// Cancel handles POST /orders/{id}/cancel.
func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.finish(w, r, "order.cancelled", func(ctx context.Context, id uuid.UUID) (*service.OrderResult, error) {
		return h.svc.CancelOrder(ctx, id)
	})
}

// Pay handles POST /orders/{id}/pay.
func (h *OrderHandler) Pay(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	var req payRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	result, err := h.svc.MarkPaid(r.Context(), orderID, req.PaymentMethod)
	if err != nil {
		h.writeLifecycleError(w, err, "mark paid")
		return
	}

	h.broadcastTerminal("order.paid", result)
	writeJSON(w, http.StatusOK, map[string]any{
		"order": toOrderResponse(result.Order),
		"table": toTableResponse(result.Table),
	})
}

// --- Helpers ---

func (h *OrderHandler) finish(w http.ResponseWriter, r *http.Request, eventType string,
	fn func(ctx context.Context, id uuid.UUID) (*service.OrderResult, error)) {

	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	result, err := fn(r.Context(), orderID)
	if err != nil {
		h.writeLifecycleError(w, err, eventType)
		return
	}

	h.broadcastTerminal(eventType, result)
	writeJSON(w, http.StatusOK, map[string]any{
		"order": toOrderResponse(result.Order),
		"table": toTableResponse(result.Table),
	})
}

func (h *OrderHandler) writeLifecycleError(w http.ResponseWriter, err error, op string) {
	switch {
	case errors.Is(err, service.ErrOrderNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
	case errors.Is(err, service.ErrOrderAlreadyClosed):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "order is already closed"})
	case errors.Is(err, service.ErrInvalidPayMethod):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payment_method"})
	default:
		log.Printf("ERROR: %s: %v", op, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}

// broadcastTerminal notifies waiters and both stations: station displays
// drop tickets belonging to orders that left the OPEN state.
func (h *OrderHandler) broadcastTerminal(eventType string, result *service.OrderResult) {
	event := newEvent(eventType, orderEvent{
		OrderID: result.Order.ID,
		TableID: result.Order.TableID,
		Version: result.Order.Version,
	})
	h.notifier.Broadcast(ws.ChannelWaiter, event)
	h.notifier.Broadcast(ws.ChannelKitchen, event)
	h.notifier.Broadcast(ws.ChannelBar, event)
}

func (h *OrderHandler) fetchOrder(w http.ResponseWriter, r *http.Request) (database.Order, []itemResponse, bool) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return database.Order{}, nil, false
	}

	order, err := h.store.GetOrder(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return database.Order{}, nil, false
		}
		log.Printf("ERROR: get order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return database.Order{}, nil, false
	}

	items, err := h.store.ListOrderItemsByOrder(r.Context(), orderID)
	if err != nil {
		log.Printf("ERROR: list order items: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return database.Order{}, nil, false
	}

	itemResponses := make([]itemResponse, len(items))
	for i, item := range items {
		addOns, err := h.store.ListOrderItemAddOns(r.Context(), item.ID)
		if err != nil {
			log.Printf("ERROR: list item add-ons: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
			return database.Order{}, nil, false
		}
		itemResponses[i] = toItemResponse(item, addOns)
	}

	return order, itemResponses, true
}
