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
	"github.com/tavolo-pos/api/internal/enum"
	"github.com/tavolo-pos/api/internal/middleware"
	"github.com/tavolo-pos/api/internal/service"
	"github.com/tavolo-pos/api/internal/ws"
)

// TableStore defines the database methods needed by table handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type TableStore interface {
	ListTables(ctx context.Context) ([]database.Table, error)
	GetTable(ctx context.Context, id uuid.UUID) (database.Table, error)
	GetOpenOrderByTable(ctx context.Context, tableID uuid.UUID) (database.Order, error)
	ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error)
	ListOrderItemAddOns(ctx context.Context, orderItemID uuid.UUID) ([]database.OrderItemAddOn, error)
	SetTableStatus(ctx context.Context, arg database.SetTableStatusParams) (database.Table, error)
}

// OrderCreator defines the service method needed to open orders.
// Satisfied by *service.OrderService.
type OrderCreator interface {
	CreateOrder(ctx context.Context, tableID, waiterID uuid.UUID) (*service.OrderResult, error)
}

// TableHandler handles floor-plan endpoints.
type TableHandler struct {
	store    TableStore
	svc      OrderCreator
	notifier ws.Notifier
}

// NewTableHandler creates a new TableHandler.
func NewTableHandler(store TableStore, svc OrderCreator, notifier ws.Notifier) *TableHandler {
	return &TableHandler{store: store, svc: svc, notifier: notifier}
}

// RegisterRoutes registers table endpoints on the given Chi router.
func (h *TableHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Patch("/{id}/status", h.SetStatus)
	r.Post("/{id}/order", h.OpenOrder)
}

// tableDetailResponse is the select-table view: the table plus its open
// order with items, if one exists.
type tableDetailResponse struct {
	Table tableResponse  `json:"table"`
	Order *orderResponse `json:"order"`
}

type setTableStatusRequest struct {
	Status string `json:"status"`
}

// List handles GET /tables.
func (h *TableHandler) List(w http.ResponseWriter, r *http.Request) {
	tables, err := h.store.ListTables(r.Context())
	if err != nil {
		log.Printf("ERROR: list tables: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	resp := make([]tableResponse, len(tables))
	for i, t := range tables {
		resp[i] = toTableResponse(t)
	}
	writeJSON(w, http.StatusOK, map[string]any{"tables": resp})
}

// Get handles GET /tables/{id} — the waiter's select-table action. Loads
// the open order and its items when present; read-only otherwise.
func (h *TableHandler) Get(w http.ResponseWriter, r *http.Request) {
	tableID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid table ID"})
		return
	}

	table, err := h.store.GetTable(r.Context(), tableID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "table not found"})
			return
		}
		log.Printf("ERROR: get table: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := tableDetailResponse{Table: toTableResponse(table)}

	order, err := h.store.GetOpenOrderByTable(r.Context(), tableID)
	switch {
	case err == nil:
		orderResp := toOrderResponse(order)
		items, err := h.store.ListOrderItemsByOrder(r.Context(), order.ID)
		if err != nil {
			log.Printf("ERROR: list order items: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
			return
		}
		for _, item := range items {
			addOns, err := h.store.ListOrderItemAddOns(r.Context(), item.ID)
			if err != nil {
				log.Printf("ERROR: list item add-ons: %v", err)
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
				return
			}
			orderResp.Items = append(orderResp.Items, toItemResponse(item, addOns))
		}
		resp.Order = &orderResp
	case errors.Is(err, pgx.ErrNoRows):
		// No open order; table view only.
	default:
		log.Printf("ERROR: get open order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// SetStatus handles PATCH /tables/{id}/status for the floor-plan states.
// Occupancy is never set this way; it belongs to the order lifecycle.
func (h *TableHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	tableID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid table ID"})
		return
	}

	var req setTableStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	switch req.Status {
	case enum.TableStatusAvailable, enum.TableStatusReserved, enum.TableStatusCleaning:
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid status"})
		return
	}

	table, err := h.store.SetTableStatus(r.Context(), database.SetTableStatusParams{
		ID:     tableID,
		Status: req.Status,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Either the table doesn't exist or it holds an open order.
			writeJSON(w, http.StatusConflict, map[string]string{"error": "table has an open order or does not exist"})
			return
		}
		log.Printf("ERROR: set table status: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toTableResponse(table))
}

// OpenOrder handles POST /tables/{id}/order.
func (h *TableHandler) OpenOrder(w http.ResponseWriter, r *http.Request) {
	tableID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid table ID"})
		return
	}

	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	result, err := h.svc.CreateOrder(r.Context(), tableID, claims.WaiterID)
	if err != nil {
		if errors.Is(err, service.ErrTableUnavailable) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "table is not available"})
			return
		}
		log.Printf("ERROR: create order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	h.notifier.Broadcast(ws.ChannelWaiter, newEvent("order.opened", orderEvent{
		OrderID: result.Order.ID,
		TableID: result.Order.TableID,
		Version: result.Order.Version,
	}))

	writeJSON(w, http.StatusCreated, map[string]any{
		"order": toOrderResponse(result.Order),
		"table": toTableResponse(result.Table),
	})
}
