package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/tavolo-pos/api/internal/service"
	"github.com/tavolo-pos/api/internal/ws"
)

// ItemServicer defines the service methods needed by the cart handlers.
// Satisfied by *service.ItemService.
type ItemServicer interface {
	AddItem(ctx context.Context, req service.AddItemRequest) (*service.ItemResult, error)
	UpdateQuantity(ctx context.Context, orderID, itemID uuid.UUID, quantity int32) (*service.ItemResult, error)
	RemoveItem(ctx context.Context, orderID, itemID uuid.UUID) (*service.ItemResult, error)
	SendToKitchen(ctx context.Context, orderID uuid.UUID, itemIDs []uuid.UUID) (*service.SendResult, error)
}

// ItemHandler handles the waiter's cart operations on an open order.
type ItemHandler struct {
	svc      ItemServicer
	notifier ws.Notifier
}

// NewItemHandler creates a new ItemHandler.
func NewItemHandler(svc ItemServicer, notifier ws.Notifier) *ItemHandler {
	return &ItemHandler{svc: svc, notifier: notifier}
}

// RegisterRoutes registers cart endpoints on the /orders router.
func (h *ItemHandler) RegisterRoutes(r chi.Router) {
	r.Post("/{id}/items", h.Add)
	r.Patch("/{id}/items/{itemID}", h.UpdateQuantity)
	r.Delete("/{id}/items/{itemID}", h.Remove)
	r.Post("/{id}/send", h.Send)
}

type addItemRequest struct {
	MenuItemID string   `json:"menu_item_id"`
	Quantity   int32    `json:"quantity"`
	Notes      string   `json:"notes"`
	AddOnIDs   []string `json:"add_on_ids"`
}

type updateQuantityRequest struct {
	Quantity int32 `json:"quantity"`
}

type sendRequest struct {
	ItemIDs []string `json:"item_ids"`
}

// Add handles POST /orders/{id}/items.
func (h *ItemHandler) Add(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	var req addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	menuItemID, err := uuid.Parse(req.MenuItemID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid menu_item_id"})
		return
	}
	if req.Quantity <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "quantity must be > 0"})
		return
	}

	addOnIDs := make([]uuid.UUID, len(req.AddOnIDs))
	for i, s := range req.AddOnIDs {
		id, err := uuid.Parse(s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": fmt.Sprintf("add_on_ids[%d]: invalid id", i),
			})
			return
		}
		addOnIDs[i] = id
	}

	result, err := h.svc.AddItem(r.Context(), service.AddItemRequest{
		OrderID:    orderID,
		MenuItemID: menuItemID,
		Quantity:   req.Quantity,
		Notes:      req.Notes,
		AddOnIDs:   addOnIDs,
	})
	if err != nil {
		h.writeItemError(w, err, "add item")
		return
	}

	h.broadcastItemsChanged(result.Order.ID, result.Order.TableID, result.Order.Version)
	writeJSON(w, http.StatusCreated, map[string]any{
		"item":  toItemResponse(result.Item, result.AddOns),
		"order": toOrderResponse(result.Order),
	})
}

// UpdateQuantity handles PATCH /orders/{id}/items/{itemID}. Quantity zero
// removes the item.
func (h *ItemHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	orderID, itemID, ok := parseItemPath(w, r)
	if !ok {
		return
	}

	var req updateQuantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Quantity < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "quantity must be >= 0"})
		return
	}

	result, err := h.svc.UpdateQuantity(r.Context(), orderID, itemID, req.Quantity)
	if err != nil {
		h.writeItemError(w, err, "update quantity")
		return
	}

	h.broadcastItemsChanged(result.Order.ID, result.Order.TableID, result.Order.Version)
	writeJSON(w, http.StatusOK, map[string]any{
		"item":  toItemResponse(result.Item, nil),
		"order": toOrderResponse(result.Order),
	})
}

// Remove handles DELETE /orders/{id}/items/{itemID}.
func (h *ItemHandler) Remove(w http.ResponseWriter, r *http.Request) {
	orderID, itemID, ok := parseItemPath(w, r)
	if !ok {
		return
	}

	result, err := h.svc.RemoveItem(r.Context(), orderID, itemID)
	if err != nil {
		h.writeItemError(w, err, "remove item")
		return
	}

	h.broadcastItemsChanged(result.Order.ID, result.Order.TableID, result.Order.Version)
	writeJSON(w, http.StatusOK, map[string]any{
		"order": toOrderResponse(result.Order),
	})
}

// Send handles POST /orders/{id}/send — the send-to-kitchen action.
func (h *ItemHandler) Send(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	var req sendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if len(req.ItemIDs) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "item_ids are required"})
		return
	}

	itemIDs := make([]uuid.UUID, len(req.ItemIDs))
	for i, s := range req.ItemIDs {
		id, err := uuid.Parse(s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": fmt.Sprintf("item_ids[%d]: invalid id", i),
			})
			return
		}
		itemIDs[i] = id
	}

	result, err := h.svc.SendToKitchen(r.Context(), orderID, itemIDs)
	if err != nil {
		h.writeItemError(w, err, "send to kitchen")
		return
	}

	items := make([]itemResponse, len(result.Items))
	stations := make(map[string]bool)
	for i, item := range result.Items {
		items[i] = toItemResponse(item, nil)
		stations[item.Station] = true
	}

	if result.Batch > 0 {
		batch := result.Batch
		event := orderEvent{
			OrderID: result.Order.ID,
			TableID: result.Order.TableID,
			Version: result.Order.Version,
			Batch:   &batch,
		}
		h.notifier.Broadcast(ws.ChannelWaiter, newEvent("order.sent", event))
		for station := range stations {
			h.notifier.Broadcast(stationChannel(station), newEvent("order.sent", event))
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"batch": result.Batch,
		"items": items,
		"order": toOrderResponse(result.Order),
	})
}

// --- Helpers ---

func parseItemPath(w http.ResponseWriter, r *http.Request) (orderID, itemID uuid.UUID, ok bool) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return uuid.Nil, uuid.Nil, false
	}
	itemID, err = uuid.Parse(chi.URLParam(r, "itemID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid item ID"})
		return uuid.Nil, uuid.Nil, false
	}
	return orderID, itemID, true
}

func (h *ItemHandler) broadcastItemsChanged(orderID, tableID uuid.UUID, version int64) {
	h.notifier.Broadcast(ws.ChannelWaiter, newEvent("order.items_changed", orderEvent{
		OrderID: orderID,
		TableID: tableID,
		Version: version,
	}))
}

func (h *ItemHandler) writeItemError(w http.ResponseWriter, err error, op string) {
	switch {
	case errors.Is(err, service.ErrOrderNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
	case errors.Is(err, service.ErrItemNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "item not found"})
	case errors.Is(err, service.ErrMenuItemNotFound):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "menu item not found"})
	case errors.Is(err, service.ErrAddOnNotFound):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, service.ErrOrderNotOpen):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "order is not open"})
	case errors.Is(err, service.ErrInvalidQuantity):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "quantity must be > 0"})
	case errors.Is(err, service.ErrEmptyItems):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "item_ids are required"})
	default:
		log.Printf("ERROR: %s: %v", op, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}
