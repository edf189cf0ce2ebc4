package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/tavolo-pos/api/internal/database"
	"github.com/tavolo-pos/api/internal/enum"
	"github.com/tavolo-pos/api/internal/service"
	"github.com/tavolo-pos/api/internal/ws"
)

// Default lookback for the archived-batches review screen.
const defaultArchiveLookback = 24 * time.Hour

// StationStore defines the database methods needed by station displays.
// Satisfied by *database.Queries; narrow interface for testability.
type StationStore interface {
	ListStationFeed(ctx context.Context, station string) ([]database.StationFeedRow, error)
	ListArchivedItems(ctx context.Context, arg database.ListArchivedItemsParams) ([]database.StationFeedRow, error)
}

// StationServicer defines the service methods station displays mutate with.
// Satisfied by *service.ItemService.
type StationServicer interface {
	UpdateStationStatus(ctx context.Context, itemID uuid.UUID, station, status string) (*service.ItemResult, error)
	MarkBatchReady(ctx context.Context, orderID uuid.UUID, batch int32) (*service.BatchResult, error)
}

// StationHandler handles the kitchen and bar display endpoints.
type StationHandler struct {
	store    StationStore
	svc      StationServicer
	notifier ws.Notifier
}

// NewStationHandler creates a new StationHandler.
func NewStationHandler(store StationStore, svc StationServicer, notifier ws.Notifier) *StationHandler {
	return &StationHandler{store: store, svc: svc, notifier: notifier}
}

// RegisterRoutes registers station endpoints on the given Chi router.
func (h *StationHandler) RegisterRoutes(r chi.Router) {
	r.Get("/{station}", h.Feed)
	r.Get("/{station}/archive", h.Archive)
	r.Patch("/{station}/items/{itemID}/status", h.UpdateStatus)
}

// ticketResponse is one batch of one order as the station screens render
// it: the unit staff acknowledge together.
type ticketResponse struct {
	OrderID     uuid.UUID      `json:"order_id"`
	TableID     uuid.UUID      `json:"table_id"`
	TableNumber int32          `json:"table_number"`
	Batch       int32          `json:"batch"`
	SentAt      *time.Time     `json:"sent_at"`
	Items       []itemResponse `json:"items"`
}

type updateStationStatusRequest struct {
	Status string `json:"status"`
}

// Feed handles GET /stations/{station} — the live ticket feed.
func (h *StationHandler) Feed(w http.ResponseWriter, r *http.Request) {
	station, ok := parseStation(w, r)
	if !ok {
		return
	}

	rows, err := h.store.ListStationFeed(r.Context(), station)
	if err != nil {
		log.Printf("ERROR: list station feed: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"station": station,
		"tickets": groupTickets(rows),
	})
}

// Archive handles GET /stations/{station}/archive?hours=24.
func (h *StationHandler) Archive(w http.ResponseWriter, r *http.Request) {
	station, ok := parseStation(w, r)
	if !ok {
		return
	}

	lookback := defaultArchiveLookback
	if s := r.URL.Query().Get("hours"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid hours"})
			return
		}
		lookback = time.Duration(v) * time.Hour
	}

	rows, err := h.store.ListArchivedItems(r.Context(), database.ListArchivedItemsParams{
		Station: station,
		Since:   time.Now().Add(-lookback),
	})
	if err != nil {
		log.Printf("ERROR: list archived items: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"station": station,
		"tickets": groupTickets(rows),
	})
}

// UpdateStatus handles PATCH /stations/{station}/items/{itemID}/status.
func (h *StationHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	station, ok := parseStation(w, r)
	if !ok {
		return
	}

	itemID, err := uuid.Parse(chi.URLParam(r, "itemID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid item ID"})
		return
	}

	var req updateStationStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	switch req.Status {
	case enum.StationStatusInProgress, enum.StationStatusReady, enum.StationStatusArchived:
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid status"})
		return
	}

	result, err := h.svc.UpdateStationStatus(r.Context(), itemID, station, req.Status)
	if err != nil {
		h.writeStationError(w, err, "update station status")
		return
	}

	itemID = result.Item.ID
	event := orderEvent{
		OrderID: result.Order.ID,
		TableID: result.Order.TableID,
		Version: result.Order.Version,
		ItemID:  &itemID,
		Station: station,
		Status:  req.Status,
	}
	h.notifier.Broadcast(ws.ChannelWaiter, newEvent("item.status_changed", event))
	h.notifier.Broadcast(stationChannel(station), newEvent("item.status_changed", event))

	writeJSON(w, http.StatusOK, map[string]any{
		"item":  toItemResponse(result.Item, nil),
		"order": toOrderResponse(result.Order),
	})
}

// BatchReady handles POST /orders/{id}/batches/{batch}/ready — the whole-
// course acknowledgement. Registered by the router next to order routes.
func (h *StationHandler) BatchReady(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}
	batch, err := strconv.Atoi(chi.URLParam(r, "batch"))
	if err != nil || batch <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid batch number"})
		return
	}

	result, err := h.svc.MarkBatchReady(r.Context(), orderID, int32(batch))
	if err != nil {
		h.writeStationError(w, err, "mark batch ready")
		return
	}

	items := make([]itemResponse, len(result.Items))
	stations := make(map[string]bool)
	for i, item := range result.Items {
		items[i] = toItemResponse(item, nil)
		stations[item.Station] = true
	}

	if len(result.Items) > 0 {
		b := int32(batch)
		event := orderEvent{
			OrderID: result.Order.ID,
			TableID: result.Order.TableID,
			Version: result.Order.Version,
			Batch:   &b,
			Status:  enum.StationStatusReady,
		}
		h.notifier.Broadcast(ws.ChannelWaiter, newEvent("batch.ready", event))
		for station := range stations {
			h.notifier.Broadcast(stationChannel(station), newEvent("batch.ready", event))
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"items": items,
		"order": toOrderResponse(result.Order),
	})
}

// --- Helpers ---

func parseStation(w http.ResponseWriter, r *http.Request) (string, bool) {
	switch chi.URLParam(r, "station") {
	case "kitchen":
		return enum.StationKitchen, true
	case "bar":
		return enum.StationBar, true
	}
	writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid station"})
	return "", false
}

// groupTickets groups feed rows into per-(order, batch) tickets, keeping
// the row order the query established.
func groupTickets(rows []database.StationFeedRow) []ticketResponse {
	type key struct {
		orderID uuid.UUID
		batch   int32
	}
	index := make(map[key]int)
	tickets := make([]ticketResponse, 0, len(rows))

	for _, row := range rows {
		k := key{orderID: row.Item.OrderID, batch: row.Item.BatchNumber.Int32}
		i, seen := index[k]
		if !seen {
			ticket := ticketResponse{
				OrderID:     row.Item.OrderID,
				TableID:     row.TableID,
				TableNumber: row.TableNumber,
				Batch:       row.Item.BatchNumber.Int32,
			}
			if row.Item.SentAt.Valid {
				ticket.SentAt = &row.Item.SentAt.Time
			}
			tickets = append(tickets, ticket)
			i = len(tickets) - 1
			index[k] = i
		}
		tickets[i].Items = append(tickets[i].Items, toItemResponse(row.Item, nil))
	}
	return tickets
}

func (h *StationHandler) writeStationError(w http.ResponseWriter, err error, op string) {
	switch {
	case errors.Is(err, service.ErrOrderNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
	case errors.Is(err, service.ErrItemNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "item not found"})
	case errors.Is(err, service.ErrStationMismatch):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "item belongs to a different station"})
	case errors.Is(err, service.ErrItemNotSent):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "item has not been sent yet"})
	case errors.Is(err, service.ErrInvalidStatusMove):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "invalid status transition"})
	default:
		log.Printf("ERROR: %s: %v", op, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}
