package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/tavolo-pos/api/internal/database"
	"github.com/tavolo-pos/api/internal/enum"
	"github.com/tavolo-pos/api/internal/service"
	"github.com/tavolo-pos/api/internal/ws"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func numericToString(n pgtype.Numeric) string {
	return service.NumericToDecimal(n).StringFixed(2)
}

// --- Shared response types ---

type tableResponse struct {
	ID             uuid.UUID  `json:"id"`
	TableNumber    int32      `json:"table_number"`
	Status         string     `json:"status"`
	CurrentOrderID *uuid.UUID `json:"current_order_id"`
}

type orderResponse struct {
	ID            uuid.UUID      `json:"id"`
	TableID       uuid.UUID      `json:"table_id"`
	WaiterID      uuid.UUID      `json:"waiter_id"`
	Status        string         `json:"status"`
	Subtotal      string         `json:"subtotal"`
	ServiceCharge string         `json:"service_charge"`
	TotalAmount   string         `json:"total_amount"`
	Paid          bool           `json:"paid"`
	PaymentMethod *string        `json:"payment_method"`
	Version       int64          `json:"version"`
	CreatedAt     time.Time      `json:"created_at"`
	ClosedAt      *time.Time     `json:"closed_at"`
	Items         []itemResponse `json:"items,omitempty"`
}

type itemResponse struct {
	ID            uuid.UUID       `json:"id"`
	OrderID       uuid.UUID       `json:"order_id"`
	MenuItemID    uuid.UUID       `json:"menu_item_id"`
	Name          string          `json:"name"`
	Quantity      int32           `json:"quantity"`
	UnitPrice     string          `json:"unit_price"`
	TotalPrice    string          `json:"total_price"`
	Notes         *string         `json:"notes"`
	Station       string          `json:"station"`
	SentToKitchen bool            `json:"sent_to_kitchen"`
	SentAt        *time.Time      `json:"sent_at"`
	BatchNumber   *int32          `json:"batch_number"`
	StationStatus string          `json:"station_status"`
	StartedAt     *time.Time      `json:"started_at"`
	ReadyAt       *time.Time      `json:"ready_at"`
	CreatedAt     time.Time       `json:"created_at"`
	AddOns        []addOnResponse `json:"add_ons,omitempty"`
}

type addOnResponse struct {
	ID      uuid.UUID `json:"id"`
	AddOnID uuid.UUID `json:"add_on_id"`
	Name    string    `json:"name"`
	Price   string    `json:"price"`
}

func toTableResponse(t database.Table) tableResponse {
	resp := tableResponse{
		ID:          t.ID,
		TableNumber: t.TableNumber,
		Status:      t.Status,
	}
	if t.CurrentOrderID.Valid {
		id := uuid.UUID(t.CurrentOrderID.Bytes)
		resp.CurrentOrderID = &id
	}
	return resp
}

func toOrderResponse(o database.Order) orderResponse {
	resp := orderResponse{
		ID:            o.ID,
		TableID:       o.TableID,
		WaiterID:      o.WaiterID,
		Status:        o.Status,
		Subtotal:      numericToString(o.Subtotal),
		ServiceCharge: numericToString(o.ServiceCharge),
		TotalAmount:   numericToString(o.TotalAmount),
		Paid:          o.Paid,
		Version:       o.Version,
		CreatedAt:     o.CreatedAt,
	}
	if o.PaymentMethod.Valid {
		resp.PaymentMethod = &o.PaymentMethod.String
	}
	if o.ClosedAt.Valid {
		resp.ClosedAt = &o.ClosedAt.Time
	}
	return resp
}

func toItemResponse(item database.OrderItem, addOns []database.OrderItemAddOn) itemResponse {
	resp := itemResponse{
		ID:            item.ID,
		OrderID:       item.OrderID,
		MenuItemID:    item.MenuItemID,
		Name:          item.Name,
		Quantity:      item.Quantity,
		UnitPrice:     numericToString(item.UnitPrice),
		TotalPrice:    numericToString(item.TotalPrice),
		Station:       item.Station,
		SentToKitchen: item.SentToKitchen,
		CreatedAt:     item.CreatedAt,
	}
	if item.Station == enum.StationBar {
		resp.StationStatus = item.BarStatus
	} else {
		resp.StationStatus = item.KitchenStatus
	}
	if item.Notes.Valid {
		resp.Notes = &item.Notes.String
	}
	if item.SentAt.Valid {
		resp.SentAt = &item.SentAt.Time
	}
	if item.BatchNumber.Valid {
		resp.BatchNumber = &item.BatchNumber.Int32
	}
	if item.StartedAt.Valid {
		resp.StartedAt = &item.StartedAt.Time
	}
	if item.ReadyAt.Valid {
		resp.ReadyAt = &item.ReadyAt.Time
	}
	for _, ao := range addOns {
		resp.AddOns = append(resp.AddOns, addOnResponse{
			ID:      ao.ID,
			AddOnID: ao.AddOnID,
			Name:    ao.Name,
			Price:   numericToString(ao.Price),
		})
	}
	return resp
}

// --- Change notification helpers ---

// orderEvent is the payload every sync event carries: enough for a client
// to decide whether its local copy is stale and re-fetch.
type orderEvent struct {
	OrderID uuid.UUID  `json:"order_id"`
	TableID uuid.UUID  `json:"table_id"`
	Version int64      `json:"version"`
	Batch   *int32     `json:"batch,omitempty"`
	ItemID  *uuid.UUID `json:"item_id,omitempty"`
	Station string     `json:"station,omitempty"`
	Status  string     `json:"status,omitempty"`
}

func newEvent(eventType string, payload orderEvent) ws.Event {
	raw, _ := json.Marshal(payload)
	return ws.Event{Type: eventType, Payload: raw}
}

func stationChannel(station string) string {
	if station == enum.StationBar {
		return ws.ChannelBar
	}
	return ws.ChannelKitchen
}
