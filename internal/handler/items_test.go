package handler_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/tavolo-pos/api/internal/database"
	"github.com/tavolo-pos/api/internal/enum"
	"github.com/tavolo-pos/api/internal/handler"
	"github.com/tavolo-pos/api/internal/middleware"
	"github.com/tavolo-pos/api/internal/service"
	"github.com/tavolo-pos/api/internal/ws"
)

// --- Mock ItemServicer ---

type mockItemServicer struct {
	addFn    func(ctx context.Context, req service.AddItemRequest) (*service.ItemResult, error)
	updateFn func(ctx context.Context, orderID, itemID uuid.UUID, quantity int32) (*service.ItemResult, error)
	removeFn func(ctx context.Context, orderID, itemID uuid.UUID) (*service.ItemResult, error)
	sendFn   func(ctx context.Context, orderID uuid.UUID, itemIDs []uuid.UUID) (*service.SendResult, error)
}

func (m *mockItemServicer) AddItem(ctx context.Context, req service.AddItemRequest) (*service.ItemResult, error) {
	return m.addFn(ctx, req)
}

func (m *mockItemServicer) UpdateQuantity(ctx context.Context, orderID, itemID uuid.UUID, quantity int32) (*service.ItemResult, error) {
	return m.updateFn(ctx, orderID, itemID, quantity)
}

func (m *mockItemServicer) RemoveItem(ctx context.Context, orderID, itemID uuid.UUID) (*service.ItemResult, error) {
	return m.removeFn(ctx, orderID, itemID)
}

func (m *mockItemServicer) SendToKitchen(ctx context.Context, orderID uuid.UUID, itemIDs []uuid.UUID) (*service.SendResult, error) {
	return m.sendFn(ctx, orderID, itemIDs)
}

func setupItemRouter(svc *mockItemServicer, notifier *recordingNotifier) *chi.Mux {
	h := handler.NewItemHandler(svc, notifier)
	r := chi.NewRouter()
	r.Use(middleware.Authenticate(testJWTSecret))
	r.Route("/orders", h.RegisterRoutes)
	return r
}

func openOrder(orderID uuid.UUID, version int64) database.Order {
	return database.Order{
		ID:       orderID,
		TableID:  uuid.New(),
		Status:   enum.OrderStatusOpen,
		Subtotal: testNumeric("100.00"),
		Version:  version,
	}
}

// --- Tests ---

func TestAddItem_HappyPath(t *testing.T) {
	orderID := uuid.New()
	menuItemID := uuid.New()

	svc := &mockItemServicer{
		addFn: func(ctx context.Context, req service.AddItemRequest) (*service.ItemResult, error) {
			if req.OrderID != orderID {
				t.Errorf("order id: got %v, want %v", req.OrderID, orderID)
			}
			if req.MenuItemID != menuItemID {
				t.Errorf("menu item id: got %v, want %v", req.MenuItemID, menuItemID)
			}
			if req.Quantity != 2 {
				t.Errorf("quantity: got %d, want 2", req.Quantity)
			}
			return &service.ItemResult{
				Item: database.OrderItem{
					ID:        uuid.New(),
					OrderID:   orderID,
					Name:      "Classic Burger",
					Quantity:  2,
					UnitPrice: testNumeric("45.00"),
					Station:   enum.StationKitchen,
				},
				Order: openOrder(orderID, 2),
			}, nil
		},
	}

	notifier := &recordingNotifier{}
	router := setupItemRouter(svc, notifier)
	rr := doAuthRequest(t, router, "POST", "/orders/"+orderID.String()+"/items", map[string]any{
		"menu_item_id": menuItemID.String(),
		"quantity":     2,
	}, testClaims())

	if rr.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusCreated, rr.Body.String())
	}

	resp := decodeResponse(t, rr)
	item, ok := resp["item"].(map[string]interface{})
	if !ok {
		t.Fatalf("item missing from response: %v", resp)
	}
	if item["name"] != "Classic Burger" {
		t.Errorf("item name: got %v", item["name"])
	}

	if got := notifier.sent("order.items_changed"); got[ws.ChannelWaiter] != 1 {
		t.Errorf("order.items_changed broadcasts: got %v, want 1 on waiter", got)
	}
}

func TestAddItem_ZeroQuantityRejected(t *testing.T) {
	router := setupItemRouter(&mockItemServicer{}, &recordingNotifier{})
	rr := doAuthRequest(t, router, "POST", "/orders/"+uuid.NewString()+"/items", map[string]any{
		"menu_item_id": uuid.NewString(),
		"quantity":     0,
	}, testClaims())

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestAddItem_ClosedOrder(t *testing.T) {
	svc := &mockItemServicer{
		addFn: func(ctx context.Context, req service.AddItemRequest) (*service.ItemResult, error) {
			return nil, service.ErrOrderNotOpen
		},
	}

	router := setupItemRouter(svc, &recordingNotifier{})
	rr := doAuthRequest(t, router, "POST", "/orders/"+uuid.NewString()+"/items", map[string]any{
		"menu_item_id": uuid.NewString(),
		"quantity":     1,
	}, testClaims())

	if rr.Code != http.StatusConflict {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusConflict)
	}
}

func TestUpdateQuantity_NegativeRejected(t *testing.T) {
	router := setupItemRouter(&mockItemServicer{}, &recordingNotifier{})
	path := "/orders/" + uuid.NewString() + "/items/" + uuid.NewString()
	rr := doAuthRequest(t, router, "PATCH", path, map[string]any{"quantity": -1}, testClaims())

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestRemoveItem_NotFound(t *testing.T) {
	svc := &mockItemServicer{
		removeFn: func(ctx context.Context, orderID, itemID uuid.UUID) (*service.ItemResult, error) {
			return nil, service.ErrItemNotFound
		},
	}

	router := setupItemRouter(svc, &recordingNotifier{})
	path := "/orders/" + uuid.NewString() + "/items/" + uuid.NewString()
	rr := doAuthRequest(t, router, "DELETE", path, nil, testClaims())

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestSend_BroadcastsToInvolvedStations(t *testing.T) {
	orderID := uuid.New()
	itemID := uuid.New()

	svc := &mockItemServicer{
		sendFn: func(ctx context.Context, oid uuid.UUID, itemIDs []uuid.UUID) (*service.SendResult, error) {
			if len(itemIDs) != 1 || itemIDs[0] != itemID {
				t.Errorf("item ids: got %v, want [%v]", itemIDs, itemID)
			}
			return &service.SendResult{
				Batch: 3,
				Items: []database.OrderItem{
					{
						ID:            itemID,
						OrderID:       orderID,
						Name:          "Fresh Lemonade",
						Quantity:      1,
						Station:       enum.StationBar,
						SentToKitchen: true,
						BatchNumber:   pgtype.Int4{Int32: 3, Valid: true},
						BarStatus:     enum.StationStatusPending,
					},
				},
				Order: openOrder(orderID, 4),
			}, nil
		},
	}

	notifier := &recordingNotifier{}
	router := setupItemRouter(svc, notifier)
	rr := doAuthRequest(t, router, "POST", "/orders/"+orderID.String()+"/send", map[string]any{
		"item_ids": []string{itemID.String()},
	}, testClaims())

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	resp := decodeResponse(t, rr)
	if resp["batch"] != float64(3) {
		t.Errorf("batch: got %v, want 3", resp["batch"])
	}

	got := notifier.sent("order.sent")
	if got[ws.ChannelWaiter] != 1 {
		t.Errorf("order.sent on waiter: got %d, want 1", got[ws.ChannelWaiter])
	}
	if got[ws.ChannelBar] != 1 {
		t.Errorf("order.sent on bar: got %d, want 1", got[ws.ChannelBar])
	}
	if got[ws.ChannelKitchen] != 0 {
		t.Errorf("order.sent on kitchen: got %d, want 0", got[ws.ChannelKitchen])
	}
}

func TestSend_NothingCapturedSkipsBroadcast(t *testing.T) {
	orderID := uuid.New()
	svc := &mockItemServicer{
		sendFn: func(ctx context.Context, oid uuid.UUID, itemIDs []uuid.UUID) (*service.SendResult, error) {
			return &service.SendResult{Batch: 0, Items: nil, Order: openOrder(orderID, 1)}, nil
		},
	}

	notifier := &recordingNotifier{}
	router := setupItemRouter(svc, notifier)
	rr := doAuthRequest(t, router, "POST", "/orders/"+orderID.String()+"/send", map[string]any{
		"item_ids": []string{uuid.NewString()},
	}, testClaims())

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusOK)
	}
	if notifier.count() != 0 {
		t.Errorf("expected no broadcasts, got %d", notifier.count())
	}
}

func TestSend_EmptyItemIDs(t *testing.T) {
	router := setupItemRouter(&mockItemServicer{}, &recordingNotifier{})
	rr := doAuthRequest(t, router, "POST", "/orders/"+uuid.NewString()+"/send", map[string]any{
		"item_ids": []string{},
	}, testClaims())

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}
