package handler_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/tavolo-pos/api/internal/database"
	"github.com/tavolo-pos/api/internal/handler"
	"golang.org/x/crypto/bcrypt"
)

// --- Mock AuthStore ---

type mockAuthStore struct {
	getByEmailFn func(ctx context.Context, email string) (database.WaiterUser, error)
	getByIDFn    func(ctx context.Context, id uuid.UUID) (database.WaiterUser, error)
	touchFn      func(ctx context.Context, id uuid.UUID) error
}

func (m *mockAuthStore) GetWaiterByEmail(ctx context.Context, email string) (database.WaiterUser, error) {
	if m.getByEmailFn != nil {
		return m.getByEmailFn(ctx, email)
	}
	return database.WaiterUser{}, pgx.ErrNoRows
}

func (m *mockAuthStore) GetWaiterByID(ctx context.Context, id uuid.UUID) (database.WaiterUser, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return database.WaiterUser{}, pgx.ErrNoRows
}

func (m *mockAuthStore) TouchWaiterLastLogin(ctx context.Context, id uuid.UUID) error {
	if m.touchFn != nil {
		return m.touchFn(ctx, id)
	}
	return nil
}

func setupAuthRouter(store *mockAuthStore) *chi.Mux {
	h := handler.NewAuthHandler(store, testJWTSecret)
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

func testWaiter(t *testing.T, password string) database.WaiterUser {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return database.WaiterUser{
		ID:           uuid.New(),
		Name:         "Sam",
		Email:        "sam@tavolo.local",
		PasswordHash: string(hash),
		Role:         "WAITER",
		Active:       true,
	}
}

func TestLogin_HappyPath(t *testing.T) {
	waiter := testWaiter(t, "correct-horse")
	touched := false
	store := &mockAuthStore{
		getByEmailFn: func(ctx context.Context, email string) (database.WaiterUser, error) {
			if email != waiter.Email {
				return database.WaiterUser{}, pgx.ErrNoRows
			}
			return waiter, nil
		},
		touchFn: func(ctx context.Context, id uuid.UUID) error {
			touched = true
			return nil
		},
	}

	router := setupAuthRouter(store)
	rr := doAuthRequest(t, router, "POST", "/auth/login", map[string]string{
		"email":    waiter.Email,
		"password": "correct-horse",
	}, testClaims())

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	resp := decodeResponse(t, rr)
	if resp["token"] == "" || resp["token"] == nil {
		t.Error("expected a token in the response")
	}
	w, ok := resp["waiter"].(map[string]interface{})
	if !ok {
		t.Fatalf("waiter missing from response: %v", resp)
	}
	if w["email"] != waiter.Email {
		t.Errorf("email: got %v, want %s", w["email"], waiter.Email)
	}
	if !touched {
		t.Error("last login was not recorded")
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	waiter := testWaiter(t, "correct-horse")
	store := &mockAuthStore{
		getByEmailFn: func(ctx context.Context, email string) (database.WaiterUser, error) {
			return waiter, nil
		},
	}

	router := setupAuthRouter(store)
	rr := doAuthRequest(t, router, "POST", "/auth/login", map[string]string{
		"email":    waiter.Email,
		"password": "battery-staple",
	}, testClaims())

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestLogin_UnknownEmail(t *testing.T) {
	router := setupAuthRouter(&mockAuthStore{})
	rr := doAuthRequest(t, router, "POST", "/auth/login", map[string]string{
		"email":    "nobody@tavolo.local",
		"password": "whatever",
	}, testClaims())

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestLogin_MissingFields(t *testing.T) {
	router := setupAuthRouter(&mockAuthStore{})
	rr := doAuthRequest(t, router, "POST", "/auth/login", map[string]string{
		"email": "sam@tavolo.local",
	}, testClaims())

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}
