package handler_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/tavolo-pos/api/internal/auth"
	"github.com/tavolo-pos/api/internal/ws"
)

const testJWTSecret = "test-secret-for-handlers"

// --- Mock Notifier ---

// recordingNotifier captures broadcasts for assertions.
type recordingNotifier struct {
	mu     sync.Mutex
	events []recordedEvent
}

type recordedEvent struct {
	Channel string
	Event   ws.Event
}

func (n *recordingNotifier) Broadcast(channel string, event ws.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, recordedEvent{Channel: channel, Event: event})
}

// sent returns the recorded events of the given type, keyed by channel.
func (n *recordingNotifier) sent(eventType string) map[string]int {
	n.mu.Lock()
	defer n.mu.Unlock()
	channels := make(map[string]int)
	for _, e := range n.events {
		if e.Event.Type == eventType {
			channels[e.Channel]++
		}
	}
	return channels
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.events)
}

// --- Request helpers ---

func testClaims() *auth.Claims {
	return &auth.Claims{
		WaiterID: uuid.New(),
		Name:     "Sam",
		Role:     "WAITER",
	}
}

// doAuthRequest performs a request with a real JWT minted from claims.
func doAuthRequest(t *testing.T, router http.Handler, method, path string, body interface{}, claims *auth.Claims) *httptest.ResponseRecorder {
	t.Helper()

	token, err := auth.GenerateToken(testJWTSecret, claims.WaiterID, claims.Name, claims.Role)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	var req *http.Request
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		req = httptest.NewRequest(method, path, bytes.NewReader(b))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func decodeResponse(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

func testNumeric(val string) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(val)
	return n
}
