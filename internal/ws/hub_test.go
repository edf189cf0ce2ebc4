package ws

import (
	"encoding/json"
	"testing"
	"time"
)

// mockClient creates a client for testing without a real WebSocket connection
func mockClient(hub *Hub, channel string) *Client {
	return &Client{
		hub:     hub,
		channel: channel,
		send:    make(chan []byte, 256),
	}
}

func TestHubRegistration(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	client := mockClient(hub, ChannelWaiter)

	// Register client
	hub.register <- client

	// Give hub time to process
	time.Sleep(10 * time.Millisecond)

	hub.mu.RLock()
	defer hub.mu.RUnlock()

	if hub.rooms[ChannelWaiter] == nil {
		t.Fatal("channel room not created")
	}
	if !hub.rooms[ChannelWaiter][client] {
		t.Fatal("client not registered in channel room")
	}
}

func TestHubUnregistration(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	client := mockClient(hub, ChannelKitchen)

	// Register client
	hub.register <- client
	time.Sleep(10 * time.Millisecond)

	// Unregister client
	hub.unregister <- client
	time.Sleep(10 * time.Millisecond)

	hub.mu.RLock()
	defer hub.mu.RUnlock()

	// Room should be cleaned up when empty
	if hub.rooms[ChannelKitchen] != nil {
		t.Fatal("channel room not cleaned up after last client unregistered")
	}
}

func TestBroadcastToSingleChannel(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	waiter := mockClient(hub, ChannelWaiter)
	kitchen := mockClient(hub, ChannelKitchen)

	// Register both clients
	hub.register <- waiter
	hub.register <- kitchen
	time.Sleep(10 * time.Millisecond)

	// Broadcast to the waiter channel only
	testPayload := json.RawMessage(`{"order_id":"test-123","version":4}`)
	event := Event{
		Type:    "order.items_changed",
		Payload: testPayload,
	}
	hub.Broadcast(ChannelWaiter, event)

	// Check the waiter client receives the message
	select {
	case msg := <-waiter.send:
		var received Event
		if err := json.Unmarshal(msg, &received); err != nil {
			t.Fatalf("failed to unmarshal message: %v", err)
		}
		if received.Type != "order.items_changed" {
			t.Errorf("expected type 'order.items_changed', got '%s'", received.Type)
		}
		if string(received.Payload) != string(testPayload) {
			t.Errorf("expected payload '%s', got '%s'", testPayload, received.Payload)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("waiter client did not receive message")
	}

	// Check the kitchen client does NOT receive the message
	select {
	case <-kitchen.send:
		t.Fatal("kitchen client should not have received a waiter event")
	case <-time.After(50 * time.Millisecond):
		// Expected - no message received
	}
}

func TestBroadcastToMultipleClientsInSameChannel(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	client1 := mockClient(hub, ChannelBar)
	client2 := mockClient(hub, ChannelBar)
	client3 := mockClient(hub, ChannelBar)

	// Register all clients to the same channel
	hub.register <- client1
	hub.register <- client2
	hub.register <- client3
	time.Sleep(10 * time.Millisecond)

	// Broadcast event
	testPayload := json.RawMessage(`{"status":"READY"}`)
	event := Event{
		Type:    "item.status_changed",
		Payload: testPayload,
	}
	hub.Broadcast(ChannelBar, event)

	// All three clients should receive the message
	clients := []*Client{client1, client2, client3}
	for i, client := range clients {
		select {
		case msg := <-client.send:
			var received Event
			if err := json.Unmarshal(msg, &received); err != nil {
				t.Fatalf("client%d: failed to unmarshal: %v", i+1, err)
			}
			if received.Type != "item.status_changed" {
				t.Errorf("client%d: expected type 'item.status_changed', got '%s'", i+1, received.Type)
			}
		case <-time.After(100 * time.Millisecond):
			t.Fatalf("client%d did not receive message", i+1)
		}
	}
}

func TestChannelIsolation(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	// Create 2 clients per channel
	clients := map[string][]*Client{
		ChannelWaiter:  {mockClient(hub, ChannelWaiter), mockClient(hub, ChannelWaiter)},
		ChannelKitchen: {mockClient(hub, ChannelKitchen), mockClient(hub, ChannelKitchen)},
		ChannelBar:     {mockClient(hub, ChannelBar), mockClient(hub, ChannelBar)},
	}

	// Register all clients
	for _, clientList := range clients {
		for _, client := range clientList {
			hub.register <- client
		}
	}
	time.Sleep(10 * time.Millisecond)

	// Broadcast to the kitchen channel only
	event := Event{
		Type:    "batch.ready",
		Payload: json.RawMessage(`{"batch":2}`),
	}
	hub.Broadcast(ChannelKitchen, event)

	// Only kitchen clients should receive
	for channel, clientList := range clients {
		for i, client := range clientList {
			select {
			case msg := <-client.send:
				if channel != ChannelKitchen {
					t.Fatalf("channel %s client %d should not receive message", channel, i)
				}
				var received Event
				if err := json.Unmarshal(msg, &received); err != nil {
					t.Fatalf("unmarshal error: %v", err)
				}
				if received.Type != "batch.ready" {
					t.Errorf("wrong event type: %s", received.Type)
				}
			case <-time.After(50 * time.Millisecond):
				if channel == ChannelKitchen {
					t.Fatalf("kitchen client %d should have received message", i)
				}
				// Expected for other channels
			}
		}
	}
}

func TestHubCleanupEmptyRoom(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	client1 := mockClient(hub, ChannelWaiter)
	client2 := mockClient(hub, ChannelWaiter)

	// Register both clients
	hub.register <- client1
	hub.register <- client2
	time.Sleep(10 * time.Millisecond)

	hub.mu.RLock()
	if len(hub.rooms[ChannelWaiter]) != 2 {
		t.Fatalf("expected 2 clients, got %d", len(hub.rooms[ChannelWaiter]))
	}
	hub.mu.RUnlock()

	// Unregister first client
	hub.unregister <- client1
	time.Sleep(10 * time.Millisecond)

	hub.mu.RLock()
	if len(hub.rooms[ChannelWaiter]) != 1 {
		t.Fatalf("expected 1 client after first unregister, got %d", len(hub.rooms[ChannelWaiter]))
	}
	hub.mu.RUnlock()

	// Unregister second client
	hub.unregister <- client2
	time.Sleep(10 * time.Millisecond)

	hub.mu.RLock()
	if hub.rooms[ChannelWaiter] != nil {
		t.Fatal("room should be deleted when last client unregisters")
	}
	hub.mu.RUnlock()
}

func TestBroadcastToEmptyChannel(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	// Create a waiter client only
	client := mockClient(hub, ChannelWaiter)
	hub.register <- client
	time.Sleep(10 * time.Millisecond)

	// Broadcast to the bar channel (no subscribers)
	event := Event{
		Type:    "item.status_changed",
		Payload: json.RawMessage(`{"test":"data"}`),
	}
	hub.Broadcast(ChannelBar, event)

	// The waiter client should NOT receive anything
	select {
	case <-client.send:
		t.Fatal("client should not receive message for a different channel")
	case <-time.After(50 * time.Millisecond):
		// Expected - no message
	}
}

func TestValidChannel(t *testing.T) {
	for _, name := range []string{ChannelWaiter, ChannelKitchen, ChannelBar} {
		if !ValidChannel(name) {
			t.Errorf("expected %q to be a valid channel", name)
		}
	}
	for _, name := range []string{"", "KITCHEN", "lobby", "waiter "} {
		if ValidChannel(name) {
			t.Errorf("expected %q to be rejected", name)
		}
	}
}
