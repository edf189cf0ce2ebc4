package ws

import (
	"encoding/json"
	"sync"
)

// Channels clients can subscribe to. Waiter handhelds watch billing state;
// each station display watches its own feed.
const (
	ChannelWaiter  = "waiter"
	ChannelKitchen = "kitchen"
	ChannelBar     = "bar"
)

// ValidChannel reports whether name is a subscribable channel.
func ValidChannel(name string) bool {
	switch name {
	case ChannelWaiter, ChannelKitchen, ChannelBar:
		return true
	}
	return false
}

// Event is a change notification pushed to subscribed clients. It tells a
// client that state moved, not what the full state is: clients re-fetch the
// authoritative record and use the carried order version to discard refetches
// that arrive out of order.
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Notifier is the injected fan-out interface handlers emit through, scoped
// to process lifetime rather than ambient global state.
type Notifier interface {
	Broadcast(channel string, event Event)
}

// channelEvent routes an event to one channel's room.
type channelEvent struct {
	Channel string
	Event   Event
}

// Hub maintains the set of active clients and broadcasts messages to them.
type Hub struct {
	// Registered clients by channel name
	rooms map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan *channelEvent

	mu sync.RWMutex
}

// NewHub creates a new Hub instance.
func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *channelEvent, 256),
	}
}

// Run starts the hub's main loop.
// This should be called as a goroutine: go hub.Run()
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if h.rooms[client.channel] == nil {
				h.rooms[client.channel] = make(map[*Client]bool)
			}
			h.rooms[client.channel][client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.rooms[client.channel]; ok {
				if _, exists := clients[client]; exists {
					delete(clients, client)
					close(client.send)
					if len(clients) == 0 {
						delete(h.rooms, client.channel)
					}
				}
			}
			h.mu.Unlock()

		case event := <-h.broadcast:
			h.mu.Lock()
			clients := h.rooms[event.Channel]

			message, err := json.Marshal(event.Event)
			if err != nil {
				h.mu.Unlock()
				continue
			}

			for client := range clients {
				select {
				case client.send <- message:
				default:
					// Client's send buffer is full, close and unregister.
					// The client's reconciliation poll catches it up.
					close(client.send)
					delete(h.rooms[event.Channel], client)
					if len(h.rooms[event.Channel]) == 0 {
						delete(h.rooms, event.Channel)
					}
				}
			}
			h.mu.Unlock()
		}
	}
}

// Broadcast sends an event to every client subscribed to the channel.
func (h *Hub) Broadcast(channel string, event Event) {
	h.broadcast <- &channelEvent{Channel: channel, Event: event}
}
