package httpbridge

import (
	"context"
	"log"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/altsmith/altbridge/pkg/orchestrator"
)

// wsClient is one connected UI surface (popup or options page).
type wsClient struct {
	id      string
	channel chan orchestrator.Event
	done    chan struct{}
}

// EventHub fans orchestrator events out to connected websocket clients.
// A popup that opens after a result was produced misses nothing: it
// replays via the status endpoint and then follows live events.
type EventHub struct {
	clients  map[string]*wsClient
	mutex    sync.RWMutex
	upgrader websocket.Upgrader
	ctx      context.Context
}

// NewEventHub creates a hub and starts forwarding from the event source.
func NewEventHub(ctx context.Context, events <-chan orchestrator.Event) *EventHub {
	hub := &EventHub{
		clients: make(map[string]*wsClient),
		upgrader: websocket.Upgrader{
			// The bridge listens on loopback only; the extension's
			// origin is a browser-internal scheme.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		ctx: ctx,
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-events:
				hub.Broadcast(ev)
			}
		}
	}()

	return hub
}

// Broadcast sends an event to every connected client.
func (h *EventHub) Broadcast(ev orchestrator.Event) {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	for _, client := range h.clients {
		select {
		case client.channel <- ev:
		default:
			// Channel full, skip; the client catches up via /api/status.
		}
	}
}

// addClient registers a new client connection.
func (h *EventHub) addClient() *wsClient {
	client := &wsClient{
		id:      uuid.New().String(),
		channel: make(chan orchestrator.Event, 16),
		done:    make(chan struct{}),
	}

	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.clients[client.id] = client

	return client
}

// removeClient unregisters a client connection.
func (h *EventHub) removeClient(id string) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if client, exists := h.clients[id]; exists {
		close(client.done)
		delete(h.clients, id)
	}
}

// ServeHTTP upgrades the connection and streams events until the client
// goes away.
func (h *EventHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	client := h.addClient()
	defer h.removeClient(client.id)

	// Drain reads so close frames and pings are processed.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				h.removeClient(client.id)
				return
			}
		}
	}()

	for {
		select {
		case <-h.ctx.Done():
			return
		case <-client.done:
			return
		case ev := <-client.channel:
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		}
	}
}
