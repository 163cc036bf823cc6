package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/ayusman/formcheck/internal/exercise"
)

const writeWait = 2 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// RepMessage is the payload broadcast for every closed repetition.
type RepMessage struct {
	Type      string            `json:"type"`
	Event     exercise.RepEvent `json:"event"`
	Timestamp int64             `json:"timestamp"`
}

// EventHub broadcasts rep events to WebSocket clients. It is an
// exercise.Sink; a client that cannot keep up is dropped and never fails
// the run.
type EventHub struct {
	clients map[*websocket.Conn]bool
	mu      sync.Mutex
}

// NewEventHub creates an EventHub without clients.
func NewEventHub() *EventHub {
	return &EventHub{clients: make(map[*websocket.Conn]bool)}
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *EventHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Warn("websocket upgrade error")
		return
	}
	defer conn.Close()

	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()

	defer h.remove(conn)

	// Keep connection alive by reading messages
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

// Clients returns the number of connected clients.
func (h *EventHub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Record sends ev to every connected client.
func (h *EventHub) Record(_ context.Context, ev exercise.RepEvent) error {
	msg, err := json.Marshal(RepMessage{Type: "rep", Event: ev, Timestamp: time.Now().UnixMilli()})
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.clients {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			log.WithError(err).Debug("dropping websocket client")
			conn.Close()
			delete(h.clients, conn)
		}
	}
	return nil
}

// Close disconnects every client.
func (h *EventHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.clients {
		conn.Close()
		delete(h.clients, conn)
	}
}

func (h *EventHub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, conn)
}
