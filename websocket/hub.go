package websocket

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Client is one websocket connection of a principal. A principal may hold several.
type Client struct {
	Hub  *Hub
	Key  string
	Conn *websocket.Conn
	Send chan []byte
}

// Hub tracks live connections by principal key and fans messages out to them.
type Hub struct {
	clients map[string]map[*Client]struct{}

	// Broadcast fans a message out to every connection
	Broadcast chan *Message

	// Register requests from clients
	Register chan *Client

	// Unregister requests from clients
	Unregister chan *Client

	// Message handlers for inbound client messages
	MessageHandlers map[string]MessageHandler

	stop chan struct{}
	mu   sync.RWMutex
}

// Message is the envelope for every server push.
type Message struct {
	Type      string      `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data,omitempty"`
}

// MessageHandler handles different types of messages
type MessageHandler func(*Client, *Message) error

// NewHub creates a new WebSocket hub
func NewHub() *Hub {
	hub := &Hub{
		clients:         make(map[string]map[*Client]struct{}),
		Broadcast:       make(chan *Message),
		Register:        make(chan *Client),
		Unregister:      make(chan *Client),
		MessageHandlers: make(map[string]MessageHandler),
		stop:            make(chan struct{}),
	}
	hub.MessageHandlers["ping"] = hub.handlePing
	return hub
}

// Run starts the hub's main loop. It returns after Stop.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.mu.Lock()
			if h.clients[client.Key] == nil {
				h.clients[client.Key] = make(map[*Client]struct{})
			}
			h.clients[client.Key][client] = struct{}{}
			h.mu.Unlock()
			log.Printf("🔌 Client registered: %s", client.Key)

		case client := <-h.Unregister:
			h.remove(client)
			log.Printf("🔌 Client unregistered: %s", client.Key)

		case message := <-h.Broadcast:
			h.broadcastMessage(message)

		case <-h.stop:
			h.mu.Lock()
			for key, conns := range h.clients {
				for c := range conns {
					close(c.Send)
				}
				delete(h.clients, key)
			}
			h.mu.Unlock()
			return
		}
	}
}

// Stop ends Run and closes every client's send queue.
func (h *Hub) Stop() {
	close(h.stop)
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	conns, ok := h.clients[client.Key]
	if !ok {
		return
	}
	if _, ok := conns[client]; ok {
		delete(conns, client)
		close(client.Send)
	}
	if len(conns) == 0 {
		delete(h.clients, client.Key)
	}
}

// broadcastMessage sends a message to all connected clients
func (h *Hub) broadcastMessage(message *Message) {
	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("❌ Error marshaling message: %v", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, conns := range h.clients {
		for c := range conns {
			select {
			case c.Send <- data:
			default:
				log.Printf("⚠️ %s send buffer is full, dropping broadcast", c.Key)
			}
		}
	}
}

// Publish queues message for every connection. It reports false once the hub has stopped.
func (h *Hub) Publish(message *Message) bool {
	select {
	case h.Broadcast <- message:
		return true
	case <-h.stop:
		return false
	}
}

// SendTo delivers message to every connection of the principal key and
// reports how many connections accepted it.
func (h *Hub) SendTo(key string, message *Message) int {
	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("❌ Error marshaling message: %v", err)
		return 0
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for c := range h.clients[key] {
		select {
		case c.Send <- data:
			delivered++
		default:
			log.Printf("⚠️ %s send buffer is full", key)
		}
	}
	return delivered
}

// IsConnected checks if a principal currently holds at least one connection
func (h *Hub) IsConnected(key string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[key]) > 0
}

// handlePing handles ping messages for connection health
func (h *Hub) handlePing(client *Client, _ *Message) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	// The send queue is closed once the client leaves the hub
	if _, ok := h.clients[client.Key][client]; !ok {
		return nil
	}
	return client.SendMessage(&Message{Type: "pong", Timestamp: time.Now().UTC()})
}
