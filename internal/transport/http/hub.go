package http

import (
	"log"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

type outboundMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type hubClient struct {
	id   string
	conn *websocket.Conn
	send chan outboundMessage
}

// Hub owns the live connections and their group memberships, and
// implements app.Broadcaster. Each connection gets a dedicated writer
// goroutine; a full send buffer drops the oldest frame rather than
// letting a slow client block a broadcast.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*hubClient
	groups  map[string]map[string]struct{}
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]*hubClient),
		groups:  make(map[string]map[string]struct{}),
	}
}

// Register starts tracking a connection and returns its client ID.
func (h *Hub) Register(conn *websocket.Conn) string {
	client := &hubClient{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan outboundMessage, 16),
	}

	h.mu.Lock()
	h.clients[client.id] = client
	h.mu.Unlock()

	go func() {
		for msg := range client.send {
			if err := client.conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()
	return client.id
}

// Unregister stops tracking a connection and releases its writer.
func (h *Hub) Unregister(connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	client, ok := h.clients[connID]
	if !ok {
		return
	}
	delete(h.clients, connID)
	for group, members := range h.groups {
		delete(members, connID)
		if len(members) == 0 {
			delete(h.groups, group)
		}
	}
	close(client.send)
}

func (h *Hub) JoinGroup(connID, group string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[connID]; !ok {
		return
	}
	if h.groups[group] == nil {
		h.groups[group] = make(map[string]struct{})
	}
	h.groups[group][connID] = struct{}{}
}

func (h *Hub) LeaveGroup(connID, group string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if members, ok := h.groups[group]; ok {
		delete(members, connID)
		if len(members) == 0 {
			delete(h.groups, group)
		}
	}
}

func (h *Hub) ToClient(connID, event string, payload any) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if client, ok := h.clients[connID]; ok {
		client.enqueue(outboundMessage{Type: event, Payload: payload})
	}
}

func (h *Hub) ToGroup(group, event string, payload any) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	msg := outboundMessage{Type: event, Payload: payload}
	for connID := range h.groups[group] {
		if client, ok := h.clients[connID]; ok {
			client.enqueue(msg)
		}
	}
}

// enqueue never blocks: on overflow it drops the oldest frame so the
// newest state wins. Callers hold the hub lock, which excludes the
// channel close in Unregister.
func (c *hubClient) enqueue(msg outboundMessage) {
	select {
	case c.send <- msg:
	default:
		select {
		case <-c.send:
		default:
		}
		select {
		case c.send <- msg:
		default:
		}
	}
}
