package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/jasperfordesq-ai/nexus-broker/internal/goroutine"
)

// ErrHubStopped возвращается, если главный цикл хаба уже завершён.
var ErrHubStopped = errors.New("ws: хаб остановлен")

// Hub управляет WebSocket клиентами, сгруппированными по сообществам.
type Hub struct {
	mu         sync.RWMutex
	clients    map[uuid.UUID]map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	broadcast  chan message
	done       chan struct{}
}

type message struct {
	tenantID uuid.UUID
	payload  []byte
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[uuid.UUID]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan message, 64),
		done:       make(chan struct{}),
	}
}

// Run запускает главный цикл хаба до отмены контекста.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case msg := <-h.broadcast:
			h.send(msg.tenantID, msg.payload)
		}
	}
}

func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// BroadcastToTenant отправляет событие всем брокерам сообщества.
// Формат сообщения: {"type": имя события, "data": полезная нагрузка}.
func (h *Hub) BroadcastToTenant(tenantID uuid.UUID, event string, data any) error {
	raw, err := json.Marshal(map[string]any{
		"type": event,
		"data": data,
	})
	if err != nil {
		return fmt.Errorf("ws: не удалось сериализовать сообщение: %w", err)
	}

	select {
	case h.broadcast <- message{tenantID: tenantID, payload: raw}:
		return nil
	case <-h.done:
		return ErrHubStopped
	}
}

// Connected возвращает число подключений сообщества.
func (h *Hub) Connected(tenantID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[tenantID])
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	tenantID := client.actor.TenantID
	if _, ok := h.clients[tenantID]; !ok {
		h.clients[tenantID] = make(map[*Client]struct{})
	}
	h.clients[tenantID][client] = struct{}{}
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	tenantID := client.actor.TenantID
	if clients, ok := h.clients[tenantID]; ok {
		if _, exists := clients[client]; exists {
			delete(clients, client)
			close(client.send)
		}
		if len(clients) == 0 {
			delete(h.clients, tenantID)
		}
	}
}

func (h *Hub) send(tenantID uuid.UUID, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients[tenantID] {
		select {
		case client.send <- payload:
		default:
			// Медленный клиент отключается
			c := client
			goroutine.SafeGo(c.Close)
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for tenantID, clients := range h.clients {
		for client := range clients {
			close(client.send)
		}
		delete(h.clients, tenantID)
	}
}
