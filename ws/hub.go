package ws

import (
	"sync"
	"sync/atomic"

	"github.com/goccy/go-json"

	"github.com/akinalp/storefront/pkg/logger"
)

// EventPublisher, Hub'ın dışarıya açık broadcast API'si.
// events.Realtime subscriber'ı bu interface'e bağımlıdır.
type EventPublisher interface {
	BroadcastToAll(event Event)
	BroadcastToAdmins(event Event)
	BroadcastToUser(userID string, event Event)
	// BroadcastToUserAndAdmins, kullanıcı admin ise event'i iki kez göndermez.
	BroadcastToUserAndAdmins(userID string, event Event)
	OnlineUserCount() int
}

// Hub, tüm WebSocket bağlantılarını yönetir.
//
// clients: userID → client set (bir kullanıcının birden fazla tab'ı olabilir).
// admins: admin yetkili kullanıcıların ID seti; dashboard fan-out'u bunu kullanır.
type Hub struct {
	clients map[string]map[*Client]bool
	admins  map[string]bool
	mu      sync.RWMutex

	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	stopOnce   sync.Once

	seq atomic.Int64
}

// NewHub, yeni bir Hub oluşturur.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]bool),
		admins:     make(map[string]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run, Hub'ın event loop'u. main.go'da `go hub.Run()` ile başlatılır,
// Shutdown çağrılınca döner.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case <-h.done:
			return
		}
	}
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.userID]; !ok {
		h.clients[client.userID] = make(map[*Client]bool)
	}
	h.clients[client.userID][client] = true
	if client.isAdmin {
		h.admins[client.userID] = true
	}

	logger.Debug().
		Str("user_id", client.userID).
		Bool("admin", client.isAdmin).
		Int("connections", len(h.clients[client.userID])).
		Msg("[ws] client connected")
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients, ok := h.clients[client.userID]
	if !ok {
		return
	}
	if _, exists := clients[client]; !exists {
		return
	}

	delete(clients, client)
	close(client.send)

	if len(clients) == 0 {
		delete(h.clients, client.userID)
		delete(h.admins, client.userID)
		logger.Debug().Str("user_id", client.userID).Msg("[ws] user fully disconnected")
	}
}

// BroadcastToAll, tüm bağlı client'lara event gönderir.
func (h *Hub) BroadcastToAll(event Event) {
	data, ok := h.encode(event)
	if !ok {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, clients := range h.clients {
		h.deliver(clients, data)
	}
}

// BroadcastToAdmins, sadece admin bağlantılarına event gönderir.
func (h *Hub) BroadcastToAdmins(event Event) {
	data, ok := h.encode(event)
	if !ok {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for userID := range h.admins {
		h.deliver(h.clients[userID], data)
	}
}

// BroadcastToUser, kullanıcının tüm bağlantılarına event gönderir.
func (h *Hub) BroadcastToUser(userID string, event Event) {
	data, ok := h.encode(event)
	if !ok {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	h.deliver(h.clients[userID], data)
}

func (h *Hub) BroadcastToUserAndAdmins(userID string, event Event) {
	data, ok := h.encode(event)
	if !ok {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	if !h.admins[userID] {
		h.deliver(h.clients[userID], data)
	}
	for adminID := range h.admins {
		h.deliver(h.clients[adminID], data)
	}
}

// OnlineUserCount, en az bir bağlantısı olan kullanıcı sayısı.
func (h *Hub) OnlineUserCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) encode(event Event) ([]byte, bool) {
	event.Seq = h.seq.Add(1)
	data, err := json.Marshal(event)
	if err != nil {
		logger.Error().Err(err).Str("op", event.Op).Msg("[ws] failed to marshal event")
		return nil, false
	}
	return data, true
}

// deliver, RLock altında çağrılır. Buffer'ı dolu client yavaştır, düşürülür.
func (h *Hub) deliver(clients map[*Client]bool, data []byte) {
	for client := range clients {
		select {
		case client.send <- data:
		default:
			go h.drop(client)
		}
	}
}

func (h *Hub) drop(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Shutdown, tüm client bağlantılarını kapatır ve Run döngüsünü sonlandırır.
func (h *Hub) Shutdown() {
	h.stopOnce.Do(func() {
		close(h.done)

		h.mu.Lock()
		defer h.mu.Unlock()

		for _, clients := range h.clients {
			for client := range clients {
				close(client.send)
			}
		}
		h.clients = make(map[string]map[*Client]bool)
		h.admins = make(map[string]bool)
		logger.Info().Msg("[ws] hub shut down, all connections closed")
	})
}
