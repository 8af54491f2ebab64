package ws

import (
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/akinalp/storefront/pkg/logger"
)

const (
	writeWait = 10 * time.Second

	// pongWait: 3 heartbeat kaçırma (30s × 3) sonrası bağlantı kopmuş sayılır.
	pongWait = 90 * time.Second

	maxMessageSize = 4096

	// sendBufferSize dolarsa client yavaş kabul edilip düşürülür.
	sendBufferSize = 256
)

// Client, tek bir WebSocket bağlantısı.
//
// Her bağlantı için iki goroutine vardır: ReadPump client'tan okur,
// WritePump send kanalından WebSocket'e yazar. gorilla/websocket aynı anda
// tek okuyucu ve tek yazıcı destekler.
type Client struct {
	hub     *Hub
	conn    *websocket.Conn
	userID  string
	isAdmin bool
	send    chan []byte
	mu      sync.Mutex // conn yazmalarını korur
}

// ReadPump, bağlantı kapanana kadar client mesajlarını okur.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.drop(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		logger.Warn().Err(err).Str("user_id", c.userID).Msg("[ws] failed to set read deadline")
		return
	}

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug().Err(err).Str("user_id", c.userID).Msg("[ws] unexpected close")
			}
			return
		}

		var event Event
		if err := json.Unmarshal(raw, &event); err != nil {
			logger.Debug().Err(err).Str("user_id", c.userID).Msg("[ws] invalid message")
			continue
		}

		c.handleEvent(event)
	}
}

// handleEvent: storefront'ta client → server yönünde sadece heartbeat var;
// tüm komutlar REST üzerinden gelir.
func (c *Client) handleEvent(event Event) {
	switch event.Op {
	case OpHeartbeat:
		if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			return
		}
		c.sendEvent(Event{Op: OpHeartbeatAck})
	default:
		logger.Debug().Str("user_id", c.userID).Str("op", event.Op).Msg("[ws] unknown op")
	}
}

func (c *Client) sendEvent(event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		logger.Error().Err(err).Str("user_id", c.userID).Msg("[ws] failed to marshal event")
		return
	}

	// send kanalı Hub tarafından Lock altında kapatılır; üyelik RLock altında kontrol edilir
	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()
	if !c.hub.clients[c.userID][c] {
		return
	}

	select {
	case c.send <- data:
	default:
		logger.Warn().Str("user_id", c.userID).Msg("[ws] send buffer full, dropping connection")
		go c.hub.drop(c)
	}
}

// WritePump, send kanalındaki mesajları WebSocket'e yazar.
// Kanal kapanınca (Hub client'ı çıkardı) close frame gönderip döner.
func (c *Client) WritePump() {
	defer c.conn.Close()

	for message := range c.send {
		if err := c.writeMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
	_ = c.writeMessage(websocket.CloseMessage, nil)
}

func (c *Client) writeMessage(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(messageType, data)
}
