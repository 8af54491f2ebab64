package ws

import (
	"net/http"
	"slices"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/akinalp/storefront/models"
	"github.com/akinalp/storefront/pkg/logger"
)

// TokenValidator, WebSocket handler'ın JWT doğrulaması için kullandığı interface.
// services.AuthService bunu implicit olarak karşılar; ws paketi services'i import etmez.
type TokenValidator interface {
	ValidateAccessToken(tokenString string) (*models.TokenClaims, error)
}

// Handler, WebSocket bağlantı isteklerini işler.
type Handler struct {
	hub            *Hub
	tokenValidator TokenValidator
	upgrader       websocket.Upgrader
}

// NewHandler, yeni bir WebSocket handler oluşturur.
// allowedOrigins boşsa tüm origin'ler kabul edilir (development).
func NewHandler(hub *Hub, tokenValidator TokenValidator, allowedOrigins []string) *Handler {
	return &Handler{
		hub:            hub,
		tokenValidator: tokenValidator,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return len(allowedOrigins) == 0 || origin == "" || slices.Contains(allowedOrigins, origin)
			},
		},
	}
}

// HandleConnection, GET /ws?token=JWT isteğini WebSocket'e yükseltir.
//
// Tarayıcı WebSocket API'si header gönderemediği için token query'den okunur.
// Access token'daki role claim'i admin fan-out üyeliğini belirler.
func (h *Handler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}

	claims, err := h.tokenValidator.ValidateAccessToken(token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn().Err(err).Str("user_id", claims.UserID).Msg("[ws] upgrade failed")
		return
	}

	client := &Client{
		hub:     h.hub,
		conn:    conn,
		userID:  claims.UserID,
		isAdmin: claims.Role == models.RoleAdmin,
		send:    make(chan []byte, sendBufferSize),
	}

	// ready, Hub'a kayıttan önce buffer'a konur; ilk mesaj her zaman odur
	ready, err := json.Marshal(Event{Op: OpReady, Data: ReadyData{
		UserID:   claims.UserID,
		Username: claims.Username,
		IsAdmin:  client.isAdmin,
	}})
	if err == nil {
		client.send <- ready
	}

	select {
	case h.hub.register <- client:
	case <-h.hub.done:
		conn.Close()
		return
	}

	go client.WritePump()
	client.ReadPump()
}
