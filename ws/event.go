// Package ws, WebSocket bağlantı yönetimi ve gerçek zamanlı event dağıtımını sağlar.
//
// Mimari:
//   - Hub: tüm bağlantıları yöneten merkezi yapı; admin bağlantıları ayrıca işaretlenir
//   - Client: her WebSocket bağlantısını temsil eder
//   - Event: client-server arası iletilen mesaj formatı
//
// Event akışı:
//  1. Müşteri sipariş verir → HTTP POST → OrderService → DB kayıt
//  2. Service events bus'a order.created yayınlar
//  3. events.Realtime subscriber'ı Hub'ı çağırır (admin'lere + sipariş sahibine)
//  4. Her client'ın WritePump'ı event'i WebSocket'e yazar
package ws

// Event, WebSocket üzerinden iletilen bir mesaj.
//
// Seq: her outbound event'e verilen artan sayı. Dashboard eksik event
// tespit ettiğinde listeyi REST'ten yeniden çeker.
type Event struct {
	Op   string `json:"op"`
	Data any    `json:"d,omitempty"`
	Seq  int64  `json:"seq,omitempty"`
}

// Client → Server
const (
	OpHeartbeat = "heartbeat" // Client her 30sn'de gönderir
)

// Server → Client
const (
	OpReady           = "ready"
	OpHeartbeatAck    = "heartbeat_ack"
	OpOrderCreate     = "order_create"
	OpOrderUpdate     = "order_update"
	OpShipmentUpdate  = "shipment_update"
	OpInventoryUpdate = "inventory_update"
	OpLowStock        = "low_stock"
)

// ReadyData, bağlantı kurulunca ilk gönderilen payload.
type ReadyData struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	IsAdmin  bool   `json:"is_admin"`
}
