package events

import "github.com/akinalp/storefront/models"

// Topic adları
const (
	TopicOrderCreated       = "order.created"
	TopicOrderStatusChanged = "order.status_changed"
	TopicShipmentUpdated    = "shipment.updated"
	TopicInventoryUpdated   = "inventory.updated"
	TopicLowStock           = "inventory.low_stock"
)

// OrderCreated, checkout tamamlandığında yayınlanır.
type OrderCreated struct {
	Order models.Order `json:"order"`
}

// OrderStatusChanged, her başarılı durum geçişinde yayınlanır.
type OrderStatusChanged struct {
	OrderID     string             `json:"order_id"`
	OrderNumber string             `json:"order_number"`
	UserID      string             `json:"user_id"`
	From        models.OrderStatus `json:"from"`
	To          models.OrderStatus `json:"to"`
	Note        string             `json:"note,omitempty"`
}

// ShipmentUpdated, kargo oluşturulduğunda ve her takip adımında yayınlanır.
type ShipmentUpdated struct {
	OrderID     string          `json:"order_id"`
	OrderNumber string          `json:"order_number"`
	UserID      string          `json:"user_id"`
	Shipment    models.Shipment `json:"shipment"`
	Location    string          `json:"location,omitempty"`
}

// InventoryUpdated, stok miktarı değiştiğinde yayınlanır.
type InventoryUpdated struct {
	Items []models.Inventory `json:"items"`
}

// LowStock, available eşik değerine indiğinde yayınlanır.
type LowStock struct {
	Inventory models.Inventory `json:"inventory"`
}
