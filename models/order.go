package models

import (
	"slices"
	"strings"
	"time"

	"github.com/akinalp/storefront/pkg/validation"
)

// OrderStatus, siparişin yaşam döngüsü.
//
//	pending → paid → processing → shipped → delivered → refunded
//	pending → processing (kapıda ödeme)
//	pending | paid → cancelled
//	paid → refunded
type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderPaid       OrderStatus = "paid"
	OrderProcessing OrderStatus = "processing"
	OrderShipped    OrderStatus = "shipped"
	OrderDelivered  OrderStatus = "delivered"
	OrderCancelled  OrderStatus = "cancelled"
	OrderRefunded   OrderStatus = "refunded"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderPending:    {OrderPaid, OrderProcessing, OrderCancelled},
	OrderPaid:       {OrderProcessing, OrderShipped, OrderCancelled, OrderRefunded},
	OrderProcessing: {OrderShipped},
	OrderShipped:    {OrderDelivered},
	OrderDelivered:  {OrderRefunded},
}

// CanTransitionTo, durum makinesinde geçişin tanımlı olup olmadığını döner.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	return slices.Contains(orderTransitions[s], next)
}

// Valid, bilinen bir durum mu.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderPaid, OrderProcessing, OrderShipped, OrderDelivered, OrderCancelled, OrderRefunded:
		return true
	}
	return false
}

// PaymentMethodType, sipariş verilirken seçilen ödeme yöntemi.
type PaymentMethodType string

const (
	PaymentCard   PaymentMethodType = "card"
	PaymentPayPal PaymentMethodType = "paypal"
	PaymentCOD    PaymentMethodType = "cod"
)

// ShippingAddress, orders.shipping_address kolonunda JSON olarak saklanır.
type ShippingAddress struct {
	FullName   string `json:"full_name" validate:"required,max=100"`
	Line1      string `json:"line1" validate:"required,max=200"`
	Line2      string `json:"line2" validate:"max=200"`
	City       string `json:"city" validate:"required,max=100"`
	PostalCode string `json:"postal_code" validate:"required,max=20"`
	Country    string `json:"country" validate:"required,len=2"`
	Phone      string `json:"phone" validate:"max=32"`
}

// Order, tamamlanmış bir checkout. Fiyatlar sipariş anındaki katalog
// fiyatlarıdır; sonradan ürün fiyatı değişse de sipariş değişmez.
type Order struct {
	ID              string            `json:"id"`
	OrderNumber     string            `json:"order_number"`
	UserID          string            `json:"user_id"`
	Status          OrderStatus       `json:"status"`
	Currency        string            `json:"currency"`
	SubtotalCents   int64             `json:"subtotal_cents"`
	TaxCents        int64             `json:"tax_cents"`
	ShippingCents   int64             `json:"shipping_cents"`
	TotalCents      int64             `json:"total_cents"`
	ShippingAddress ShippingAddress   `json:"shipping_address"`
	PaymentMethod   PaymentMethodType `json:"payment_method"`
	IdempotencyKey  *string           `json:"-"`
	Items           []OrderItem       `json:"items,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// OrderItem, sipariş satırı. Ürün bilgisi snapshot olarak kopyalanır.
type OrderItem struct {
	ID             string `json:"id"`
	OrderID        string `json:"order_id"`
	ProductID      string `json:"product_id"`
	SKU            string `json:"sku"`
	Name           string `json:"name"`
	UnitPriceCents int64  `json:"unit_price_cents"`
	Quantity       int    `json:"quantity"`
	LineTotalCents int64  `json:"line_total_cents"`
}

// OrderStatusChange, order_status_history satırı.
type OrderStatusChange struct {
	ID         string       `json:"id"`
	OrderID    string       `json:"order_id"`
	FromStatus *OrderStatus `json:"from_status"`
	ToStatus   OrderStatus  `json:"to_status"`
	Note       string       `json:"note"`
	ChangedBy  *string      `json:"changed_by"`
	CreatedAt  time.Time    `json:"created_at"`
}

// OrderFilter, admin sipariş listesi filtresi.
type OrderFilter struct {
	Status OrderStatus
	UserID string
	Page
}

// CreateOrderRequest, POST /api/orders body'si. IdempotencyKey body'de
// veya Idempotency-Key header'ında gelebilir; header önceliklidir.
type CreateOrderRequest struct {
	ShippingAddress ShippingAddress   `json:"shipping_address"`
	PaymentMethod   PaymentMethodType `json:"payment_method" validate:"required,oneof=card paypal cod"`
	IdempotencyKey  string            `json:"idempotency_key" validate:"max=128"`
}

func (r *CreateOrderRequest) Validate() error {
	a := &r.ShippingAddress
	a.FullName = strings.TrimSpace(a.FullName)
	a.Line1 = strings.TrimSpace(a.Line1)
	a.Line2 = strings.TrimSpace(a.Line2)
	a.City = strings.TrimSpace(a.City)
	a.PostalCode = strings.TrimSpace(a.PostalCode)
	a.Country = strings.ToUpper(strings.TrimSpace(a.Country))
	r.IdempotencyKey = strings.TrimSpace(r.IdempotencyKey)
	return validation.Struct(r)
}

// UpdateOrderStatusRequest, admin durum güncellemesi.
type UpdateOrderStatusRequest struct {
	Status OrderStatus `json:"status" validate:"required,oneof=pending paid processing shipped delivered cancelled refunded"`
	Note   string      `json:"note" validate:"max=500"`
}

func (r *UpdateOrderStatusRequest) Validate() error {
	return validation.Struct(r)
}
