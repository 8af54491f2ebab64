package models

import (
	"time"

	"github.com/akinalp/storefront/pkg/validation"
)

// CartItem, sepetteki bir satır; ürün adı ve fiyatı katalogdan join edilir,
// yani her zaman güncel fiyatı gösterir.
type CartItem struct {
	ProductID      string    `json:"product_id"`
	Name           string    `json:"name"`
	SKU            string    `json:"sku"`
	ImageURL       *string   `json:"image_url"`
	UnitPriceCents int64     `json:"unit_price_cents"`
	Quantity       int       `json:"quantity"`
	LineTotalCents int64     `json:"line_total_cents"`
	IsActive       bool      `json:"is_active"`
	AddedAt        time.Time `json:"added_at"`
}

// Cart, kullanıcının tek sepeti.
type Cart struct {
	UserID        string     `json:"user_id"`
	Items         []CartItem `json:"items"`
	ItemCount     int        `json:"item_count"`
	SubtotalCents int64      `json:"subtotal_cents"`
	Currency      string     `json:"currency"`
}

// AddCartItemRequest: aynı ürün tekrar eklenirse miktarlar toplanır (max 99).
type AddCartItemRequest struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"gte=1,lte=99"`
}

// UpdateCartItemRequest: Quantity 0 satırı siler.
type UpdateCartItemRequest struct {
	Quantity int `json:"quantity" validate:"gte=0,lte=99"`
}

func (r *AddCartItemRequest) Validate() error {
	return validation.Struct(r)
}

func (r *UpdateCartItemRequest) Validate() error {
	return validation.Struct(r)
}
