package models

import (
	"errors"
	"strings"
	"time"

	"github.com/akinalp/storefront/pkg/validation"
)

// Inventory, bir ürünün stok durumu.
// Available = OnHand - Reserved; rezervasyonlar OnHand'i değil Reserved'ı artırır.
type Inventory struct {
	ProductID         string    `json:"product_id"`
	QuantityOnHand    int       `json:"quantity_on_hand"`
	QuantityReserved  int       `json:"quantity_reserved"`
	Available         int       `json:"available"`
	LowStockThreshold int       `json:"low_stock_threshold"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// IsLow, available eşik değerinin altına düştü mü.
func (i *Inventory) IsLow() bool {
	return i.Available <= i.LowStockThreshold
}

// ReservationStatus, bir rezervasyonun yaşam döngüsü:
// pending → committed (ödeme alındı) | released (iptal, hata veya süre doldu).
type ReservationStatus string

const (
	ReservationPending   ReservationStatus = "pending"
	ReservationCommitted ReservationStatus = "committed"
	ReservationReleased  ReservationStatus = "released"
)

// StockItem, check/reserve isteğindeki tek satır.
type StockItem struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"gte=1,lte=99"`
}

// Reservation, bir key altında tutulan stok rezervasyonu.
type Reservation struct {
	Key       string            `json:"reservation_key"`
	Status    ReservationStatus `json:"status"`
	Items     []StockItem       `json:"items"`
	ExpiresAt time.Time         `json:"expires_at"`
	CreatedAt time.Time         `json:"created_at"`
}

// Availability, check sonucu tek ürün için.
type Availability struct {
	ProductID string `json:"product_id"`
	Requested int    `json:"requested"`
	Available int    `json:"available"`
	OK        bool   `json:"ok"`
}

// StockCheckRequest, POST /api/inventory/check body'si.
type StockCheckRequest struct {
	Items []StockItem `json:"items" validate:"required,min=1,max=100,dive"`
}

// ReserveRequest, POST /api/inventory/reserve body'si. Aynı key ile tekrar
// gelen istek mevcut rezervasyonu döner, stok iki kez düşmez.
type ReserveRequest struct {
	ReservationKey string      `json:"reservation_key" validate:"required,max=128"`
	Items          []StockItem `json:"items" validate:"required,min=1,max=100,dive"`
}

// ReservationKeyRequest, release/commit body'si.
type ReservationKeyRequest struct {
	ReservationKey string `json:"reservation_key" validate:"required,max=128"`
}

// AdjustStockRequest: Set verilirse on_hand o değere çekilir, yoksa Delta eklenir.
type AdjustStockRequest struct {
	Set               *int `json:"set" validate:"omitnil,gte=0"`
	Delta             int  `json:"delta"`
	LowStockThreshold *int `json:"low_stock_threshold" validate:"omitnil,gte=0"`
}

func (r *StockCheckRequest) Validate() error {
	return validation.Struct(r)
}

func (r *ReserveRequest) Validate() error {
	r.ReservationKey = strings.TrimSpace(r.ReservationKey)
	return validation.Struct(r)
}

func (r *ReservationKeyRequest) Validate() error {
	r.ReservationKey = strings.TrimSpace(r.ReservationKey)
	return validation.Struct(r)
}

func (r *AdjustStockRequest) Validate() error {
	if r.Set == nil && r.Delta == 0 && r.LowStockThreshold == nil {
		return errors.New("one of set, delta or low_stock_threshold is required")
	}
	return validation.Struct(r)
}
