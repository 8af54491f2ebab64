package models

import (
	"strings"
	"time"

	"github.com/akinalp/storefront/pkg/validation"
)

type ShipmentStatus string

const (
	ShipmentLabelCreated   ShipmentStatus = "label_created"
	ShipmentInTransit      ShipmentStatus = "in_transit"
	ShipmentOutForDelivery ShipmentStatus = "out_for_delivery"
	ShipmentDelivered      ShipmentStatus = "delivered"
)

// rank, kargo durumlarının ileri yönlü sırası. Geri gitmeye izin verilmez.
func (s ShipmentStatus) rank() int {
	switch s {
	case ShipmentLabelCreated:
		return 0
	case ShipmentInTransit:
		return 1
	case ShipmentOutForDelivery:
		return 2
	case ShipmentDelivered:
		return 3
	}
	return -1
}

// CanAdvanceTo: in_transit → in_transit (yeni konum) geçerli, geri dönüş ve
// delivered sonrası güncelleme geçersiz.
func (s ShipmentStatus) CanAdvanceTo(next ShipmentStatus) bool {
	if s == ShipmentDelivered || next.rank() < 1 {
		return false
	}
	return next.rank() >= s.rank()
}

// Shipment, bir siparişin tek kargo kaydı.
type Shipment struct {
	ID             string          `json:"id"`
	OrderID        string          `json:"order_id"`
	Carrier        string          `json:"carrier"`
	TrackingNumber string          `json:"tracking_number"`
	Status         ShipmentStatus  `json:"status"`
	Events         []TrackingEvent `json:"events"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// TrackingEvent, kargo geçmişindeki bir adım.
type TrackingEvent struct {
	ID         string         `json:"id"`
	ShipmentID string         `json:"shipment_id"`
	Status     ShipmentStatus `json:"status"`
	Location   string         `json:"location"`
	Note       string         `json:"note"`
	CreatedAt  time.Time      `json:"created_at"`
}

type CreateShipmentRequest struct {
	Carrier string `json:"carrier" validate:"required,max=64"`
}

func (r *CreateShipmentRequest) Validate() error {
	r.Carrier = strings.TrimSpace(r.Carrier)
	return validation.Struct(r)
}

type UpdateShipmentRequest struct {
	Status   ShipmentStatus `json:"status" validate:"required,oneof=in_transit out_for_delivery delivered"`
	Location string         `json:"location" validate:"max=200"`
	Note     string         `json:"note" validate:"max=500"`
}

func (r *UpdateShipmentRequest) Validate() error {
	r.Location = strings.TrimSpace(r.Location)
	r.Note = strings.TrimSpace(r.Note)
	return validation.Struct(r)
}
