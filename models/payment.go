package models

import (
	"errors"
	"strings"
	"time"

	"github.com/akinalp/storefront/pkg/validation"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusSucceeded PaymentStatus = "succeeded"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusRefunded  PaymentStatus = "refunded"
)

// Payment, bir ödeme denemesi. Bir siparişin birden fazla (başarısız)
// denemesi olabilir; en fazla biri succeeded olur.
//
// ProviderRef DB'de şifreli saklanabilir; API'ye sadece çözülmüş hali döner.
type Payment struct {
	ID            string            `json:"id"`
	OrderID       string            `json:"order_id"`
	Method        PaymentMethodType `json:"method"`
	Status        PaymentStatus     `json:"status"`
	AmountCents   int64             `json:"amount_cents"`
	Currency      string            `json:"currency"`
	CardLast4     *string           `json:"card_last4"`
	ProviderRef   string            `json:"provider_ref"`
	FailureReason *string           `json:"failure_reason"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// PayRequest, POST /api/orders/{id}/pay body'si.
// "fail_" ile başlayan token simüle edilmiş red (decline) üretir.
type PayRequest struct {
	Method    PaymentMethodType `json:"method" validate:"required,oneof=card paypal cod"`
	Token     string            `json:"token" validate:"required_unless=Method cod,max=256"`
	CardLast4 string            `json:"card_last4" validate:"omitempty,len=4,numeric"`
}

func (r *PayRequest) Validate() error {
	r.Token = strings.TrimSpace(r.Token)
	r.CardLast4 = strings.TrimSpace(r.CardLast4)
	if err := validation.Struct(r); err != nil {
		return err
	}
	if r.Method == PaymentCard && r.CardLast4 == "" {
		return errors.New("card_last4 is required for card payments")
	}
	return nil
}

// RefundRequest, admin iade isteği.
type RefundRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

func (r *RefundRequest) Validate() error {
	return validation.Struct(r)
}
