package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/akinalp/storefront/models"
	"github.com/akinalp/storefront/pkg"
	"github.com/akinalp/storefront/pkg/ratelimit"
	"github.com/akinalp/storefront/pkg/svcclient"
	"github.com/akinalp/storefront/services"
)

// OrderHandler, müşteri tarafı sipariş endpoint'leri: checkout, sipariş
// geçmişi, ödeme ve kargo takibi.
type OrderHandler struct {
	orderService    services.OrderService
	paymentService  services.PaymentService
	shippingService services.ShippingService
	checkoutLimiter *ratelimit.ActionRateLimiter
}

// NewOrderHandler, constructor. checkoutLimiter nil ise checkout limiti yoktur.
func NewOrderHandler(
	orderService services.OrderService,
	paymentService services.PaymentService,
	shippingService services.ShippingService,
	checkoutLimiter *ratelimit.ActionRateLimiter,
) *OrderHandler {
	return &OrderHandler{
		orderService:    orderService,
		paymentService:  paymentService,
		shippingService: shippingService,
		checkoutLimiter: checkoutLimiter,
	}
}

// Create godoc
// POST /api/orders
// Header: Idempotency-Key (opsiyonel, body'deki idempotency_key'i ezer)
//
// Yeni sipariş 201, aynı key ile tekrar gelen istek mevcut siparişi 200 ile döner.
// Tekrar gelen istekler checkout limitinden düşülmez.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req models.CreateOrderRequest
	if err := pkg.DecodeJSON(r, &req); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if key := strings.TrimSpace(r.Header.Get(svcclient.IdempotencyKeyHeader)); key != "" {
		req.IdempotencyKey = key
	}

	if req.IdempotencyKey != "" {
		existing, err := h.orderService.FindByIdempotencyKey(r.Context(), user.ID, req.IdempotencyKey)
		if err == nil {
			pkg.JSON(w, http.StatusOK, existing)
			return
		}
		if !errors.Is(err, pkg.ErrNotFound) {
			pkg.Error(w, err)
			return
		}
	}

	if h.checkoutLimiter != nil && !h.checkoutLimiter.Allow(user.ID) {
		cooldown := h.checkoutLimiter.CooldownSeconds(user.ID)
		w.Header().Set("Retry-After", fmt.Sprintf("%d", cooldown))
		pkg.ErrorWithMessage(w, http.StatusTooManyRequests,
			fmt.Sprintf("too many checkout attempts, please try again in %s",
				ratelimit.FormatRetryMessage(cooldown)))
		return
	}

	order, created, err := h.orderService.CreateOrder(r.Context(), user.ID, &req)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	pkg.JSON(w, status, order)
}

// List godoc
// GET /api/orders?page=&per_page=
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	result, err := h.orderService.ListMine(r.Context(), user.ID, parsePage(r))
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, result)
}

// Get godoc
// GET /api/orders/{id}
// Başkasının siparişi 404 döner.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	order, err := h.orderService.Get(r.Context(), r.PathValue("id"), user.ID, user.IsAdmin())
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, order)
}

// Cancel godoc
// POST /api/orders/{id}/cancel
// Sadece pending veya paid sipariş iptal edilebilir; rezervasyon bırakılır.
func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	order, err := h.orderService.Cancel(r.Context(), r.PathValue("id"), user.ID)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, order)
}

// History godoc
// GET /api/orders/{id}/history
func (h *OrderHandler) History(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	history, err := h.orderService.History(r.Context(), r.PathValue("id"), user.ID, user.IsAdmin())
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, history)
}

// Pay godoc
// POST /api/orders/{id}/pay
// Body: { "method": "card", "token": "tok_...", "card_last4": "4242" }
//
// Reddedilen ödeme 402 döner, sipariş pending kalır ve tekrar denenebilir.
func (h *OrderHandler) Pay(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req models.PayRequest
	if err := pkg.DecodeJSON(r, &req); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	payment, err := h.paymentService.Pay(r.Context(), r.PathValue("id"), user.ID, &req)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	if payment.Status == models.PaymentStatusFailed {
		reason := "declined"
		if payment.FailureReason != nil {
			reason = *payment.FailureReason
		}
		pkg.ErrorWithMessage(w, http.StatusPaymentRequired, "payment declined: "+reason)
		return
	}

	pkg.JSON(w, http.StatusOK, payment)
}

// Payments godoc
// GET /api/orders/{id}/payments
func (h *OrderHandler) Payments(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	payments, err := h.paymentService.ListByOrder(r.Context(), r.PathValue("id"), user.ID, user.IsAdmin())
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, payments)
}

// Tracking godoc
// GET /api/orders/{id}/tracking
func (h *OrderHandler) Tracking(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	shipment, err := h.shippingService.GetTracking(r.Context(), r.PathValue("id"), user.ID, user.IsAdmin())
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, shipment)
}
