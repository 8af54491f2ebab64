package handlers

import (
	"net/http"

	"github.com/akinalp/storefront/models"
	"github.com/akinalp/storefront/pkg"
	"github.com/akinalp/storefront/services"
)

// AdminHandler, admin dashboard endpoint'leri. AuthMiddleware + AdminMiddleware arkasında çalışır.
type AdminHandler struct {
	adminService    services.AdminService
	orderService    services.OrderService
	paymentService  services.PaymentService
	shippingService services.ShippingService
}

func NewAdminHandler(
	adminService services.AdminService,
	orderService services.OrderService,
	paymentService services.PaymentService,
	shippingService services.ShippingService,
) *AdminHandler {
	return &AdminHandler{
		adminService:    adminService,
		orderService:    orderService,
		paymentService:  paymentService,
		shippingService: shippingService,
	}
}

// Stats: GET /api/admin/stats
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.adminService.Stats(r.Context())
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, stats)
}

// ListUsers: GET /api/admin/users?page=&per_page=
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.adminService.ListUsers(r.Context(), parsePage(r))
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, users)
}

// ListOrders: GET /api/admin/orders?status=&user_id=&page=&per_page=
func (h *AdminHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := models.OrderFilter{
		Status: models.OrderStatus(q.Get("status")),
		UserID: q.Get("user_id"),
		Page:   parsePage(r),
	}
	if filter.Status != "" && !filter.Status.Valid() {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "unknown order status")
		return
	}

	orders, err := h.orderService.AdminList(r.Context(), filter)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, orders)
}

// UpdateOrderStatus: PATCH /api/admin/orders/{id}/status
// Body: { "status": "processing", "note": "..." }
// Tanımsız geçişler 409 döner.
func (h *AdminHandler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	admin, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req models.UpdateOrderStatusRequest
	if err := pkg.DecodeJSON(r, &req); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	order, err := h.orderService.AdminUpdateStatus(r.Context(), r.PathValue("id"), admin.ID, &req)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, order)
}

// CreateShipment: POST /api/admin/orders/{id}/shipment
// Body: { "carrier": "UPS" }
func (h *AdminHandler) CreateShipment(w http.ResponseWriter, r *http.Request) {
	admin, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req models.CreateShipmentRequest
	if err := pkg.DecodeJSON(r, &req); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	shipment, err := h.shippingService.CreateShipment(r.Context(), r.PathValue("id"), admin.ID, &req)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusCreated, shipment)
}

// UpdateShipment: PATCH /api/admin/orders/{id}/shipment
// Body: { "status": "in_transit", "location": "...", "note": "..." }
func (h *AdminHandler) UpdateShipment(w http.ResponseWriter, r *http.Request) {
	admin, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req models.UpdateShipmentRequest
	if err := pkg.DecodeJSON(r, &req); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	shipment, err := h.shippingService.UpdateShipment(r.Context(), r.PathValue("id"), admin.ID, &req)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, shipment)
}

// Refund: POST /api/admin/orders/{id}/refund
// Body: { "reason": "..." }
func (h *AdminHandler) Refund(w http.ResponseWriter, r *http.Request) {
	admin, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req models.RefundRequest
	if err := pkg.DecodeJSON(r, &req); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	order, err := h.paymentService.Refund(r.Context(), r.PathValue("id"), admin.ID, &req)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, order)
}
