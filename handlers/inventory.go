package handlers

import (
	"net/http"

	"github.com/akinalp/storefront/models"
	"github.com/akinalp/storefront/pkg"
	"github.com/akinalp/storefront/services"
)

// InventoryHandler, stok endpoint'leri. check/reserve/release/commit iç
// endpoint'lerdir (ServiceKeyMiddleware); sipariş servisi uzaktaysa bunları çağırır.
type InventoryHandler struct {
	inventoryService services.InventoryService
}

func NewInventoryHandler(inventoryService services.InventoryService) *InventoryHandler {
	return &InventoryHandler{inventoryService: inventoryService}
}

// Get godoc
// GET /api/inventory/{productId}
func (h *InventoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	inv, err := h.inventoryService.Get(r.Context(), r.PathValue("productId"))
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, inv)
}

// Check godoc
// POST /api/inventory/check
// Body: { "items": [ { "product_id": "...", "quantity": 2 } ] }
func (h *InventoryHandler) Check(w http.ResponseWriter, r *http.Request) {
	var req models.StockCheckRequest
	if !decodeValid(w, r, &req) {
		return
	}

	result, err := h.inventoryService.Check(r.Context(), req.Items)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, result)
}

// Reserve godoc
// POST /api/inventory/reserve
// Body: { "reservation_key": "ORD-...", "items": [...] }
//
// Aynı key ile tekrar gelen istek mevcut rezervasyonu döner.
func (h *InventoryHandler) Reserve(w http.ResponseWriter, r *http.Request) {
	var req models.ReserveRequest
	if !decodeValid(w, r, &req) {
		return
	}

	reservation, err := h.inventoryService.Reserve(r.Context(), req.ReservationKey, req.Items)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, reservation)
}

// Release godoc
// POST /api/inventory/release
func (h *InventoryHandler) Release(w http.ResponseWriter, r *http.Request) {
	var req models.ReservationKeyRequest
	if !decodeValid(w, r, &req) {
		return
	}

	if err := h.inventoryService.Release(r.Context(), req.ReservationKey); err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, map[string]string{"message": "reservation released"})
}

// Commit godoc
// POST /api/inventory/commit
func (h *InventoryHandler) Commit(w http.ResponseWriter, r *http.Request) {
	var req models.ReservationKeyRequest
	if !decodeValid(w, r, &req) {
		return
	}

	if err := h.inventoryService.Commit(r.Context(), req.ReservationKey); err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, map[string]string{"message": "reservation committed"})
}

// Adjust godoc
// PATCH /api/inventory/{productId} (admin)
// Body: { "set": 20 } veya { "delta": -3 }, opsiyonel "low_stock_threshold"
func (h *InventoryHandler) Adjust(w http.ResponseWriter, r *http.Request) {
	var req models.AdjustStockRequest
	if err := pkg.DecodeJSON(r, &req); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	inv, err := h.inventoryService.Adjust(r.Context(), r.PathValue("productId"), &req)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, inv)
}

// LowStock godoc
// GET /api/inventory/low-stock (admin)
func (h *InventoryHandler) LowStock(w http.ResponseWriter, r *http.Request) {
	items, err := h.inventoryService.ListLow(r.Context())
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, items)
}

type validatable interface {
	Validate() error
}

// decodeValid, body'yi parse edip Validate çağırır. İç endpoint'lerin
// service method'ları primitive parametre aldığı için doğrulama burada yapılır.
func decodeValid(w http.ResponseWriter, r *http.Request, req validatable) bool {
	if err := pkg.DecodeJSON(r, req); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	if err := req.Validate(); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}
