package handlers

import (
	"net/http"

	"github.com/akinalp/storefront/models"
	"github.com/akinalp/storefront/pkg"
	"github.com/akinalp/storefront/services"
)

// CartHandler, oturum sahibinin sepeti. Her endpoint güncel sepeti döner.
type CartHandler struct {
	cartService services.CartService
}

func NewCartHandler(cartService services.CartService) *CartHandler {
	return &CartHandler{cartService: cartService}
}

// Get godoc
// GET /api/cart
func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	cart, err := h.cartService.Get(r.Context(), user.ID)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, cart)
}

// AddItem godoc
// POST /api/cart/items
// Body: { "product_id": "...", "quantity": 1 }
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req models.AddCartItemRequest
	if err := pkg.DecodeJSON(r, &req); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	cart, err := h.cartService.AddItem(r.Context(), user.ID, &req)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, cart)
}

// UpdateItem godoc
// PATCH /api/cart/items/{productId}
// Body: { "quantity": 3 } (0 satırı siler)
func (h *CartHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req models.UpdateCartItemRequest
	if err := pkg.DecodeJSON(r, &req); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	cart, err := h.cartService.UpdateItem(r.Context(), user.ID, r.PathValue("productId"), &req)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, cart)
}

// RemoveItem godoc
// DELETE /api/cart/items/{productId}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	cart, err := h.cartService.RemoveItem(r.Context(), user.ID, r.PathValue("productId"))
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, cart)
}

// Clear godoc
// DELETE /api/cart
func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	if err := h.cartService.Clear(r.Context(), user.ID); err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, map[string]string{"message": "cart cleared"})
}
