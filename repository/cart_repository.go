package repository

import (
	"context"

	"github.com/akinalp/storefront/models"
)

// CartRepository, kullanıcı başına tek sepet. Satırlar (user_id, product_id) ile tekildir.
type CartRepository interface {
	// Items, ürün bilgisi join edilmiş satırları eklenme sırasıyla döner.
	Items(ctx context.Context, userID string) ([]models.CartItem, error)
	// AddItem, satır varsa miktarı toplar; toplam 99'u aşarsa pkg.ErrBadRequest.
	AddItem(ctx context.Context, userID, productID string, qty int) error
	SetQuantity(ctx context.Context, userID, productID string, qty int) error
	RemoveItem(ctx context.Context, userID, productID string) error
	Clear(ctx context.Context, userID string) error
}
