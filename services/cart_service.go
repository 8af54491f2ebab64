package services

import (
	"context"
	"fmt"

	"github.com/akinalp/storefront/models"
	"github.com/akinalp/storefront/pkg"
	"github.com/akinalp/storefront/repository"
)

// maxLineQuantity, sepet ve sipariş satırı başına üst sınır.
const maxLineQuantity = 99

// CartService, kullanıcı sepeti işlemleri.
type CartService interface {
	Get(ctx context.Context, userID string) (*models.Cart, error)
	AddItem(ctx context.Context, userID string, req *models.AddCartItemRequest) (*models.Cart, error)
	// UpdateItem: quantity 0 satırı siler.
	UpdateItem(ctx context.Context, userID, productID string, req *models.UpdateCartItemRequest) (*models.Cart, error)
	RemoveItem(ctx context.Context, userID, productID string) (*models.Cart, error)
	Clear(ctx context.Context, userID string) error
}

type cartService struct {
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
	currency    string
}

func NewCartService(
	cartRepo repository.CartRepository,
	productRepo repository.ProductRepository,
	currency string,
) CartService {
	return &cartService{
		cartRepo:    cartRepo,
		productRepo: productRepo,
		currency:    currency,
	}
}

func (s *cartService) Get(ctx context.Context, userID string) (*models.Cart, error) {
	items, err := s.cartRepo.Items(ctx, userID)
	if err != nil {
		return nil, err
	}

	cart := &models.Cart{
		UserID:   userID,
		Items:    items,
		Currency: s.currency,
	}
	if cart.Items == nil {
		cart.Items = []models.CartItem{}
	}
	for _, item := range items {
		cart.ItemCount += item.Quantity
		cart.SubtotalCents += item.LineTotalCents
	}
	return cart, nil
}

func (s *cartService) AddItem(ctx context.Context, userID string, req *models.AddCartItemRequest) (*models.Cart, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", pkg.ErrBadRequest, err.Error())
	}

	product, err := s.productRepo.GetByID(ctx, req.ProductID)
	if err != nil {
		return nil, err
	}
	if !product.IsActive {
		return nil, fmt.Errorf("%w: product %s is not available", pkg.ErrBadRequest, product.SKU)
	}

	if err := s.cartRepo.AddItem(ctx, userID, req.ProductID, req.Quantity); err != nil {
		return nil, err
	}
	return s.Get(ctx, userID)
}

func (s *cartService) UpdateItem(ctx context.Context, userID, productID string, req *models.UpdateCartItemRequest) (*models.Cart, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", pkg.ErrBadRequest, err.Error())
	}

	if req.Quantity == 0 {
		return s.RemoveItem(ctx, userID, productID)
	}

	if err := s.cartRepo.SetQuantity(ctx, userID, productID, req.Quantity); err != nil {
		return nil, err
	}
	return s.Get(ctx, userID)
}

func (s *cartService) RemoveItem(ctx context.Context, userID, productID string) (*models.Cart, error) {
	if err := s.cartRepo.RemoveItem(ctx, userID, productID); err != nil {
		return nil, err
	}
	return s.Get(ctx, userID)
}

func (s *cartService) Clear(ctx context.Context, userID string) error {
	return s.cartRepo.Clear(ctx, userID)
}
