package models

import (
	"strings"
	"time"

	"github.com/akinalp/storefront/pkg/validation"
)

// Product, katalogdaki bir ürün. Fiyat her zaman minor unit (cent).
// Silme soft'tur: IsActive=false olan ürünler müşterilere listelenmez
// ve sepete/siparişe eklenemez.
type Product struct {
	ID          string    `json:"id"`
	SKU         string    `json:"sku"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	PriceCents  int64     `json:"price_cents"`
	Currency    string    `json:"currency"`
	Category    string    `json:"category"`
	ImageURL    *string   `json:"image_url"`
	IsActive    bool      `json:"is_active"`
	RatingAvg   float64   `json:"rating_avg"`
	RatingCount int       `json:"rating_count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ProductSort, liste sıralama seçenekleri.
type ProductSort string

const (
	SortNewest    ProductSort = "newest"
	SortPriceAsc  ProductSort = "price_asc"
	SortPriceDesc ProductSort = "price_desc"
	SortRating    ProductSort = "rating"
)

// ProductFilter, GET /api/products query parametreleri.
type ProductFilter struct {
	Category      string
	Search        string
	MinPriceCents int64
	MaxPriceCents int64
	IncludeHidden bool // sadece admin: is_active=false ürünleri de getir
	Sort          ProductSort
	Page
}

// Normalize, bilinmeyen sort değerini newest'a çeker.
func (f *ProductFilter) Normalize() {
	f.Page.Normalize()
	f.Search = strings.TrimSpace(f.Search)
	f.Category = strings.TrimSpace(f.Category)
	switch f.Sort {
	case SortPriceAsc, SortPriceDesc, SortRating:
	default:
		f.Sort = SortNewest
	}
}

// CreateProductRequest, admin ürün oluşturma isteği. InitialStock verilirse
// inventory satırı aynı transaction'da açılır.
type CreateProductRequest struct {
	SKU               string `json:"sku" validate:"required,max=64"`
	Name              string `json:"name" validate:"required,max=200"`
	Description       string `json:"description" validate:"max=5000"`
	PriceCents        int64  `json:"price_cents" validate:"gt=0"`
	Currency          string `json:"currency" validate:"omitempty,len=3"`
	Category          string `json:"category" validate:"max=64"`
	InitialStock      int    `json:"initial_stock" validate:"gte=0"`
	LowStockThreshold *int   `json:"low_stock_threshold" validate:"omitnil,gte=0"`
}

func (r *CreateProductRequest) Validate() error {
	r.SKU = strings.ToUpper(strings.TrimSpace(r.SKU))
	r.Name = strings.TrimSpace(r.Name)
	r.Category = strings.ToLower(strings.TrimSpace(r.Category))
	r.Currency = strings.ToUpper(strings.TrimSpace(r.Currency))
	return validation.Struct(r)
}

// UpdateProductRequest, partial update. nil alanlar değişmez.
type UpdateProductRequest struct {
	Name        *string `json:"name" validate:"omitnil,min=1,max=200"`
	Description *string `json:"description" validate:"omitnil,max=5000"`
	PriceCents  *int64  `json:"price_cents" validate:"omitnil,gt=0"`
	Category    *string `json:"category" validate:"omitnil,max=64"`
	IsActive    *bool   `json:"is_active"`
}

func (r *UpdateProductRequest) Validate() error {
	if r.Name != nil {
		v := strings.TrimSpace(*r.Name)
		r.Name = &v
	}
	if r.Category != nil {
		v := strings.ToLower(strings.TrimSpace(*r.Category))
		r.Category = &v
	}
	return validation.Struct(r)
}

// Apply, dolu alanları ürüne yazar.
func (r *UpdateProductRequest) Apply(p *Product) {
	if r.Name != nil {
		p.Name = *r.Name
	}
	if r.Description != nil {
		p.Description = *r.Description
	}
	if r.PriceCents != nil {
		p.PriceCents = *r.PriceCents
	}
	if r.Category != nil {
		p.Category = *r.Category
	}
	if r.IsActive != nil {
		p.IsActive = *r.IsActive
	}
}
