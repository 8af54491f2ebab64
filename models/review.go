package models

import (
	"strings"
	"time"

	"github.com/akinalp/storefront/pkg/validation"
)

// Review, bir ürün için kullanıcı yorumu. Kullanıcı başına ürün başına tek yorum.
type Review struct {
	ID        string    `json:"id"`
	ProductID string    `json:"product_id"`
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	Rating    int       `json:"rating"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type CreateReviewRequest struct {
	Rating int    `json:"rating" validate:"gte=1,lte=5"`
	Title  string `json:"title" validate:"max=120"`
	Body   string `json:"body" validate:"max=2000"`
}

func (r *CreateReviewRequest) Validate() error {
	r.Title = strings.TrimSpace(r.Title)
	r.Body = strings.TrimSpace(r.Body)
	return validation.Struct(r)
}

type UpdateReviewRequest struct {
	Rating *int    `json:"rating" validate:"omitnil,gte=1,lte=5"`
	Title  *string `json:"title" validate:"omitnil,max=120"`
	Body   *string `json:"body" validate:"omitnil,max=2000"`
}

func (r *UpdateReviewRequest) Validate() error {
	if r.Title != nil {
		v := strings.TrimSpace(*r.Title)
		r.Title = &v
	}
	if r.Body != nil {
		v := strings.TrimSpace(*r.Body)
		r.Body = &v
	}
	return validation.Struct(r)
}

// RatingSummary, ürün rating_avg / rating_count kolonlarının kaynağı.
type RatingSummary struct {
	Average float64 `json:"average"`
	Count   int     `json:"count"`
}
