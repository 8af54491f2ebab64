package models

const (
	DefaultPerPage = 20
	MaxPerPage     = 100
)

// Page, liste endpoint'lerinin sayfalama parametreleri.
type Page struct {
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
}

// Normalize, geçersiz değerleri varsayılana çeker ve üst sınırı uygular.
func (p *Page) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PerPage < 1 {
		p.PerPage = DefaultPerPage
	}
	if p.PerPage > MaxPerPage {
		p.PerPage = MaxPerPage
	}
}

// Offset, SQL OFFSET değeri. Normalize sonrası çağrılmalı.
func (p Page) Offset() int {
	return (p.Page - 1) * p.PerPage
}

// PagedResult, sayfalanmış liste yanıtı.
type PagedResult[T any] struct {
	Items   []T `json:"items"`
	Total   int `json:"total"`
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
}

// NewPagedResult, nil slice'ı boş slice'a çevirir (JSON'da null yerine []).
func NewPagedResult[T any](items []T, total int, p Page) PagedResult[T] {
	if items == nil {
		items = []T{}
	}
	return PagedResult[T]{Items: items, Total: total, Page: p.Page, PerPage: p.PerPage}
}
