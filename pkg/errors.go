// Package pkg, projede paylaşılan utility'leri barındırır.
// Bu dosya domain-level error tanımlarını içerir.
//
// Service katmanı bu error'ları fmt.Errorf("%w: ...") ile sarmalayarak döner,
// handler katmanı errors.Is ile yakalayıp HTTP status code'a çevirir:
//
//	if errors.Is(err, pkg.ErrNotFound) { ... }
package pkg

import "errors"

// Domain-level error'lar.
var (
	ErrNotFound      = errors.New("not found")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrForbidden     = errors.New("forbidden")
	ErrAlreadyExists = errors.New("already exists")
	ErrBadRequest    = errors.New("bad request")
	// ErrConflict, kaynağın mevcut durumu isteğe izin vermediğinde döner:
	// yetersiz stok, geçersiz sipariş durum geçişi vb.
	ErrConflict = errors.New("conflict")
	// ErrUnavailable, upstream servis erişilemez olduğunda (circuit açık,
	// retry'lar tükendi) döner.
	ErrUnavailable = errors.New("service unavailable")
	ErrInternal    = errors.New("internal error")
)
