// Package repository, veritabanı erişim katmanını tanımlar.
//
// Her aggregate için bir interface (xxx_repository.go) ve SQLite
// implementasyonu (sqlite_xxx.go) bulunur. Constructor'lar database.TxQuerier
// alır: normalde *sql.DB, transaction içinde *sql.Tx geçilir.
//
// Hata sözleşmesi: satır yoksa pkg.ErrNotFound, UNIQUE ihlali
// pkg.ErrAlreadyExists, koşullu UPDATE eşleşmezse pkg.ErrConflict.
package repository

import (
	"context"

	"github.com/akinalp/storefront/models"
)

// UserRepository, kullanıcı işlemleri.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context, page models.Page) ([]models.User, int, error)
	Update(ctx context.Context, user *models.User) error
	UpdatePassword(ctx context.Context, userID, passwordHash string) error
	Count(ctx context.Context) (int, error)
}
