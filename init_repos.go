// Package main: Repository katmanı başlatma.
//
// initRepositories, tüm repository implementasyonlarını oluşturur.
// Her repository aynı *sql.DB bağlantısını alır ve interface döner.
package main

import (
	"database/sql"

	"github.com/akinalp/storefront/repository"
)

// Repositories, tüm repository instance'larını tutan container struct.
type Repositories struct {
	User       repository.UserRepository
	Session    repository.SessionRepository
	ResetToken repository.PasswordResetRepository
	Product    repository.ProductRepository
	Inventory  repository.InventoryRepository
	Cart       repository.CartRepository
	Order      repository.OrderRepository
	Payment    repository.PaymentRepository
	Shipment   repository.ShipmentRepository
	Review     repository.ReviewRepository
}

// initRepositories, veritabanı bağlantısından tüm repository'leri oluşturur.
// sql.DB thread-safe bir connection pool'dur, paylaşılması güvenlidir.
func initRepositories(conn *sql.DB) *Repositories {
	return &Repositories{
		User:       repository.NewSQLiteUserRepo(conn),
		Session:    repository.NewSQLiteSessionRepo(conn),
		ResetToken: repository.NewSQLiteResetTokenRepo(conn),
		Product:    repository.NewSQLiteProductRepo(conn),
		Inventory:  repository.NewSQLiteInventoryRepo(conn),
		Cart:       repository.NewSQLiteCartRepo(conn),
		Order:      repository.NewSQLiteOrderRepo(conn),
		Payment:    repository.NewSQLitePaymentRepo(conn),
		Shipment:   repository.NewSQLiteShipmentRepo(conn),
		Review:     repository.NewSQLiteReviewRepo(conn),
	}
}
