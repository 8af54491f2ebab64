package services

import (
	"context"

	"github.com/akinalp/storefront/models"
	"github.com/akinalp/storefront/repository"
)

// AdminService, dashboard özetleri ve kullanıcı listesi.
type AdminService interface {
	Stats(ctx context.Context) (*models.DashboardStats, error)
	ListUsers(ctx context.Context, page models.Page) (*models.PagedResult[models.User], error)
}

type adminService struct {
	userRepo      repository.UserRepository
	productRepo   repository.ProductRepository
	orderRepo     repository.OrderRepository
	inventoryRepo repository.InventoryRepository
}

func NewAdminService(
	userRepo repository.UserRepository,
	productRepo repository.ProductRepository,
	orderRepo repository.OrderRepository,
	inventoryRepo repository.InventoryRepository,
) AdminService {
	return &adminService{
		userRepo:      userRepo,
		productRepo:   productRepo,
		orderRepo:     orderRepo,
		inventoryRepo: inventoryRepo,
	}
}

func (s *adminService) Stats(ctx context.Context) (*models.DashboardStats, error) {
	users, err := s.userRepo.Count(ctx)
	if err != nil {
		return nil, err
	}
	products, active, err := s.productRepo.Count(ctx)
	if err != nil {
		return nil, err
	}
	byStatus, err := s.orderRepo.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	revenue, err := s.orderRepo.SumTotals(ctx, models.RevenueStatuses)
	if err != nil {
		return nil, err
	}
	lowStock, err := s.inventoryRepo.CountLow(ctx)
	if err != nil {
		return nil, err
	}

	// Dashboard kartları sıfır olsa bile her durumu gösterir
	orders := make(map[models.OrderStatus]int, 7)
	for _, st := range []models.OrderStatus{
		models.OrderPending, models.OrderPaid, models.OrderProcessing, models.OrderShipped,
		models.OrderDelivered, models.OrderCancelled, models.OrderRefunded,
	} {
		orders[st] = byStatus[st]
	}

	return &models.DashboardStats{
		TotalUsers:     users,
		TotalProducts:  products,
		ActiveProducts: active,
		OrdersByStatus: orders,
		RevenueCents:   revenue,
		LowStockCount:  lowStock,
	}, nil
}

func (s *adminService) ListUsers(ctx context.Context, page models.Page) (*models.PagedResult[models.User], error) {
	page.Normalize()
	users, total, err := s.userRepo.List(ctx, page)
	if err != nil {
		return nil, err
	}
	result := models.NewPagedResult(users, total, page)
	return &result, nil
}
