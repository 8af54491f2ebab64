package models

// DashboardStats, admin dashboard özet kartları.
type DashboardStats struct {
	TotalUsers     int                 `json:"total_users"`
	TotalProducts  int                 `json:"total_products"`
	ActiveProducts int                 `json:"active_products"`
	OrdersByStatus map[OrderStatus]int `json:"orders_by_status"`
	RevenueCents   int64               `json:"revenue_cents"`
	LowStockCount  int                 `json:"low_stock_count"`
}

// RevenueStatuses, gelir toplamına dahil edilen durumlar (ödemesi alınmış siparişler).
var RevenueStatuses = []OrderStatus{OrderPaid, OrderProcessing, OrderShipped, OrderDelivered}
