package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/akinalp/storefront/database"
	"github.com/akinalp/storefront/events"
	"github.com/akinalp/storefront/models"
	"github.com/akinalp/storefront/pkg"
	"github.com/akinalp/storefront/pkg/logger"
	"github.com/akinalp/storefront/repository"
)

// ShippingService, kargo oluşturma ve takip.
type ShippingService interface {
	// CreateShipment: sipariş paid veya processing olmalı; sipariş shipped olur.
	CreateShipment(ctx context.Context, orderID, adminID string, req *models.CreateShipmentRequest) (*models.Shipment, error)
	// UpdateShipment, takip adımı ekler; delivered siparişi de delivered yapar.
	UpdateShipment(ctx context.Context, orderID, adminID string, req *models.UpdateShipmentRequest) (*models.Shipment, error)
	GetTracking(ctx context.Context, orderID, userID string, isAdmin bool) (*models.Shipment, error)
}

type shippingService struct {
	db           *sql.DB
	orderRepo    repository.OrderRepository
	shipmentRepo repository.ShipmentRepository
	publisher    events.Publisher
	status       *orderStatusChanger
}

func NewShippingService(
	db *sql.DB,
	orderRepo repository.OrderRepository,
	shipmentRepo repository.ShipmentRepository,
	inventory InventoryGateway,
	publisher events.Publisher,
) ShippingService {
	return &shippingService{
		db:           db,
		orderRepo:    orderRepo,
		shipmentRepo: shipmentRepo,
		publisher:    publisher,
		status:       &orderStatusChanger{db: db, inventory: inventory, publisher: publisher},
	}
}

func (s *shippingService) CreateShipment(ctx context.Context, orderID, adminID string, req *models.CreateShipmentRequest) (*models.Shipment, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", pkg.ErrBadRequest, err.Error())
	}

	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != models.OrderPaid && order.Status != models.OrderProcessing {
		return nil, fmt.Errorf("%w: order is %s, only paid or processing orders can be shipped", pkg.ErrConflict, order.Status)
	}

	shipment := &models.Shipment{
		OrderID:        order.ID,
		Carrier:        req.Carrier,
		TrackingNumber: newTrackingNumber(req.Carrier),
		Status:         models.ShipmentLabelCreated,
	}

	err = s.status.apply(ctx, order, statusChange{
		to:        models.OrderShipped,
		note:      req.Carrier + " " + shipment.TrackingNumber,
		changedBy: &adminID,
		inTx: func(tx *sql.Tx) error {
			repo := repository.NewSQLiteShipmentRepo(tx)
			if err := repo.Create(ctx, shipment); err != nil {
				return err
			}
			return repo.AddEvent(ctx, &models.TrackingEvent{
				ShipmentID: shipment.ID,
				Status:     models.ShipmentLabelCreated,
				Note:       "shipping label created",
			})
		},
	})
	if err != nil {
		return nil, err
	}

	logger.Info().
		Str("order_id", order.ID).
		Str("tracking_number", shipment.TrackingNumber).
		Msg("[shipping] shipment created")

	return s.reloadAndPublish(ctx, order, shipment.ID, "")
}

func (s *shippingService) UpdateShipment(ctx context.Context, orderID, adminID string, req *models.UpdateShipmentRequest) (*models.Shipment, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", pkg.ErrBadRequest, err.Error())
	}

	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	shipment, err := s.shipmentRepo.GetByOrderID(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	if !shipment.Status.CanAdvanceTo(req.Status) {
		return nil, fmt.Errorf("%w: shipment cannot move from %s to %s", pkg.ErrConflict, shipment.Status, req.Status)
	}

	writeStep := func(tx *sql.Tx) error {
		repo := repository.NewSQLiteShipmentRepo(tx)
		if err := repo.UpdateStatus(ctx, shipment.ID, req.Status); err != nil {
			return err
		}
		return repo.AddEvent(ctx, &models.TrackingEvent{
			ShipmentID: shipment.ID,
			Status:     req.Status,
			Location:   req.Location,
			Note:       req.Note,
		})
	}

	if req.Status == models.ShipmentDelivered {
		err = s.status.apply(ctx, order, statusChange{
			to:        models.OrderDelivered,
			note:      "delivered",
			changedBy: &adminID,
			inTx: func(tx *sql.Tx) error {
				if err := writeStep(tx); err != nil {
					return err
				}
				return settleCashOnDelivery(ctx, tx, order.ID)
			},
		})
	} else {
		err = database.WithTx(ctx, s.db, writeStep)
	}
	if err != nil {
		return nil, err
	}

	logger.Info().
		Str("order_id", order.ID).
		Str("status", string(req.Status)).
		Str("location", req.Location).
		Msg("[shipping] tracking updated")

	return s.reloadAndPublish(ctx, order, shipment.ID, req.Location)
}

func (s *shippingService) GetTracking(ctx context.Context, orderID, userID string, isAdmin bool) (*models.Shipment, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !isAdmin && order.UserID != userID {
		return nil, pkg.ErrNotFound
	}
	return s.shipmentRepo.GetByOrderID(ctx, order.ID)
}

func (s *shippingService) reloadAndPublish(ctx context.Context, order *models.Order, shipmentID, location string) (*models.Shipment, error) {
	shipment, err := s.shipmentRepo.GetByID(ctx, shipmentID)
	if err != nil {
		return nil, err
	}
	if s.publisher != nil {
		s.publisher.Publish(ctx, events.TopicShipmentUpdated, events.ShipmentUpdated{
			OrderID:     order.ID,
			OrderNumber: order.OrderNumber,
			UserID:      order.UserID,
			Shipment:    *shipment,
			Location:    location,
		})
	}
	return shipment, nil
}

// settleCashOnDelivery, teslimatta kapıda ödemeyi tahsil edilmiş sayar.
func settleCashOnDelivery(ctx context.Context, tx *sql.Tx, orderID string) error {
	repo := repository.NewSQLitePaymentRepo(tx)
	payments, err := repo.ListByOrder(ctx, orderID)
	if err != nil {
		return err
	}
	for _, p := range payments {
		if p.Method == models.PaymentCOD && p.Status == models.PaymentStatusPending {
			if err := repo.UpdateStatus(ctx, p.ID, models.PaymentStatusPending, models.PaymentStatusSucceeded); err != nil {
				return err
			}
		}
	}
	return nil
}

// newTrackingNumber: carrier'ın ilk 3 harfi + 12 hex karakter, ör. UPS3F9A0C12B7E4
func newTrackingNumber(carrier string) string {
	prefix := strings.ToUpper(strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			return r
		}
		return -1
	}, carrier))
	if len(prefix) > 3 {
		prefix = prefix[:3]
	}
	if prefix == "" {
		prefix = "TRK"
	}
	return prefix + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:12])
}
