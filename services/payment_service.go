package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/akinalp/storefront/events"
	"github.com/akinalp/storefront/models"
	"github.com/akinalp/storefront/pkg"
	"github.com/akinalp/storefront/pkg/crypto"
	"github.com/akinalp/storefront/pkg/logger"
	"github.com/akinalp/storefront/repository"
)

// declinePrefix ile başlayan token simüle edilmiş red üretir (fail_insufficient_funds vb.).
const declinePrefix = "fail_"

// PaymentService, simüle edilmiş ödeme işlemcisi.
//
//	card/paypal başarılı → payment succeeded, order paid, rezervasyon commit
//	card/paypal fail_*   → payment failed, order pending kalır
//	cod                  → payment pending, order processing
type PaymentService interface {
	Pay(ctx context.Context, orderID, userID string, req *models.PayRequest) (*models.Payment, error)
	ListByOrder(ctx context.Context, orderID, userID string, isAdmin bool) ([]models.Payment, error)
	Refund(ctx context.Context, orderID, adminID string, req *models.RefundRequest) (*models.Order, error)
}

type paymentService struct {
	orderRepo   repository.OrderRepository
	paymentRepo repository.PaymentRepository
	sealer      *crypto.Sealer // nil ise provider_ref düz metin saklanır
	status      *orderStatusChanger
}

func NewPaymentService(
	db *sql.DB,
	orderRepo repository.OrderRepository,
	paymentRepo repository.PaymentRepository,
	inventory InventoryGateway,
	publisher events.Publisher,
	sealer *crypto.Sealer,
) PaymentService {
	return &paymentService{
		orderRepo:   orderRepo,
		paymentRepo: paymentRepo,
		sealer:      sealer,
		status:      &orderStatusChanger{db: db, inventory: inventory, publisher: publisher},
	}
}

func (s *paymentService) Pay(ctx context.Context, orderID, userID string, req *models.PayRequest) (*models.Payment, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", pkg.ErrBadRequest, err.Error())
	}

	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, pkg.ErrNotFound
	}
	if order.Status != models.OrderPending {
		return nil, fmt.Errorf("%w: order is %s, only pending orders can be paid", pkg.ErrConflict, order.Status)
	}

	providerRef := "sim_" + uuid.NewString()
	payment := &models.Payment{
		OrderID:     order.ID,
		Method:      req.Method,
		AmountCents: order.TotalCents,
		Currency:    order.Currency,
		ProviderRef: providerRef,
	}
	if req.CardLast4 != "" {
		payment.CardLast4 = &req.CardLast4
	}

	stored := *payment
	if stored.ProviderRef, err = s.seal(providerRef); err != nil {
		return nil, err
	}

	switch {
	case req.Method != models.PaymentCOD && strings.HasPrefix(req.Token, declinePrefix):
		reason := strings.TrimPrefix(req.Token, declinePrefix)
		if reason == "" {
			reason = "declined"
		}
		stored.Status = models.PaymentStatusFailed
		stored.FailureReason = &reason
		if err := s.paymentRepo.Create(ctx, &stored); err != nil {
			return nil, err
		}
		logger.Info().Str("order_id", order.ID).Str("reason", reason).Msg("[payment] payment declined")

	case req.Method == models.PaymentCOD:
		stored.Status = models.PaymentStatusPending
		err = s.status.apply(ctx, order, statusChange{
			to:        models.OrderProcessing,
			note:      "cash on delivery",
			changedBy: &userID,
			inTx: func(tx *sql.Tx) error {
				return repository.NewSQLitePaymentRepo(tx).Create(ctx, &stored)
			},
		})
		if err != nil {
			return nil, err
		}

	default:
		stored.Status = models.PaymentStatusSucceeded
		err = s.status.apply(ctx, order, statusChange{
			to:        models.OrderPaid,
			note:      "payment captured",
			changedBy: &userID,
			inTx: func(tx *sql.Tx) error {
				return repository.NewSQLitePaymentRepo(tx).Create(ctx, &stored)
			},
		})
		if err != nil {
			return nil, err
		}
		logger.Info().Str("order_id", order.ID).Int64("amount_cents", stored.AmountCents).Msg("[payment] payment captured")
	}

	// API'ye şifreli değil düz provider_ref döner
	stored.ProviderRef = providerRef
	return &stored, nil
}

func (s *paymentService) ListByOrder(ctx context.Context, orderID, userID string, isAdmin bool) ([]models.Payment, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !isAdmin && order.UserID != userID {
		return nil, pkg.ErrNotFound
	}

	payments, err := s.paymentRepo.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if payments == nil {
		payments = []models.Payment{}
	}
	for i := range payments {
		payments[i].ProviderRef = s.open(payments[i].ProviderRef)
	}
	return payments, nil
}

// Refund, paid veya delivered siparişi iade eder; yakalanmış ödeme refunded olur.
func (s *paymentService) Refund(ctx context.Context, orderID, adminID string, req *models.RefundRequest) (*models.Order, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", pkg.ErrBadRequest, err.Error())
	}

	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.Status.CanTransitionTo(models.OrderRefunded) {
		return nil, fmt.Errorf("%w: order is %s and cannot be refunded", pkg.ErrConflict, order.Status)
	}

	payment, err := s.paymentRepo.LatestSucceeded(ctx, order.ID)
	if errors.Is(err, pkg.ErrNotFound) {
		return nil, fmt.Errorf("%w: order has no captured payment", pkg.ErrConflict)
	}
	if err != nil {
		return nil, err
	}

	note := req.Reason
	if note == "" {
		note = "refunded"
	}
	err = s.status.apply(ctx, order, statusChange{
		to:        models.OrderRefunded,
		note:      note,
		changedBy: &adminID,
		inTx: func(tx *sql.Tx) error {
			return repository.NewSQLitePaymentRepo(tx).UpdateStatus(ctx, payment.ID,
				models.PaymentStatusSucceeded, models.PaymentStatusRefunded)
		},
	})
	if err != nil {
		return nil, err
	}

	logger.Info().Str("order_id", order.ID).Str("payment_id", payment.ID).Msg("[payment] payment refunded")
	return order, nil
}

func (s *paymentService) seal(ref string) (string, error) {
	if s.sealer == nil {
		return ref, nil
	}
	sealed, err := s.sealer.Seal(ref)
	if err != nil {
		return "", fmt.Errorf("failed to encrypt provider reference: %w", err)
	}
	return sealed, nil
}

// open, çözülemeyen değeri (anahtar sonradan eklenmişse düz metin) olduğu gibi döner.
func (s *paymentService) open(ref string) string {
	if s.sealer == nil {
		return ref
	}
	plain, err := s.sealer.Open(ref)
	if err != nil {
		logger.Debug().Err(err).Msg("[payment] provider reference is not sealed")
		return ref
	}
	return plain
}
