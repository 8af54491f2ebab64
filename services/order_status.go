package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/akinalp/storefront/database"
	"github.com/akinalp/storefront/events"
	"github.com/akinalp/storefront/models"
	"github.com/akinalp/storefront/pkg"
	"github.com/akinalp/storefront/pkg/logger"
	"github.com/akinalp/storefront/repository"
)

// orderStatusChanger, sipariş durum geçişlerinin tek giriş noktası.
// Order, payment, shipping ve maintenance aynı kuralları bunun üzerinden uygular:
//
//  1. Durum makinesi kontrolü (tanımsız geçiş → ErrConflict)
//  2. pending'den paid/processing → önce rezervasyon Commit; tutulmuyorsa ErrConflict
//  3. Optimistic UPDATE + history satırı, tek transaction
//  4. cancelled/refunded → Release (delivered'dan refund hariç)
//  5. order.status_changed event'i
type orderStatusChanger struct {
	db        *sql.DB
	inventory InventoryGateway
	publisher events.Publisher
}

type statusChange struct {
	to        models.OrderStatus
	note      string
	changedBy *string
	// inTx, geçişle aynı transaction'da yazılacak ek kayıtlar (ör. payment satırı).
	inTx func(tx *sql.Tx) error
}

func (c *orderStatusChanger) apply(ctx context.Context, order *models.Order, ch statusChange) error {
	from := order.Status
	if !from.CanTransitionTo(ch.to) {
		return fmt.Errorf("%w: order %s cannot move from %s to %s", pkg.ErrConflict, order.OrderNumber, from, ch.to)
	}

	committed, err := c.commitStock(ctx, order, from, ch.to)
	if err != nil {
		return err
	}

	err = database.WithTx(ctx, c.db, func(tx *sql.Tx) error {
		repo := repository.NewSQLiteOrderRepo(tx)
		if err := repo.UpdateStatus(ctx, order.ID, from, ch.to); err != nil {
			if errors.Is(err, pkg.ErrConflict) {
				return fmt.Errorf("%w: order %s was modified concurrently", pkg.ErrConflict, order.OrderNumber)
			}
			return err
		}
		if err := repo.AddStatusChange(ctx, &models.OrderStatusChange{
			OrderID:    order.ID,
			FromStatus: &from,
			ToStatus:   ch.to,
			Note:       ch.note,
			ChangedBy:  ch.changedBy,
		}); err != nil {
			return err
		}
		if ch.inTx != nil {
			return ch.inTx(tx)
		}
		return nil
	})
	if err != nil {
		if committed {
			c.undoCommit(ctx, order)
		}
		return err
	}

	order.Status = ch.to
	order.UpdatedAt = time.Now().UTC()

	logger.Info().
		Str("order_id", order.ID).
		Str("order_number", order.OrderNumber).
		Str("from", string(from)).
		Str("to", string(ch.to)).
		Msg("[order] status changed")

	c.releaseStock(ctx, order, from, ch.to)

	if c.publisher != nil {
		c.publisher.Publish(ctx, events.TopicOrderStatusChanged, events.OrderStatusChanged{
			OrderID:     order.ID,
			OrderNumber: order.OrderNumber,
			UserID:      order.UserID,
			From:        from,
			To:          ch.to,
			Note:        ch.note,
		})
	}
	return nil
}

func isStockCommit(from, to models.OrderStatus) bool {
	return from == models.OrderPending && (to == models.OrderPaid || to == models.OrderProcessing)
}

// commitStock, sipariş ödenmiş sayılmadan önce rezervasyonu kesinleştirir.
// Rezervasyon bırakılmışsa (süre dolumu) stok başka siparişe gitmiş olabilir:
// sipariş iptal edilir ve geçiş ErrConflict ile reddedilir.
func (c *orderStatusChanger) commitStock(ctx context.Context, order *models.Order, from, to models.OrderStatus) (bool, error) {
	if !isStockCommit(from, to) {
		return false, nil
	}

	err := c.inventory.Commit(ctx, order.OrderNumber)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, pkg.ErrConflict), errors.Is(err, pkg.ErrNotFound):
		logger.Warn().Err(err).
			Str("order_number", order.OrderNumber).
			Msg("[order] reservation no longer held, cancelling order")
		cancelErr := c.apply(ctx, order, statusChange{to: models.OrderCancelled, note: "reservation expired"})
		if cancelErr != nil && !errors.Is(cancelErr, pkg.ErrConflict) {
			logger.Error().Err(cancelErr).Str("order_number", order.OrderNumber).Msg("[order] failed to cancel order without reservation")
		}
		return false, fmt.Errorf("%w: stock reservation for order %s is no longer held", pkg.ErrConflict, order.OrderNumber)
	default:
		return false, fmt.Errorf("commit stock for order %s: %w", order.OrderNumber, err)
	}
}

// undoCommit, commit sonrası durum yazılamadıysa stoğu geri verir.
// Sipariş bu arada başka bir istekle ilerlediyse commit ona aittir ve dokunulmaz.
// Pending kalan siparişin rezervasyonu bırakıldığından sonraki ödeme denemesi
// siparişi iptal eder.
func (c *orderStatusChanger) undoCommit(ctx context.Context, order *models.Order) {
	current, err := repository.NewSQLiteOrderRepo(c.db).GetByID(ctx, order.ID)
	if err != nil {
		logger.Error().Err(err).Str("order_number", order.OrderNumber).Msg("[order] failed to reload order to undo stock commit")
		return
	}
	if current.Status != models.OrderPending {
		return
	}

	if err := c.inventory.Release(ctx, order.OrderNumber); err != nil && !errors.Is(err, pkg.ErrNotFound) {
		logger.Error().Err(err).
			Str("order_number", order.OrderNumber).
			Msg("[order] failed to undo stock commit after status update failure")
	}
}

// releaseStock, durum artık DB'de kalıcı olduğu için hata döndürmez; başarısız
// Release loglanır. Pending rezervasyonlar zaten süre dolunca bırakılır.
// Teslim edilmiş bir siparişin iadesinde mal depoya dönmediği için stok eklenmez.
func (c *orderStatusChanger) releaseStock(ctx context.Context, order *models.Order, from, to models.OrderStatus) {
	if to != models.OrderCancelled && to != models.OrderRefunded {
		return
	}
	if from == models.OrderDelivered {
		return
	}

	if err := c.inventory.Release(ctx, order.OrderNumber); err != nil && !errors.Is(err, pkg.ErrNotFound) {
		logger.Error().Err(err).
			Str("order_number", order.OrderNumber).
			Msg("[order] stock release after status change failed")
	}
}
