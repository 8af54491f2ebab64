package services

import (
	"context"
	"errors"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/akinalp/storefront/pkg"
	"github.com/akinalp/storefront/pkg/logger"
	"github.com/akinalp/storefront/repository"
)

const (
	authCleanupSpec       = "@every 10m"
	reservationSweepSpec  = "@every 5m"
	reservationSweepLimit = 200
	jobTimeout            = time.Minute
)

// Maintenance, periyodik temizlik job'ları:
//   - süresi dolmuş oturum ve şifre sıfırlama token'larının silinmesi
//   - süresi dolmuş stok rezervasyonlarının bırakılması ve pending siparişlerin iptali
//
// Split modda stok başka bir instance'ta tutulur; yerel inventory boş olduğu
// için pending siparişler ayrıca yaşlarına göre (reservationTTL) iptal edilir.
type Maintenance struct {
	cron           *cron.Cron
	sessionRepo    repository.SessionRepository
	resetRepo      repository.PasswordResetRepository
	inventory      InventoryService
	orders         OrderService
	reservationTTL time.Duration
	now            func() time.Time
}

func NewMaintenance(
	sessionRepo repository.SessionRepository,
	resetRepo repository.PasswordResetRepository,
	inventory InventoryService,
	orders OrderService,
	reservationTTL time.Duration,
) *Maintenance {
	cl := cronLogger{}
	return &Maintenance{
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		sessionRepo:    sessionRepo,
		resetRepo:      resetRepo,
		inventory:      inventory,
		orders:         orders,
		reservationTTL: reservationTTL,
		now:            time.Now,
	}
}

// Start, job'ları kaydeder ve scheduler'ı arka planda başlatır.
func (m *Maintenance) Start() error {
	if _, err := m.cron.AddFunc(authCleanupSpec, m.runJob(m.CleanupAuth)); err != nil {
		return err
	}
	if _, err := m.cron.AddFunc(reservationSweepSpec, m.runJob(m.SweepReservations)); err != nil {
		return err
	}
	m.cron.Start()
	logger.Info().Msg("[maintenance] scheduler started")
	return nil
}

// Stop, yeni tetiklemeleri durdurur ve çalışan job'ların bitmesini bekler.
func (m *Maintenance) Stop(ctx context.Context) {
	select {
	case <-m.cron.Stop().Done():
	case <-ctx.Done():
		logger.Warn().Msg("[maintenance] stop timed out with running jobs")
	}
}

func (m *Maintenance) runJob(job func(ctx context.Context)) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()
		job(ctx)
	}
}

// CleanupAuth, süresi dolmuş oturumları ve reset token'larını siler.
func (m *Maintenance) CleanupAuth(ctx context.Context) {
	now := m.now()

	sessions, err := m.sessionRepo.DeleteExpired(ctx, now)
	if err != nil {
		logger.Error().Err(err).Msg("[maintenance] failed to delete expired sessions")
	}
	tokens, err := m.resetRepo.DeleteExpired(ctx, now)
	if err != nil {
		logger.Error().Err(err).Msg("[maintenance] failed to delete expired reset tokens")
	}

	if sessions > 0 || tokens > 0 {
		logger.Info().Int64("sessions", sessions).Int64("reset_tokens", tokens).Msg("[maintenance] expired auth records removed")
	}
}

// SweepReservations, süresi dolmuş rezervasyonları bırakır ve ait oldukları
// pending siparişleri iptal eder. Rezervasyon key'i sipariş numarasıdır.
// Ardından rezervasyon süresinden eski pending siparişler de iptal edilir.
func (m *Maintenance) SweepReservations(ctx context.Context) {
	keys, err := m.inventory.ReleaseExpired(ctx, reservationSweepLimit)
	if err != nil {
		logger.Error().Err(err).Msg("[maintenance] failed to release expired reservations")
	}

	for _, key := range keys {
		m.cancelStale(ctx, key)
	}
	if len(keys) > 0 {
		logger.Info().Int("released", len(keys)).Msg("[maintenance] expired reservations released")
	}

	m.sweepStaleOrders(ctx)
}

func (m *Maintenance) sweepStaleOrders(ctx context.Context) {
	if m.reservationTTL <= 0 {
		return
	}

	numbers, err := m.orders.StalePending(ctx, m.now().Add(-m.reservationTTL), reservationSweepLimit)
	if err != nil {
		logger.Error().Err(err).Msg("[maintenance] failed to list stale pending orders")
		return
	}
	for _, number := range numbers {
		m.cancelStale(ctx, number)
	}
	if len(numbers) > 0 {
		logger.Info().Int("cancelled", len(numbers)).Msg("[maintenance] stale pending orders cancelled")
	}
}

func (m *Maintenance) cancelStale(ctx context.Context, orderNumber string) {
	err := m.orders.CancelStale(ctx, orderNumber)
	if errors.Is(err, pkg.ErrNotFound) {
		// Sipariş başka bir instance'ta tutuluyor
		logger.Debug().Str("order_number", orderNumber).Msg("[maintenance] no local order for released reservation")
		return
	}
	if err != nil {
		logger.Warn().Err(err).Str("order_number", orderNumber).Msg("[maintenance] failed to cancel stale order")
	}
}

// cronLogger, cron'un iç loglarını zerolog'a yönlendirir.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	logger.Debug().Fields(keysAndValues).Msg("[maintenance] " + msg)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	logger.Error().Err(err).Fields(keysAndValues).Msg("[maintenance] " + msg)
}
