// Package main: Event bus subscriber wire-up.
//
// registerEventSubscribers, domain event'lerini dinleyen tüketicileri bus'a bağlar.
//
// Service'ler sadece events.Publisher'ı bilir; kimin dinlediğini bilmez.
// WebSocket push ve email bildirimleri burada (main package'da) bağlanır,
// böylece ws ve email paketleri service katmanına bağımlı olmaz.
package main

import (
	"context"
	"fmt"

	"github.com/akinalp/storefront/events"
	"github.com/akinalp/storefront/pkg/email"
	"github.com/akinalp/storefront/pkg/logger"
	"github.com/akinalp/storefront/repository"
	"github.com/akinalp/storefront/ws"
)

// registerEventSubscribers, tüm event tüketicilerini register eder.
//
// - hub: sipariş/ödeme/kargo/stok event'lerini ilgili kullanıcılara push eder
// - emailSender: nil değilse sipariş onayı ve kargo email'leri gönderilir
// - userRepo: email alıcısını çözmek için
func registerEventSubscribers(
	ctx context.Context,
	bus *events.Bus,
	hub *ws.Hub,
	emailSender email.EmailSender,
	userRepo repository.UserRepository,
) error {
	// ─── Realtime ───
	if err := events.NewRealtime(hub).Register(ctx, bus); err != nil {
		return fmt.Errorf("register realtime subscribers: %w", err)
	}

	// ─── Email bildirimleri ───
	if emailSender == nil {
		logger.Info().Msg("[events] email notifications disabled")
		return nil
	}
	if err := events.NewNotifier(emailSender, userRepo).Register(ctx, bus); err != nil {
		return fmt.Errorf("register email notifier: %w", err)
	}
	return nil
}
