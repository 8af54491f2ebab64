package events

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/akinalp/storefront/models"
	"github.com/akinalp/storefront/pkg/email"
)

// UserLookup, alıcının email ve dil bilgisini okumak için.
// repository.UserRepository bunu karşılar.
type UserLookup interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}

// Notifier, sipariş onayı ve kargo güncellemesi email'lerini gönderir.
// Email gönderimi request akışının dışında olduğu için yavaş veya hatalı
// Resend yanıtı checkout'u etkilemez.
type Notifier struct {
	sender email.EmailSender
	users  UserLookup
}

func NewNotifier(sender email.EmailSender, users UserLookup) *Notifier {
	return &Notifier{sender: sender, users: users}
}

// Register, email gerektiren topic'lere abone olur.
func (n *Notifier) Register(ctx context.Context, bus *Bus) error {
	if err := bus.Subscribe(ctx, TopicOrderCreated, "notifier", n.onOrderCreated); err != nil {
		return err
	}
	return bus.Subscribe(ctx, TopicShipmentUpdated, "notifier", n.onShipmentUpdated)
}

func (n *Notifier) onOrderCreated(ctx context.Context, msg *message.Message) error {
	ev, err := Decode[OrderCreated](msg)
	if err != nil {
		return err
	}

	user, err := n.users.GetByID(ctx, ev.Order.UserID)
	if err != nil {
		return fmt.Errorf("failed to load order owner: %w", err)
	}

	o := ev.Order
	lines := make([]email.OrderLine, 0, len(o.Items))
	for _, item := range o.Items {
		lines = append(lines, email.OrderLine{Name: item.Name, Quantity: item.Quantity, LineTotalCents: item.LineTotalCents})
	}

	return n.sender.SendOrderConfirmation(ctx, email.OrderConfirmation{
		ToEmail:       user.Email,
		Lang:          user.Language,
		Username:      user.Name(),
		OrderNumber:   o.OrderNumber,
		Currency:      o.Currency,
		Lines:         lines,
		SubtotalCents: o.SubtotalCents,
		TaxCents:      o.TaxCents,
		ShippingCents: o.ShippingCents,
		TotalCents:    o.TotalCents,
	})
}

func (n *Notifier) onShipmentUpdated(ctx context.Context, msg *message.Message) error {
	ev, err := Decode[ShipmentUpdated](msg)
	if err != nil {
		return err
	}

	user, err := n.users.GetByID(ctx, ev.UserID)
	if err != nil {
		return fmt.Errorf("failed to load shipment recipient: %w", err)
	}

	return n.sender.SendShipmentUpdate(ctx, email.ShipmentUpdate{
		ToEmail:        user.Email,
		Lang:           user.Language,
		OrderNumber:    ev.OrderNumber,
		Carrier:        ev.Shipment.Carrier,
		TrackingNumber: ev.Shipment.TrackingNumber,
		Status:         string(ev.Shipment.Status),
		Location:       ev.Location,
	})
}
