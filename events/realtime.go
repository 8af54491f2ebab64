package events

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/akinalp/storefront/ws"
)

// Realtime, domain event'lerini WebSocket event'lerine çevirir.
//
//	order.created        → order_create    (sahip + admin'ler)
//	order.status_changed → order_update    (sahip + admin'ler)
//	shipment.updated     → shipment_update (sahip + admin'ler)
//	inventory.updated    → inventory_update (herkes; ürün sayfaları stok gösterir)
//	inventory.low_stock  → low_stock       (admin'ler)
type Realtime struct {
	hub ws.EventPublisher
}

func NewRealtime(hub ws.EventPublisher) *Realtime {
	return &Realtime{hub: hub}
}

// Register, tüm topic'lere subscriber'ları bağlar.
func (r *Realtime) Register(ctx context.Context, bus *Bus) error {
	subs := map[string]HandlerFunc{
		TopicOrderCreated:       r.onOrderCreated,
		TopicOrderStatusChanged: r.onOrderStatusChanged,
		TopicShipmentUpdated:    r.onShipmentUpdated,
		TopicInventoryUpdated:   r.onInventoryUpdated,
		TopicLowStock:           r.onLowStock,
	}
	for topic, handler := range subs {
		if err := bus.Subscribe(ctx, topic, "realtime", handler); err != nil {
			return err
		}
	}
	return nil
}

func (r *Realtime) onOrderCreated(_ context.Context, msg *message.Message) error {
	ev, err := Decode[OrderCreated](msg)
	if err != nil {
		return err
	}
	r.hub.BroadcastToUserAndAdmins(ev.Order.UserID, ws.Event{Op: ws.OpOrderCreate, Data: ev.Order})
	return nil
}

func (r *Realtime) onOrderStatusChanged(_ context.Context, msg *message.Message) error {
	ev, err := Decode[OrderStatusChanged](msg)
	if err != nil {
		return err
	}
	r.hub.BroadcastToUserAndAdmins(ev.UserID, ws.Event{Op: ws.OpOrderUpdate, Data: ev})
	return nil
}

func (r *Realtime) onShipmentUpdated(_ context.Context, msg *message.Message) error {
	ev, err := Decode[ShipmentUpdated](msg)
	if err != nil {
		return err
	}
	r.hub.BroadcastToUserAndAdmins(ev.UserID, ws.Event{Op: ws.OpShipmentUpdate, Data: ev})
	return nil
}

func (r *Realtime) onInventoryUpdated(_ context.Context, msg *message.Message) error {
	ev, err := Decode[InventoryUpdated](msg)
	if err != nil {
		return err
	}
	r.hub.BroadcastToAll(ws.Event{Op: ws.OpInventoryUpdate, Data: ev.Items})
	return nil
}

func (r *Realtime) onLowStock(_ context.Context, msg *message.Message) error {
	ev, err := Decode[LowStock](msg)
	if err != nil {
		return err
	}
	r.hub.BroadcastToAdmins(ws.Event{Op: ws.OpLowStock, Data: ev.Inventory})
	return nil
}
