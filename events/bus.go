// Package events, domain event'lerinin uygulama içi dağıtımını sağlar.
//
// Service'ler bir iş tamamlandığında (sipariş oluştu, kargo güncellendi)
// Publisher.Publish çağırır ve hemen döner. Email gönderimi ve WebSocket
// broadcast gibi yan etkiler subscriber'larda, request akışının dışında çalışır.
//
// Altyapı Watermill gochannel pub/sub'ıdır: broker gerektirmez, mesajlar
// process içinde kalır. Payload'lar JSON olarak taşınır.
package events

import (
	"context"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/akinalp/storefront/pkg"
	"github.com/akinalp/storefront/pkg/logger"
	"github.com/akinalp/storefront/pkg/metrics"
)

// Publisher, service katmanının event yayınlamak için bağımlı olduğu interface.
// Publish hata dönmez: event kaybı iş akışını geri almaz, sadece loglanır.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any)
}

// HandlerFunc, tek bir mesajı işler. Dönen hata loglanır; mesaj yine de ack'lenir.
type HandlerFunc func(ctx context.Context, msg *message.Message) error

// Bus, gochannel üzerinde Publisher + subscribe yönetimi.
type Bus struct {
	pubsub *gochannel.GoChannel
	wg     sync.WaitGroup
}

// NewBus, yeni bir in-process event bus oluşturur.
func NewBus() *Bus {
	return &Bus{
		pubsub: gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer: 256,
		}, newWatermillLogger()),
	}
}

// Publish, payload'u JSON'a çevirip topic'e yayınlar.
// Request ID metadata olarak taşınır; subscriber logları aynı isteğe bağlanabilir.
func (b *Bus) Publish(ctx context.Context, topic string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		logger.Error().Err(err).Str("topic", topic).Msg("[events] failed to encode payload")
		return
	}

	msg := message.NewMessage(uuid.NewString(), data)
	if rid := pkg.RequestIDFrom(ctx); rid != "" {
		msg.Metadata.Set("request_id", rid)
	}

	if err := b.pubsub.Publish(topic, msg); err != nil {
		logger.Error().Err(err).Str("topic", topic).Msg("[events] publish failed")
		return
	}
	metrics.EventsPublished.WithLabelValues(topic).Inc()
}

// Subscribe, topic için bir consumer goroutine'i başlatır. ctx iptal
// edildiğinde veya bus kapatıldığında goroutine sonlanır.
func (b *Bus) Subscribe(ctx context.Context, topic, name string, handler HandlerFunc) error {
	messages, err := b.pubsub.Subscribe(ctx, topic)
	if err != nil {
		return fmt.Errorf("failed to subscribe %s to %s: %w", name, topic, err)
	}

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		for msg := range messages {
			b.handle(topic, name, handler, msg)
		}
	}()
	return nil
}

func (b *Bus) handle(topic, name string, handler HandlerFunc, msg *message.Message) {
	// Nack gochannel'da anında redelivery demek; başarısız handler sonsuz döngüye girmesin
	defer msg.Ack()

	defer func() {
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Str("topic", topic).Str("subscriber", name).
				Msg("[events] subscriber panicked")
		}
	}()

	ctx := context.Background()
	if rid := msg.Metadata.Get("request_id"); rid != "" {
		ctx = pkg.WithRequestID(ctx, rid)
	}

	if err := handler(ctx, msg); err != nil {
		logger.Warn().Err(err).
			Str("topic", topic).
			Str("subscriber", name).
			Str("message_id", msg.UUID).
			Msg("[events] subscriber failed")
	}
}

// Close, pub/sub'ı kapatır ve consumer goroutine'lerinin bitmesini bekler.
func (b *Bus) Close() error {
	err := b.pubsub.Close()
	b.wg.Wait()
	return err
}

// Decode, mesaj payload'unu T'ye çözer.
func Decode[T any](msg *message.Message) (T, error) {
	var v T
	if err := json.Unmarshal(msg.Payload, &v); err != nil {
		return v, fmt.Errorf("failed to decode event payload: %w", err)
	}
	return v, nil
}

// watermillLogger, Watermill'in iç loglarını zerolog'a yönlendirir.
type watermillLogger struct {
	fields watermill.LogFields
}

func newWatermillLogger() watermill.LoggerAdapter {
	return &watermillLogger{}
}

func (l *watermillLogger) Error(msg string, err error, fields watermill.LogFields) {
	logger.Error().Err(err).Fields(l.merge(fields)).Msg("[watermill] " + msg)
}

func (l *watermillLogger) Info(msg string, fields watermill.LogFields) {
	logger.Debug().Fields(l.merge(fields)).Msg("[watermill] " + msg)
}

func (l *watermillLogger) Debug(msg string, fields watermill.LogFields) {
	logger.Debug().Fields(l.merge(fields)).Msg("[watermill] " + msg)
}

// Trace, gochannel her mesaj için trace atar; gürültü olmasın diye yutulur.
func (l *watermillLogger) Trace(string, watermill.LogFields) {}

func (l *watermillLogger) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return &watermillLogger{fields: l.fields.Add(fields)}
}

func (l *watermillLogger) merge(fields watermill.LogFields) map[string]any {
	return map[string]any(l.fields.Add(fields))
}
