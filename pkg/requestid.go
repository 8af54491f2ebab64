package pkg

import "context"

// RequestIDHeader, istekler ve servisler arası çağrılar boyunca taşınan
// korelasyon ID'sinin header adı.
const RequestIDHeader = "X-Request-ID"

type requestIDKey struct{}

// WithRequestID, context'e request ID ekler.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFrom, context'teki request ID'yi döner (yoksa boş string).
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
