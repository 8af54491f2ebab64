package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// Store, byte değerler için TTL'li key-value cache soyutlaması.
// Servisler concrete backend'e (memory veya Redis) değil bu interface'e bağımlıdır.
type Store interface {
	// Get, (value, true, nil) veya cache miss'te (nil, false, nil) döner.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// ─── In-memory ───

type memoryStore struct {
	c *TTLCache[string, []byte]
}

// NewMemoryStore, tek instance deploy'lar için TTLCache tabanlı Store.
func NewMemoryStore(ttl time.Duration) Store {
	cleanup := ttl / 2
	if cleanup <= 0 {
		cleanup = time.Minute
	}
	return &memoryStore{c: New[string, []byte](ttl, cleanup)}
}

func (s *memoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := s.c.Get(key)
	return v, ok, nil
}

func (s *memoryStore) Set(_ context.Context, key string, value []byte) error {
	s.c.Set(key, value)
	return nil
}

func (s *memoryStore) Delete(_ context.Context, key string) error {
	s.c.Delete(key)
	return nil
}

func (s *memoryStore) Close() error {
	s.c.Close()
	return nil
}

// ─── Redis ───

type redisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// RedisOptions, Redis bağlantı ayarları.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Prefix   string // Tüm key'lerin önüne eklenir (ör: "storefront:product:")
	TTL      time.Duration
}

// NewRedisStore, Redis'e bağlanır ve PING ile bağlantıyı doğrular.
// Birden fazla instance aynı katalog cache'ini paylaştığında kullanılır.
func NewRedisStore(ctx context.Context, opts RedisOptions) (Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", opts.Addr, err)
	}

	return &redisStore{client: client, prefix: opts.Prefix, ttl: opts.TTL}, nil
}

func (s *redisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	v, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return v, true, nil
}

func (s *redisStore) Set(ctx context.Context, key string, value []byte) error {
	if err := s.client.Set(ctx, s.prefix+key, value, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (s *redisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}

func (s *redisStore) Close() error {
	return s.client.Close()
}
