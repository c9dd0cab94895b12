package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/flowmatic/promptcache-go/pkg/promptcache"
)

// RedisConfig contains configuration for the Redis store.
type RedisConfig struct {
	// Addr is the Redis server address (host:port).
	Addr string

	// Password is the Redis password (optional).
	Password string

	// DB is the Redis database number.
	DB int

	// KeyPrefix namespaces the placement keys. Defaults to "promptcache".
	KeyPrefix string

	// TTL expires conversation state. Zero means DefaultTTL.
	TTL time.Duration
}

// RedisStore is a PlacementStore backed by Redis, for deployments where
// multiple instances handle calls for the same conversations. Entries
// expire via Redis TTL, refreshed on every read and write.
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

// NewRedisStore creates a Redis-backed store and verifies connectivity.
func NewRedisStore(ctx context.Context, config RedisConfig) (*RedisStore, error) {
	if config.Addr == "" {
		return nil, fmt.Errorf("redis address is required")
	}
	if config.KeyPrefix == "" {
		config.KeyPrefix = "promptcache"
	}
	if config.TTL <= 0 {
		config.TTL = DefaultTTL
	}

	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisStore{
		client:    client,
		keyPrefix: config.KeyPrefix,
		ttl:       config.TTL,
	}, nil
}

// Get returns the placements for a conversation, refreshing its TTL.
func (s *RedisStore) Get(ctx context.Context, conversationID string) ([]promptcache.CachePointPlacement, bool, error) {
	data, err := s.client.Get(ctx, s.key(conversationID)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read placements: %w", err)
	}

	var placements []promptcache.CachePointPlacement
	if err := json.Unmarshal(data, &placements); err != nil {
		return nil, false, fmt.Errorf("failed to decode placements: %w", err)
	}
	s.client.Expire(ctx, s.key(conversationID), s.ttl)
	return placements, true, nil
}

// Put records the placements for a conversation.
func (s *RedisStore) Put(ctx context.Context, conversationID string, placements []promptcache.CachePointPlacement) error {
	data, err := json.Marshal(placements)
	if err != nil {
		return fmt.Errorf("failed to encode placements: %w", err)
	}
	if err := s.client.Set(ctx, s.key(conversationID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write placements: %w", err)
	}
	return nil
}

// Delete removes a conversation's placements.
func (s *RedisStore) Delete(ctx context.Context, conversationID string) error {
	if err := s.client.Del(ctx, s.key(conversationID)).Err(); err != nil {
		return fmt.Errorf("failed to delete placements: %w", err)
	}
	return nil
}

// Name returns the backend name.
func (s *RedisStore) Name() string {
	return "redis"
}

// Close releases the underlying Redis client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) key(conversationID string) string {
	return s.keyPrefix + ":" + conversationID
}
