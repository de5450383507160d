package syncstate

import (
	"context"
	"fmt"
	"time"

	"github.com/channelsync/backend/internal/domain/integration"
	"github.com/redis/go-redis/v9"
)

// RedisStore persists per-flow sync cursors in Redis.
// This is suitable for distributed deployments where the scheduler and the
// webhook receiver run as separate instances but must share cursor state.
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// NewRedisStore creates a new Redis-backed sync state store
func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisStore{
		client:    client,
		keyPrefix: "sync:last_sync:",
	}, nil
}

// NewRedisStoreWithClient creates a store with an existing Redis client
// This is useful for testing or when sharing a client across components
func NewRedisStoreWithClient(client *redis.Client, keyPrefix string) *RedisStore {
	if keyPrefix == "" {
		keyPrefix = "sync:last_sync:"
	}
	return &RedisStore{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// LastSyncTime returns the stored cursor for a flow, or nil if the flow has
// never completed. Cursors are stored as RFC 3339 timestamps so they stay
// readable in redis-cli.
func (s *RedisStore) LastSyncTime(ctx context.Context, flow integration.Flow) (*time.Time, error) {
	key := s.keyPrefix + flow.String()

	val, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read sync cursor for %s: %w", flow, err)
	}

	t, err := time.Parse(time.RFC3339Nano, val)
	if err != nil {
		return nil, fmt.Errorf("malformed sync cursor for %s: %w", flow, err)
	}

	return &t, nil
}

// SetLastSyncTime advances the stored cursor for a flow. Cursors carry no
// TTL; they are the engine's durable state.
func (s *RedisStore) SetLastSyncTime(ctx context.Context, flow integration.Flow, t time.Time) error {
	key := s.keyPrefix + flow.String()

	if err := s.client.Set(ctx, key, t.UTC().Format(time.RFC3339Nano), 0).Err(); err != nil {
		return fmt.Errorf("failed to write sync cursor for %s: %w", flow, err)
	}

	return nil
}

// Close closes the Redis client
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// GetClient returns the underlying Redis client (for testing/monitoring)
func (s *RedisStore) GetClient() *redis.Client {
	return s.client
}

// Ensure RedisStore implements StateStore
var _ integration.StateStore = (*RedisStore)(nil)
