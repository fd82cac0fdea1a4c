package nonce

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"studyhall/internal/config"
)

// ---------------------------------------------------------------------------
// Redis implementation
// ---------------------------------------------------------------------------

const redisKeyPrefix = "nonce:"

// RedisStore keeps nonces in Redis with native TTLs, so no janitor is
// needed and nonces survive a process restart.
type RedisStore struct {
	client *redis.Client
	logger *slog.Logger
}

func NewRedisStore(cfg *config.Config) *RedisStore {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	return &RedisStore{
		client: client,
		logger: slog.With("component", "RedisNonceStore"),
	}
}

func (r *RedisStore) Put(ctx context.Context, nonce string, ttl time.Duration) error {
	if ttl <= 0 {
		return errors.New("ttl must be > 0")
	}
	return r.client.Set(ctx, redisKeyPrefix+nonce, 1, ttl).Err()
}

func (r *RedisStore) Consume(ctx context.Context, nonce string) (bool, error) {
	// GETDEL is atomic, so two concurrent consumers cannot both succeed.
	err := r.client.GetDel(ctx, redisKeyPrefix+nonce).Err()
	if errors.Is(err, redis.Nil) {
		return false, &NonceMissingError{Nonce: nonce}
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *RedisStore) Exists(ctx context.Context, nonce string) bool {
	n, err := r.client.Exists(ctx, redisKeyPrefix+nonce).Result()
	if err != nil {
		r.logger.Error("Failed to check nonce existence", "error", err)
		return false
	}
	return n > 0
}

// ExpireNonces is a no-op. Redis evicts keys on its own TTL.
func (r *RedisStore) ExpireNonces(ctx context.Context) error {
	return nil
}

// Ping reports whether the redis backend is reachable. Health checks use it.
func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisStore) Close() {
	if err := r.client.Close(); err != nil {
		r.logger.Error("Failed to close redis client", "error", err)
	}
}
