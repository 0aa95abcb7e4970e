package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const defaultLeasePrefix = "sync:lease:"

// releaseScript deletes the key only while it still holds our token, so an
// expired lease that another instance re-acquired is left alone
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisSyncLease implements SyncLease with Redis SET NX PX.
// It is suitable for deployments where several instances run the scheduler.
type RedisSyncLease struct {
	client    *redis.Client
	keyPrefix string
	token     string
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisSyncLease connects to Redis and verifies the connection
func NewRedisSyncLease(cfg RedisConfig) (*RedisSyncLease, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisSyncLeaseWithClient(client, defaultLeasePrefix), nil
}

// NewRedisSyncLeaseWithClient creates a lease on an existing client
func NewRedisSyncLeaseWithClient(client *redis.Client, keyPrefix string) *RedisSyncLease {
	if keyPrefix == "" {
		keyPrefix = defaultLeasePrefix
	}
	return &RedisSyncLease{
		client:    client,
		keyPrefix: keyPrefix,
		token:     uuid.NewString(),
	}
}

// Acquire takes the lease for key for ttl. Returns false when another holder
// has it.
func (l *RedisSyncLease) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := l.client.SetNX(ctx, l.keyPrefix+key, l.token, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire sync lease: %w", err)
	}
	return ok, nil
}

// Release gives the lease back if this instance still holds it
func (l *RedisSyncLease) Release(ctx context.Context, key string) error {
	if err := releaseScript.Run(ctx, l.client, []string{l.keyPrefix + key}, l.token).Err(); err != nil {
		return fmt.Errorf("failed to release sync lease: %w", err)
	}
	return nil
}

// Close closes the Redis client
func (l *RedisSyncLease) Close() error {
	return l.client.Close()
}

var _ SyncLease = (*RedisSyncLease)(nil)
