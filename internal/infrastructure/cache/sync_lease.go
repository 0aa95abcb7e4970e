// Package cache holds short-lived coordination state shared by scheduler
// instances.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/jiaaaaa1/cozy-commerce/internal/infrastructure/config"
	"go.uber.org/zap"
)

// SyncLease keeps two scheduler instances from enqueueing the same store at
// the same time. It is advisory; the store's conditional sync transition is
// what actually guarantees a single running pass.
type SyncLease interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
	Close() error
}

// NewSyncLease returns a Redis lease when Redis is enabled and reachable,
// and an in-memory lease otherwise. With requireRedis set an unreachable
// Redis is an error instead of a fallback.
func NewSyncLease(cfg config.RedisConfig, requireRedis bool, logger *zap.Logger) (SyncLease, error) {
	if !cfg.Enabled {
		logger.Info("Redis disabled, using in-memory sync lease")
		return NewInMemorySyncLease(), nil
	}

	lease, err := NewRedisSyncLease(RedisConfig{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err == nil {
		logger.Info("Using Redis sync lease", zap.String("addr", cfg.Addr()))
		return lease, nil
	}

	if requireRedis {
		return nil, fmt.Errorf("redis required for sync lease but unavailable: %w", err)
	}

	logger.Warn("Redis unavailable, falling back to in-memory sync lease. "+
		"Scheduler instances will not coordinate.",
		zap.Error(err),
	)
	return NewInMemorySyncLease(), nil
}
