package cache

import (
	"context"
	"io"

	"github.com/bizcore/backend/internal/application/planstate"
	"github.com/bizcore/backend/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// PlanStateCache is a planstate.Cache that owns background resources
type PlanStateCache interface {
	planstate.Cache
	io.Closer
}

// NewPlanStateCache builds the tiered cache when a Redis client is given and
// the in-memory cache otherwise. The subscription goroutine runs until ctx
// is cancelled or the cache is closed.
func NewPlanStateCache(ctx context.Context, client redis.UniversalClient, cfg config.PlanStateConfig, logger *zap.Logger) PlanStateCache {
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = defaultPlanStateTTL
	}
	l1 := NewInMemoryPlanStateCache(WithInMemoryTTL(ttl), WithInMemoryLogger(logger))
	if client == nil {
		logger.Info("Plan state cache: in-memory only", zap.Duration("ttl", ttl))
		return l1
	}

	l2 := NewRedisPlanStateCache(client, WithRedisTTL(ttl), WithRedisLogger(logger))
	inv := NewRedisInvalidator(client, WithInvalidatorLogger(logger))
	tiered := NewTieredPlanStateCache(l1, l2, inv, logger)
	go func() {
		if err := tiered.StartInvalidationSubscription(ctx); err != nil && ctx.Err() == nil {
			logger.Warn("Plan state invalidation subscription ended", zap.Error(err))
		}
	}()
	logger.Info("Plan state cache: tiered", zap.Duration("ttl", ttl))
	return tiered
}
