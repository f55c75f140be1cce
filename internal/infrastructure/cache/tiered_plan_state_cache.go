package cache

import (
	"context"
	"sync/atomic"

	"github.com/bizcore/backend/internal/application/planstate"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TieredPlanStateCache reads L1 (process memory) then L2 (Redis) and
// populates L1 on an L2 hit. Invalidations clear both tiers locally and
// are broadcast so other instances drop their L1 copy.
type TieredPlanStateCache struct {
	l1          *InMemoryPlanStateCache
	l2          *RedisPlanStateCache
	invalidator *RedisInvalidator
	logger      *zap.Logger

	l1Hits int64
	l2Hits int64
	misses int64
}

// NewTieredPlanStateCache combines the tiers. invalidator may be nil on a
// single instance.
func NewTieredPlanStateCache(l1 *InMemoryPlanStateCache, l2 *RedisPlanStateCache, invalidator *RedisInvalidator, logger *zap.Logger) *TieredPlanStateCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TieredPlanStateCache{l1: l1, l2: l2, invalidator: invalidator, logger: logger}
}

// StartInvalidationSubscription listens for other instances' invalidations.
// It blocks; run it in a goroutine.
func (c *TieredPlanStateCache) StartInvalidationSubscription(ctx context.Context) error {
	if c.invalidator == nil {
		return nil
	}
	return c.invalidator.Subscribe(ctx, func(m InvalidationMessage) {
		c.l1.Invalidate(ctx, m.TenantID)
		c.logger.Debug("Dropped L1 plan state on remote invalidation",
			zap.String("tenant_id", m.TenantID.String()))
	})
}

// Get tries L1 then L2
func (c *TieredPlanStateCache) Get(ctx context.Context, tenantID uuid.UUID) (*planstate.State, bool) {
	if st, ok := c.l1.Get(ctx, tenantID); ok {
		atomic.AddInt64(&c.l1Hits, 1)
		return st, true
	}
	if st, ok := c.l2.Get(ctx, tenantID); ok {
		atomic.AddInt64(&c.l2Hits, 1)
		c.l1.Set(ctx, tenantID, st)
		return st, true
	}
	atomic.AddInt64(&c.misses, 1)
	return nil, false
}

// Set writes both tiers
func (c *TieredPlanStateCache) Set(ctx context.Context, tenantID uuid.UUID, state *planstate.State) {
	c.l2.Set(ctx, tenantID, state)
	c.l1.Set(ctx, tenantID, state)
}

// Invalidate clears both tiers and notifies other instances
func (c *TieredPlanStateCache) Invalidate(ctx context.Context, tenantID uuid.UUID) {
	c.l2.Invalidate(ctx, tenantID)
	c.l1.Invalidate(ctx, tenantID)
	if c.invalidator != nil {
		if err := c.invalidator.Publish(ctx, tenantID); err != nil {
			c.logger.Warn("Failed to broadcast plan state invalidation",
				zap.String("tenant_id", tenantID.String()),
				zap.Error(err))
		}
	}
}

// Stats returns L1 hits, L2 hits and full misses
func (c *TieredPlanStateCache) Stats() (l1Hits, l2Hits, misses int64) {
	return atomic.LoadInt64(&c.l1Hits), atomic.LoadInt64(&c.l2Hits), atomic.LoadInt64(&c.misses)
}

// Close stops the subscription and the L1 cleanup loop
func (c *TieredPlanStateCache) Close() error {
	if c.invalidator != nil {
		_ = c.invalidator.Close()
	}
	return c.l1.Close()
}

var _ planstate.Cache = (*TieredPlanStateCache)(nil)
