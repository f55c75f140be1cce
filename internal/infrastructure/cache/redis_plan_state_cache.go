package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/bizcore/backend/internal/application/planstate"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const defaultPlanStateKeyPrefix = "plan_state:"

// RedisPlanStateCache shares plan states between instances. Redis failures
// degrade to cache misses; they never fail the request.
type RedisPlanStateCache struct {
	client    redis.UniversalClient
	keyPrefix string
	ttl       time.Duration
	logger    *zap.Logger
}

// RedisOption configures a RedisPlanStateCache
type RedisOption func(*RedisPlanStateCache)

// WithRedisTTL sets the key expiry
func WithRedisTTL(ttl time.Duration) RedisOption {
	return func(c *RedisPlanStateCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithRedisLogger sets the logger
func WithRedisLogger(logger *zap.Logger) RedisOption {
	return func(c *RedisPlanStateCache) {
		c.logger = logger
	}
}

// WithKeyPrefix namespaces the keys
func WithKeyPrefix(prefix string) RedisOption {
	return func(c *RedisPlanStateCache) {
		if prefix != "" {
			c.keyPrefix = prefix
		}
	}
}

// NewRedisPlanStateCache wraps an existing client. The caller owns the client.
func NewRedisPlanStateCache(client redis.UniversalClient, opts ...RedisOption) *RedisPlanStateCache {
	c := &RedisPlanStateCache{
		client:    client,
		keyPrefix: defaultPlanStateKeyPrefix,
		ttl:       defaultPlanStateTTL,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *RedisPlanStateCache) key(tenantID uuid.UUID) string {
	return c.keyPrefix + tenantID.String()
}

// Get reads and decodes the tenant's state
func (c *RedisPlanStateCache) Get(ctx context.Context, tenantID uuid.UUID) (*planstate.State, bool) {
	key := c.key(tenantID)
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		c.logger.Warn("Failed to read plan state from Redis",
			zap.String("tenant_id", tenantID.String()),
			zap.Error(err))
		return nil, false
	}

	var st planstate.State
	if err := json.Unmarshal(data, &st); err != nil {
		c.logger.Error("Corrupted plan state in Redis",
			zap.String("tenant_id", tenantID.String()),
			zap.Error(err))
		_ = c.client.Del(ctx, key).Err()
		return nil, false
	}
	return &st, true
}

// Set encodes the state with the configured expiry
func (c *RedisPlanStateCache) Set(ctx context.Context, tenantID uuid.UUID, state *planstate.State) {
	if state == nil {
		return
	}
	data, err := json.Marshal(state)
	if err != nil {
		c.logger.Error("Failed to encode plan state", zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, c.key(tenantID), data, c.ttl).Err(); err != nil {
		c.logger.Warn("Failed to write plan state to Redis",
			zap.String("tenant_id", tenantID.String()),
			zap.Error(err))
	}
}

// Invalidate deletes the tenant's key
func (c *RedisPlanStateCache) Invalidate(ctx context.Context, tenantID uuid.UUID) {
	if err := c.client.Del(ctx, c.key(tenantID)).Err(); err != nil {
		c.logger.Warn("Failed to invalidate plan state in Redis",
			zap.String("tenant_id", tenantID.String()),
			zap.Error(err))
	}
}

var _ planstate.Cache = (*RedisPlanStateCache)(nil)
