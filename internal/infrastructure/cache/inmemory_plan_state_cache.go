package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bizcore/backend/internal/application/planstate"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultPlanStateTTL    = 10 * time.Second
	defaultCleanupInterval = 30 * time.Second
)

type cacheEntry struct {
	state     *planstate.State
	expiresAt time.Time
}

// InMemoryPlanStateCache keeps plan states in process memory. It is the only
// tier when Redis is not configured and the L1 tier otherwise.
type InMemoryPlanStateCache struct {
	entries sync.Map // map[uuid.UUID]*cacheEntry
	ttl     time.Duration
	logger  *zap.Logger
	now     func() time.Time
	stopCh  chan struct{}
	stopped int32

	hits   int64
	misses int64
}

// InMemoryOption configures an InMemoryPlanStateCache
type InMemoryOption func(*InMemoryPlanStateCache)

// WithInMemoryTTL sets how long an entry is served
func WithInMemoryTTL(ttl time.Duration) InMemoryOption {
	return func(c *InMemoryPlanStateCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithInMemoryLogger sets the logger
func WithInMemoryLogger(logger *zap.Logger) InMemoryOption {
	return func(c *InMemoryPlanStateCache) {
		c.logger = logger
	}
}

// WithInMemoryClock overrides the time source
func WithInMemoryClock(now func() time.Time) InMemoryOption {
	return func(c *InMemoryPlanStateCache) {
		c.now = now
	}
}

// NewInMemoryPlanStateCache creates the cache and starts its cleanup loop.
// Call Close to stop it.
func NewInMemoryPlanStateCache(opts ...InMemoryOption) *InMemoryPlanStateCache {
	c := &InMemoryPlanStateCache{
		ttl:    defaultPlanStateTTL,
		logger: zap.NewNop(),
		now:    time.Now,
		stopCh: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	go c.cleanupExpired()
	return c
}

// Get returns a deep copy of the cached state while it is fresh
func (c *InMemoryPlanStateCache) Get(_ context.Context, tenantID uuid.UUID) (*planstate.State, bool) {
	if value, ok := c.entries.Load(tenantID); ok {
		entry := value.(*cacheEntry)
		if c.now().Before(entry.expiresAt) {
			atomic.AddInt64(&c.hits, 1)
			return entry.state.Clone(), true
		}
		c.entries.Delete(tenantID)
	}
	atomic.AddInt64(&c.misses, 1)
	return nil, false
}

// Set stores a deep copy of state for the configured TTL
func (c *InMemoryPlanStateCache) Set(_ context.Context, tenantID uuid.UUID, state *planstate.State) {
	if state == nil {
		return
	}
	c.entries.Store(tenantID, &cacheEntry{state: state.Clone(), expiresAt: c.now().Add(c.ttl)})
}

// Invalidate drops the tenant's entry
func (c *InMemoryPlanStateCache) Invalidate(_ context.Context, tenantID uuid.UUID) {
	c.entries.Delete(tenantID)
}

// Stats returns hit and miss counts
func (c *InMemoryPlanStateCache) Stats() (hits, misses int64) {
	return atomic.LoadInt64(&c.hits), atomic.LoadInt64(&c.misses)
}

// Len counts stored entries, expired ones included until the next cleanup
func (c *InMemoryPlanStateCache) Len() int {
	n := 0
	c.entries.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Close stops the cleanup loop
func (c *InMemoryPlanStateCache) Close() error {
	if atomic.CompareAndSwapInt32(&c.stopped, 0, 1) {
		close(c.stopCh)
	}
	return nil
}

func (c *InMemoryPlanStateCache) cleanupExpired() {
	ticker := time.NewTicker(defaultCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.doCleanup()
		}
	}
}

func (c *InMemoryPlanStateCache) doCleanup() {
	removed := 0
	now := c.now()
	c.entries.Range(func(key, value any) bool {
		if !now.Before(value.(*cacheEntry).expiresAt) {
			c.entries.Delete(key)
			removed++
		}
		return true
	})
	if removed > 0 {
		c.logger.Debug("Cleaned up expired plan states", zap.Int("removed", removed))
	}
}

var _ planstate.Cache = (*InMemoryPlanStateCache)(nil)
