package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	defaultInvalidationChannel = "plan_state:invalidate"
	defaultCloseTimeout        = 5 * time.Second
)

// InvalidationMessage tells other instances to drop a tenant's L1 entry
type InvalidationMessage struct {
	TenantID  uuid.UUID `json:"tenant_id"`
	Origin    string    `json:"origin"`
	Timestamp int64     `json:"timestamp"`
}

// RedisInvalidator broadcasts plan-state invalidations over Redis Pub/Sub
type RedisInvalidator struct {
	client   redis.UniversalClient
	channel  string
	origin   string
	logger   *zap.Logger
	cancelFn context.CancelFunc
	doneCh   chan struct{}
	doneOnce sync.Once
	mu       sync.Mutex
	running  bool
}

// InvalidatorOption configures a RedisInvalidator
type InvalidatorOption func(*RedisInvalidator)

// WithInvalidatorChannel sets the Pub/Sub channel
func WithInvalidatorChannel(channel string) InvalidatorOption {
	return func(i *RedisInvalidator) {
		i.channel = channel
	}
}

// WithInvalidatorLogger sets the logger
func WithInvalidatorLogger(logger *zap.Logger) InvalidatorOption {
	return func(i *RedisInvalidator) {
		i.logger = logger
	}
}

// NewRedisInvalidator creates an invalidator on an existing client. Each
// instance gets a random origin so it can skip its own messages.
func NewRedisInvalidator(client redis.UniversalClient, opts ...InvalidatorOption) *RedisInvalidator {
	i := &RedisInvalidator{
		client:  client,
		channel: defaultInvalidationChannel,
		origin:  uuid.NewString(),
		logger:  zap.NewNop(),
		doneCh:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Publish announces that tenantID's plan state changed
func (i *RedisInvalidator) Publish(ctx context.Context, tenantID uuid.UUID) error {
	data, err := json.Marshal(InvalidationMessage{
		TenantID:  tenantID,
		Origin:    i.origin,
		Timestamp: time.Now().UnixNano(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal invalidation: %w", err)
	}
	if err := i.client.Publish(ctx, i.channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish invalidation: %w", err)
	}
	return nil
}

// Subscribe blocks delivering messages from other instances to callback
// until ctx is cancelled or Close is called.
func (i *RedisInvalidator) Subscribe(ctx context.Context, callback func(InvalidationMessage)) error {
	i.mu.Lock()
	if i.running {
		i.mu.Unlock()
		return fmt.Errorf("subscription already running")
	}
	i.running = true
	subCtx, cancel := context.WithCancel(ctx)
	i.cancelFn = cancel
	i.mu.Unlock()

	defer func() {
		i.mu.Lock()
		i.running = false
		i.mu.Unlock()
		i.doneOnce.Do(func() { close(i.doneCh) })
	}()

	pubsub := i.client.Subscribe(subCtx, i.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(subCtx); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", i.channel, err)
	}
	i.logger.Info("Subscribed to plan state invalidations", zap.String("channel", i.channel))

	ch := pubsub.Channel()
	for {
		select {
		case <-subCtx.Done():
			return subCtx.Err()
		case msg, ok := <-ch:
			if !ok {
				i.logger.Warn("Plan state invalidation channel closed")
				return nil
			}
			var m InvalidationMessage
			if err := json.Unmarshal([]byte(msg.Payload), &m); err != nil {
				i.logger.Error("Malformed invalidation message",
					zap.String("payload", msg.Payload),
					zap.Error(err))
				continue
			}
			if m.Origin == i.origin {
				continue
			}
			callback(m)
		}
	}
}

// Close stops a running subscription
func (i *RedisInvalidator) Close() error {
	i.mu.Lock()
	cancel := i.cancelFn
	i.mu.Unlock()
	if cancel == nil {
		return nil
	}

	cancel()
	select {
	case <-i.doneCh:
	case <-time.After(defaultCloseTimeout):
		i.logger.Warn("Timeout waiting for invalidation subscription to stop")
	}
	return nil
}
