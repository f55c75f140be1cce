package planstate

import (
	"context"

	"github.com/google/uuid"
)

// Cache holds recently derived plan states per tenant. Entries are stale
// reads for display only; enforcement never consults the cache.
type Cache interface {
	Get(ctx context.Context, tenantID uuid.UUID) (*State, bool)
	Set(ctx context.Context, tenantID uuid.UUID, state *State)
	Invalidate(ctx context.Context, tenantID uuid.UUID)
}

// NopCache never stores anything
type NopCache struct{}

// Get always misses
func (NopCache) Get(context.Context, uuid.UUID) (*State, bool) {
	return nil, false
}

// Set discards the state
func (NopCache) Set(context.Context, uuid.UUID, *State) {}

// Invalidate does nothing
func (NopCache) Invalidate(context.Context, uuid.UUID) {}
