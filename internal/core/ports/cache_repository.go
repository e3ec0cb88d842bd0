package ports

import (
	"context"

	"github.com/newsroomhq/newsroom-api/internal/core/domain"
)

// CacheRepository persists offline cache entries. At most one entry exists
// per (principal_id, device_id, entity, key); writes are upserts.
type CacheRepository interface {
	Upsert(ctx context.Context, e *domain.CacheEntry) error
	// Find returns the entry or domain.ErrCacheEntryNotFound. Expiry is
	// advisory metadata and is not enforced here.
	Find(ctx context.Context, principalID, deviceID, entity, key string) (*domain.CacheEntry, error)
	// FindAll returns entries for the device, newest-first. An empty
	// entity means no entity filter.
	FindAll(ctx context.Context, principalID, deviceID, entity string) ([]*domain.CacheEntry, error)
	// Delete removes the entry; absent entries are not an error.
	Delete(ctx context.Context, principalID, deviceID, entity, key string) error
}
