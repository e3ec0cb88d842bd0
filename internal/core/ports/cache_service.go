package ports

import (
	"context"
	"time"

	"github.com/newsroomhq/newsroom-api/internal/core/domain"
)

// CacheService is the offline cache store: a keyed, versioned, checksummed
// blob store scoped to (principal, device, entity, key).
type CacheService interface {
	// Save computes the checksum, assigns a version strictly greater than
	// any previous one for the key, and upserts the entry.
	Save(ctx context.Context, principalID, deviceID, entity, key string, payload []byte, expiresAt *time.Time) (*domain.CacheEntry, error)
	// Get returns the stored entry as-is; callers are responsible for
	// treating an expired entry as absent.
	Get(ctx context.Context, principalID, deviceID, entity, key string) (*domain.CacheEntry, error)
	GetAll(ctx context.Context, principalID, deviceID, entity string) ([]*domain.CacheEntry, error)
	// Delete is a hard delete and is idempotent.
	Delete(ctx context.Context, principalID, deviceID, entity, key string) error
}
