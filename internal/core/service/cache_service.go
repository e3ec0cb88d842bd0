package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/newsroomhq/newsroom-api/internal/core/domain"
	"github.com/newsroomhq/newsroom-api/internal/core/ports"
)

// CacheService implements the offline cache store: versioned, checksummed
// blobs scoped to (principal, device, entity, key). Same-key writes are
// serialized through striped locks so version assignment never goes
// backwards.
type CacheService struct {
	repo  ports.CacheRepository
	locks *keyLocks
	log   zerolog.Logger
}

func NewCacheService(repo ports.CacheRepository, log zerolog.Logger) *CacheService {
	return &CacheService{repo: repo, locks: &keyLocks{}, log: log}
}

// Save computes the payload checksum, assigns a version strictly greater
// than any previous one for the key, and upserts the entry.
func (s *CacheService) Save(ctx context.Context, principalID, deviceID, entity, key string, payload []byte, expiresAt *time.Time) (*domain.CacheEntry, error) {
	if entity == "" || key == "" {
		return nil, domain.ErrCacheEntryNotFound
	}

	unlock := s.locks.lock(lockKey(principalID, deviceID, entity, key))
	defer unlock()
	return s.save(ctx, principalID, deviceID, entity, key, payload, expiresAt, 0)
}

// save is the lock-free write path, shared with the sync reconciler which
// holds the key lock across its compare-then-write sequence. A zero
// version means "assign fresh": wall-clock milliseconds, floored by
// previous+1 so repeat writes within the same millisecond still advance.
func (s *CacheService) save(ctx context.Context, principalID, deviceID, entity, key string, payload []byte, expiresAt *time.Time, version int64) (*domain.CacheEntry, error) {
	now := time.Now().UTC()

	if version == 0 {
		version = now.UnixMilli()
		existing, err := s.repo.Find(ctx, principalID, deviceID, entity, key)
		if err != nil && !errors.Is(err, domain.ErrCacheEntryNotFound) {
			return nil, err
		}
		if existing != nil && existing.Version >= version {
			version = existing.Version + 1
		}
	}

	entry := &domain.CacheEntry{
		PrincipalID: principalID,
		DeviceID:    deviceID,
		Entity:      entity,
		Key:         key,
		Payload:     payload,
		Version:     version,
		Checksum:    domain.Checksum(payload),
		ExpiresAt:   expiresAt,
		UpdatedAt:   now,
	}
	if err := s.repo.Upsert(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// Get returns the stored entry as-is. Expiry is advisory metadata; callers
// treat an expired entry as absent.
func (s *CacheService) Get(ctx context.Context, principalID, deviceID, entity, key string) (*domain.CacheEntry, error) {
	return s.repo.Find(ctx, principalID, deviceID, entity, key)
}

// GetAll returns the device's entries newest-first, optionally filtered by
// entity kind.
func (s *CacheService) GetAll(ctx context.Context, principalID, deviceID, entity string) ([]*domain.CacheEntry, error) {
	return s.repo.FindAll(ctx, principalID, deviceID, entity)
}

// Delete hard-deletes the entry. Absent entries are not an error.
func (s *CacheService) Delete(ctx context.Context, principalID, deviceID, entity, key string) error {
	unlock := s.locks.lock(lockKey(principalID, deviceID, entity, key))
	defer unlock()
	return s.repo.Delete(ctx, principalID, deviceID, entity, key)
}

func lockKey(principalID, deviceID, entity, key string) string {
	return principalID + "\x00" + deviceID + "\x00" + entity + "\x00" + key
}
