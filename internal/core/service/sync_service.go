package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/newsroomhq/newsroom-api/internal/core/domain"
	"github.com/newsroomhq/newsroom-api/internal/core/ports"
)

const maxSyncBatch = 500

// SyncService reconciles a client's offline write-ahead buffer against
// server state. Items are processed one at a time; each comparison and its
// write happen under the item's key lock so a concurrent writer cannot
// sneak in between them.
type SyncService struct {
	cache *CacheService
	log   zerolog.Logger
}

func NewSyncService(cache *CacheService, log zerolog.Logger) *SyncService {
	return &SyncService{cache: cache, log: log}
}

// Reconcile decides per item whether the server wins, the client wins, or
// the two conflict, and applies the resulting writes. Conflicts are normal
// output, not errors. Partial application across a batch is expected.
func (s *SyncService) Reconcile(ctx context.Context, principalID, deviceID string, items []ports.SyncItemInput) (*ports.SyncResult, error) {
	if principalID == "" || deviceID == "" {
		return nil, errors.New("reconcile: empty principal or device id")
	}
	if len(items) > maxSyncBatch {
		return nil, fmt.Errorf("reconcile: batch too large (%d > %d)", len(items), maxSyncBatch)
	}
	for i := range items {
		if items[i].Entity == "" || items[i].Key == "" {
			return nil, fmt.Errorf("reconcile: item[%d] missing entity or key", i)
		}
		if items[i].Version <= 0 {
			return nil, fmt.Errorf("reconcile: item[%d] non-positive version", i)
		}
	}

	result := &ports.SyncResult{}
	for i := range items {
		if err := s.reconcileItem(ctx, principalID, deviceID, &items[i], result); err != nil {
			return nil, err
		}
	}

	s.log.Info().
		Str("principal_id", principalID).
		Str("device_id", deviceID).
		Int("items", len(items)).
		Int("applied", result.Applied).
		Int("updated", len(result.Updated)).
		Int("conflicts", len(result.Conflicts)).
		Msg("sync batch reconciled")

	return result, nil
}

func (s *SyncService) reconcileItem(ctx context.Context, principalID, deviceID string, item *ports.SyncItemInput, result *ports.SyncResult) error {
	unlock := s.cache.locks.lock(lockKey(principalID, deviceID, item.Entity, item.Key))
	defer unlock()

	entry, err := s.cache.repo.Find(ctx, principalID, deviceID, item.Entity, item.Key)
	if err != nil {
		if !errors.Is(err, domain.ErrCacheEntryNotFound) {
			return fmt.Errorf("reconcile %s/%s: %w", item.Entity, item.Key, err)
		}
		entry = nil
	}
	if entry != nil && entry.Expired(time.Now().UTC()) {
		entry = nil
	}

	switch {
	case entry == nil:
		// First sync of this tuple: store at the client's own version.
		if _, err := s.cache.save(ctx, principalID, deviceID, item.Entity, item.Key, item.Payload, nil, item.Version); err != nil {
			return fmt.Errorf("reconcile %s/%s: %w", item.Entity, item.Key, err)
		}
		result.Applied++

	case entry.Version > item.Version:
		// Server is authoritative and newer; tell the client to pull.
		result.Updated = append(result.Updated, ports.SyncUpdated{
			Entity:        item.Entity,
			Key:           item.Key,
			ServerVersion: entry.Version,
		})

	case entry.Version < item.Version:
		// Client is newer; overwrite with a fresh server-assigned version.
		if _, err := s.cache.save(ctx, principalID, deviceID, item.Entity, item.Key, item.Payload, entry.ExpiresAt, 0); err != nil {
			return fmt.Errorf("reconcile %s/%s: %w", item.Entity, item.Key, err)
		}
		result.Applied++

	default:
		clientSum := domain.Checksum(item.Payload)
		if clientSum == entry.Checksum {
			// Steady state: both sides already agree.
			result.Unchanged++
			return nil
		}
		// Same version, diverged content. Surface it; never last-writer-wins.
		result.Conflicts = append(result.Conflicts, ports.SyncConflict{
			Entity:         item.Entity,
			Key:            item.Key,
			ServerVersion:  entry.Version,
			ClientVersion:  item.Version,
			ServerChecksum: entry.Checksum,
			ClientChecksum: clientSum,
		})
		s.log.Warn().
			Str("principal_id", principalID).
			Str("entity", item.Entity).
			Str("key", item.Key).
			Int64("version", entry.Version).
			Msg("sync conflict surfaced")
	}
	return nil
}
