package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"
)

var ErrCacheEntryNotFound = errors.New("cache entry not found")

// CacheEntry is one versioned, checksummed blob in a client's offline
// cache, uniquely identified by (principal_id, device_id, entity, key).
type CacheEntry struct {
	PrincipalID string     `json:"principal_id" bson:"principal_id"`
	DeviceID    string     `json:"device_id" bson:"device_id"`
	Entity      string     `json:"entity" bson:"entity"`
	Key         string     `json:"key" bson:"key"`
	Payload     []byte     `json:"payload" bson:"payload"`
	Version     int64      `json:"version" bson:"version"`
	Checksum    string     `json:"checksum" bson:"checksum"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty" bson:"expires_at,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at" bson:"updated_at"`
}

// Expired reports whether the entry's advisory TTL has passed. Readers must
// treat an expired entry as absent.
func (e *CacheEntry) Expired(now time.Time) bool {
	return e.ExpiresAt != nil && now.After(*e.ExpiresAt)
}

// Checksum returns the deterministic content hash used to tell "same
// version, identical content" apart from "same version, diverged content".
func Checksum(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
