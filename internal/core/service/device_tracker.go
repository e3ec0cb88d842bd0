package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/newsroomhq/newsroom-api/internal/core/domain"
	"github.com/newsroomhq/newsroom-api/internal/core/ports"
)

// DeviceTracker upserts a (principal, device) record on every successful
// authentication. Last write wins; this is presence tracking, not an event
// log.
type DeviceTracker struct {
	repo ports.DeviceRepository
	log  zerolog.Logger
}

func NewDeviceTracker(repo ports.DeviceRepository, log zerolog.Logger) *DeviceTracker {
	return &DeviceTracker{repo: repo, log: log}
}

// RecordDevice unconditionally overwrites the session for the device.
func (t *DeviceTracker) RecordDevice(ctx context.Context, principalID string, device ports.DeviceInput, ip string) error {
	session := &domain.DeviceSession{
		PrincipalID:  principalID,
		DeviceID:     device.DeviceID,
		DeviceName:   device.DeviceName,
		Platform:     device.Platform,
		AppVersion:   device.AppVersion,
		LastIP:       ip,
		LastActiveAt: time.Now().UTC(),
	}
	if err := t.repo.Upsert(ctx, session); err != nil {
		return err
	}
	t.log.Debug().Str("principal_id", principalID).Str("device_id", device.DeviceID).Msg("device session recorded")
	return nil
}

func (t *DeviceTracker) ListDevices(ctx context.Context, principalID string) ([]*domain.DeviceSession, error) {
	return t.repo.ListByPrincipal(ctx, principalID)
}
