package ports

import (
	"context"

	"github.com/newsroomhq/newsroom-api/internal/core/domain"
)

// DeviceTracker records and exposes per-device presence for a principal.
type DeviceTracker interface {
	// RecordDevice upserts the (principal, device) session, overwriting
	// name, platform, app version, last IP and last-active time.
	RecordDevice(ctx context.Context, principalID string, device DeviceInput, ip string) error
	ListDevices(ctx context.Context, principalID string) ([]*domain.DeviceSession, error)
}
