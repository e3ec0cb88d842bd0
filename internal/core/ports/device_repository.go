package ports

import (
	"context"

	"github.com/newsroomhq/newsroom-api/internal/core/domain"
)

// DeviceRepository persists device sessions keyed by (principal, device).
type DeviceRepository interface {
	// Upsert creates or overwrites the session for the device. Last write
	// wins; no history is retained.
	Upsert(ctx context.Context, s *domain.DeviceSession) error
	// ListByPrincipal returns all device sessions for a principal, most
	// recently active first.
	ListByPrincipal(ctx context.Context, principalID string) ([]*domain.DeviceSession, error)
}
