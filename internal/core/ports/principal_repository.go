package ports

import (
	"context"

	"github.com/newsroomhq/newsroom-api/internal/core/domain"
)

// PrincipalRepository defines persistence for principal accounts.
type PrincipalRepository interface {
	// Create inserts a new principal. Returns domain.ErrEmailExists when
	// the email is already registered.
	Create(ctx context.Context, p *domain.Principal) (*domain.Principal, error)
	FindByEmail(ctx context.Context, email string) (*domain.Principal, error)
	FindByID(ctx context.Context, id string) (*domain.Principal, error)
	// Update overwrites all mutable fields of the stored principal.
	Update(ctx context.Context, p *domain.Principal) error
}
