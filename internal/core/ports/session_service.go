package ports

import (
	"context"

	"github.com/newsroomhq/newsroom-api/internal/core/domain"
)

// DeviceInput carries the device context a client sends on auth calls.
// DeviceID is a client-generated stable identifier.
type DeviceInput struct {
	DeviceID   string
	DeviceName string
	Platform   string
	AppVersion string
}

// TokenBundle is the credential pair returned on successful
// authentication. It is ephemeral; only the refresh token's fingerprint is
// persisted.
type TokenBundle struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresIn  int64 // seconds
	RefreshExpiresIn int64 // seconds
	Guest            bool
}

// RegisterInput carries all data needed to create an account.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Phone    string
	Role     string
	// RequireOTP overrides the process-wide default when non-nil.
	RequireOTP *bool
	Device     *DeviceInput
	IP         string
}

// RegisterResult is returned by Register. Tokens is nil when OTPRequired is
// true: the caller must not treat the registration as a usable session.
type RegisterResult struct {
	Principal   *domain.Principal
	OTPRequired bool
	Tokens      *TokenBundle
}

// LoginInput carries login credentials plus optional device context.
type LoginInput struct {
	Email    string
	Password string
	IP       string
	Device   *DeviceInput
}

// LoginResult is returned by Login.
type LoginResult struct {
	Principal *domain.Principal
	Tokens    *TokenBundle
}

// SessionService orchestrates the session lifecycle: registration with an
// optional one-time-passcode gate, login, token refresh with rotation,
// logout, password reset, and stateless guest sessions.
type SessionService interface {
	Register(ctx context.Context, in RegisterInput) (*RegisterResult, error)
	// VerifyOTP activates a pending account. It does not issue tokens; the
	// caller must log in separately.
	VerifyOTP(ctx context.Context, email, code string) error
	Login(ctx context.Context, in LoginInput) (*LoginResult, error)
	// Refresh exchanges a valid refresh token for a new bundle and rotates
	// the stored fingerprint, invalidating the presented token.
	Refresh(ctx context.Context, refreshToken string) (*TokenBundle, error)
	// Logout clears the stored refresh fingerprint. Outstanding access
	// tokens stay valid until natural expiry.
	Logout(ctx context.Context, principalID string) error
	// ForgotPassword returns success even for unknown emails so account
	// existence is never leaked.
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, email, code, newPassword string) error
	// GuestSession issues a stateless guest bundle keyed to a fresh
	// ephemeral identifier; no account record is touched.
	GuestSession(ctx context.Context) (*TokenBundle, error)
	// SetStatus applies an admin suspend or reactivate, guarded by the
	// account status transition table.
	SetStatus(ctx context.Context, principalID string, status domain.AccountStatus) error
}
