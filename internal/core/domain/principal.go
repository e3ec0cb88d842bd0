package domain

import (
	"errors"
	"time"
)

// Roles assignable to a principal.
const (
	RoleUser      = "user"
	RolePublisher = "publisher"
	RoleAdmin     = "admin"
	// RoleGuest marks stateless guest tokens; it is never stored.
	RoleGuest = "guest"
)

// AccountStatus represents the lifecycle state of a principal's account.
type AccountStatus string

const (
	StatusPending   AccountStatus = "pending"
	StatusActive    AccountStatus = "active"
	StatusSuspended AccountStatus = "suspended"
)

// validStatusChanges defines the allowed account state machine transitions.
var validStatusChanges = map[AccountStatus][]AccountStatus{
	StatusPending:   {StatusActive},
	StatusActive:    {StatusSuspended},
	StatusSuspended: {StatusActive},
}

var ErrEmailExists = errors.New("email already registered")
var ErrInvalidCredentials = errors.New("invalid credentials")
var ErrPrincipalNotFound = errors.New("principal not found")
var ErrAccountSuspended = errors.New("account suspended")
var ErrOTPPending = errors.New("verification code pending")
var ErrOTPNotPending = errors.New("no verification code pending")
var ErrOTPExpired = errors.New("verification code expired")
var ErrOTPMismatch = errors.New("verification code mismatch")
var ErrResetNotRequested = errors.New("no password reset requested")
var ErrResetCodeExpired = errors.New("reset code expired")
var ErrResetCodeMismatch = errors.New("reset code mismatch")
var ErrInvalidToken = errors.New("invalid token")
var ErrInvalidStatusChange = errors.New("invalid account status change")
var ErrTooManyAttempts = errors.New("too many login attempts")
var ErrForbidden = errors.New("access forbidden")

// CanTransitionTo reports whether a change from the current account status
// to next is valid.
func (s AccountStatus) CanTransitionTo(next AccountStatus) bool {
	for _, allowed := range validStatusChanges[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Profile holds display data for a principal. It is a single value object
// regardless of role; publisher-only fields stay empty for ordinary users.
type Profile struct {
	DisplayName string `json:"display_name,omitempty"`
	Bio         string `json:"bio,omitempty"`
	// Outlet is the publication a publisher writes for.
	Outlet string `json:"outlet,omitempty"`
}

// Principal models an authenticable identity backed by a stored account.
type Principal struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Email        string        `json:"email"`
	Phone        string        `json:"phone,omitempty"`
	PasswordHash string        `json:"-"`
	Role         string        `json:"role"`
	Status       AccountStatus `json:"status"`
	Profile      Profile       `json:"profile"`

	// OTPCode doubles as the registration verification code and the
	// password reset code; the two flows never overlap for one account.
	OTPCode       string    `json:"-"`
	OTPExpiresAt  time.Time `json:"-"`
	OTPVerifiedAt time.Time `json:"-"`

	// RefreshFingerprint is a one-way hash of the most recently issued
	// refresh token. Overwritten on every issuance, cleared on logout.
	RefreshFingerprint string `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
