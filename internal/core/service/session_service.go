package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/newsroomhq/newsroom-api/internal/core/domain"
	"github.com/newsroomhq/newsroom-api/internal/core/ports"
)

const defaultOTPTTL = 10 * time.Minute

// LoginLimiter abstracts the brute-force protection store (Redis). A nil
// limiter disables limiting.
type LoginLimiter interface {
	// Allow reports whether login attempts are currently permitted for
	// this (email, ip).
	Allow(ctx context.Context, email, ip string) (bool, error)
	// Failure records a failed attempt.
	Failure(ctx context.Context, email, ip string) error
	// Success resets counters after a successful login.
	Success(ctx context.Context, email, ip string) error
}

// SessionConfig carries session lifecycle settings, passed explicitly at
// construction.
type SessionConfig struct {
	// OTPTTL is the validity window for one-time codes.
	OTPTTL time.Duration
	// RequireOTP is the process-wide default for OTP-gated registration.
	RequireOTP bool
}

// SessionService implements the session lifecycle: registration with an
// optional OTP gate, login, token refresh with rotation, logout, password
// reset, and stateless guest sessions.
type SessionService struct {
	principals ports.PrincipalRepository
	devices    ports.DeviceTracker
	issuer     *TokenIssuer
	limiter    LoginLimiter
	cfg        SessionConfig
	log        zerolog.Logger
}

func NewSessionService(
	principals ports.PrincipalRepository,
	devices ports.DeviceTracker,
	issuer *TokenIssuer,
	limiter LoginLimiter,
	cfg SessionConfig,
	log zerolog.Logger,
) *SessionService {
	if cfg.OTPTTL <= 0 {
		cfg.OTPTTL = defaultOTPTTL
	}
	return &SessionService{
		principals: principals,
		devices:    devices,
		issuer:     issuer,
		limiter:    limiter,
		cfg:        cfg,
		log:        log,
	}
}

// Register creates an account. When OTP is required the account stays
// pending with a fresh code and no tokens are issued; otherwise the account
// is activated immediately and a real bundle is returned.
func (s *SessionService) Register(ctx context.Context, in ports.RegisterInput) (*ports.RegisterResult, error) {
	email := normalizeEmail(in.Email)
	if email == "" || in.Password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	role := in.Role
	if role == "" {
		role = domain.RoleUser
	}
	if role != domain.RoleUser && role != domain.RolePublisher && role != domain.RoleAdmin {
		return nil, domain.ErrInvalidCredentials
	}

	if _, err := s.principals.FindByEmail(ctx, email); err == nil {
		return nil, domain.ErrEmailExists
	} else if !errors.Is(err, domain.ErrPrincipalNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	requireOTP := s.cfg.RequireOTP
	if in.RequireOTP != nil {
		requireOTP = *in.RequireOTP
	}

	now := time.Now().UTC()
	p := &domain.Principal{
		Name:         in.Name,
		Email:        email,
		Phone:        in.Phone,
		PasswordHash: string(hash),
		Role:         role,
		Status:       domain.StatusActive,
		Profile:      domain.Profile{DisplayName: in.Name},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if requireOTP {
		p.Status = domain.StatusPending
		p.OTPCode = numericCode(6)
		p.OTPExpiresAt = now.Add(s.cfg.OTPTTL)
	}

	created, err := s.principals.Create(ctx, p)
	if err != nil {
		return nil, err
	}

	if requireOTP {
		s.log.Info().Str("principal_id", created.ID).Msg("registration pending verification")
		return &ports.RegisterResult{Principal: created, OTPRequired: true}, nil
	}

	tokens, err := s.openSession(ctx, created, in.Device, in.IP)
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("principal_id", created.ID).Str("role", created.Role).Msg("principal registered")
	return &ports.RegisterResult{Principal: created, Tokens: tokens}, nil
}

// VerifyOTP activates a pending account. Tokens are not issued here; the
// caller must log in separately.
func (s *SessionService) VerifyOTP(ctx context.Context, email, code string) error {
	p, err := s.principals.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, domain.ErrPrincipalNotFound) {
			return domain.ErrOTPNotPending
		}
		return err
	}

	now := time.Now().UTC()
	switch {
	case p.OTPCode == "":
		return domain.ErrOTPNotPending
	case now.After(p.OTPExpiresAt):
		return domain.ErrOTPExpired
	case p.OTPCode != code:
		return domain.ErrOTPMismatch
	}

	p.OTPCode = ""
	p.OTPExpiresAt = time.Time{}
	p.OTPVerifiedAt = now
	if p.Status == domain.StatusPending {
		p.Status = domain.StatusActive
	}
	p.UpdatedAt = now

	if err := s.principals.Update(ctx, p); err != nil {
		return err
	}
	s.log.Info().Str("principal_id", p.ID).Msg("account verified")
	return nil
}

// Login authenticates by email and password, issues a token bundle,
// persists its refresh fingerprint, and records the device session when
// device context is supplied.
func (s *SessionService) Login(ctx context.Context, in ports.LoginInput) (*ports.LoginResult, error) {
	email := normalizeEmail(in.Email)

	if s.limiter != nil {
		allowed, err := s.limiter.Allow(ctx, email, in.IP)
		if err != nil {
			s.log.Warn().Err(err).Msg("login limiter check failed, allowing")
		} else if !allowed {
			return nil, domain.ErrTooManyAttempts
		}
	}

	p, err := s.principals.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrPrincipalNotFound) {
			s.recordFailure(ctx, email, in.IP)
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(p.PasswordHash), []byte(in.Password)) != nil {
		s.recordFailure(ctx, email, in.IP)
		return nil, domain.ErrInvalidCredentials
	}

	switch p.Status {
	case domain.StatusPending:
		return nil, domain.ErrOTPPending
	case domain.StatusSuspended:
		return nil, domain.ErrAccountSuspended
	}

	if s.limiter != nil {
		if err := s.limiter.Success(ctx, email, in.IP); err != nil {
			s.log.Warn().Err(err).Msg("login limiter reset failed")
		}
	}

	tokens, err := s.openSession(ctx, p, in.Device, in.IP)
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("principal_id", p.ID).Msg("login succeeded")
	return &ports.LoginResult{Principal: p, Tokens: tokens}, nil
}

// Refresh verifies the presented refresh token, compares it against the
// stored fingerprint, and on success issues a new bundle and rotates the
// fingerprint. The presented token becomes unusable even though it is never
// explicitly revoked.
func (s *SessionService) Refresh(ctx context.Context, refreshToken string) (*ports.TokenBundle, error) {
	claims, err := s.issuer.Verify(refreshToken)
	if err != nil {
		return nil, domain.ErrInvalidToken
	}

	// Guest refresh is stateless: re-issue without any store round-trip.
	if claims.Guest {
		return s.issuer.Issue(claims.Subject, domain.RoleGuest, "", true)
	}

	p, err := s.principals.FindByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, domain.ErrPrincipalNotFound) {
			return nil, domain.ErrInvalidToken
		}
		return nil, err
	}

	switch p.Status {
	case domain.StatusSuspended:
		return nil, domain.ErrAccountSuspended
	case domain.StatusPending:
		return nil, domain.ErrOTPPending
	}

	if p.RefreshFingerprint == "" || p.RefreshFingerprint != fingerprint(refreshToken) {
		return nil, domain.ErrInvalidToken
	}

	tokens, err := s.issuer.Issue(p.ID, p.Role, p.Email, false)
	if err != nil {
		return nil, err
	}
	if err := s.storeFingerprint(ctx, p, tokens.RefreshToken); err != nil {
		return nil, err
	}
	s.log.Debug().Str("principal_id", p.ID).Msg("refresh token rotated")
	return tokens, nil
}

// Logout clears the stored refresh fingerprint, unconditionally ending the
// ability to refresh. Outstanding access tokens remain valid until natural
// expiry.
func (s *SessionService) Logout(ctx context.Context, principalID string) error {
	p, err := s.principals.FindByID(ctx, principalID)
	if err != nil {
		return err
	}
	p.RefreshFingerprint = ""
	p.UpdatedAt = time.Now().UTC()
	if err := s.principals.Update(ctx, p); err != nil {
		return err
	}
	s.log.Info().Str("principal_id", principalID).Msg("logged out")
	return nil
}

// ForgotPassword stores a fresh reset code. Unknown emails still return
// success so account existence is never leaked.
func (s *SessionService) ForgotPassword(ctx context.Context, email string) error {
	p, err := s.principals.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, domain.ErrPrincipalNotFound) {
			s.log.Debug().Msg("password reset requested for unknown email")
			return nil
		}
		return err
	}

	now := time.Now().UTC()
	p.OTPCode = numericCode(6)
	p.OTPExpiresAt = now.Add(s.cfg.OTPTTL)
	p.UpdatedAt = now
	if err := s.principals.Update(ctx, p); err != nil {
		return err
	}
	// Code delivery is handled by the notification system outside this core.
	s.log.Info().Str("principal_id", p.ID).Msg("password reset code generated")
	return nil
}

// ResetPassword validates the reset code and stores the new password hash.
// The stored refresh fingerprint is cleared so every session must log in
// again with the new password.
func (s *SessionService) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	if newPassword == "" {
		return domain.ErrInvalidCredentials
	}
	p, err := s.principals.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, domain.ErrPrincipalNotFound) {
			return domain.ErrResetNotRequested
		}
		return err
	}

	now := time.Now().UTC()
	switch {
	case p.OTPCode == "":
		return domain.ErrResetNotRequested
	case now.After(p.OTPExpiresAt):
		return domain.ErrResetCodeExpired
	case p.OTPCode != code:
		return domain.ErrResetCodeMismatch
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	p.PasswordHash = string(hash)
	p.OTPCode = ""
	p.OTPExpiresAt = time.Time{}
	p.RefreshFingerprint = ""
	p.UpdatedAt = now
	if err := s.principals.Update(ctx, p); err != nil {
		return err
	}
	s.log.Info().Str("principal_id", p.ID).Msg("password reset")
	return nil
}

// GuestSession issues a guest bundle keyed to a freshly generated ephemeral
// identifier. No account record is created or read.
func (s *SessionService) GuestSession(ctx context.Context) (*ports.TokenBundle, error) {
	subject := "guest-" + randomID(12)
	tokens, err := s.issuer.Issue(subject, domain.RoleGuest, "", true)
	if err != nil {
		return nil, err
	}
	s.log.Debug().Str("subject", subject).Msg("guest session issued")
	return tokens, nil
}

// SetStatus applies an admin suspend or reactivate. Suspending also clears
// the refresh fingerprint so the account cannot refresh its way back in.
func (s *SessionService) SetStatus(ctx context.Context, principalID string, status domain.AccountStatus) error {
	p, err := s.principals.FindByID(ctx, principalID)
	if err != nil {
		return err
	}
	if !p.Status.CanTransitionTo(status) {
		return fmt.Errorf("%w (from %s to %s)", domain.ErrInvalidStatusChange, p.Status, status)
	}

	p.Status = status
	if status == domain.StatusSuspended {
		p.RefreshFingerprint = ""
	}
	p.UpdatedAt = time.Now().UTC()
	if err := s.principals.Update(ctx, p); err != nil {
		return err
	}
	s.log.Info().Str("principal_id", principalID).Str("status", string(status)).Msg("account status changed")
	return nil
}

// openSession issues a token bundle, persists its refresh fingerprint, and
// records the device session when device context was supplied. Device
// recording failures are logged, not fatal: presence tracking must never
// block authentication.
func (s *SessionService) openSession(ctx context.Context, p *domain.Principal, device *ports.DeviceInput, ip string) (*ports.TokenBundle, error) {
	tokens, err := s.issuer.Issue(p.ID, p.Role, p.Email, false)
	if err != nil {
		return nil, err
	}
	if err := s.storeFingerprint(ctx, p, tokens.RefreshToken); err != nil {
		return nil, err
	}

	if device != nil && device.DeviceID != "" {
		if err := s.devices.RecordDevice(ctx, p.ID, *device, ip); err != nil {
			s.log.Warn().Err(err).Str("principal_id", p.ID).Str("device_id", device.DeviceID).Msg("failed to record device session")
		}
	}
	return tokens, nil
}

func (s *SessionService) storeFingerprint(ctx context.Context, p *domain.Principal, refreshToken string) error {
	p.RefreshFingerprint = fingerprint(refreshToken)
	p.UpdatedAt = time.Now().UTC()
	return s.principals.Update(ctx, p)
}

func (s *SessionService) recordFailure(ctx context.Context, email, ip string) {
	if s.limiter == nil {
		return
	}
	if err := s.limiter.Failure(ctx, email, ip); err != nil {
		s.log.Warn().Err(err).Msg("login limiter record failed")
	}
}

// fingerprint returns the one-way hash of a refresh token persisted on the
// principal, so the server never stores the raw token.
func fingerprint(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// numericCode returns a zero-padded random numeric code of n digits.
func numericCode(n int) string {
	max := big.NewInt(1)
	for i := 0; i < n; i++ {
		max.Mul(max, big.NewInt(10))
	}
	v, err := rand.Int(rand.Reader, max)
	if err != nil {
		// fallback: derive from the clock
		v = big.NewInt(time.Now().UnixNano())
	}
	return fmt.Sprintf("%0*d", n, v.Int64()%pow10(n))
}

func pow10(n int) int64 {
	r := int64(1)
	for i := 0; i < n; i++ {
		r *= 10
	}
	return r
}
