package service

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/newsroomhq/newsroom-api/internal/core/domain"
	"github.com/newsroomhq/newsroom-api/internal/core/ports"
)

const (
	defaultAccessTTL  = 15 * time.Minute
	defaultRefreshTTL = 30 * 24 * time.Hour
)

// TokenConfig carries the signing secret and token lifetimes. Passed in
// explicitly at construction so the issuer stays independently testable.
type TokenConfig struct {
	Secret     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// Claims is the verified content of a token.
type Claims struct {
	Subject string
	Role    string
	Email   string
	Guest   bool
}

// TokenIssuer creates signed, time-boxed credential pairs. Both tokens in a
// pair are signed with the same HS256 secret and carry the same claim set;
// only their expiry differs. Issuing is a pure function of inputs, secret
// and wall clock.
type TokenIssuer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewTokenIssuer(cfg TokenConfig) *TokenIssuer {
	accessTTL := cfg.AccessTTL
	if accessTTL <= 0 {
		accessTTL = defaultAccessTTL
	}
	refreshTTL := cfg.RefreshTTL
	if refreshTTL <= 0 {
		refreshTTL = defaultRefreshTTL
	}
	return &TokenIssuer{
		secret:     []byte(cfg.Secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// Issue produces an access/refresh pair for the subject. Guest tokens
// carry role "guest" and a guest marker and are not tied to any stored
// account.
func (i *TokenIssuer) Issue(subject, role, email string, guest bool) (*ports.TokenBundle, error) {
	now := time.Now().UTC()

	access, err := i.sign(subject, role, email, guest, now, i.accessTTL)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	refresh, err := i.sign(subject, role, email, guest, now, i.refreshTTL)
	if err != nil {
		return nil, fmt.Errorf("sign refresh token: %w", err)
	}

	return &ports.TokenBundle{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresIn:  int64(i.accessTTL.Seconds()),
		RefreshExpiresIn: int64(i.refreshTTL.Seconds()),
		Guest:            guest,
	}, nil
}

// Verify checks signature and expiry and returns the token's claims.
// Pure computation; never touches the store.
func (i *TokenIssuer) Verify(token string) (*Claims, error) {
	claims := jwt.MapClaims{}
	tkn, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return i.secret, nil
	})
	if err != nil || !tkn.Valid {
		return nil, domain.ErrInvalidToken
	}

	sub, _ := claims["sub"].(string)
	role, _ := claims["role"].(string)
	email, _ := claims["email"].(string)
	guest, _ := claims["guest"].(bool)
	if sub == "" {
		return nil, domain.ErrInvalidToken
	}
	return &Claims{Subject: sub, Role: role, Email: email, Guest: guest}, nil
}

func (i *TokenIssuer) sign(subject, role, email string, guest bool, now time.Time, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"sub":   subject,
		"role":  role,
		"guest": guest,
		"jti":   randomID(8),
		"iat":   now.Unix(),
		"exp":   now.Add(ttl).Unix(),
	}
	if email != "" {
		claims["email"] = email
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(i.secret)
}

// randomID returns n random bytes hex-encoded. Falls back to nanoseconds if
// the system entropy source fails.
func randomID(n int) string {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("%x", time.Now().UnixNano())
	}
	return hex.EncodeToString(b)
}
