package redis

import (
	"context"
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	failureWindow = 15 * time.Minute
	maxFailures   = 5
)

// LoginLimiter counts failed login attempts per (email, ip) in Redis and
// blocks further attempts once the threshold is reached, until the window
// expires. Key format: loginfail:<sha256(email|ip)>
type LoginLimiter struct {
	client *redis.Client
}

// NewLoginLimiter creates a LoginLimiter wrapping the given Redis client.
func NewLoginLimiter(client *redis.Client) *LoginLimiter {
	return &LoginLimiter{client: client}
}

// Allow reports whether login attempts are currently permitted.
func (l *LoginLimiter) Allow(ctx context.Context, email, ip string) (bool, error) {
	n, err := l.client.Get(ctx, l.key(email, ip)).Int64()
	if err == redis.Nil {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("limiter check: %w", err)
	}
	return n < maxFailures, nil
}

// Failure records a failed attempt. The window TTL is refreshed on every
// failure, so the lockout slides while attempts keep coming.
func (l *LoginLimiter) Failure(ctx context.Context, email, ip string) error {
	key := l.key(email, ip)
	pipe := l.client.TxPipeline()
	pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, failureWindow)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("limiter record failure: %w", err)
	}
	return nil
}

// Success resets the counter after a successful login.
func (l *LoginLimiter) Success(ctx context.Context, email, ip string) error {
	if err := l.client.Del(ctx, l.key(email, ip)).Err(); err != nil {
		return fmt.Errorf("limiter reset: %w", err)
	}
	return nil
}

// key hashes the pair so raw emails and addresses never land in Redis.
func (l *LoginLimiter) key(email, ip string) string {
	sum := sha256.Sum256([]byte(email + "|" + ip))
	return fmt.Sprintf("loginfail:%x", sum[:8])
}
