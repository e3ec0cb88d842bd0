// Package metrics defines all custom Prometheus metrics for the newsroom
// API. It is the single source of truth for metric names, labels, and help
// strings. Metrics are registered with the default registry at init via
// promauto.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "newsroom"

// ── Session metrics ───────────────────────────────────────────────────────────

// LoginsTotal counts login attempts.
// Label:
//   - result: "success", "invalid_credentials", "otp_pending", "suspended",
//     "rate_limited", "error"
var LoginsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "logins_total",
		Help:      "Total number of login attempts, by result.",
	},
	[]string{"result"},
)

// RegistrationsTotal counts account registrations.
// Label:
//   - otp_required: "true" when the account was left pending verification
var RegistrationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "registrations_total",
		Help:      "Total number of successful registrations, by OTP gating.",
	},
	[]string{"otp_required"},
)

// TokenRefreshTotal counts refresh-token exchanges.
// Label:
//   - result: "success" or "rejected"
var TokenRefreshTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "token_refresh_total",
		Help:      "Total number of refresh token exchanges, by result.",
	},
	[]string{"result"},
)

// OTPVerificationsTotal counts one-time-code verification attempts.
// Label:
//   - result: "success", "expired", "mismatch", "not_pending"
var OTPVerificationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "otp_verifications_total",
		Help:      "Total number of OTP verification attempts, by result.",
	},
	[]string{"result"},
)

// GuestSessionsTotal counts issued guest sessions.
var GuestSessionsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "guest_sessions_total",
		Help:      "Total number of guest sessions issued.",
	},
)

// ── Sync metrics ──────────────────────────────────────────────────────────────

// SyncItemsTotal counts reconciled items by outcome.
// Label:
//   - outcome: "applied" (written), "server_win" (client told to pull),
//     "conflict", "noop"
var SyncItemsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sync_items_total",
		Help:      "Total number of reconciled sync items, by outcome.",
	},
	[]string{"outcome"},
)

// SyncBatchDuration measures how long one reconciliation batch takes.
var SyncBatchDuration = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "sync_batch_duration_seconds",
		Help:      "Duration of sync batch reconciliation.",
		Buckets:   prometheus.DefBuckets,
	},
)
