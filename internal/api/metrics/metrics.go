// Package metrics defines and registers all custom Prometheus metrics for
// the farm-platform auth core. It is the single source of truth for metric
// names, labels, and help strings.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "agro"

// ── Authentication metrics ────────────────────────────────────────────────────

// LoginsTotal counts first-factor login outcomes.
// Label:
//   - result: "success", "failure", "challenge"
var LoginsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "logins_total",
		Help:      "Total number of login attempts, by outcome.",
	},
	[]string{"result"},
)

// TokenVerificationsTotal counts access-token validations in the auth guard.
// Label:
//   - result: "ok", "expired", "malformed", "revoked"
var TokenVerificationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "token_verifications_total",
		Help:      "Total number of access token verifications, by outcome.",
	},
	[]string{"result"},
)

// RefreshRotationsTotal counts refresh-token rotations.
// Label:
//   - result: "success", "failure"
var RefreshRotationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "refresh_rotations_total",
		Help:      "Total number of refresh token rotations, by outcome.",
	},
	[]string{"result"},
)

// RateLimitedTotal counts requests denied by a rate window.
// Label:
//   - scope: "api" (the per-IP request middleware)
var RateLimitedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rate_limited_total",
		Help:      "Total number of requests rejected by rate limiting, by scope.",
	},
	[]string{"scope"},
)

// ── Audit pipeline metrics ────────────────────────────────────────────────────

// AuditEventsTotal counts events entering the audit pipeline.
// Label:
//   - kind: audit event kind (e.g. "LOGIN_FAILED")
var AuditEventsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "audit_events_total",
		Help:      "Total number of audit events recorded, by kind.",
	},
	[]string{"kind"},
)

// AuditEventsDropped counts events lost to a full pipeline buffer.
var AuditEventsDropped = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "audit_events_dropped_total",
		Help:      "Total number of audit events dropped because the pipeline buffer was full.",
	},
)

// AuditQueueDepth tracks the number of events waiting in each worker channel.
// Label:
//   - worker_id: numeric worker index (e.g. "0", "1", …)
var AuditQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "audit_queue_depth",
		Help:      "Current number of audit events pending in each pipeline worker channel.",
	},
	[]string{"worker_id"},
)

// AuditPersistDuration measures how long persisting one audit event takes.
var AuditPersistDuration = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "audit_persist_duration_seconds",
		Help:      "Duration of audit event persistence from dequeue to insert.",
		Buckets:   prometheus.DefBuckets,
	},
)
