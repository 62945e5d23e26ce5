package domain

import "time"

// Audit event kinds. The security subset feeds the dashboard; the rest
// record data mutations and exports for compliance.
const (
	AuditCreate             = "CREATE"
	AuditUpdate             = "UPDATE"
	AuditDelete             = "DELETE"
	AuditExport             = "EXPORT"
	AuditLoginSuccess       = "LOGIN_SUCCESS"
	AuditLoginFailed        = "LOGIN_FAILED"
	AuditLogout             = "LOGOUT"
	AuditTokenRefresh       = "TOKEN_REFRESH"
	AuditPasswordChange     = "PASSWORD_CHANGE"
	AuditTwoFactorEnabled   = "TWO_FACTOR_ENABLED"
	AuditTwoFactorDisabled  = "TWO_FACTOR_DISABLED"
	AuditTwoFactorFailed    = "TWO_FACTOR_FAILED"
	AuditSuspiciousActivity = "SUSPICIOUS_ACTIVITY"
	AuditUnauthorizedAccess = "UNAUTHORIZED_ACCESS"
	AuditRateLimitExceeded  = "RATE_LIMIT_EXCEEDED"
)

// SecurityEventKinds lists the kinds surfaced on the security dashboard,
// i.e. the ones an operator investigating an incident looks at first.
var SecurityEventKinds = []string{
	AuditLoginFailed,
	AuditSuspiciousActivity,
	AuditUnauthorizedAccess,
	AuditRateLimitExceeded,
	AuditTwoFactorFailed,
}

// AuditEvent is a write-once record of a security- or business-relevant
// action. Events are persisted asynchronously and never updated.
type AuditEvent struct {
	ID         string            `json:"id,omitempty"`
	Kind       string            `json:"kind"`
	UserID     string            `json:"user_id,omitempty"`
	Resource   string            `json:"resource,omitempty"`
	ResourceID string            `json:"resource_id,omitempty"`
	Action     string            `json:"action,omitempty"`
	OldValue   string            `json:"old_value,omitempty"`
	NewValue   string            `json:"new_value,omitempty"`
	IP         string            `json:"ip,omitempty"`
	UserAgent  string            `json:"user_agent,omitempty"`
	RequestID  string            `json:"request_id,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}

// SecuritySummary aggregates recent security activity for the dashboard.
type SecuritySummary struct {
	FailedLogins24h       int64   `json:"failed_logins_24h"`
	SuccessfulLogins24h   int64   `json:"successful_logins_24h"`
	FailureRate24h        float64 `json:"failure_rate_24h"`
	RateLimitExceeded24h  int64   `json:"rate_limit_exceeded_24h"`
	TwoFactorFailures7d   int64   `json:"two_factor_failures_7d"`
	SuspiciousActivity7d  int64   `json:"suspicious_activity_7d"`
	ActiveSessions        int64   `json:"active_sessions"`
}
