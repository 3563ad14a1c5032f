package core

import "time"

type AuditEventType string

const (
	EventLoginSucceeded   AuditEventType = "login_succeeded"
	EventLoginFailed      AuditEventType = "login_failed"
	EventLoginRateLimited AuditEventType = "login_rate_limited"
	EventLogout           AuditEventType = "logout"
)

// AuditEvent records a security relevant action on the admin surface.
// Identity is always redacted before an event is built.
type AuditEvent struct {
	ID       string
	Type     AuditEventType
	Client   string
	Identity string
	Reason   string
	At       time.Time
}
