package biz

import (
	"context"
	"time"
)

// Audit actions recorded by the auth flows.
const (
	AuditLoginSucceeded = "login_succeeded"
	AuditLoginFailed    = "login_failed"
	AuditLogout         = "logout"
)

// AuditEntry is one recorded auth event. UserID is 0 when the event is
// not attributable to a local user (e.g. a failed login).
type AuditEntry struct {
	ID        int64
	UserID    int64
	Action    string
	Detail    string
	CreatedAt time.Time
}

// AuditRepo is the audit-log persistence interface (implemented in data).
type AuditRepo interface {
	Record(ctx context.Context, entry *AuditEntry) error
	ListByUser(ctx context.Context, userID int64, limit int) ([]*AuditEntry, error)
}
