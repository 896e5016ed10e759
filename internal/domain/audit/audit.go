// internal/domain/audit/audit.go
package audit

import (
	"context"
	"database/sql"
	"time"
)

// Well-known action names recorded by the portal flows.
const (
	ActionOTPRequested        = "otp_requested"
	ActionOTPRequestBlocked   = "otp_request_blocked"
	ActionOTPSendFailed       = "otp_send_failed"
	ActionOTPVerifyFailed     = "otp_verification_failed"
	ActionProjectAssigned     = "project_assigned"
	ActionProjectAssignFailed = "project_assignment_failed"
)

// Entry is one structured audit event. Corresponds to the 'activity_logs'
// table; rows are append-only.
type Entry struct {
	ID            int64
	StudentID     sql.NullInt64
	Action        string
	ContactMethod sql.NullString
	ContactValue  sql.NullString
	Provider      sql.NullString
	Success       bool
	ErrorMessage  sql.NullString
	CreatedAt     time.Time
}

// Sink persists audit entries. Implementations may fail; callers must treat
// the sink as fire-and-forget and never let a sink error abort the primary
// operation.
type Sink interface {
	Record(ctx context.Context, e *Entry) error
}
