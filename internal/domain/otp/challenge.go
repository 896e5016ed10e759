// internal/domain/otp/challenge.go
package otp

import (
	"database/sql"
	"time"

	"gl3e_manager/internal/domain/notify"
)

// Challenge represents one issued OTP code with its own expiry and attempt
// state. Corresponds to the 'otp_challenges' table. A re-request always
// creates a new Challenge; rows are never deleted.
type Challenge struct {
	Ref         string // public reference (UUID), handed to the caller
	StudentID   int64
	Code        string // fixed-length numeric string
	Channel     notify.Channel
	Destination string         // email address or normalized phone number
	Provider    sql.NullString // set after a successful SMS send
	ExpiresAt   time.Time
	Verified    bool
	Attempts    int
	CreatedAt   time.Time
}

// Expired reports whether the challenge is past its expiry at the given time.
func (c *Challenge) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}
