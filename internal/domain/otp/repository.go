// internal/domain/otp/repository.go
package otp

import (
	"context"
)

// Repository defines persistence for OTP challenges.
//
// ChargeAttempt and MarkVerified are the serialization points for concurrent
// verification: both must be atomic per challenge so the attempt counter never
// loses an update and never exceeds maxAttempts, and so at most one caller
// ever observes the verified flip.
type Repository interface {
	Create(ctx context.Context, c *Challenge) error
	GetByRef(ctx context.Context, ref string) (*Challenge, error)
	// GetActiveByStudent returns the most recent unverified, unexpired
	// challenge with attempts remaining, or ErrChallengeNotFound.
	GetActiveByStudent(ctx context.Context, studentID int64, maxAttempts int) (*Challenge, error)
	// SetProvider records which provider delivered the code after a send.
	SetProvider(ctx context.Context, ref string, provider string) error
	// ChargeAttempt increments the attempt counter only while it is below
	// maxAttempts and returns the new count. Returns ErrAttemptsExhausted
	// when the counter is already at the ceiling.
	ChargeAttempt(ctx context.Context, ref string, maxAttempts int) (int, error)
	// MarkVerified flips verified exactly once. The second and later calls
	// return false.
	MarkVerified(ctx context.Context, ref string) (bool, error)
}
