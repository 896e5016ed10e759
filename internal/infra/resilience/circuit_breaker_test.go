package resilience

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBreaker(threshold int, cooldown time.Duration) (*CircuitBreaker, *time.Time) {
	cb := NewCircuitBreaker(threshold, cooldown)
	current := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	cb.now = func() time.Time { return current }
	return cb, &current
}

func TestCircuitBreaker_OpensAtThreshold(t *testing.T) {
	cb, _ := newTestBreaker(3, time.Minute)

	cb.RecordFailure()
	cb.RecordFailure()
	assert.Equal(t, CircuitClosed, cb.State())
	assert.True(t, cb.CanAttempt())

	cb.RecordFailure()
	assert.Equal(t, CircuitOpen, cb.State())
	assert.False(t, cb.CanAttempt())
	assert.Equal(t, 3, cb.Failures())
}

func TestCircuitBreaker_SuccessResetsFailureCount(t *testing.T) {
	cb, _ := newTestBreaker(3, time.Minute)

	cb.RecordFailure()
	cb.RecordFailure()
	cb.RecordSuccess()
	assert.Equal(t, 0, cb.Failures())

	// A fresh streak is needed to open again.
	cb.RecordFailure()
	cb.RecordFailure()
	assert.Equal(t, CircuitClosed, cb.State())
}

func TestCircuitBreaker_HalfOpenAfterCooldown(t *testing.T) {
	cb, current := newTestBreaker(2, time.Minute)

	cb.RecordFailure()
	cb.RecordFailure()
	require.Equal(t, CircuitOpen, cb.State())

	// Inside the cooldown the breaker stays shut.
	*current = current.Add(59 * time.Second)
	assert.False(t, cb.CanAttempt())

	// Past the cooldown one probe is admitted.
	*current = current.Add(2 * time.Second)
	assert.True(t, cb.CanAttempt())
	assert.Equal(t, CircuitHalfOpen, cb.State())
}

func TestCircuitBreaker_HalfOpenProbeSuccessCloses(t *testing.T) {
	cb, current := newTestBreaker(2, time.Minute)

	cb.RecordFailure()
	cb.RecordFailure()
	*current = current.Add(2 * time.Minute)
	require.True(t, cb.CanAttempt())

	cb.RecordSuccess()
	assert.Equal(t, CircuitClosed, cb.State())
	assert.Equal(t, 0, cb.Failures())
}

func TestCircuitBreaker_HalfOpenProbeFailureReopens(t *testing.T) {
	cb, current := newTestBreaker(5, time.Minute)

	for i := 0; i < 5; i++ {
		cb.RecordFailure()
	}
	*current = current.Add(61 * time.Second)
	require.True(t, cb.CanAttempt())
	require.Equal(t, CircuitHalfOpen, cb.State())

	// A single failure reopens regardless of the threshold.
	cb.RecordFailure()
	assert.Equal(t, CircuitOpen, cb.State())
	assert.False(t, cb.CanAttempt())
}
