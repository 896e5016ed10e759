// internal/infra/resilience/metrics.go
package resilience

import (
	"math"
	"sync"
)

// Metrics aggregates send outcomes per provider. It is observational only and
// has no effect on dispatch decisions.
type Metrics struct {
	mu               sync.Mutex
	totalSent        int64
	totalFailed      int64
	totalRetries     int64
	sentByProvider   map[string]int64
	failedByProvider map[string]int64
	avgDurationMS    float64
}

// MetricsSnapshot is a read-only copy of the aggregated counters.
type MetricsSnapshot struct {
	TotalSent          int64
	TotalFailed        int64
	TotalRetries       int64
	SuccessRatePercent float64
	AvgDurationMS      float64
	SentByProvider     map[string]int64
	FailedByProvider   map[string]int64
}

func NewMetrics() *Metrics {
	return &Metrics{
		sentByProvider:   make(map[string]int64),
		failedByProvider: make(map[string]int64),
	}
}

// RecordSuccess counts a delivered message and folds its duration into an
// exponentially-weighted moving average (0.9 old / 0.1 new).
func (m *Metrics) RecordSuccess(provider string, durationMS float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.totalSent++
	m.sentByProvider[provider]++
	if m.avgDurationMS == 0 {
		m.avgDurationMS = durationMS
	} else {
		m.avgDurationMS = m.avgDurationMS*0.9 + durationMS*0.1
	}
}

// RecordFailure counts a failed attempt against the provider.
func (m *Metrics) RecordFailure(provider string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.totalFailed++
	m.failedByProvider[provider]++
}

// RecordRetry counts a retry of a previously failed attempt.
func (m *Metrics) RecordRetry() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.totalRetries++
}

// Snapshot returns a copy of the current counters with the derived success
// rate, rounded for display.
func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	total := m.totalSent + m.totalFailed
	rate := 0.0
	if total > 0 {
		rate = float64(m.totalSent) / float64(total) * 100.0
	}

	sent := make(map[string]int64, len(m.sentByProvider))
	for k, v := range m.sentByProvider {
		sent[k] = v
	}
	failed := make(map[string]int64, len(m.failedByProvider))
	for k, v := range m.failedByProvider {
		failed[k] = v
	}

	return MetricsSnapshot{
		TotalSent:          m.totalSent,
		TotalFailed:        m.totalFailed,
		TotalRetries:       m.totalRetries,
		SuccessRatePercent: math.Round(rate*100) / 100,
		AvgDurationMS:      math.Round(m.avgDurationMS*100) / 100,
		SentByProvider:     sent,
		FailedByProvider:   failed,
	}
}
