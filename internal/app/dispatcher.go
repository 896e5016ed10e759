// internal/app/dispatcher.go
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gl3e_manager/internal/domain/notify"
	"gl3e_manager/internal/infra/email"
	"gl3e_manager/internal/infra/resilience"
	"gl3e_manager/internal/infra/sms"

	"github.com/sirupsen/logrus"
)

var (
	// ErrSendRateLimited means the global sliding window is full; the send
	// was rejected before contacting any provider.
	ErrSendRateLimited = errors.New("send rate limit reached, try again later")
	// ErrProviderUnavailable means a provider's circuit breaker blocked the
	// attempt without a network call.
	ErrProviderUnavailable = errors.New("provider temporarily unavailable")
	// ErrAllProvidersFailed means every provider in the routing plan
	// exhausted its retries.
	ErrAllProvidersFailed = errors.New("all providers failed to deliver")
	// ErrUnknownChannel means the requested channel is not email or sms.
	ErrUnknownChannel = errors.New("unknown notification channel")
)

// DispatcherConfig bundles the resilience knobs for one Dispatcher.
type DispatcherConfig struct {
	MaxRetries       int
	RetryDelay       time.Duration
	SendTimeout      time.Duration
	CircuitThreshold int
	CircuitCooldown  time.Duration
	RateLimitMax     int
	RateLimitWindow  time.Duration
}

// Dispatcher routes a payload to a provider chain and drives the retry,
// fallback, circuit-breaker and rate-limit policy around each attempt. All
// resilience state is owned by the instance; construct one Dispatcher per
// process (or per test).
type Dispatcher struct {
	cfg     DispatcherConfig
	email   notify.Provider
	mtarget notify.Provider
	twilio  notify.Provider

	limiter  *resilience.RateLimiter
	breakers map[string]*resilience.CircuitBreaker
	metrics  *resilience.Metrics
	logger   *logrus.Logger
}

func NewDispatcher(cfg DispatcherConfig, email, mtarget, twilio notify.Provider, logger *logrus.Logger) *Dispatcher {
	breakers := make(map[string]*resilience.CircuitBreaker)
	for _, p := range []notify.Provider{email, mtarget, twilio} {
		breakers[p.Name()] = resilience.NewCircuitBreaker(cfg.CircuitThreshold, cfg.CircuitCooldown)
	}
	return &Dispatcher{
		cfg:      cfg,
		email:    email,
		mtarget:  mtarget,
		twilio:   twilio,
		limiter:  resilience.NewRateLimiter(cfg.RateLimitMax, cfg.RateLimitWindow),
		breakers: breakers,
		metrics:  resilience.NewMetrics(),
		logger:   logger,
	}
}

// Send delivers the payload over the given channel. SMS destinations are
// routed by locale (Cameroon numbers prefer mTarget, everything else Twilio)
// with the other provider as fallback; email has a single provider whose
// transport-mode fallback lives inside the client. Returns which provider
// delivered and how many attempts were spent in total.
func (d *Dispatcher) Send(ctx context.Context, channel notify.Channel, destination string, p notify.Payload) (*notify.SendResult, error) {
	if !d.limiter.Allow() {
		d.logger.WithFields(logrus.Fields{
			"channel":   channel,
			"recipient": maskDestination(channel, destination),
		}).Error("send rejected by rate limiter")
		return nil, ErrSendRateLimited
	}

	plan, err := d.routingPlan(channel, destination)
	if err != nil {
		return nil, err
	}

	totalAttempts := 0
	var lastErr error
	for i, provider := range plan {
		if i > 0 {
			d.logger.WithFields(logrus.Fields{
				"channel":   channel,
				"provider":  provider.Name(),
				"recipient": maskDestination(channel, destination),
				"error":     lastErr.Error(),
			}).Warn("primary provider exhausted, trying fallback")
		}

		attempts, err := d.sendWithRetries(ctx, provider, channel, destination, p)
		totalAttempts += attempts
		if err == nil {
			return &notify.SendResult{Provider: provider.Name(), Attempts: totalAttempts}, nil
		}
		lastErr = err
	}

	d.logger.WithFields(logrus.Fields{
		"channel":   channel,
		"recipient": maskDestination(channel, destination),
		"error":     lastErr.Error(),
	}).Error("all providers failed")
	return nil, fmt.Errorf("%w: %v", ErrAllProvidersFailed, lastErr)
}

// routingPlan picks the ordered provider list for a destination.
func (d *Dispatcher) routingPlan(channel notify.Channel, destination string) ([]notify.Provider, error) {
	switch channel {
	case notify.ChannelEmail:
		return []notify.Provider{d.email}, nil
	case notify.ChannelSMS:
		if sms.IsCameroonNumber(destination) {
			return []notify.Provider{d.mtarget, d.twilio}, nil
		}
		return []notify.Provider{d.twilio, d.mtarget}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownChannel, channel)
	}
}

// sendWithRetries runs the bounded retry loop for one provider. Every attempt
// outcome feeds the provider's circuit breaker and the metrics aggregator; a
// timeout counts the same as a provider-reported failure.
func (d *Dispatcher) sendWithRetries(ctx context.Context, provider notify.Provider, channel notify.Channel, destination string, p notify.Payload) (int, error) {
	breaker := d.breakers[provider.Name()]
	recipient := maskDestination(channel, destination)

	attempts := 0
	var lastErr error
	for attempt := 1; attempt <= d.cfg.MaxRetries; attempt++ {
		if !breaker.CanAttempt() {
			d.metrics.RecordFailure(provider.Name())
			d.logger.WithFields(logrus.Fields{
				"channel":   channel,
				"provider":  provider.Name(),
				"recipient": recipient,
			}).Warn("circuit breaker open, skipping provider")
			if lastErr == nil {
				lastErr = fmt.Errorf("%s: %w", provider.Name(), ErrProviderUnavailable)
			}
			return attempts, lastErr
		}

		if attempt > 1 {
			d.metrics.RecordRetry()
			backoff := d.cfg.RetryDelay * time.Duration(attempt-1)
			select {
			case <-ctx.Done():
				return attempts, ctx.Err()
			case <-time.After(backoff):
			}
		}

		attemptCtx, cancel := context.WithTimeout(ctx, d.cfg.SendTimeout)
		start := time.Now()
		err := provider.Send(attemptCtx, destination, p)
		cancel()
		durationMS := float64(time.Since(start)) / float64(time.Millisecond)
		attempts++

		if err == nil {
			breaker.RecordSuccess()
			d.metrics.RecordSuccess(provider.Name(), durationMS)
			d.logger.WithFields(logrus.Fields{
				"channel":     channel,
				"provider":    provider.Name(),
				"recipient":   recipient,
				"attempt":     attempt,
				"duration_ms": durationMS,
			}).Info("send succeeded")
			return attempts, nil
		}

		breaker.RecordFailure()
		d.metrics.RecordFailure(provider.Name())
		lastErr = err
		d.logger.WithFields(logrus.Fields{
			"channel":     channel,
			"provider":    provider.Name(),
			"recipient":   recipient,
			"attempt":     attempt,
			"max_retries": d.cfg.MaxRetries,
			"error":       err.Error(),
		}).Warn("send attempt failed")
	}

	return attempts, lastErr
}

// ProviderHealth describes one provider in the health report.
type ProviderHealth struct {
	Configured   bool
	CircuitState resilience.CircuitState
}

// HealthReport is the read-only health and metrics snapshot exposed to
// collaborators. Status is "unhealthy" when both SMS circuits are open,
// "degraded" when any circuit is open, otherwise "healthy".
type HealthReport struct {
	Status    string
	Providers map[string]ProviderHealth
	Metrics   resilience.MetricsSnapshot
}

type configuredProvider interface {
	Configured() bool
}

// Health reports circuit states, provider configuration and metrics.
func (d *Dispatcher) Health() HealthReport {
	providers := make(map[string]ProviderHealth, len(d.breakers))
	for _, p := range []notify.Provider{d.email, d.mtarget, d.twilio} {
		configured := true
		if cp, ok := p.(configuredProvider); ok {
			configured = cp.Configured()
		}
		providers[p.Name()] = ProviderHealth{
			Configured:   configured,
			CircuitState: d.breakers[p.Name()].State(),
		}
	}

	smsOpen := 0
	anyOpen := false
	for _, p := range []notify.Provider{d.mtarget, d.twilio} {
		if d.breakers[p.Name()].State() == resilience.CircuitOpen {
			smsOpen++
		}
	}
	for name := range d.breakers {
		if d.breakers[name].State() == resilience.CircuitOpen {
			anyOpen = true
		}
	}

	status := "healthy"
	switch {
	case smsOpen == 2:
		status = "unhealthy"
	case anyOpen:
		status = "degraded"
	}

	return HealthReport{
		Status:    status,
		Providers: providers,
		Metrics:   d.metrics.Snapshot(),
	}
}

// Metrics returns the current aggregate counters.
func (d *Dispatcher) Metrics() resilience.MetricsSnapshot {
	return d.metrics.Snapshot()
}

func maskDestination(channel notify.Channel, destination string) string {
	if channel == notify.ChannelEmail {
		return email.MaskEmail(destination)
	}
	return sms.MaskPhone(destination)
}
