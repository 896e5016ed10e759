// internal/infra/scheduler/scheduler.go
package scheduler

import (
	"fmt"

	"gl3e_manager/internal/app"
	"gl3e_manager/internal/domain/alert"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// HealthReporter periodically logs the dispatcher's health and metrics
// snapshot and pushes an ops alert when delivery is degraded or down.
type HealthReporter struct {
	cronEngine *cron.Cron
	dispatcher *app.Dispatcher
	alerter    alert.Client // nil when ops alerts are not configured
	logger     *logrus.Logger
	cronSpec   string
}

func NewHealthReporter(dispatcher *app.Dispatcher, alerter alert.Client, logger *logrus.Logger, cronSpec string) *HealthReporter {
	return &HealthReporter{
		cronEngine: cron.New(),
		dispatcher: dispatcher,
		alerter:    alerter,
		logger:     logger,
		cronSpec:   cronSpec,
	}
}

func (r *HealthReporter) Start() error {
	if _, err := r.cronEngine.AddFunc(r.cronSpec, r.report); err != nil {
		return fmt.Errorf("could not add health report cron job: %w", err)
	}
	r.cronEngine.Start()
	r.logger.WithField("spec", r.cronSpec).Info("health reporter started")
	return nil
}

func (r *HealthReporter) report() {
	health := r.dispatcher.Health()

	entry := r.logger.WithFields(logrus.Fields{
		"status":       health.Status,
		"total_sent":   health.Metrics.TotalSent,
		"total_failed": health.Metrics.TotalFailed,
		"success_rate": health.Metrics.SuccessRatePercent,
	})
	for name, p := range health.Providers {
		entry = entry.WithField("circuit_"+name, string(p.CircuitState))
	}

	if health.Status == "healthy" {
		entry.Info("delivery health snapshot")
		return
	}
	entry.Warn("delivery health degraded")

	if r.alerter == nil {
		return
	}
	text := fmt.Sprintf("GL3E delivery %s: ", health.Status)
	for name, p := range health.Providers {
		text += fmt.Sprintf("[%s circuit=%s] ", name, p.CircuitState)
	}
	// Alerting is best effort; a failed push must not affect anything else.
	if err := r.alerter.Notify(text); err != nil {
		r.logger.WithField("error", err.Error()).Warn("failed to push ops alert")
	}
}

func (r *HealthReporter) Stop() {
	ctx := r.cronEngine.Stop()
	<-ctx.Done()
	r.logger.Info("health reporter stopped")
}
