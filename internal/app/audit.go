// internal/app/audit.go
package app

import (
	"context"
	"database/sql"

	"gl3e_manager/internal/domain/audit"

	"github.com/sirupsen/logrus"
)

// AuditRecorder wraps an audit.Sink with fire-and-forget semantics: sink
// failures are logged and swallowed so they never abort the operation being
// audited.
type AuditRecorder struct {
	sink   audit.Sink
	logger *logrus.Logger
}

func NewAuditRecorder(sink audit.Sink, logger *logrus.Logger) *AuditRecorder {
	return &AuditRecorder{sink: sink, logger: logger}
}

// Record persists the entry if a sink is configured. Never returns an error.
func (r *AuditRecorder) Record(ctx context.Context, e *audit.Entry) {
	if r.sink == nil {
		return
	}
	if err := r.sink.Record(ctx, e); err != nil {
		r.logger.WithFields(logrus.Fields{
			"action": e.Action,
			"error":  err.Error(),
		}).Warn("audit sink write failed")
	}
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullInt64(v int64) sql.NullInt64 {
	if v == 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: v, Valid: true}
}
