package database

import (
	"context"
	"database/sql"
	"fmt"

	"gl3e_manager/internal/domain/audit"

	_ "github.com/lib/pq" // PostgreSQL driver
)

type PostgresActivityLogRepository struct {
	db *sql.DB
}

func NewPostgresActivityLogRepository(db *sql.DB) *PostgresActivityLogRepository {
	return &PostgresActivityLogRepository{db: db}
}

func (r *PostgresActivityLogRepository) Record(ctx context.Context, e *audit.Entry) error {
	query := `INSERT INTO activity_logs (student_id, action, contact_method, contact_value, provider, success, error_message)
               VALUES ($1, $2, $3, $4, $5, $6, $7)
               RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		e.StudentID, e.Action, e.ContactMethod, e.ContactValue, e.Provider, e.Success, e.ErrorMessage,
	).Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		return fmt.Errorf("error recording activity log: %w", err)
	}
	return nil
}

func (r *PostgresActivityLogRepository) ListRecent(ctx context.Context, limit int) ([]*audit.Entry, error) {
	query := `SELECT id, student_id, action, contact_method, contact_value, provider, success, error_message, created_at
               FROM activity_logs ORDER BY created_at DESC LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("error listing activity logs: %w", err)
	}
	defer rows.Close()

	entries := make([]*audit.Entry, 0)
	for rows.Next() {
		e := &audit.Entry{}
		if err := rows.Scan(&e.ID, &e.StudentID, &e.Action, &e.ContactMethod, &e.ContactValue, &e.Provider, &e.Success, &e.ErrorMessage, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning activity log: %w", err)
		}
		entries = append(entries, e)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating activity logs: %w", err)
	}
	return entries, nil
}

var _ audit.Sink = (*PostgresActivityLogRepository)(nil)
