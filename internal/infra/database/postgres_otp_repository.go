package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"gl3e_manager/internal/domain/notify"
	"gl3e_manager/internal/domain/otp"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// Custom errors
var ErrChallengeNotFound = fmt.Errorf("otp challenge not found")
var ErrAttemptsExhausted = fmt.Errorf("otp attempt limit reached")

type PostgresOTPRepository struct {
	db *sql.DB
}

func NewPostgresOTPRepository(db *sql.DB) *PostgresOTPRepository {
	return &PostgresOTPRepository{db: db}
}

func (r *PostgresOTPRepository) Create(ctx context.Context, c *otp.Challenge) error {
	query := `INSERT INTO otp_challenges (ref, student_id, code, channel, destination, provider, expires_at, verified, attempts)
               VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
               RETURNING created_at`

	err := r.db.QueryRowContext(ctx, query,
		c.Ref, c.StudentID, c.Code, string(c.Channel), c.Destination, c.Provider, c.ExpiresAt, c.Verified, c.Attempts,
	).Scan(&c.CreatedAt)
	if err != nil {
		return fmt.Errorf("error creating otp challenge: %w", err)
	}
	return nil
}

func (r *PostgresOTPRepository) GetByRef(ctx context.Context, ref string) (*otp.Challenge, error) {
	query := `SELECT ref, student_id, code, channel, destination, provider, expires_at, verified, attempts, created_at
               FROM otp_challenges WHERE ref = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, ref))
}

func (r *PostgresOTPRepository) GetActiveByStudent(ctx context.Context, studentID int64, maxAttempts int) (*otp.Challenge, error) {
	query := `SELECT ref, student_id, code, channel, destination, provider, expires_at, verified, attempts, created_at
               FROM otp_challenges
               WHERE student_id = $1 AND verified = FALSE AND expires_at > $2 AND attempts < $3
               ORDER BY created_at DESC
               LIMIT 1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, studentID, time.Now().UTC(), maxAttempts))
}

func (r *PostgresOTPRepository) SetProvider(ctx context.Context, ref string, provider string) error {
	query := `UPDATE otp_challenges SET provider = $1 WHERE ref = $2`
	res, err := r.db.ExecContext(ctx, query, provider, ref)
	if err != nil {
		return fmt.Errorf("error setting otp provider: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrChallengeNotFound
	}
	return nil
}

// ChargeAttempt increments atomically and only below the ceiling, so
// concurrent verifications can never push the counter past maxAttempts.
func (r *PostgresOTPRepository) ChargeAttempt(ctx context.Context, ref string, maxAttempts int) (int, error) {
	query := `UPDATE otp_challenges SET attempts = attempts + 1
               WHERE ref = $1 AND attempts < $2
               RETURNING attempts`
	var attempts int
	err := r.db.QueryRowContext(ctx, query, ref, maxAttempts).Scan(&attempts)
	if err != nil {
		if err == sql.ErrNoRows {
			// Either the row is missing or the counter is at the ceiling.
			if _, getErr := r.GetByRef(ctx, ref); getErr != nil {
				return 0, getErr
			}
			return 0, ErrAttemptsExhausted
		}
		return 0, fmt.Errorf("error charging otp attempt: %w", err)
	}
	return attempts, nil
}

// MarkVerified flips the verified flag at most once; the conditional update
// makes the first caller the only winner under concurrency.
func (r *PostgresOTPRepository) MarkVerified(ctx context.Context, ref string) (bool, error) {
	query := `UPDATE otp_challenges SET verified = TRUE WHERE ref = $1 AND verified = FALSE`
	res, err := r.db.ExecContext(ctx, query, ref)
	if err != nil {
		return false, fmt.Errorf("error marking otp verified: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("error marking otp verified: %w", err)
	}
	return n == 1, nil
}

func (r *PostgresOTPRepository) scanOne(row *sql.Row) (*otp.Challenge, error) {
	c := &otp.Challenge{}
	var channel string
	err := row.Scan(&c.Ref, &c.StudentID, &c.Code, &channel, &c.Destination, &c.Provider, &c.ExpiresAt, &c.Verified, &c.Attempts, &c.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrChallengeNotFound
		}
		return nil, fmt.Errorf("error scanning otp challenge: %w", err)
	}
	c.Channel = notify.Channel(channel)
	return c, nil
}
