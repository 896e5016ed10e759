package database

import (
	"context"
	"database/sql"
	"fmt"

	"gl3e_manager/internal/domain/student"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// Custom errors
var ErrStudentNotFound = fmt.Errorf("student not found")

type PostgresStudentRepository struct {
	db *sql.DB
}

func NewPostgresStudentRepository(db *sql.DB) *PostgresStudentRepository {
	return &PostgresStudentRepository{db: db}
}

func (r *PostgresStudentRepository) GetByID(ctx context.Context, id int64) (*student.Student, error) {
	query := `SELECT id, full_name, matricule, email, phone, has_project, created_at
               FROM students WHERE id = $1`
	s := &student.Student{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&s.ID, &s.FullName, &s.Matricule, &s.Email, &s.Phone, &s.HasProject, &s.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrStudentNotFound
		}
		return nil, fmt.Errorf("error getting student by ID: %w", err)
	}
	return s, nil
}

func (r *PostgresStudentRepository) GetByFullName(ctx context.Context, fullName string) (*student.Student, error) {
	query := `SELECT id, full_name, matricule, email, phone, has_project, created_at
               FROM students WHERE full_name = $1`
	s := &student.Student{}
	err := r.db.QueryRowContext(ctx, query, fullName).Scan(&s.ID, &s.FullName, &s.Matricule, &s.Email, &s.Phone, &s.HasProject, &s.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrStudentNotFound
		}
		return nil, fmt.Errorf("error getting student by name: %w", err)
	}
	return s, nil
}

func (r *PostgresStudentRepository) List(ctx context.Context) ([]*student.Student, error) {
	query := `SELECT id, full_name, matricule, email, phone, has_project, created_at
               FROM students ORDER BY full_name`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error listing students: %w", err)
	}
	defer rows.Close()

	students := make([]*student.Student, 0)
	for rows.Next() {
		s := &student.Student{}
		if err := rows.Scan(&s.ID, &s.FullName, &s.Matricule, &s.Email, &s.Phone, &s.HasProject, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning student: %w", err)
		}
		students = append(students, s)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating students: %w", err)
	}
	return students, nil
}
