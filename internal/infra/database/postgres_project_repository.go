package database

import (
	"context"
	"database/sql"
	"fmt"

	"gl3e_manager/internal/domain/allocation"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// Custom errors
var ErrProjectNotFound = fmt.Errorf("project not found")
var ErrProjectFull = fmt.Errorf("project has reached its assignment capacity")
var ErrStudentAlreadyAllocated = fmt.Errorf("student already has a project")

type PostgresProjectRepository struct {
	db *sql.DB
}

func NewPostgresProjectRepository(db *sql.DB) *PostgresProjectRepository {
	return &PostgresProjectRepository{db: db}
}

const projectColumns = `id, title, description, features, assigned_count, max_assignments, created_at`

func (r *PostgresProjectRepository) GetProject(ctx context.Context, id int64) (*allocation.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE id = $1`
	p := &allocation.Project{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&p.ID, &p.Title, &p.Description, &p.Features, &p.AssignedCount, &p.MaxAssignments, &p.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("error getting project: %w", err)
	}
	return p, nil
}

func (r *PostgresProjectRepository) ListByAssignedCount(ctx context.Context, count int) ([]*allocation.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects
               WHERE assigned_count = $1 AND assigned_count < max_assignments
               ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, count)
	if err != nil {
		return nil, fmt.Errorf("error listing projects by assigned count: %w", err)
	}
	defer rows.Close()

	projects := make([]*allocation.Project, 0)
	for rows.Next() {
		p := &allocation.Project{}
		if err := rows.Scan(&p.ID, &p.Title, &p.Description, &p.Features, &p.AssignedCount, &p.MaxAssignments, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning project: %w", err)
		}
		projects = append(projects, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating projects: %w", err)
	}
	return projects, nil
}

// Allocate applies the three allocation effects as a single transaction:
// capacity-guarded counter increment, assignment insert, has_project flip.
// The student's allocation state is re-read under FOR UPDATE so two
// concurrent requests for the same student cannot both succeed.
func (r *PostgresProjectRepository) Allocate(ctx context.Context, studentID, projectID int64) (*allocation.Assignment, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("error beginning allocation transaction: %w", err)
	}
	defer tx.Rollback()

	var hasProject bool
	err = tx.QueryRowContext(ctx,
		`SELECT has_project FROM students WHERE id = $1 FOR UPDATE`, studentID,
	).Scan(&hasProject)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrStudentNotFound
		}
		return nil, fmt.Errorf("error locking student row: %w", err)
	}
	if hasProject {
		return nil, ErrStudentAlreadyAllocated
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE projects SET assigned_count = assigned_count + 1
          WHERE id = $1 AND assigned_count < max_assignments`, projectID,
	)
	if err != nil {
		return nil, fmt.Errorf("error incrementing project assigned count: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrProjectFull
	}

	a := &allocation.Assignment{StudentID: studentID, ProjectID: projectID}
	err = tx.QueryRowContext(ctx,
		`INSERT INTO assignments (student_id, project_id) VALUES ($1, $2)
          RETURNING id, assigned_at`, studentID, projectID,
	).Scan(&a.ID, &a.AssignedAt)
	if err != nil {
		return nil, fmt.Errorf("error creating assignment: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE students SET has_project = TRUE WHERE id = $1`, studentID,
	); err != nil {
		return nil, fmt.Errorf("error flipping student has_project: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("error committing allocation: %w", err)
	}
	return a, nil
}

func (r *PostgresProjectRepository) Stats(ctx context.Context) (*allocation.Stats, error) {
	query := `SELECT
               (SELECT COUNT(*) FROM students),
               (SELECT COUNT(*) FROM students WHERE has_project = TRUE),
               (SELECT COUNT(*) FROM projects),
               (SELECT COUNT(*) FROM projects WHERE assigned_count = 0),
               (SELECT COUNT(*) FROM projects WHERE assigned_count = 1),
               (SELECT COUNT(*) FROM projects WHERE assigned_count >= 2)`

	s := &allocation.Stats{}
	err := r.db.QueryRowContext(ctx, query).Scan(
		&s.TotalStudents, &s.StudentsWithProjects, &s.TotalProjects,
		&s.ProjectsNotAssigned, &s.ProjectsAssignedOnce, &s.ProjectsAssignedTwice,
	)
	if err != nil {
		return nil, fmt.Errorf("error loading allocation stats: %w", err)
	}
	return s, nil
}

func (r *PostgresProjectRepository) ListAssignments(ctx context.Context, search string) ([]*allocation.AssignmentDetail, error) {
	query := `SELECT a.id, s.full_name, s.matricule, p.title, a.assigned_at
               FROM assignments a
               JOIN students s ON s.id = a.student_id
               JOIN projects p ON p.id = a.project_id`
	args := []any{}
	if search != "" {
		query += ` WHERE s.full_name ILIKE $1`
		args = append(args, "%"+search+"%")
	}
	query += ` ORDER BY a.assigned_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing assignments: %w", err)
	}
	defer rows.Close()

	details := make([]*allocation.AssignmentDetail, 0)
	for rows.Next() {
		d := &allocation.AssignmentDetail{}
		if err := rows.Scan(&d.ID, &d.StudentName, &d.StudentMatricule, &d.ProjectTitle, &d.AssignedAt); err != nil {
			return nil, fmt.Errorf("error scanning assignment detail: %w", err)
		}
		details = append(details, d)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating assignments: %w", err)
	}
	return details, nil
}
