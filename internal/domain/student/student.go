// internal/domain/student/student.go
package student

import (
	"database/sql"
	"time"
)

// Student represents a student eligible for project allocation.
// HasProject transitions false -> true exactly once, never back.
type Student struct {
	ID         int64
	FullName   string
	Matricule  string
	Email      sql.NullString
	Phone      sql.NullString
	HasProject bool
	CreatedAt  time.Time
}
