// internal/domain/allocation/project.go
package allocation

import (
	"database/sql"
	"time"
)

// Project is an allocation target with a bounded capacity.
// Invariant: AssignedCount never exceeds MaxAssignments.
type Project struct {
	ID             int64
	Title          string
	Description    sql.NullString
	Features       sql.NullString // JSON blob, opaque to this core
	AssignedCount  int
	MaxAssignments int
	CreatedAt      time.Time
}

// Exhausted reports whether the project can take no further assignment.
func (p *Project) Exhausted() bool {
	return p.AssignedCount >= p.MaxAssignments
}
