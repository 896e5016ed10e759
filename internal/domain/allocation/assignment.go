// internal/domain/allocation/assignment.go
package allocation

import "time"

// Assignment is the immutable student <-> project join record, created exactly
// once per successful allocation.
type Assignment struct {
	ID         int64
	StudentID  int64
	ProjectID  int64
	AssignedAt time.Time
}

// AssignmentDetail is an Assignment joined with student and project display
// fields, for listing pages.
type AssignmentDetail struct {
	ID               int64
	StudentName      string
	StudentMatricule string
	ProjectTitle     string
	AssignedAt       time.Time
}

// Stats summarizes allocation progress across students and projects.
type Stats struct {
	TotalStudents          int
	StudentsWithProjects   int
	TotalProjects          int
	ProjectsNotAssigned    int
	ProjectsAssignedOnce   int
	ProjectsAssignedTwice  int
}
