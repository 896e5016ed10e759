// internal/domain/allocation/repository.go
package allocation

import "context"

// Repository defines persistence for projects and assignments.
//
// Allocate is the transactional boundary of the allocation engine: the
// student's "not yet allocated" state is re-verified, the project capacity
// guard is applied, the Assignment row is created and the has_project flag is
// flipped as one atomic unit. It returns ErrProjectFull when the chosen
// project raced to capacity (caller redraws) and ErrStudentAlreadyAllocated
// when a concurrent allocation for the same student won.
type Repository interface {
	GetProject(ctx context.Context, id int64) (*Project, error)
	// ListByAssignedCount returns all projects currently at the given
	// assignment count and still below their capacity.
	ListByAssignedCount(ctx context.Context, count int) ([]*Project, error)
	Allocate(ctx context.Context, studentID, projectID int64) (*Assignment, error)
	Stats(ctx context.Context) (*Stats, error)
	// ListAssignments returns assignment details, newest first, optionally
	// filtered by a case-insensitive student-name match.
	ListAssignments(ctx context.Context, search string) ([]*AssignmentDetail, error)
}
