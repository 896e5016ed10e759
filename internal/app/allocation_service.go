// internal/app/allocation_service.go
package app

import (
	"context"
	"errors"
	"fmt"
	"math/rand"

	"gl3e_manager/internal/domain/allocation"
	"gl3e_manager/internal/domain/student"
	idb "gl3e_manager/internal/infra/database"

	"github.com/sirupsen/logrus"
)

// ErrCapacityExhausted means every project has reached max_assignments.
var ErrCapacityExhausted = errors.New("all projects have been assigned")

// AllocationService assigns projects to students. Selection is tier-first:
// draw uniformly among projects nobody holds yet, and only once that pool is
// empty fall back to projects held by a single student. This spreads
// assignments maximally before any project is shared.
type AllocationService struct {
	students student.Repository
	projects allocation.Repository
	logger   *logrus.Logger

	pick func(n int) int
}

func NewAllocationService(students student.Repository, projects allocation.Repository, logger *logrus.Logger) *AllocationService {
	return &AllocationService{
		students: students,
		projects: projects,
		logger:   logger,
		pick:     rand.Intn,
	}
}

// Allocate assigns a random project from the lowest non-empty tier to the
// student. The counter increment, assignment insert and has_project flip are
// committed atomically by the repository; if the drawn project races to
// capacity the draw is simply repeated against fresh tiers.
func (s *AllocationService) Allocate(ctx context.Context, studentID int64) (*allocation.Project, error) {
	st, err := s.students.GetByID(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if st.HasProject {
		return nil, idb.ErrStudentAlreadyAllocated
	}

	for {
		candidates, err := s.projects.ListByAssignedCount(ctx, 0)
		if err != nil {
			return nil, fmt.Errorf("failed to list unassigned projects: %w", err)
		}
		if len(candidates) == 0 {
			candidates, err = s.projects.ListByAssignedCount(ctx, 1)
			if err != nil {
				return nil, fmt.Errorf("failed to list once-assigned projects: %w", err)
			}
		}
		if len(candidates) == 0 {
			return nil, ErrCapacityExhausted
		}

		chosen := candidates[s.pick(len(candidates))]
		asg, err := s.projects.Allocate(ctx, studentID, chosen.ID)
		if err != nil {
			if err == idb.ErrProjectFull {
				// Lost the race for this project; redraw.
				continue
			}
			return nil, err
		}

		s.logger.WithFields(logrus.Fields{
			"student":    studentID,
			"project":    chosen.ID,
			"assignment": asg.ID,
		}).Info("project allocated")

		chosen.AssignedCount++
		return chosen, nil
	}
}

// Stats summarizes allocation progress.
func (s *AllocationService) Stats(ctx context.Context) (*allocation.Stats, error) {
	return s.projects.Stats(ctx)
}

// ListAssignments returns assignment details, optionally filtered by student
// name.
func (s *AllocationService) ListAssignments(ctx context.Context, search string) ([]*allocation.AssignmentDetail, error) {
	return s.projects.ListAssignments(ctx, search)
}
