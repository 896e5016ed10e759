package app

import (
	"context"
	"fmt"
	"testing"

	"gl3e_manager/internal/domain/allocation"
	"gl3e_manager/internal/domain/student"
	idb "gl3e_manager/internal/infra/database"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStudent(id int64, name string) *student.Student {
	return &student.Student{ID: id, FullName: name, Matricule: fmt.Sprintf("20G%05d", id)}
}

func testProject(id int64, assigned int) *allocation.Project {
	return &allocation.Project{
		ID:             id,
		Title:          fmt.Sprintf("Project %d", id),
		AssignedCount:  assigned,
		MaxAssignments: 2,
	}
}

func TestAllocationService_PrefersUntouchedProjects(t *testing.T) {
	students := newFakeStudentRepo(testStudent(1, "Alice Mbarga"))
	projects := newFakeProjectRepo(students,
		testProject(10, 1),
		testProject(11, 0),
		testProject(12, 1),
	)
	svc := NewAllocationService(students, projects, testLogger())

	p, err := svc.Allocate(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(11), p.ID, "the only untouched project must be drawn")
	assert.Equal(t, 1, p.AssignedCount)

	st, err := students.GetByID(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, st.HasProject)
}

func TestAllocationService_FallsBackToSecondTier(t *testing.T) {
	students := newFakeStudentRepo(testStudent(1, "Alice Mbarga"))
	projects := newFakeProjectRepo(students,
		testProject(10, 1),
		testProject(11, 2),
	)
	svc := NewAllocationService(students, projects, testLogger())

	p, err := svc.Allocate(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(10), p.ID)
	assert.Equal(t, 2, p.AssignedCount)
}

func TestAllocationService_CapacityExhausted(t *testing.T) {
	students := newFakeStudentRepo(testStudent(1, "Alice Mbarga"))
	projects := newFakeProjectRepo(students,
		testProject(10, 2),
		testProject(11, 2),
	)
	svc := NewAllocationService(students, projects, testLogger())

	_, err := svc.Allocate(context.Background(), 1)
	assert.ErrorIs(t, err, ErrCapacityExhausted)
}

func TestAllocationService_StudentAlreadyAllocated(t *testing.T) {
	st := testStudent(1, "Alice Mbarga")
	st.HasProject = true
	students := newFakeStudentRepo(st)
	projects := newFakeProjectRepo(students, testProject(10, 0))
	svc := NewAllocationService(students, projects, testLogger())

	_, err := svc.Allocate(context.Background(), 1)
	assert.ErrorIs(t, err, idb.ErrStudentAlreadyAllocated)
}

func TestAllocationService_UnknownStudent(t *testing.T) {
	students := newFakeStudentRepo()
	projects := newFakeProjectRepo(students, testProject(10, 0))
	svc := NewAllocationService(students, projects, testLogger())

	_, err := svc.Allocate(context.Background(), 99)
	assert.ErrorIs(t, err, idb.ErrStudentNotFound)
}

func TestAllocationService_RedrawsWhenProjectRacesToCapacity(t *testing.T) {
	students := newFakeStudentRepo(testStudent(1, "Alice Mbarga"))
	projects := newFakeProjectRepo(students,
		testProject(10, 0),
		testProject(11, 0),
	)
	projects.forceFullOnce[10] = true
	svc := NewAllocationService(students, projects, testLogger())
	svc.pick = func(n int) int { return 0 } // always draws project 10 first

	p, err := svc.Allocate(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(10), p.ID, "a redraw against fresh tiers may pick the same project again")
}

func TestAllocationService_SpreadsAcrossAllProjectsFirst(t *testing.T) {
	var studentList []*student.Student
	for i := int64(1); i <= 6; i++ {
		studentList = append(studentList, testStudent(i, fmt.Sprintf("Student %d", i)))
	}
	students := newFakeStudentRepo(studentList...)
	projects := newFakeProjectRepo(students,
		testProject(10, 0), testProject(11, 0), testProject(12, 0),
		testProject(13, 0), testProject(14, 0), testProject(15, 0),
	)
	svc := NewAllocationService(students, projects, testLogger())

	for i := int64(1); i <= 6; i++ {
		_, err := svc.Allocate(context.Background(), i)
		require.NoError(t, err)
	}

	// Six students over six projects: nobody shares before everyone holds one.
	for id, p := range projects.projects {
		assert.Equal(t, 1, p.AssignedCount, "project %d", id)
	}
}

func TestAllocationService_Stats(t *testing.T) {
	students := newFakeStudentRepo(testStudent(1, "Alice Mbarga"), testStudent(2, "Bob Nana"))
	projects := newFakeProjectRepo(students, testProject(10, 0), testProject(11, 0))
	svc := NewAllocationService(students, projects, testLogger())

	_, err := svc.Allocate(context.Background(), 1)
	require.NoError(t, err)

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalStudents)
	assert.Equal(t, 1, stats.StudentsWithProjects)
	assert.Equal(t, 2, stats.TotalProjects)
	assert.Equal(t, 1, stats.ProjectsNotAssigned)
	assert.Equal(t, 1, stats.ProjectsAssignedOnce)
}

func TestAllocationService_ListAssignments(t *testing.T) {
	students := newFakeStudentRepo(testStudent(1, "Alice Mbarga"), testStudent(2, "Bob Nana"))
	projects := newFakeProjectRepo(students, testProject(10, 0), testProject(11, 0))
	svc := NewAllocationService(students, projects, testLogger())

	_, err := svc.Allocate(context.Background(), 1)
	require.NoError(t, err)
	_, err = svc.Allocate(context.Background(), 2)
	require.NoError(t, err)

	all, err := svc.ListAssignments(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	filtered, err := svc.ListAssignments(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, "Alice Mbarga", filtered[0].StudentName)
}
