package app

import (
	"context"
	"database/sql"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"gl3e_manager/internal/domain/allocation"
	"gl3e_manager/internal/domain/audit"
	"gl3e_manager/internal/domain/notify"
	"gl3e_manager/internal/domain/otp"
	"gl3e_manager/internal/domain/student"
	idb "gl3e_manager/internal/infra/database"

	"github.com/sirupsen/logrus"
)

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// fakeOTPRepo is an in-memory otp.Repository with the same atomicity
// guarantees the Postgres implementation provides.
type fakeOTPRepo struct {
	mu         sync.Mutex
	challenges map[string]*otp.Challenge
}

func newFakeOTPRepo() *fakeOTPRepo {
	return &fakeOTPRepo{challenges: make(map[string]*otp.Challenge)}
}

func (r *fakeOTPRepo) Create(_ context.Context, c *otp.Challenge) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c.CreatedAt = time.Now().UTC()
	stored := *c
	r.challenges[c.Ref] = &stored
	return nil
}

func (r *fakeOTPRepo) GetByRef(_ context.Context, ref string) (*otp.Challenge, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.challenges[ref]
	if !ok {
		return nil, idb.ErrChallengeNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *fakeOTPRepo) GetActiveByStudent(_ context.Context, studentID int64, maxAttempts int) (*otp.Challenge, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var newest *otp.Challenge
	now := time.Now().UTC()
	for _, c := range r.challenges {
		if c.StudentID != studentID || c.Verified || c.Expired(now) || c.Attempts >= maxAttempts {
			continue
		}
		if newest == nil || c.CreatedAt.After(newest.CreatedAt) {
			newest = c
		}
	}
	if newest == nil {
		return nil, idb.ErrChallengeNotFound
	}
	cp := *newest
	return &cp, nil
}

func (r *fakeOTPRepo) SetProvider(_ context.Context, ref, provider string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.challenges[ref]
	if !ok {
		return idb.ErrChallengeNotFound
	}
	c.Provider = sql.NullString{String: provider, Valid: true}
	return nil
}

func (r *fakeOTPRepo) ChargeAttempt(_ context.Context, ref string, maxAttempts int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.challenges[ref]
	if !ok {
		return 0, idb.ErrChallengeNotFound
	}
	if c.Attempts >= maxAttempts {
		return 0, idb.ErrAttemptsExhausted
	}
	c.Attempts++
	return c.Attempts, nil
}

func (r *fakeOTPRepo) MarkVerified(_ context.Context, ref string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.challenges[ref]
	if !ok {
		return false, idb.ErrChallengeNotFound
	}
	if c.Verified {
		return false, nil
	}
	c.Verified = true
	return true, nil
}

// mutate runs fn against the stored challenge, bypassing the repository
// contract. Test-only backdoor for forcing expiry and similar states.
func (r *fakeOTPRepo) mutate(ref string, fn func(c *otp.Challenge)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.challenges[ref]; ok {
		fn(c)
	}
}

// fakeStudentRepo is an in-memory student.Repository.
type fakeStudentRepo struct {
	mu   sync.Mutex
	byID map[int64]*student.Student
}

func newFakeStudentRepo(students ...*student.Student) *fakeStudentRepo {
	r := &fakeStudentRepo{byID: make(map[int64]*student.Student)}
	for _, st := range students {
		cp := *st
		r.byID[st.ID] = &cp
	}
	return r
}

func (r *fakeStudentRepo) GetByID(_ context.Context, id int64) (*student.Student, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.byID[id]
	if !ok {
		return nil, idb.ErrStudentNotFound
	}
	cp := *st
	return &cp, nil
}

func (r *fakeStudentRepo) GetByFullName(_ context.Context, fullName string) (*student.Student, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, st := range r.byID {
		if st.FullName == fullName {
			cp := *st
			return &cp, nil
		}
	}
	return nil, idb.ErrStudentNotFound
}

func (r *fakeStudentRepo) List(_ context.Context) ([]*student.Student, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*student.Student, 0, len(r.byID))
	for _, st := range r.byID {
		cp := *st
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// fakeProjectRepo is an in-memory allocation.Repository. Allocate mirrors the
// Postgres transaction: student re-check, capacity guard, assignment insert
// and has_project flip under one lock.
type fakeProjectRepo struct {
	mu               sync.Mutex
	projects         map[int64]*allocation.Project
	students         *fakeStudentRepo
	assignments      []*allocation.Assignment
	nextAssignmentID int64
	// forceFullOnce makes the next Allocate for the project fail with
	// ErrProjectFull, simulating a lost capacity race.
	forceFullOnce map[int64]bool
}

func newFakeProjectRepo(students *fakeStudentRepo, projects ...*allocation.Project) *fakeProjectRepo {
	r := &fakeProjectRepo{
		projects:      make(map[int64]*allocation.Project),
		students:      students,
		forceFullOnce: make(map[int64]bool),
	}
	for _, p := range projects {
		cp := *p
		if cp.MaxAssignments == 0 {
			cp.MaxAssignments = 2
		}
		r.projects[p.ID] = &cp
	}
	return r
}

func (r *fakeProjectRepo) GetProject(_ context.Context, id int64) (*allocation.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.projects[id]
	if !ok {
		return nil, idb.ErrProjectNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *fakeProjectRepo) ListByAssignedCount(_ context.Context, count int) ([]*allocation.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*allocation.Project
	for _, p := range r.projects {
		if p.AssignedCount == count && !p.Exhausted() {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeProjectRepo) Allocate(_ context.Context, studentID, projectID int64) (*allocation.Assignment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.forceFullOnce[projectID] {
		delete(r.forceFullOnce, projectID)
		return nil, idb.ErrProjectFull
	}

	r.students.mu.Lock()
	st, ok := r.students.byID[studentID]
	if !ok {
		r.students.mu.Unlock()
		return nil, idb.ErrStudentNotFound
	}
	if st.HasProject {
		r.students.mu.Unlock()
		return nil, idb.ErrStudentAlreadyAllocated
	}

	p, ok := r.projects[projectID]
	if !ok {
		r.students.mu.Unlock()
		return nil, idb.ErrProjectNotFound
	}
	if p.Exhausted() {
		r.students.mu.Unlock()
		return nil, idb.ErrProjectFull
	}

	p.AssignedCount++
	st.HasProject = true
	r.students.mu.Unlock()

	r.nextAssignmentID++
	asg := &allocation.Assignment{
		ID:         r.nextAssignmentID,
		StudentID:  studentID,
		ProjectID:  projectID,
		AssignedAt: time.Now().UTC(),
	}
	r.assignments = append(r.assignments, asg)
	return asg, nil
}

func (r *fakeProjectRepo) Stats(ctx context.Context) (*allocation.Stats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := &allocation.Stats{TotalProjects: len(r.projects)}
	for _, p := range r.projects {
		switch p.AssignedCount {
		case 0:
			s.ProjectsNotAssigned++
		case 1:
			s.ProjectsAssignedOnce++
		default:
			s.ProjectsAssignedTwice++
		}
	}
	r.students.mu.Lock()
	for _, st := range r.students.byID {
		s.TotalStudents++
		if st.HasProject {
			s.StudentsWithProjects++
		}
	}
	r.students.mu.Unlock()
	return s, nil
}

func (r *fakeProjectRepo) ListAssignments(_ context.Context, search string) ([]*allocation.AssignmentDetail, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*allocation.AssignmentDetail
	for _, asg := range r.assignments {
		st := r.students.byID[asg.StudentID]
		p := r.projects[asg.ProjectID]
		if search != "" && st != nil && !containsFold(st.FullName, search) {
			continue
		}
		detail := &allocation.AssignmentDetail{ID: asg.ID, AssignedAt: asg.AssignedAt}
		if st != nil {
			detail.StudentName = st.FullName
			detail.StudentMatricule = st.Matricule
		}
		if p != nil {
			detail.ProjectTitle = p.Title
		}
		out = append(out, detail)
	}
	return out, nil
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

// fakeProvider is a scriptable notify.Provider. failuresLeft > 0 makes the
// next sends fail; every call is counted.
type fakeProvider struct {
	mu           sync.Mutex
	name         string
	failuresLeft int
	err          error
	calls        int
	lastBody     string
	lastDest     string
}

func newFakeProvider(name string) *fakeProvider {
	return &fakeProvider{name: name}
}

func (p *fakeProvider) Name() string { return p.name }

func (p *fakeProvider) Send(_ context.Context, destination string, payload notify.Payload) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	p.lastDest = destination
	p.lastBody = payload.Body
	if p.failuresLeft > 0 {
		p.failuresLeft--
		if p.err != nil {
			return p.err
		}
		return errFakeSend
	}
	return nil
}

func (p *fakeProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

var errFakeSend = errFake("provider rejected the message")

type errFake string

func (e errFake) Error() string { return string(e) }

// fakeSink captures audit entries for assertions.
type fakeSink struct {
	mu      sync.Mutex
	entries []*audit.Entry
}

func (s *fakeSink) Record(_ context.Context, e *audit.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *e
	s.entries = append(s.entries, &cp)
	return nil
}

func (s *fakeSink) actions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e.Action)
	}
	return out
}
