package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/RubachokBoss/mentor-service/internal/lock"
	"github.com/RubachokBoss/mentor-service/internal/models"
	"github.com/RubachokBoss/mentor-service/internal/repository"
	"github.com/RubachokBoss/mentor-service/internal/worker"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errStoreDown = errors.New("connection refused")

// faultyMentors fails the next N roster writes of each kind, and every read while readsDown is set.
type faultyMentors struct {
	repository.MentorRepository

	mu             sync.Mutex
	addFailures    int
	removeFailures int
	addCalls       int
	removeCalls    int
	readsDown      bool
	beforeAdd      func()
}

func (f *faultyMentors) failAdds(n int) {
	f.mu.Lock()
	f.addFailures = n
	f.mu.Unlock()
}

func (f *faultyMentors) failRemoves(n int) {
	f.mu.Lock()
	f.removeFailures = n
	f.mu.Unlock()
}

func (f *faultyMentors) failReads(down bool) {
	f.mu.Lock()
	f.readsDown = down
	f.mu.Unlock()
}

func (f *faultyMentors) readErr() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.readsDown {
		return errStoreDown
	}
	return nil
}

func (f *faultyMentors) GetByID(ctx context.Context, id string) (*models.Mentor, error) {
	if err := f.readErr(); err != nil {
		return nil, err
	}
	return f.MentorRepository.GetByID(ctx, id)
}

func (f *faultyMentors) GetAll(ctx context.Context) ([]models.Mentor, error) {
	if err := f.readErr(); err != nil {
		return nil, err
	}
	return f.MentorRepository.GetAll(ctx)
}

func (f *faultyMentors) Exists(ctx context.Context, id string) (bool, error) {
	if err := f.readErr(); err != nil {
		return false, err
	}
	return f.MentorRepository.Exists(ctx, id)
}

func (f *faultyMentors) AddStudent(ctx context.Context, mentorID, studentID string) (bool, error) {
	f.mu.Lock()
	f.addCalls++
	if f.addFailures > 0 {
		f.addFailures--
		f.mu.Unlock()
		return false, errStoreDown
	}
	hook := f.beforeAdd
	f.mu.Unlock()

	if hook != nil {
		hook()
	}
	return f.MentorRepository.AddStudent(ctx, mentorID, studentID)
}

func (f *faultyMentors) RemoveStudent(ctx context.Context, mentorID, studentID string) (bool, error) {
	f.mu.Lock()
	f.removeCalls++
	if f.removeFailures > 0 {
		f.removeFailures--
		f.mu.Unlock()
		return false, errStoreDown
	}
	f.mu.Unlock()
	return f.MentorRepository.RemoveStudent(ctx, mentorID, studentID)
}

// faultyStudents fails every read while readsDown is set. Writes pass through.
type faultyStudents struct {
	repository.StudentRepository

	mu        sync.Mutex
	readsDown bool
}

func (f *faultyStudents) failReads(down bool) {
	f.mu.Lock()
	f.readsDown = down
	f.mu.Unlock()
}

func (f *faultyStudents) readErr() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.readsDown {
		return errStoreDown
	}
	return nil
}

func (f *faultyStudents) GetByID(ctx context.Context, id string) (*models.Student, error) {
	if err := f.readErr(); err != nil {
		return nil, err
	}
	return f.StudentRepository.GetByID(ctx, id)
}

func (f *faultyStudents) GetAll(ctx context.Context) ([]models.Student, error) {
	if err := f.readErr(); err != nil {
		return nil, err
	}
	return f.StudentRepository.GetAll(ctx)
}

func (f *faultyStudents) GetByCurrentMentor(ctx context.Context, mentorID string) ([]models.Student, error) {
	if err := f.readErr(); err != nil {
		return nil, err
	}
	return f.StudentRepository.GetByCurrentMentor(ctx, mentorID)
}

func (f *faultyStudents) Exists(ctx context.Context, id string) (bool, error) {
	if err := f.readErr(); err != nil {
		return false, err
	}
	return f.StudentRepository.Exists(ctx, id)
}

// recordingPublisher keeps every published event type in order.
type recordingPublisher struct {
	mu     sync.Mutex
	events []models.AssignmentEvent
}

func (p *recordingPublisher) PublishAssignmentEvent(ctx context.Context, event *models.AssignmentEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, *event)
	return nil
}

func (p *recordingPublisher) Close() error {
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type testEnv struct {
	store     *repository.Store
	students  *faultyStudents
	mentors   *faultyMentors
	publisher *recordingPublisher
	pool      *worker.WorkerPool
	svc       AssignmentService
}

func newTestEnv(t *testing.T, opts AssignmentOptions) *testEnv {
	t.Helper()

	store := repository.NewMemoryStore()
	students := &faultyStudents{StudentRepository: store.Students}
	mentors := &faultyMentors{MentorRepository: store.Mentors}
	publisher := &recordingPublisher{}

	pool := worker.NewWorkerPool(4, zerolog.Nop())
	pool.Start()
	t.Cleanup(pool.Stop)

	svc := NewAssignmentService(students, mentors, lock.NewLocal(), pool, publisher, opts, zerolog.Nop())

	return &testEnv{
		store:     store,
		students:  students,
		mentors:   mentors,
		publisher: publisher,
		pool:      pool,
		svc:       svc,
	}
}

func fastOptions() AssignmentOptions {
	opts := DefaultAssignmentOptions()
	opts.RetryDelay = 0
	return opts
}

func (e *testEnv) addStudent(t *testing.T, id string) {
	t.Helper()
	require.NoError(t, e.store.Students.Create(context.Background(), &models.Student{
		ID:      id,
		Name:    "student " + id,
		BatchNo: "B1",
		Course:  "Go",
	}))
}

func (e *testEnv) addMentor(t *testing.T, id string) {
	t.Helper()
	require.NoError(t, e.store.Mentors.Create(context.Background(), &models.Mentor{
		ID:          id,
		Name:        "mentor " + id,
		Course:      "Go",
		Specialized: "Backend",
		Students:    models.Roster{},
	}))
}

func (e *testEnv) student(t *testing.T, id string) *models.Student {
	t.Helper()
	s, err := e.store.Students.GetByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, s)
	return s
}

func (e *testEnv) roster(t *testing.T, id string) models.Roster {
	t.Helper()
	m, err := e.store.Mentors.GetByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, m)
	return m.Students
}

// assertMirrored checks that every current mentor reference has exactly one
// roster entry and every roster entry points back at its mentor.
func (e *testEnv) assertMirrored(t *testing.T) {
	t.Helper()
	ctx := context.Background()

	students, err := e.store.Students.GetAll(ctx)
	require.NoError(t, err)
	mentors, err := e.store.Mentors.GetAll(ctx)
	require.NoError(t, err)

	for _, s := range students {
		if !s.HasMentor() {
			for _, m := range mentors {
				assert.Falsef(t, m.Students.Contains(s.ID), "unassigned student %s listed by mentor %s", s.ID, m.ID)
			}
			continue
		}
		holders := 0
		for _, m := range mentors {
			if m.Students.Contains(s.ID) {
				holders++
				assert.Equalf(t, s.CurrentMentor(), m.ID, "student %s listed by wrong mentor", s.ID)
			}
		}
		assert.Equalf(t, 1, holders, "student %s should be listed exactly once", s.ID)
		assert.NotEqualf(t, s.CurrentMentor(), s.PreviousMentor(), "student %s has prev == current", s.ID)
	}

	for _, m := range mentors {
		seen := make(map[string]struct{})
		for _, id := range m.Students {
			_, dup := seen[id]
			assert.Falsef(t, dup, "mentor %s lists %s twice", m.ID, id)
			seen[id] = struct{}{}
		}
	}
}
