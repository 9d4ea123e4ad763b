package repository

import (
	"context"
	"sync"
	"time"

	"github.com/RubachokBoss/mentor-service/internal/models"
)

// memoryState keeps both collections behind one lock. Records are copied on
// the way in and out so callers never share rosters or pointers with the store.
type memoryState struct {
	mu            sync.RWMutex
	students      map[string]models.Student
	studentsOrder []string
	mentors       map[string]models.Mentor
	mentorsOrder  []string
}

// NewMemoryStore returns a process-local store, used by tests and store.driver=memory.
func NewMemoryStore() *Store {
	state := &memoryState{
		students: make(map[string]models.Student),
		mentors:  make(map[string]models.Mentor),
	}
	return &Store{
		Students: &memoryStudentRepository{state: state},
		Mentors:  &memoryMentorRepository{state: state},
		Driver:   "memory",
	}
}

func copyStudent(s models.Student) models.Student {
	out := s
	if s.CurrentTeacherID != nil {
		v := *s.CurrentTeacherID
		out.CurrentTeacherID = &v
	}
	if s.PrevTeacherID != nil {
		v := *s.PrevTeacherID
		out.PrevTeacherID = &v
	}
	return out
}

func copyMentor(m models.Mentor) models.Mentor {
	out := m
	out.Students = m.Students.Clone()
	return out
}

func removeID(ids []string, id string) []string {
	for i, v := range ids {
		if v == id {
			return append(ids[:i:i], ids[i+1:]...)
		}
	}
	return ids
}

func sameRef(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

type memoryStudentRepository struct {
	state *memoryState
}

func (r *memoryStudentRepository) Create(ctx context.Context, student *models.Student) error {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()

	if _, ok := r.state.students[student.ID]; ok {
		return ErrDuplicateID
	}
	r.state.students[student.ID] = copyStudent(*student)
	r.state.studentsOrder = append(r.state.studentsOrder, student.ID)
	return nil
}

func (r *memoryStudentRepository) GetByID(ctx context.Context, id string) (*models.Student, error) {
	r.state.mu.RLock()
	defer r.state.mu.RUnlock()

	student, ok := r.state.students[id]
	if !ok {
		return nil, nil
	}
	out := copyStudent(student)
	return &out, nil
}

func (r *memoryStudentRepository) GetAll(ctx context.Context) ([]models.Student, error) {
	r.state.mu.RLock()
	defer r.state.mu.RUnlock()

	students := make([]models.Student, 0, len(r.state.studentsOrder))
	for _, id := range r.state.studentsOrder {
		students = append(students, copyStudent(r.state.students[id]))
	}
	return students, nil
}

func (r *memoryStudentRepository) GetByCurrentMentor(ctx context.Context, mentorID string) ([]models.Student, error) {
	r.state.mu.RLock()
	defer r.state.mu.RUnlock()

	students := make([]models.Student, 0)
	for _, id := range r.state.studentsOrder {
		student := r.state.students[id]
		if student.IsAssignedTo(mentorID) {
			students = append(students, copyStudent(student))
		}
	}
	return students, nil
}

func (r *memoryStudentRepository) Update(ctx context.Context, student *models.Student) error {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()

	stored, ok := r.state.students[student.ID]
	if !ok {
		return nil
	}
	stored.Name = student.Name
	stored.BatchNo = student.BatchNo
	stored.Course = student.Course
	stored.UpdatedAt = student.UpdatedAt
	r.state.students[student.ID] = stored
	return nil
}

func (r *memoryStudentRepository) SetMentorRefs(ctx context.Context, id string, expectedCurrent, current, prev *string) (bool, error) {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()

	stored, ok := r.state.students[id]
	if !ok || !sameRef(stored.CurrentTeacherID, expectedCurrent) {
		return false, nil
	}
	updated := stored
	updated.CurrentTeacherID = current
	updated.PrevTeacherID = prev
	updated.UpdatedAt = time.Now()
	r.state.students[id] = copyStudent(updated)
	return true, nil
}

func (r *memoryStudentRepository) Delete(ctx context.Context, id string) error {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()

	if _, ok := r.state.students[id]; !ok {
		return nil
	}
	delete(r.state.students, id)
	r.state.studentsOrder = removeID(r.state.studentsOrder, id)
	return nil
}

func (r *memoryStudentRepository) Exists(ctx context.Context, id string) (bool, error) {
	r.state.mu.RLock()
	defer r.state.mu.RUnlock()

	_, ok := r.state.students[id]
	return ok, nil
}

type memoryMentorRepository struct {
	state *memoryState
}

func (r *memoryMentorRepository) Create(ctx context.Context, mentor *models.Mentor) error {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()

	if _, ok := r.state.mentors[mentor.ID]; ok {
		return ErrDuplicateID
	}
	r.state.mentors[mentor.ID] = copyMentor(*mentor)
	r.state.mentorsOrder = append(r.state.mentorsOrder, mentor.ID)
	return nil
}

func (r *memoryMentorRepository) GetByID(ctx context.Context, id string) (*models.Mentor, error) {
	r.state.mu.RLock()
	defer r.state.mu.RUnlock()

	mentor, ok := r.state.mentors[id]
	if !ok {
		return nil, nil
	}
	out := copyMentor(mentor)
	return &out, nil
}

func (r *memoryMentorRepository) GetAll(ctx context.Context) ([]models.Mentor, error) {
	r.state.mu.RLock()
	defer r.state.mu.RUnlock()

	mentors := make([]models.Mentor, 0, len(r.state.mentorsOrder))
	for _, id := range r.state.mentorsOrder {
		mentors = append(mentors, copyMentor(r.state.mentors[id]))
	}
	return mentors, nil
}

func (r *memoryMentorRepository) Update(ctx context.Context, mentor *models.Mentor) error {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()

	stored, ok := r.state.mentors[mentor.ID]
	if !ok {
		return nil
	}
	stored.Name = mentor.Name
	stored.Course = mentor.Course
	stored.Specialized = mentor.Specialized
	stored.UpdatedAt = mentor.UpdatedAt
	r.state.mentors[mentor.ID] = stored
	return nil
}

func (r *memoryMentorRepository) AddStudent(ctx context.Context, mentorID, studentID string) (bool, error) {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()

	stored, ok := r.state.mentors[mentorID]
	if !ok {
		return false, nil
	}
	roster := stored.Students.Clone()
	if !roster.Add(studentID) {
		return false, nil
	}
	stored.Students = roster
	stored.UpdatedAt = time.Now()
	r.state.mentors[mentorID] = stored
	return true, nil
}

func (r *memoryMentorRepository) RemoveStudent(ctx context.Context, mentorID, studentID string) (bool, error) {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()

	stored, ok := r.state.mentors[mentorID]
	if !ok {
		return false, nil
	}
	roster := stored.Students.Clone()
	if !roster.Remove(studentID) {
		return false, nil
	}
	stored.Students = roster
	stored.UpdatedAt = time.Now()
	r.state.mentors[mentorID] = stored
	return true, nil
}

func (r *memoryMentorRepository) Delete(ctx context.Context, id string) error {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()

	if _, ok := r.state.mentors[id]; !ok {
		return nil
	}
	delete(r.state.mentors, id)
	r.state.mentorsOrder = removeID(r.state.mentorsOrder, id)
	return nil
}

func (r *memoryMentorRepository) Exists(ctx context.Context, id string) (bool, error) {
	r.state.mu.RLock()
	defer r.state.mu.RUnlock()

	_, ok := r.state.mentors[id]
	return ok, nil
}
