package repository

import (
	"context"
	"errors"

	"github.com/RubachokBoss/mentor-service/internal/models"
)

// ErrDuplicateID is returned by Create when the generated id is already taken.
var ErrDuplicateID = errors.New("record with this id already exists")

// StudentRepository is the "students" collection. GetByID returns nil, nil for an unknown id.
type StudentRepository interface {
	Create(ctx context.Context, student *models.Student) error
	GetByID(ctx context.Context, id string) (*models.Student, error)
	GetAll(ctx context.Context) ([]models.Student, error)
	GetByCurrentMentor(ctx context.Context, mentorID string) ([]models.Student, error)
	// Update writes name, batchNo and course only.
	Update(ctx context.Context, student *models.Student) error
	// SetMentorRefs writes currentTeacherId and prevTeacherId only if the stored
	// currentTeacherId still equals expectedCurrent. It reports whether the write happened.
	SetMentorRefs(ctx context.Context, id string, expectedCurrent, current, prev *string) (bool, error)
	Delete(ctx context.Context, id string) error
	Exists(ctx context.Context, id string) (bool, error)
}

// MentorRepository is the "mentors" collection. GetByID returns nil, nil for an unknown id.
type MentorRepository interface {
	Create(ctx context.Context, mentor *models.Mentor) error
	GetByID(ctx context.Context, id string) (*models.Mentor, error)
	GetAll(ctx context.Context) ([]models.Mentor, error)
	// Update writes name, course and specialized only.
	Update(ctx context.Context, mentor *models.Mentor) error
	// AddStudent appends studentID to the roster unless present. It reports whether the roster changed.
	AddStudent(ctx context.Context, mentorID, studentID string) (bool, error)
	// RemoveStudent pulls studentID from the roster if present. It reports whether the roster changed.
	RemoveStudent(ctx context.Context, mentorID, studentID string) (bool, error)
	Delete(ctx context.Context, id string) error
	Exists(ctx context.Context, id string) (bool, error)
}

// Store bundles both collections of one backend.
type Store struct {
	Students StudentRepository
	Mentors  MentorRepository
	Driver   string

	ping  func(ctx context.Context) error
	close func() error
}

func (s *Store) Ping(ctx context.Context) error {
	if s.ping == nil {
		return nil
	}
	return s.ping(ctx)
}

func (s *Store) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}
