package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/RubachokBoss/mentor-service/internal/models"
	"github.com/RubachokBoss/mentor-service/internal/repository"
	"github.com/RubachokBoss/mentor-service/pkg/idgen"
	"github.com/rs/zerolog"
)

type StudentService interface {
	CreateStudent(ctx context.Context, req *models.CreateStudentRequest) (*models.Student, error)
	GetStudent(ctx context.Context, id string) (*models.Student, error)
	ListStudents(ctx context.Context) ([]models.Student, error)
	UpdateStudent(ctx context.Context, id string, req *models.UpdateStudentRequest) (*models.Student, error)
}

type studentService struct {
	studentRepo repository.StudentRepository
	newID       idgen.Generator
	maxAttempts int
	logger      zerolog.Logger
}

func NewStudentService(studentRepo repository.StudentRepository, newID idgen.Generator, maxAttempts int, logger zerolog.Logger) StudentService {
	if newID == nil {
		newID = idgen.New
	}
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &studentService{
		studentRepo: studentRepo,
		newID:       newID,
		maxAttempts: maxAttempts,
		logger:      logger,
	}
}

func (s *studentService) CreateStudent(ctx context.Context, req *models.CreateStudentRequest) (*models.Student, error) {
	const op = "CreateStudent"

	if req == nil {
		return nil, invalidInput(op, "request body is required")
	}
	if err := validateRequest(op, req); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	student := &models.Student{
		Name:      strings.TrimSpace(req.Name),
		BatchNo:   strings.TrimSpace(req.BatchNo),
		Course:    strings.TrimSpace(req.Course),
		CreatedAt: now,
		UpdatedAt: now,
	}

	id, err := uniqueID(ctx, s.newID, s.maxAttempts, s.studentRepo.Exists, func(id string) error {
		student.ID = id
		return s.studentRepo.Create(ctx, student)
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateID) {
			return nil, alreadyAssigned(op, "could not allocate a unique student id")
		}
		return nil, storeUnavailable(op, "", err)
	}

	s.logger.Info().
		Str("student_id", id).
		Str("course", student.Course).
		Msg("Student created")

	return student, nil
}

func (s *studentService) GetStudent(ctx context.Context, id string) (*models.Student, error) {
	const op = "GetStudent"

	if strings.TrimSpace(id) == "" {
		return nil, invalidInput(op, "student ID is required")
	}

	student, err := s.studentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, storeUnavailable(op, "", err)
	}
	if student == nil {
		return nil, notFound(op, "student with ID %s not found", id)
	}

	return student, nil
}

func (s *studentService) ListStudents(ctx context.Context) ([]models.Student, error) {
	students, err := s.studentRepo.GetAll(ctx)
	if err != nil {
		return nil, storeUnavailable("ListStudents", "", err)
	}
	if students == nil {
		students = []models.Student{}
	}
	return students, nil
}

func (s *studentService) UpdateStudent(ctx context.Context, id string, req *models.UpdateStudentRequest) (*models.Student, error) {
	const op = "UpdateStudent"

	if strings.TrimSpace(id) == "" {
		return nil, invalidInput(op, "student ID is required")
	}
	if req == nil || req.IsEmpty() {
		return nil, invalidInput(op, "nothing to update")
	}

	student, err := s.studentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, storeUnavailable(op, "", err)
	}
	if student == nil {
		return nil, notFound(op, "student with ID %s not found", id)
	}

	if req.Name != nil {
		student.Name = strings.TrimSpace(*req.Name)
	}
	if req.BatchNo != nil {
		student.BatchNo = strings.TrimSpace(*req.BatchNo)
	}
	if req.Course != nil {
		student.Course = strings.TrimSpace(*req.Course)
	}
	if student.Name == "" || student.BatchNo == "" || student.Course == "" {
		return nil, invalidInput(op, "name, batchNo and course cannot be empty")
	}
	student.UpdatedAt = time.Now().UTC()

	if err := s.studentRepo.Update(ctx, student); err != nil {
		return nil, storeUnavailable(op, "", err)
	}

	s.logger.Info().Str("student_id", id).Msg("Student updated")
	return student, nil
}

// uniqueID draws ids until one is free and create succeeds with it, up to maxAttempts.
// A create that loses the race on the same id counts as a collision.
func uniqueID(
	ctx context.Context,
	newID idgen.Generator,
	maxAttempts int,
	exists func(ctx context.Context, id string) (bool, error),
	create func(id string) error,
) (string, error) {
	for attempt := 0; attempt < maxAttempts; attempt++ {
		id := newID()

		taken, err := exists(ctx, id)
		if err != nil {
			return "", err
		}
		if taken {
			continue
		}

		err = create(id)
		if err == nil {
			return id, nil
		}
		if !errors.Is(err, repository.ErrDuplicateID) {
			return "", err
		}
	}
	return "", repository.ErrDuplicateID
}
