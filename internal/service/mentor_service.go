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

type MentorService interface {
	CreateMentor(ctx context.Context, req *models.CreateMentorRequest) (*models.Mentor, error)
	GetMentor(ctx context.Context, id string) (*models.Mentor, error)
	ListMentors(ctx context.Context) ([]models.Mentor, error)
	UpdateMentor(ctx context.Context, id string, req *models.UpdateMentorRequest) (*models.Mentor, error)
	// GetMentorRoster resolves every roster id. Ids that no longer resolve come back as nil entries.
	GetMentorRoster(ctx context.Context, id string) ([]*models.Student, error)
}

type mentorService struct {
	mentorRepo  repository.MentorRepository
	studentRepo repository.StudentRepository
	newID       idgen.Generator
	maxAttempts int
	logger      zerolog.Logger
}

func NewMentorService(
	mentorRepo repository.MentorRepository,
	studentRepo repository.StudentRepository,
	newID idgen.Generator,
	maxAttempts int,
	logger zerolog.Logger,
) MentorService {
	if newID == nil {
		newID = idgen.New
	}
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &mentorService{
		mentorRepo:  mentorRepo,
		studentRepo: studentRepo,
		newID:       newID,
		maxAttempts: maxAttempts,
		logger:      logger,
	}
}

func (s *mentorService) CreateMentor(ctx context.Context, req *models.CreateMentorRequest) (*models.Mentor, error) {
	const op = "CreateMentor"

	if req == nil {
		return nil, invalidInput(op, "request body is required")
	}
	if err := validateRequest(op, req); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	mentor := &models.Mentor{
		Name:        strings.TrimSpace(req.Name),
		Course:      strings.TrimSpace(req.Course),
		Specialized: strings.TrimSpace(req.Specialized),
		Students:    models.Roster{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	id, err := uniqueID(ctx, s.newID, s.maxAttempts, s.mentorRepo.Exists, func(id string) error {
		mentor.ID = id
		return s.mentorRepo.Create(ctx, mentor)
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateID) {
			return nil, alreadyAssigned(op, "could not allocate a unique mentor id")
		}
		return nil, storeUnavailable(op, "", err)
	}

	s.logger.Info().
		Str("mentor_id", id).
		Str("course", mentor.Course).
		Msg("Mentor created")

	return mentor, nil
}

func (s *mentorService) GetMentor(ctx context.Context, id string) (*models.Mentor, error) {
	const op = "GetMentor"

	if strings.TrimSpace(id) == "" {
		return nil, invalidInput(op, "mentor ID is required")
	}

	mentor, err := s.mentorRepo.GetByID(ctx, id)
	if err != nil {
		return nil, storeUnavailable(op, "", err)
	}
	if mentor == nil {
		return nil, notFound(op, "mentor with ID %s not found", id)
	}

	return mentor, nil
}

func (s *mentorService) ListMentors(ctx context.Context) ([]models.Mentor, error) {
	mentors, err := s.mentorRepo.GetAll(ctx)
	if err != nil {
		return nil, storeUnavailable("ListMentors", "", err)
	}
	if mentors == nil {
		mentors = []models.Mentor{}
	}
	return mentors, nil
}

func (s *mentorService) UpdateMentor(ctx context.Context, id string, req *models.UpdateMentorRequest) (*models.Mentor, error) {
	const op = "UpdateMentor"

	if strings.TrimSpace(id) == "" {
		return nil, invalidInput(op, "mentor ID is required")
	}
	if req == nil || req.IsEmpty() {
		return nil, invalidInput(op, "nothing to update")
	}

	mentor, err := s.mentorRepo.GetByID(ctx, id)
	if err != nil {
		return nil, storeUnavailable(op, "", err)
	}
	if mentor == nil {
		return nil, notFound(op, "mentor with ID %s not found", id)
	}

	if req.Name != nil {
		mentor.Name = strings.TrimSpace(*req.Name)
	}
	if req.Course != nil {
		mentor.Course = strings.TrimSpace(*req.Course)
	}
	if req.Specialized != nil {
		mentor.Specialized = strings.TrimSpace(*req.Specialized)
	}
	if mentor.Name == "" || mentor.Course == "" || mentor.Specialized == "" {
		return nil, invalidInput(op, "name, course and specialized cannot be empty")
	}
	mentor.UpdatedAt = time.Now().UTC()

	if err := s.mentorRepo.Update(ctx, mentor); err != nil {
		return nil, storeUnavailable(op, "", err)
	}

	s.logger.Info().Str("mentor_id", id).Msg("Mentor updated")
	return mentor, nil
}

func (s *mentorService) GetMentorRoster(ctx context.Context, id string) ([]*models.Student, error) {
	const op = "GetMentorRoster"

	mentor, err := s.GetMentor(ctx, id)
	if err != nil {
		return nil, err
	}
	if mentor.Students.IsEmpty() {
		return nil, newError(KindEmptyRoster, op, "no students assigned to mentor %s", id)
	}

	roster := make([]*models.Student, 0, mentor.Students.Len())
	dangling := 0
	for _, studentID := range mentor.Students {
		student, err := s.studentRepo.GetByID(ctx, studentID)
		if err != nil {
			return nil, storeUnavailable(op, "", err)
		}
		if student == nil {
			dangling++
		}
		roster = append(roster, student)
	}

	if dangling > 0 {
		s.logger.Warn().
			Str("mentor_id", id).
			Int("dangling", dangling).
			Msg("Roster references students that no longer exist")
	}

	return roster, nil
}
