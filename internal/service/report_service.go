package service

import (
	"context"
	"fmt"
	"time"

	"github.com/RubachokBoss/mentor-service/internal/models"
	"github.com/RubachokBoss/mentor-service/internal/repository"
	"github.com/rs/zerolog"
)

// ReportService finds drift left behind by partially applied assignments and
// non-cascading deletes. It only reads.
type ReportService interface {
	GetConsistencyReport(ctx context.Context) (*models.ConsistencyReport, error)
}

type reportService struct {
	studentRepo repository.StudentRepository
	mentorRepo  repository.MentorRepository
	logger      zerolog.Logger
}

func NewReportService(
	studentRepo repository.StudentRepository,
	mentorRepo repository.MentorRepository,
	logger zerolog.Logger,
) ReportService {
	return &reportService{
		studentRepo: studentRepo,
		mentorRepo:  mentorRepo,
		logger:      logger,
	}
}

func (s *reportService) GetConsistencyReport(ctx context.Context) (*models.ConsistencyReport, error) {
	const op = "GetConsistencyReport"

	students, err := s.studentRepo.GetAll(ctx)
	if err != nil {
		return nil, storeUnavailable(op, "", err)
	}
	mentors, err := s.mentorRepo.GetAll(ctx)
	if err != nil {
		return nil, storeUnavailable(op, "", err)
	}

	studentsByID := make(map[string]models.Student, len(students))
	for _, st := range students {
		studentsByID[st.ID] = st
	}
	mentorsByID := make(map[string]models.Mentor, len(mentors))
	holders := make(map[string][]string)
	for _, m := range mentors {
		mentorsByID[m.ID] = m
		for _, id := range m.Students {
			holders[id] = append(holders[id], m.ID)
		}
	}

	issues := make([]models.ConsistencyIssue, 0)
	add := func(kind, studentID, mentorID, detail string) {
		issues = append(issues, models.ConsistencyIssue{
			Type:      kind,
			StudentID: studentID,
			MentorID:  mentorID,
			Detail:    detail,
		})
	}

	for _, m := range mentors {
		for _, id := range m.Students {
			st, ok := studentsByID[id]
			switch {
			case !ok:
				add(models.IssueDanglingRosterEntry, id, m.ID, "roster lists a student that does not exist")
			case !st.IsAssignedTo(m.ID):
				add(models.IssueRosterMismatch, id, m.ID,
					fmt.Sprintf("roster lists the student but its current mentor is %q", st.CurrentMentor()))
			}
		}
	}

	for _, st := range students {
		if len(holders[st.ID]) > 1 {
			add(models.IssueListedTwice, st.ID, "", fmt.Sprintf("listed by mentors %v", holders[st.ID]))
		}
		if !st.HasMentor() {
			continue
		}

		current := st.CurrentMentor()
		m, ok := mentorsByID[current]
		switch {
		case !ok:
			add(models.IssueUnknownMentor, st.ID, current, "current mentor does not exist")
		case !m.Students.Contains(st.ID):
			add(models.IssueMissingFromRoster, st.ID, current, "student is not on its current mentor's roster")
		}
		if st.PreviousMentor() == current {
			add(models.IssuePreviousIsCurrent, st.ID, current, "previous mentor equals current mentor")
		}
	}

	report := &models.ConsistencyReport{
		Students:    len(students),
		Mentors:     len(mentors),
		Consistent:  len(issues) == 0,
		Issues:      issues,
		GeneratedAt: time.Now().UTC(),
	}

	if !report.Consistent {
		s.logger.Warn().Int("issues", len(issues)).Msg("Consistency report found drift")
	}

	return report, nil
}
