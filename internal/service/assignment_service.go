package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/RubachokBoss/mentor-service/internal/lock"
	"github.com/RubachokBoss/mentor-service/internal/models"
	"github.com/RubachokBoss/mentor-service/internal/repository"
	"github.com/RubachokBoss/mentor-service/internal/service/integration"
	"github.com/RubachokBoss/mentor-service/internal/worker"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// AssignmentService keeps student mentor references and mentor rosters consistent.
//
// The two records live in separate collections and are not written in one
// transaction. Student writes are compare-and-swap on the current mentor id,
// roster writes are add-once / remove-if-present, and a failed roster write is
// retried before the operation reports a partial apply. The Locker narrows the
// read-decide-write window further but is not a transaction either.
type AssignmentService interface {
	AssignStudentToMentor(ctx context.Context, studentID, mentorID string) (*models.AssignmentResult, error)
	AssignStudentsBatch(ctx context.Context, mentorID string, studentIDs []string) (*models.BatchAssignmentResult, error)
	ComputePreviousMentor(ctx context.Context, studentID string) (*models.Mentor, error)
	RemoveStudent(ctx context.Context, studentID string) (*models.DeleteResult, error)
	RemoveMentor(ctx context.Context, mentorID string) (*models.DeleteResult, error)
}

var errMentorRemoved = errors.New("mentor no longer exists")

type AssignmentOptions struct {
	// CascadeDelete clears the counterpart references when a record is removed.
	CascadeDelete bool
	// RosterRetries is the number of extra attempts for a roster write that failed.
	RosterRetries int
	RetryDelay    time.Duration
	// CASRetries is the number of re-reads after a student write lost a race.
	CASRetries int
}

func DefaultAssignmentOptions() AssignmentOptions {
	return AssignmentOptions{
		RosterRetries: 2,
		RetryDelay:    50 * time.Millisecond,
		CASRetries:    3,
	}
}

type assignmentService struct {
	studentRepo repository.StudentRepository
	mentorRepo  repository.MentorRepository
	locker      lock.Locker
	pool        *worker.WorkerPool
	publisher   integration.EventPublisher
	opts        AssignmentOptions
	logger      zerolog.Logger
}

func NewAssignmentService(
	studentRepo repository.StudentRepository,
	mentorRepo repository.MentorRepository,
	locker lock.Locker,
	pool *worker.WorkerPool,
	publisher integration.EventPublisher,
	opts AssignmentOptions,
	logger zerolog.Logger,
) AssignmentService {
	if locker == nil {
		locker = lock.NewNop()
	}
	if publisher == nil {
		publisher = integration.NewNopPublisher()
	}
	return &assignmentService{
		studentRepo: studentRepo,
		mentorRepo:  mentorRepo,
		locker:      locker,
		pool:        pool,
		publisher:   publisher,
		opts:        opts,
		logger:      logger,
	}
}

func (s *assignmentService) AssignStudentToMentor(ctx context.Context, studentID, mentorID string) (*models.AssignmentResult, error) {
	const op = "AssignStudentToMentor"

	studentID = strings.TrimSpace(studentID)
	mentorID = strings.TrimSpace(mentorID)
	if studentID == "" {
		return nil, invalidInput(op, "student ID is required")
	}
	if err := validateRequest(op, &models.AssignMentorRequest{MentorID: mentorID}); err != nil {
		return nil, invalidInput(op, "please enter mentor ID to proceed")
	}

	unlock, err := s.locker.Lock(ctx, lock.StudentKey(studentID), lock.MentorKey(mentorID))
	if err != nil {
		return nil, storeUnavailable(op, "", err)
	}
	defer unlock()

	for attempt := 0; attempt <= s.opts.CASRetries; attempt++ {
		student, err := s.studentRepo.GetByID(ctx, studentID)
		if err != nil {
			return nil, storeUnavailable(op, "", err)
		}
		if student == nil {
			return nil, notFound(op, "student with ID %s not found", studentID)
		}

		mentor, err := s.mentorRepo.GetByID(ctx, mentorID)
		if err != nil {
			return nil, storeUnavailable(op, "", err)
		}
		if mentor == nil {
			return nil, notFound(op, "mentor with ID %s not found", mentorID)
		}

		// Either side alone is enough to refuse, in case the two records have drifted apart.
		if mentor.Students.Contains(studentID) || student.IsAssignedTo(mentorID) {
			return nil, alreadyAssigned(op, "student %s is already assigned to mentor %s", studentID, mentorID)
		}

		var (
			result *models.AssignmentResult
			done   bool
		)
		if !student.HasMentor() {
			result, done, err = s.assignFresh(ctx, student, mentorID)
		} else {
			result, done, err = s.reassign(ctx, student, mentorID)
		}
		if err != nil {
			return result, err
		}
		if done {
			return result, nil
		}

		s.logger.Debug().
			Str("student_id", studentID).
			Int("attempt", attempt+1).
			Msg("Student changed between read and write, retrying")
	}

	return nil, alreadyAssigned(op, "student %s was modified concurrently, please retry", studentID)
}

// assignFresh is Case A: the student has no current mentor. done is false when the
// student write lost a compare-and-swap race and the caller should re-read.
func (s *assignmentService) assignFresh(ctx context.Context, student *models.Student, mentorID string) (*models.AssignmentResult, bool, error) {
	const op = "AssignStudentToMentor"

	prev := student.PrevTeacherID
	if prev != nil && *prev == mentorID {
		// Returning to the previous mentor must not leave previous == current.
		prev = nil
	}

	ok, err := s.studentRepo.SetMentorRefs(ctx, student.ID, student.CurrentTeacherID, models.StringPtr(mentorID), prev)
	if err != nil {
		return nil, false, storeUnavailable(op, models.StepUpdateStudent, err)
	}
	if !ok {
		return nil, false, nil
	}

	result := &models.AssignmentResult{
		Status:      models.StatusAssigned,
		StudentID:   student.ID,
		To:          mentorID,
		Consistency: models.FullySucceeded,
	}

	if err := s.retryRosterWrite(ctx, func() error {
		return s.addToRoster(ctx, mentorID, student.ID)
	}); err != nil {
		return s.partial(op, result, models.StepAddToRoster, err)
	}

	s.logger.Info().
		Str("student_id", student.ID).
		Str("mentor_id", mentorID).
		Msg("Student assigned to mentor")

	s.publish(ctx, models.EventStudentAssigned, student.ID, mentorID, "")
	return result, true, nil
}

// reassign is Case C. The student record is written first so that it reflects the
// intended state even if a roster write lags behind.
func (s *assignmentService) reassign(ctx context.Context, student *models.Student, mentorID string) (*models.AssignmentResult, bool, error) {
	const op = "AssignStudentToMentor"

	oldMentorID := student.CurrentMentor()
	ok, err := s.studentRepo.SetMentorRefs(ctx, student.ID,
		models.StringPtr(oldMentorID),
		models.StringPtr(mentorID),
		models.StringPtr(oldMentorID),
	)
	if err != nil {
		return nil, false, storeUnavailable(op, models.StepUpdateStudent, err)
	}
	if !ok {
		return nil, false, nil
	}

	result := &models.AssignmentResult{
		Status:      models.StatusReassigned,
		StudentID:   student.ID,
		From:        oldMentorID,
		To:          mentorID,
		Consistency: models.FullySucceeded,
	}

	// Both roster writes are attempted even if the first one fails; the first failure is reported.
	addErr := s.retryRosterWrite(ctx, func() error {
		return s.addToRoster(ctx, mentorID, student.ID)
	})
	removeErr := s.retryRosterWrite(ctx, func() error {
		_, err := s.mentorRepo.RemoveStudent(ctx, oldMentorID, student.ID)
		return err
	})

	switch {
	case addErr != nil:
		return s.partial(op, result, models.StepAddToRoster, addErr)
	case removeErr != nil:
		return s.partial(op, result, models.StepRemoveFromOld, removeErr)
	}

	s.logger.Info().
		Str("student_id", student.ID).
		Str("from_mentor_id", oldMentorID).
		Str("to_mentor_id", mentorID).
		Msg("Student reassigned")

	s.publish(ctx, models.EventStudentReassigned, student.ID, mentorID, oldMentorID)
	return result, true, nil
}

func (s *assignmentService) partial(op string, result *models.AssignmentResult, step string, err error) (*models.AssignmentResult, bool, error) {
	result.Consistency = models.PartiallyApplied
	result.FailedStep = step

	s.logger.Warn().
		Err(err).
		Str("student_id", result.StudentID).
		Str("mentor_id", result.To).
		Str("step", step).
		Msg("Assignment partially applied, roster needs reconciliation")

	if errors.Is(err, errMentorRemoved) {
		return result, true, &Error{
			Kind:    KindNotFound,
			Op:      op,
			Message: "mentor " + result.To + " was removed during the assignment",
			Step:    step,
			Err:     err,
		}
	}
	return result, true, storeUnavailable(op, step, err)
}

// addToRoster treats an unchanged roster as success unless the mentor record is gone.
func (s *assignmentService) addToRoster(ctx context.Context, mentorID, studentID string) error {
	added, err := s.mentorRepo.AddStudent(ctx, mentorID, studentID)
	if err != nil || added {
		return err
	}

	exists, err := s.mentorRepo.Exists(ctx, mentorID)
	if err != nil {
		return err
	}
	if !exists {
		return errMentorRemoved
	}
	return nil
}

// retryRosterWrite is the compensating action for a roster write issued after the student write succeeded.
func (s *assignmentService) retryRosterWrite(ctx context.Context, write func() error) error {
	var err error
	for attempt := 0; attempt <= s.opts.RosterRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return err
			case <-time.After(s.opts.RetryDelay * time.Duration(attempt)):
			}
		}
		if err = write(); err == nil || errors.Is(err, errMentorRemoved) {
			return err
		}
		s.logger.Debug().Err(err).Int("attempt", attempt+1).Msg("Roster write failed")
	}
	return err
}

func (s *assignmentService) AssignStudentsBatch(ctx context.Context, mentorID string, studentIDs []string) (*models.BatchAssignmentResult, error) {
	const op = "AssignStudentsBatch"

	mentorID = strings.TrimSpace(mentorID)
	if mentorID == "" {
		return nil, invalidInput(op, "mentor ID is required")
	}
	if err := validateRequest(op, &models.AssignStudentsRequest{StudentIDs: studentIDs}); err != nil {
		return nil, err
	}

	exists, err := s.mentorRepo.Exists(ctx, mentorID)
	if err != nil {
		return nil, storeUnavailable(op, "", err)
	}
	if !exists {
		return nil, notFound(op, "mentor with ID %s not found", mentorID)
	}

	ids := uniqueIDs(studentIDs)
	failures := make([]*models.BatchFailure, len(ids))

	var wg sync.WaitGroup
	for i, id := range ids {
		i, id := i, id
		task := func() {
			defer wg.Done()
			failures[i] = s.assignBatchItem(ctx, mentorID, id)
		}

		wg.Add(1)
		if s.pool == nil {
			go task()
			continue
		}
		if err := s.pool.Submit(ctx, task); err != nil {
			// Could not queue it; run it on this goroutine rather than drop it.
			task()
		}
	}
	wg.Wait()

	result := &models.BatchAssignmentResult{
		MentorID:  mentorID,
		Successes: make([]string, 0, len(ids)),
		Failures:  make([]models.BatchFailure, 0),
	}
	for i, id := range ids {
		if failures[i] == nil {
			result.Successes = append(result.Successes, id)
			continue
		}
		result.Failures = append(result.Failures, *failures[i])
	}

	s.logger.Info().
		Str("mentor_id", mentorID).
		Int("assigned", len(result.Successes)).
		Int("failed", len(result.Failures)).
		Msg("Student assignment batch completed")

	return result, nil
}

// assignBatchItem performs a Case-A assignment for one student, or returns why it could not.
func (s *assignmentService) assignBatchItem(ctx context.Context, mentorID, studentID string) *models.BatchFailure {
	fail := func(kind Kind, msg string) *models.BatchFailure {
		return &models.BatchFailure{StudentID: studentID, Kind: string(kind), Message: msg}
	}

	if studentID == "" {
		return fail(KindInvalidInput, "Student ID is empty")
	}

	unlock, err := s.locker.Lock(ctx, lock.StudentKey(studentID), lock.MentorKey(mentorID))
	if err != nil {
		return fail(KindStoreUnavailable, err.Error())
	}
	defer unlock()

	for attempt := 0; attempt <= s.opts.CASRetries; attempt++ {
		student, err := s.studentRepo.GetByID(ctx, studentID)
		if err != nil {
			s.logger.Error().Err(err).Str("student_id", studentID).Msg("Failed to load student for batch assignment")
			return fail(KindStoreUnavailable, "Record store is unavailable")
		}
		if student == nil {
			return fail(KindNotFound, "Student not found")
		}
		if student.HasMentor() {
			return fail(KindAlreadyAssigned, "Student already assigned to "+student.CurrentMentor())
		}

		result, done, err := s.assignFresh(ctx, student, mentorID)
		if err != nil {
			failure := fail(KindOf(err), err.Error())
			if result != nil {
				failure.Consistency = result.Consistency
				failure.FailedStep = result.FailedStep
			}
			return failure
		}
		if done {
			return nil
		}
	}

	return fail(KindAlreadyAssigned, "Student was modified concurrently")
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func (s *assignmentService) ComputePreviousMentor(ctx context.Context, studentID string) (*models.Mentor, error) {
	const op = "ComputePreviousMentor"

	if strings.TrimSpace(studentID) == "" {
		return nil, invalidInput(op, "student ID is required")
	}

	student, err := s.studentRepo.GetByID(ctx, studentID)
	if err != nil {
		return nil, storeUnavailable(op, "", err)
	}
	if student == nil {
		return nil, notFound(op, "student with ID %s not found", studentID)
	}
	if student.PrevTeacherID == nil || *student.PrevTeacherID == "" {
		return nil, newError(KindNoPreviousMentor, op, "no mentor assigned to this student previously")
	}

	mentor, err := s.mentorRepo.GetByID(ctx, *student.PrevTeacherID)
	if err != nil {
		return nil, storeUnavailable(op, "", err)
	}
	if mentor == nil {
		return nil, notFound(op, "previous mentor %s no longer exists", *student.PrevTeacherID)
	}

	return mentor, nil
}

func (s *assignmentService) RemoveStudent(ctx context.Context, studentID string) (*models.DeleteResult, error) {
	const op = "RemoveStudent"

	if strings.TrimSpace(studentID) == "" {
		return nil, invalidInput(op, "no student ID provided")
	}

	unlock, err := s.locker.Lock(ctx, lock.StudentKey(studentID))
	if err != nil {
		return nil, storeUnavailable(op, "", err)
	}
	defer unlock()

	student, err := s.studentRepo.GetByID(ctx, studentID)
	if err != nil {
		return nil, storeUnavailable(op, "", err)
	}
	if student == nil {
		return nil, notFound(op, "no student found with the provided ID")
	}

	if err := s.studentRepo.Delete(ctx, studentID); err != nil {
		return nil, storeUnavailable(op, "", err)
	}

	result := &models.DeleteResult{ID: studentID}
	s.publish(ctx, models.EventStudentRemoved, studentID, student.CurrentMentor(), "")

	if !s.opts.CascadeDelete || !student.HasMentor() {
		s.logger.Info().Str("student_id", studentID).Msg("Student removed")
		return result, nil
	}

	// The record is already gone, so a failure here only leaves a dangling roster id.
	mentorID := student.CurrentMentor()
	var removed bool
	err = s.retryRosterWrite(ctx, func() error {
		var err error
		removed, err = s.mentorRepo.RemoveStudent(ctx, mentorID, studentID)
		return err
	})
	if err != nil {
		return result, storeUnavailable(op, models.StepRemoveFromOld, err)
	}
	if removed {
		result.Cascaded = 1
	}

	s.logger.Info().
		Str("student_id", studentID).
		Str("mentor_id", mentorID).
		Bool("roster_updated", removed).
		Msg("Student removed")

	return result, nil
}

func (s *assignmentService) RemoveMentor(ctx context.Context, mentorID string) (*models.DeleteResult, error) {
	const op = "RemoveMentor"

	if strings.TrimSpace(mentorID) == "" {
		return nil, invalidInput(op, "mentor ID not provided")
	}

	unlock, err := s.locker.Lock(ctx, lock.MentorKey(mentorID))
	if err != nil {
		return nil, storeUnavailable(op, "", err)
	}
	defer unlock()

	exists, err := s.mentorRepo.Exists(ctx, mentorID)
	if err != nil {
		return nil, storeUnavailable(op, "", err)
	}
	if !exists {
		return nil, notFound(op, "no mentor found")
	}

	if err := s.mentorRepo.Delete(ctx, mentorID); err != nil {
		return nil, storeUnavailable(op, "", err)
	}

	result := &models.DeleteResult{ID: mentorID}
	s.publish(ctx, models.EventMentorRemoved, "", mentorID, "")

	if !s.opts.CascadeDelete {
		s.logger.Info().Str("mentor_id", mentorID).Msg("Mentor removed")
		return result, nil
	}

	students, err := s.studentRepo.GetByCurrentMentor(ctx, mentorID)
	if err != nil {
		return result, storeUnavailable(op, models.StepClearStudentRef, err)
	}

	var firstErr error
	for _, student := range students {
		// Lineage stays; only the current reference is cleared, and only if it still points here.
		ok, err := s.studentRepo.SetMentorRefs(ctx, student.ID, models.StringPtr(mentorID), nil, student.PrevTeacherID)
		if err != nil {
			s.logger.Error().Err(err).Str("student_id", student.ID).Msg("Failed to unassign student of removed mentor")
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if ok {
			result.Cascaded++
		}
	}

	s.logger.Info().
		Str("mentor_id", mentorID).
		Int("unassigned_students", result.Cascaded).
		Msg("Mentor removed")

	if firstErr != nil {
		return result, storeUnavailable(op, models.StepClearStudentRef, firstErr)
	}
	return result, nil
}

func (s *assignmentService) publish(ctx context.Context, eventType, studentID, mentorID, previousMentorID string) {
	event := &models.AssignmentEvent{
		EventID:          uuid.New().String(),
		Type:             eventType,
		StudentID:        studentID,
		MentorID:         mentorID,
		PreviousMentorID: previousMentorID,
		Timestamp:        time.Now().Unix(),
	}

	if err := s.publisher.PublishAssignmentEvent(ctx, event); err != nil {
		s.logger.Error().
			Err(err).
			Str("event_id", event.EventID).
			Str("type", eventType).
			Msg("Failed to publish assignment event")
	}
}
