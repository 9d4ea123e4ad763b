package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/RubachokBoss/mentor-service/internal/models"
	"github.com/lib/pq"
)

const mentorColumns = `id, name, course, specialized, students, created_at, updated_at`

type mentorRepository struct {
	*PostgresRepository
}

func scanMentor(row rowScanner) (*models.Mentor, error) {
	var (
		mentor   models.Mentor
		students []string
	)

	err := row.Scan(
		&mentor.ID,
		&mentor.Name,
		&mentor.Course,
		&mentor.Specialized,
		pq.Array(&students),
		&mentor.CreatedAt,
		&mentor.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	mentor.Students = models.Roster(students).Clone()
	return &mentor, nil
}

func (r *mentorRepository) Create(ctx context.Context, mentor *models.Mentor) error {
	query := `
		INSERT INTO mentors (` + mentorColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.ExecContext(ctx, query,
		mentor.ID,
		mentor.Name,
		mentor.Course,
		mentor.Specialized,
		pq.Array([]string(mentor.Students.Clone())),
		mentor.CreatedAt,
		mentor.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return ErrDuplicateID
	}

	return err
}

func (r *mentorRepository) GetByID(ctx context.Context, id string) (*models.Mentor, error) {
	query := `SELECT ` + mentorColumns + ` FROM mentors WHERE id = $1`

	mentor, err := scanMentor(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}

	return mentor, err
}

func (r *mentorRepository) GetAll(ctx context.Context) ([]models.Mentor, error) {
	query := `SELECT ` + mentorColumns + ` FROM mentors ORDER BY created_at, id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	mentors := make([]models.Mentor, 0)
	for rows.Next() {
		mentor, err := scanMentor(rows)
		if err != nil {
			return nil, err
		}
		mentors = append(mentors, *mentor)
	}

	return mentors, rows.Err()
}

func (r *mentorRepository) Update(ctx context.Context, mentor *models.Mentor) error {
	query := `
		UPDATE mentors
		SET name = $1, course = $2, specialized = $3, updated_at = $4
		WHERE id = $5
	`

	_, err := r.db.ExecContext(ctx, query,
		mentor.Name,
		mentor.Course,
		mentor.Specialized,
		mentor.UpdatedAt,
		mentor.ID,
	)

	return err
}

func (r *mentorRepository) AddStudent(ctx context.Context, mentorID, studentID string) (bool, error) {
	query := `
		UPDATE mentors
		SET students = array_append(students, $1::text), updated_at = $2
		WHERE id = $3 AND NOT ($1::text = ANY(students))
	`
	return r.execChanged(ctx, query, studentID, time.Now(), mentorID)
}

func (r *mentorRepository) RemoveStudent(ctx context.Context, mentorID, studentID string) (bool, error) {
	query := `
		UPDATE mentors
		SET students = array_remove(students, $1::text), updated_at = $2
		WHERE id = $3 AND $1::text = ANY(students)
	`
	return r.execChanged(ctx, query, studentID, time.Now(), mentorID)
}

func (r *mentorRepository) execChanged(ctx context.Context, query string, args ...interface{}) (bool, error) {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}

	return affected > 0, nil
}

func (r *mentorRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM mentors WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}

func (r *mentorRepository) Exists(ctx context.Context, id string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM mentors WHERE id = $1)`
	var exists bool
	err := r.db.QueryRowContext(ctx, query, id).Scan(&exists)
	return exists, err
}
