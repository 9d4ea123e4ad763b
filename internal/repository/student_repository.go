package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/RubachokBoss/mentor-service/internal/models"
)

const studentColumns = `id, name, batch_no, course, current_teacher_id, prev_teacher_id, created_at, updated_at`

type studentRepository struct {
	*PostgresRepository
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanStudent(row rowScanner) (*models.Student, error) {
	var (
		student models.Student
		current sql.NullString
		prev    sql.NullString
	)

	err := row.Scan(
		&student.ID,
		&student.Name,
		&student.BatchNo,
		&student.Course,
		&current,
		&prev,
		&student.CreatedAt,
		&student.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if current.Valid {
		student.CurrentTeacherID = &current.String
	}
	if prev.Valid {
		student.PrevTeacherID = &prev.String
	}

	return &student, nil
}

func (r *studentRepository) Create(ctx context.Context, student *models.Student) error {
	query := `
		INSERT INTO students (` + studentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.ExecContext(ctx, query,
		student.ID,
		student.Name,
		student.BatchNo,
		student.Course,
		student.CurrentTeacherID,
		student.PrevTeacherID,
		student.CreatedAt,
		student.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return ErrDuplicateID
	}

	return err
}

func (r *studentRepository) GetByID(ctx context.Context, id string) (*models.Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students WHERE id = $1`

	student, err := scanStudent(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}

	return student, err
}

func (r *studentRepository) GetAll(ctx context.Context) ([]models.Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students ORDER BY created_at, id`
	return r.list(ctx, query)
}

func (r *studentRepository) GetByCurrentMentor(ctx context.Context, mentorID string) ([]models.Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students WHERE current_teacher_id = $1 ORDER BY created_at, id`
	return r.list(ctx, query, mentorID)
}

func (r *studentRepository) list(ctx context.Context, query string, args ...interface{}) ([]models.Student, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	students := make([]models.Student, 0)
	for rows.Next() {
		student, err := scanStudent(rows)
		if err != nil {
			return nil, err
		}
		students = append(students, *student)
	}

	return students, rows.Err()
}

func (r *studentRepository) Update(ctx context.Context, student *models.Student) error {
	query := `
		UPDATE students
		SET name = $1, batch_no = $2, course = $3, updated_at = $4
		WHERE id = $5
	`

	_, err := r.db.ExecContext(ctx, query,
		student.Name,
		student.BatchNo,
		student.Course,
		student.UpdatedAt,
		student.ID,
	)

	return err
}

func (r *studentRepository) SetMentorRefs(ctx context.Context, id string, expectedCurrent, current, prev *string) (bool, error) {
	query := `
		UPDATE students
		SET current_teacher_id = $1, prev_teacher_id = $2, updated_at = $3
		WHERE id = $4 AND current_teacher_id IS NOT DISTINCT FROM $5::text
	`

	res, err := r.db.ExecContext(ctx, query, current, prev, time.Now(), id, expectedCurrent)
	if err != nil {
		return false, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}

	return affected > 0, nil
}

func (r *studentRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM students WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}

func (r *studentRepository) Exists(ctx context.Context, id string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM students WHERE id = $1)`
	var exists bool
	err := r.db.QueryRowContext(ctx, query, id).Scan(&exists)
	return exists, err
}
