package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"
	"github.com/rs/zerolog"
)

const pqUniqueViolation = "23505"

type PostgresRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewPostgresRepository(db *sql.DB, logger zerolog.Logger) *PostgresRepository {
	return &PostgresRepository{
		db:     db,
		logger: logger,
	}
}

// NewPostgresStore builds both repositories over one connection pool.
func NewPostgresStore(db *sql.DB, logger zerolog.Logger) *Store {
	base := NewPostgresRepository(db, logger)
	return &Store{
		Students: &studentRepository{PostgresRepository: base},
		Mentors:  &mentorRepository{PostgresRepository: base},
		Driver:   "postgres",
		ping:     base.Ping,
		close:    base.Close,
	}
}

func (r *PostgresRepository) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return r.db.PingContext(ctx)
}

func (r *PostgresRepository) Close() error {
	return r.db.Close()
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation
}
