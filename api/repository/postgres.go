package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"babelBridge/api/database"
	"babelBridge/api/models"
)

// querier is the subset of pgxpool.Pool the repository uses.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PostgresRepo struct {
	db querier
}

func NewPostgresRepo(db *database.DB) Repository {
	return &PostgresRepo{db: db.Pool}
}

func (r *PostgresRepo) CreateJob(ctx context.Context, job *models.Job) error {
	query := `
		INSERT INTO translation_jobs
			(id, trace_id, original_filename, speed, mode, word_count, target_language, model, status, error_message)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at
	`

	return r.db.QueryRow(ctx, query,
		job.ID,
		job.TraceID,
		job.OriginalFilename,
		job.Speed,
		job.Mode,
		job.WordCount,
		job.TargetLanguage,
		job.Model,
		job.Status,
		job.ErrorMessage,
	).Scan(&job.CreatedAt, &job.UpdatedAt)
}

func (r *PostgresRepo) GetJob(ctx context.Context, id string) (*models.Job, error) {
	query := `
		SELECT id, trace_id, original_filename, speed, mode, word_count, target_language, model,
		       status, error_message, created_at, updated_at, completed_at
		FROM translation_jobs
		WHERE id = $1
	`

	var job models.Job
	err := r.db.QueryRow(ctx, query, id).Scan(
		&job.ID,
		&job.TraceID,
		&job.OriginalFilename,
		&job.Speed,
		&job.Mode,
		&job.WordCount,
		&job.TargetLanguage,
		&job.Model,
		&job.Status,
		&job.ErrorMessage,
		&job.CreatedAt,
		&job.UpdatedAt,
		&job.CompletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrJobNotFound
		}
		return nil, err
	}

	return &job, nil
}

func (r *PostgresRepo) UpdateJobStatus(ctx context.Context, id string, status models.JobStatus, errorMessage string) error {
	result, err := r.db.Exec(ctx, updateStatusQuery(status), status, errorMessage, id)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return ErrJobNotFound
	}

	return nil
}

// updateStatusQuery stamps completed_at only for terminal statuses.
func updateStatusQuery(status models.JobStatus) string {
	set := "status = $1, error_message = $2, updated_at = NOW()"
	if status.Terminal() {
		set += ", completed_at = NOW()"
	}
	return "UPDATE translation_jobs SET " + set + " WHERE id = $3"
}
