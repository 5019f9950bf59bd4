package repository

import (
	"context"
	"errors"

	"babelBridge/api/models"
)

var ErrJobNotFound = errors.New("job not found")

// Repository is the job ledger. It stores metadata only, never book content.
type Repository interface {
	CreateJob(ctx context.Context, job *models.Job) error
	GetJob(ctx context.Context, id string) (*models.Job, error)
	UpdateJobStatus(ctx context.Context, id string, status models.JobStatus, errorMessage string) error
}
