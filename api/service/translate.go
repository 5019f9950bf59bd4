package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"babelBridge/api/cache"
	"babelBridge/api/dto"
	"babelBridge/api/kafka"
	"babelBridge/api/metrics"
	"babelBridge/api/models"
	"babelBridge/api/repository"
	"babelBridge/worker/pool"
	"babelBridge/worker/translator"
	"babelBridge/worker/workspace"
)

var ErrStaging = errors.New("failed to stage upload")

type Translator interface {
	ModelFor(speed string) string
	Run(ctx context.Context, inv translator.Invocation) (translator.Result, error)
}

type Pool interface {
	Do(ctx context.Context, fn func(context.Context) error) error
}

type StatusCache interface {
	Get(ctx context.Context, jobID string) (models.JobStatus, string, error)
	Set(ctx context.Context, jobID string, status models.JobStatus, errMsg string) error
}

// TranslateResult is a finished job whose output still sits in the scratch
// directory. Callers must invoke Cleanup once the output has been sent.
type TranslateResult struct {
	JobID            string
	OutputPath       string
	DownloadFilename string
	ContentType      string
	cleanup          func()
}

func (r *TranslateResult) Cleanup() {
	if r != nil && r.cleanup != nil {
		r.cleanup()
		r.cleanup = nil
	}
}

type TranslationService struct {
	workspace  *workspace.Workspace
	translator Translator
	pool       Pool
	cache      StatusCache
	repo       repository.Repository
	producer   kafka.Producer
	logger     *zap.Logger
	newID      func() string
}

// NewTranslationService wires the job pipeline. cache, repo and producer are
// optional and may be nil.
func NewTranslationService(
	ws *workspace.Workspace,
	tr Translator,
	p Pool,
	cache StatusCache,
	repo repository.Repository,
	producer kafka.Producer,
	logger *zap.Logger,
) *TranslationService {
	return &TranslationService{
		workspace:  ws,
		translator: tr,
		pool:       p,
		cache:      cache,
		repo:       repo,
		producer:   producer,
		logger:     logger,
		newID:      func() string { return uuid.New().String() },
	}
}

func (s *TranslationService) Translate(ctx context.Context, traceID string, req *dto.TranslateRequest, file io.Reader) (*TranslateResult, error) {
	job := &models.Job{
		ID:               s.newID(),
		TraceID:          traceID,
		OriginalFilename: req.OriginalFilename,
		Speed:            req.Speed,
		Mode:             req.Mode,
		WordCount:        req.WordCount,
		TargetLanguage:   req.TargetLanguage,
		Model:            s.translator.ModelFor(req.Speed),
		Status:           models.StatusQueued,
		CreatedAt:        time.Now().UTC(),
	}

	log := s.logger.With(
		zap.String("trace_id", traceID),
		zap.String("job_id", job.ID),
	)

	dir, err := s.workspace.Create(job.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStaging, err)
	}
	cleanup := func() {
		if err := s.workspace.Remove(dir); err != nil {
			log.Error("Failed to remove job directory", zap.String("dir", dir), zap.Error(err))
			return
		}
		log.Debug("Job directory removed", zap.String("dir", dir))
	}

	inputPath, size, err := s.workspace.Stage(dir, req.OriginalFilename, file)
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("%w: %v", ErrStaging, err)
	}
	job.InputPath = inputPath
	metrics.UploadBytes.Observe(float64(size))

	// translation_mode and word_count are recorded but do not reach the tool.
	log.Info("Translation job accepted",
		zap.String("filename", req.OriginalFilename),
		zap.Int64("size", size),
		zap.String("speed", req.Speed),
		zap.String("mode", req.Mode),
		zap.Int("word_count", req.WordCount),
		zap.String("language", req.TargetLanguage),
		zap.String("model", job.Model),
	)

	s.createRecord(ctx, log, job)

	var result translator.Result
	err = s.pool.Do(ctx, func(jobCtx context.Context) error {
		s.transition(jobCtx, log, job, models.StatusProcessing, "")

		metrics.TranslationsInFlight.Inc()
		defer metrics.TranslationsInFlight.Dec()

		var runErr error
		result, runErr = s.translator.Run(jobCtx, translator.Invocation{
			BookPath: inputPath,
			Speed:    req.Speed,
			Language: req.TargetLanguage,
		})
		metrics.TranslationDuration.WithLabelValues(job.Model).Observe(result.Duration.Seconds())
		return runErr
	})

	// Recording must outlive a cancelled request context.
	recordCtx := context.WithoutCancel(ctx)

	if err != nil {
		metrics.TranslationsTotal.WithLabelValues(job.Model, outcome(err)).Inc()
		s.transition(recordCtx, log, job, models.StatusFailed, err.Error())
		cleanup()
		return nil, err
	}

	metrics.TranslationsTotal.WithLabelValues(job.Model, metrics.OutcomeSuccess).Inc()
	s.transition(recordCtx, log, job, models.StatusCompleted, "")

	return &TranslateResult{
		JobID:            job.ID,
		OutputPath:       result.OutputPath,
		DownloadFilename: translator.OutputFilename(req.OriginalFilename),
		ContentType:      translator.ContentType,
		cleanup:          cleanup,
	}, nil
}

func (s *TranslationService) GetJob(ctx context.Context, jobID string) (*dto.JobResponse, error) {
	if s.cache != nil {
		status, errMsg, err := s.cache.Get(ctx, jobID)
		if err == nil {
			return &dto.JobResponse{ID: jobID, Status: string(status), ErrorMessage: errMsg}, nil
		}
		if !errors.Is(err, cache.ErrMiss) {
			s.logger.Warn("Status cache lookup failed", zap.String("job_id", jobID), zap.Error(err))
		}
	}

	if s.repo == nil {
		return nil, dto.ErrJobNotFound
	}

	job, err := s.repo.GetJob(ctx, jobID)
	if err != nil {
		if errors.Is(err, repository.ErrJobNotFound) {
			return nil, dto.ErrJobNotFound
		}
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, job.ID, job.Status, job.ErrorMessage); err != nil {
			s.logger.Warn("Status cache refill failed", zap.String("job_id", jobID), zap.Error(err))
		}
	}

	return toResponse(job), nil
}

func (s *TranslationService) createRecord(ctx context.Context, log *zap.Logger, job *models.Job) {
	if s.repo != nil {
		if err := s.repo.CreateJob(ctx, job); err != nil {
			log.Warn("Failed to record job", zap.Error(err))
		}
	}
	s.publish(ctx, log, job)
	s.cacheStatus(ctx, log, job)
}

func (s *TranslationService) transition(ctx context.Context, log *zap.Logger, job *models.Job, status models.JobStatus, errMsg string) {
	job.Status = status
	job.ErrorMessage = errMsg
	job.UpdatedAt = time.Now().UTC()
	if status.Terminal() {
		completed := job.UpdatedAt
		job.CompletedAt = &completed
	}

	if s.repo != nil {
		if err := s.repo.UpdateJobStatus(ctx, job.ID, status, errMsg); err != nil {
			log.Warn("Failed to update job record", zap.String("status", string(status)), zap.Error(err))
		}
	}
	s.publish(ctx, log, job)
	s.cacheStatus(ctx, log, job)
}

func (s *TranslationService) cacheStatus(ctx context.Context, log *zap.Logger, job *models.Job) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, job.ID, job.Status, job.ErrorMessage); err != nil {
		log.Warn("Failed to cache job status", zap.String("status", string(job.Status)), zap.Error(err))
	}
}

func (s *TranslationService) publish(ctx context.Context, log *zap.Logger, job *models.Job) {
	if s.producer == nil {
		return
	}
	err := s.producer.SendJobEvent(ctx, &kafka.JobEvent{
		JobID:      job.ID,
		TraceID:    job.TraceID,
		Status:     string(job.Status),
		Filename:   job.OriginalFilename,
		Speed:      job.Speed,
		Mode:       job.Mode,
		WordCount:  job.WordCount,
		Model:      job.Model,
		Error:      job.ErrorMessage,
		OccurredAt: time.Now().UTC(),
	})
	if err != nil {
		log.Warn("Failed to publish job event", zap.String("status", string(job.Status)), zap.Error(err))
	}
}

func outcome(err error) string {
	var toolErr *translator.ToolError
	switch {
	case errors.As(err, &toolErr):
		return metrics.OutcomeToolFailure
	case errors.Is(err, translator.ErrOutputNotFound):
		return metrics.OutcomeNoOutput
	case errors.Is(err, pool.ErrJobTimeout):
		return metrics.OutcomeTimeout
	case errors.Is(err, pool.ErrQueueFull), errors.Is(err, pool.ErrClosed):
		return metrics.OutcomeRejected
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return metrics.OutcomeCancelled
	default:
		return metrics.OutcomeInternalFail
	}
}

func toResponse(job *models.Job) *dto.JobResponse {
	var completedAt *string
	if job.CompletedAt != nil {
		formatted := job.CompletedAt.Format(time.RFC3339)
		completedAt = &formatted
	}

	return &dto.JobResponse{
		ID:               job.ID,
		TraceID:          job.TraceID,
		OriginalFilename: job.OriginalFilename,
		Speed:            job.Speed,
		Mode:             job.Mode,
		WordCount:        job.WordCount,
		TargetLanguage:   job.TargetLanguage,
		Model:            job.Model,
		Status:           string(job.Status),
		ErrorMessage:     job.ErrorMessage,
		CreatedAt:        job.CreatedAt.Format(time.RFC3339),
		CompletedAt:      completedAt,
	}
}
