package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/studybase-api/internal/models"
	appErrors "github.com/noah-isme/studybase-api/pkg/errors"
	"github.com/noah-isme/studybase-api/pkg/jobs"
)

// JobTypeDownloadIncrement identifies queued download counter updates.
const JobTypeDownloadIncrement = "download.increment"

type downloadRepository interface {
	FindByID(ctx context.Context, id string) (*models.Resource, error)
	IncrementDownloads(ctx context.Context, id string) (int, error)
}

type actionClaimer interface {
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

type downloadQueue interface {
	TryEnqueue(job jobs.Job) error
}

type downloadMetrics interface {
	RecordDownload()
	RecordDownloadFailure()
}

// DownloadService records file opens. The counter update runs in the background and a
// replayed action key is counted once.
type DownloadService struct {
	repo    downloadRepository
	claims  actionClaimer
	queue   downloadQueue
	metrics downloadMetrics
	logger  *zap.Logger
	ttl     time.Duration
}

// NewDownloadService constructs a DownloadService.
func NewDownloadService(repo downloadRepository, claims actionClaimer, queue downloadQueue, metrics downloadMetrics, logger *zap.Logger, ttl time.Duration) *DownloadService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &DownloadService{repo: repo, claims: claims, queue: queue, metrics: metrics, logger: logger, ttl: ttl}
}

// Record returns the file URL and the optimistic count. actionKey identifies one user
// action; an empty key is treated as a fresh action.
func (s *DownloadService) Record(ctx context.Context, resourceID, actionKey string) (*models.DownloadReceipt, error) {
	if _, err := uuid.Parse(resourceID); err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "resource not found")
	}
	res, err := s.repo.FindByID(ctx, resourceID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "resource not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load resource")
	}
	if res.Status != models.ResourceStatusApproved {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "resource not found")
	}

	receipt := &models.DownloadReceipt{ResourceID: res.ID, FileURL: res.FileURL, Downloads: res.Downloads}
	if actionKey == "" {
		actionKey = uuid.NewString()
	}
	key := fmt.Sprintf("%s:%s", resourceID, actionKey)

	claimed, err := s.claims.Claim(ctx, key, s.ttl)
	if err != nil {
		s.logger.Warn("download idempotency check failed", zap.String("key", key), zap.Error(err))
		claimed = true
	}
	if !claimed {
		receipt.Duplicate = true
		return receipt, nil
	}

	job := jobs.Job{ID: key, Type: JobTypeDownloadIncrement, Payload: resourceID}
	if err := s.queue.TryEnqueue(job); err != nil {
		s.logger.Warn("download queue unavailable, incrementing inline", zap.String("resource_id", resourceID), zap.Error(err))
		if _, incErr := s.repo.IncrementDownloads(ctx, resourceID); incErr != nil {
			s.logger.Warn("failed to record download", zap.String("resource_id", resourceID), zap.Error(incErr))
			s.metrics.RecordDownloadFailure()
			return receipt, nil
		}
		s.metrics.RecordDownload()
	}
	receipt.Downloads++
	return receipt, nil
}

// DownloadWorker applies queued download increments.
type DownloadWorker struct {
	repo    downloadRepository
	metrics downloadMetrics
	logger  *zap.Logger
}

// NewDownloadWorker constructs a worker.
func NewDownloadWorker(repo downloadRepository, metrics downloadMetrics, logger *zap.Logger) *DownloadWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DownloadWorker{repo: repo, metrics: metrics, logger: logger}
}

// Handle processes a queue job. A resource deleted in the meantime is not retried.
func (w *DownloadWorker) Handle(ctx context.Context, job jobs.Job) error {
	resourceID, ok := job.Payload.(string)
	if !ok || resourceID == "" {
		w.logger.Warn("dropping malformed download job", zap.String("job_id", job.ID))
		return nil
	}
	downloads, err := w.repo.IncrementDownloads(ctx, resourceID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			w.logger.Info("download for deleted resource ignored", zap.String("resource_id", resourceID))
			return nil
		}
		return err
	}
	w.metrics.RecordDownload()
	w.logger.Debug("download recorded", zap.String("resource_id", resourceID), zap.Int("downloads", downloads))
	return nil
}

// Exhausted is the queue's OnExhausted hook.
func (w *DownloadWorker) Exhausted(job jobs.Job, err error) {
	w.metrics.RecordDownloadFailure()
}
