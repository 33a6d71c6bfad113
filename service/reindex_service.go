package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"visar-backend/metrics"
	"visar-backend/models"
	"visar-backend/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	defaultReindexBatchSize   = 100
	defaultReindexConcurrency = 4
)

// ReindexService re-embeds and re-upserts documents whose vector upsert
// never succeeded
type ReindexService struct {
	ingestion   *IngestionService
	references  repository.ReferenceStore
	jobs        repository.JobStore
	logger      *zap.Logger
	batchSize   int
	concurrency int
}

// ReindexServiceOption is a functional option for ReindexService
type ReindexServiceOption func(*ReindexService)

// ReindexWithIngestionService sets the indexer used per document
func ReindexWithIngestionService(i *IngestionService) ReindexServiceOption {
	return func(s *ReindexService) {
		s.ingestion = i
	}
}

// ReindexWithReferenceStore sets the reference document store
func ReindexWithReferenceStore(store repository.ReferenceStore) ReindexServiceOption {
	return func(s *ReindexService) {
		s.references = store
	}
}

// ReindexWithJobStore sets the job store used by StartReindex
func ReindexWithJobStore(store repository.JobStore) ReindexServiceOption {
	return func(s *ReindexService) {
		s.jobs = store
	}
}

// ReindexWithLogger sets the logger
func ReindexWithLogger(l *zap.Logger) ReindexServiceOption {
	return func(s *ReindexService) {
		s.logger = l
	}
}

// ReindexWithLimits sets the batch size and the number of documents indexed
// in parallel
func ReindexWithLimits(batchSize, concurrency int) ReindexServiceOption {
	return func(s *ReindexService) {
		if batchSize > 0 {
			s.batchSize = batchSize
		}
		if concurrency > 0 {
			s.concurrency = concurrency
		}
	}
}

// NewReindexService creates a new reindex service
func NewReindexService(opts ...ReindexServiceOption) *ReindexService {
	s := &ReindexService{
		logger:      zap.NewNop(),
		batchSize:   defaultReindexBatchSize,
		concurrency: defaultReindexConcurrency,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SweepResult counts what one sweep did
type SweepResult struct {
	Total   int
	Indexed int
	Failed  int
}

// Sweep indexes every unindexed document once. Documents that fail stay
// unindexed for the next sweep. progress, when set, is called after each
// batch.
func (s *ReindexService) Sweep(ctx context.Context, progress func(SweepResult)) (*SweepResult, error) {
	if s.ingestion == nil || s.references == nil {
		return nil, errors.New("ingestion service and reference store not set")
	}

	result := &SweepResult{}
	attempted := make(map[uuid.UUID]bool)

	for {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		// Failed documents stay at the head of the queue, so widen the
		// window past them
		docs, err := s.references.ListUnindexed(ctx, s.batchSize+result.Failed)
		if err != nil {
			return result, fmt.Errorf("list unindexed documents: %w", err)
		}

		var batch []*models.ReferenceDocument
		for _, doc := range docs {
			if !attempted[doc.ID] {
				attempted[doc.ID] = true
				batch = append(batch, doc)
			}
		}
		if len(batch) == 0 {
			break
		}

		indexed, failed := s.indexBatch(ctx, batch)
		result.Total += len(batch)
		result.Indexed += indexed
		result.Failed += failed
		if progress != nil {
			progress(*result)
		}
	}

	s.logger.Info("reindex sweep finished",
		zap.Int("total", result.Total),
		zap.Int("indexed", result.Indexed),
		zap.Int("failed", result.Failed),
	)
	return result, nil
}

func (s *ReindexService) indexBatch(ctx context.Context, batch []*models.ReferenceDocument) (int, int) {
	var (
		mu              sync.Mutex
		indexed, failed int
	)

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for _, doc := range batch {
		g.Go(func() error {
			err := s.ingestion.IndexDocument(ctx, doc)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed++
				metrics.ReindexedDocuments.WithLabelValues("failed").Inc()
				s.logger.Warn("failed to reindex document",
					zap.String("document_id", doc.ID.String()),
					zap.Error(err),
				)
				return nil
			}
			indexed++
			metrics.ReindexedDocuments.WithLabelValues("indexed").Inc()
			return nil
		})
	}
	_ = g.Wait()

	return indexed, failed
}

// StartReindex creates a job and runs the sweep in the background. It
// returns as soon as the job is stored.
func (s *ReindexService) StartReindex(ctx context.Context) (*models.Job, error) {
	if s.jobs == nil {
		return nil, errors.New("job store not set")
	}

	job := &models.Job{
		Kind:   models.JobKindReindex,
		Status: models.JobStatusPending,
	}
	if err := s.jobs.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistFailed, err)
	}

	go s.ProcessReindex(context.WithoutCancel(ctx), job.ID)

	return job, nil
}

// ProcessReindex runs a sweep on behalf of a job and records its progress
func (s *ReindexService) ProcessReindex(ctx context.Context, jobID uuid.UUID) {
	log := s.logger.With(zap.String("job_id", jobID.String()))

	if err := s.jobs.UpdateStatus(ctx, jobID, models.JobStatusInProgress); err != nil {
		log.Error("failed to mark reindex job in progress", zap.Error(err))
	}

	result, err := s.Sweep(ctx, func(r SweepResult) {
		if err := s.jobs.UpdateProgress(ctx, jobID, r.Total, r.Indexed, r.Failed); err != nil {
			log.Warn("failed to record reindex progress", zap.Error(err))
		}
	})
	if err != nil {
		log.Error("reindex job failed", zap.Error(err))
		if ferr := s.jobs.Fail(ctx, jobID, err.Error()); ferr != nil {
			log.Error("failed to mark reindex job failed", zap.Error(ferr))
		}
		return
	}

	if err := s.jobs.UpdateProgress(ctx, jobID, result.Total, result.Indexed, result.Failed); err != nil {
		log.Warn("failed to record reindex progress", zap.Error(err))
	}
	if err := s.jobs.Complete(ctx, jobID); err != nil {
		log.Error("failed to mark reindex job completed", zap.Error(err))
	}
}

// GetJob retrieves a job by id
func (s *ReindexService) GetJob(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	if s.jobs == nil {
		return nil, errors.New("job store not set")
	}
	job, err := s.jobs.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrJobNotFound
	}
	return job, err
}

// RunPeriodic sweeps every interval until ctx is cancelled
func (s *ReindexService) RunPeriodic(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Sweep(ctx, nil); err != nil && ctx.Err() == nil {
				s.logger.Warn("periodic reindex sweep failed", zap.Error(err))
			}
		}
	}
}
