package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"visar-backend/config"
	"visar-backend/embedding"
	"visar-backend/extractor"
	"visar-backend/metrics"
	"visar-backend/models"
	"visar-backend/repository"
	"visar-backend/storage"
	"visar-backend/vectorindex"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// IngestionService turns uploaded reference petitions into stored documents
// and searchable vectors
type IngestionService struct {
	extractor  *extractor.Extractor
	embedder   embedding.Embedder
	index      vectorindex.Index
	references repository.ReferenceStore
	storage    storage.Storage
	logger     *zap.Logger
	timeouts   config.TimeoutsConfig
}

// IngestionServiceOption is a functional option for IngestionService
type IngestionServiceOption func(*IngestionService)

// IngestWithExtractor sets the text extractor
func IngestWithExtractor(e *extractor.Extractor) IngestionServiceOption {
	return func(s *IngestionService) {
		s.extractor = e
	}
}

// IngestWithEmbedder sets the embedder
func IngestWithEmbedder(e embedding.Embedder) IngestionServiceOption {
	return func(s *IngestionService) {
		s.embedder = e
	}
}

// IngestWithIndex sets the vector index
func IngestWithIndex(idx vectorindex.Index) IngestionServiceOption {
	return func(s *IngestionService) {
		s.index = idx
	}
}

// IngestWithReferenceStore sets the reference document store
func IngestWithReferenceStore(store repository.ReferenceStore) IngestionServiceOption {
	return func(s *IngestionService) {
		s.references = store
	}
}

// IngestWithStorage sets where raw uploads are kept. Optional.
func IngestWithStorage(st storage.Storage) IngestionServiceOption {
	return func(s *IngestionService) {
		s.storage = st
	}
}

// IngestWithLogger sets the logger
func IngestWithLogger(l *zap.Logger) IngestionServiceOption {
	return func(s *IngestionService) {
		s.logger = l
	}
}

// IngestWithTimeouts sets the per-call bounds
func IngestWithTimeouts(t config.TimeoutsConfig) IngestionServiceOption {
	return func(s *IngestionService) {
		s.timeouts = t
	}
}

// NewIngestionService creates a new ingestion service
func NewIngestionService(opts ...IngestionServiceOption) *IngestionService {
	s := &IngestionService{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	if s.extractor == nil {
		s.extractor = extractor.New(s.timeouts.Extract)
	}
	return s
}

// IngestRequest represents one uploaded reference document. An empty Format
// is detected from the filename and content.
type IngestRequest struct {
	Filename string
	Data     []byte
	Format   extractor.Format
	CaseType models.VisaType
	Category models.Category
}

// IngestResult represents the stored document. Indexed is false when the
// embed or upsert step failed; the reindex sweep picks those up later.
type IngestResult struct {
	Document *models.ReferenceDocument
	Indexed  bool
}

// Ingest extracts, stores, embeds and indexes one document. Only durable
// persistence failures are returned.
func (s *IngestionService) Ingest(ctx context.Context, req IngestRequest) (*IngestResult, error) {
	if s.references == nil {
		return nil, errors.New("reference store not set")
	}
	if !req.Category.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidCategory, req.Category)
	}

	doc := &models.ReferenceDocument{
		ID:       uuid.New(),
		Filename: req.Filename,
		Category: req.Category,
		CaseType: req.CaseType,
	}
	log := s.logger.With(zap.String("document_id", doc.ID.String()), zap.String("filename", req.Filename))

	if s.storage != nil {
		storeCtx, cancel := withTimeout(ctx, s.timeouts.Store)
		path, err := s.storage.Upload(storeCtx, doc.ID, req.Filename, bytes.NewReader(req.Data))
		cancel()
		if err != nil {
			metrics.IngestTotal.WithLabelValues("failed").Inc()
			log.Error("failed to store raw upload", zap.Error(err))
			return nil, fmt.Errorf("%w: store upload: %v", ErrPersistFailed, err)
		}
		doc.StoragePath = path
	}

	format := req.Format
	if format == "" {
		format = extractor.DetectFormat(req.Filename, req.Data)
	}
	text, reason := extractor.TextOrEmpty(s.extractor.Extract(ctx, req.Data, format))
	if reason != "" {
		log.Warn("text extraction failed, continuing with empty text",
			zap.String("format", string(format)),
			zap.String("reason", reason),
		)
		metrics.ExtractionFailures.WithLabelValues(string(format), reason).Inc()
	}
	doc.Content = text
	doc.ExtractionError = reason

	createCtx, cancel := withTimeout(ctx, s.timeouts.Store)
	err := s.references.Create(createCtx, doc)
	cancel()
	if err != nil {
		metrics.IngestTotal.WithLabelValues("failed").Inc()
		log.Error("failed to persist reference document", zap.Error(err))
		s.discardUpload(doc.StoragePath)
		return nil, fmt.Errorf("%w: %v", ErrPersistFailed, err)
	}

	if err := s.IndexDocument(ctx, doc); err != nil {
		metrics.IngestTotal.WithLabelValues("unindexed").Inc()
		log.Warn("document stored but not indexed", zap.Error(err))
		return &IngestResult{Document: doc, Indexed: false}, nil
	}

	metrics.IngestTotal.WithLabelValues("indexed").Inc()
	log.Info("reference document ingested", zap.Int("characters", len([]rune(doc.Content))))
	return &IngestResult{Document: doc, Indexed: true}, nil
}

// IndexDocument embeds the document's full text and upserts it under the
// document id, then marks the document indexed. Calling it again for the
// same document replaces the vector.
func (s *IngestionService) IndexDocument(ctx context.Context, doc *models.ReferenceDocument) error {
	if s.embedder == nil || s.index == nil {
		return errors.New("embedder and vector index are required for indexing")
	}

	embedCtx, cancel := withTimeout(ctx, s.timeouts.Embed)
	vector, err := s.embedder.Embed(embedCtx, doc.Content)
	cancel()
	if err != nil {
		return fmt.Errorf("embed document: %w", err)
	}

	upsertCtx, cancel := withTimeout(ctx, s.timeouts.Index)
	err = s.index.Upsert(upsertCtx, vectorindex.Record{
		ID:     doc.ID.String(),
		Vector: vector,
		Metadata: vectorindex.Metadata{
			Text:     vectorindex.TruncateText(doc.Content),
			CaseType: string(doc.CaseType),
			Category: string(doc.Category),
			Filename: doc.Filename,
		},
	})
	cancel()
	if err != nil {
		metrics.IndexErrors.WithLabelValues("upsert").Inc()
		return fmt.Errorf("upsert vector: %w", err)
	}

	now := time.Now().UTC()
	markCtx, cancel := withTimeout(ctx, s.timeouts.Store)
	err = s.references.MarkIndexed(markCtx, doc.ID, now)
	cancel()
	if err != nil {
		return fmt.Errorf("mark indexed: %w", err)
	}

	doc.Indexed = true
	doc.IndexedAt = &now
	return nil
}

// BulkIngest ingests every request with at most concurrency in flight.
// Results line up with reqs; a failed entry is nil and its error is joined
// into the returned error.
func (s *IngestionService) BulkIngest(ctx context.Context, reqs []IngestRequest, concurrency int) ([]*IngestResult, error) {
	if concurrency <= 0 {
		concurrency = 1
	}

	results := make([]*IngestResult, len(reqs))
	errs := make([]error, len(reqs))

	var g errgroup.Group
	g.SetLimit(concurrency)
	for i, req := range reqs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				errs[i] = err
				return nil
			}
			res, err := s.Ingest(ctx, req)
			if err != nil {
				errs[i] = fmt.Errorf("%s: %w", req.Filename, err)
				return nil
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()

	return results, errors.Join(errs...)
}

// GetReference retrieves a reference document by id
func (s *IngestionService) GetReference(ctx context.Context, id uuid.UUID) (*models.ReferenceDocument, error) {
	if s.references == nil {
		return nil, errors.New("reference store not set")
	}
	doc, err := s.references.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrReferenceNotFound
	}
	return doc, err
}

// ListReferences lists reference documents, optionally for one case type
func (s *IngestionService) ListReferences(ctx context.Context, caseType string) ([]*models.ReferenceDocument, error) {
	if s.references == nil {
		return nil, errors.New("reference store not set")
	}
	return s.references.List(ctx, caseType)
}

// DeleteReference removes the vector first so a failure never leaves a
// vector pointing at a deleted document
func (s *IngestionService) DeleteReference(ctx context.Context, id uuid.UUID) error {
	doc, err := s.GetReference(ctx, id)
	if err != nil {
		return err
	}
	if s.index == nil {
		return errors.New("vector index not set")
	}

	deleteCtx, cancel := withTimeout(ctx, s.timeouts.Index)
	err = s.index.Delete(deleteCtx, doc.ID.String())
	cancel()
	if err != nil {
		metrics.IndexErrors.WithLabelValues("delete").Inc()
		return fmt.Errorf("delete vector: %w", err)
	}

	if err := s.references.Delete(ctx, doc.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrReferenceNotFound
		}
		return err
	}

	s.discardUpload(doc.StoragePath)
	return nil
}

func (s *IngestionService) discardUpload(path string) {
	if s.storage == nil || path == "" {
		return
	}
	ctx, cancel := withTimeout(context.Background(), s.timeouts.Store)
	defer cancel()
	if err := s.storage.Delete(ctx, path); err != nil {
		s.logger.Warn("failed to delete raw upload", zap.String("path", path), zap.Error(err))
	}
}
