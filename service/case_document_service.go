package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"visar-backend/models"
	"visar-backend/repository"
	"visar-backend/storage"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CaseDocumentService keeps the files a caseworker attaches to a client
// (CVs, evidence) and serves them back
type CaseDocumentService struct {
	documents repository.CaseDocumentStore
	clients   *ClientService
	storage   storage.Storage
	logger    *zap.Logger
}

// CaseDocumentServiceOption is a functional option for CaseDocumentService
type CaseDocumentServiceOption func(*CaseDocumentService)

// CaseDocWithStore sets the case document store
func CaseDocWithStore(store repository.CaseDocumentStore) CaseDocumentServiceOption {
	return func(s *CaseDocumentService) {
		s.documents = store
	}
}

// CaseDocWithClientService sets the client service used for ownership checks
func CaseDocWithClientService(clients *ClientService) CaseDocumentServiceOption {
	return func(s *CaseDocumentService) {
		s.clients = clients
	}
}

// CaseDocWithStorage sets the file storage backend
func CaseDocWithStorage(st storage.Storage) CaseDocumentServiceOption {
	return func(s *CaseDocumentService) {
		s.storage = st
	}
}

// CaseDocWithLogger sets the logger
func CaseDocWithLogger(l *zap.Logger) CaseDocumentServiceOption {
	return func(s *CaseDocumentService) {
		s.logger = l
	}
}

// NewCaseDocumentService creates a new case document service
func NewCaseDocumentService(opts ...CaseDocumentServiceOption) *CaseDocumentService {
	s := &CaseDocumentService{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// UploadCaseDocumentRequest represents one file attached to a client
type UploadCaseDocumentRequest struct {
	OwnerID  string
	ClientID uuid.UUID
	Filename string
	FileType string
	Data     []byte
}

func (s *CaseDocumentService) check() error {
	if s.documents == nil {
		return errors.New("case document store not set")
	}
	if s.clients == nil {
		return errors.New("client service not set")
	}
	return nil
}

// Upload stores the file and records its metadata against the client
func (s *CaseDocumentService) Upload(ctx context.Context, req UploadCaseDocumentRequest) (*models.CaseDocument, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	filename := strings.TrimSpace(req.Filename)
	if filename == "" {
		return nil, fmt.Errorf("%w: filename is required", ErrInvalidInput)
	}
	fileType := strings.TrimSpace(req.FileType)
	if fileType == "" {
		return nil, fmt.Errorf("%w: file_type is required", ErrInvalidInput)
	}
	if _, err := s.clients.GetClient(ctx, req.OwnerID, req.ClientID); err != nil {
		return nil, err
	}
	if s.storage == nil {
		return nil, ErrStorageDisabled
	}

	doc := &models.CaseDocument{
		ID:       uuid.New(),
		ClientID: req.ClientID,
		Filename: filename,
		FileType: fileType,
		MimeType: mimetype.Detect(req.Data).String(),
		Size:     int64(len(req.Data)),
	}
	log := s.logger.With(zap.String("document_id", doc.ID.String()), zap.String("client_id", req.ClientID.String()))

	path, err := s.storage.Upload(ctx, doc.ID, filename, bytes.NewReader(req.Data))
	if err != nil {
		log.Error("failed to store case document", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrPersistFailed, err)
	}
	doc.StoragePath = path

	if err := s.documents.Create(ctx, doc); err != nil {
		if delErr := s.storage.Delete(ctx, path); delErr != nil {
			log.Warn("failed to remove orphaned upload", zap.String("path", path), zap.Error(delErr))
		}
		return nil, fmt.Errorf("%w: %v", ErrPersistFailed, err)
	}
	log.Info("case document uploaded", zap.String("file_type", fileType), zap.Int64("size", doc.Size))
	return doc, nil
}

// ListDocuments returns the client's documents, newest first
func (s *CaseDocumentService) ListDocuments(ctx context.Context, ownerID string, clientID uuid.UUID) ([]*models.CaseDocument, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	if _, err := s.clients.GetClient(ctx, ownerID, clientID); err != nil {
		return nil, err
	}
	return s.documents.ListByClient(ctx, clientID)
}

// Download opens a stored document. The caller closes the reader.
func (s *CaseDocumentService) Download(ctx context.Context, ownerID string, id uuid.UUID) (*models.CaseDocument, io.ReadCloser, error) {
	if err := s.check(); err != nil {
		return nil, nil, err
	}
	doc, err := s.documents.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil, ErrDocumentNotFound
	}
	if err != nil {
		return nil, nil, err
	}
	// A document under someone else's client is reported as missing
	if _, err := s.clients.GetClient(ctx, ownerID, doc.ClientID); err != nil {
		if errors.Is(err, ErrClientNotFound) {
			return nil, nil, ErrDocumentNotFound
		}
		return nil, nil, err
	}
	if s.storage == nil {
		return nil, nil, ErrStorageDisabled
	}

	rc, err := s.storage.Download(ctx, doc.StoragePath)
	if errors.Is(err, storage.ErrNotFound) {
		s.logger.Warn("case document missing from storage",
			zap.String("document_id", id.String()), zap.String("path", doc.StoragePath))
		return nil, nil, ErrDocumentNotFound
	}
	if err != nil {
		return nil, nil, err
	}
	return doc, rc, nil
}
