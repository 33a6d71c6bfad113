package repository

import (
	"context"

	"visar-backend/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CaseDocumentRepository handles database operations for client case documents
type CaseDocumentRepository struct {
	db *pgxpool.Pool
}

// NewCaseDocumentRepository creates a new case document repository
func NewCaseDocumentRepository(db *pgxpool.Pool) *CaseDocumentRepository {
	return &CaseDocumentRepository{db: db}
}

// Create creates a new case document record
func (r *CaseDocumentRepository) Create(ctx context.Context, doc *models.CaseDocument) error {
	doc.ID = newID(doc.ID)

	query := `
		INSERT INTO case_documents (
			id, client_id, filename, file_type, mime_type, size, storage_path
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING uploaded_at`

	err := r.db.QueryRow(
		ctx, query,
		doc.ID,
		doc.ClientID,
		doc.Filename,
		doc.FileType,
		doc.MimeType,
		doc.Size,
		doc.StoragePath,
	).Scan(&doc.UploadedAt)

	return translate(err)
}

// GetByID retrieves a case document by ID
func (r *CaseDocumentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.CaseDocument, error) {
	doc := &models.CaseDocument{}
	query := `
		SELECT id, client_id, filename, file_type, mime_type, size, storage_path, uploaded_at
		FROM case_documents
		WHERE id = $1`

	err := r.db.QueryRow(ctx, query, id).Scan(
		&doc.ID,
		&doc.ClientID,
		&doc.Filename,
		&doc.FileType,
		&doc.MimeType,
		&doc.Size,
		&doc.StoragePath,
		&doc.UploadedAt,
	)
	if err != nil {
		return nil, translate(err)
	}

	return doc, nil
}

// ListByClient retrieves all case documents for a client, newest first
func (r *CaseDocumentRepository) ListByClient(ctx context.Context, clientID uuid.UUID) ([]*models.CaseDocument, error) {
	query := `
		SELECT id, client_id, filename, file_type, mime_type, size, storage_path, uploaded_at
		FROM case_documents
		WHERE client_id = $1
		ORDER BY uploaded_at DESC`

	rows, err := r.db.Query(ctx, query, clientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []*models.CaseDocument
	for rows.Next() {
		doc := &models.CaseDocument{}
		err := rows.Scan(
			&doc.ID,
			&doc.ClientID,
			&doc.Filename,
			&doc.FileType,
			&doc.MimeType,
			&doc.Size,
			&doc.StoragePath,
			&doc.UploadedAt,
		)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}

	return docs, rows.Err()
}
