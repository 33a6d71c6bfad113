package repository

import (
	"context"
	"time"

	"visar-backend/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ReferenceRepository handles database operations for reference documents
type ReferenceRepository struct {
	db *pgxpool.Pool
}

// NewReferenceRepository creates a new reference document repository
func NewReferenceRepository(db *pgxpool.Pool) *ReferenceRepository {
	return &ReferenceRepository{db: db}
}

const referenceColumns = `id, filename, storage_path, content, category, visa_type,
	extraction_error, indexed, indexed_at, created_at`

// Create stores a reference document with its full text
func (r *ReferenceRepository) Create(ctx context.Context, doc *models.ReferenceDocument) error {
	doc.ID = newID(doc.ID)

	query := `
		INSERT INTO reference_documents (
			id, filename, storage_path, content, category, visa_type, extraction_error, indexed
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at`

	err := r.db.QueryRow(
		ctx, query,
		doc.ID,
		doc.Filename,
		doc.StoragePath,
		doc.Content,
		doc.Category,
		doc.CaseType,
		doc.ExtractionError,
		doc.Indexed,
	).Scan(&doc.CreatedAt)

	return translate(err)
}

// GetByID retrieves a reference document by ID
func (r *ReferenceRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.ReferenceDocument, error) {
	query := `SELECT ` + referenceColumns + ` FROM reference_documents WHERE id = $1`

	doc, err := scanReference(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, translate(err)
	}
	return doc, nil
}

// List retrieves reference documents, optionally filtered by visa type
func (r *ReferenceRepository) List(ctx context.Context, caseType string) ([]*models.ReferenceDocument, error) {
	query := `
		SELECT ` + referenceColumns + `
		FROM reference_documents
		WHERE ($1 = '' OR visa_type = $1)
		ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, caseType)
	if err != nil {
		return nil, err
	}
	return collectReferences(rows)
}

// ListUnindexed retrieves the oldest documents whose vector upsert has not
// succeeded yet
func (r *ReferenceRepository) ListUnindexed(ctx context.Context, limit int) ([]*models.ReferenceDocument, error) {
	query := `
		SELECT ` + referenceColumns + `
		FROM reference_documents
		WHERE NOT indexed
		ORDER BY created_at ASC
		LIMIT $1`

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	return collectReferences(rows)
}

// MarkIndexed records that the document's vector is in the index
func (r *ReferenceRepository) MarkIndexed(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `
		UPDATE reference_documents SET
			indexed = TRUE,
			indexed_at = $2
		WHERE id = $1`

	tag, err := r.db.Exec(ctx, query, id, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a reference document
func (r *ReferenceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM reference_documents WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanReference(row pgx.Row) (*models.ReferenceDocument, error) {
	doc := &models.ReferenceDocument{}
	err := row.Scan(
		&doc.ID,
		&doc.Filename,
		&doc.StoragePath,
		&doc.Content,
		&doc.Category,
		&doc.CaseType,
		&doc.ExtractionError,
		&doc.Indexed,
		&doc.IndexedAt,
		&doc.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func collectReferences(rows pgx.Rows) ([]*models.ReferenceDocument, error) {
	defer rows.Close()

	var docs []*models.ReferenceDocument
	for rows.Next() {
		doc, err := scanReference(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}
