package repository

import (
	"context"
	"errors"
	"time"

	"visar-backend/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound is returned when no record matches the lookup
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when a write violates a uniqueness constraint
	ErrConflict = errors.New("record conflicts with an existing one")
)

// ClientStore persists clients. Lookups are scoped to the owning caller.
type ClientStore interface {
	Create(ctx context.Context, client *models.Client) error
	GetByID(ctx context.Context, ownerID string, id uuid.UUID) (*models.Client, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*models.Client, error)
}

// ReferenceStore persists reference documents with their full text
type ReferenceStore interface {
	Create(ctx context.Context, doc *models.ReferenceDocument) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.ReferenceDocument, error)
	List(ctx context.Context, caseType string) ([]*models.ReferenceDocument, error)
	ListUnindexed(ctx context.Context, limit int) ([]*models.ReferenceDocument, error)
	MarkIndexed(ctx context.Context, id uuid.UUID, at time.Time) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// TemplateStore persists petition templates
type TemplateStore interface {
	Create(ctx context.Context, tmpl *models.Template) error
	FindByCaseAndCriterion(ctx context.Context, caseType, criterion string, limit int) ([]*models.Template, error)
	ListByCaseType(ctx context.Context, caseType string) ([]*models.Template, error)
}

// ConversationStore persists chat turns. Append fails with ErrConflict when
// a turn with the same (client, seq) already exists.
type ConversationStore interface {
	Append(ctx context.Context, turn *models.ConversationTurn) error
	LastSeq(ctx context.Context, clientID uuid.UUID) (int64, error)
	ListRecent(ctx context.Context, clientID uuid.UUID, limit int) ([]*models.ConversationTurn, error)
}

// PetitionStore persists generated petition drafts
type PetitionStore interface {
	Create(ctx context.Context, petition *models.Petition) error
	ListByClient(ctx context.Context, clientID uuid.UUID) ([]*models.Petition, error)
}

// CaseDocumentStore persists metadata of client case documents
type CaseDocumentStore interface {
	Create(ctx context.Context, doc *models.CaseDocument) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.CaseDocument, error)
	ListByClient(ctx context.Context, clientID uuid.UUID) ([]*models.CaseDocument, error)
}

// JobStore persists background job progress
type JobStore interface {
	Create(ctx context.Context, job *models.Job) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Job, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.JobStatus) error
	UpdateProgress(ctx context.Context, id uuid.UUID, total, processed, failed int) error
	Complete(ctx context.Context, id uuid.UUID) error
	Fail(ctx context.Context, id uuid.UUID, errorMessage string) error
}

// translate maps driver errors onto the package's sentinel errors
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return errors.Join(ErrConflict, err)
	}
	return err
}

// newID returns id, or a fresh one when id is unset
func newID(id uuid.UUID) uuid.UUID {
	if id == uuid.Nil {
		return uuid.New()
	}
	return id
}
