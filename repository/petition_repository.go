package repository

import (
	"context"

	"visar-backend/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PetitionRepository handles database operations for generated petitions
type PetitionRepository struct {
	db *pgxpool.Pool
}

// NewPetitionRepository creates a new petition repository
func NewPetitionRepository(db *pgxpool.Pool) *PetitionRepository {
	return &PetitionRepository{db: db}
}

// Create stores a generated petition. Petitions are never updated.
func (r *PetitionRepository) Create(ctx context.Context, petition *models.Petition) error {
	petition.ID = newID(petition.ID)

	query := `
		INSERT INTO petitions (
			id, client_id, visa_type, criterion, request, content, session_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`

	err := r.db.QueryRow(
		ctx, query,
		petition.ID,
		petition.ClientID,
		petition.CaseType,
		petition.Criterion,
		petition.Request,
		petition.Content,
		petition.SessionID,
	).Scan(&petition.CreatedAt)

	return translate(err)
}

// ListByClient retrieves all petitions for a client, newest first
func (r *PetitionRepository) ListByClient(ctx context.Context, clientID uuid.UUID) ([]*models.Petition, error) {
	query := `
		SELECT id, client_id, visa_type, criterion, request, content, session_id, created_at
		FROM petitions
		WHERE client_id = $1
		ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, clientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var petitions []*models.Petition
	for rows.Next() {
		p := &models.Petition{}
		if err := rows.Scan(
			&p.ID,
			&p.ClientID,
			&p.CaseType,
			&p.Criterion,
			&p.Request,
			&p.Content,
			&p.SessionID,
			&p.CreatedAt,
		); err != nil {
			return nil, err
		}
		petitions = append(petitions, p)
	}
	return petitions, rows.Err()
}
