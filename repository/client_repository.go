package repository

import (
	"context"

	"visar-backend/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ClientRepository handles database operations for clients
type ClientRepository struct {
	db *pgxpool.Pool
}

// NewClientRepository creates a new client repository
func NewClientRepository(db *pgxpool.Pool) *ClientRepository {
	return &ClientRepository{db: db}
}

// Create creates a new client
func (r *ClientRepository) Create(ctx context.Context, client *models.Client) error {
	client.ID = newID(client.ID)
	if client.Status == "" {
		client.Status = models.ClientStatusActive
	}

	query := `
		INSERT INTO clients (id, owner_id, name, email, visa_type, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`

	err := r.db.QueryRow(
		ctx, query,
		client.ID,
		client.OwnerID,
		client.Name,
		client.Email,
		client.CaseType,
		client.Status,
	).Scan(&client.CreatedAt)

	return translate(err)
}

// GetByID retrieves a client owned by ownerID
func (r *ClientRepository) GetByID(ctx context.Context, ownerID string, id uuid.UUID) (*models.Client, error) {
	client := &models.Client{}
	query := `
		SELECT id, owner_id, name, email, visa_type, status, created_at
		FROM clients
		WHERE id = $1 AND owner_id = $2`

	err := r.db.QueryRow(ctx, query, id, ownerID).Scan(
		&client.ID,
		&client.OwnerID,
		&client.Name,
		&client.Email,
		&client.CaseType,
		&client.Status,
		&client.CreatedAt,
	)
	if err != nil {
		return nil, translate(err)
	}

	return client, nil
}

// ListByOwner retrieves all clients of an owner, newest first
func (r *ClientRepository) ListByOwner(ctx context.Context, ownerID string) ([]*models.Client, error) {
	query := `
		SELECT id, owner_id, name, email, visa_type, status, created_at
		FROM clients
		WHERE owner_id = $1
		ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var clients []*models.Client
	for rows.Next() {
		client := &models.Client{}
		if err := rows.Scan(
			&client.ID,
			&client.OwnerID,
			&client.Name,
			&client.Email,
			&client.CaseType,
			&client.Status,
			&client.CreatedAt,
		); err != nil {
			return nil, err
		}
		clients = append(clients, client)
	}

	return clients, rows.Err()
}
