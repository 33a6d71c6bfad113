package repository

import (
	"context"

	"visar-backend/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ConversationRepository handles database operations for chat turns
type ConversationRepository struct {
	db *pgxpool.Pool
}

// NewConversationRepository creates a new conversation repository
func NewConversationRepository(db *pgxpool.Pool) *ConversationRepository {
	return &ConversationRepository{db: db}
}

// Append inserts a turn. The (client_id, seq) unique constraint rejects a
// second writer that read the same last sequence number.
func (r *ConversationRepository) Append(ctx context.Context, turn *models.ConversationTurn) error {
	turn.ID = newID(turn.ID)

	query := `
		INSERT INTO conversation_turns (id, client_id, session_id, seq, role, content)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`

	err := r.db.QueryRow(
		ctx, query,
		turn.ID,
		turn.ClientID,
		turn.SessionID,
		turn.Seq,
		turn.Role,
		turn.Content,
	).Scan(&turn.CreatedAt)

	return translate(err)
}

// LastSeq returns the highest sequence number for a client, 0 if none
func (r *ConversationRepository) LastSeq(ctx context.Context, clientID uuid.UUID) (int64, error) {
	var seq int64
	err := r.db.QueryRow(ctx,
		`SELECT COALESCE(MAX(seq), 0) FROM conversation_turns WHERE client_id = $1`,
		clientID,
	).Scan(&seq)
	return seq, err
}

// ListRecent returns the limit most recent turns in ascending order
func (r *ConversationRepository) ListRecent(ctx context.Context, clientID uuid.UUID, limit int) ([]*models.ConversationTurn, error) {
	query := `
		SELECT id, client_id, session_id, seq, role, content, created_at
		FROM (
			SELECT id, client_id, session_id, seq, role, content, created_at
			FROM conversation_turns
			WHERE client_id = $1
			ORDER BY seq DESC, created_at DESC
			LIMIT $2
		) recent
		ORDER BY seq ASC, created_at ASC`

	rows, err := r.db.Query(ctx, query, clientID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var turns []*models.ConversationTurn
	for rows.Next() {
		turn := &models.ConversationTurn{}
		if err := rows.Scan(
			&turn.ID,
			&turn.ClientID,
			&turn.SessionID,
			&turn.Seq,
			&turn.Role,
			&turn.Content,
			&turn.CreatedAt,
		); err != nil {
			return nil, err
		}
		turns = append(turns, turn)
	}
	return turns, rows.Err()
}
