package repository

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestTranslate(t *testing.T) {
	assert.NoError(t, translate(nil))
	assert.ErrorIs(t, translate(pgx.ErrNoRows), ErrNotFound)

	unique := &pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"}
	err := translate(unique)
	assert.ErrorIs(t, err, ErrConflict)
	var pgErr *pgconn.PgError
	assert.True(t, errors.As(err, &pgErr))

	other := &pgconn.PgError{Code: "42P01"}
	assert.Equal(t, error(other), translate(other))
}

func TestNewID(t *testing.T) {
	id := uuid.New()
	assert.Equal(t, id, newID(id))
	assert.NotEqual(t, uuid.Nil, newID(uuid.Nil))
}

func TestSchema_HasConversationOrderingConstraint(t *testing.T) {
	var found bool
	for _, stmt := range Schema {
		if stmt.Name == "conversation_turns" {
			found = true
			assert.Contains(t, stmt.SQL, "UNIQUE (client_id, seq)")
		}
	}
	assert.True(t, found)
}

func TestSchema_FilenamesAreText(t *testing.T) {
	tables := map[string]bool{}
	for _, stmt := range Schema {
		if stmt.Name == "reference_documents" || stmt.Name == "case_documents" {
			tables[stmt.Name] = true
			assert.Contains(t, stmt.SQL, "filename TEXT NOT NULL")
			assert.NotContains(t, stmt.SQL, "filename VARCHAR")
		}
	}
	assert.Len(t, tables, 2)
}
