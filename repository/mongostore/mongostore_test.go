package mongostore

import (
	"context"
	"errors"
	"os"
	"testing"

	"visar-backend/models"
	"visar-backend/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestTranslate(t *testing.T) {
	assert.NoError(t, translate(nil))
	assert.ErrorIs(t, translate(mongo.ErrNoDocuments), repository.ErrNotFound)

	dup := mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 11000, Message: "E11000 duplicate key"}}}
	err := translate(dup)
	assert.ErrorIs(t, err, repository.ErrConflict)

	other := errors.New("boom")
	assert.Equal(t, other, translate(other))
}

func TestParseID(t *testing.T) {
	id := uuid.New()
	assert.Equal(t, id, parseID(id.String()))
	assert.Equal(t, uuid.Nil, parseID("not-a-uuid"))
}

// Runs only against a real server: VISAR_TEST_MONGO_URI=mongodb://localhost:27017
func TestConversationStore_Integration(t *testing.T) {
	uri := os.Getenv("VISAR_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("VISAR_TEST_MONGO_URI not set")
	}
	ctx := context.Background()

	client, err := Connect(ctx, uri)
	require.NoError(t, err)
	defer client.Disconnect(ctx)

	db := client.Database("visar_test_" + uuid.NewString()[:8])
	defer db.Drop(ctx)
	require.NoError(t, EnsureIndexes(ctx, db))

	store := NewConversationStore(db)
	clientID := uuid.New()

	seq, err := store.LastSeq(ctx, clientID)
	require.NoError(t, err)
	assert.Zero(t, seq)

	for i, content := range []string{"u1", "a1", "u2"} {
		role := models.RoleUser
		if i%2 == 1 {
			role = models.RoleAssistant
		}
		require.NoError(t, store.Append(ctx, &models.ConversationTurn{
			ClientID: clientID, Seq: int64(i + 1), Role: role, Content: content,
		}))
	}

	err = store.Append(ctx, &models.ConversationTurn{ClientID: clientID, Seq: 3, Role: models.RoleUser, Content: "dup"})
	assert.ErrorIs(t, err, repository.ErrConflict)

	turns, err := store.ListRecent(ctx, clientID, 2)
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, "a1", turns[0].Content)
	assert.Equal(t, "u2", turns[1].Content)
}
