package service

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"visar-backend/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistory_AscendingOrder(t *testing.T) {
	store := &memConversationStore{}
	h := NewHistoryService(HistoryWithConversationStore(store))
	ctx := context.Background()
	client := uuid.New()

	for _, turn := range []struct {
		role    models.Role
		content string
	}{
		{models.RoleUser, "u1"},
		{models.RoleAssistant, "a1"},
		{models.RoleUser, "u2"},
	} {
		_, err := h.AppendTurn(ctx, client, turn.role, turn.content)
		require.NoError(t, err)
	}

	turns, err := h.GetHistory(ctx, client, 0)
	require.NoError(t, err)
	require.Len(t, turns, 3)
	assert.Equal(t, []string{"u1", "a1", "u2"}, contents(turns))
	assert.Equal(t, []int64{1, 2, 3}, seqs(turns))
	assert.Equal(t, models.ChatSessionID(client), turns[0].SessionID)
}

func TestHistory_LimitKeepsMostRecent(t *testing.T) {
	store := &memConversationStore{}
	h := NewHistoryService(HistoryWithConversationStore(store), HistoryWithDefaultLimit(4))
	ctx := context.Background()
	client := uuid.New()

	for i := 1; i <= 6; i++ {
		_, err := h.AppendTurn(ctx, client, models.RoleUser, fmt.Sprintf("m%d", i))
		require.NoError(t, err)
	}

	turns, err := h.GetHistory(ctx, client, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"m5", "m6"}, contents(turns))

	// non-positive and oversized limits both use the default
	turns, err = h.GetHistory(ctx, client, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"m3", "m4", "m5", "m6"}, contents(turns))

	turns, err = h.GetHistory(ctx, client, 100)
	require.NoError(t, err)
	assert.Len(t, turns, 4)
}

func TestHistory_ClientsAreIsolated(t *testing.T) {
	store := &memConversationStore{}
	h := NewHistoryService(HistoryWithConversationStore(store))
	ctx := context.Background()
	a, b := uuid.New(), uuid.New()

	_, err := h.AppendTurn(ctx, a, models.RoleUser, "for a")
	require.NoError(t, err)
	turn, err := h.AppendTurn(ctx, b, models.RoleUser, "for b")
	require.NoError(t, err)
	assert.Equal(t, int64(1), turn.Seq)

	turns, err := h.GetHistory(ctx, a, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"for a"}, contents(turns))
}

func TestHistory_InvalidRole(t *testing.T) {
	h := NewHistoryService(HistoryWithConversationStore(&memConversationStore{}))
	_, err := h.AppendTurn(context.Background(), uuid.New(), "system", "hi")
	assert.ErrorIs(t, err, ErrInvalidRole)
}

func TestHistory_StoreFailureIsFatal(t *testing.T) {
	h := NewHistoryService(HistoryWithConversationStore(&memConversationStore{appendErr: errBoom}))
	_, err := h.AppendTurn(context.Background(), uuid.New(), models.RoleUser, "hi")
	assert.ErrorIs(t, err, ErrPersistFailed)
}

func TestHistory_RetriesSequenceConflicts(t *testing.T) {
	store := &memConversationStore{conflicts: 2}
	h := NewHistoryService(HistoryWithConversationStore(store))

	turn, err := h.AppendTurn(context.Background(), uuid.New(), models.RoleUser, "hi")
	require.NoError(t, err)
	assert.Equal(t, int64(1), turn.Seq)

	store.conflicts = maxAppendAttempts
	_, err = h.AppendTurn(context.Background(), uuid.New(), models.RoleUser, "hi")
	assert.ErrorIs(t, err, ErrPersistFailed)
}

func TestHistory_ConcurrentAppendsAreContiguous(t *testing.T) {
	store := &memConversationStore{}
	h := NewHistoryService(HistoryWithConversationStore(store))
	ctx := context.Background()
	client := uuid.New()

	const writers = 50
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := h.AppendTurn(ctx, client, models.RoleUser, fmt.Sprintf("m%d", i))
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	turns, err := h.GetHistory(ctx, client, 0)
	require.NoError(t, err)
	require.Len(t, turns, writers)
	for i, turn := range turns {
		assert.Equal(t, int64(i+1), turn.Seq)
	}
	assert.Empty(t, h.locks.locks, "locks are released once idle")
}

func TestHistory_WithClientLockKeepsExchangeAdjacent(t *testing.T) {
	store := &memConversationStore{}
	h := NewHistoryService(HistoryWithConversationStore(store))
	ctx := context.Background()
	client := uuid.New()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := h.WithClientLock(client, func(lh LockedHistory) error {
				if _, err := lh.Append(ctx, models.RoleUser, fmt.Sprintf("q%d", i)); err != nil {
					return err
				}
				_, err := lh.Append(ctx, models.RoleAssistant, fmt.Sprintf("a%d", i))
				return err
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	turns, err := h.GetHistory(ctx, client, 0)
	require.NoError(t, err)
	require.Len(t, turns, 20)
	for i := 0; i < len(turns); i += 2 {
		assert.Equal(t, models.RoleUser, turns[i].Role)
		assert.Equal(t, models.RoleAssistant, turns[i+1].Role)
		assert.Equal(t, turns[i].Content[1:], turns[i+1].Content[1:])
	}
}

func contents(turns []*models.ConversationTurn) []string {
	out := make([]string, 0, len(turns))
	for _, t := range turns {
		out = append(out, t.Content)
	}
	return out
}

func seqs(turns []*models.ConversationTurn) []int64 {
	out := make([]int64, 0, len(turns))
	for _, t := range turns {
		out = append(out, t.Seq)
	}
	return out
}
