package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"visar-backend/models"
	"visar-backend/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultHistoryLimit = 1000
	maxAppendAttempts   = 3
)

// HistoryService keeps the ordered chat transcript of each client
type HistoryService struct {
	conversations repository.ConversationStore
	logger        *zap.Logger
	storeTimeout  time.Duration
	defaultLimit  int
	locks         *clientLocks
}

// HistoryServiceOption is a functional option for HistoryService
type HistoryServiceOption func(*HistoryService)

// HistoryWithConversationStore sets the conversation store
func HistoryWithConversationStore(store repository.ConversationStore) HistoryServiceOption {
	return func(s *HistoryService) {
		s.conversations = store
	}
}

// HistoryWithLogger sets the logger
func HistoryWithLogger(l *zap.Logger) HistoryServiceOption {
	return func(s *HistoryService) {
		s.logger = l
	}
}

// HistoryWithStoreTimeout bounds each store call
func HistoryWithStoreTimeout(d time.Duration) HistoryServiceOption {
	return func(s *HistoryService) {
		s.storeTimeout = d
	}
}

// HistoryWithDefaultLimit sets the number of turns GetHistory returns when
// the caller asks for none
func HistoryWithDefaultLimit(limit int) HistoryServiceOption {
	return func(s *HistoryService) {
		if limit > 0 {
			s.defaultLimit = limit
		}
	}
}

// NewHistoryService creates a new history service
func NewHistoryService(opts ...HistoryServiceOption) *HistoryService {
	s := &HistoryService{
		logger:       zap.NewNop(),
		defaultLimit: defaultHistoryLimit,
		locks:        newClientLocks(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LockedHistory is a client's history while the caller holds its lock
type LockedHistory struct {
	service  *HistoryService
	clientID uuid.UUID
}

// Append appends a turn without taking the lock again
func (h LockedHistory) Append(ctx context.Context, role models.Role, content string) (*models.ConversationTurn, error) {
	return h.service.appendLocked(ctx, h.clientID, role, content)
}

// Recent returns the limit most recent turns in ascending order
func (h LockedHistory) Recent(ctx context.Context, limit int) ([]*models.ConversationTurn, error) {
	return h.service.GetHistory(ctx, h.clientID, limit)
}

// WithClientLock runs fn while holding the client's append lock, so turns
// appended inside fn stay adjacent in the transcript
func (s *HistoryService) WithClientLock(clientID uuid.UUID, fn func(LockedHistory) error) error {
	unlock := s.locks.lock(clientID)
	defer unlock()
	return fn(LockedHistory{service: s, clientID: clientID})
}

// AppendTurn appends one turn to a client's transcript
func (s *HistoryService) AppendTurn(ctx context.Context, clientID uuid.UUID, role models.Role, content string) (*models.ConversationTurn, error) {
	var turn *models.ConversationTurn
	err := s.WithClientLock(clientID, func(h LockedHistory) error {
		var err error
		turn, err = h.Append(ctx, role, content)
		return err
	})
	return turn, err
}

// appendLocked assigns the next sequence number. The lock orders writers in
// this process; the store's unique (client, seq) constraint catches writers
// in other processes, in which case the append is retried with a fresh seq.
func (s *HistoryService) appendLocked(ctx context.Context, clientID uuid.UUID, role models.Role, content string) (*models.ConversationTurn, error) {
	if s.conversations == nil {
		return nil, errors.New("conversation store not set")
	}
	if !role.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}

	var lastErr error
	for attempt := 0; attempt < maxAppendAttempts; attempt++ {
		storeCtx, cancel := withTimeout(ctx, s.storeTimeout)
		turn, err := s.tryAppend(storeCtx, clientID, role, content)
		cancel()
		if err == nil {
			return turn, nil
		}
		lastErr = err
		if !errors.Is(err, repository.ErrConflict) {
			break
		}
		s.logger.Warn("conversation sequence conflict, retrying",
			zap.String("client_id", clientID.String()),
			zap.Int("attempt", attempt+1),
		)
	}

	s.logger.Error("failed to append conversation turn",
		zap.String("client_id", clientID.String()),
		zap.Error(lastErr),
	)
	return nil, fmt.Errorf("%w: %v", ErrPersistFailed, lastErr)
}

func (s *HistoryService) tryAppend(ctx context.Context, clientID uuid.UUID, role models.Role, content string) (*models.ConversationTurn, error) {
	last, err := s.conversations.LastSeq(ctx, clientID)
	if err != nil {
		return nil, err
	}

	turn := &models.ConversationTurn{
		ClientID:  clientID,
		SessionID: models.ChatSessionID(clientID),
		Seq:       last + 1,
		Role:      role,
		Content:   content,
	}
	if err := s.conversations.Append(ctx, turn); err != nil {
		return nil, err
	}
	return turn, nil
}

// GetHistory returns the limit most recent turns in ascending order. A
// non-positive limit uses the default, which is also the upper bound.
func (s *HistoryService) GetHistory(ctx context.Context, clientID uuid.UUID, limit int) ([]*models.ConversationTurn, error) {
	if s.conversations == nil {
		return nil, errors.New("conversation store not set")
	}
	if limit <= 0 || limit > s.defaultLimit {
		limit = s.defaultLimit
	}

	storeCtx, cancel := withTimeout(ctx, s.storeTimeout)
	defer cancel()
	turns, err := s.conversations.ListRecent(storeCtx, clientID, limit)
	if err != nil {
		return nil, fmt.Errorf("list conversation turns: %w", err)
	}
	return turns, nil
}

// clientLocks hands out one mutex per client and forgets it once no
// goroutine holds or waits for it
type clientLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*clientLock
}

type clientLock struct {
	mu   sync.Mutex
	refs int
}

func newClientLocks() *clientLocks {
	return &clientLocks{locks: make(map[uuid.UUID]*clientLock)}
}

func (l *clientLocks) lock(id uuid.UUID) func() {
	l.mu.Lock()
	entry, ok := l.locks[id]
	if !ok {
		entry = &clientLock{}
		l.locks[id] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()

		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.locks, id)
		}
		l.mu.Unlock()
	}
}
