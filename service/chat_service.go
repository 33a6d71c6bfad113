package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"visar-backend/llm"
	"visar-backend/models"
	"visar-backend/prompt"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultHistoryWindow = 10

// ChatService runs the per-client petition assistant conversation
type ChatService struct {
	clients         *ClientService
	history         *HistoryService
	retriever       *Retriever
	generator       llm.Generator
	assembler       prompt.Assembler
	logger          *zap.Logger
	historyWindow   int
	generateTimeout time.Duration
}

// ChatServiceOption is a functional option for ChatService
type ChatServiceOption func(*ChatService)

// ChatWithClientService sets the client lookup
func ChatWithClientService(clients *ClientService) ChatServiceOption {
	return func(s *ChatService) {
		s.clients = clients
	}
}

// ChatWithHistoryService sets the transcript store
func ChatWithHistoryService(h *HistoryService) ChatServiceOption {
	return func(s *ChatService) {
		s.history = h
	}
}

// ChatWithRetriever sets the retriever
func ChatWithRetriever(r *Retriever) ChatServiceOption {
	return func(s *ChatService) {
		s.retriever = r
	}
}

// ChatWithGenerator sets the generative model
func ChatWithGenerator(g llm.Generator) ChatServiceOption {
	return func(s *ChatService) {
		s.generator = g
	}
}

// ChatWithAssembler sets the prompt assembler
func ChatWithAssembler(a prompt.Assembler) ChatServiceOption {
	return func(s *ChatService) {
		s.assembler = a
	}
}

// ChatWithLogger sets the logger
func ChatWithLogger(l *zap.Logger) ChatServiceOption {
	return func(s *ChatService) {
		s.logger = l
	}
}

// ChatWithHistoryWindow sets how many prior turns are sent to the model.
// Zero sends none.
func ChatWithHistoryWindow(n int) ChatServiceOption {
	return func(s *ChatService) {
		if n >= 0 {
			s.historyWindow = n
		}
	}
}

// ChatWithGenerateTimeout bounds the generate call
func ChatWithGenerateTimeout(d time.Duration) ChatServiceOption {
	return func(s *ChatService) {
		s.generateTimeout = d
	}
}

// NewChatService creates a new chat service
func NewChatService(opts ...ChatServiceOption) *ChatService {
	s := &ChatService{
		assembler:     prompt.New(""),
		logger:        zap.NewNop(),
		historyWindow: defaultHistoryWindow,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SendMessageRequest represents one user chat message
type SendMessageRequest struct {
	OwnerID  string
	ClientID uuid.UUID
	Message  string
}

// SendMessageResult holds both persisted turns of the exchange
type SendMessageResult struct {
	UserTurn      *models.ConversationTurn
	AssistantTurn *models.ConversationTurn
}

// SendMessage persists the user turn, generates a reply from the retrieved
// context and recent history, and persists the assistant turn. The client's
// lock is held throughout so the two turns are adjacent.
func (s *ChatService) SendMessage(ctx context.Context, req SendMessageRequest) (*SendMessageResult, error) {
	if s.clients == nil || s.history == nil {
		return nil, errors.New("client and history services not set")
	}
	if s.generator == nil {
		return nil, errors.New("generator not set")
	}
	if strings.TrimSpace(req.Message) == "" {
		return nil, ErrEmptyMessage
	}

	client, err := s.clients.GetClient(ctx, req.OwnerID, req.ClientID)
	if err != nil {
		return nil, err
	}

	result := &SendMessageResult{}
	err = s.history.WithClientLock(client.ID, func(h LockedHistory) error {
		var prior []*models.ConversationTurn
		if s.historyWindow > 0 {
			recent, histErr := h.Recent(ctx, s.historyWindow)
			if histErr != nil {
				s.logger.Warn("failed to load chat history, continuing without it", zap.Error(histErr))
			}
			prior = recent
		}

		userTurn, err := h.Append(ctx, models.RoleUser, req.Message)
		if err != nil {
			return err
		}
		result.UserTurn = userTurn

		var reference string
		if s.retriever != nil {
			reference = s.retriever.Context(ctx, req.Message, RetrieveOptions{})
		}

		system := s.assembler.Chat(prompt.ChatInput{
			ClientName: client.Name,
			CaseType:   string(client.CaseType),
			Context:    reference,
		})

		reply, err := generateTimed(ctx, s.generator, s.generateTimeout, "chat", llm.Request{
			System:  system,
			History: toMessages(prior),
			Prompt:  req.Message,
		})
		if err != nil {
			s.logger.Error("chat generation failed",
				zap.String("client_id", client.ID.String()),
				zap.Error(err),
			)
			return fmt.Errorf("%w: %v", ErrGenerationFailed, err)
		}

		assistantTurn, err := h.Append(ctx, models.RoleAssistant, reply)
		if err != nil {
			return err
		}
		result.AssistantTurn = assistantTurn
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// GetHistory returns a client's transcript for the caller
func (s *ChatService) GetHistory(ctx context.Context, ownerID string, clientID uuid.UUID, limit int) ([]*models.ConversationTurn, error) {
	if s.clients == nil || s.history == nil {
		return nil, errors.New("client and history services not set")
	}
	if _, err := s.clients.GetClient(ctx, ownerID, clientID); err != nil {
		return nil, err
	}
	return s.history.GetHistory(ctx, clientID, limit)
}

// toMessages turns stored turns into strictly alternating history that
// starts with a user message and ends with an assistant reply. Consecutive
// turns of one role (left behind by a failed generation) are merged; a leading
// assistant turn cut off by the window and a trailing unanswered user turn are
// dropped.
func toMessages(turns []*models.ConversationTurn) []llm.Message {
	messages := make([]llm.Message, 0, len(turns))
	for _, t := range turns {
		role := llm.RoleUser
		if t.Role == models.RoleAssistant {
			role = llm.RoleAssistant
		}
		if len(messages) == 0 && role == llm.RoleAssistant {
			continue
		}
		if n := len(messages); n > 0 && messages[n-1].Role == role {
			messages[n-1].Content += "\n\n" + t.Content
			continue
		}
		messages = append(messages, llm.Message{Role: role, Content: t.Content})
	}
	if n := len(messages); n > 0 && messages[n-1].Role == llm.RoleUser {
		messages = messages[:n-1]
	}
	return messages
}
