package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"visar-backend/models"
	"visar-backend/repository"

	"github.com/google/uuid"
)

// ClientService handles business logic for clients
type ClientService struct {
	clients repository.ClientStore
}

// ClientServiceOption is a functional option for ClientService
type ClientServiceOption func(*ClientService)

// WithClientStore sets the client store
func WithClientStore(store repository.ClientStore) ClientServiceOption {
	return func(s *ClientService) {
		s.clients = store
	}
}

// NewClientService creates a new client service
func NewClientService(opts ...ClientServiceOption) *ClientService {
	s := &ClientService{}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateClientRequest represents a request to create a client
type CreateClientRequest struct {
	OwnerID  string
	Name     string
	Email    string
	CaseType models.VisaType
}

// CreateClient creates a client owned by the caller
func (s *ClientService) CreateClient(ctx context.Context, req CreateClientRequest) (*models.Client, error) {
	if s.clients == nil {
		return nil, errors.New("client store not set")
	}
	if strings.TrimSpace(req.Name) == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if strings.TrimSpace(string(req.CaseType)) == "" {
		return nil, fmt.Errorf("%w: visa_type is required", ErrInvalidInput)
	}

	client := &models.Client{
		OwnerID:  req.OwnerID,
		Name:     strings.TrimSpace(req.Name),
		Email:    strings.TrimSpace(req.Email),
		CaseType: req.CaseType,
		Status:   models.ClientStatusActive,
	}
	if err := s.clients.Create(ctx, client); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistFailed, err)
	}
	return client, nil
}

// GetClient retrieves a client visible to ownerID
func (s *ClientService) GetClient(ctx context.Context, ownerID string, id uuid.UUID) (*models.Client, error) {
	if s.clients == nil {
		return nil, errors.New("client store not set")
	}
	client, err := s.clients.GetByID(ctx, ownerID, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrClientNotFound
	}
	if err != nil {
		return nil, err
	}
	return client, nil
}

// ListClients lists the caller's clients
func (s *ClientService) ListClients(ctx context.Context, ownerID string) ([]*models.Client, error) {
	if s.clients == nil {
		return nil, errors.New("client store not set")
	}
	return s.clients.ListByOwner(ctx, ownerID)
}
