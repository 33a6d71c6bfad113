package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"visar-backend/llm"
	"visar-backend/metrics"
	"visar-backend/models"
	"visar-backend/prompt"
	"visar-backend/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DraftService generates one-shot petition sections
type DraftService struct {
	clients         *ClientService
	templates       *TemplateService
	petitions       repository.PetitionStore
	retriever       *Retriever
	generator       llm.Generator
	assembler       prompt.Assembler
	logger          *zap.Logger
	generateTimeout time.Duration
	storeTimeout    time.Duration
}

// DraftServiceOption is a functional option for DraftService
type DraftServiceOption func(*DraftService)

// DraftWithClientService sets the client lookup
func DraftWithClientService(clients *ClientService) DraftServiceOption {
	return func(s *DraftService) {
		s.clients = clients
	}
}

// DraftWithTemplateService sets the template lookup
func DraftWithTemplateService(templates *TemplateService) DraftServiceOption {
	return func(s *DraftService) {
		s.templates = templates
	}
}

// DraftWithPetitionStore sets the petition store
func DraftWithPetitionStore(store repository.PetitionStore) DraftServiceOption {
	return func(s *DraftService) {
		s.petitions = store
	}
}

// DraftWithRetriever sets the retriever
func DraftWithRetriever(r *Retriever) DraftServiceOption {
	return func(s *DraftService) {
		s.retriever = r
	}
}

// DraftWithGenerator sets the generative model
func DraftWithGenerator(g llm.Generator) DraftServiceOption {
	return func(s *DraftService) {
		s.generator = g
	}
}

// DraftWithAssembler sets the prompt assembler
func DraftWithAssembler(a prompt.Assembler) DraftServiceOption {
	return func(s *DraftService) {
		s.assembler = a
	}
}

// DraftWithLogger sets the logger
func DraftWithLogger(l *zap.Logger) DraftServiceOption {
	return func(s *DraftService) {
		s.logger = l
	}
}

// DraftWithTimeouts bounds the generate and store calls
func DraftWithTimeouts(generate, store time.Duration) DraftServiceOption {
	return func(s *DraftService) {
		s.generateTimeout = generate
		s.storeTimeout = store
	}
}

// NewDraftService creates a new draft service
func NewDraftService(opts ...DraftServiceOption) *DraftService {
	s := &DraftService{
		assembler: prompt.New(""),
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GenerateDraftRequest represents a request to draft a petition section.
// An empty CaseType falls back to the client's.
type GenerateDraftRequest struct {
	OwnerID     string
	ClientID    uuid.UUID
	CaseType    models.VisaType
	Criterion   *string
	Prompt      string
	Temperature *float32
}

// GenerateDraftResult represents a generated and stored petition
type GenerateDraftResult struct {
	Petition *models.Petition
	// ContextUsed reports whether any reference text made it into the prompt
	ContextUsed bool
}

// GenerateDraft looks up the client and templates, retrieves reference
// context for the prompt, generates the section and stores it
func (s *DraftService) GenerateDraft(ctx context.Context, req GenerateDraftRequest) (*GenerateDraftResult, error) {
	if s.clients == nil || s.templates == nil {
		return nil, errors.New("client and template services not set")
	}
	if s.petitions == nil {
		return nil, errors.New("petition store not set")
	}
	if s.generator == nil {
		return nil, errors.New("generator not set")
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, ErrEmptyPrompt
	}

	client, err := s.clients.GetClient(ctx, req.OwnerID, req.ClientID)
	if err != nil {
		return nil, err
	}

	caseType := req.CaseType
	if caseType == "" {
		caseType = client.CaseType
	}
	criterion := ""
	if req.Criterion != nil {
		criterion = strings.TrimSpace(*req.Criterion)
	}

	templates, err := s.templates.TemplateTexts(ctx, caseType, criterion)
	if err != nil {
		return nil, fmt.Errorf("load templates: %w", err)
	}

	var reference string
	if s.retriever != nil {
		reference = s.retriever.Context(ctx, req.Prompt, RetrieveOptions{})
	}

	system := s.assembler.Draft(prompt.DraftInput{
		ClientName: client.Name,
		CaseType:   string(caseType),
		Criterion:  criterion,
		Templates:  templates,
		Context:    reference,
		Request:    req.Prompt,
	})

	content, err := s.generate(ctx, "draft", llm.Request{
		System:      system,
		Prompt:      req.Prompt,
		Temperature: req.Temperature,
	})
	if err != nil {
		s.logger.Error("draft generation failed",
			zap.String("client_id", client.ID.String()),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	petition := &models.Petition{
		ClientID:  client.ID,
		CaseType:  caseType,
		Criterion: req.Criterion,
		Request:   req.Prompt,
		Content:   content,
		SessionID: models.PetitionSessionID(client.ID),
	}

	storeCtx, cancel := withTimeout(ctx, s.storeTimeout)
	err = s.petitions.Create(storeCtx, petition)
	cancel()
	if err != nil {
		s.logger.Error("failed to store generated petition", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrPersistFailed, err)
	}

	return &GenerateDraftResult{Petition: petition, ContextUsed: reference != ""}, nil
}

// ListPetitions lists the petitions generated for a client the caller owns
func (s *DraftService) ListPetitions(ctx context.Context, ownerID string, clientID uuid.UUID) ([]*models.Petition, error) {
	if s.clients == nil || s.petitions == nil {
		return nil, errors.New("client service and petition store not set")
	}
	if _, err := s.clients.GetClient(ctx, ownerID, clientID); err != nil {
		return nil, err
	}
	return s.petitions.ListByClient(ctx, clientID)
}

func (s *DraftService) generate(ctx context.Context, mode string, req llm.Request) (string, error) {
	return generateTimed(ctx, s.generator, s.generateTimeout, mode, req)
}

// generateTimed calls the generator once under timeout and records its
// duration by mode and outcome
func generateTimed(ctx context.Context, gen llm.Generator, timeout time.Duration, mode string, req llm.Request) (string, error) {
	genCtx, cancel := withTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	out, err := gen.Generate(genCtx, req)
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.GenerationDuration.WithLabelValues(mode, status).Observe(time.Since(start).Seconds())
	return out, err
}
