package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"visar-backend/models"
	"visar-backend/repository"
)

// maxDraftTemplates caps how many templates go into one draft prompt
const maxDraftTemplates = 10

// TemplateService manages reusable petition language
type TemplateService struct {
	templates repository.TemplateStore
}

// TemplateServiceOption is a functional option for TemplateService
type TemplateServiceOption func(*TemplateService)

// WithTemplateStore sets the template store
func WithTemplateStore(store repository.TemplateStore) TemplateServiceOption {
	return func(s *TemplateService) {
		s.templates = store
	}
}

// NewTemplateService creates a new template service
func NewTemplateService(opts ...TemplateServiceOption) *TemplateService {
	s := &TemplateService{}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateTemplateRequest represents a request to create a template
type CreateTemplateRequest struct {
	CaseType  models.VisaType
	Criterion string
	Content   string
}

// CreateTemplate stores a template
func (s *TemplateService) CreateTemplate(ctx context.Context, req CreateTemplateRequest) (*models.Template, error) {
	if s.templates == nil {
		return nil, errors.New("template store not set")
	}
	if strings.TrimSpace(string(req.CaseType)) == "" || strings.TrimSpace(req.Content) == "" {
		return nil, fmt.Errorf("%w: visa_type and content are required", ErrInvalidInput)
	}

	tmpl := &models.Template{
		CaseType:  req.CaseType,
		Criterion: strings.TrimSpace(req.Criterion),
		Content:   req.Content,
	}
	if err := s.templates.Create(ctx, tmpl); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistFailed, err)
	}
	return tmpl, nil
}

// ListTemplates lists templates, optionally for one case type
func (s *TemplateService) ListTemplates(ctx context.Context, caseType string) ([]*models.Template, error) {
	if s.templates == nil {
		return nil, errors.New("template store not set")
	}
	return s.templates.ListByCaseType(ctx, caseType)
}

// TemplateTexts returns the content of up to maxDraftTemplates templates
// matching the case type and criterion exactly
func (s *TemplateService) TemplateTexts(ctx context.Context, caseType models.VisaType, criterion string) ([]string, error) {
	if s.templates == nil {
		return nil, errors.New("template store not set")
	}
	templates, err := s.templates.FindByCaseAndCriterion(ctx, string(caseType), criterion, maxDraftTemplates)
	if err != nil {
		return nil, err
	}
	texts := make([]string, 0, len(templates))
	for _, t := range templates {
		texts = append(texts, t.Content)
	}
	return texts, nil
}
