package repository

import (
	"context"

	"visar-backend/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

// TemplateRepository handles database operations for templates
type TemplateRepository struct {
	db *pgxpool.Pool
}

// NewTemplateRepository creates a new template repository
func NewTemplateRepository(db *pgxpool.Pool) *TemplateRepository {
	return &TemplateRepository{db: db}
}

// Create creates a new template
func (r *TemplateRepository) Create(ctx context.Context, tmpl *models.Template) error {
	tmpl.ID = newID(tmpl.ID)

	query := `
		INSERT INTO templates (id, visa_type, criterion, content)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`

	err := r.db.QueryRow(ctx, query, tmpl.ID, tmpl.CaseType, tmpl.Criterion, tmpl.Content).
		Scan(&tmpl.CreatedAt)
	return translate(err)
}

// FindByCaseAndCriterion returns up to limit templates matching both labels
// exactly. The order of the result is not meaningful.
func (r *TemplateRepository) FindByCaseAndCriterion(ctx context.Context, caseType, criterion string, limit int) ([]*models.Template, error) {
	query := `
		SELECT id, visa_type, criterion, content, created_at
		FROM templates
		WHERE visa_type = $1 AND criterion = $2
		LIMIT $3`

	return r.query(ctx, query, caseType, criterion, limit)
}

// ListByCaseType returns every template for a visa type
func (r *TemplateRepository) ListByCaseType(ctx context.Context, caseType string) ([]*models.Template, error) {
	query := `
		SELECT id, visa_type, criterion, content, created_at
		FROM templates
		WHERE ($1 = '' OR visa_type = $1)
		ORDER BY criterion, created_at`

	return r.query(ctx, query, caseType)
}

func (r *TemplateRepository) query(ctx context.Context, query string, args ...interface{}) ([]*models.Template, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var templates []*models.Template
	for rows.Next() {
		tmpl := &models.Template{}
		if err := rows.Scan(&tmpl.ID, &tmpl.CaseType, &tmpl.Criterion, &tmpl.Content, &tmpl.CreatedAt); err != nil {
			return nil, err
		}
		templates = append(templates, tmpl)
	}
	return templates, rows.Err()
}
