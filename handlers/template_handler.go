package handlers

import (
	"net/http"

	"visar-backend/models"
	"visar-backend/service"

	"github.com/gin-gonic/gin"
)

// TemplateHandler handles HTTP requests for petition templates
type TemplateHandler struct {
	templateService *service.TemplateService
}

// NewTemplateHandler creates a new template handler
func NewTemplateHandler(templateService *service.TemplateService) *TemplateHandler {
	return &TemplateHandler{templateService: templateService}
}

// CreateTemplateRequest represents the request body for creating a template
type CreateTemplateRequest struct {
	VisaType  string `json:"visa_type" binding:"required"`
	Criterion string `json:"criterion"`
	Content   string `json:"content" binding:"required"`
}

// CreateTemplate handles POST /api/templates
func (h *TemplateHandler) CreateTemplate(c *gin.Context) {
	var req CreateTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	tmpl, err := h.templateService.CreateTemplate(c.Request.Context(), service.CreateTemplateRequest{
		CaseType:  models.VisaType(req.VisaType),
		Criterion: req.Criterion,
		Content:   req.Content,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    tmpl,
	})
}

// ListTemplates handles GET /api/templates?visa_type=
func (h *TemplateHandler) ListTemplates(c *gin.Context) {
	templates, err := h.templateService.ListTemplates(c.Request.Context(), c.Query("visa_type"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if templates == nil {
		templates = []*models.Template{}
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    templates,
	})
}
