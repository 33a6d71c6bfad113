package handlers

import (
	"net/http"

	"visar-backend/middleware"
	"visar-backend/models"
	"visar-backend/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// PetitionHandler handles HTTP requests for petition drafts
type PetitionHandler struct {
	draftService *service.DraftService
}

// NewPetitionHandler creates a new petition handler
func NewPetitionHandler(draftService *service.DraftService) *PetitionHandler {
	return &PetitionHandler{draftService: draftService}
}

// GeneratePetitionRequest represents the request body for generating a draft
type GeneratePetitionRequest struct {
	ClientID    string   `json:"client_id" binding:"required"`
	VisaType    string   `json:"visa_type"`
	Criterion   *string  `json:"criterion"`
	Prompt      string   `json:"prompt" binding:"required"`
	Temperature *float32 `json:"temperature"`
}

// GeneratePetition handles POST /api/petitions/generate
func (h *PetitionHandler) GeneratePetition(c *gin.Context) {
	var req GeneratePetitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	clientID, err := uuid.Parse(req.ClientID)
	if err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_CLIENT_ID", "Invalid client_id format")
		return
	}

	result, err := h.draftService.GenerateDraft(c.Request.Context(), service.GenerateDraftRequest{
		OwnerID:     middleware.CallerID(c),
		ClientID:    clientID,
		CaseType:    models.VisaType(req.VisaType),
		Criterion:   req.Criterion,
		Prompt:      req.Prompt,
		Temperature: req.Temperature,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"response":     result.Petition.Content,
			"message_id":   result.Petition.ID,
			"petition":     result.Petition,
			"context_used": result.ContextUsed,
		},
	})
}

// ListPetitions handles GET /api/petitions/:client_id
func (h *PetitionHandler) ListPetitions(c *gin.Context) {
	clientID, ok := uuidParam(c, "client_id", "INVALID_CLIENT_ID")
	if !ok {
		return
	}

	petitions, err := h.draftService.ListPetitions(c.Request.Context(), middleware.CallerID(c), clientID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if petitions == nil {
		petitions = []*models.Petition{}
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    petitions,
	})
}
