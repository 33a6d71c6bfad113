package handlers

import (
	"net/http"

	"visar-backend/middleware"
	"visar-backend/models"
	"visar-backend/service"

	"github.com/gin-gonic/gin"
)

// ClientHandler handles HTTP requests for clients
type ClientHandler struct {
	clientService *service.ClientService
}

// NewClientHandler creates a new client handler
func NewClientHandler(clientService *service.ClientService) *ClientHandler {
	return &ClientHandler{clientService: clientService}
}

// CreateClientRequest represents the request body for creating a client
type CreateClientRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email"`
	VisaType string `json:"visa_type" binding:"required"`
}

// CreateClient handles POST /api/clients
func (h *ClientHandler) CreateClient(c *gin.Context) {
	var req CreateClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	client, err := h.clientService.CreateClient(c.Request.Context(), service.CreateClientRequest{
		OwnerID:  middleware.CallerID(c),
		Name:     req.Name,
		Email:    req.Email,
		CaseType: models.VisaType(req.VisaType),
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    client,
	})
}

// GetClient handles GET /api/clients/:id
func (h *ClientHandler) GetClient(c *gin.Context) {
	id, ok := uuidParam(c, "id", "INVALID_CLIENT_ID")
	if !ok {
		return
	}

	client, err := h.clientService.GetClient(c.Request.Context(), middleware.CallerID(c), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    client,
	})
}

// ListClients handles GET /api/clients
func (h *ClientHandler) ListClients(c *gin.Context) {
	clients, err := h.clientService.ListClients(c.Request.Context(), middleware.CallerID(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if clients == nil {
		clients = []*models.Client{}
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    clients,
	})
}
