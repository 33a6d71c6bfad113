package handlers

import (
	"net/http"
	"strconv"

	"visar-backend/middleware"
	"visar-backend/models"
	"visar-backend/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ChatHandler handles HTTP requests for the petition assistant chat
type ChatHandler struct {
	chatService *service.ChatService
}

// NewChatHandler creates a new chat handler
func NewChatHandler(chatService *service.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

// SendMessageRequest represents the request body for a chat message
type SendMessageRequest struct {
	ClientID string `json:"client_id" binding:"required"`
	Message  string `json:"message" binding:"required"`
}

// SendMessage handles POST /api/chat/message
func (h *ChatHandler) SendMessage(c *gin.Context) {
	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	clientID, err := uuid.Parse(req.ClientID)
	if err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_CLIENT_ID", "Invalid client_id format")
		return
	}

	result, err := h.chatService.SendMessage(c.Request.Context(), service.SendMessageRequest{
		OwnerID:  middleware.CallerID(c),
		ClientID: clientID,
		Message:  req.Message,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"response":   result.AssistantTurn.Content,
			"message_id": result.AssistantTurn.ID,
		},
	})
}

// GetHistory handles GET /api/chat/history/:client_id?limit=
func (h *ChatHandler) GetHistory(c *gin.Context) {
	clientID, ok := uuidParam(c, "client_id", "INVALID_CLIENT_ID")
	if !ok {
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			respondError(c, http.StatusBadRequest, "INVALID_LIMIT", "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	turns, err := h.chatService.GetHistory(c.Request.Context(), middleware.CallerID(c), clientID, limit)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if turns == nil {
		turns = []*models.ConversationTurn{}
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    turns,
	})
}
