package handlers

import (
	"errors"
	"net/http"

	"visar-backend/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

// respondServiceError maps service errors onto HTTP statuses
func respondServiceError(c *gin.Context, err error) {
	_ = c.Error(err)

	switch {
	case errors.Is(err, service.ErrClientNotFound):
		respondError(c, http.StatusNotFound, "CLIENT_NOT_FOUND", "Client not found")
	case errors.Is(err, service.ErrReferenceNotFound):
		respondError(c, http.StatusNotFound, "REFERENCE_NOT_FOUND", "Reference document not found")
	case errors.Is(err, service.ErrDocumentNotFound):
		respondError(c, http.StatusNotFound, "DOCUMENT_NOT_FOUND", "Document not found")
	case errors.Is(err, service.ErrStorageDisabled):
		respondError(c, http.StatusServiceUnavailable, "STORAGE_DISABLED", "File storage is not configured")
	case errors.Is(err, service.ErrJobNotFound):
		respondError(c, http.StatusNotFound, "JOB_NOT_FOUND", "Job not found")
	case errors.Is(err, service.ErrInvalidCategory):
		respondError(c, http.StatusBadRequest, "INVALID_CATEGORY", err.Error())
	case errors.Is(err, service.ErrInvalidRole):
		respondError(c, http.StatusBadRequest, "INVALID_ROLE", err.Error())
	case errors.Is(err, service.ErrEmptyPrompt):
		respondError(c, http.StatusBadRequest, "EMPTY_PROMPT", err.Error())
	case errors.Is(err, service.ErrEmptyMessage):
		respondError(c, http.StatusBadRequest, "EMPTY_MESSAGE", err.Error())
	case errors.Is(err, service.ErrInvalidInput):
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
	case errors.Is(err, service.ErrGenerationFailed):
		respondError(c, http.StatusBadGateway, "GENERATION_FAILED", "Failed to generate content")
	case errors.Is(err, service.ErrPersistFailed):
		respondError(c, http.StatusInternalServerError, "PERSIST_FAILED", "Failed to save record")
	default:
		respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
	}
}

// uuidParam parses a path parameter, writing a 400 when it is malformed
func uuidParam(c *gin.Context, name, code string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		respondError(c, http.StatusBadRequest, code, "Invalid "+name+" format")
		return uuid.Nil, false
	}
	return id, true
}
