package handlers

import (
	"fmt"
	"io"
	"net/http"

	"visar-backend/models"
	"visar-backend/service"

	"github.com/gin-gonic/gin"
)

const defaultMaxFileSize = 10 * 1024 * 1024

// ReferenceHandler handles HTTP requests for reference petitions and the
// retrieval surface built on them
type ReferenceHandler struct {
	ingestion   *service.IngestionService
	reindex     *service.ReindexService
	retriever   *service.Retriever
	maxFileSize int64
}

// NewReferenceHandler creates a new reference handler. A non-positive
// maxFileSize falls back to 10MB.
func NewReferenceHandler(ingestion *service.IngestionService, reindex *service.ReindexService, retriever *service.Retriever, maxFileSize int64) *ReferenceHandler {
	if maxFileSize <= 0 {
		maxFileSize = defaultMaxFileSize
	}
	return &ReferenceHandler{
		ingestion:   ingestion,
		reindex:     reindex,
		retriever:   retriever,
		maxFileSize: maxFileSize,
	}
}

// UploadReference handles POST /api/references/upload
func (h *ReferenceHandler) UploadReference(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		respondError(c, http.StatusBadRequest, "MISSING_FILE", "File is required")
		return
	}

	if fileHeader.Size > h.maxFileSize {
		respondError(c, http.StatusBadRequest, "FILE_TOO_LARGE",
			fmt.Sprintf("File size exceeds maximum of %d bytes", h.maxFileSize))
		return
	}

	// Older clients send doc_type
	category := c.PostForm("category")
	if category == "" {
		category = c.PostForm("doc_type")
	}
	if category == "" {
		category = string(models.CategorySuccessful)
	}

	file, err := fileHeader.Open()
	if err != nil {
		respondError(c, http.StatusInternalServerError, "FILE_READ_ERROR", "Failed to read uploaded file")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "FILE_READ_ERROR", "Failed to read uploaded file")
		return
	}

	result, err := h.ingestion.Ingest(c.Request.Context(), service.IngestRequest{
		Filename: fileHeader.Filename,
		Data:     data,
		CaseType: models.VisaType(c.PostForm("visa_type")),
		Category: models.Category(category),
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data": gin.H{
			"document": result.Document,
			"indexed":  result.Indexed,
		},
	})
}

// ListReferences handles GET /api/references?visa_type=
func (h *ReferenceHandler) ListReferences(c *gin.Context) {
	docs, err := h.ingestion.ListReferences(c.Request.Context(), c.Query("visa_type"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if docs == nil {
		docs = []*models.ReferenceDocument{}
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    docs,
	})
}

// GetReference handles GET /api/references/:id
func (h *ReferenceHandler) GetReference(c *gin.Context) {
	id, ok := uuidParam(c, "id", "INVALID_REFERENCE_ID")
	if !ok {
		return
	}

	doc, err := h.ingestion.GetReference(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    doc,
	})
}

// DeleteReference handles DELETE /api/references/:id
func (h *ReferenceHandler) DeleteReference(c *gin.Context) {
	id, ok := uuidParam(c, "id", "INVALID_REFERENCE_ID")
	if !ok {
		return
	}

	if err := h.ingestion.DeleteReference(c.Request.Context(), id); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Reference deleted successfully",
	})
}

// StartReindex handles POST /api/references/reindex
func (h *ReferenceHandler) StartReindex(c *gin.Context) {
	job, err := h.reindex.StartReindex(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"data":    job,
	})
}

// GetJob handles GET /api/jobs/:id
func (h *ReferenceHandler) GetJob(c *gin.Context) {
	id, ok := uuidParam(c, "id", "INVALID_JOB_ID")
	if !ok {
		return
	}

	job, err := h.reindex.GetJob(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    job,
	})
}

// RetrieveContextRequest represents the request body for a context lookup
type RetrieveContextRequest struct {
	Query    string   `json:"query" binding:"required"`
	TopK     int      `json:"top_k"`
	VisaType string   `json:"visa_type"`
	MinScore *float64 `json:"min_score"`
}

// RetrieveContext handles POST /api/retrieval/context. Retrieval failures
// yield an empty context, never an error.
func (h *ReferenceHandler) RetrieveContext(c *gin.Context) {
	var req RetrieveContextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	opts := service.RetrieveOptions{TopK: req.TopK, CaseType: req.VisaType}
	if req.MinScore != nil {
		opts = opts.WithMinScore(*req.MinScore)
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"context": h.retriever.Context(c.Request.Context(), req.Query, opts),
		},
	})
}
