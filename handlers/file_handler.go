package handlers

import (
	"fmt"
	"io"
	"net/http"

	"visar-backend/middleware"
	"visar-backend/models"
	"visar-backend/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// FileHandler handles HTTP requests for client case documents
type FileHandler struct {
	documents   *service.CaseDocumentService
	maxFileSize int64
}

// NewFileHandler creates a new file handler. A non-positive maxFileSize
// falls back to 10MB.
func NewFileHandler(documents *service.CaseDocumentService, maxFileSize int64) *FileHandler {
	if maxFileSize <= 0 {
		maxFileSize = defaultMaxFileSize
	}
	return &FileHandler{documents: documents, maxFileSize: maxFileSize}
}

// UploadDocument handles POST /api/documents/upload
func (h *FileHandler) UploadDocument(c *gin.Context) {
	clientID, err := uuid.Parse(c.PostForm("client_id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_CLIENT_ID", "Invalid client_id format")
		return
	}

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

	doc, err := h.documents.Upload(c.Request.Context(), service.UploadCaseDocumentRequest{
		OwnerID:  middleware.CallerID(c),
		ClientID: clientID,
		Filename: fileHeader.Filename,
		FileType: c.PostForm("file_type"),
		Data:     data,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    doc,
	})
}

// ListDocuments handles GET /api/documents/:client_id
func (h *FileHandler) ListDocuments(c *gin.Context) {
	clientID, ok := uuidParam(c, "client_id", "INVALID_CLIENT_ID")
	if !ok {
		return
	}

	docs, err := h.documents.ListDocuments(c.Request.Context(), middleware.CallerID(c), clientID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if docs == nil {
		docs = []*models.CaseDocument{}
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    docs,
	})
}

// DownloadFile handles GET /api/files/:id
func (h *FileHandler) DownloadFile(c *gin.Context) {
	id, ok := uuidParam(c, "id", "INVALID_DOCUMENT_ID")
	if !ok {
		return
	}

	doc, reader, err := h.documents.Download(c.Request.Context(), middleware.CallerID(c), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	defer reader.Close()

	c.DataFromReader(http.StatusOK, doc.Size, doc.MimeType, reader, map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", doc.Filename),
	})
}
