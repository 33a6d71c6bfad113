package models

import (
	"time"

	"github.com/google/uuid"
)

// CaseDocument is supporting evidence uploaded for one client (CV, award
// letters, publications). Unlike a ReferenceDocument it is never indexed for
// retrieval; only the raw file and its metadata are kept.
type CaseDocument struct {
	ID          uuid.UUID `json:"id"`
	ClientID    uuid.UUID `json:"client_id"`
	Filename    string    `json:"filename"`
	FileType    string    `json:"file_type"`
	MimeType    string    `json:"mime_type"`
	Size        int64     `json:"size"`
	StoragePath string    `json:"storage_path"`
	UploadedAt  time.Time `json:"uploaded_at"`
}
