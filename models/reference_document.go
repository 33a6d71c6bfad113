package models

import (
	"time"

	"github.com/google/uuid"
)

// Category is the outcome label of a reference petition
type Category string

const (
	CategorySuccessful   Category = "successful"
	CategoryUnsuccessful Category = "unsuccessful"
)

// Valid reports whether c is one of the known outcome labels
func (c Category) Valid() bool {
	return c == CategorySuccessful || c == CategoryUnsuccessful
}

// ReferenceDocument is a previously filed petition used as retrieval material.
// Content holds the full extracted text; only a prefix is copied into the
// vector index. Indexed stays false until the vector upsert succeeds.
type ReferenceDocument struct {
	ID              uuid.UUID  `json:"id"`
	Filename        string     `json:"filename"`
	StoragePath     string     `json:"storage_path,omitempty"`
	Content         string     `json:"content"`
	Category        Category   `json:"category"`
	CaseType        VisaType   `json:"visa_type"`
	ExtractionError string     `json:"extraction_error,omitempty"`
	Indexed         bool       `json:"indexed"`
	IndexedAt       *time.Time `json:"indexed_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}
