package models

import (
	"time"

	"github.com/google/uuid"
)

// Template is reusable petition language for one (case type, criterion) pair.
type Template struct {
	ID        uuid.UUID `json:"id"`
	CaseType  VisaType  `json:"visa_type"`
	Criterion string    `json:"criterion"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}
