package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// VisaType is the case-type label used to select templates and scope
// retrieval. Values outside the constants below are accepted as-is.
type VisaType string

const (
	VisaTypeO1A    VisaType = "O-1A"
	VisaTypeEB1A   VisaType = "EB-1A"
	VisaTypeEB2NIW VisaType = "EB-2 NIW"
)

// Petition is a generated petition draft. It records exactly one generation
// call and is never updated after creation.
type Petition struct {
	ID        uuid.UUID `json:"id"`
	ClientID  uuid.UUID `json:"client_id"`
	CaseType  VisaType  `json:"visa_type"`
	Criterion *string   `json:"criterion,omitempty"`
	Request   string    `json:"request"`
	Content   string    `json:"content"`
	SessionID string    `json:"session_id"`
	CreatedAt time.Time `json:"created_at"`
}

// PetitionSessionID names the generation session for a client.
func PetitionSessionID(clientID uuid.UUID) string {
	return fmt.Sprintf("petition_%s", clientID)
}
