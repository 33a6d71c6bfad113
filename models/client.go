package models

import (
	"time"

	"github.com/google/uuid"
)

// ClientStatus represents where a client's case stands
type ClientStatus string

const (
	ClientStatusActive    ClientStatus = "active"
	ClientStatusCompleted ClientStatus = "completed"
	ClientStatusArchived  ClientStatus = "archived"
)

// Client is the petition beneficiary a draft or chat is about. OwnerID is the
// caller identity supplied by the auth middleware.
type Client struct {
	ID        uuid.UUID    `json:"id"`
	OwnerID   string       `json:"owner_id"`
	Name      string       `json:"name"`
	Email     string       `json:"email"`
	CaseType  VisaType     `json:"visa_type"`
	Status    ClientStatus `json:"status"`
	CreatedAt time.Time    `json:"created_at"`
}
