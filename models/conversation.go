package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Role identifies the author of a conversation turn
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// ConversationTurn is one persisted chat message. Seq increases by one per
// turn for a client and defines the transcript order.
type ConversationTurn struct {
	ID        uuid.UUID `json:"id"`
	ClientID  uuid.UUID `json:"client_id"`
	SessionID string    `json:"session_id"`
	Seq       int64     `json:"seq"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// ChatSessionID names the chat session for a client.
func ChatSessionID(clientID uuid.UUID) string {
	return fmt.Sprintf("chat_%s", clientID)
}
