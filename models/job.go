package models

import (
	"time"

	"github.com/google/uuid"
)

// JobStatus represents the status of a background job
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusInProgress JobStatus = "in_progress"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// JobKind names what a background job does
type JobKind string

const (
	JobKindReindex JobKind = "reindex"
)

// Job tracks a background sweep started over HTTP
type Job struct {
	ID           uuid.UUID  `json:"id"`
	Kind         JobKind    `json:"kind"`
	Status       JobStatus  `json:"status"`
	Total        int        `json:"total"`
	Processed    int        `json:"processed"`
	Failed       int        `json:"failed"`
	ErrorMessage *string    `json:"error_message,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}
