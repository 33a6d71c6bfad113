package service

import (
	"context"
	"errors"
	"time"
)

var (
	ErrClientNotFound    = errors.New("client not found")
	ErrReferenceNotFound = errors.New("reference document not found")
	ErrInvalidCategory   = errors.New("category must be successful or unsuccessful")
	ErrInvalidRole       = errors.New("role must be user or assistant")
	ErrPersistFailed     = errors.New("failed to persist record")
	ErrGenerationFailed  = errors.New("failed to generate content")
	ErrJobNotFound       = errors.New("job not found")
	ErrEmptyPrompt       = errors.New("prompt is required")
	ErrEmptyMessage      = errors.New("message is required")
	ErrInvalidInput      = errors.New("invalid input")
	ErrDocumentNotFound  = errors.New("case document not found")
	ErrStorageDisabled   = errors.New("file storage is not configured")
)

// withTimeout bounds ctx by d. A zero d leaves ctx unbounded.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
