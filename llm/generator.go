// Package llm wraps the generative model providers behind one interface.
package llm

import (
	"context"
	"errors"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ErrEmptyResponse is returned when the model produced no text
var ErrEmptyResponse = errors.New("model returned empty content")

// Message is one prior conversation turn supplied as history
type Message struct {
	Role    string
	Content string
}

// Request is a single completion call. System carries the assembled
// instruction, Prompt the user's latest message.
type Request struct {
	System      string
	History     []Message
	Prompt      string
	Temperature *float32
}

// Generator is an opaque text-completion service. Implementations do not
// retry; callers bound each call with a context deadline.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}
