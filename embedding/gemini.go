package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// EmbeddingRequest represents an embedContent API request
type EmbeddingRequest struct {
	Model                string       `json:"model"`
	Content              ContentInput `json:"content"`
	TaskType             string       `json:"task_type,omitempty"`
	OutputDimensionality int          `json:"output_dimensionality,omitempty"`
}

// ContentInput represents content for embedding
type ContentInput struct {
	Parts []PartInput `json:"parts"`
}

// PartInput represents a part of content
type PartInput struct {
	Text string `json:"text"`
}

// EmbeddingResponse represents an embedContent API response
type EmbeddingResponse struct {
	Embedding EmbeddingData `json:"embedding"`
}

// EmbeddingData contains the embedding values
type EmbeddingData struct {
	Values []float32 `json:"values"`
}

// GeminiEmbedder calls the Gemini embedContent endpoint. Every call is a
// single attempt bounded by the configured timeout.
type GeminiEmbedder struct {
	apiKey     string
	model      string
	dimension  int
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
}

// GeminiOption is a functional option for GeminiEmbedder
type GeminiOption func(*GeminiEmbedder)

// WithBaseURL overrides the API endpoint
func WithBaseURL(url string) GeminiOption {
	return func(e *GeminiEmbedder) {
		e.baseURL = strings.TrimRight(url, "/")
	}
}

// WithTimeout bounds each embedding call
func WithTimeout(d time.Duration) GeminiOption {
	return func(e *GeminiEmbedder) {
		e.timeout = d
	}
}

// WithHTTPClient sets the HTTP client used for API calls
func WithHTTPClient(c *http.Client) GeminiOption {
	return func(e *GeminiEmbedder) {
		e.httpClient = c
	}
}

// NewGeminiEmbedder creates an embedder for model producing vectors of the
// given dimension.
func NewGeminiEmbedder(apiKey, model string, dimension int, opts ...GeminiOption) *GeminiEmbedder {
	if !strings.HasPrefix(model, "models/") {
		model = "models/" + model
	}
	e := &GeminiEmbedder{
		apiKey:     apiKey,
		model:      model,
		dimension:  dimension,
		baseURL:    geminiBaseURL,
		timeout:    15 * time.Second,
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Dimension returns the vector length
func (e *GeminiEmbedder) Dimension() int {
	return e.dimension
}

// Embed returns the L2-normalised embedding of text. The API rejects empty
// content, so blank input maps to the zero vector without a network call.
func (e *GeminiEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return make([]float32, e.dimension), nil
	}
	if e.apiKey == "" {
		return nil, fmt.Errorf("%w: GEMINI_API_KEY not set", ErrEmbeddingFailed)
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	reqBody := EmbeddingRequest{
		Model: e.model,
		Content: ContentInput{
			Parts: []PartInput{{Text: text}},
		},
		TaskType:             "SEMANTIC_SIMILARITY",
		OutputDimensionality: e.dimension,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to marshal request: %v", ErrEmbeddingFailed, err)
	}

	url := fmt.Sprintf("%s/%s:embedContent", e.baseURL, e.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %v", ErrEmbeddingFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", e.apiKey)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEmbeddingFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("%w: API error %d: %s", ErrEmbeddingFailed, resp.StatusCode, string(body))
	}

	var apiResp EmbeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("%w: failed to decode response: %v", ErrEmbeddingFailed, err)
	}

	values := apiResp.Embedding.Values
	if len(values) != e.dimension {
		return nil, fmt.Errorf("%w: %w", ErrEmbeddingFailed, &DimensionError{Want: e.dimension, Got: len(values)})
	}

	return normalize(values), nil
}

// DimensionError reports a vector of unexpected length
type DimensionError struct {
	Want int
	Got  int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("embedding must be %d dimensions, got %d", e.Want, e.Got)
}

// IsDimensionError reports whether err carries a *DimensionError
func IsDimensionError(err error) bool {
	var dimErr *DimensionError
	return errors.As(err, &dimErr)
}
