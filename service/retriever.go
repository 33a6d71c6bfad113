package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"visar-backend/embedding"
	"visar-backend/metrics"
	"visar-backend/vectorindex"

	"go.uber.org/zap"
)

// ContextSeparator joins the texts of the surviving matches
const ContextSeparator = "\n\n---\n\n"

const (
	defaultTopK     = 3
	defaultMinScore = 0.5
)

// Retriever finds reference text relevant to a query
type Retriever struct {
	embedder     embedding.Embedder
	index        vectorindex.Index
	logger       *zap.Logger
	topK         int
	minScore     float64
	embedTimeout time.Duration
	indexTimeout time.Duration
}

// RetrieverOption is a functional option for Retriever
type RetrieverOption func(*Retriever)

// RetrieverWithEmbedder sets the embedder used for queries
func RetrieverWithEmbedder(e embedding.Embedder) RetrieverOption {
	return func(r *Retriever) {
		r.embedder = e
	}
}

// RetrieverWithIndex sets the vector index
func RetrieverWithIndex(idx vectorindex.Index) RetrieverOption {
	return func(r *Retriever) {
		r.index = idx
	}
}

// RetrieverWithLogger sets the logger
func RetrieverWithLogger(l *zap.Logger) RetrieverOption {
	return func(r *Retriever) {
		r.logger = l
	}
}

// RetrieverWithDefaults sets the topK and relevance threshold used when a
// call does not override them
func RetrieverWithDefaults(topK int, minScore float64) RetrieverOption {
	return func(r *Retriever) {
		if topK > 0 {
			r.topK = topK
		}
		r.minScore = minScore
	}
}

// RetrieverWithTimeouts bounds the embed and query calls
func RetrieverWithTimeouts(embed, index time.Duration) RetrieverOption {
	return func(r *Retriever) {
		r.embedTimeout = embed
		r.indexTimeout = index
	}
}

// NewRetriever creates a new retriever
func NewRetriever(opts ...RetrieverOption) *Retriever {
	r := &Retriever{
		logger:   zap.NewNop(),
		topK:     defaultTopK,
		minScore: defaultMinScore,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RetrieveOptions overrides the retriever defaults for one call. A zero
// TopK uses the default; MinScore is only overridden through WithMinScore.
type RetrieveOptions struct {
	TopK     int
	CaseType string
	minScore *float64
}

// WithMinScore returns a copy of o with the relevance threshold set
func (o RetrieveOptions) WithMinScore(score float64) RetrieveOptions {
	o.minScore = &score
	return o
}

func (r *Retriever) resolve(opts RetrieveOptions) (int, float64) {
	topK := opts.TopK
	if topK <= 0 {
		topK = r.topK
	}
	minScore := r.minScore
	if opts.minScore != nil {
		minScore = *opts.minScore
	}
	return topK, minScore
}

// Search embeds query and returns the matches scoring strictly above the
// threshold, in index order
func (r *Retriever) Search(ctx context.Context, query string, opts RetrieveOptions) ([]vectorindex.Match, error) {
	if r.embedder == nil {
		return nil, errors.New("embedder not set")
	}
	if r.index == nil {
		return nil, errors.New("vector index not set")
	}
	topK, minScore := r.resolve(opts)

	embedCtx, cancel := withTimeout(ctx, r.embedTimeout)
	vector, err := r.embedder.Embed(embedCtx, query)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	queryCtx, cancel := withTimeout(ctx, r.indexTimeout)
	matches, err := r.index.Query(queryCtx, vector, topK, vectorindex.Filter{CaseType: opts.CaseType})
	cancel()
	if err != nil {
		metrics.IndexErrors.WithLabelValues("query").Inc()
		return nil, fmt.Errorf("query index: %w", err)
	}

	relevant := make([]vectorindex.Match, 0, len(matches))
	for _, m := range matches {
		if m.Score > minScore {
			relevant = append(relevant, m)
		}
	}
	return relevant, nil
}

// Context returns the joined text of the relevant matches. Every failure
// degrades to the empty string; nothing is returned to the caller.
func (r *Retriever) Context(ctx context.Context, query string, opts RetrieveOptions) string {
	matches, err := r.Search(ctx, query, opts)
	if err != nil {
		r.logger.Warn("retrieval degraded to empty context", zap.Error(err))
		metrics.RetrievalTotal.WithLabelValues("degraded").Inc()
		return ""
	}
	metrics.RetrievalMatches.Observe(float64(len(matches)))

	parts := make([]string, 0, len(matches))
	for _, m := range matches {
		parts = append(parts, m.Metadata.Text)
	}
	if len(parts) == 0 {
		metrics.RetrievalTotal.WithLabelValues("empty").Inc()
		return ""
	}

	metrics.RetrievalTotal.WithLabelValues("hit").Inc()
	return strings.Join(parts, ContextSeparator)
}
