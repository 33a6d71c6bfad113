// Package vectorindex stores reference-document embeddings and answers
// cosine nearest-neighbour queries over them.
package vectorindex

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Metric is the similarity function an index is built for
type Metric string

const MetricCosine Metric = "cosine"

// MetadataTextLimit is the number of characters of document text copied
// into a record's metadata.
const MetadataTextLimit = 1000

var (
	ErrUnsupportedMetric = errors.New("unsupported similarity metric")
	ErrDimensionMismatch = errors.New("vector dimension does not match index")
)

// Spec is fixed when the index is configured and never changes afterwards.
// A different embedder dimension requires a new index, not a resize.
type Spec struct {
	Name      string
	Dimension int
	Metric    Metric
}

func (s Spec) Validate() error {
	if s.Name == "" {
		return errors.New("index name is required")
	}
	if s.Dimension <= 0 {
		return fmt.Errorf("index dimension must be positive, got %d", s.Dimension)
	}
	if s.Metric != MetricCosine {
		return fmt.Errorf("%w: %q", ErrUnsupportedMetric, s.Metric)
	}
	return nil
}

// Metadata is stored alongside each vector
type Metadata struct {
	Text     string `json:"text"`
	CaseType string `json:"case_type"`
	Category string `json:"category"`
	Filename string `json:"filename"`
}

// Record is one vector keyed by its source document id
type Record struct {
	ID       string
	Vector   []float32
	Metadata Metadata
}

// Match is a query hit. Score is cosine similarity in [-1, 1].
type Match struct {
	ID       string
	Score    float64
	Metadata Metadata
}

// Filter narrows a query. The zero value matches everything.
type Filter struct {
	CaseType string
}

// Index is a similarity-search backend.
//
// EnsureIndex creates the index described by the backend's Spec only if it
// is absent. Upsert replaces any record with the same id. Query returns up
// to topK matches ordered by descending score; results are best effort
// nearest neighbours, not an exact top-k.
type Index interface {
	EnsureIndex(ctx context.Context) error
	Upsert(ctx context.Context, rec Record) error
	Query(ctx context.Context, vector []float32, topK int, filter Filter) ([]Match, error)
	Delete(ctx context.Context, id string) error
}

// TruncateText returns at most MetadataTextLimit characters of s without
// splitting a UTF-8 sequence.
func TruncateText(s string) string {
	return truncateRunes(s, MetadataTextLimit)
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

// clipBytes shortens s to at most n bytes on a rune boundary
func clipBytes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func checkDimension(spec Spec, vector []float32) error {
	if len(vector) != spec.Dimension {
		return fmt.Errorf("%w: index %q expects %d, got %d", ErrDimensionMismatch, spec.Name, spec.Dimension, len(vector))
	}
	return nil
}

var invalidIdentChars = regexp.MustCompile(`[^a-z0-9_]`)

// identifier converts an index name such as "visar-petitions" into a name
// usable as a table or collection name.
func identifier(name string) string {
	id := invalidIdentChars.ReplaceAllString(strings.ToLower(name), "_")
	if id == "" || (id[0] >= '0' && id[0] <= '9') {
		id = "idx_" + id
	}
	return id
}
