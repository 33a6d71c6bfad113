package vectorindex

import (
	"context"
	"fmt"
)

// Unavailable stands in for a backend that could not be constructed at
// startup. Every call fails with Err, so retrieval degrades to empty context
// and ingestion leaves documents for the reindex sweep.
type Unavailable struct {
	Err error
}

func (u Unavailable) err() error {
	return fmt.Errorf("vector index unavailable: %w", u.Err)
}

func (u Unavailable) EnsureIndex(ctx context.Context) error { return u.err() }

func (u Unavailable) Upsert(ctx context.Context, rec Record) error { return u.err() }

func (u Unavailable) Query(ctx context.Context, vector []float32, topK int, filter Filter) ([]Match, error) {
	return nil, u.err()
}

func (u Unavailable) Delete(ctx context.Context, id string) error { return u.err() }
