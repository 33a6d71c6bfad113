package service

import (
	"context"
	"testing"

	"visar-backend/config"
	"visar-backend/extractor"
	"visar-backend/models"
	"visar-backend/vectorindex"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ingestFixture struct {
	svc        *IngestionService
	retriever  *Retriever
	references *memReferenceStore
	index      *flakyIndex
	embedder   *keywordEmbedder
}

func newIngestFixture(t *testing.T, vectors map[string][]float32) *ingestFixture {
	f := &ingestFixture{
		references: newMemReferenceStore(),
		index:      &flakyIndex{MemoryIndex: newTestIndex(t)},
		embedder:   newKeywordEmbedder(vectors),
	}
	f.svc = NewIngestionService(
		IngestWithEmbedder(f.embedder),
		IngestWithIndex(f.index),
		IngestWithReferenceStore(f.references),
		IngestWithTimeouts(config.TimeoutsConfig{}),
	)
	f.retriever = NewRetriever(RetrieverWithEmbedder(f.embedder), RetrieverWithIndex(f.index))
	return f
}

func TestIngest_RoundTripThroughRetriever(t *testing.T) {
	f := newIngestFixture(t, map[string][]float32{
		"Patent X award 2019": {1, 0, 0, 0},
		"awards":              {0.8, 0.6, 0, 0},
	})
	ctx := context.Background()

	res, err := f.svc.Ingest(ctx, IngestRequest{
		Filename: "award.txt",
		Data:     []byte("Patent X award 2019"),
		CaseType: models.VisaTypeEB1A,
		Category: models.CategorySuccessful,
	})
	require.NoError(t, err)
	assert.True(t, res.Indexed)
	assert.Equal(t, "Patent X award 2019", res.Document.Content)

	stored, err := f.references.GetByID(ctx, res.Document.ID)
	require.NoError(t, err)
	assert.True(t, stored.Indexed)
	assert.NotNil(t, stored.IndexedAt)

	// cosine 0.8 clears the default 0.5 threshold
	assert.Equal(t, "Patent X award 2019", f.retriever.Context(ctx, "awards", RetrieveOptions{}))

	// and stops clearing it once the threshold is raised above the score
	assert.Equal(t, "", f.retriever.Context(ctx, "awards", RetrieveOptions{}.WithMinScore(0.85)))
}

func TestIngest_RejectsUnknownCategory(t *testing.T) {
	f := newIngestFixture(t, nil)
	_, err := f.svc.Ingest(context.Background(), IngestRequest{
		Filename: "a.txt",
		Data:     []byte("text"),
		Category: "pending",
	})
	assert.ErrorIs(t, err, ErrInvalidCategory)
	assert.Empty(t, f.references.docs)
}

func TestIngest_CorruptFileStillStoredWithEmptyText(t *testing.T) {
	f := newIngestFixture(t, nil)

	res, err := f.svc.Ingest(context.Background(), IngestRequest{
		Filename: "broken.pdf",
		Data:     []byte("definitely not a pdf"),
		CaseType: models.VisaTypeO1A,
		Category: models.CategoryUnsuccessful,
	})
	require.NoError(t, err)
	assert.Equal(t, "", res.Document.Content)
	assert.Equal(t, string(extractor.ReasonCorrupt), res.Document.ExtractionError)
	assert.True(t, res.Indexed, "empty text is embedded and indexed too")
	assert.Equal(t, 1, f.index.Len())
}

func TestIngest_StoreFailureIsFatal(t *testing.T) {
	f := newIngestFixture(t, nil)
	f.references.createErr = errBoom

	_, err := f.svc.Ingest(context.Background(), IngestRequest{
		Filename: "a.txt",
		Data:     []byte("text"),
		Category: models.CategorySuccessful,
	})
	assert.ErrorIs(t, err, ErrPersistFailed)
	assert.Equal(t, 0, f.index.Len())
}

func TestIngest_IndexFailureIsSwallowedAndRepairedBySweep(t *testing.T) {
	f := newIngestFixture(t, map[string][]float32{"orphan text": {1, 0, 0, 0}})
	f.index.setFailing(true)
	ctx := context.Background()

	res, err := f.svc.Ingest(ctx, IngestRequest{
		Filename: "orphan.txt",
		Data:     []byte("orphan text"),
		Category: models.CategorySuccessful,
	})
	require.NoError(t, err)
	assert.False(t, res.Indexed)
	assert.Equal(t, 0, f.index.Len())

	reindex := NewReindexService(
		ReindexWithIngestionService(f.svc),
		ReindexWithReferenceStore(f.references),
	)

	// still failing: the document stays eligible
	result, err := reindex.Sweep(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, SweepResult{Total: 1, Indexed: 0, Failed: 1}, *result)

	f.index.setFailing(false)
	result, err = reindex.Sweep(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, SweepResult{Total: 1, Indexed: 1}, *result)
	assert.Equal(t, 1, f.index.Len())

	unindexed, err := f.references.ListUnindexed(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, unindexed)
}

func TestIndexDocument_IsIdempotent(t *testing.T) {
	f := newIngestFixture(t, map[string][]float32{"same": {1, 0, 0, 0}})
	ctx := context.Background()

	res, err := f.svc.Ingest(ctx, IngestRequest{Filename: "a.txt", Data: []byte("same"), Category: models.CategorySuccessful})
	require.NoError(t, err)

	require.NoError(t, f.svc.IndexDocument(ctx, res.Document))
	require.NoError(t, f.svc.IndexDocument(ctx, res.Document))
	assert.Equal(t, 1, f.index.Len())

	matches, err := f.index.Query(ctx, []float32{1, 0, 0, 0}, 10, vectorindex.Filter{})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, res.Document.ID.String(), matches[0].ID)
}

func TestIngest_MetadataTextIsTruncated(t *testing.T) {
	f := newIngestFixture(t, nil)
	long := make([]rune, vectorindex.MetadataTextLimit+500)
	for i := range long {
		long[i] = 'é'
	}

	res, err := f.svc.Ingest(context.Background(), IngestRequest{
		Filename: "long.txt",
		Data:     []byte(string(long)),
		Category: models.CategorySuccessful,
	})
	require.NoError(t, err)
	assert.Len(t, []rune(res.Document.Content), len(long))

	matches, err := f.index.Query(context.Background(), []float32{0, 0, 0, 1}, 1, vectorindex.Filter{})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Len(t, []rune(matches[0].Metadata.Text), vectorindex.MetadataTextLimit)
}

func TestBulkIngest_CollectsPerItemErrors(t *testing.T) {
	f := newIngestFixture(t, nil)
	reqs := []IngestRequest{
		{Filename: "a.txt", Data: []byte("a"), Category: models.CategorySuccessful},
		{Filename: "b.txt", Data: []byte("b"), Category: "bogus"},
		{Filename: "c.txt", Data: []byte("c"), Category: models.CategoryUnsuccessful},
	}

	results, err := f.svc.BulkIngest(context.Background(), reqs, 2)
	assert.ErrorIs(t, err, ErrInvalidCategory)
	require.Len(t, results, 3)
	assert.NotNil(t, results[0])
	assert.Nil(t, results[1])
	assert.NotNil(t, results[2])
	assert.Equal(t, 2, f.index.Len())
}

func TestDeleteReference(t *testing.T) {
	f := newIngestFixture(t, nil)
	ctx := context.Background()

	res, err := f.svc.Ingest(ctx, IngestRequest{Filename: "a.txt", Data: []byte("a"), Category: models.CategorySuccessful})
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteReference(ctx, res.Document.ID))
	assert.Equal(t, 0, f.index.Len())

	_, err = f.svc.GetReference(ctx, res.Document.ID)
	assert.ErrorIs(t, err, ErrReferenceNotFound)

	assert.ErrorIs(t, f.svc.DeleteReference(ctx, uuid.New()), ErrReferenceNotFound)
}
