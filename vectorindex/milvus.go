package vectorindex

import (
	"context"
	"fmt"
	"strconv"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"go.uber.org/zap"
)

const (
	milvusIDLen       = 64
	milvusTextLen     = 4096
	milvusLabelLen    = 128
	milvusFilenameLen = 512
)

var milvusOutputFields = []string{"text", "case_type", "category", "filename"}

// MilvusIndex keeps vectors in a Milvus collection with a COSINE HNSW index.
type MilvusIndex struct {
	client     client.Client
	spec       Spec
	collection string
	logger     *zap.Logger
}

// NewMilvusIndex connects to Milvus at address
func NewMilvusIndex(ctx context.Context, address string, spec Spec, logger *zap.Logger) (*MilvusIndex, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	c, err := client.NewClient(ctx, client.Config{Address: address})
	if err != nil {
		return nil, fmt.Errorf("failed to create milvus client: %w", err)
	}

	logger.Info("Milvus client initialized",
		zap.String("address", address),
		zap.String("collection", identifier(spec.Name)),
	)

	return &MilvusIndex{
		client:     c,
		spec:       spec,
		collection: identifier(spec.Name),
		logger:     logger,
	}, nil
}

func (m *MilvusIndex) Close() error {
	return m.client.Close()
}

// EnsureIndex creates and loads the collection when it does not exist. An
// existing collection is only checked for a matching dimension and loaded.
func (m *MilvusIndex) EnsureIndex(ctx context.Context) error {
	has, err := m.client.HasCollection(ctx, m.collection)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}

	if has {
		coll, err := m.client.DescribeCollection(ctx, m.collection)
		if err != nil {
			return fmt.Errorf("failed to describe collection: %w", err)
		}
		for _, field := range coll.Schema.Fields {
			if field.Name == "embedding" && field.TypeParams[entity.TypeParamDim] != strconv.Itoa(m.spec.Dimension) {
				return fmt.Errorf("%w: collection %s has dim %s, want %d",
					ErrDimensionMismatch, m.collection, field.TypeParams[entity.TypeParamDim], m.spec.Dimension)
			}
		}
		if err := m.client.LoadCollection(ctx, m.collection, false); err != nil {
			return fmt.Errorf("failed to load collection: %w", err)
		}
		m.logger.Info("Collection already exists", zap.String("collection", m.collection))
		return nil
	}

	schema := entity.NewSchema().
		WithName(m.collection).
		WithDescription("Reference petition embeddings").
		WithField(entity.NewField().WithName("id").WithDataType(entity.FieldTypeVarChar).
			WithIsPrimaryKey(true).WithMaxLength(milvusIDLen)).
		WithField(entity.NewField().WithName("embedding").WithDataType(entity.FieldTypeFloatVector).
			WithDim(int64(m.spec.Dimension))).
		WithField(entity.NewField().WithName("text").WithDataType(entity.FieldTypeVarChar).
			WithMaxLength(milvusTextLen)).
		WithField(entity.NewField().WithName("case_type").WithDataType(entity.FieldTypeVarChar).
			WithMaxLength(milvusLabelLen)).
		WithField(entity.NewField().WithName("category").WithDataType(entity.FieldTypeVarChar).
			WithMaxLength(milvusLabelLen)).
		WithField(entity.NewField().WithName("filename").WithDataType(entity.FieldTypeVarChar).
			WithMaxLength(milvusFilenameLen))

	if err := m.client.CreateCollection(ctx, schema, entity.DefaultShardNumber); err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	idx, err := entity.NewIndexHNSW(entity.COSINE, 16, 200)
	if err != nil {
		return fmt.Errorf("failed to build index params: %w", err)
	}
	if err := m.client.CreateIndex(ctx, m.collection, "embedding", idx, false); err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	if err := m.client.LoadCollection(ctx, m.collection, false); err != nil {
		return fmt.Errorf("failed to load collection: %w", err)
	}

	m.logger.Info("Collection created and loaded", zap.String("collection", m.collection))
	return nil
}

func (m *MilvusIndex) Upsert(ctx context.Context, rec Record) error {
	if err := checkDimension(m.spec, rec.Vector); err != nil {
		return err
	}

	_, err := m.client.Upsert(
		ctx,
		m.collection,
		"",
		entity.NewColumnVarChar("id", []string{rec.ID}),
		entity.NewColumnFloatVector("embedding", m.spec.Dimension, [][]float32{rec.Vector}),
		entity.NewColumnVarChar("text", []string{clipBytes(rec.Metadata.Text, milvusTextLen)}),
		entity.NewColumnVarChar("case_type", []string{clipBytes(rec.Metadata.CaseType, milvusLabelLen)}),
		entity.NewColumnVarChar("category", []string{clipBytes(rec.Metadata.Category, milvusLabelLen)}),
		entity.NewColumnVarChar("filename", []string{clipBytes(rec.Metadata.Filename, milvusFilenameLen)}),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert vector: %w", err)
	}
	return nil
}

func (m *MilvusIndex) Query(ctx context.Context, vector []float32, topK int, filter Filter) ([]Match, error) {
	if err := checkDimension(m.spec, vector); err != nil {
		return nil, err
	}
	if topK <= 0 {
		return nil, nil
	}

	expr := ""
	if filter.CaseType != "" {
		expr = "case_type == " + strconv.Quote(filter.CaseType)
	}

	sp, err := entity.NewIndexHNSWSearchParam(max(64, topK))
	if err != nil {
		return nil, fmt.Errorf("failed to build search params: %w", err)
	}

	results, err := m.client.Search(
		ctx,
		m.collection,
		[]string{},
		expr,
		milvusOutputFields,
		[]entity.Vector{entity.FloatVector(vector)},
		"embedding",
		entity.COSINE,
		topK,
		sp,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	var matches []Match
	for _, sr := range results {
		for i := 0; i < sr.ResultCount; i++ {
			matches = append(matches, Match{
				ID:    columnString(sr.IDs, i),
				Score: float64(sr.Scores[i]),
				Metadata: Metadata{
					Text:     columnString(sr.Fields.GetColumn("text"), i),
					CaseType: columnString(sr.Fields.GetColumn("case_type"), i),
					Category: columnString(sr.Fields.GetColumn("category"), i),
					Filename: columnString(sr.Fields.GetColumn("filename"), i),
				},
			})
		}
	}
	return matches, nil
}

func (m *MilvusIndex) Delete(ctx context.Context, id string) error {
	expr := fmt.Sprintf("id in [%s]", strconv.Quote(id))
	if err := m.client.Delete(ctx, m.collection, "", expr); err != nil {
		return fmt.Errorf("failed to delete vector: %w", err)
	}
	return nil
}

func columnString(col entity.Column, i int) string {
	if col == nil {
		return ""
	}
	v, err := col.Get(i)
	if err != nil {
		return ""
	}
	s, _ := v.(string)
	return s
}
