package vectorindex

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// PGVectorIndex keeps vectors in a Postgres table using the pgvector
// extension, one table per index name.
type PGVectorIndex struct {
	db     *pgxpool.Pool
	spec   Spec
	table  string
	logger *zap.Logger
}

// NewPGVectorIndex creates a pgvector-backed index. The table is not touched
// until EnsureIndex is called.
func NewPGVectorIndex(db *pgxpool.Pool, spec Spec, logger *zap.Logger) (*PGVectorIndex, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PGVectorIndex{
		db:     db,
		spec:   spec,
		table:  identifier(spec.Name),
		logger: logger,
	}, nil
}

// formatVector formats an embedding vector as a pgvector literal
func formatVector(embedding []float32) string {
	if len(embedding) == 0 {
		return "[]"
	}
	parts := make([]string, len(embedding))
	for i, v := range embedding {
		parts[i] = strconv.FormatFloat(float64(v), 'f', 6, 32)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

var vectorTypeDim = regexp.MustCompile(`^vector\((\d+)\)$`)

// EnsureIndex creates the extension, table and HNSW index when missing. An
// existing table with a different vector dimension is reported, never altered.
func (p *PGVectorIndex) EnsureIndex(ctx context.Context) error {
	if _, err := p.db.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		// Often already installed by a superuser; the table DDL below fails
		// loudly if it is truly missing.
		p.logger.Warn("Failed to create pgvector extension", zap.Error(err))
	}

	var columnType string
	err := p.db.QueryRow(ctx, `
		SELECT format_type(a.atttypid, a.atttypmod)
		FROM pg_attribute a
		WHERE a.attrelid = to_regclass($1) AND a.attname = 'embedding' AND NOT a.attisdropped`,
		p.table,
	).Scan(&columnType)
	switch {
	case err == nil:
		m := vectorTypeDim.FindStringSubmatch(columnType)
		if m == nil || m[1] != strconv.Itoa(p.spec.Dimension) {
			return fmt.Errorf("%w: table %s has %s, want vector(%d)", ErrDimensionMismatch, p.table, columnType, p.spec.Dimension)
		}
		p.logger.Info("Vector index already exists", zap.String("index", p.table))
		return nil
	case errors.Is(err, pgx.ErrNoRows):
	default:
		return fmt.Errorf("failed to inspect vector table: %w", err)
	}

	table := pgx.Identifier{p.table}.Sanitize()
	createTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			embedding vector(%d) NOT NULL,
			text TEXT NOT NULL DEFAULT '',
			case_type TEXT NOT NULL DEFAULT '',
			category TEXT NOT NULL DEFAULT '',
			filename TEXT NOT NULL DEFAULT '',
			updated_at TIMESTAMP NOT NULL DEFAULT NOW()
		)`, table, p.spec.Dimension)
	if _, err := p.db.Exec(ctx, createTable); err != nil {
		return fmt.Errorf("failed to create vector table: %w", err)
	}

	createIndex := fmt.Sprintf(
		`CREATE INDEX IF NOT EXISTS %s ON %s USING hnsw (embedding vector_cosine_ops)`,
		pgx.Identifier{p.table + "_embedding_idx"}.Sanitize(), table,
	)
	if _, err := p.db.Exec(ctx, createIndex); err != nil {
		return fmt.Errorf("failed to create hnsw index: %w", err)
	}

	p.logger.Info("Vector index created", zap.String("index", p.table), zap.Int("dimension", p.spec.Dimension))
	return nil
}

// Upsert inserts the record or replaces the one with the same id
func (p *PGVectorIndex) Upsert(ctx context.Context, rec Record) error {
	if err := checkDimension(p.spec, rec.Vector); err != nil {
		return err
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, embedding, text, case_type, category, filename, updated_at)
		VALUES ($1, $2::vector, $3, $4, $5, $6, NOW())
		ON CONFLICT (id) DO UPDATE SET
			embedding = EXCLUDED.embedding,
			text = EXCLUDED.text,
			case_type = EXCLUDED.case_type,
			category = EXCLUDED.category,
			filename = EXCLUDED.filename,
			updated_at = NOW()`, pgx.Identifier{p.table}.Sanitize())

	_, err := p.db.Exec(ctx, query,
		rec.ID,
		formatVector(rec.Vector),
		rec.Metadata.Text,
		rec.Metadata.CaseType,
		rec.Metadata.Category,
		rec.Metadata.Filename,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert vector: %w", err)
	}
	return nil
}

// Query returns the nearest records by cosine distance. pgvector reports
// distance, so the score is 1 - distance.
func (p *PGVectorIndex) Query(ctx context.Context, vector []float32, topK int, filter Filter) ([]Match, error) {
	if err := checkDimension(p.spec, vector); err != nil {
		return nil, err
	}
	if topK <= 0 {
		return nil, nil
	}

	args := []interface{}{formatVector(vector), topK}
	where := ""
	if filter.CaseType != "" {
		args = append(args, filter.CaseType)
		where = "WHERE case_type = $3"
	}

	query := fmt.Sprintf(`
		SELECT
			id,
			1 - (embedding <=> $1::vector) AS score,
			text,
			case_type,
			category,
			filename
		FROM %s
		%s
		ORDER BY embedding <=> $1::vector
		LIMIT $2`, pgx.Identifier{p.table}.Sanitize(), where)

	rows, err := p.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query vectors: %w", err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var m Match
		if err := rows.Scan(
			&m.ID,
			&m.Score,
			&m.Metadata.Text,
			&m.Metadata.CaseType,
			&m.Metadata.Category,
			&m.Metadata.Filename,
		); err != nil {
			return nil, fmt.Errorf("failed to scan vector match: %w", err)
		}
		matches = append(matches, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating vector matches: %w", err)
	}

	return matches, nil
}

// Delete removes the record with the given id. Missing ids are not an error.
func (p *PGVectorIndex) Delete(ctx context.Context, id string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, pgx.Identifier{p.table}.Sanitize())
	if _, err := p.db.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("failed to delete vector: %w", err)
	}
	return nil
}
