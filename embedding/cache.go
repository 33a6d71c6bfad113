package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"visar-backend/metrics"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Cache stores embeddings by key. Get reports ok=false on a miss.
type Cache interface {
	Get(ctx context.Context, key string) (vec []float32, ok bool, err error)
	Set(ctx context.Context, key string, vec []float32, ttl time.Duration) error
}

// RedisCache keeps embeddings in Redis as JSON arrays
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache connects to Redis and verifies the connection
func NewRedisCache(ctx context.Context, addr, password string, db int) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if _, err := client.Ping(ctx).Result(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisCache{client: client}, nil
}

// Close releases the Redis connection pool
func (c *RedisCache) Close() error {
	return c.client.Close()
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]float32, bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get embedding cache: %w", err)
	}

	var vec []float32
	if err := json.Unmarshal(data, &vec); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal embedding: %w", err)
	}
	return vec, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, vec []float32, ttl time.Duration) error {
	data, err := json.Marshal(vec)
	if err != nil {
		return fmt.Errorf("failed to marshal embedding: %w", err)
	}
	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set embedding cache: %w", err)
	}
	return nil
}

// CachedEmbedder serves repeated texts from a Cache. Cache errors are
// logged and bypassed; only the wrapped embedder can fail a call.
type CachedEmbedder struct {
	inner     Embedder
	cache     Cache
	namespace string
	ttl       time.Duration
	logger    *zap.Logger
}

// NewCachedEmbedder wraps inner. namespace should identify the model so a
// model change never serves stale vectors.
func NewCachedEmbedder(inner Embedder, cache Cache, namespace string, ttl time.Duration, logger *zap.Logger) *CachedEmbedder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedEmbedder{
		inner:     inner,
		cache:     cache,
		namespace: namespace,
		ttl:       ttl,
		logger:    logger,
	}
}

func (e *CachedEmbedder) Dimension() int {
	return e.inner.Dimension()
}

func (e *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	key := e.key(text)

	vec, ok, err := e.cache.Get(ctx, key)
	switch {
	case err != nil:
		metrics.EmbeddingCache.WithLabelValues("error").Inc()
		e.logger.Warn("Embedding cache lookup failed", zap.Error(err))
	case ok && len(vec) == e.inner.Dimension():
		metrics.EmbeddingCache.WithLabelValues("hit").Inc()
		return vec, nil
	default:
		metrics.EmbeddingCache.WithLabelValues("miss").Inc()
	}

	vec, err = e.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	if err := e.cache.Set(ctx, key, vec, e.ttl); err != nil {
		e.logger.Warn("Embedding cache write failed", zap.Error(err))
	}
	return vec, nil
}

func (e *CachedEmbedder) key(text string) string {
	sum := sha256.Sum256([]byte(text))
	return fmt.Sprintf("embedding:%s:%d:%s", e.namespace, e.inner.Dimension(), hex.EncodeToString(sum[:]))
}
