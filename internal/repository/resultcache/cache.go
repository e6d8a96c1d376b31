// Package resultcache caches whole DocumentResults keyed by document content.
// Page images are never cached; only the final aggregated result is.
package resultcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/celiksa/ocr-entity-extraction/internal/db/redis"
	"github.com/celiksa/ocr-entity-extraction/internal/domain"
	"github.com/celiksa/ocr-entity-extraction/internal/metrics"
	"github.com/celiksa/ocr-entity-extraction/internal/usecase/extraction"
)

// store is the consumer interface for the result cache.
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// CachedProcessor decorates the extraction pipeline with a content-addressed
// result cache. Cache failures degrade to a direct pipeline call; they never
// fail the request.
type CachedProcessor struct {
	inner     extraction.Processor
	store     store
	keyPrefix string
	ttl       time.Duration
	logger    *zap.Logger
}

// New creates a caching decorator.
func New(
	inner extraction.Processor,
	s store,
	keyPrefix string,
	ttl time.Duration,
	logger *zap.Logger,
) *CachedProcessor {
	return &CachedProcessor{
		inner:     inner,
		store:     s,
		keyPrefix: keyPrefix,
		ttl:       ttl,
		logger:    logger,
	}
}

// Process returns a cached DocumentResult for identical document bytes, or
// runs the pipeline and caches the outcome.
func (c *CachedProcessor) Process(ctx context.Context, doc domain.Document) (domain.DocumentResult, error) {
	key := c.cacheKey(doc)

	if result, ok := c.getFromCache(ctx, key); ok {
		metrics.ResultCacheTotal.WithLabelValues("hit").Inc()
		return result, nil
	}
	metrics.ResultCacheTotal.WithLabelValues("miss").Inc()

	result, err := c.inner.Process(ctx, doc)
	if err != nil {
		return domain.DocumentResult{}, fmt.Errorf("process document: %w", err)
	}

	c.putToCache(ctx, key, result)
	return result, nil
}

// cacheKey addresses a result by media kind plus content hash, so the same
// bytes declared as a different kind never collide.
func (c *CachedProcessor) cacheKey(doc domain.Document) string {
	h := sha256.Sum256(doc.Bytes)
	return c.keyPrefix + "result:" + string(doc.Kind) + ":" + hex.EncodeToString(h[:])
}

func (c *CachedProcessor) getFromCache(ctx context.Context, key string) (domain.DocumentResult, bool) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, redis.ErrKeyNotFound) {
			c.logger.Warn("Failed to get cached result", zap.String("key", key), zap.Error(err))
		}
		return domain.DocumentResult{}, false
	}

	var result domain.DocumentResult
	if err := json.Unmarshal(data, &result); err != nil {
		c.logger.Warn("Failed to parse cached result", zap.String("key", key), zap.Error(err))
		return domain.DocumentResult{}, false
	}
	return result, true
}

func (c *CachedProcessor) putToCache(ctx context.Context, key string, result domain.DocumentResult) {
	data, err := json.Marshal(result)
	if err != nil {
		c.logger.Warn("Failed to encode result for cache", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.store.SetWithTTL(ctx, key, data, c.ttl); err != nil {
		c.logger.Warn("Failed to cache result", zap.String("key", key), zap.Error(err))
	}
}
