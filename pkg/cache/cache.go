// Package cache provides the product enrichment cache: a ristretto-backed
// local layer with an optional redis layer behind it so entries survive
// restarts. Keys are "marketplace|ASIN"; expiry is lazy, stale entries are
// simply gone on read.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"linkmint/pkg/domain"
	"linkmint/pkg/logger"
	"linkmint/pkg/metrics"

	"github.com/dgraph-io/ristretto"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	localCounters = 100_000
	localMaxCost  = 10_000
	localBuffers  = 64

	redisKeyPrefix = "enrich:"
)

// Enrichment is a read-through, write-on-success cache for product facts.
type Enrichment struct {
	local  *ristretto.Cache
	client *redis.Client
	ttl    time.Duration
}

// Options configure the enrichment cache. Client is optional; without it the
// cache is process-local only.
type Options struct {
	TTL    time.Duration
	Client *redis.Client
}

// New constructs an Enrichment cache.
func New(opts Options) (*Enrichment, error) {
	local, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: localCounters,
		MaxCost:     localMaxCost,
		BufferItems: localBuffers,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create local cache: %w", err)
	}

	return &Enrichment{
		local:  local,
		client: opts.Client,
		ttl:    opts.TTL,
	}, nil
}

// Key builds the cache key for a marketplace and ASIN pair.
func Key(marketplace, asin string) string {
	return marketplace + "|" + asin
}

// Get returns cached facts for the marketplace and ASIN, or nil on a miss.
// Redis hits are promoted into the local layer.
func (e *Enrichment) Get(ctx context.Context, marketplace, asin string) *domain.ProductFacts {
	key := Key(marketplace, asin)

	if v, ok := e.local.Get(key); ok {
		if facts, ok := v.(*domain.ProductFacts); ok {
			metrics.CacheOperations.WithLabelValues("local", "hit").Inc()

			return facts
		}
	}
	metrics.CacheOperations.WithLabelValues("local", "miss").Inc()

	if e.client == nil {
		return nil
	}

	raw, err := e.client.Get(ctx, redisKeyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		metrics.CacheOperations.WithLabelValues("redis", "miss").Inc()

		return nil
	}
	if err != nil {
		logger.Warn(ctx, "redis cache read failed", zap.Error(err))

		return nil
	}

	var facts domain.ProductFacts
	if err := json.Unmarshal([]byte(raw), &facts); err != nil {
		logger.Warn(ctx, "corrupt cache entry dropped", zap.String("key", key), zap.Error(err))
		_ = e.client.Del(ctx, redisKeyPrefix+key).Err()

		return nil
	}
	metrics.CacheOperations.WithLabelValues("redis", "hit").Inc()

	e.local.SetWithTTL(key, &facts, 1, e.ttl)

	return &facts
}

// Set stores facts for the marketplace and ASIN. Only successful enrichments
// should be stored; failures are never cached.
func (e *Enrichment) Set(ctx context.Context, marketplace, asin string, facts *domain.ProductFacts) {
	if facts == nil {
		return
	}
	key := Key(marketplace, asin)

	e.local.SetWithTTL(key, facts, 1, e.ttl)

	if e.client == nil {
		return
	}
	b, err := json.Marshal(facts)
	if err != nil {
		return
	}
	if err := e.client.Set(ctx, redisKeyPrefix+key, b, e.ttl).Err(); err != nil {
		logger.Warn(ctx, "redis cache write failed", zap.Error(err))
	}
}

// Close releases the local cache resources.
func (e *Enrichment) Close() {
	e.local.Close()
}
