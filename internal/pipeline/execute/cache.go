package execute

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"cctns-copilot/internal/common/database"
	"cctns-copilot/internal/common/logger"
	"cctns-copilot/internal/common/metrics"
	"cctns-copilot/internal/models"
)

// resultCache stores serialized query results in Redis. Every error path
// degrades to a miss: a broken cache slows the pipeline down, it never
// breaks it.
type resultCache struct {
	redis  *database.RedisClient
	ttl    time.Duration
	logger logger.Logger
}

func newResultCache(redis *database.RedisClient, ttl time.Duration, log logger.Logger) *resultCache {
	return &resultCache{redis: redis, ttl: ttl, logger: log}
}

// cacheKey hashes the normalized statement together with its bound
// parameters, so the same SQL with different bindings never collides.
func cacheKey(sql string, params []interface{}) string {
	h := sha256.New()
	h.Write([]byte(sql))
	for _, p := range params {
		fmt.Fprintf(h, "\x00%v", p)
	}
	return "copilot:result:" + hex.EncodeToString(h.Sum(nil))
}

func (c *resultCache) get(ctx context.Context, key string) *models.QueryResult {
	raw, err := c.redis.Get(ctx, key)
	if err == redis.Nil {
		metrics.CacheLookups.WithLabelValues("miss").Inc()
		return nil
	}
	if err != nil {
		metrics.CacheLookups.WithLabelValues("error").Inc()
		c.logger.Warn("cache read failed", map[string]interface{}{"error": err.Error()})
		return nil
	}

	var result models.QueryResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		metrics.CacheLookups.WithLabelValues("error").Inc()
		c.logger.Warn("cache entry corrupt, ignoring", map[string]interface{}{"error": err.Error()})
		return nil
	}

	metrics.CacheLookups.WithLabelValues("hit").Inc()
	result.FromCache = true
	return &result
}

func (c *resultCache) put(ctx context.Context, key string, result *models.QueryResult) {
	raw, err := json.Marshal(result)
	if err != nil {
		c.logger.Warn("cache encode failed", map[string]interface{}{"error": err.Error()})
		return
	}
	if err := c.redis.Set(ctx, key, raw, c.ttl); err != nil {
		c.logger.Warn("cache write failed", map[string]interface{}{"error": err.Error()})
	}
}
