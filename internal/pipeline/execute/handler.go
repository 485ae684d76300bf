// Package execute runs validated statements against the store. Identical
// concurrent requests collapse onto a single database round trip, and hot
// results come back from the Redis cache.
package execute

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"cctns-copilot/internal/common/database"
	"cctns-copilot/internal/common/logger"
	"cctns-copilot/internal/common/metrics"
	"cctns-copilot/internal/models"
)

const StageName = "execute"

var (
	ErrDatabaseConnectionFailed = errors.New("DATABASE_CONNECTION_FAILED")
	ErrQueryExecutionFailed     = errors.New("QUERY_EXECUTION_FAILED")
	ErrQueryTimeout             = errors.New("QUERY_TIMEOUT")
)

type Handler struct {
	config *Config
	db     *sql.DB
	cache  *resultCache
	flight singleflight.Group
	logger logger.Logger
}

// NewHandler builds the stage. redis may be nil, which disables caching but
// never execution.
func NewHandler(config *Config, db *sql.DB, redis *database.RedisClient, log logger.Logger) *Handler {
	h := &Handler{
		config: config,
		db:     db,
		logger: log.With(map[string]interface{}{"stage": StageName}),
	}
	if config.CacheEnabled && redis != nil {
		h.cache = newResultCache(redis, config.CacheTTL, h.logger)
	}
	return h
}

// Timeout exposes the configured statement deadline for error reporting.
func (h *Handler) Timeout() time.Duration {
	return h.config.Timeout
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	key := cacheKey(input.SQL, input.Params)

	// Concurrent identical statements share one flight: a lone cache miss
	// triggers one database query, every waiter gets its result.
	v, err, shared := h.flight.Do(key, func() (interface{}, error) {
		if h.cache != nil {
			if cached := h.cache.get(ctx, key); cached != nil {
				return cached, nil
			}
		}

		result, err := h.query(ctx, input)
		if err != nil {
			return nil, err
		}
		if h.cache != nil {
			h.cache.put(ctx, key, result)
		}
		return result, nil
	})
	if err != nil {
		return nil, err
	}

	result := *(v.(*models.QueryResult))
	if shared {
		h.logger.Debug("result shared across concurrent requests", map[string]interface{}{
			"rowCount": result.RowCount,
		})
	}
	return &Output{Result: result}, nil
}

// query runs the statement with the stage timeout, retrying transient
// failures with exponential backoff.
func (h *Handler) query(ctx context.Context, input *Input) (*models.QueryResult, error) {
	ctx, cancel := context.WithTimeout(ctx, h.config.Timeout)
	defer cancel()

	var lastErr error
	for attempt := 0; attempt <= h.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(100*(1<<(attempt-1))) * time.Millisecond
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				metrics.QueryExecutionFailures.WithLabelValues("timeout").Inc()
				return nil, ErrQueryTimeout
			}
		}

		result, err := h.queryOnce(ctx, input)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if ctx.Err() == context.DeadlineExceeded {
			metrics.QueryExecutionFailures.WithLabelValues("timeout").Inc()
			return nil, ErrQueryTimeout
		}
		if !isTransient(err) {
			metrics.QueryExecutionFailures.WithLabelValues("permanent").Inc()
			return nil, fmt.Errorf("%w: %v", ErrQueryExecutionFailed, err)
		}
		metrics.QueryExecutionFailures.WithLabelValues("transient").Inc()
		h.logger.Warn("transient query failure, retrying", map[string]interface{}{
			"attempt": attempt + 1,
			"error":   err.Error(),
		})
	}

	return nil, fmt.Errorf("%w: %v", ErrDatabaseConnectionFailed, lastErr)
}

func (h *Handler) queryOnce(ctx context.Context, input *Input) (*models.QueryResult, error) {
	started := time.Now()
	rows, err := h.db.QueryContext(ctx, input.SQL, input.Params...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	result := &models.QueryResult{Columns: columns}

	// Fetch one row past the cap to learn whether the result was cut off.
	for rows.Next() {
		if len(result.Rows) >= h.config.MaxResultRows {
			result.Truncated = true
			break
		}

		values := make([]interface{}, len(columns))
		scanArgs := make([]interface{}, len(columns))
		for i := range values {
			scanArgs[i] = &values[i]
		}
		if err := rows.Scan(scanArgs...); err != nil {
			return nil, err
		}

		row := make(models.Row, len(columns))
		for i, col := range columns {
			row[col] = normalizeValue(values[i])
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	result.RowCount = len(result.Rows)
	result.ExecutionTimeMillis = time.Since(started).Milliseconds()

	metrics.QueryExecutionDuration.Observe(time.Since(started).Seconds())
	metrics.RowsReturned.Observe(float64(result.RowCount))

	return result, nil
}

// normalizeValue makes driver values JSON-friendly for the cache and the
// formatter.
func normalizeValue(v interface{}) interface{} {
	switch val := v.(type) {
	case []byte:
		return string(val)
	case time.Time:
		return val.Format(time.RFC3339)
	default:
		return v
	}
}

func isTransient(err error) bool {
	return errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone)
}
