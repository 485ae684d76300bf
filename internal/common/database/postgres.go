// internal/common/database/postgres.go
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"cctns-copilot/internal/common/config"

	_ "github.com/lib/pq"
)

// PostgresClient wraps the SQL database connection to the CCTNS store.
type PostgresClient struct {
	DB *sql.DB
}

// NewPostgres opens the pooled connection the executor runs validated
// statements on. The single-flight executor collapses identical in-flight
// queries, so MaxConnections only needs to cover distinct concurrent
// questions, not raw request fan-in.
func NewPostgres(cfg config.PostgresConfig) (*PostgresClient, error) {
	dsn := cfg.GetDSN()

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	if cfg.MaxConnections <= 0 {
		cfg.MaxConnections = 20
	}
	if cfg.MaxIdle <= 0 {
		cfg.MaxIdle = 5
	}
	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxIdle)
	db.SetConnMaxLifetime(time.Hour)
	// Idle recycling stays well above the executor timeout so a connection is
	// never reaped out from under a long statistics query.
	db.SetConnMaxIdleTime(5 * time.Minute)

	return &PostgresClient{DB: db}, nil
}

// Ping tests the database connection
func (c *PostgresClient) Ping(ctx context.Context) error {
	return c.DB.PingContext(ctx)
}

// Close closes the database connection
func (c *PostgresClient) Close() error {
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}

// GetDB returns the underlying *sql.DB the executor binds to.
func (c *PostgresClient) GetDB() *sql.DB {
	return c.DB
}
