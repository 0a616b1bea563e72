// Package db provides PostgreSQL database access for topics, stage logs,
// generated images, and published posts.
package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrTopicNotFound is returned when a topic id does not exist.
var ErrTopicNotFound = errors.New("topic not found")

// ErrCheckpointConflict is returned when a checkpoint write loses a
// compare-and-swap race against a concurrent writer for the same topic.
var ErrCheckpointConflict = errors.New("checkpoint version conflict")

// DB wraps a PostgreSQL connection pool
type DB struct {
	pool *pgxpool.Pool
}

// Connect establishes a connection pool to the database
func Connect(ctx context.Context, databaseURL string) (*DB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{pool: pool}, nil
}

// Close closes the connection pool
func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}
