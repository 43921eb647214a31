// Package history stores completed chat turns for later inspection.
package history

import (
	"context"
	"time"
)

// Turn is one completed request/response exchange.
type Turn struct {
	ID        int64     `json:"id"`
	Model     string    `json:"model"`
	Prompt    string    `json:"prompt"`
	Response  string    `json:"response"`
	Streamed  bool      `json:"streamed"`
	CreatedAt time.Time `json:"created_at"`
}

// Store persists conversation turns. Implementations must be safe for
// concurrent use.
type Store interface {
	// Record stores a turn and fills in its ID.
	Record(ctx context.Context, turn *Turn) error

	// List returns the most recent turns, newest first. A limit <= 0 means
	// no limit.
	List(ctx context.Context, limit int) ([]*Turn, error)

	// Close closes the store and releases any resources.
	Close() error
}
