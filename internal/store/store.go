// Package store persists finished autopilot jobs so they can be handed to
// a lifecycle tool or read back later.
package store

import (
	"context"
	"time"
)

// DefaultDBPath is the default relative path for the SQLite DB.
// Open creates the parent directory if it does not exist.
const DefaultDBPath = ".autopilot/exports.db"

// LatestKey aliases the most recently saved export.
const LatestKey = "latest"

// Export is one saved job: the deployment payload and the full result,
// both as JSON.
type Export struct {
	Key       string
	JobID     string
	Payload   []byte
	Result    []byte
	CreatedAt time.Time
}

// Store is the export facade. Every SaveExport also moves LatestKey.
// GetExport returns nil, nil for an unknown key.
type Store interface {
	SaveExport(ctx context.Context, jobID string, payload, result []byte) error
	GetExport(ctx context.Context, key string) (*Export, error)
	ListExports(ctx context.Context) ([]*Export, error)
	Close() error
}

func nowUTC() time.Time { return time.Now().UTC().Truncate(time.Second) }
