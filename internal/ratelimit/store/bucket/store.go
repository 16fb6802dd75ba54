// Package bucket persists token bucket snapshots for profiles marked
// Persistent, so exhausted quotas survive process restarts.
package bucket

import (
	"context"

	"veritrail/internal/ratelimit/models"
)

// Store is the durable backend for persisted buckets.
type Store interface {
	// Get returns the snapshot for a key, or nil if none is stored.
	Get(ctx context.Context, key string) (*models.BucketSnapshot, error)

	// Put stores the snapshot for a key, overwriting any previous value.
	Put(ctx context.Context, key string, snap models.BucketSnapshot) error

	// Delete removes the snapshot for a key.
	Delete(ctx context.Context, key string) error
}
