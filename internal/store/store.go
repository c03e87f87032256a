// Package store keeps the short lived shared state of the ingest pipeline:
// recently seen frames for duplicate suppression and partially received
// AIS messages. Memory serves a single process, Redis is shared between
// instances.
package store

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"time"
)

// DedupStore records keys for a limited time.
type DedupStore interface {
	// Seen records key and reports whether it was already present.
	Seen(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// FragmentStore keeps numbered parts under one key.
type FragmentStore interface {
	AddFragment(ctx context.Context, key string, num int, value string, ttl time.Duration) (map[int]string, error)
	Delete(ctx context.Context, key string) error
}

// Store is implemented by Memory and Redis.
type Store interface {
	DedupStore
	FragmentStore
	Close() error
}

// DedupKey builds the key of a frame in the dedup store, e.g. "ssr-<md5>".
func DedupKey(kind, data string) string {
	sum := md5.Sum([]byte(data))
	return kind + "-" + hex.EncodeToString(sum[:])
}
