// Package cache implements the cache-aside layer around BIN lookups.
//
// The KV abstraction is the external fast key-value collaborator (Redis in
// production, memory in tests). Lookup is the coherency layer on top of it:
// it owns the key scheme and TTL, serializes institution snapshots, and
// swallows every transport failure so the cache can only ever degrade the
// system to "resolve from the store", never break a request.
package cache

import (
	"context"
	"time"
)

// KeyPrefix namespaces lookup entries in the shared key-value space.
const KeyPrefix = "lookup:bin:"

// TTL bounds how stale a cached resolution can get without an explicit
// invalidation.
const TTL = time.Hour

// KV is the external key-value cache contract. Get returns
// sentinel.ErrNotFound (possibly wrapped) on a miss. All three operations
// may fail; callers above the Lookup layer never see those failures.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

// Key builds the cache key for a BIN.
func Key(bin string) string {
	return KeyPrefix + bin
}
