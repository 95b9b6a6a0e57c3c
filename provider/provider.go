// Package provider defines the byte store that holds passivated bean state.
//
// Implementations MUST be byte-for-byte transparent: Get must return exactly the
// same []byte that was previously passed to Set for a key. The keyspace
// "bean:<ns>:" is owned by beancache; foreign values found there fail record
// validation and the bean is dropped as lost.
//
// Lossy stores (ristretto, bigcache) may evict passivated state under memory
// pressure. That bean is then lost on activation; use the Redis provider when
// passivated beans must survive.
package provider

import (
	"context"
	"time"
)

// Provider is a minimal byte store with TTLs. Must be safe for concurrent use.
type Provider interface {
	// Get returns (value, true, nil) on hit; (nil, false, nil) on miss.
	// If an IO/remote error happens, return (nil, false, err).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value with the given TTL (<= 0: no expiry). May ignore cost.
	// Returns ok=false when the store rejected the write under pressure.
	// A successful Set must be visible to the next Get.
	Set(ctx context.Context, key string, value []byte, cost int64, ttl time.Duration) (ok bool, err error)

	// Del removes a key. Deleting a missing key is not an error.
	Del(ctx context.Context, key string) error

	// Close releases resources.
	Close(ctx context.Context) error
}
