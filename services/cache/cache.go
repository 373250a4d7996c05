package cache

import (
	"time"
)

// CacheService is the TTL key-value backend behind the source block list.
// Implementations: memcache for deployments, an in-process map for tests
// and cache-less runs.
type CacheService interface {
	// Get retrieves a value from the cache
	Get(key string) ([]byte, error)

	// Set stores a value in the cache with an expiration time
	Set(key string, value []byte, expiration time.Duration) error

	// Delete removes a value from the cache
	Delete(key string) error
}
