// Package cache provides the minimal key/value contract used for the
// region-list cache. Callers must remain correct without a cache: a nil or
// failing cache degrades to always-miss behavior.
package cache

import "time"

// Cache is a transient key/value store with per-entry TTL.
type Cache interface {
	// Get returns the stored value and true, or nil and false on miss or
	// expiry.
	Get(key string) ([]byte, bool)

	// Set stores value under key. A zero ttl means the entry does not
	// expire on its own and lives until deleted or the store is torn down.
	Set(key string, value []byte, ttl time.Duration) error

	// Delete removes key unconditionally. Deleting a missing key is not an
	// error.
	Delete(key string) error
}
