// Package cache holds the in-process cache backing MarketCache: market
// metadata (condition/token IDs, outcome, state) is looked up far more
// often than it changes. The backtest loader sits the cache in front of
// the replay store's QueryMarkets; live discovery writes the markets it
// finds into the cache but does not read from it.
package cache

import "time"

// Cache is the untyped storage Get/Set/Delete primitive MarketCache
// builds on. It stays interface{}-typed here so a future second use (rate
// limit counters, REST response caching) doesn't need a second
// implementation — only a second typed wrapper alongside MarketCache.
type Cache interface {
	// Get retrieves a value from the cache.
	// Returns (value, true) if found, (nil, false) if not found.
	Get(key string) (interface{}, bool)

	// Set stores a value in the cache with a TTL.
	Set(key string, value interface{}, ttl time.Duration) bool

	// Delete removes a value from the cache.
	Delete(key string)

	// Clear removes all values from the cache.
	Clear()

	// Close closes the cache and releases resources.
	Close()
}
