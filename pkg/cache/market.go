package cache

import (
	"time"

	"github.com/RishabSBanthiya/prediction-market-data-services/pkg/types"
)

// MarketCache wraps a Cache with the one shape this repo actually stores
// in it: venue-scoped market metadata, keyed by token ID. The underlying
// Cache stays interface{}-typed (ristretto doesn't know about
// types.Market), but every caller outside this package works with
// types.Market directly instead of repeating the type assertion.
type MarketCache struct {
	inner Cache
}

// NewMarketCache wraps an existing Cache as a MarketCache.
func NewMarketCache(inner Cache) *MarketCache {
	return &MarketCache{inner: inner}
}

// GetMarket retrieves a cached market for (venue, tokenID). The second
// return is false both when the key is absent and when a value is
// present but isn't a types.Market, so a corrupted cache entry is
// treated as a miss rather than a panic.
func (m *MarketCache) GetMarket(venue types.Venue, tokenID string) (types.Market, bool) {
	v, ok := m.inner.Get(marketKey(venue, tokenID))
	if !ok {
		return types.Market{}, false
	}
	market, ok := v.(types.Market)
	return market, ok
}

// SetMarket caches market under (venue, tokenID) for ttl.
func (m *MarketCache) SetMarket(venue types.Venue, tokenID string, market types.Market, ttl time.Duration) bool {
	return m.inner.Set(marketKey(venue, tokenID), market, ttl)
}

// DeleteMarket evicts the cached market for (venue, tokenID), e.g. once
// discovery marks it resolved/closed.
func (m *MarketCache) DeleteMarket(venue types.Venue, tokenID string) {
	m.inner.Delete(marketKey(venue, tokenID))
}

// Close releases the underlying cache's resources.
func (m *MarketCache) Close() {
	m.inner.Close()
}

func marketKey(venue types.Venue, tokenID string) string {
	return string(venue) + ":" + tokenID
}
