package types

import "time"

// Venue identifies which prediction-market venue a Market or event
// originated from.
type Venue string

const (
	// VenueA is a separate-token venue: each outcome of a question has its
	// own tradable token id (distinct Yes/No CLOB tokens).
	VenueA Venue = "venue_a"
	// VenueB is a single-ticker venue: one ticker carries both yes and no
	// sides on a single orderbook, prices quoted in integer cents.
	VenueB Venue = "venue_b"
)

// MarketState is the coarse lifecycle tag persisted to
// market_state_history.
type MarketState string

const (
	MarketStateNone     MarketState = "none"
	MarketStateTracking MarketState = "tracking"
	MarketStateClosed   MarketState = "closed"
)

// Market is the identity of a single tradable outcome, normalized across
// venues. For VenueA, TokenID is the CLOB token id and one Market exists
// per outcome. For VenueB, TokenID equals the ticker and one Market
// carries both outcomes (see portfolio.MarketPair self-pairing).
type Market struct {
	ConditionID   string
	TokenID       string
	Outcome       string // "Yes" / "No"
	OutcomeIndex  int    // 0 = Yes, 1 = No
	Question      string
	Venue         Venue
	Active        bool
	Closed        bool
	Volume        float64
	Liquidity     float64
	State         MarketState
	DiscoveredAt  time.Time
	LastUpdatedAt time.Time
}

// DiscoveryFilter narrows the market set a venue adapter's discovery call
// returns, mirroring the listener.filters config of spec.md §6.
type DiscoveryFilter struct {
	SeriesIDs     []string
	TagIDs        []string
	ConditionIDs  []string
	SlugPatterns  []string
	SeriesTickers []string
	EventTickers  []string
	MarketTickers []string
	Status        string
	TitleContains string
	MinLiquidity  float64
	MinVolume     float64
}
