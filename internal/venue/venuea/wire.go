package venuea

// wireLevel is a single (price, size) pair as the venue sends it: decimal
// strings, not yet parsed into shopspring/decimal.
type wireLevel struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

// wireBookEvent covers the two message shapes the adapter cares about
// (event_type "book" and "price_change"). Both carry a full replacement
// of bids/asks per spec.md §4.1 ("Orderbooks are delivered as full
// snapshots on every update"); the adapter does not attempt incremental
// reconstruction for this venue.
type wireBookEvent struct {
	EventType string      `json:"event_type"`
	AssetID   string      `json:"asset_id"`
	Market    string      `json:"market"`
	Timestamp string      `json:"timestamp"` // ms, as a decimal string
	Bids      []wireLevel `json:"bids"`
	Asks      []wireLevel `json:"asks"`
	Hash      string      `json:"hash"`
}

// wireTradeEvent covers event_type "last_trade_price".
type wireTradeEvent struct {
	EventType string `json:"event_type"`
	AssetID   string `json:"asset_id"`
	Market    string `json:"market"`
	Price     string `json:"price"`
	Size      string `json:"size"`
	Side      string `json:"side"`
	Timestamp string `json:"timestamp"`
}

// wireEnvelope is decoded first to read event_type before committing to a
// concrete shape.
type wireEnvelope struct {
	EventType string `json:"event_type"`
}

// discoveryMarket mirrors one row of the Variant A REST discovery
// response: a question with its parallel token-id/outcome-label arrays.
type discoveryMarket struct {
	ConditionID   string   `json:"condition_id"`
	Question      string   `json:"question"`
	ClobTokenIDs  []string `json:"clob_token_ids"`
	Outcomes      []string `json:"outcomes"`
	Active        bool     `json:"active"`
	Closed        bool     `json:"closed"`
	Volume        string   `json:"volume"`
	Liquidity     string   `json:"liquidity"`
	Slug          string   `json:"slug"`
	Series        []string `json:"series_tickers"`
	Tags          []string `json:"tag_ids"`
}
