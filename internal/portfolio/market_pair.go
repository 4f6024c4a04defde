package portfolio

import (
	"fmt"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/RishabSBanthiya/prediction-market-data-services/pkg/types"
)

// MarketPair binds the two complementary outcome tokens of a binary
// condition (yes/no) so a sell of one side can be converted into a buy of
// the other at the complementary price. For single-ticker venues that
// settle the whole market on one tradable instrument, YesTokenID and
// NoTokenID are the same asset and complement conversion is a no-op.
type MarketPair struct {
	ConditionID string
	Question    string
	YesTokenID  string
	NoTokenID   string
	Venue       types.Venue
}

// IsSelfPair reports whether this pair is a single-ticker market with no
// distinct complement token.
func (mp *MarketPair) IsSelfPair() bool {
	return mp.YesTokenID == mp.NoTokenID
}

// IsYesToken reports whether assetID is this pair's yes-side token.
func (mp *MarketPair) IsYesToken(assetID string) bool {
	return assetID == mp.YesTokenID
}

// IsNoToken reports whether assetID is this pair's no-side token.
func (mp *MarketPair) IsNoToken(assetID string) bool {
	return assetID == mp.NoTokenID && !mp.IsSelfPair()
}

// ContainsToken reports whether assetID belongs to this pair.
func (mp *MarketPair) ContainsToken(assetID string) bool {
	return assetID == mp.YesTokenID || assetID == mp.NoTokenID
}

// GetComplementToken returns the other side's token ID for assetID. For a
// self-pair it returns assetID unchanged.
func (mp *MarketPair) GetComplementToken(assetID string) (string, error) {
	switch assetID {
	case mp.YesTokenID:
		return mp.NoTokenID, nil
	case mp.NoTokenID:
		return mp.YesTokenID, nil
	default:
		return "", fmt.Errorf("asset %s does not belong to pair %s", assetID, mp.ConditionID)
	}
}

// GetComplementPrice returns 1-price, the complementary outcome's
// equivalent price under the law of complementary probabilities.
func (mp *MarketPair) GetComplementPrice(price decimal.Decimal) decimal.Decimal {
	return decimal.NewFromInt(1).Sub(price)
}

// MarketPairRegistry indexes MarketPair by condition ID and by either side's
// token ID for O(1) lookup during order validation and complement
// conversion.
type MarketPairRegistry struct {
	mu         sync.RWMutex
	byToken    map[string]*MarketPair
	byCondition map[string]*MarketPair
}

// NewMarketPairRegistry returns an empty registry.
func NewMarketPairRegistry() *MarketPairRegistry {
	return &MarketPairRegistry{
		byToken:     make(map[string]*MarketPair),
		byCondition: make(map[string]*MarketPair),
	}
}

// Register adds a pair to the registry, indexing it by condition ID and by
// both of its token IDs.
func (r *MarketPairRegistry) Register(pair *MarketPair) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.byCondition[pair.ConditionID] = pair
	r.byToken[pair.YesTokenID] = pair
	if !pair.IsSelfPair() {
		r.byToken[pair.NoTokenID] = pair
	}
}

// GetPairForToken returns the pair that owns assetID, if any.
func (r *MarketPairRegistry) GetPairForToken(assetID string) (*MarketPair, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	pair, ok := r.byToken[assetID]
	return pair, ok
}

// GetPairByCondition returns the pair for a condition ID, if any.
func (r *MarketPairRegistry) GetPairByCondition(conditionID string) (*MarketPair, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	pair, ok := r.byCondition[conditionID]
	return pair, ok
}

// GetAllPairs returns every registered pair in no particular order.
func (r *MarketPairRegistry) GetAllPairs() []*MarketPair {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*MarketPair, 0, len(r.byCondition))
	for _, pair := range r.byCondition {
		out = append(out, pair)
	}
	return out
}

// BuildMarketPairsFromMarkets groups markets by ConditionID and derives a
// MarketPair per group:
//   - a single market in the group becomes a self-pair (yes and no token
//     both equal to the market's token — the single-ticker venue case);
//   - exactly two markets pair by outcome string ("yes"/"no", case
//     insensitive), falling back to OutcomeIndex 0/1 if the outcome
//     strings don't match either label;
//   - any other group size is logged and skipped as a non-binary market
//     this registry cannot represent.
func BuildMarketPairsFromMarkets(markets []types.Market, logger *zap.Logger) *MarketPairRegistry {
	registry := NewMarketPairRegistry()

	groups := make(map[string][]types.Market)
	for _, m := range markets {
		groups[m.ConditionID] = append(groups[m.ConditionID], m)
	}

	for conditionID, group := range groups {
		switch len(group) {
		case 1:
			m := group[0]
			registry.Register(&MarketPair{
				ConditionID: conditionID,
				Question:    m.Question,
				YesTokenID:  m.TokenID,
				NoTokenID:   m.TokenID,
				Venue:       m.Venue,
			})
		case 2:
			pair, ok := pairTwoMarkets(group)
			if !ok {
				logger.Warn("skipping-non-binary-market",
					zap.String("condition-id", conditionID),
					zap.Int("market-count", len(group)))
				continue
			}
			registry.Register(pair)
		default:
			logger.Warn("skipping-non-binary-market",
				zap.String("condition-id", conditionID),
				zap.Int("market-count", len(group)))
		}
	}

	return registry
}

func pairTwoMarkets(group []types.Market) (*MarketPair, bool) {
	a, b := group[0], group[1]

	aIsYes := strings.EqualFold(a.Outcome, "yes")
	aIsNo := strings.EqualFold(a.Outcome, "no")
	bIsYes := strings.EqualFold(b.Outcome, "yes")
	bIsNo := strings.EqualFold(b.Outcome, "no")

	if aIsYes && bIsNo {
		return newPair(a, b), true
	}
	if aIsNo && bIsYes {
		return newPair(b, a), true
	}

	// Fall back to outcome index 0/1 when outcome strings don't carry
	// recognizable yes/no labels.
	if a.OutcomeIndex == 0 && b.OutcomeIndex == 1 {
		return newPair(a, b), true
	}
	if a.OutcomeIndex == 1 && b.OutcomeIndex == 0 {
		return newPair(b, a), true
	}

	return nil, false
}

func newPair(yes, no types.Market) *MarketPair {
	return &MarketPair{
		ConditionID: yes.ConditionID,
		Question:    yes.Question,
		YesTokenID:  yes.TokenID,
		NoTokenID:   no.TokenID,
		Venue:       yes.Venue,
	}
}
