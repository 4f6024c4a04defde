package portfolio

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/RishabSBanthiya/prediction-market-data-services/pkg/types"
)

func TestMarketPair_ComplementPriceRoundTrip(t *testing.T) {
	pair := &MarketPair{ConditionID: "cond-1", YesTokenID: "yes", NoTokenID: "no"}

	for _, p := range []float64{0, 0.01, 0.37, 0.5, 0.99, 1} {
		price := decimal.NewFromFloat(p)
		roundTripped := pair.GetComplementPrice(pair.GetComplementPrice(price))
		assert.True(t, price.Equal(roundTripped), "price=%s roundTripped=%s", price, roundTripped)
	}
}

func TestMarketPair_SelfPairHasNoDistinctComplement(t *testing.T) {
	pair := &MarketPair{ConditionID: "cond-1", YesTokenID: "tick", NoTokenID: "tick"}
	assert.True(t, pair.IsSelfPair())

	complement, err := pair.GetComplementToken("tick")
	require.NoError(t, err)
	assert.Equal(t, "tick", complement)
}

func TestMarketPair_GetComplementTokenUnknownAsset(t *testing.T) {
	pair := &MarketPair{ConditionID: "cond-1", YesTokenID: "yes", NoTokenID: "no"}
	_, err := pair.GetComplementToken("other")
	assert.Error(t, err)
}

func TestBuildMarketPairsFromMarkets_TwoTokenByLabel(t *testing.T) {
	markets := []types.Market{
		{ConditionID: "cond-1", TokenID: "yes-tok", Outcome: "Yes", OutcomeIndex: 0},
		{ConditionID: "cond-1", TokenID: "no-tok", Outcome: "No", OutcomeIndex: 1},
	}
	registry := BuildMarketPairsFromMarkets(markets, zap.NewNop())

	pair, ok := registry.GetPairByCondition("cond-1")
	require.True(t, ok)
	assert.Equal(t, "yes-tok", pair.YesTokenID)
	assert.Equal(t, "no-tok", pair.NoTokenID)
	assert.False(t, pair.IsSelfPair())
}

func TestBuildMarketPairsFromMarkets_FallsBackToOutcomeIndex(t *testing.T) {
	markets := []types.Market{
		{ConditionID: "cond-1", TokenID: "tok-a", Outcome: "Up", OutcomeIndex: 0},
		{ConditionID: "cond-1", TokenID: "tok-b", Outcome: "Down", OutcomeIndex: 1},
	}
	registry := BuildMarketPairsFromMarkets(markets, zap.NewNop())

	pair, ok := registry.GetPairByCondition("cond-1")
	require.True(t, ok)
	assert.Equal(t, "tok-a", pair.YesTokenID)
	assert.Equal(t, "tok-b", pair.NoTokenID)
}

func TestBuildMarketPairsFromMarkets_SingleMarketIsSelfPair(t *testing.T) {
	markets := []types.Market{
		{ConditionID: "cond-single", TokenID: "ticker-1", Outcome: "Yes", OutcomeIndex: 0},
	}
	registry := BuildMarketPairsFromMarkets(markets, zap.NewNop())

	pair, ok := registry.GetPairByCondition("cond-single")
	require.True(t, ok)
	assert.True(t, pair.IsSelfPair())
	assert.Equal(t, pair.YesTokenID, pair.NoTokenID)
}

func TestBuildMarketPairsFromMarkets_SkipsAmbiguousGroups(t *testing.T) {
	markets := []types.Market{
		{ConditionID: "cond-weird", TokenID: "tok-1", Outcome: "A", OutcomeIndex: 0},
		{ConditionID: "cond-weird", TokenID: "tok-2", Outcome: "B", OutcomeIndex: 0},
		{ConditionID: "cond-weird", TokenID: "tok-3", Outcome: "C", OutcomeIndex: 2},
	}
	registry := BuildMarketPairsFromMarkets(markets, zap.NewNop())

	_, ok := registry.GetPairByCondition("cond-weird")
	assert.False(t, ok, "three-way group has no recognizable pairing and must be skipped")
}
