package scenario

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hozumi/portfolio-sentry/internal/domain"
)

func TestResolve_DirectKey(t *testing.T) {
	def, ok := Resolve("triple_decline")
	assert.True(t, ok)
	assert.Equal(t, "triple_decline", def.Key)
	assert.InDelta(t, -0.20, def.BaseShock, 1e-9)
}

func TestResolve_CaseInsensitive(t *testing.T) {
	def, ok := Resolve("TRIPLE_DECLINE")
	assert.True(t, ok)
	assert.Equal(t, "triple_decline", def.Key)
}

func TestResolve_Aliases(t *testing.T) {
	tests := []struct {
		query string
		key   string
	}{
		{"recession", "us_recession"},
		{"hard landing", "us_recession"},
		{"weak yen", "yen_depreciation"},
		{"yen", "yen_depreciation"},
		{"boj", "rate_hike"},
		{"tech crash", "tech_crash"},
		{"strong yen", "yen_appreciation"},
		{"inflation", "inflation_resurgence"},
		{"war", "geopolitical_conflict"},
	}
	for _, tt := range tests {
		def, ok := Resolve(tt.query)
		assert.True(t, ok, "query %q should resolve", tt.query)
		assert.Equal(t, tt.key, def.Key, "query %q", tt.query)
	}
}

func TestResolve_FuzzyContainment(t *testing.T) {
	def, ok := Resolve("recess")
	assert.True(t, ok)
	assert.Equal(t, "us_recession", def.Key)
}

func TestResolve_Unknown(t *testing.T) {
	_, ok := Resolve("nonexistent_scenario")
	assert.False(t, ok)

	_, ok = Resolve("")
	assert.False(t, ok)
}

func TestCatalog_EightScenariosAllResolvable(t *testing.T) {
	keys := Keys()
	assert.Len(t, keys, 8)

	for _, key := range keys {
		def, ok := Resolve(key)
		assert.True(t, ok, "key %q should resolve", key)
		assert.NotZero(t, def.BaseShock, "scenario %q must carry a nonzero baseline", key)
		assert.NotEmpty(t, def.Targets, "scenario %q should define target shocks", key)
		for _, alias := range def.Aliases {
			_, ok := Resolve(alias)
			assert.True(t, ok, "alias %q of %q should resolve", alias, key)
		}
	}
}

func TestLookupETFClass(t *testing.T) {
	assert.Equal(t, ETFGold, LookupETFClass("GLD"))
	assert.Equal(t, ETFGold, LookupETFClass("gld"))
	assert.Equal(t, ETFLongBonds, LookupETFClass("TLT"))
	assert.Equal(t, ETFDividendEquity, LookupETFClass("VYM"))
	assert.Equal(t, ETFDividendEquity, LookupETFClass("1478.T"))

	// Unknown tickers fall back, never a miss
	assert.Equal(t, ETFBroadEquity, LookupETFClass("VT"))
}

func TestTradeProfile(t *testing.T) {
	exporter := domain.HoldingSnapshot{Symbol: "7203.T", Region: "Japan", Sector: "Consumer Cyclical"}
	domestic := domain.HoldingSnapshot{Symbol: "9432.T", Region: "Japan", Sector: "Communication Services"}
	foreign := domain.HoldingSnapshot{Symbol: "AAPL", Region: "US", Sector: "Technology"}

	assert.Equal(t, "exporter", TradeProfile(exporter))
	assert.Equal(t, "domestic", TradeProfile(domestic))
	assert.Equal(t, "", TradeProfile(foreign))
}

func TestMatchTarget_RegionBeatsSector(t *testing.T) {
	// A US Technology holding against a scenario with both a region US
	// bucket and a sector Technology bucket must match region.
	def := Definition{
		Key:       "custom",
		BaseShock: -0.02,
		Targets: []TargetShock{
			{Kind: TargetSector, Value: "Technology", Shock: -0.12},
			{Kind: TargetRegion, Value: "US", Shock: -0.08},
		},
	}
	h := domain.HoldingSnapshot{
		Symbol: "AAA", Region: "US", Sector: "Technology",
		Currency: "USD", AssetClass: domain.AssetClassEquity,
	}

	target, ok := MatchTarget(h, def)
	assert.True(t, ok)
	assert.Equal(t, TargetRegion, target.Kind)
	assert.InDelta(t, -0.08, target.Shock, 1e-9)
}

func TestMatchTarget_CurrencyBeatsTradeProfile(t *testing.T) {
	def, _ := Get("yen_depreciation")
	usdHolding := domain.HoldingSnapshot{
		Symbol: "AAPL", Region: "US", Sector: "Technology",
		Currency: "USD", AssetClass: domain.AssetClassEquity,
	}

	target, ok := MatchTarget(usdHolding, def)
	assert.True(t, ok)
	assert.Equal(t, TargetCurrency, target.Kind)
	assert.InDelta(t, 0.09, target.Shock, 1e-9)
}

func TestMatchTarget_TradeProfile(t *testing.T) {
	def, _ := Get("yen_depreciation")
	exporter := domain.HoldingSnapshot{
		Symbol: "7203.T", Region: "Japan", Sector: "Consumer Cyclical",
		Currency: "JPY", AssetClass: domain.AssetClassEquity,
	}
	domestic := domain.HoldingSnapshot{
		Symbol: "9432.T", Region: "Japan", Sector: "Communication Services",
		Currency: "JPY", AssetClass: domain.AssetClassEquity,
	}

	target, ok := MatchTarget(exporter, def)
	assert.True(t, ok)
	assert.InDelta(t, 0.08, target.Shock, 1e-9)

	target, ok = MatchTarget(domestic, def)
	assert.True(t, ok)
	assert.InDelta(t, -0.06, target.Shock, 1e-9)
}

func TestMatchTarget_ETFAssetClass(t *testing.T) {
	def, _ := Get("geopolitical_conflict")
	gold := domain.HoldingSnapshot{
		Symbol: "GLD", Region: "US", Currency: "USD",
		AssetClass: domain.AssetClassETF,
	}

	target, ok := MatchTarget(gold, def)
	assert.True(t, ok)
	assert.Equal(t, TargetAssetClass, target.Kind)
	assert.InDelta(t, 0.05, target.Shock, 1e-9)

	// Same ticker as plain equity does not take the ETF bucket
	equity := gold
	equity.AssetClass = domain.AssetClassEquity
	target, ok = MatchTarget(equity, def)
	if ok {
		assert.NotEqual(t, TargetAssetClass, target.Kind)
	}
}

func TestMatchTarget_SectorExclusionBeforeSector(t *testing.T) {
	def, _ := Get("tech_crash")

	tech := domain.HoldingSnapshot{
		Symbol: "AAPL", Region: "Germany", Sector: "Technology",
		Currency: "EUR", AssetClass: domain.AssetClassEquity,
	}
	nonTech := domain.HoldingSnapshot{
		Symbol: "NESN.SW", Region: "Switzerland", Sector: "Consumer Defensive",
		Currency: "CHF", AssetClass: domain.AssetClassEquity,
	}

	target, ok := MatchTarget(tech, def)
	assert.True(t, ok)
	assert.Equal(t, TargetSector, target.Kind)
	assert.InDelta(t, -0.25, target.Shock, 1e-9)

	target, ok = MatchTarget(nonTech, def)
	assert.True(t, ok)
	assert.Equal(t, TargetSectorExcept, target.Kind)
	assert.InDelta(t, -0.03, target.Shock, 1e-9)
}

func TestMatchTarget_NoMatch(t *testing.T) {
	def := Definition{
		Key:       "custom",
		BaseShock: -0.02,
		Targets: []TargetShock{
			{Kind: TargetRegion, Value: "US", Shock: -0.10},
		},
	}
	h := domain.HoldingSnapshot{
		Symbol: "7203.T", Region: "Japan", Sector: "Consumer Cyclical",
		Currency: "JPY", AssetClass: domain.AssetClassEquity,
	}

	_, ok := MatchTarget(h, def)
	assert.False(t, ok)
}

func TestMatchTarget_DeterministicAndIdempotent(t *testing.T) {
	def, _ := Get("us_recession")
	h := domain.HoldingSnapshot{
		Symbol: "AAPL", Region: "US", Sector: "Technology",
		Currency: "USD", AssetClass: domain.AssetClassEquity,
	}

	first, ok := MatchTarget(h, def)
	assert.True(t, ok)
	for i := 0; i < 10; i++ {
		again, ok := MatchTarget(h, def)
		assert.True(t, ok)
		assert.Equal(t, first, again)
	}
}
