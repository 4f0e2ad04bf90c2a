package concentration

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hozumi/portfolio-sentry/internal/domain"
	"github.com/hozumi/portfolio-sentry/pkg/logger"
)

func newTestAnalyzer() *Analyzer {
	return NewAnalyzer(logger.New(logger.Config{Level: "error", Pretty: false}))
}

func holding(symbol, sector, region, currency string, valueJPY float64) domain.HoldingSnapshot {
	return domain.HoldingSnapshot{
		Symbol:     symbol,
		Sector:     sector,
		Region:     region,
		Currency:   currency,
		ValueJPY:   valueJPY,
		AssetClass: domain.AssetClassEquity,
	}
}

func TestComputeHHI(t *testing.T) {
	tests := []struct {
		name    string
		weights []float64
		want    float64
	}{
		{name: "single bucket", weights: []float64{1.0}, want: 1.0},
		{name: "two equal", weights: []float64{0.5, 0.5}, want: 0.5},
		{name: "four equal", weights: []float64{0.25, 0.25, 0.25, 0.25}, want: 0.25},
		{name: "ten equal", weights: []float64{0.1, 0.1, 0.1, 0.1, 0.1, 0.1, 0.1, 0.1, 0.1, 0.1}, want: 0.1},
		{name: "dominant bucket", weights: []float64{0.9, 0.01, 0.01, 0.01, 0.01, 0.01, 0.01, 0.01, 0.01, 0.01, 0.01}, want: 0.811},
		{name: "spec example 60/40", weights: []float64{0.6, 0.4}, want: 0.52},
		{name: "empty", weights: nil, want: 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, ComputeHHI(tt.weights), 1e-9)
		})
	}
}

func TestComputeHHI_Range(t *testing.T) {
	// For any distribution summing to 1.0, HHI is in [1/n, 1]
	distributions := [][]float64{
		{0.7, 0.2, 0.1},
		{0.4, 0.3, 0.2, 0.1},
		{0.5, 0.5},
	}
	for _, weights := range distributions {
		hhi := ComputeHHI(weights)
		n := float64(len(weights))
		assert.GreaterOrEqual(t, hhi, 1.0/n)
		assert.LessOrEqual(t, hhi, 1.0)
	}
}

func TestMultiplier(t *testing.T) {
	tests := []struct {
		hhi  float64
		want float64
	}{
		{0.0, 1.0},
		{0.10, 1.0},
		{0.24, 1.0},
		{0.25, 1.0},
		{0.375, 1.15},
		{0.50, 1.3},
		{0.75, 1.45},
		{1.0, 1.6},
		{1.5, 1.6},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, Multiplier(tt.hhi), 1e-9, "hhi=%v", tt.hhi)
	}

	// Monotonic
	prev := 0.0
	for i := 0; i <= 100; i += 5 {
		m := Multiplier(float64(i) / 100.0)
		assert.GreaterOrEqual(t, m, prev)
		prev = m
	}
}

func TestAnalyze_EmptyPortfolio(t *testing.T) {
	a := newTestAnalyzer()
	report, err := a.Analyze(nil, DefaultThresholds())
	assert.Nil(t, report)
	assert.ErrorIs(t, err, ErrEmptyPortfolio)
}

func TestAnalyze_SingleHolding(t *testing.T) {
	a := newTestAnalyzer()
	holdings := []domain.HoldingSnapshot{
		holding("AAPL", "Technology", "US", "USD", 1_000_000),
	}

	report, err := a.Analyze(holdings, DefaultThresholds())
	assert.NoError(t, err)
	assert.InDelta(t, 1.0, report.SectorHHI, 1e-9)
	assert.InDelta(t, 1.0, report.RegionHHI, 1e-9)
	assert.InDelta(t, 1.0, report.CurrencyHHI, 1e-9)
	assert.Equal(t, RiskTierHigh, report.RiskTier)
	assert.InDelta(t, 1.6, report.Multiplier, 1e-9)
}

func TestAnalyze_SectorTierHigh(t *testing.T) {
	// Technology 0.6 / Healthcare 0.4 -> sector HHI 0.52 -> high
	a := newTestAnalyzer()
	holdings := []domain.HoldingSnapshot{
		holding("AAA", "Technology", "US", "USD", 600),
		holding("BBB", "Technology", "Japan", "JPY", 0), // zero value, ignored
		holding("CCC", "Healthcare", "Japan", "JPY", 400),
	}

	report, err := a.Analyze(holdings, DefaultThresholds())
	assert.NoError(t, err)
	assert.InDelta(t, 0.52, report.SectorHHI, 1e-9)
	assert.Equal(t, RiskTierHigh, report.RiskTier)
}

func TestAnalyze_CashExcludedFromSectorAndRegion(t *testing.T) {
	a := newTestAnalyzer()
	cash := domain.HoldingSnapshot{
		Symbol:     "JPY.CASH",
		Currency:   "JPY",
		ValueJPY:   500,
		AssetClass: domain.AssetClassCash,
	}
	holdings := []domain.HoldingSnapshot{
		holding("7203.T", "Consumer Cyclical", "Japan", "JPY", 500),
		cash,
	}

	report, err := a.Analyze(holdings, DefaultThresholds())
	assert.NoError(t, err)

	// Sector axis only sees the equity -> fully concentrated
	assert.InDelta(t, 1.0, report.SectorHHI, 1e-9)
	assert.NotContains(t, report.SectorBreakdown, "Unknown")

	// Currency axis sees both, all JPY -> one bucket with weight 1.0
	assert.InDelta(t, 1.0, report.CurrencyBreakdown["JPY"], 1e-9)
}

func TestAnalyze_BreakdownsSumToOne(t *testing.T) {
	a := newTestAnalyzer()
	holdings := []domain.HoldingSnapshot{
		holding("AAA", "Technology", "US", "USD", 400),
		holding("BBB", "Healthcare", "Japan", "JPY", 300),
		holding("CCC", "Technology", "US", "USD", 300),
	}

	report, err := a.Analyze(holdings, DefaultThresholds())
	assert.NoError(t, err)

	for name, breakdown := range map[string]map[string]float64{
		"sector":   report.SectorBreakdown,
		"region":   report.RegionBreakdown,
		"currency": report.CurrencyBreakdown,
	} {
		total := 0.0
		for _, w := range breakdown {
			total += w
		}
		assert.InDelta(t, 1.0, total, 1e-9, "%s breakdown should sum to 1.0", name)
	}
}

func TestAnalyze_MissingTagsUseDefaults(t *testing.T) {
	a := newTestAnalyzer()
	holdings := []domain.HoldingSnapshot{
		{Symbol: "XXX", ValueJPY: 500, AssetClass: domain.AssetClassEquity},
		holding("YYY", "Technology", "US", "USD", 500),
	}

	report, err := a.Analyze(holdings, DefaultThresholds())
	assert.NoError(t, err)
	assert.Contains(t, report.SectorBreakdown, "Unknown")
	assert.Contains(t, report.RegionBreakdown, "Unknown")
	assert.Contains(t, report.CurrencyBreakdown, "Unknown")
}

func TestAnalyze_MaxAxisSelection(t *testing.T) {
	// Sector concentrated, region diversified
	a := newTestAnalyzer()
	holdings := []domain.HoldingSnapshot{
		holding("A", "Technology", "US", "USD", 100),
		holding("B", "Technology", "Japan", "JPY", 100),
		holding("C", "Technology", "Singapore", "SGD", 100),
	}

	report, err := a.Analyze(holdings, DefaultThresholds())
	assert.NoError(t, err)
	assert.Equal(t, "sector", report.MaxHHIAxis)
	assert.InDelta(t, 1.0, report.MaxHHI, 1e-9)
	assert.InDelta(t, 1.0/3.0, report.RegionHHI, 1e-6)
}

func TestClassify_Thresholds(t *testing.T) {
	thresholds := DefaultThresholds()
	assert.Equal(t, RiskTierLow, classify(0.10, thresholds))
	assert.Equal(t, RiskTierModerate, classify(0.15, thresholds))
	assert.Equal(t, RiskTierModerate, classify(0.25, thresholds))
	assert.Equal(t, RiskTierHigh, classify(0.26, thresholds))

	// Aggressive profile overrides
	loose := Thresholds{Moderate: 0.25, High: 0.35}
	assert.Equal(t, RiskTierLow, classify(0.20, loose))
}
