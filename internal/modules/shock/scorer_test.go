package shock

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hozumi/portfolio-sentry/internal/domain"
	"github.com/hozumi/portfolio-sentry/internal/modules/scenario"
	"github.com/hozumi/portfolio-sentry/pkg/logger"
)

func newTestScorer() *Scorer {
	return NewScorer(logger.New(logger.Config{Level: "error", Pretty: false}))
}

func TestSensitivity_RegionPriorityOverSector(t *testing.T) {
	// Holding "AAA": region US, sector Technology. The scenario shocks
	// region US by -8% and sector Technology by -12%. Region has higher
	// match priority, so the sensitivity is -8%, not -12%.
	def := scenario.Definition{
		Key:       "custom",
		BaseShock: -0.02,
		Targets: []scenario.TargetShock{
			{Kind: scenario.TargetRegion, Value: "US", Shock: -0.08, Label: "US equities"},
			{Kind: scenario.TargetSector, Value: "Technology", Shock: -0.12, Label: "Technology"},
		},
	}
	h := domain.HoldingSnapshot{
		Symbol: "AAA", Region: "US", Sector: "Technology",
		Currency: "USD", AssetClass: domain.AssetClassEquity,
		ValueJPY: 1_000_000, Weight: 1.0,
	}

	score := newTestScorer().Sensitivity(h, def)
	assert.InDelta(t, -0.08, score.Impact, 1e-9)
	assert.Equal(t, "US equities", score.Bucket)
	assert.InDelta(t, -80_000, score.ImpactJPY, 1e-6)
}

func TestSensitivity_BaselineNeverZero(t *testing.T) {
	def, _ := scenario.Get("geopolitical_conflict")
	// No region/currency/sector bucket in this scenario matches a JPY
	// utility, so the baseline applies.
	h := domain.HoldingSnapshot{
		Symbol: "9501.T", Region: "Japan", Sector: "Utilities",
		Currency: "JPY", AssetClass: domain.AssetClassEquity,
		ValueJPY: 100_000, Weight: 0.5,
	}

	score := newTestScorer().Sensitivity(h, def)
	assert.Equal(t, "baseline", score.Bucket)
	assert.NotZero(t, score.Impact)
	assert.InDelta(t, def.BaseShock, score.Impact, 1e-9)
}

func TestSensitivity_BaseCurrencyCashImmune(t *testing.T) {
	def, _ := scenario.Get("tech_crash")
	cash := domain.HoldingSnapshot{
		Symbol: "JPY.CASH", Currency: "JPY",
		AssetClass: domain.AssetClassCash,
		ValueJPY:   500_000, Weight: 0.25,
	}

	score := newTestScorer().Sensitivity(cash, def)
	assert.Zero(t, score.Impact)
	assert.Equal(t, "base-currency cash", score.Bucket)
}

func TestSensitivity_ForeignCashTakesCurrencyBucket(t *testing.T) {
	def, _ := scenario.Get("yen_appreciation")
	cash := domain.HoldingSnapshot{
		Symbol: "USD.CASH", Currency: "USD",
		AssetClass: domain.AssetClassCash,
		ValueJPY:   500_000, Weight: 0.25,
	}

	score := newTestScorer().Sensitivity(cash, def)
	assert.InDelta(t, -0.08, score.Impact, 1e-9)
}

func TestRunScenario_ValueWeightedAggregate(t *testing.T) {
	def := scenario.Definition{
		Key:       "custom",
		BaseShock: -0.02,
		Targets: []scenario.TargetShock{
			{Kind: scenario.TargetSector, Value: "Technology", Shock: -0.20, Label: "Tech"},
		},
	}
	holdings := []domain.HoldingSnapshot{
		{Symbol: "TECH", Sector: "Technology", Region: "US", Currency: "USD",
			AssetClass: domain.AssetClassEquity, ValueJPY: 600, Weight: 0.6},
		{Symbol: "SAFE", Sector: "Utilities", Region: "Japan", Currency: "JPY",
			AssetClass: domain.AssetClassEquity, ValueJPY: 400, Weight: 0.4},
	}

	impact := newTestScorer().RunScenario(holdings, def)

	// 0.6*-0.20 + 0.4*-0.02 = -0.128
	assert.InDelta(t, -0.128, impact.Aggregate, 1e-9)
	assert.Len(t, impact.Scores, 2)
	assert.Equal(t, JudgmentContinue, impact.Judgment)
}

func TestRunScenario_Judgments(t *testing.T) {
	tests := []struct {
		name   string
		shock  float64
		expect Judgment
	}{
		{"mild", -0.05, JudgmentContinue},
		{"boundary continue", -0.149, JudgmentContinue},
		{"acknowledge", -0.20, JudgmentAcknowledge},
		{"act", -0.35, JudgmentAct},
	}
	s := newTestScorer()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def := scenario.Definition{
				Key:       "custom",
				BaseShock: tt.shock,
				Targets:   []scenario.TargetShock{},
			}
			holdings := []domain.HoldingSnapshot{
				{Symbol: "X", Sector: "Industrials", Region: "Japan", Currency: "JPY",
					AssetClass: domain.AssetClassEquity, ValueJPY: 1000, Weight: 1.0},
			}
			impact := s.RunScenario(holdings, def)
			assert.Equal(t, tt.expect, impact.Judgment)
		})
	}
}

func TestRunAll_CoversCatalog(t *testing.T) {
	holdings := []domain.HoldingSnapshot{
		{Symbol: "AAPL", Sector: "Technology", Region: "US", Currency: "USD",
			AssetClass: domain.AssetClassEquity, ValueJPY: 1000, Weight: 1.0},
	}

	impacts := newTestScorer().RunAll(holdings)
	assert.Len(t, impacts, 8)
	for _, impact := range impacts {
		assert.Len(t, impact.Scores, 1)
		assert.NotEmpty(t, impact.ScenarioName)
	}
}

func TestSensitivity_Idempotent(t *testing.T) {
	def, _ := scenario.Get("us_recession")
	h := domain.HoldingSnapshot{
		Symbol: "AAPL", Region: "US", Sector: "Technology",
		Currency: "USD", AssetClass: domain.AssetClassEquity,
		ValueJPY: 1000, Weight: 1.0,
	}
	s := newTestScorer()

	first := s.Sensitivity(h, def)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, s.Sensitivity(h, def))
	}
}
