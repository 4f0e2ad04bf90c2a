package shock

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/hozumi/portfolio-sentry/internal/domain"
	"github.com/hozumi/portfolio-sentry/internal/modules/scenario"
)

// Judgment is the portfolio-level verdict for one scenario run
type Judgment string

const (
	JudgmentContinue    Judgment = "continue"    // impact milder than -15%
	JudgmentAcknowledge Judgment = "acknowledge" // -15% .. -30%
	JudgmentAct         Judgment = "act"         // -30% or worse
)

// Score is the sensitivity of one holding under one scenario
type Score struct {
	Symbol    string  `json:"symbol"`
	Scenario  string  `json:"scenario"`
	Impact    float64 `json:"impact"` // signed fraction, e.g. -0.08
	ImpactJPY float64 `json:"impact_jpy"`
	Weight    float64 `json:"weight"`
	Bucket    string  `json:"bucket"` // matched bucket label, or "baseline"
	Reason    string  `json:"reason"`
}

// PortfolioImpact aggregates per-holding scores into a value-weighted
// portfolio shock.
type PortfolioImpact struct {
	ScenarioKey   string   `json:"scenario_key"`
	ScenarioName  string   `json:"scenario_name"`
	Trigger       string   `json:"trigger"`
	Scores        []Score  `json:"scores"`
	Aggregate     float64  `json:"aggregate"` // value-weighted sum
	AggregateJPY  float64  `json:"aggregate_jpy"`
	Judgment      Judgment `json:"judgment"`
	OffsetFactors []string `json:"offset_factors,omitempty"`
	TimeHorizon   string   `json:"time_horizon,omitempty"`
}

// Scorer maps holdings to scenario-specific sensitivities
type Scorer struct {
	log zerolog.Logger
}

// NewScorer creates a new shock sensitivity scorer
func NewScorer(log zerolog.Logger) *Scorer {
	return &Scorer{log: log.With().Str("service", "shock").Logger()}
}

// Sensitivity returns the signed sensitivity of a holding under a
// scenario. Table-driven: the matched bucket's shock applies; holdings no
// bucket matches take the scenario baseline, which is never zero, so
// nothing reads as falsely immune. The one genuine exception is cash in
// the base currency, which cannot lose JPY value in JPY terms.
func (s *Scorer) Sensitivity(h domain.HoldingSnapshot, def scenario.Definition) Score {
	score := Score{
		Symbol:   h.Symbol,
		Scenario: def.Key,
		Weight:   h.Weight,
	}

	if target, ok := scenario.MatchTarget(h, def); ok {
		score.Impact = target.Shock
		score.Bucket = target.Label
		score.Reason = fmt.Sprintf("%s bucket %q: %+.1f%%", target.Kind, target.Value, target.Shock*100)
	} else if h.IsCash() && strings.EqualFold(h.Currency, "JPY") {
		score.Impact = 0
		score.Bucket = "base-currency cash"
		score.Reason = "JPY cash holds its JPY value"
	} else {
		score.Impact = def.BaseShock
		score.Bucket = "baseline"
		score.Reason = fmt.Sprintf("no bucket matched, scenario baseline %+.1f%%", def.BaseShock*100)
	}

	score.ImpactJPY = h.ValueJPY * score.Impact
	return score
}

// RunScenario scores every holding and aggregates the value-weighted
// portfolio impact.
func (s *Scorer) RunScenario(holdings []domain.HoldingSnapshot, def scenario.Definition) *PortfolioImpact {
	impact := &PortfolioImpact{
		ScenarioKey:   def.Key,
		ScenarioName:  def.Name,
		Trigger:       def.Trigger,
		OffsetFactors: def.OffsetFactors,
		TimeHorizon:   def.TimeHorizon,
	}

	for _, h := range holdings {
		score := s.Sensitivity(h, def)
		impact.Scores = append(impact.Scores, score)
		impact.Aggregate += score.Impact * h.Weight
		impact.AggregateJPY += score.ImpactJPY
	}

	impact.Judgment = judge(impact.Aggregate)

	s.log.Debug().
		Str("scenario", def.Key).
		Float64("aggregate", impact.Aggregate).
		Str("judgment", string(impact.Judgment)).
		Msg("Scenario run complete")

	return impact
}

// RunAll evaluates the full scenario catalog against the holdings
func (s *Scorer) RunAll(holdings []domain.HoldingSnapshot) []*PortfolioImpact {
	defs := scenario.All()
	impacts := make([]*PortfolioImpact, 0, len(defs))
	for _, def := range defs {
		impacts = append(impacts, s.RunScenario(holdings, def))
	}
	return impacts
}

func judge(aggregate float64) Judgment {
	switch {
	case aggregate <= -0.30:
		return JudgmentAct
	case aggregate <= -0.15:
		return JudgmentAcknowledge
	default:
		return JudgmentContinue
	}
}
