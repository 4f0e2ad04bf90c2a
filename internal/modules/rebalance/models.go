package rebalance

import (
	"github.com/hozumi/portfolio-sentry/internal/domain"
	"github.com/hozumi/portfolio-sentry/internal/modules/concentration"
	"github.com/hozumi/portfolio-sentry/internal/modules/correlation"
)

// ActionType is the kind of rebalancing action recommended
type ActionType string

const (
	ActionSell     ActionType = "sell"
	ActionReduce   ActionType = "reduce"
	ActionIncrease ActionType = "increase"
)

// Action priorities fix the output ordering: exits first, then cap
// restorations, then redeployment of the freed cash.
const (
	priorityHealthExit    = 1
	priorityNegativeView  = 2
	prioritySingleRatio   = 3
	priorityBucketHHI     = 4
	priorityCorrCluster   = 5
	priorityCallerHint    = 6
	priorityIncrease      = 7
)

// Action is one advisory buy/sell/reduce recommendation. Actions never
// mutate the ledger; execution is the caller's business.
type Action struct {
	Type     ActionType `json:"type"`
	Symbol   string     `json:"symbol"`
	Name     string     `json:"name,omitempty"`
	Ratio    float64    `json:"ratio,omitempty"`      // fraction of the position to offload (sell=1.0)
	ValueJPY float64    `json:"value_jpy,omitempty"`  // proceeds for sell/reduce
	AmountJPY float64   `json:"amount_jpy,omitempty"` // allocation for increase
	Reason   string     `json:"reason"`
	Constraint string   `json:"constraint"` // which cap or flag this addresses
	Priority int        `json:"priority"`
}

// CapInfeasibility reports a bucket cap that cannot be restored by
// reducing positions in the bucket (e.g. the rest of the taxonomy already
// exceeds the cap on its own).
type CapInfeasibility struct {
	Axis   string  `json:"axis"` // sector, region or currency
	Bucket string  `json:"bucket"`
	Cap    float64 `json:"cap"`
	HHI    float64 `json:"hhi"`
	Reason string  `json:"reason"`
}

// Metrics summarizes the portfolio before or after the proposed actions
type Metrics struct {
	BaseReturn  float64 `json:"base_return"`
	SectorHHI   float64 `json:"sector_hhi"`
	RegionHHI   float64 `json:"region_hhi"`
	CurrencyHHI float64 `json:"currency_hhi"`
}

// Inputs carries everything one evaluation consumes. Health statuses and
// return estimates come from external collaborators and are used
// verbatim, never recomputed here.
type Inputs struct {
	Holdings      []domain.HoldingSnapshot
	TotalValueJPY float64
	Health        map[string]domain.HealthStatus
	Estimates     map[string]domain.ReturnEstimate
	Concentration *concentration.Report // optional; computed when nil
	Correlation   *correlation.Result   // optional; cluster checks skipped when nil
}

// Options are the caller-supplied knobs for one evaluation
type Options struct {
	Strategy         string
	Overrides        Overrides
	ReduceSector     string
	ReduceCurrency   string
	AdditionalCash   float64
	MinDividendYield *float64
}

// Proposal is the ordered action plan plus the before/after projection
type Proposal struct {
	Strategy    string             `json:"strategy"`
	Constraints Constraints        `json:"constraints"`
	Actions     []Action           `json:"actions"`
	Before      Metrics            `json:"before"`
	After       Metrics            `json:"after"`
	// AfterReport is the projected concentration report assuming all
	// actions execute at current prices; advisory arithmetic only.
	AfterReport       *concentration.Report `json:"after_report,omitempty"`
	FreedCashJPY      float64               `json:"freed_cash_jpy"`
	AdditionalCashJPY float64               `json:"additional_cash_jpy"`
	DataGaps          []domain.DataGap      `json:"data_gaps,omitempty"`
	Infeasible        []CapInfeasibility    `json:"infeasible,omitempty"`
}
