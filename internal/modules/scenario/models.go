package scenario

// TargetKind identifies which taxonomy a target shock applies to.
// Matching priority is fixed: region, then currency, then the
// exporter/domestic classification, then ETF asset class, then the
// sector-exclusion rule, then plain sector. Only the first matching
// bucket applies; bucket shocks are never summed.
type TargetKind int

const (
	TargetRegion TargetKind = iota + 1
	TargetCurrency
	TargetTradeProfile // exporter vs domestic-demand classification
	TargetAssetClass   // ETF asset-class table lookup
	TargetSectorExcept // matches any holding NOT in the named sector
	TargetSector
)

func (k TargetKind) String() string {
	switch k {
	case TargetRegion:
		return "region"
	case TargetCurrency:
		return "currency"
	case TargetTradeProfile:
		return "trade_profile"
	case TargetAssetClass:
		return "asset_class"
	case TargetSectorExcept:
		return "sector_except"
	case TargetSector:
		return "sector"
	default:
		return "unknown"
	}
}

// TargetShock is one (predicate, shock) pair inside a scenario
type TargetShock struct {
	Kind  TargetKind `json:"kind"`
	Value string     `json:"value"` // bucket name the predicate matches
	Shock float64    `json:"shock"` // signed fractional impact, e.g. -0.12
	Label string     `json:"label"` // human-readable bucket description
}

// Definition is one macro scenario. Targets are authored in match-priority
// order; BaseShock applies to holdings no target matches and is never zero
// so that nothing reads as falsely immune.
type Definition struct {
	Key           string        `json:"key"`
	Name          string        `json:"name"`
	Trigger       string        `json:"trigger"`
	BaseShock     float64       `json:"base_shock"`
	Targets       []TargetShock `json:"targets"`
	Aliases       []string      `json:"aliases"`
	OffsetFactors []string      `json:"offset_factors,omitempty"`
	TimeHorizon   string        `json:"time_horizon,omitempty"`
}

// ETFClass is a coarse asset-class bucket for known ETF tickers
type ETFClass string

const (
	ETFGold           ETFClass = "gold"
	ETFLongBonds      ETFClass = "long-duration-bonds"
	ETFDividendEquity ETFClass = "dividend-equity-income"
	ETFBroadEquity    ETFClass = "broad-equity" // fallback for unknown tickers
)
