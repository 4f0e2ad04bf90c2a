package concentration

// RiskTier is the qualitative concentration verdict for a portfolio
type RiskTier string

const (
	RiskTierLow      RiskTier = "low"
	RiskTierModerate RiskTier = "moderate"
	RiskTierHigh     RiskTier = "high"
)

// Thresholds controls the HHI cutoffs used for risk tier classification.
// Strategy profiles may override them per call.
type Thresholds struct {
	Moderate float64 // HHI at or above this is at least moderate
	High     float64 // HHI above this is high
}

// DefaultThresholds mirror the standard strategy profile cutoffs
func DefaultThresholds() Thresholds {
	return Thresholds{Moderate: 0.15, High: 0.25}
}

// Report is the three-taxonomy concentration analysis of one portfolio.
// Breakdown maps hold cumulative weight per bucket and always sum to ~1.0
// over the holdings each taxonomy considers.
type Report struct {
	SectorHHI   float64 `json:"sector_hhi"`
	RegionHHI   float64 `json:"region_hhi"`
	CurrencyHHI float64 `json:"currency_hhi"`

	SectorBreakdown   map[string]float64 `json:"sector_breakdown"`
	RegionBreakdown   map[string]float64 `json:"region_breakdown"`
	CurrencyBreakdown map[string]float64 `json:"currency_breakdown"`

	MaxHHI     float64 `json:"max_hhi"`
	MaxHHIAxis string  `json:"max_hhi_axis"` // sector, region or currency

	// Multiplier scales downstream risk estimates for concentrated books
	Multiplier float64  `json:"concentration_multiplier"`
	RiskTier   RiskTier `json:"risk_tier"`
}
