package rebalance

import (
	"errors"
	"fmt"
)

// ErrInvalidConstraint rejects a call whose caller-supplied caps are
// outside (0,1] or conflict with each other. The evaluation is aborted;
// caps are never silently clamped.
var ErrInvalidConstraint = errors.New("rebalance: invalid constraint")

// Constraints are the effective caps for one evaluation
type Constraints struct {
	MaxSingleRatio   float64 `json:"max_single_ratio"`
	MaxSectorHHI     float64 `json:"max_sector_hhi"`
	MaxRegionHHI     float64 `json:"max_region_hhi"`
	MaxCurrencyHHI   float64 `json:"max_currency_hhi,omitempty"` // 0 disables the currency axis cap
	MaxCorrPairRatio float64 `json:"max_corr_pair_ratio"`
	CorrThreshold    float64 `json:"corr_threshold"`
}

// Strategy profile names
const (
	StrategyDefensive  = "defensive"
	StrategyBalanced   = "balanced"
	StrategyAggressive = "aggressive"
)

// profiles enumerate the fixed strategy presets. The region cap defaults
// to 0.30 for every profile; callers override per call when they need a
// tighter or looser book.
var profiles = map[string]Constraints{
	StrategyDefensive: {
		MaxSingleRatio:   0.10,
		MaxSectorHHI:     0.20,
		MaxRegionHHI:     0.30,
		MaxCorrPairRatio: 0.25,
		CorrThreshold:    0.7,
	},
	StrategyBalanced: {
		MaxSingleRatio:   0.15,
		MaxSectorHHI:     0.25,
		MaxRegionHHI:     0.30,
		MaxCorrPairRatio: 0.30,
		CorrThreshold:    0.7,
	},
	StrategyAggressive: {
		MaxSingleRatio:   0.25,
		MaxSectorHHI:     0.35,
		MaxRegionHHI:     0.30,
		MaxCorrPairRatio: 0.40,
		CorrThreshold:    0.7,
	},
}

// Overrides are optional per-call cap replacements; nil means "use the
// profile value".
type Overrides struct {
	MaxSingleRatio   *float64
	MaxSectorHHI     *float64
	MaxRegionHHI     *float64
	MaxCurrencyHHI   *float64
	MaxCorrPairRatio *float64
}

// BuildConstraints resolves a strategy name plus explicit overrides into
// validated constraints. Unknown strategies fall back to balanced, the
// way an absent strategy does.
func BuildConstraints(strategy string, overrides Overrides) (Constraints, error) {
	c, ok := profiles[strategy]
	if !ok {
		c = profiles[StrategyBalanced]
	}

	apply := func(dst *float64, src *float64) {
		if src != nil {
			*dst = *src
		}
	}
	apply(&c.MaxSingleRatio, overrides.MaxSingleRatio)
	apply(&c.MaxSectorHHI, overrides.MaxSectorHHI)
	apply(&c.MaxRegionHHI, overrides.MaxRegionHHI)
	apply(&c.MaxCurrencyHHI, overrides.MaxCurrencyHHI)
	apply(&c.MaxCorrPairRatio, overrides.MaxCorrPairRatio)

	if err := c.validate(); err != nil {
		return Constraints{}, err
	}
	return c, nil
}

func (c Constraints) validate() error {
	checks := []struct {
		name     string
		value    float64
		optional bool
	}{
		{"max_single_ratio", c.MaxSingleRatio, false},
		{"max_sector_hhi", c.MaxSectorHHI, false},
		{"max_region_hhi", c.MaxRegionHHI, false},
		{"max_currency_hhi", c.MaxCurrencyHHI, true},
		{"max_corr_pair_ratio", c.MaxCorrPairRatio, false},
	}
	for _, check := range checks {
		if check.optional && check.value == 0 {
			continue
		}
		if check.value <= 0 || check.value > 1 {
			return fmt.Errorf("%w: %s=%.4f outside (0,1]", ErrInvalidConstraint, check.name, check.value)
		}
	}

	// A single position allowed at MaxSingleRatio must also be allowed to
	// sit inside a correlated cluster; otherwise the caps contradict.
	if c.MaxSingleRatio > c.MaxCorrPairRatio {
		return fmt.Errorf("%w: max_single_ratio=%.2f exceeds max_corr_pair_ratio=%.2f",
			ErrInvalidConstraint, c.MaxSingleRatio, c.MaxCorrPairRatio)
	}
	return nil
}
