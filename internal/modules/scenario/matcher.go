package scenario

import (
	"strings"

	"github.com/hozumi/portfolio-sentry/internal/domain"
)

// etfAssetClasses maps known ETF tickers to coarse asset-class buckets.
// Lookup is by upper-cased symbol; anything absent falls back to
// ETFBroadEquity rather than failing.
var etfAssetClasses = map[string]ETFClass{
	// Gold
	"GLD":    ETFGold,
	"IAU":    ETFGold,
	"GLDM":   ETFGold,
	"1540.T": ETFGold,
	// Long-duration bonds
	"TLT":    ETFLongBonds,
	"EDV":    ETFLongBonds,
	"VGLT":   ETFLongBonds,
	"2621.T": ETFLongBonds,
	// Dividend equity income
	"VYM":    ETFDividendEquity,
	"HDV":    ETFDividendEquity,
	"SPYD":   ETFDividendEquity,
	"1478.T": ETFDividendEquity,
	"1489.T": ETFDividendEquity,
}

// LookupETFClass returns the asset-class bucket for an ETF ticker.
// Unknown tickers get the broad-equity fallback, never a miss.
func LookupETFClass(symbol string) ETFClass {
	if class, ok := etfAssetClasses[strings.ToUpper(symbol)]; ok {
		return class
	}
	return ETFBroadEquity
}

// KnownETF reports whether a ticker is in the ETF classification table
func KnownETF(symbol string) bool {
	_, ok := etfAssetClasses[strings.ToUpper(symbol)]
	return ok
}

// exporterSectors lists the sectors treated as export-driven for
// Japan-listed names. Everything else domestic-listed is domestic-demand.
var exporterSectors = map[string]bool{
	"Consumer Cyclical": true,
	"Industrials":       true,
	"Technology":        true,
	"Basic Materials":   true,
}

// TradeProfile classifies a Japan-listed holding as "exporter" or
// "domestic". Foreign-listed holdings have no trade profile ("").
func TradeProfile(h domain.HoldingSnapshot) string {
	if h.Region != "Japan" || h.IsCash() {
		return ""
	}
	if exporterSectors[h.Sector] {
		return "exporter"
	}
	return "domestic"
}

// kindOrder fixes the matching priority. This ordering is a semantic
// contract: shocks are not summed, only the highest-priority bucket
// applies, so reordering changes scenario outcomes.
var kindOrder = []TargetKind{
	TargetRegion,
	TargetCurrency,
	TargetTradeProfile,
	TargetAssetClass,
	TargetSectorExcept,
	TargetSector,
}

// MatchTarget resolves which bucket of a scenario applies to a holding.
// Targets are evaluated in the fixed priority order; the first match wins
// and evaluation stops. Returns ok=false when no bucket matches.
func MatchTarget(h domain.HoldingSnapshot, def Definition) (TargetShock, bool) {
	for _, kind := range kindOrder {
		for _, target := range def.Targets {
			if target.Kind != kind {
				continue
			}
			if targetMatches(h, target) {
				return target, true
			}
		}
	}
	return TargetShock{}, false
}

func targetMatches(h domain.HoldingSnapshot, target TargetShock) bool {
	switch target.Kind {
	case TargetRegion:
		return !h.IsCash() && strings.EqualFold(h.Region, target.Value)
	case TargetCurrency:
		return strings.EqualFold(h.Currency, target.Value)
	case TargetTradeProfile:
		return TradeProfile(h) == target.Value
	case TargetAssetClass:
		return h.AssetClass == domain.AssetClassETF &&
			string(LookupETFClass(h.Symbol)) == target.Value
	case TargetSectorExcept:
		return !h.IsCash() && h.Sector != "" && !strings.EqualFold(h.Sector, target.Value)
	case TargetSector:
		return !h.IsCash() && strings.EqualFold(h.Sector, target.Value)
	default:
		return false
	}
}
