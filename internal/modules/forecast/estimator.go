package forecast

import (
	"math"
	"sort"

	"github.com/rs/zerolog"

	"github.com/hozumi/portfolio-sentry/internal/domain"
)

// Estimation methods, in order of preference
const (
	MethodAnalyst    = "analyst"
	MethodHistorical = "historical"
	MethodCash       = "cash"
	MethodNoData     = "no_data"
)

const (
	// minHistoryDays guards the historical CAGR against noise from a few
	// weeks of prices.
	minHistoryDays = 126 // roughly half a trading year

	tradingDaysPerYear = 252

	// historicalSpread widens the single CAGR number into an
	// optimistic/pessimistic band.
	historicalSpread = 0.10

	// capReturn clips runaway CAGR extrapolations from short, hot histories
	capReturn = 1.0
)

// Estimator derives three-scenario expected annual returns per symbol.
// Analyst price targets win when present; otherwise the trailing CAGR of
// the price history fills in.
type Estimator struct {
	log zerolog.Logger
}

// NewEstimator creates a new return estimator
func NewEstimator(log zerolog.Logger) *Estimator {
	return &Estimator{log: log.With().Str("service", "forecast").Logger()}
}

// Estimate produces the per-symbol estimate from whatever inputs exist.
// Cash earns nothing. A symbol with neither analyst targets nor enough
// history gets MethodNoData and nil returns, never a fabricated number.
func (e *Estimator) Estimate(symbol string, fund *domain.Fundamentals, history []domain.PricePoint) domain.ReturnEstimate {
	if domain.IsCashSymbol(symbol) {
		zero := 0.0
		return domain.ReturnEstimate{
			Symbol: symbol, Method: MethodCash,
			Base: &zero, Optimistic: &zero, Pessimistic: &zero,
		}
	}

	if est, ok := e.fromAnalystTargets(symbol, fund); ok {
		return est
	}
	if est, ok := e.fromHistory(symbol, history); ok {
		return est
	}

	return domain.ReturnEstimate{Symbol: symbol, Method: MethodNoData}
}

// EstimateAll runs Estimate over a whole book, reporting the symbols
// that ended up with no estimate.
func (e *Estimator) EstimateAll(
	symbols []string,
	fundamentals map[string]*domain.Fundamentals,
	histories map[string][]domain.PricePoint,
) (map[string]domain.ReturnEstimate, []domain.DataGap) {
	estimates := make(map[string]domain.ReturnEstimate, len(symbols))
	var gaps []domain.DataGap

	sorted := make([]string, len(symbols))
	copy(sorted, symbols)
	sort.Strings(sorted)

	for _, symbol := range sorted {
		est := e.Estimate(symbol, fundamentals[symbol], histories[symbol])
		estimates[symbol] = est
		if est.Method == MethodNoData {
			gaps = append(gaps, domain.DataGap{Symbol: symbol, Reason: "no analyst targets and insufficient price history"})
		}
	}

	e.log.Debug().
		Int("symbols", len(estimates)).
		Int("gaps", len(gaps)).
		Msg("Return estimates computed")

	return estimates, gaps
}

// fromAnalystTargets maps the mean/high/low price targets onto
// base/optimistic/pessimistic returns relative to the current price.
func (e *Estimator) fromAnalystTargets(symbol string, fund *domain.Fundamentals) (domain.ReturnEstimate, bool) {
	if fund == nil || fund.CurrentPrice <= 0 || fund.TargetMeanPrice <= 0 {
		return domain.ReturnEstimate{}, false
	}

	est := domain.ReturnEstimate{Symbol: symbol, Method: MethodAnalyst}
	base := fund.TargetMeanPrice/fund.CurrentPrice - 1
	est.Base = &base

	if fund.TargetHighPrice > 0 {
		opt := fund.TargetHighPrice/fund.CurrentPrice - 1
		est.Optimistic = &opt
	}
	if fund.TargetLowPrice > 0 {
		pess := fund.TargetLowPrice/fund.CurrentPrice - 1
		est.Pessimistic = &pess
	}
	return est, true
}

// fromHistory annualizes the trailing price trajectory into a CAGR and
// brackets it with a fixed spread.
func (e *Estimator) fromHistory(symbol string, history []domain.PricePoint) (domain.ReturnEstimate, bool) {
	closes := sortedCloses(history)
	if len(closes) < minHistoryDays {
		return domain.ReturnEstimate{}, false
	}

	first, last := closes[0], closes[len(closes)-1]
	if first <= 0 || last <= 0 {
		return domain.ReturnEstimate{}, false
	}

	years := float64(len(closes)-1) / tradingDaysPerYear
	cagr := math.Pow(last/first, 1/years) - 1
	if cagr > capReturn {
		cagr = capReturn
	}
	if cagr < -capReturn {
		cagr = -capReturn
	}

	base := cagr
	opt := cagr + historicalSpread
	pess := cagr - historicalSpread
	return domain.ReturnEstimate{
		Symbol: symbol, Method: MethodHistorical,
		Base: &base, Optimistic: &opt, Pessimistic: &pess,
	}, true
}

func sortedCloses(history []domain.PricePoint) []float64 {
	sorted := make([]domain.PricePoint, len(history))
	copy(sorted, history)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Date < sorted[j].Date })

	closes := make([]float64, 0, len(sorted))
	for _, p := range sorted {
		if p.Close > 0 {
			closes = append(closes, p.Close)
		}
	}
	return closes
}
