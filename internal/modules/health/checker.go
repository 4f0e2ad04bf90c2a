package health

import (
	"sort"

	"github.com/markcheno/go-talib"
	"github.com/rs/zerolog"

	"github.com/hozumi/portfolio-sentry/internal/domain"
	"github.com/hozumi/portfolio-sentry/pkg/formulas"
)

// Moving-average windows and the signal thresholds behind the levels.
const (
	shortWindow = 50
	longWindow  = 200
	rsiPeriod   = 14

	rsiOverbought = 70.0
	rsiOversold   = 30.0

	warnDrawdown = 0.15
	exitDrawdown = 0.30
)

// Report is the full technical picture for one symbol. The embedded
// status is what downstream consumers act on; the indicator values are
// for display and debugging.
type Report struct {
	domain.HealthStatus

	Close           float64  `json:"close"`
	SMA50           *float64 `json:"sma_50,omitempty"`
	SMA200          *float64 `json:"sma_200,omitempty"`
	RSI14           *float64 `json:"rsi_14,omitempty"`
	MaxDrawdown     *float64 `json:"max_drawdown,omitempty"`
	CurrentDrawdown *float64 `json:"current_drawdown,omitempty"`
	Volatility      *float64 `json:"volatility,omitempty"`
	Sharpe          *float64 `json:"sharpe,omitempty"`
	Observations    int      `json:"observations"`
}

// Checker derives per-symbol health levels from daily closing prices.
// Pure computation over the history it is handed; it never fetches.
type Checker struct {
	log zerolog.Logger
}

// NewChecker creates a new health checker
func NewChecker(log zerolog.Logger) *Checker {
	return &Checker{log: log.With().Str("service", "health").Logger()}
}

// Check evaluates one symbol's price history.
//
// EXIT fires on a sustained downtrend (close below the 200-day average
// while the 50-day sits below it too) or a drawdown past 30% from peak.
// WARNING flags early deterioration: close under the 50-day average, RSI
// outside [30,70], or a drawdown past 15%. Histories too short for the
// long average degrade to the signals that are computable.
func (c *Checker) Check(symbol string, history []domain.PricePoint) Report {
	report := Report{
		HealthStatus: domain.HealthStatus{Symbol: symbol, Level: domain.HealthOK},
	}

	closes := closesOf(history)
	report.Observations = len(closes)
	if len(closes) == 0 {
		report.Level = domain.HealthWarning
		report.Reasons = append(report.Reasons, "no price history")
		return report
	}
	report.Close = closes[len(closes)-1]

	report.RSI14 = formulas.CalculateRSI(closes, rsiPeriod)
	if dd := formulas.CalculateDrawdownMetrics(closes); dd != nil {
		report.MaxDrawdown = &dd.MaxDrawdown
		report.CurrentDrawdown = &dd.CurrentDrawdown
	}
	report.Volatility = formulas.CalculateVolatility(closes)
	report.Sharpe = formulas.CalculateSharpeFromPrices(closes, 0)
	report.SMA50 = lastSMA(closes, shortWindow)
	report.SMA200 = lastSMA(closes, longWindow)

	var warnings, exits []string

	if report.SMA200 != nil && report.Close < *report.SMA200 {
		if report.SMA50 != nil && *report.SMA50 < *report.SMA200 {
			exits = append(exits, "close below 200-day average in a confirmed downtrend")
		} else {
			warnings = append(warnings, "close below 200-day average")
		}
	}
	if report.SMA50 != nil && report.Close < *report.SMA50 {
		warnings = append(warnings, "close below 50-day average")
	}
	if report.RSI14 != nil {
		if *report.RSI14 >= rsiOverbought {
			warnings = append(warnings, "RSI overbought")
		} else if *report.RSI14 <= rsiOversold {
			warnings = append(warnings, "RSI oversold")
		}
	}
	if report.CurrentDrawdown != nil {
		if *report.CurrentDrawdown >= exitDrawdown {
			exits = append(exits, "drawdown past 30% from peak")
		} else if *report.CurrentDrawdown >= warnDrawdown {
			warnings = append(warnings, "drawdown past 15% from peak")
		}
	}
	if report.SMA200 == nil {
		warnings = append(warnings, "insufficient history for the 200-day average")
	}

	switch {
	case len(exits) > 0:
		report.Level = domain.HealthExit
		report.Reasons = append(exits, warnings...)
	case len(warnings) > 0:
		report.Level = domain.HealthWarning
		report.Reasons = warnings
	}

	return report
}

// CheckAll evaluates every symbol in the batch. Cash pseudo-positions
// are always healthy and skipped.
func (c *Checker) CheckAll(histories map[string][]domain.PricePoint) map[string]Report {
	reports := make(map[string]Report, len(histories))
	for symbol, history := range histories {
		if domain.IsCashSymbol(symbol) {
			continue
		}
		reports[symbol] = c.Check(symbol, history)
	}

	levels := map[domain.HealthLevel]int{}
	for _, r := range reports {
		levels[r.Level]++
	}
	c.log.Info().
		Int("symbols", len(reports)).
		Int("warning", levels[domain.HealthWarning]).
		Int("exit", levels[domain.HealthExit]).
		Msg("Health check completed")

	return reports
}

// Statuses strips the indicator detail, leaving only the levels the
// rebalancer consumes.
func Statuses(reports map[string]Report) map[string]domain.HealthStatus {
	statuses := make(map[string]domain.HealthStatus, len(reports))
	for symbol, r := range reports {
		statuses[symbol] = r.HealthStatus
	}
	return statuses
}

func closesOf(history []domain.PricePoint) []float64 {
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

func lastSMA(closes []float64, window int) *float64 {
	if len(closes) < window {
		return nil
	}
	sma := talib.Sma(closes, window)
	if len(sma) == 0 {
		return nil
	}
	v := sma[len(sma)-1]
	if v != v {
		return nil
	}
	return &v
}
