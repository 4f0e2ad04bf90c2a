package concentration

import (
	"errors"

	"github.com/rs/zerolog"

	"github.com/hozumi/portfolio-sentry/internal/domain"
)

// ErrEmptyPortfolio is returned when no holdings are available for analysis.
// An empty book has no defined HHI; reporting 0 would read as "perfectly
// diversified", so the caller gets an explicit error instead.
var ErrEmptyPortfolio = errors.New("concentration: empty portfolio, insufficient data")

const (
	defaultSector   = "Unknown"
	defaultRegion   = "Unknown"
	defaultCurrency = "Unknown"
)

// ComputeHHI returns the Herfindahl-Hirschman Index of a weight
// distribution: the sum of squared fractional weights. For weights summing
// to 1.0 the result is in [1/n, 1].
func ComputeHHI(weights []float64) float64 {
	hhi := 0.0
	for _, w := range weights {
		hhi += w * w
	}
	return hhi
}

// Multiplier maps a max-axis HHI to a risk scaling factor.
// Piecewise linear: 1.0 below 0.25, 1.3 at 0.50, 1.6 at 1.00, capped there.
func Multiplier(hhi float64) float64 {
	switch {
	case hhi < 0.25:
		return 1.0
	case hhi <= 0.50:
		return 1.0 + (hhi-0.25)/0.25*0.3
	case hhi <= 1.0:
		return 1.3 + (hhi-0.50)/0.50*0.3
	default:
		return 1.6
	}
}

// Analyzer computes concentration reports over holding snapshots
type Analyzer struct {
	log zerolog.Logger
}

// NewAnalyzer creates a new concentration analyzer
func NewAnalyzer(log zerolog.Logger) *Analyzer {
	return &Analyzer{
		log: log.With().Str("service", "concentration").Logger(),
	}
}

// Analyze groups the holdings by sector, region and currency and computes
// an HHI per taxonomy. Cash holdings are excluded from the sector and
// region axes but contribute to the currency axis.
//
// Weights are re-normalized per taxonomy so each breakdown sums to 1.0
// over the holdings that taxonomy considers.
func (a *Analyzer) Analyze(holdings []domain.HoldingSnapshot, thresholds Thresholds) (*Report, error) {
	if len(holdings) == 0 {
		return nil, ErrEmptyPortfolio
	}

	sector := newBucketSet()
	region := newBucketSet()
	currency := newBucketSet()

	for _, h := range holdings {
		if h.ValueJPY <= 0 {
			continue
		}
		if !h.IsCash() {
			sector.add(labelOr(h.Sector, defaultSector), h.ValueJPY)
			region.add(labelOr(h.Region, defaultRegion), h.ValueJPY)
		}
		currency.add(labelOr(h.Currency, defaultCurrency), h.ValueJPY)
	}

	if sector.total <= 0 && currency.total <= 0 {
		return nil, ErrEmptyPortfolio
	}

	report := &Report{
		SectorBreakdown:   sector.weights(),
		RegionBreakdown:   region.weights(),
		CurrencyBreakdown: currency.weights(),
	}
	report.SectorHHI = hhiOf(report.SectorBreakdown)
	report.RegionHHI = hhiOf(report.RegionBreakdown)
	report.CurrencyHHI = hhiOf(report.CurrencyBreakdown)

	report.MaxHHI, report.MaxHHIAxis = maxAxis(report)
	report.Multiplier = Multiplier(report.MaxHHI)
	report.RiskTier = classify(report.MaxHHI, thresholds)

	a.log.Debug().
		Float64("sector_hhi", report.SectorHHI).
		Float64("region_hhi", report.RegionHHI).
		Float64("currency_hhi", report.CurrencyHHI).
		Str("risk_tier", string(report.RiskTier)).
		Msg("Concentration analysis complete")

	return report, nil
}

// classify maps an HHI value to a risk tier using the supplied thresholds
func classify(hhi float64, t Thresholds) RiskTier {
	switch {
	case hhi > t.High:
		return RiskTierHigh
	case hhi >= t.Moderate:
		return RiskTierModerate
	default:
		return RiskTierLow
	}
}

func maxAxis(r *Report) (float64, string) {
	maxHHI, axis := r.SectorHHI, "sector"
	if r.RegionHHI > maxHHI {
		maxHHI, axis = r.RegionHHI, "region"
	}
	if r.CurrencyHHI > maxHHI {
		maxHHI, axis = r.CurrencyHHI, "currency"
	}
	return maxHHI, axis
}

func hhiOf(breakdown map[string]float64) float64 {
	weights := make([]float64, 0, len(breakdown))
	for _, w := range breakdown {
		weights = append(weights, w)
	}
	return ComputeHHI(weights)
}

func labelOr(label, fallback string) string {
	if label == "" {
		return fallback
	}
	return label
}

// bucketSet accumulates value per bucket for one taxonomy
type bucketSet struct {
	values map[string]float64
	total  float64
}

func newBucketSet() *bucketSet {
	return &bucketSet{values: make(map[string]float64)}
}

func (b *bucketSet) add(bucket string, value float64) {
	b.values[bucket] += value
	b.total += value
}

func (b *bucketSet) weights() map[string]float64 {
	weights := make(map[string]float64, len(b.values))
	if b.total <= 0 {
		return weights
	}
	for bucket, value := range b.values {
		weights[bucket] = value / b.total
	}
	return weights
}
