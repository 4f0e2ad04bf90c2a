package analysis

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/hozumi/portfolio-sentry/internal/domain"
	"github.com/hozumi/portfolio-sentry/internal/modules/concentration"
	"github.com/hozumi/portfolio-sentry/internal/modules/correlation"
	"github.com/hozumi/portfolio-sentry/internal/modules/forecast"
	"github.com/hozumi/portfolio-sentry/internal/modules/health"
	"github.com/hozumi/portfolio-sentry/internal/modules/portfolio"
	"github.com/hozumi/portfolio-sentry/internal/modules/rebalance"
	"github.com/hozumi/portfolio-sentry/internal/modules/scenario"
	"github.com/hozumi/portfolio-sentry/internal/modules/shock"
)

// Service ties the snapshot builder to the analytics engines: every
// operation starts from a freshly valued portfolio and degrades
// per-symbol instead of failing whole when some input is missing.
type Service struct {
	snapshots   *portfolio.Service
	market      domain.MarketDataProvider
	analyzer    *concentration.Analyzer
	engine      *correlation.Engine
	checker     *health.Checker
	estimator   *forecast.Estimator
	scorer      *shock.Scorer
	rebalancer  *rebalance.Service
	historyDays int
	log         zerolog.Logger
}

// Config holds the collaborators for the analysis service
type Config struct {
	Snapshots   *portfolio.Service
	Market      domain.MarketDataProvider
	HistoryDays int
	Log         zerolog.Logger
}

// New creates the analysis service with default engine settings
func New(cfg Config) *Service {
	log := cfg.Log
	return &Service{
		snapshots:   cfg.Snapshots,
		market:      cfg.Market,
		analyzer:    concentration.NewAnalyzer(log),
		engine:      correlation.NewEngine(correlation.Config{}, log),
		checker:     health.NewChecker(log),
		estimator:   forecast.NewEstimator(log),
		scorer:      shock.NewScorer(log),
		rebalancer:  rebalance.NewService(concentration.NewAnalyzer(log), log),
		historyDays: cfg.HistoryDays,
		log:         log.With().Str("service", "analysis").Logger(),
	}
}

// ConcentrationReport is the HHI report plus the snapshot gaps behind it
type ConcentrationReport struct {
	*concentration.Report
	TotalValueJPY float64          `json:"total_value_jpy"`
	DataGaps      []domain.DataGap `json:"data_gaps,omitempty"`
}

// Concentration values the portfolio and computes HHI across the three
// taxonomy axes.
func (s *Service) Concentration() (*ConcentrationReport, error) {
	snapshot, err := s.snapshots.BuildSnapshot()
	if err != nil {
		return nil, err
	}
	report, err := s.analyzer.Analyze(snapshot.Holdings, concentration.DefaultThresholds())
	if err != nil {
		return nil, err
	}
	return &ConcentrationReport{
		Report:        report,
		TotalValueJPY: snapshot.TotalValueJPY,
		DataGaps:      snapshot.DataGaps,
	}, nil
}

// Correlation computes pairwise return correlations and factor clusters
// over the held symbols' stored price histories.
func (s *Service) Correlation() (*correlation.Result, error) {
	snapshot, err := s.snapshots.BuildSnapshot()
	if err != nil {
		return nil, err
	}
	return s.engine.Analyze(s.histories(snapshot.Holdings)), nil
}

// Health runs the technical health check over every held symbol
func (s *Service) Health() (map[string]health.Report, error) {
	snapshot, err := s.snapshots.BuildSnapshot()
	if err != nil {
		return nil, err
	}
	return s.checker.CheckAll(s.histories(snapshot.Holdings)), nil
}

// Estimates computes per-symbol expected returns
func (s *Service) Estimates() (map[string]domain.ReturnEstimate, []domain.DataGap, error) {
	snapshot, err := s.snapshots.BuildSnapshot()
	if err != nil {
		return nil, nil, err
	}
	estimates, gaps := s.estimator.EstimateAll(
		symbolsOf(snapshot.Holdings),
		s.fundamentals(snapshot.Holdings),
		s.histories(snapshot.Holdings),
	)
	return estimates, gaps, nil
}

// Stress runs one scenario against the current portfolio. The query is
// resolved case-insensitively through aliases and fuzzy matching.
func (s *Service) Stress(query string) (*shock.PortfolioImpact, error) {
	def, ok := scenario.Resolve(query)
	if !ok {
		return nil, fmt.Errorf("unknown scenario %q", query)
	}
	snapshot, err := s.snapshots.BuildSnapshot()
	if err != nil {
		return nil, err
	}
	return s.scorer.RunScenario(snapshot.Holdings, def), nil
}

// StressAll runs every scenario in the library
func (s *Service) StressAll() ([]*shock.PortfolioImpact, error) {
	snapshot, err := s.snapshots.BuildSnapshot()
	if err != nil {
		return nil, err
	}
	return s.scorer.RunAll(snapshot.Holdings), nil
}

// Propose assembles the full diagnostic picture and runs the constrained
// rebalancer over it.
func (s *Service) Propose(opts rebalance.Options) (*rebalance.Proposal, error) {
	snapshot, err := s.snapshots.BuildSnapshot()
	if err != nil {
		return nil, err
	}

	histories := s.histories(snapshot.Holdings)
	reports := s.checker.CheckAll(histories)
	estimates, _ := s.estimator.EstimateAll(
		symbolsOf(snapshot.Holdings),
		s.fundamentals(snapshot.Holdings),
		histories,
	)

	inputs := rebalance.Inputs{
		Holdings:      snapshot.Holdings,
		TotalValueJPY: snapshot.TotalValueJPY,
		Health:        health.Statuses(reports),
		Estimates:     estimates,
		Correlation:   s.engine.Analyze(histories),
	}
	return s.rebalancer.Propose(inputs, opts)
}

// histories loads stored price history for every non-cash holding.
// Failures degrade to empty histories; the engines treat those as
// insufficient data.
func (s *Service) histories(holdings []domain.HoldingSnapshot) map[string][]domain.PricePoint {
	histories := make(map[string][]domain.PricePoint, len(holdings))
	for _, h := range holdings {
		if h.IsCash() {
			continue
		}
		points, err := s.market.GetPriceHistory(h.Symbol, s.historyDays)
		if err != nil {
			s.log.Warn().Err(err).Str("symbol", h.Symbol).Msg("No price history")
			continue
		}
		histories[h.Symbol] = points
	}
	return histories
}

func (s *Service) fundamentals(holdings []domain.HoldingSnapshot) map[string]*domain.Fundamentals {
	funds := make(map[string]*domain.Fundamentals, len(holdings))
	for _, h := range holdings {
		if h.IsCash() {
			continue
		}
		fund, err := s.market.GetFundamentals(h.Symbol)
		if err != nil {
			continue
		}
		funds[h.Symbol] = fund
	}
	return funds
}

func symbolsOf(holdings []domain.HoldingSnapshot) []string {
	symbols := make([]string, 0, len(holdings))
	for _, h := range holdings {
		symbols = append(symbols, h.Symbol)
	}
	return symbols
}
