package portfolio

import (
	"errors"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/hozumi/portfolio-sentry/internal/domain"
	"github.com/hozumi/portfolio-sentry/internal/modules/scenario"
)

// ErrEmptyLedger means there are no positions to value
var ErrEmptyLedger = errors.New("portfolio: ledger is empty")

// FXProvider converts a currency into JPY at the current spot rate
type FXProvider interface {
	GetFXRate(currency string) (float64, error)
}

// Snapshot is the valued portfolio at one moment
type Snapshot struct {
	Holdings      []domain.HoldingSnapshot `json:"holdings"`
	TotalValueJPY float64                  `json:"total_value_jpy"`
	DataGaps      []domain.DataGap         `json:"data_gaps,omitempty"`
}

// Service values the position ledger in JPY and enriches each holding
// with the classification tags the analyzers bucket on. Positions whose
// market data cannot be fetched are reported as gaps, not dropped
// silently and not fatal.
type Service struct {
	ledger domain.PositionLedger
	market domain.MarketDataProvider
	fx     FXProvider
	log    zerolog.Logger
}

// NewService creates a new portfolio snapshot service
func NewService(ledger domain.PositionLedger, market domain.MarketDataProvider, fx FXProvider, log zerolog.Logger) *Service {
	return &Service{
		ledger: ledger,
		market: market,
		fx:     fx,
		log:    log.With().Str("service", "portfolio").Logger(),
	}
}

// BuildSnapshot values every ledger position at current prices converted
// to JPY. Cash positions are valued at face; a holding with no price is
// carried at zero value with a data gap.
func (s *Service) BuildSnapshot() (*Snapshot, error) {
	positions, err := s.ledger.GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to load positions: %w", err)
	}
	if len(positions) == 0 {
		return nil, ErrEmptyLedger
	}

	snapshot := &Snapshot{}
	fxCache := map[string]float64{"JPY": 1.0}

	for _, pos := range positions {
		holding, gap := s.valuePosition(pos, fxCache)
		if gap != nil {
			snapshot.DataGaps = append(snapshot.DataGaps, *gap)
		}
		snapshot.Holdings = append(snapshot.Holdings, holding)
		snapshot.TotalValueJPY += holding.ValueJPY
	}

	if snapshot.TotalValueJPY > 0 {
		for i := range snapshot.Holdings {
			snapshot.Holdings[i].Weight = snapshot.Holdings[i].ValueJPY / snapshot.TotalValueJPY
		}
	}

	sort.Slice(snapshot.Holdings, func(i, j int) bool {
		return snapshot.Holdings[i].Symbol < snapshot.Holdings[j].Symbol
	})

	s.log.Info().
		Int("holdings", len(snapshot.Holdings)).
		Int("gaps", len(snapshot.DataGaps)).
		Float64("total_value_jpy", snapshot.TotalValueJPY).
		Msg("Snapshot built")

	return snapshot, nil
}

func (s *Service) valuePosition(pos domain.Position, fxCache map[string]float64) (domain.HoldingSnapshot, *domain.DataGap) {
	if pos.IsCash() {
		currency := string(domain.CashCurrency(pos.Symbol))
		holding := domain.HoldingSnapshot{
			Symbol:        pos.Symbol,
			Shares:        pos.Shares,
			Price:         1.0,
			PriceCurrency: currency,
			Region:        domain.InferRegion(pos.Symbol),
			Currency:      currency,
			AssetClass:    domain.AssetClassCash,
		}
		rate, err := s.fxRate(currency, fxCache)
		if err != nil {
			return holding, &domain.DataGap{Symbol: pos.Symbol, Reason: "no FX rate: " + err.Error()}
		}
		holding.ValueJPY = float64(pos.Shares) * rate
		return holding, nil
	}

	holding := domain.HoldingSnapshot{
		Symbol:     pos.Symbol,
		Shares:     pos.Shares,
		Region:     domain.InferRegion(pos.Symbol),
		Currency:   domain.InferCurrency(pos.Symbol),
		AssetClass: domain.AssetClassEquity,
	}
	if scenario.KnownETF(pos.Symbol) {
		holding.AssetClass = domain.AssetClassETF
	}

	quote, err := s.market.GetQuote(pos.Symbol)
	if err != nil {
		return holding, &domain.DataGap{Symbol: pos.Symbol, Reason: "no quote: " + err.Error()}
	}
	holding.Price = quote.Price
	holding.PriceCurrency = quote.Currency
	if holding.PriceCurrency == "" {
		holding.PriceCurrency = holding.Currency
	}

	rate, err := s.fxRate(holding.PriceCurrency, fxCache)
	if err != nil {
		return holding, &domain.DataGap{Symbol: pos.Symbol, Reason: "no FX rate: " + err.Error()}
	}
	holding.ValueJPY = float64(pos.Shares) * quote.Price * rate

	// Classification enrichment is best-effort: valuation stands even
	// when the fundamentals fetch fails.
	if fund, err := s.market.GetFundamentals(pos.Symbol); err == nil {
		holding.Name = fund.Name
		if fund.Sector != "" {
			holding.Sector = fund.Sector
		}
		holding.DividendYield = fund.DividendYield
		holding.Beta = fund.Beta
	} else {
		s.log.Warn().Err(err).Str("symbol", pos.Symbol).Msg("Fundamentals unavailable")
	}
	if holding.Sector == "" {
		holding.Sector = "Unknown"
	}

	return holding, nil
}

func (s *Service) fxRate(currency string, cache map[string]float64) (float64, error) {
	if rate, ok := cache[currency]; ok {
		return rate, nil
	}
	rate, err := s.fx.GetFXRate(currency)
	if err != nil {
		return 0, err
	}
	if rate <= 0 {
		return 0, fmt.Errorf("non-positive FX rate %f for %s", rate, currency)
	}
	cache[currency] = rate
	return rate, nil
}
