package marketdata

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/hozumi/portfolio-sentry/internal/domain"
)

// fundamentalsMaxAge is how long a cached fundamentals row stays fresh
const fundamentalsMaxAge = 24 * time.Hour

// Upstream is the remote market-data source the provider wraps
type Upstream interface {
	domain.MarketDataProvider
	GetFXRate(currency string) (float64, error)
}

// Provider implements domain.MarketDataProvider backed by local storage
// with upstream fallthrough: price history is served from the per-symbol
// databases the sync job maintains, fundamentals from a 24h cache, and
// FX rates fall back to the last stored value when the upstream fails.
type Provider struct {
	upstream Upstream
	store    *Store
	history  *HistoryDB
	log      zerolog.Logger
}

// NewProvider creates a new storage-backed provider
func NewProvider(upstream Upstream, store *Store, history *HistoryDB, log zerolog.Logger) *Provider {
	return &Provider{
		upstream: upstream,
		store:    store,
		history:  history,
		log:      log.With().Str("service", "marketdata").Logger(),
	}
}

// GetQuote asks the upstream, falling back to the last stored close
func (p *Provider) GetQuote(symbol string) (*domain.Quote, error) {
	quote, err := p.upstream.GetQuote(symbol)
	if err == nil {
		return quote, nil
	}

	points, histErr := p.history.GetDailyCloses(symbol, 1)
	if histErr == nil && len(points) > 0 {
		p.log.Warn().Err(err).Str("symbol", symbol).Msg("Quote unavailable, serving last stored close")
		return &domain.Quote{
			Symbol:   symbol,
			Price:    points[len(points)-1].Close,
			Currency: domain.InferCurrency(symbol),
		}, nil
	}

	return nil, fmt.Errorf("no quote for %s: %w", symbol, err)
}

// GetFundamentals serves the cache when fresh, otherwise refreshes it.
// A stale row is still better than nothing when the upstream fails.
func (p *Provider) GetFundamentals(symbol string) (*domain.Fundamentals, error) {
	if cached, err := p.store.GetFundamentals(symbol, fundamentalsMaxAge); err == nil {
		return cached, nil
	}

	fund, err := p.upstream.GetFundamentals(symbol)
	if err != nil {
		if stale, staleErr := p.store.GetFundamentals(symbol, 0); staleErr == nil {
			p.log.Warn().Err(err).Str("symbol", symbol).Msg("Fundamentals refresh failed, serving stale cache")
			return stale, nil
		}
		return nil, err
	}

	if err := p.store.PutFundamentals(fund); err != nil {
		p.log.Warn().Err(err).Str("symbol", symbol).Msg("Failed to cache fundamentals")
	}
	return fund, nil
}

// GetPriceHistory serves the per-symbol database, filling it from the
// upstream when it has less history than asked for.
func (p *Provider) GetPriceHistory(symbol string, days int) ([]domain.PricePoint, error) {
	points, err := p.history.GetDailyCloses(symbol, days)
	if err != nil {
		return nil, err
	}
	// Stored history counts trading days; 5/7 of calendar days is close
	// enough to decide whether a refresh is needed.
	if len(points) >= days*5/7 {
		return points, nil
	}

	fetched, fetchErr := p.upstream.GetPriceHistory(symbol, days)
	if fetchErr != nil {
		if len(points) > 0 {
			p.log.Warn().Err(fetchErr).Str("symbol", symbol).Msg("History refresh failed, serving stored prices")
			return points, nil
		}
		return nil, fetchErr
	}

	if err := p.history.UpsertDailyCloses(symbol, fetched); err != nil {
		p.log.Warn().Err(err).Str("symbol", symbol).Msg("Failed to store price history")
	}
	return fetched, nil
}

// GetFXRate fetches the spot rate and remembers it, falling back to the
// stored rate when the upstream fails. The base currency is always 1.
func (p *Provider) GetFXRate(currency string) (float64, error) {
	pair := domain.FXPairSymbol(currency)
	if pair == "" {
		return 1.0, nil
	}

	rate, err := p.upstream.GetFXRate(currency)
	if err == nil {
		if putErr := p.store.PutFXRate(pair, rate); putErr != nil {
			p.log.Warn().Err(putErr).Str("pair", pair).Msg("Failed to store FX rate")
		}
		return rate, nil
	}

	stored, storeErr := p.store.GetFXRate(pair)
	if storeErr == nil {
		p.log.Warn().Err(err).Str("pair", pair).Msg("FX rate unavailable, serving stored rate")
		return stored, nil
	}
	if errors.Is(storeErr, ErrCacheMiss) {
		return 0, err
	}
	return 0, storeErr
}
