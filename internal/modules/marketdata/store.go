package marketdata

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/hozumi/portfolio-sentry/internal/domain"
)

// ErrCacheMiss means the main database holds no usable row
var ErrCacheMiss = errors.New("marketdata: cache miss")

// Store persists fundamentals and FX rates in the main database so the
// analyzers keep working when the upstream API is down or rate-limiting.
type Store struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewStore creates a new marketdata store
func NewStore(db *sql.DB, log zerolog.Logger) *Store {
	return &Store{
		db:  db,
		log: log.With().Str("repo", "marketdata").Logger(),
	}
}

// GetFundamentals returns the cached row if it is younger than maxAge
func (s *Store) GetFundamentals(symbol string, maxAge time.Duration) (*domain.Fundamentals, error) {
	var f domain.Fundamentals
	var fetchedAt string
	err := s.db.QueryRow(`
		SELECT symbol, name, sector, country, currency, dividend_yield, beta,
		       trailing_pe, price_to_book, market_cap,
		       target_mean_price, target_high_price, target_low_price,
		       current_price, fetched_at
		FROM fundamentals_cache
		WHERE symbol = ?
	`, symbol).Scan(&f.Symbol, &f.Name, &f.Sector, &f.Country, &f.Currency,
		&f.DividendYield, &f.Beta, &f.TrailingPE, &f.PriceToBook, &f.MarketCap,
		&f.TargetMeanPrice, &f.TargetHighPrice, &f.TargetLowPrice,
		&f.CurrentPrice, &fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read fundamentals cache for %s: %w", symbol, err)
	}

	if maxAge > 0 {
		ts, err := time.Parse(time.RFC3339, fetchedAt)
		if err != nil || time.Since(ts) > maxAge {
			return nil, ErrCacheMiss
		}
	}
	return &f, nil
}

// PutFundamentals replaces the cached row for a symbol
func (s *Store) PutFundamentals(f *domain.Fundamentals) error {
	_, err := s.db.Exec(`
		INSERT INTO fundamentals_cache (
			symbol, name, sector, country, currency, dividend_yield, beta,
			trailing_pe, price_to_book, market_cap,
			target_mean_price, target_high_price, target_low_price,
			current_price, fetched_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(symbol) DO UPDATE SET
			name = excluded.name,
			sector = excluded.sector,
			country = excluded.country,
			currency = excluded.currency,
			dividend_yield = excluded.dividend_yield,
			beta = excluded.beta,
			trailing_pe = excluded.trailing_pe,
			price_to_book = excluded.price_to_book,
			market_cap = excluded.market_cap,
			target_mean_price = excluded.target_mean_price,
			target_high_price = excluded.target_high_price,
			target_low_price = excluded.target_low_price,
			current_price = excluded.current_price,
			fetched_at = excluded.fetched_at
	`, f.Symbol, f.Name, f.Sector, f.Country, f.Currency, f.DividendYield, f.Beta,
		f.TrailingPE, f.PriceToBook, f.MarketCap,
		f.TargetMeanPrice, f.TargetHighPrice, f.TargetLowPrice,
		f.CurrentPrice, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to cache fundamentals for %s: %w", f.Symbol, err)
	}
	return nil
}

// GetFXRate returns the stored rate for a pair, e.g. "USDJPY=X"
func (s *Store) GetFXRate(pair string) (float64, error) {
	var rate float64
	err := s.db.QueryRow(`SELECT rate FROM fx_rates WHERE pair = ?`, pair).Scan(&rate)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrCacheMiss
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read FX rate for %s: %w", pair, err)
	}
	return rate, nil
}

// PutFXRate stores the latest rate for a pair
func (s *Store) PutFXRate(pair string, rate float64) error {
	if rate <= 0 {
		return fmt.Errorf("marketdata: non-positive FX rate %f for %s", rate, pair)
	}
	_, err := s.db.Exec(`
		INSERT INTO fx_rates (pair, rate, fetched_at) VALUES (?, ?, ?)
		ON CONFLICT(pair) DO UPDATE SET rate = excluded.rate, fetched_at = excluded.fetched_at
	`, pair, rate, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to store FX rate for %s: %w", pair, err)
	}
	return nil
}
