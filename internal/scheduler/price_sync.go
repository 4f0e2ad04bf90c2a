package scheduler

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/hozumi/portfolio-sentry/internal/domain"
	"github.com/hozumi/portfolio-sentry/internal/modules/marketdata"
)

// PriceSyncJob refreshes the stored price history, fundamentals cache
// and FX rates for every symbol in the ledger. Per-symbol failures are
// logged and skipped so one delisted ticker never starves the rest.
type PriceSyncJob struct {
	log         zerolog.Logger
	ledger      domain.PositionLedger
	upstream    marketdata.Upstream
	store       *marketdata.Store
	history     *marketdata.HistoryDB
	historyDays int
}

// PriceSyncConfig holds configuration for the price sync job
type PriceSyncConfig struct {
	Log         zerolog.Logger
	Ledger      domain.PositionLedger
	Upstream    marketdata.Upstream
	Store       *marketdata.Store
	History     *marketdata.HistoryDB
	HistoryDays int
}

// NewPriceSyncJob creates a new price sync job
func NewPriceSyncJob(cfg PriceSyncConfig) *PriceSyncJob {
	return &PriceSyncJob{
		log:         cfg.Log.With().Str("job", "price_sync").Logger(),
		ledger:      cfg.Ledger,
		upstream:    cfg.Upstream,
		store:       cfg.Store,
		history:     cfg.History,
		historyDays: cfg.HistoryDays,
	}
}

// Name returns the job name
func (j *PriceSyncJob) Name() string {
	return "price_sync"
}

// Run executes one sync pass
func (j *PriceSyncJob) Run() error {
	positions, err := j.ledger.GetAll()
	if err != nil {
		return err
	}

	startTime := time.Now()
	cutoff := time.Now().AddDate(0, 0, -j.historyDays).Format("2006-01-02")
	synced, failed := 0, 0
	currencies := map[string]bool{}

	for _, pos := range positions {
		if pos.IsCash() {
			currencies[string(domain.CashCurrency(pos.Symbol))] = true
			continue
		}
		currencies[domain.InferCurrency(pos.Symbol)] = true

		if err := j.syncSymbol(pos.Symbol, cutoff); err != nil {
			j.log.Warn().Err(err).Str("symbol", pos.Symbol).Msg("Symbol sync failed")
			failed++
			continue
		}
		synced++
	}

	for currency := range currencies {
		pair := domain.FXPairSymbol(currency)
		if pair == "" {
			continue
		}
		rate, err := j.upstream.GetFXRate(currency)
		if err != nil {
			j.log.Warn().Err(err).Str("currency", currency).Msg("FX sync failed")
			failed++
			continue
		}
		if err := j.store.PutFXRate(pair, rate); err != nil {
			j.log.Warn().Err(err).Str("pair", pair).Msg("FX store failed")
			failed++
		}
	}

	j.log.Info().
		Int("synced", synced).
		Int("failed", failed).
		Dur("elapsed", time.Since(startTime)).
		Msg("Price sync completed")

	return nil
}

func (j *PriceSyncJob) syncSymbol(symbol, cutoff string) error {
	points, err := j.upstream.GetPriceHistory(symbol, j.historyDays)
	if err != nil {
		return err
	}
	if err := j.history.UpsertDailyCloses(symbol, points); err != nil {
		return err
	}
	if err := j.history.Prune(symbol, cutoff); err != nil {
		return err
	}

	fund, err := j.upstream.GetFundamentals(symbol)
	if err != nil {
		// Prices matter more than reference data; keep the stale cache
		j.log.Warn().Err(err).Str("symbol", symbol).Msg("Fundamentals sync failed")
		return nil
	}
	return j.store.PutFundamentals(fund)
}
