package portfolio

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hozumi/portfolio-sentry/internal/domain"
)

type fakeLedger struct {
	positions []domain.Position
	err       error
}

func (f *fakeLedger) GetAll() ([]domain.Position, error) { return f.positions, f.err }

type fakeMarket struct {
	quotes map[string]*domain.Quote
	funds  map[string]*domain.Fundamentals
}

func (f *fakeMarket) GetQuote(symbol string) (*domain.Quote, error) {
	if q, ok := f.quotes[symbol]; ok {
		return q, nil
	}
	return nil, errors.New("quote unavailable")
}

func (f *fakeMarket) GetFundamentals(symbol string) (*domain.Fundamentals, error) {
	if fund, ok := f.funds[symbol]; ok {
		return fund, nil
	}
	return nil, errors.New("fundamentals unavailable")
}

func (f *fakeMarket) GetPriceHistory(symbol string, days int) ([]domain.PricePoint, error) {
	return nil, errors.New("not implemented")
}

type fakeFX struct {
	rates map[string]float64
}

func (f *fakeFX) GetFXRate(currency string) (float64, error) {
	if currency == "JPY" {
		return 1.0, nil
	}
	if rate, ok := f.rates[currency]; ok {
		return rate, nil
	}
	return 0, errors.New("rate unavailable")
}

func newTestSnapshotService(ledger *fakeLedger, market *fakeMarket, fx *fakeFX) *Service {
	return NewService(ledger, market, fx, zerolog.Nop())
}

func TestBuildSnapshot(t *testing.T) {
	ledger := &fakeLedger{positions: []domain.Position{
		{Symbol: "7203.T", Shares: 100, CostPrice: 2400, CostCurrency: "JPY"},
		{Symbol: "AAPL", Shares: 10, CostPrice: 150, CostCurrency: "USD"},
		{Symbol: "JPY.CASH", Shares: 500_000, CostPrice: 1, CostCurrency: "JPY"},
	}}
	market := &fakeMarket{
		quotes: map[string]*domain.Quote{
			"7203.T": {Symbol: "7203.T", Price: 2500, Currency: "JPY"},
			"AAPL":   {Symbol: "AAPL", Price: 200, Currency: "USD"},
		},
		funds: map[string]*domain.Fundamentals{
			"7203.T": {Symbol: "7203.T", Name: "Toyota", Sector: "Consumer Cyclical", DividendYield: 0.025, Beta: 0.9},
			"AAPL":   {Symbol: "AAPL", Name: "Apple Inc.", Sector: "Technology", Beta: 1.25},
		},
	}
	fx := &fakeFX{rates: map[string]float64{"USD": 150}}

	snapshot, err := newTestSnapshotService(ledger, market, fx).BuildSnapshot()
	require.NoError(t, err)

	require.Len(t, snapshot.Holdings, 3)
	assert.Empty(t, snapshot.DataGaps)

	// Sorted by symbol: 7203.T, AAPL, JPY.CASH
	toyota := snapshot.Holdings[0]
	apple := snapshot.Holdings[1]
	cash := snapshot.Holdings[2]

	assert.Equal(t, "Toyota", toyota.Name)
	assert.Equal(t, "Consumer Cyclical", toyota.Sector)
	assert.Equal(t, "Japan", toyota.Region)
	assert.Equal(t, "JPY", toyota.Currency)
	assert.Equal(t, 250_000.0, toyota.ValueJPY)

	assert.Equal(t, "US", apple.Region)
	assert.Equal(t, "USD", apple.Currency)
	assert.Equal(t, 10*200*150.0, apple.ValueJPY)
	assert.Equal(t, domain.AssetClassEquity, apple.AssetClass)

	assert.Equal(t, domain.AssetClassCash, cash.AssetClass)
	assert.Equal(t, 500_000.0, cash.ValueJPY)

	total := 250_000.0 + 300_000.0 + 500_000.0
	assert.Equal(t, total, snapshot.TotalValueJPY)
	assert.InDelta(t, 250_000/total, toyota.Weight, 1e-12)

	weightSum := 0.0
	for _, h := range snapshot.Holdings {
		weightSum += h.Weight
	}
	assert.InDelta(t, 1.0, weightSum, 1e-12)
}

func TestBuildSnapshotKnownETF(t *testing.T) {
	ledger := &fakeLedger{positions: []domain.Position{
		{Symbol: "GLD", Shares: 5, CostPrice: 180, CostCurrency: "USD"},
	}}
	market := &fakeMarket{quotes: map[string]*domain.Quote{
		"GLD": {Symbol: "GLD", Price: 200, Currency: "USD"},
	}}
	fx := &fakeFX{rates: map[string]float64{"USD": 150}}

	snapshot, err := newTestSnapshotService(ledger, market, fx).BuildSnapshot()
	require.NoError(t, err)

	require.Len(t, snapshot.Holdings, 1)
	assert.Equal(t, domain.AssetClassETF, snapshot.Holdings[0].AssetClass)
	// No fundamentals available: valuation still stands
	assert.Equal(t, 150_000.0, snapshot.Holdings[0].ValueJPY)
	assert.Equal(t, "Unknown", snapshot.Holdings[0].Sector)
}

func TestBuildSnapshotQuoteFailureIsGap(t *testing.T) {
	ledger := &fakeLedger{positions: []domain.Position{
		{Symbol: "7203.T", Shares: 100, CostPrice: 2400, CostCurrency: "JPY"},
		{Symbol: "DELISTED", Shares: 50, CostPrice: 10, CostCurrency: "USD"},
	}}
	market := &fakeMarket{quotes: map[string]*domain.Quote{
		"7203.T": {Symbol: "7203.T", Price: 2500, Currency: "JPY"},
	}}
	fx := &fakeFX{rates: map[string]float64{"USD": 150}}

	snapshot, err := newTestSnapshotService(ledger, market, fx).BuildSnapshot()
	require.NoError(t, err)

	require.Len(t, snapshot.Holdings, 2)
	require.Len(t, snapshot.DataGaps, 1)
	assert.Equal(t, "DELISTED", snapshot.DataGaps[0].Symbol)
	assert.Contains(t, snapshot.DataGaps[0].Reason, "no quote")

	// The gapped holding carries zero value; the rest of the book stands
	assert.Equal(t, 250_000.0, snapshot.TotalValueJPY)
}

func TestBuildSnapshotFXFailureIsGap(t *testing.T) {
	ledger := &fakeLedger{positions: []domain.Position{
		{Symbol: "AAPL", Shares: 10, CostPrice: 150, CostCurrency: "USD"},
	}}
	market := &fakeMarket{quotes: map[string]*domain.Quote{
		"AAPL": {Symbol: "AAPL", Price: 200, Currency: "USD"},
	}}
	fx := &fakeFX{} // no USD rate

	snapshot, err := newTestSnapshotService(ledger, market, fx).BuildSnapshot()
	require.NoError(t, err)

	require.Len(t, snapshot.DataGaps, 1)
	assert.Contains(t, snapshot.DataGaps[0].Reason, "no FX rate")
	assert.Zero(t, snapshot.TotalValueJPY)
}

func TestBuildSnapshotEmptyLedger(t *testing.T) {
	_, err := newTestSnapshotService(&fakeLedger{}, &fakeMarket{}, &fakeFX{}).BuildSnapshot()
	assert.ErrorIs(t, err, ErrEmptyLedger)
}

func TestBuildSnapshotCashOnlyForeign(t *testing.T) {
	ledger := &fakeLedger{positions: []domain.Position{
		{Symbol: "USD.CASH", Shares: 1000, CostPrice: 1, CostCurrency: "USD"},
	}}
	fx := &fakeFX{rates: map[string]float64{"USD": 150}}

	snapshot, err := newTestSnapshotService(ledger, &fakeMarket{}, fx).BuildSnapshot()
	require.NoError(t, err)

	require.Len(t, snapshot.Holdings, 1)
	assert.Equal(t, "USD", snapshot.Holdings[0].Currency)
	assert.Equal(t, 150_000.0, snapshot.Holdings[0].ValueJPY)
	assert.Equal(t, domain.AssetClassCash, snapshot.Holdings[0].AssetClass)
}
