package portfolio

import (
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hozumi/portfolio-sentry/internal/database"
	"github.com/hozumi/portfolio-sentry/internal/domain"
)

func newTestRepo(t *testing.T) *PositionRepository {
	t.Helper()
	db, err := database.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, db.Migrate())
	t.Cleanup(func() { db.Close() })
	return NewPositionRepository(db.Conn(), zerolog.Nop())
}

func TestAddAndGet(t *testing.T) {
	repo := newTestRepo(t)

	err := repo.Add(domain.Position{
		Symbol:       "7203.T",
		Shares:       100,
		CostPrice:    2400,
		CostCurrency: "JPY",
		Account:      "nisa",
		PurchaseDate: "2025-04-01",
	})
	require.NoError(t, err)

	pos, err := repo.Get("7203.T")
	require.NoError(t, err)
	assert.Equal(t, int64(100), pos.Shares)
	assert.Equal(t, 2400.0, pos.CostPrice)
	assert.Equal(t, "nisa", pos.Account)
}

func TestAddAveragesCost(t *testing.T) {
	repo := newTestRepo(t)

	require.NoError(t, repo.Add(domain.Position{Symbol: "AAPL", Shares: 10, CostPrice: 150, CostCurrency: "USD"}))
	require.NoError(t, repo.Add(domain.Position{Symbol: "AAPL", Shares: 30, CostPrice: 190, CostCurrency: "USD"}))

	pos, err := repo.Get("AAPL")
	require.NoError(t, err)
	assert.Equal(t, int64(40), pos.Shares)
	// (10*150 + 30*190) / 40 = 180
	assert.InDelta(t, 180.0, pos.CostPrice, 1e-9)
}

func TestAddRejectsBadInput(t *testing.T) {
	repo := newTestRepo(t)

	assert.Error(t, repo.Add(domain.Position{Symbol: "X", Shares: 0, CostPrice: 100}))
	assert.Error(t, repo.Add(domain.Position{Symbol: "X", Shares: -5, CostPrice: 100}))
	assert.Error(t, repo.Add(domain.Position{Symbol: "X", Shares: 10, CostPrice: -1}))
}

func TestSellPartial(t *testing.T) {
	repo := newTestRepo(t)
	require.NoError(t, repo.Add(domain.Position{Symbol: "8306.T", Shares: 300, CostPrice: 1500, CostCurrency: "JPY"}))

	require.NoError(t, repo.Sell("8306.T", 100))

	pos, err := repo.Get("8306.T")
	require.NoError(t, err)
	assert.Equal(t, int64(200), pos.Shares)
	// Selling never rewrites the cost basis of the remainder
	assert.Equal(t, 1500.0, pos.CostPrice)
}

func TestSellAllClosesPosition(t *testing.T) {
	repo := newTestRepo(t)
	require.NoError(t, repo.Add(domain.Position{Symbol: "8306.T", Shares: 300, CostPrice: 1500, CostCurrency: "JPY"}))

	require.NoError(t, repo.Sell("8306.T", 300))

	_, err := repo.Get("8306.T")
	assert.ErrorIs(t, err, ErrPositionNotFound)
}

func TestSellTooMany(t *testing.T) {
	repo := newTestRepo(t)
	require.NoError(t, repo.Add(domain.Position{Symbol: "8306.T", Shares: 100, CostPrice: 1500, CostCurrency: "JPY"}))

	err := repo.Sell("8306.T", 500)
	assert.ErrorIs(t, err, ErrInsufficientShares)
}

func TestSellUnknownSymbol(t *testing.T) {
	repo := newTestRepo(t)
	err := repo.Sell("GHOST", 10)
	assert.ErrorIs(t, err, ErrPositionNotFound)
}

func TestGetAllSorted(t *testing.T) {
	repo := newTestRepo(t)
	require.NoError(t, repo.Add(domain.Position{Symbol: "VYM", Shares: 50, CostPrice: 110, CostCurrency: "USD"}))
	require.NoError(t, repo.Add(domain.Position{Symbol: "7203.T", Shares: 100, CostPrice: 2400, CostCurrency: "JPY"}))
	require.NoError(t, repo.Add(domain.Position{Symbol: "JPY.CASH", Shares: 500_000, CostPrice: 1, CostCurrency: "JPY"}))

	positions, err := repo.GetAll()
	require.NoError(t, err)

	require.Len(t, positions, 3)
	assert.Equal(t, "7203.T", positions[0].Symbol)
	assert.Equal(t, "JPY.CASH", positions[1].Symbol)
	assert.Equal(t, "VYM", positions[2].Symbol)
}

func TestDelete(t *testing.T) {
	repo := newTestRepo(t)
	require.NoError(t, repo.Add(domain.Position{Symbol: "AAPL", Shares: 10, CostPrice: 150, CostCurrency: "USD"}))

	require.NoError(t, repo.Delete("AAPL"))
	assert.ErrorIs(t, repo.Delete("AAPL"), ErrPositionNotFound)
}
