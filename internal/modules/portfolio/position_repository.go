package portfolio

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/hozumi/portfolio-sentry/internal/domain"
)

// ErrPositionNotFound is returned when a symbol has no ledger entry
var ErrPositionNotFound = errors.New("portfolio: position not found")

// ErrInsufficientShares rejects a sell larger than the held quantity
var ErrInsufficientShares = errors.New("portfolio: insufficient shares")

// PositionRepository is the sqlite-backed position ledger
type PositionRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewPositionRepository creates a new position repository
func NewPositionRepository(db *sql.DB, log zerolog.Logger) *PositionRepository {
	return &PositionRepository{
		db:  db,
		log: log.With().Str("repo", "position").Logger(),
	}
}

// GetAll returns all positions ordered by symbol
func (r *PositionRepository) GetAll() ([]domain.Position, error) {
	rows, err := r.db.Query(`
		SELECT symbol, shares, cost_price, cost_currency, account, purchase_date, memo
		FROM positions
		ORDER BY symbol
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query positions: %w", err)
	}
	defer rows.Close()

	var positions []domain.Position
	for rows.Next() {
		var p domain.Position
		if err := rows.Scan(&p.Symbol, &p.Shares, &p.CostPrice, &p.CostCurrency,
			&p.Account, &p.PurchaseDate, &p.Memo); err != nil {
			return nil, fmt.Errorf("failed to scan position: %w", err)
		}
		positions = append(positions, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating positions: %w", err)
	}

	return positions, nil
}

// Get returns one position by symbol
func (r *PositionRepository) Get(symbol string) (*domain.Position, error) {
	var p domain.Position
	err := r.db.QueryRow(`
		SELECT symbol, shares, cost_price, cost_currency, account, purchase_date, memo
		FROM positions
		WHERE symbol = ?
	`, symbol).Scan(&p.Symbol, &p.Shares, &p.CostPrice, &p.CostCurrency,
		&p.Account, &p.PurchaseDate, &p.Memo)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPositionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query position %s: %w", symbol, err)
	}
	return &p, nil
}

// Add records a buy. An existing position gets its shares summed and its
// cost price recomputed as the weighted average of old and new lots.
func (r *PositionRepository) Add(p domain.Position) error {
	if p.Shares <= 0 {
		return fmt.Errorf("portfolio: shares must be positive, got %d", p.Shares)
	}
	if p.CostPrice < 0 {
		return fmt.Errorf("portfolio: cost price must be non-negative")
	}

	existing, err := r.Get(p.Symbol)
	if err != nil && !errors.Is(err, ErrPositionNotFound) {
		return err
	}

	now := time.Now().UTC().Format(time.RFC3339)
	if existing == nil {
		_, err = r.db.Exec(`
			INSERT INTO positions (symbol, shares, cost_price, cost_currency, account, purchase_date, memo, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, p.Symbol, p.Shares, p.CostPrice, p.CostCurrency, p.Account, p.PurchaseDate, p.Memo, now)
		if err != nil {
			return fmt.Errorf("failed to insert position %s: %w", p.Symbol, err)
		}
		r.log.Info().Str("symbol", p.Symbol).Int64("shares", p.Shares).Msg("Position opened")
		return nil
	}

	totalShares := existing.Shares + p.Shares
	avgCost := (float64(existing.Shares)*existing.CostPrice + float64(p.Shares)*p.CostPrice) / float64(totalShares)

	_, err = r.db.Exec(`
		UPDATE positions
		SET shares = ?, cost_price = ?, updated_at = ?
		WHERE symbol = ?
	`, totalShares, avgCost, now, p.Symbol)
	if err != nil {
		return fmt.Errorf("failed to update position %s: %w", p.Symbol, err)
	}

	r.log.Info().
		Str("symbol", p.Symbol).
		Int64("added", p.Shares).
		Int64("total", totalShares).
		Float64("avg_cost", avgCost).
		Msg("Position increased")
	return nil
}

// Sell removes shares from a position. Selling the full quantity deletes
// the row; the cost price of the remainder is unchanged.
func (r *PositionRepository) Sell(symbol string, shares int64) error {
	if shares <= 0 {
		return fmt.Errorf("portfolio: shares must be positive, got %d", shares)
	}

	existing, err := r.Get(symbol)
	if err != nil {
		return err
	}
	if shares > existing.Shares {
		return fmt.Errorf("%w: have %d, tried to sell %d", ErrInsufficientShares, existing.Shares, shares)
	}

	if shares == existing.Shares {
		if _, err := r.db.Exec(`DELETE FROM positions WHERE symbol = ?`, symbol); err != nil {
			return fmt.Errorf("failed to delete position %s: %w", symbol, err)
		}
		r.log.Info().Str("symbol", symbol).Msg("Position closed")
		return nil
	}

	now := time.Now().UTC().Format(time.RFC3339)
	_, err = r.db.Exec(`
		UPDATE positions SET shares = ?, updated_at = ? WHERE symbol = ?
	`, existing.Shares-shares, now, symbol)
	if err != nil {
		return fmt.Errorf("failed to update position %s: %w", symbol, err)
	}

	r.log.Info().
		Str("symbol", symbol).
		Int64("sold", shares).
		Int64("remaining", existing.Shares-shares).
		Msg("Position reduced")
	return nil
}

// Delete removes a position regardless of quantity
func (r *PositionRepository) Delete(symbol string) error {
	result, err := r.db.Exec(`DELETE FROM positions WHERE symbol = ?`, symbol)
	if err != nil {
		return fmt.Errorf("failed to delete position %s: %w", symbol, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return ErrPositionNotFound
	}
	return nil
}
