package marketdata

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
	"github.com/rs/zerolog"

	"github.com/hozumi/portfolio-sentry/internal/domain"
)

// HistoryDB stores daily closing prices, one sqlite file per symbol.
// Keeping symbols in separate files lets the sync job rewrite one
// symbol's history without touching the rest.
type HistoryDB struct {
	historyDir string
	log        zerolog.Logger
}

// NewHistoryDB creates a new history database accessor
func NewHistoryDB(historyDir string, log zerolog.Logger) *HistoryDB {
	return &HistoryDB{
		historyDir: historyDir,
		log:        log.With().Str("component", "history_db").Logger(),
	}
}

// GetDailyCloses fetches up to limit most recent daily closes,
// returned in ascending date order. A symbol with no database yet
// returns an empty slice, not an error.
func (h *HistoryDB) GetDailyCloses(symbol string, limit int) ([]domain.PricePoint, error) {
	dbPath := h.pathFor(symbol)
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return nil, nil
	}

	db, err := h.open(symbol)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.Query(`
		SELECT date, close_price
		FROM daily_prices
		ORDER BY date DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily prices for %s: %w", symbol, err)
	}
	defer rows.Close()

	var points []domain.PricePoint
	for rows.Next() {
		var p domain.PricePoint
		if err := rows.Scan(&p.Date, &p.Close); err != nil {
			return nil, fmt.Errorf("failed to scan daily price: %w", err)
		}
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating daily prices: %w", err)
	}

	// Reverse into ascending date order
	for i, j := 0, len(points)-1; i < j; i, j = i+1, j-1 {
		points[i], points[j] = points[j], points[i]
	}

	return points, nil
}

// UpsertDailyCloses writes a batch of daily closes, replacing rows that
// share a date.
func (h *HistoryDB) UpsertDailyCloses(symbol string, points []domain.PricePoint) error {
	if len(points) == 0 {
		return nil
	}

	db, err := h.open(symbol)
	if err != nil {
		return err
	}
	defer db.Close()

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS daily_prices (
			date        TEXT PRIMARY KEY,
			close_price REAL NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("failed to create daily_prices table for %s: %w", symbol, err)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction for %s: %w", symbol, err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO daily_prices (date, close_price) VALUES (?, ?)
		ON CONFLICT(date) DO UPDATE SET close_price = excluded.close_price
	`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to prepare upsert for %s: %w", symbol, err)
	}
	defer stmt.Close()

	for _, p := range points {
		if p.Date == "" || p.Close <= 0 {
			continue
		}
		if _, err := stmt.Exec(p.Date, p.Close); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to upsert price %s %s: %w", symbol, p.Date, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit prices for %s: %w", symbol, err)
	}

	h.log.Debug().Str("symbol", symbol).Int("points", len(points)).Msg("Price history stored")
	return nil
}

// Prune drops rows older than the cutoff date (YYYY-MM-DD)
func (h *HistoryDB) Prune(symbol, cutoff string) error {
	dbPath := h.pathFor(symbol)
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return nil
	}

	db, err := h.open(symbol)
	if err != nil {
		return err
	}
	defer db.Close()

	if _, err := db.Exec(`DELETE FROM daily_prices WHERE date < ?`, cutoff); err != nil {
		return fmt.Errorf("failed to prune history for %s: %w", symbol, err)
	}
	return nil
}

func (h *HistoryDB) pathFor(symbol string) string {
	// AAPL stays AAPL; 7203.T becomes 7203_T; USDJPY=X becomes USDJPY_X
	dbSymbol := strings.NewReplacer(".", "_", "=", "_").Replace(symbol)
	return filepath.Join(h.historyDir, dbSymbol+".db")
}

func (h *HistoryDB) open(symbol string) (*sql.DB, error) {
	if err := os.MkdirAll(h.historyDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	db, err := sql.Open("sqlite", h.pathFor(symbol))
	if err != nil {
		return nil, fmt.Errorf("failed to open history database for %s: %w", symbol, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("history database for %s is not accessible: %w", symbol, err)
	}
	return db, nil
}
