package domain

import "strings"

// Currency represents an ISO currency code
type Currency string

const (
	CurrencyJPY Currency = "JPY"
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
	CurrencySGD Currency = "SGD"
	CurrencyGBP Currency = "GBP"
	CurrencyHKD Currency = "HKD"
)

// AssetClass classifies what kind of instrument a position holds
type AssetClass string

const (
	AssetClassEquity AssetClass = "equity"
	AssetClassETF    AssetClass = "etf"
	AssetClassCash   AssetClass = "cash"
)

// HealthLevel is the alert level produced by the health collaborator
type HealthLevel string

const (
	HealthOK      HealthLevel = "ok"
	HealthWarning HealthLevel = "warning"
	HealthExit    HealthLevel = "exit"
)

// cashSuffix marks cash pseudo-positions, e.g. "JPY.CASH", "USD.CASH"
const cashSuffix = ".CASH"

// IsCashSymbol reports whether a symbol is a cash pseudo-position
func IsCashSymbol(symbol string) bool {
	return strings.HasSuffix(strings.ToUpper(symbol), cashSuffix)
}

// CashCurrency extracts the currency from a cash pseudo-symbol.
// Returns "JPY" for anything that does not look like a cash symbol.
func CashCurrency(symbol string) Currency {
	if !IsCashSymbol(symbol) {
		return CurrencyJPY
	}
	base := strings.TrimSuffix(strings.ToUpper(symbol), cashSuffix)
	if len(base) != 3 {
		return CurrencyJPY
	}
	return Currency(base)
}

// Position is a single ledger row. The risk engine treats positions as
// read-only input; mutation happens only through the ledger repository.
type Position struct {
	Symbol       string  `json:"symbol"`
	Shares       int64   `json:"shares"`
	CostPrice    float64 `json:"cost_price"`
	CostCurrency string  `json:"cost_currency"`
	Account      string  `json:"account"`
	PurchaseDate string  `json:"purchase_date"` // YYYY-MM-DD
	Memo         string  `json:"memo,omitempty"`
}

// IsCash reports whether this position is a cash pseudo-position
func (p Position) IsCash() bool {
	return IsCashSymbol(p.Symbol)
}

// HoldingSnapshot is a position enriched with current market data and
// classification tags. Ephemeral: rebuilt on every analysis call.
type HoldingSnapshot struct {
	Symbol        string     `json:"symbol"`
	Name          string     `json:"name,omitempty"`
	Shares        int64      `json:"shares"`
	Price         float64    `json:"price"`          // in PriceCurrency
	PriceCurrency string     `json:"price_currency"` // trading currency
	ValueJPY      float64    `json:"value_jpy"`
	Weight        float64    `json:"weight"` // fraction of total portfolio value
	Sector        string     `json:"sector"`
	Region        string     `json:"region"`
	Currency      string     `json:"currency"` // exposure currency for taxonomy buckets
	AssetClass    AssetClass `json:"asset_class"`
	DividendYield float64    `json:"dividend_yield,omitempty"`
	Beta          float64    `json:"beta,omitempty"`
}

// IsCash reports whether this holding is a cash pseudo-position
func (h HoldingSnapshot) IsCash() bool {
	return h.AssetClass == AssetClassCash || IsCashSymbol(h.Symbol)
}

// PricePoint is one day of closing-price history
type PricePoint struct {
	Date  string  `json:"date"` // YYYY-MM-DD
	Close float64 `json:"close"`
}

// Quote is a realtime (or last-close) price for a symbol
type Quote struct {
	Symbol   string  `json:"symbol"`
	Price    float64 `json:"price"`
	Currency string  `json:"currency"`
}

// Fundamentals carries the per-symbol reference data the analyzers need.
// Fields that the upstream source does not provide stay at their zero value.
type Fundamentals struct {
	Symbol          string  `json:"symbol"`
	Name            string  `json:"name"`
	Sector          string  `json:"sector"`
	Country         string  `json:"country"`
	Currency        string  `json:"currency"`
	DividendYield   float64 `json:"dividend_yield"`
	Beta            float64 `json:"beta"`
	TrailingPE      float64 `json:"trailing_pe"`
	PriceToBook     float64 `json:"price_to_book"`
	MarketCap       int64   `json:"market_cap"`
	TargetMeanPrice float64 `json:"target_mean_price"`
	TargetHighPrice float64 `json:"target_high_price"`
	TargetLowPrice  float64 `json:"target_low_price"`
	CurrentPrice    float64 `json:"current_price"`
}

// ReturnEstimate is the three-scenario expected annual return supplied by
// the forecast collaborator. Nil pointers mean "no estimate available".
type ReturnEstimate struct {
	Symbol      string   `json:"symbol"`
	Method      string   `json:"method"` // analyst, historical, cash, no_data
	Base        *float64 `json:"base"`
	Optimistic  *float64 `json:"optimistic"`
	Pessimistic *float64 `json:"pessimistic"`
}

// HealthStatus is the per-symbol verdict from the health collaborator
type HealthStatus struct {
	Symbol  string      `json:"symbol"`
	Level   HealthLevel `json:"level"`
	Reasons []string    `json:"reasons,omitempty"`
}

// DataGap records a per-symbol input failure that narrowed a computation
// instead of aborting it.
type DataGap struct {
	Symbol string `json:"symbol"`
	Reason string `json:"reason"`
}

// MarketDataProvider is the narrow market-data contract consumed by the
// analytics core. Implementations may fail per symbol; callers degrade.
type MarketDataProvider interface {
	GetQuote(symbol string) (*Quote, error)
	GetFundamentals(symbol string) (*Fundamentals, error)
	GetPriceHistory(symbol string, days int) ([]PricePoint, error)
}

// PositionLedger is the read-only view of the position store that the
// analytics core consumes.
type PositionLedger interface {
	GetAll() ([]Position, error)
}
