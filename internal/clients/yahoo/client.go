package yahoo

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/hozumi/portfolio-sentry/internal/domain"
)

// DefaultBaseURL is the public Yahoo Finance query endpoint
const DefaultBaseURL = "https://query1.finance.yahoo.com"

// Client is a Yahoo Finance API client. It satisfies
// domain.MarketDataProvider; storage-backed providers wrap it.
type Client struct {
	baseURL string
	client  *http.Client
	log     zerolog.Logger
}

// NewClient creates a new Yahoo Finance client. An empty baseURL selects
// the public endpoint; tests point it at a local server.
func NewClient(baseURL string, log zerolog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		log: log.With().Str("client", "yahoo").Logger(),
	}
}

// GetQuote fetches the current (or last close) price for a symbol,
// retrying with exponential backoff on transient failures.
func (c *Client) GetQuote(symbol string) (*domain.Quote, error) {
	const maxRetries = 3

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		info, err := c.getQuoteInfo(symbol)
		if err != nil {
			lastErr = err
			if attempt < maxRetries-1 {
				waitTime := time.Duration(1<<uint(attempt)) * time.Second
				c.log.Warn().Err(err).
					Str("symbol", symbol).
					Int("attempt", attempt+1).
					Dur("wait", waitTime).
					Msg("Failed to get quote, retrying")
				time.Sleep(waitTime)
			}
			continue
		}

		price := getFloat64OrZero(info, "currentPrice")
		if price == 0 {
			price = getFloat64OrZero(info, "regularMarketPrice")
		}
		if price <= 0 {
			lastErr = fmt.Errorf("no valid price for %s", symbol)
			continue
		}

		return &domain.Quote{
			Symbol:   symbol,
			Price:    price,
			Currency: getString(info, "currency", ""),
		}, nil
	}

	return nil, fmt.Errorf("failed to get quote for %s after %d attempts: %w", symbol, maxRetries, lastErr)
}

// GetFundamentals fetches the reference data the analyzers need:
// classification, yield, beta and analyst price targets.
func (c *Client) GetFundamentals(symbol string) (*domain.Fundamentals, error) {
	info, err := c.getQuoteInfo(symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to get quote info: %w", err)
	}

	name := getString(info, "longName", "")
	if name == "" {
		name = getString(info, "shortName", "")
	}

	currentPrice := getFloat64OrZero(info, "currentPrice")
	if currentPrice == 0 {
		currentPrice = getFloat64OrZero(info, "regularMarketPrice")
	}

	return &domain.Fundamentals{
		Symbol:          symbol,
		Name:            name,
		Sector:          getString(info, "sector", ""),
		Country:         getString(info, "country", ""),
		Currency:        getString(info, "currency", ""),
		DividendYield:   getFloat64OrZero(info, "dividendYield"),
		Beta:            getFloat64OrZero(info, "beta"),
		TrailingPE:      getFloat64OrZero(info, "trailingPE"),
		PriceToBook:     getFloat64OrZero(info, "priceToBook"),
		MarketCap:       getInt64OrZero(info, "marketCap"),
		TargetMeanPrice: getFloat64OrZero(info, "targetMeanPrice"),
		TargetHighPrice: getFloat64OrZero(info, "targetHighPrice"),
		TargetLowPrice:  getFloat64OrZero(info, "targetLowPrice"),
		CurrentPrice:    currentPrice,
	}, nil
}

// GetPriceHistory fetches daily closes for the trailing N days via the
// chart API.
func (c *Client) GetPriceHistory(symbol string, days int) ([]domain.PricePoint, error) {
	now := time.Now()
	params := url.Values{}
	params.Add("period1", fmt.Sprintf("%d", now.AddDate(0, 0, -days).Unix()))
	params.Add("period2", fmt.Sprintf("%d", now.Unix()))
	params.Add("interval", "1d")

	reqURL := fmt.Sprintf("%s/v8/finance/chart/%s?%s", c.baseURL, url.PathEscape(symbol), params.Encode())

	body, err := c.get(reqURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch chart for %s: %w", symbol, err)
	}

	var result chartResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse chart response: %w", err)
	}
	if result.Chart.Error != nil {
		return nil, fmt.Errorf("chart API error for %s: %v", symbol, result.Chart.Error)
	}
	if len(result.Chart.Result) == 0 {
		return nil, fmt.Errorf("no chart data returned for %s", symbol)
	}

	chart := result.Chart.Result[0]
	if len(chart.Indicators.Quote) == 0 {
		return nil, fmt.Errorf("no quote indicators returned for %s", symbol)
	}
	closes := chart.Indicators.Quote[0].Close

	var points []domain.PricePoint
	for i, ts := range chart.Timestamp {
		if i >= len(closes) || closes[i] == nil || *closes[i] <= 0 {
			continue // market holidays come back as nulls
		}
		points = append(points, domain.PricePoint{
			Date:  time.Unix(ts, 0).UTC().Format("2006-01-02"),
			Close: *closes[i],
		})
	}

	c.log.Debug().
		Str("symbol", symbol).
		Int("points", len(points)).
		Msg("Price history fetched")

	return points, nil
}

// GetFXRate fetches the spot rate for a currency against JPY using the
// standard "USDJPY=X" pair symbols.
func (c *Client) GetFXRate(currency string) (float64, error) {
	pair := domain.FXPairSymbol(currency)
	if pair == "" {
		return 1.0, nil // base currency
	}
	quote, err := c.GetQuote(pair)
	if err != nil {
		return 0, fmt.Errorf("failed to get FX rate for %s: %w", currency, err)
	}
	return quote.Price, nil
}

// getQuoteInfo fetches quote information from the quote API
func (c *Client) getQuoteInfo(symbol string) (map[string]interface{}, error) {
	params := url.Values{}
	params.Add("symbols", symbol)
	params.Add("fields", "symbol,currency,currentPrice,regularMarketPrice,longName,shortName,"+
		"sector,country,dividendYield,beta,trailingPE,priceToBook,marketCap,"+
		"targetMeanPrice,targetHighPrice,targetLowPrice,quoteType")

	body, err := c.get(c.baseURL + "/v7/finance/quote?" + params.Encode())
	if err != nil {
		return nil, err
	}

	var result quoteResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if result.QuoteResponse.Error != nil {
		return nil, fmt.Errorf("quote API error: %v", result.QuoteResponse.Error)
	}
	if len(result.QuoteResponse.Result) == 0 {
		return nil, fmt.Errorf("no quote data returned for symbol %s", symbol)
	}

	return result.QuoteResponse.Result[0], nil
}

func (c *Client) get(reqURL string) ([]byte, error) {
	req, err := http.NewRequest("GET", reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	// Set headers to mimic browser
	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
	}

	return body, nil
}
