package domain

import "strings"

// Exchange-suffix classification, following Yahoo Finance symbol conventions.
// Symbols without a suffix are treated as US-listed.

var suffixToRegion = map[string]string{
	".T":  "Japan",
	".JP": "Japan",
	".SI": "Singapore",
	".BK": "Thailand",
	".KL": "Malaysia",
	".JK": "Indonesia",
	".HK": "Hong Kong",
	".KS": "South Korea",
	".TW": "Taiwan",
	".SS": "China",
	".SZ": "China",
	".L":  "UK",
	".DE": "Germany",
	".PA": "France",
	".AS": "Netherlands",
	".TO": "Canada",
	".AX": "Australia",
	".SA": "Brazil",
	".NS": "India",
}

var suffixToCurrency = map[string]string{
	".T":  "JPY",
	".JP": "JPY",
	".SI": "SGD",
	".BK": "THB",
	".KL": "MYR",
	".JK": "IDR",
	".HK": "HKD",
	".KS": "KRW",
	".TW": "TWD",
	".SS": "CNY",
	".SZ": "CNY",
	".L":  "GBP",
	".DE": "EUR",
	".PA": "EUR",
	".AS": "EUR",
	".TO": "CAD",
	".AX": "AUD",
	".SA": "BRL",
	".NS": "INR",
}

func symbolSuffix(symbol string) string {
	idx := strings.LastIndex(symbol, ".")
	if idx < 0 {
		return ""
	}
	return strings.ToUpper(symbol[idx:])
}

// InferRegion derives a region tag from the exchange suffix of a symbol.
// Cash symbols map to the region of their currency's economy only when
// obvious (JPY -> Japan); otherwise "Global".
func InferRegion(symbol string) string {
	if IsCashSymbol(symbol) {
		if CashCurrency(symbol) == CurrencyJPY {
			return "Japan"
		}
		return "Global"
	}
	if region, ok := suffixToRegion[symbolSuffix(symbol)]; ok {
		return region
	}
	return "US"
}

// InferCurrency derives the trading currency from the exchange suffix
func InferCurrency(symbol string) string {
	if IsCashSymbol(symbol) {
		return string(CashCurrency(symbol))
	}
	if currency, ok := suffixToCurrency[symbolSuffix(symbol)]; ok {
		return currency
	}
	return "USD"
}

// FXPairSymbol returns the quote symbol used to convert a currency into
// JPY, or "" when no conversion is needed.
func FXPairSymbol(currency string) string {
	if strings.EqualFold(currency, "JPY") || currency == "" {
		return ""
	}
	return strings.ToUpper(currency) + "JPY=X"
}
