package models

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Currency is an ISO 4217 code from the fixed display table.
type Currency string

// Supported display currencies.
const (
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
	CurrencyGBP Currency = "GBP"
	CurrencyINR Currency = "INR"
)

// DefaultCurrency is used until a user picks another one.
const DefaultCurrency = CurrencyUSD

// CurrencyInfo is the display symbol and the fixed rate relative to USD.
type CurrencyInfo struct {
	Symbol string
	Rate   decimal.Decimal
}

// SupportedCurrencies maps each currency to its symbol and USD rate.
// Rates are static; there is no live lookup.
var SupportedCurrencies = map[Currency]CurrencyInfo{
	CurrencyUSD: {Symbol: "$", Rate: decimal.NewFromInt(1)},
	CurrencyEUR: {Symbol: "€", Rate: decimal.RequireFromString("0.92")},
	CurrencyGBP: {Symbol: "£", Rate: decimal.RequireFromString("0.78")},
	CurrencyINR: {Symbol: "₹", Rate: decimal.RequireFromString("83.5")},
}

// ParseCurrency validates a user-supplied currency code.
func ParseCurrency(code string) (Currency, error) {
	c := Currency(strings.ToUpper(strings.TrimSpace(code)))
	if _, ok := SupportedCurrencies[c]; !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidCurrency, code)
	}
	return c, nil
}
