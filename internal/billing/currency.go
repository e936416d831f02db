package billing

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/subday/internal/models"
)

// Display is an amount converted into a display currency.
type Display struct {
	Currency models.Currency
	Symbol   string
	Amount   decimal.Decimal
}

// String renders the amount with its symbol, e.g. "€92.00".
func (d Display) String() string {
	return d.Symbol + d.Amount.StringFixed(2)
}

// MarshalJSON renders the amount with two decimals.
func (d Display) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Currency  models.Currency `json:"currency"`
		Symbol    string          `json:"symbol"`
		Amount    string          `json:"amount"`
		Formatted string          `json:"formatted"`
	}{d.Currency, d.Symbol, d.Amount.StringFixed(2), d.String()})
}

func currencyInfo(code models.Currency) models.CurrencyInfo {
	info, ok := models.SupportedCurrencies[code]
	if !ok {
		panic(fmt.Sprintf("billing: unsupported currency %q", code))
	}
	return info
}

// ToDisplay converts a USD amount with the fixed rate table and rounds to two
// decimals. An unknown code is a programming error and panics.
func ToDisplay(amountUSD decimal.Decimal, code models.Currency) Display {
	info := currencyInfo(code)
	return Display{
		Currency: code,
		Symbol:   info.Symbol,
		Amount:   amountUSD.Mul(info.Rate).Round(2),
	}
}

// ToUSD converts an amount expressed in code back to USD, rounded to two decimals.
func ToUSD(amount decimal.Decimal, code models.Currency) decimal.Decimal {
	return amount.Div(currencyInfo(code).Rate).Round(2)
}

// Symbol returns the display symbol of code.
func Symbol(code models.Currency) string {
	return currencyInfo(code).Symbol
}
