// Package money renders decimal amounts for display using ISO 4217 currency
// metadata. Arithmetic stays in shopspring/decimal; this package only owns
// formatting at the edges.
package money

import (
	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// USD is the fallback currency when a configured code is unknown.
const USD = "USD"

// Format renders the amount with the currency's symbol and grouping, e.g.
// "$1,234.56". Unknown currency codes fall back to USD.
func Format(amount decimal.Decimal, currencyCode string) string {
	currency := money.GetCurrency(currencyCode)
	if currency == nil {
		currency = money.GetCurrency(USD)
	}

	minor := amount.Shift(int32(currency.Fraction)).Round(0).IntPart()
	return money.New(minor, currency.Code).Display()
}

// Symbol returns the currency's grapheme, e.g. "$" for USD. Unknown codes
// fall back to USD.
func Symbol(currencyCode string) string {
	currency := money.GetCurrency(currencyCode)
	if currency == nil {
		currency = money.GetCurrency(USD)
	}
	return currency.Grapheme
}

// Valid reports whether go-money knows the currency code.
func Valid(currencyCode string) bool {
	return money.GetCurrency(currencyCode) != nil
}
