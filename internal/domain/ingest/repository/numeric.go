package repository

import "github.com/shopspring/decimal"

// parseNumeric converts a NUMERIC column selected as text. Amounts travel as
// strings so no float precision is lost between Postgres and decimal.
func parseNumeric(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(s)
}
