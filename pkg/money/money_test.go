package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestFormat(t *testing.T) {
	cases := []struct {
		name     string
		amount   string
		currency string
		want     string
	}{
		{"usd", "1234.56", "USD", "$1,234.56"},
		{"usd zero", "0", "USD", "$0.00"},
		{"negative", "-42.50", "USD", "-$42.50"},
		{"unknown code falls back", "10.00", "ZZZ", "$10.00"},
		{"yen has no minor units", "1234", "JPY", "¥1,234"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Format(decimal.RequireFromString(tc.amount), tc.currency)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestSymbol(t *testing.T) {
	assert.Equal(t, "$", Symbol("USD"))
	assert.Equal(t, "€", Symbol("EUR"))
	assert.Equal(t, "$", Symbol("nope"))
}

func TestValid(t *testing.T) {
	assert.True(t, Valid("USD"))
	assert.False(t, Valid("nope"))
}
