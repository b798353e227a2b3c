package enums

import (
	"slices"
	"strings"
)

// Currency is an ISO 4217 code the storefront charges in.
type Currency string

const (
	CurrencyUSD Currency = "USD"
	CurrencyCAD Currency = "CAD"
)

var currencies = []Currency{CurrencyUSD, CurrencyCAD}

func normalizeCurrency(s string) string { return strings.ToUpper(strings.TrimSpace(s)) }

func (c Currency) String() string { return string(c) }

func (c Currency) IsValid() bool { return slices.Contains(currencies, c) }

// ParseCurrency accepts any case. Blank input means USD.
func ParseCurrency(value string) (Currency, error) {
	if strings.TrimSpace(value) == "" {
		return CurrencyUSD, nil
	}
	return parse("currency", currencies, value, normalizeCurrency)
}
