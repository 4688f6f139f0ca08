package bankimport

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseCommaAmount parses a Dutch-formatted amount where dots separate
// thousands and the comma is the decimal mark: "1.234,56" becomes 1234.56.
// A leading plus sign is tolerated. Malformed input yields zero, never an
// error; a bad amount must not take the surrounding row or batch down.
func ParseCommaAmount(s string) decimal.Decimal {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "+")
	s = strings.ReplaceAll(s, ".", "")
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// ParseDotAmount parses a plain signed dot-decimal amount. Same contract
// as ParseCommaAmount: malformed input yields zero.
func ParseDotAmount(s string) decimal.Decimal {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "+")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
