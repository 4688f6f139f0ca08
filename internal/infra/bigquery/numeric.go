package bigquery

import (
	"math/big"

	"cloud.google.com/go/bigquery"
	"github.com/shopspring/decimal"
)

// ratFromDecimal converts an amount to the NUMERIC wire type, normalized
// to cents.
func ratFromDecimal(d decimal.Decimal) *big.Rat {
	return d.Round(2).Rat()
}

// decimalFromRat converts a NUMERIC value back to a decimal amount at two
// decimal places. A nil rat reads as zero.
func decimalFromRat(r *big.Rat) decimal.Decimal {
	if r == nil {
		return decimal.Decimal{}
	}
	return decimal.NewFromBigRat(r, 2)
}

// nullString wraps a string column that stores NULL for the empty string.
func nullString(s string) bigquery.NullString {
	return bigquery.NullString{StringVal: s, Valid: s != ""}
}
