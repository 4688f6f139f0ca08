package reports

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/mjansen/boekhouding/internal/domain"
)

// TransactionStore is the read surface the report engines aggregate over.
type TransactionStore interface {
	ListTransactionsByUserAndDateRange(ctx context.Context, userID string, start, end civil.Date) ([]*domain.Transaction, error)
}

// RCBucket is one reverse-charge rubric line: the VAT-exclusive turnover
// and the VAT computed on it.
type RCBucket struct {
	Turnover decimal.Decimal `json:"turnover"`
	VAT      decimal.Decimal `json:"vat"`
}

// BTWSummary holds the quarterly VAT return rubric values. Field names
// follow the Belastingdienst rubric labels: 1a (21%), 1b (9%), 1e (0%),
// 4a/4b (reverse charge from outside/inside the EU), 5b (voorbelasting)
// and 5c (net payable).
type BTWSummary struct {
	Year    int `json:"year"`
	Quarter int `json:"quarter"`

	Omzet21 decimal.Decimal `json:"omzet21"`
	Btw21   decimal.Decimal `json:"btw21"`
	Omzet9  decimal.Decimal `json:"omzet9"`
	Btw9    decimal.Decimal `json:"btw9"`
	Omzet0  decimal.Decimal `json:"omzet0"`

	ReverseChargeEU    RCBucket `json:"reverseChargeEu"`
	ReverseChargeNonEU RCBucket `json:"reverseChargeNonEu"`

	Voorbelasting decimal.Decimal `json:"voorbelasting"`
	NetVATPayable decimal.Decimal `json:"netVatPayable"`

	TransactionCount             int `json:"transactionCount"`
	IncompleteReverseChargeCount int `json:"incompleteReverseChargeCount"`
}

// BTWEngine computes quarterly VAT summaries from stored transactions.
type BTWEngine struct {
	store TransactionStore
	log   zerolog.Logger
}

// NewBTWEngine creates a VAT aggregation engine.
func NewBTWEngine(store TransactionStore, log zerolog.Logger) *BTWEngine {
	return &BTWEngine{
		store: store,
		log:   log.With().Str("component", "reports").Logger(),
	}
}

// QuarterRange returns the inclusive first and last calendar day of the
// given quarter.
func QuarterRange(year, quarter int) (civil.Date, civil.Date) {
	startMonth := time.Month((quarter-1)*3 + 1)
	start := civil.Date{Year: year, Month: startMonth, Day: 1}
	// Day zero of the month after the quarter normalizes to its last day.
	end := civil.DateOf(time.Date(year, startMonth+3, 0, 0, 0, 0, 0, time.UTC))
	return start, end
}

// Summary computes the VAT return rubrics for one calendar quarter.
// Stored income and domestic expense amounts are VAT-inclusive;
// reverse-charge expense amounts are VAT-exclusive. A store failure
// degrades to an all-zero summary so report pages still render; the error
// only reaches the log.
func (e *BTWEngine) Summary(ctx context.Context, userID string, year, quarter int) (*BTWSummary, error) {
	if quarter < 1 || quarter > 4 {
		return nil, fmt.Errorf("quarter must be between 1 and 4, got %d", quarter)
	}

	summary := &BTWSummary{Year: year, Quarter: quarter}

	start, end := QuarterRange(year, quarter)
	txs, err := e.store.ListTransactionsByUserAndDateRange(ctx, userID, start, end)
	if err != nil {
		e.log.Error().Err(err).
			Str("user_id", userID).
			Int("year", year).
			Int("quarter", quarter).
			Msg("BTW query failed, returning zero summary")
		return summary, nil
	}

	hundred := decimal.NewFromInt(100)
	standardRate := decimal.NewFromInt(int64(domain.DefaultVATRate))

	var (
		omzet21, btw21 decimal.Decimal
		omzet9, btw9   decimal.Decimal
		omzet0         decimal.Decimal
		rcEU, rcNonEU  RCBucket
		voorbelasting  decimal.Decimal
	)

	for _, t := range txs {
		summary.TransactionCount++

		switch {
		case t.Type == domain.TypeIncome:
			switch t.VATRate {
			case domain.VATRateHigh, domain.VATRateLow:
				rate := decimal.NewFromInt(int64(t.VATRate))
				excl := t.Amount.Mul(hundred).Div(hundred.Add(rate))
				vat := t.Amount.Sub(excl)
				if t.VATRate == domain.VATRateHigh {
					omzet21 = omzet21.Add(excl)
					btw21 = btw21.Add(vat)
				} else {
					omzet9 = omzet9.Add(excl)
					btw9 = btw9.Add(vat)
				}
			default:
				omzet0 = omzet0.Add(t.Amount)
			}

		case t.VATTreatment == domain.VATTreatmentReverseCharge:
			// Reverse charge is always computed at the standard rate.
			vat := t.Amount.Mul(standardRate).Div(hundred)
			switch t.EULocation {
			case domain.EULocationEU:
				rcEU.Turnover = rcEU.Turnover.Add(t.Amount)
				rcEU.VAT = rcEU.VAT.Add(vat)
			case domain.EULocationNonEU:
				rcNonEU.Turnover = rcNonEU.Turnover.Add(t.Amount)
				rcNonEU.VAT = rcNonEU.VAT.Add(vat)
			default:
				summary.IncompleteReverseChargeCount++
			}

		default:
			switch t.VATRate {
			case domain.VATRateHigh, domain.VATRateLow:
				rate := decimal.NewFromInt(int64(t.VATRate))
				voorbelasting = voorbelasting.Add(t.Amount.Mul(rate).Div(hundred.Add(rate)))
			}
		}
	}

	summary.Omzet21 = omzet21.Round(2)
	summary.Btw21 = btw21.Round(2)
	summary.Omzet9 = omzet9.Round(2)
	summary.Btw9 = btw9.Round(2)
	summary.Omzet0 = omzet0.Round(2)
	summary.ReverseChargeEU = RCBucket{Turnover: rcEU.Turnover.Round(2), VAT: rcEU.VAT.Round(2)}
	summary.ReverseChargeNonEU = RCBucket{Turnover: rcNonEU.Turnover.Round(2), VAT: rcNonEU.VAT.Round(2)}
	summary.Voorbelasting = voorbelasting.Round(2)

	// Net payable is derived from the rounded rubrics so the published
	// figures always add up exactly.
	summary.NetVATPayable = summary.Btw21.
		Add(summary.Btw9).
		Add(summary.ReverseChargeEU.VAT).
		Add(summary.ReverseChargeNonEU.VAT).
		Sub(summary.Voorbelasting)

	return summary, nil
}
