package reports

import (
	"context"
	"sort"
	"time"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/mjansen/boekhouding/internal/domain"
)

// MonthTotals is one month's VAT-exclusive revenue and expense totals.
type MonthTotals struct {
	Month  int             `json:"month"`
	Omzet  decimal.Decimal `json:"omzet"`
	Kosten decimal.Decimal `json:"kosten"`
}

// CategoryAmount is one category's VAT-exclusive total.
type CategoryAmount struct {
	Category domain.Category `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
}

// IBSummary holds the yearly figures needed to prepare the income tax
// return. Every amount is VAT-exclusive.
type IBSummary struct {
	Year int `json:"year"`

	Omzet  decimal.Decimal `json:"omzet"`
	Kosten decimal.Decimal `json:"kosten"`
	Winst  decimal.Decimal `json:"winst"`

	Monthly []MonthTotals `json:"monthly"`

	OmzetPerCategory  []CategoryAmount `json:"omzetPerCategory"`
	KostenPerCategory []CategoryAmount `json:"kostenPerCategory"`

	KostenVolledigAftrekbaar decimal.Decimal `json:"kostenVolledigAftrekbaar"`
	KostenBeperktAftrekbaar  decimal.Decimal `json:"kostenBeperktAftrekbaar"`
	KostenNietAftrekbaar     decimal.Decimal `json:"kostenNietAftrekbaar"`
}

// IBEngine computes yearly income tax aggregates from stored transactions.
type IBEngine struct {
	store TransactionStore
	log   zerolog.Logger
}

// NewIBEngine creates an income tax aggregation engine.
func NewIBEngine(store TransactionStore, log zerolog.Logger) *IBEngine {
	return &IBEngine{
		store: store,
		log:   log.With().Str("component", "reports").Logger(),
	}
}

// deductibleShare is the deductible fraction of limited-deductibility
// expense categories.
var deductibleShare = decimal.New(80, -2)

// Summary computes the income tax aggregates for one calendar year. The
// same degrade rule as the VAT summary applies: a store failure yields a
// zero summary and a log entry, never an error to the caller.
func (e *IBEngine) Summary(ctx context.Context, userID string, year int) (*IBSummary, error) {
	summary := &IBSummary{
		Year:              year,
		Monthly:           make([]MonthTotals, 12),
		OmzetPerCategory:  []CategoryAmount{},
		KostenPerCategory: []CategoryAmount{},
	}
	for i := range summary.Monthly {
		summary.Monthly[i].Month = i + 1
	}

	start := civil.Date{Year: year, Month: time.January, Day: 1}
	end := civil.Date{Year: year, Month: time.December, Day: 31}
	txs, err := e.store.ListTransactionsByUserAndDateRange(ctx, userID, start, end)
	if err != nil {
		e.log.Error().Err(err).
			Str("user_id", userID).
			Int("year", year).
			Msg("IB query failed, returning zero summary")
		return summary, nil
	}

	var (
		omzet, kosten     decimal.Decimal
		monthOmzet        [12]decimal.Decimal
		monthKosten       [12]decimal.Decimal
		omzetByCategory   = map[domain.Category]decimal.Decimal{}
		kostenByCategory  = map[domain.Category]decimal.Decimal{}
		volledig, beperkt decimal.Decimal
	)

	for _, t := range txs {
		amount := exclusiveAmount(t)
		month := int(t.Date.Month) - 1
		if month < 0 || month > 11 {
			continue
		}

		if t.Type == domain.TypeIncome {
			omzet = omzet.Add(amount)
			monthOmzet[month] = monthOmzet[month].Add(amount)
			omzetByCategory[t.Category] = omzetByCategory[t.Category].Add(amount)
			continue
		}

		kosten = kosten.Add(amount)
		monthKosten[month] = monthKosten[month].Add(amount)
		kostenByCategory[t.Category] = kostenByCategory[t.Category].Add(amount)
		if t.Category.LimitedDeductible() {
			beperkt = beperkt.Add(amount)
		} else {
			volledig = volledig.Add(amount)
		}
	}

	summary.Omzet = omzet.Round(2)
	summary.Kosten = kosten.Round(2)
	summary.Winst = summary.Omzet.Sub(summary.Kosten)
	for i := range summary.Monthly {
		summary.Monthly[i].Omzet = monthOmzet[i].Round(2)
		summary.Monthly[i].Kosten = monthKosten[i].Round(2)
	}
	summary.OmzetPerCategory = categoryBreakdown(omzetByCategory)
	summary.KostenPerCategory = categoryBreakdown(kostenByCategory)
	summary.KostenVolledigAftrekbaar = volledig.Round(2)
	summary.KostenBeperktAftrekbaar = beperkt.Mul(deductibleShare).Round(2)
	summary.KostenNietAftrekbaar = beperkt.Sub(beperkt.Mul(deductibleShare)).Round(2)

	return summary, nil
}

// exclusiveAmount strips VAT from a stored amount. Reverse-charge expenses
// are stored VAT-exclusive already; everything else is inclusive at the
// row's rate.
func exclusiveAmount(t *domain.Transaction) decimal.Decimal {
	if t.Type == domain.TypeExpense && t.VATTreatment == domain.VATTreatmentReverseCharge {
		return t.Amount
	}
	switch t.VATRate {
	case domain.VATRateHigh, domain.VATRateLow:
		hundred := decimal.NewFromInt(100)
		rate := decimal.NewFromInt(int64(t.VATRate))
		return t.Amount.Mul(hundred).Div(hundred.Add(rate))
	default:
		return t.Amount
	}
}

// categoryBreakdown flattens a category accumulator into rounded entries
// sorted largest first, name order on equal amounts.
func categoryBreakdown(totals map[domain.Category]decimal.Decimal) []CategoryAmount {
	entries := make([]CategoryAmount, 0, len(totals))
	for category, amount := range totals {
		entries = append(entries, CategoryAmount{Category: category, Amount: amount.Round(2)})
	}
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].Amount.Equal(entries[j].Amount) {
			return entries[i].Amount.GreaterThan(entries[j].Amount)
		}
		return entries[i].Category < entries[j].Category
	})
	return entries
}
