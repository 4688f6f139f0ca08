package reports

import (
	"context"
	"errors"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mjansen/boekhouding/internal/domain"
)

func txOn(month time.Month, txType domain.TransactionType, category domain.Category, amount string, vatRate int) *domain.Transaction {
	t := tx(txType, category, amount, vatRate)
	t.Date = civil.Date{Year: 2023, Month: month, Day: 15}
	return t
}

func TestIBSummaryTotals(t *testing.T) {
	rc := rcTx("50.00", domain.EULocationEU)
	rc.Date = civil.Date{Year: 2023, Month: time.May, Day: 2}

	store := &mockStore{txs: []*domain.Transaction{
		txOn(time.March, domain.TypeIncome, domain.CategorySales, "121.00", 21),
		rc,
	}}
	engine := NewIBEngine(store, zerolog.Nop())

	s, err := engine.Summary(context.Background(), "user-1", 2023)
	require.NoError(t, err)

	assert.Equal(t, "100.00", s.Omzet.StringFixed(2))
	assert.Equal(t, "50.00", s.Kosten.StringFixed(2))
	assert.Equal(t, "50.00", s.Winst.StringFixed(2))

	assert.Equal(t, civil.Date{Year: 2023, Month: time.January, Day: 1}, store.gotStart)
	assert.Equal(t, civil.Date{Year: 2023, Month: time.December, Day: 31}, store.gotEnd)
}

func TestIBSummaryMonthly(t *testing.T) {
	store := &mockStore{txs: []*domain.Transaction{
		txOn(time.March, domain.TypeIncome, domain.CategorySales, "121.00", 21),
		txOn(time.March, domain.TypeExpense, domain.CategoryOffice, "60.50", 21),
		txOn(time.November, domain.TypeIncome, domain.CategorySales, "218.00", 9),
	}}
	engine := NewIBEngine(store, zerolog.Nop())

	s, err := engine.Summary(context.Background(), "user-1", 2023)
	require.NoError(t, err)

	require.Len(t, s.Monthly, 12)
	for i, m := range s.Monthly {
		assert.Equal(t, i+1, m.Month)
	}

	assert.Equal(t, "100.00", s.Monthly[2].Omzet.StringFixed(2))
	assert.Equal(t, "50.00", s.Monthly[2].Kosten.StringFixed(2))
	assert.Equal(t, "200.00", s.Monthly[10].Omzet.StringFixed(2))
	assert.Equal(t, "0.00", s.Monthly[0].Omzet.StringFixed(2))
	assert.Equal(t, "0.00", s.Monthly[11].Kosten.StringFixed(2))
}

func TestIBSummaryCategoryBreakdown(t *testing.T) {
	store := &mockStore{txs: []*domain.Transaction{
		txOn(time.March, domain.TypeExpense, domain.CategoryOffice, "121.00", 21),
		txOn(time.April, domain.TypeExpense, domain.CategoryTravel, "242.00", 21),
		txOn(time.May, domain.TypeExpense, domain.CategoryOther, "121.00", 21),
		txOn(time.June, domain.TypeIncome, domain.CategorySales, "121.00", 21),
	}}
	engine := NewIBEngine(store, zerolog.Nop())

	s, err := engine.Summary(context.Background(), "user-1", 2023)
	require.NoError(t, err)

	require.Len(t, s.KostenPerCategory, 3)
	assert.Equal(t, domain.CategoryTravel, s.KostenPerCategory[0].Category)
	assert.Equal(t, "200.00", s.KostenPerCategory[0].Amount.StringFixed(2))
	// Office and Other tie at 100.00; names break the tie.
	assert.Equal(t, domain.CategoryOffice, s.KostenPerCategory[1].Category)
	assert.Equal(t, domain.CategoryOther, s.KostenPerCategory[2].Category)

	require.Len(t, s.OmzetPerCategory, 1)
	assert.Equal(t, domain.CategorySales, s.OmzetPerCategory[0].Category)
	assert.Equal(t, "100.00", s.OmzetPerCategory[0].Amount.StringFixed(2))
}

func TestIBSummaryDeductibility(t *testing.T) {
	store := &mockStore{txs: []*domain.Transaction{
		txOn(time.March, domain.TypeExpense, domain.CategoryOffice, "121.00", 21),
		txOn(time.April, domain.TypeExpense, domain.CategoryMeals, "109.00", 9),
		txOn(time.May, domain.TypeExpense, domain.CategoryRepresentation, "54.50", 9),
	}}
	engine := NewIBEngine(store, zerolog.Nop())

	s, err := engine.Summary(context.Background(), "user-1", 2023)
	require.NoError(t, err)

	// Office 100.00 fully deductible; Meals 100.00 + Representation 50.00
	// limited: 120.00 deductible, 30.00 disallowed.
	assert.Equal(t, "100.00", s.KostenVolledigAftrekbaar.StringFixed(2))
	assert.Equal(t, "120.00", s.KostenBeperktAftrekbaar.StringFixed(2))
	assert.Equal(t, "30.00", s.KostenNietAftrekbaar.StringFixed(2))
	assert.Equal(t, "250.00", s.Kosten.StringFixed(2))
}

func TestIBSummaryZeroRatePassesThrough(t *testing.T) {
	store := &mockStore{txs: []*domain.Transaction{
		txOn(time.July, domain.TypeIncome, domain.CategorySales, "80.00", 0),
	}}
	engine := NewIBEngine(store, zerolog.Nop())

	s, err := engine.Summary(context.Background(), "user-1", 2023)
	require.NoError(t, err)
	assert.Equal(t, "80.00", s.Omzet.StringFixed(2))
}

func TestIBSummaryStoreFailure(t *testing.T) {
	store := &mockStore{err: errors.New("dataset unreachable")}
	engine := NewIBEngine(store, zerolog.Nop())

	s, err := engine.Summary(context.Background(), "user-1", 2023)
	require.NoError(t, err)

	assert.Equal(t, 2023, s.Year)
	assert.True(t, s.Omzet.IsZero())
	assert.True(t, s.Winst.IsZero())
	require.Len(t, s.Monthly, 12)
	assert.Equal(t, 1, s.Monthly[0].Month)
	assert.NotNil(t, s.OmzetPerCategory)
	assert.Empty(t, s.KostenPerCategory)
}
