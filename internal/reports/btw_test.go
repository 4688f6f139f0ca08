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

type mockStore struct {
	txs      []*domain.Transaction
	err      error
	gotStart civil.Date
	gotEnd   civil.Date
}

func (m *mockStore) ListTransactionsByUserAndDateRange(ctx context.Context, userID string, start, end civil.Date) ([]*domain.Transaction, error) {
	m.gotStart, m.gotEnd = start, end
	return m.txs, m.err
}

func tx(txType domain.TransactionType, category domain.Category, amount string, vatRate int) *domain.Transaction {
	return &domain.Transaction{
		Date:         civil.Date{Year: 2023, Month: time.February, Day: 10},
		Description:  "test transaction",
		Amount:       decimal.RequireFromString(amount),
		Type:         txType,
		Category:     category,
		VATRate:      vatRate,
		VATTreatment: domain.VATTreatmentDomestic,
	}
}

func rcTx(amount string, loc domain.EULocation) *domain.Transaction {
	t := tx(domain.TypeExpense, domain.CategoryPurchases, amount, domain.DefaultVATRate)
	t.VATTreatment = domain.VATTreatmentReverseCharge
	t.EULocation = loc
	return t
}

func TestQuarterRange(t *testing.T) {
	tests := []struct {
		year    int
		quarter int
		start   civil.Date
		end     civil.Date
	}{
		{2023, 1, civil.Date{Year: 2023, Month: time.January, Day: 1}, civil.Date{Year: 2023, Month: time.March, Day: 31}},
		{2023, 2, civil.Date{Year: 2023, Month: time.April, Day: 1}, civil.Date{Year: 2023, Month: time.June, Day: 30}},
		{2023, 3, civil.Date{Year: 2023, Month: time.July, Day: 1}, civil.Date{Year: 2023, Month: time.September, Day: 30}},
		{2023, 4, civil.Date{Year: 2023, Month: time.October, Day: 1}, civil.Date{Year: 2023, Month: time.December, Day: 31}},
	}

	for _, tt := range tests {
		start, end := QuarterRange(tt.year, tt.quarter)
		assert.Equal(t, tt.start, start, "Q%d start", tt.quarter)
		assert.Equal(t, tt.end, end, "Q%d end", tt.quarter)
	}
}

func TestBTWSummaryDomesticIncome(t *testing.T) {
	store := &mockStore{txs: []*domain.Transaction{
		tx(domain.TypeIncome, domain.CategorySales, "121.00", 21),
		tx(domain.TypeIncome, domain.CategorySales, "109.00", 9),
		tx(domain.TypeIncome, domain.CategorySales, "50.00", 0),
	}}
	engine := NewBTWEngine(store, zerolog.Nop())

	s, err := engine.Summary(context.Background(), "user-1", 2023, 1)
	require.NoError(t, err)

	assert.Equal(t, "100.00", s.Omzet21.StringFixed(2))
	assert.Equal(t, "21.00", s.Btw21.StringFixed(2))
	assert.Equal(t, "100.00", s.Omzet9.StringFixed(2))
	assert.Equal(t, "9.00", s.Btw9.StringFixed(2))
	assert.Equal(t, "50.00", s.Omzet0.StringFixed(2))
	assert.Equal(t, "30.00", s.NetVATPayable.StringFixed(2))
	assert.Equal(t, 3, s.TransactionCount)

	assert.Equal(t, civil.Date{Year: 2023, Month: time.January, Day: 1}, store.gotStart)
	assert.Equal(t, civil.Date{Year: 2023, Month: time.March, Day: 31}, store.gotEnd)
}

func TestBTWSummaryVoorbelasting(t *testing.T) {
	store := &mockStore{txs: []*domain.Transaction{
		tx(domain.TypeExpense, domain.CategoryOffice, "121.00", 21),
		tx(domain.TypeExpense, domain.CategoryTravel, "109.00", 9),
		tx(domain.TypeExpense, domain.CategoryOther, "40.00", 0),
	}}
	engine := NewBTWEngine(store, zerolog.Nop())

	s, err := engine.Summary(context.Background(), "user-1", 2023, 2)
	require.NoError(t, err)

	assert.Equal(t, "30.00", s.Voorbelasting.StringFixed(2))
	assert.Equal(t, "-30.00", s.NetVATPayable.StringFixed(2))
	assert.Equal(t, "0.00", s.Omzet21.StringFixed(2))
}

func TestBTWSummaryReverseCharge(t *testing.T) {
	store := &mockStore{txs: []*domain.Transaction{
		rcTx("100.00", domain.EULocationEU),
		rcTx("200.00", domain.EULocationNonEU),
		rcTx("999.00", ""),
	}}
	engine := NewBTWEngine(store, zerolog.Nop())

	s, err := engine.Summary(context.Background(), "user-1", 2023, 3)
	require.NoError(t, err)

	assert.Equal(t, "100.00", s.ReverseChargeEU.Turnover.StringFixed(2))
	assert.Equal(t, "21.00", s.ReverseChargeEU.VAT.StringFixed(2))
	assert.Equal(t, "200.00", s.ReverseChargeNonEU.Turnover.StringFixed(2))
	assert.Equal(t, "42.00", s.ReverseChargeNonEU.VAT.StringFixed(2))
	assert.Equal(t, 1, s.IncompleteReverseChargeCount)

	// The incomplete row lands in neither rubric bucket nor the deductible total.
	assert.Equal(t, "0.00", s.Voorbelasting.StringFixed(2))
	assert.Equal(t, "63.00", s.NetVATPayable.StringFixed(2))
	assert.Equal(t, 3, s.TransactionCount)
}

func TestBTWSummaryRounding(t *testing.T) {
	// 100.00 incl 21%: exclusive 82.6446..., VAT 17.3553...
	store := &mockStore{txs: []*domain.Transaction{
		tx(domain.TypeIncome, domain.CategorySales, "100.00", 21),
	}}
	engine := NewBTWEngine(store, zerolog.Nop())

	s, err := engine.Summary(context.Background(), "user-1", 2023, 1)
	require.NoError(t, err)

	assert.Equal(t, "82.64", s.Omzet21.StringFixed(2))
	assert.Equal(t, "17.36", s.Btw21.StringFixed(2))
	assert.Equal(t, "17.36", s.NetVATPayable.StringFixed(2))
}

func TestBTWSummaryStoreFailure(t *testing.T) {
	store := &mockStore{err: errors.New("dataset unreachable")}
	engine := NewBTWEngine(store, zerolog.Nop())

	s, err := engine.Summary(context.Background(), "user-1", 2023, 1)
	require.NoError(t, err)

	assert.Equal(t, 2023, s.Year)
	assert.Equal(t, 1, s.Quarter)
	assert.Equal(t, 0, s.TransactionCount)
	assert.True(t, s.NetVATPayable.IsZero())
	assert.True(t, s.Omzet21.IsZero())
}

func TestBTWSummaryInvalidQuarter(t *testing.T) {
	engine := NewBTWEngine(&mockStore{}, zerolog.Nop())

	_, err := engine.Summary(context.Background(), "user-1", 2023, 5)
	assert.Error(t, err)

	_, err = engine.Summary(context.Background(), "user-1", 2023, 0)
	assert.Error(t, err)
}
