package importer

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
	insertFunc func(ctx context.Context, tx *domain.Transaction) error
	inserted   []*domain.Transaction
}

func (m *mockStore) InsertTransaction(ctx context.Context, tx *domain.Transaction) error {
	if m.insertFunc != nil {
		if err := m.insertFunc(ctx, tx); err != nil {
			return err
		}
	}
	m.inserted = append(m.inserted, tx)
	return nil
}

func TestCommit(t *testing.T) {
	store := &mockStore{}
	committer := NewCommitter(store, zerolog.Nop())

	rows := []CommitRow{
		{
			Date:        civil.Date{Year: 2023, Month: time.March, Day: 5},
			Description: "NS GROEP REIZIGERS",
			Amount:      decimal.RequireFromString("45.20"),
			Type:        domain.TypeExpense,
			Category:    domain.CategoryTravel,
			VATRate:     9,
		},
		{
			Date:        civil.Date{Year: 2023, Month: time.March, Day: 7},
			Description: "Client invoice 2023-0012",
			Amount:      decimal.RequireFromString("1210.00"),
			Type:        domain.TypeIncome,
			Category:    domain.CategorySales,
			VATRate:     21,
		},
	}

	res := committer.Commit(context.Background(), "user-1", rows)

	assert.Equal(t, Result{Imported: 2, Skipped: 0}, res)
	require.Len(t, store.inserted, 2)

	tx := store.inserted[0]
	assert.NotEmpty(t, tx.ID)
	assert.Equal(t, "user-1", tx.UserID)
	assert.Equal(t, domain.TypeExpense, tx.Type)
	assert.Equal(t, domain.CategoryTravel, tx.Category)
	assert.Equal(t, 9, tx.VATRate)
	assert.Equal(t, domain.VATTreatmentDomestic, tx.VATTreatment)
	assert.Equal(t, domain.SourceBankImport, tx.Source)
	assert.False(t, tx.CreatedAt.IsZero())
	assert.NotEqual(t, store.inserted[1].ID, tx.ID)
}

func TestCommitNegativeAmountStoredAbsolute(t *testing.T) {
	store := &mockStore{}
	committer := NewCommitter(store, zerolog.Nop())

	res := committer.Commit(context.Background(), "user-1", []CommitRow{
		{
			Date:        civil.Date{Year: 2023, Month: time.March, Day: 5},
			Description: "refund gone wrong",
			Amount:      decimal.RequireFromString("-12.50"),
			Type:        domain.TypeExpense,
			Category:    domain.CategoryOther,
			VATRate:     21,
		},
	})

	assert.Equal(t, Result{Imported: 1}, res)
	require.Len(t, store.inserted, 1)
	assert.Equal(t, "12.50", store.inserted[0].Amount.StringFixed(2))
}

func TestCommitReverseChargeRow(t *testing.T) {
	store := &mockStore{}
	committer := NewCommitter(store, zerolog.Nop())

	res := committer.Commit(context.Background(), "user-1", []CommitRow{
		{
			Date:         civil.Date{Year: 2023, Month: time.March, Day: 5},
			Description:  "GOOGLE CLOUD EMEA",
			Amount:       decimal.RequireFromString("80.00"),
			Type:         domain.TypeExpense,
			Category:     domain.CategoryOffice,
			VATRate:      21,
			VATTreatment: domain.VATTreatmentReverseCharge,
			EULocation:   domain.EULocationEU,
		},
	})

	assert.Equal(t, Result{Imported: 1}, res)
	require.Len(t, store.inserted, 1)
	assert.Equal(t, domain.VATTreatmentReverseCharge, store.inserted[0].VATTreatment)
	assert.Equal(t, domain.EULocationEU, store.inserted[0].EULocation)
}

func TestCommitDropsLocationWithoutReverseCharge(t *testing.T) {
	store := &mockStore{}
	committer := NewCommitter(store, zerolog.Nop())

	res := committer.Commit(context.Background(), "user-1", []CommitRow{
		{
			Date:        civil.Date{Year: 2023, Month: time.March, Day: 5},
			Description: "COOLBLUE",
			Amount:      decimal.RequireFromString("50.00"),
			Type:        domain.TypeExpense,
			Category:    domain.CategoryOffice,
			VATRate:     21,
			EULocation:  domain.EULocationEU,
		},
	})

	assert.Equal(t, Result{Imported: 1}, res)
	require.Len(t, store.inserted, 1)
	assert.Equal(t, domain.VATTreatmentDomestic, store.inserted[0].VATTreatment)
	assert.Empty(t, store.inserted[0].EULocation)
}

func TestCommitPartialFailure(t *testing.T) {
	store := &mockStore{
		insertFunc: func(ctx context.Context, tx *domain.Transaction) error {
			if tx.Description == "boom" {
				return errors.New("insert failed")
			}
			return nil
		},
	}
	committer := NewCommitter(store, zerolog.Nop())

	rows := []CommitRow{
		{Date: civil.Date{Year: 2023, Month: time.March, Day: 1}, Description: "ok one", Amount: decimal.RequireFromString("10.00"), Type: domain.TypeExpense, Category: domain.CategoryOffice, VATRate: 21},
		{Date: civil.Date{Year: 2023, Month: time.March, Day: 2}, Description: "boom", Amount: decimal.RequireFromString("20.00"), Type: domain.TypeExpense, Category: domain.CategoryOffice, VATRate: 21},
		{Date: civil.Date{Year: 2023, Month: time.March, Day: 3}, Description: "ok two", Amount: decimal.RequireFromString("30.00"), Type: domain.TypeExpense, Category: domain.CategoryOffice, VATRate: 21},
	}

	res := committer.Commit(context.Background(), "user-1", rows)

	assert.Equal(t, Result{Imported: 2, Skipped: 1}, res)
	require.Len(t, store.inserted, 2)
	assert.Equal(t, "ok one", store.inserted[0].Description)
	assert.Equal(t, "ok two", store.inserted[1].Description)
}

func TestCommitEmpty(t *testing.T) {
	store := &mockStore{}
	committer := NewCommitter(store, zerolog.Nop())

	res := committer.Commit(context.Background(), "user-1", nil)
	assert.Equal(t, Result{}, res)
	assert.Empty(t, store.inserted)
}
