package importer

import (
	"context"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/mjansen/boekhouding/internal/domain"
)

// TransactionStore is the insert surface the committer writes through.
type TransactionStore interface {
	InsertTransaction(ctx context.Context, tx *domain.Transaction) error
}

// CommitRow is one reviewed row the user selected for import. Category and
// VAT rate carry the user's edits verbatim; the review step already ran
// them through the categorization vocabulary. VATTreatment defaults to
// domestic; the review UI sets reverse charge plus EULocation when the
// user marks a row as a foreign service purchase.
type CommitRow struct {
	Date         civil.Date             `json:"date"`
	Description  string                 `json:"description"`
	Amount       decimal.Decimal        `json:"amount"`
	Type         domain.TransactionType `json:"type"`
	Category     domain.Category        `json:"category"`
	VATRate      int                    `json:"vatRate"`
	VATTreatment domain.VATTreatment    `json:"vatTreatment,omitempty"`
	EULocation   domain.EULocation      `json:"euLocation,omitempty"`
}

// Result reports how a batch commit went. Partial success is a normal
// outcome, not an error.
type Result struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
}

// Committer persists reviewed import rows as transactions.
type Committer struct {
	store TransactionStore
	log   zerolog.Logger
}

// NewCommitter creates a committer writing through the given store.
func NewCommitter(store TransactionStore, log zerolog.Logger) *Committer {
	return &Committer{
		store: store,
		log:   log.With().Str("component", "importer").Logger(),
	}
}

// Commit inserts each row as an independent transaction. A failed insert
// is logged and counted as skipped; the batch keeps going. There is no
// rollback: rows imported before a failure stay imported.
func (c *Committer) Commit(ctx context.Context, userID string, rows []CommitRow) Result {
	var res Result
	now := time.Now().UTC()

	for _, row := range rows {
		treatment := row.VATTreatment
		if treatment == "" {
			treatment = domain.VATTreatmentDomestic
		}
		location := row.EULocation
		if treatment != domain.VATTreatmentReverseCharge {
			location = ""
		}

		tx := &domain.Transaction{
			ID:           uuid.NewString(),
			UserID:       userID,
			Date:         row.Date,
			Description:  row.Description,
			Amount:       row.Amount.Abs(),
			Type:         row.Type,
			Category:     row.Category,
			VATRate:      row.VATRate,
			VATTreatment: treatment,
			EULocation:   location,
			Source:       domain.SourceBankImport,
			CreatedAt:    now,
			UpdatedAt:    now,
		}

		if err := c.store.InsertTransaction(ctx, tx); err != nil {
			res.Skipped++
			c.log.Error().Err(err).
				Str("user_id", userID).
				Str("date", row.Date.String()).
				Str("description", row.Description).
				Msg("Import row failed, continuing with the rest")
			continue
		}
		res.Imported++
	}

	c.log.Info().
		Str("user_id", userID).
		Int("imported", res.Imported).
		Int("skipped", res.Skipped).
		Msg("Import batch committed")

	return res
}
