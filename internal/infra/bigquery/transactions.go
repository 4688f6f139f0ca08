package bigquery

import (
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"

	"github.com/mjansen/boekhouding/internal/domain"
)

type TransactionRow struct {
	TransactionID string `bigquery:"transaction_id"` // REQUIRED
	UserID        string `bigquery:"user_id"`        // REQUIRED

	TransactionDate civil.Date `bigquery:"transaction_date"` // REQUIRED DATE

	Amount *big.Rat `bigquery:"amount"` // REQUIRED NUMERIC, absolute value

	TransactionType string `bigquery:"transaction_type"` // INCOME | EXPENSE
	Category        string `bigquery:"category"`
	VATRate         int64  `bigquery:"vat_rate"`

	VATTreatment string              `bigquery:"vat_treatment"`
	EULocation   bigquery.NullString `bigquery:"eu_location"` // NULLABLE, reverse charge only

	Description string `bigquery:"description"`
	Source      string `bigquery:"source"`

	AttachmentURI bigquery.NullString `bigquery:"attachment_uri"` // NULLABLE

	CreatedTS time.Time `bigquery:"created_ts"` // REQUIRED
	UpdatedTS time.Time `bigquery:"updated_ts"` // REQUIRED
}

// NewTransactionRow converts a domain transaction into its stored shape.
func NewTransactionRow(t *domain.Transaction) *TransactionRow {
	return &TransactionRow{
		TransactionID:   t.ID,
		UserID:          t.UserID,
		TransactionDate: t.Date,
		Amount:          ratFromDecimal(t.Amount),
		TransactionType: string(t.Type),
		Category:        string(t.Category),
		VATRate:         int64(t.VATRate),
		VATTreatment:    string(t.VATTreatment),
		EULocation:      nullString(string(t.EULocation)),
		Description:     t.Description,
		Source:          t.Source,
		AttachmentURI:   nullString(t.AttachmentURI),
		CreatedTS:       t.CreatedAt,
		UpdatedTS:       t.UpdatedAt,
	}
}

// Transaction converts a stored row back into the domain shape.
func (r *TransactionRow) Transaction() *domain.Transaction {
	return &domain.Transaction{
		ID:            r.TransactionID,
		UserID:        r.UserID,
		Date:          r.TransactionDate,
		Description:   r.Description,
		Amount:        decimalFromRat(r.Amount),
		Type:          domain.TransactionType(r.TransactionType),
		Category:      domain.Category(r.Category),
		VATRate:       int(r.VATRate),
		VATTreatment:  domain.VATTreatment(r.VATTreatment),
		EULocation:    domain.EULocation(r.EULocation.StringVal),
		Source:        r.Source,
		AttachmentURI: r.AttachmentURI.StringVal,
		CreatedAt:     r.CreatedTS,
		UpdatedAt:     r.UpdatedTS,
	}
}
