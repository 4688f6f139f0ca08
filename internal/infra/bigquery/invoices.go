package bigquery

import (
	"encoding/json"
	"fmt"
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"

	"github.com/mjansen/boekhouding/internal/domain"
)

type InvoiceRow struct {
	InvoiceID string `bigquery:"invoice_id"` // REQUIRED
	UserID    string `bigquery:"user_id"`    // REQUIRED

	InvoiceNumber string `bigquery:"invoice_number"` // REQUIRED, "<year>-<seq>"
	InvoiceYear   int64  `bigquery:"invoice_year"`   // REQUIRED
	InvoiceSeq    int64  `bigquery:"invoice_seq"`    // REQUIRED

	CustomerName    string              `bigquery:"customer_name"`    // REQUIRED
	CustomerAddress bigquery.NullString `bigquery:"customer_address"` // NULLABLE

	IssueDate civil.Date `bigquery:"issue_date"` // REQUIRED DATE
	DueDate   civil.Date `bigquery:"due_date"`   // REQUIRED DATE

	Lines bigquery.NullJSON `bigquery:"lines"` // REQUIRED JSON

	Subtotal  *big.Rat `bigquery:"subtotal"`   // REQUIRED NUMERIC
	VATAmount *big.Rat `bigquery:"vat_amount"` // REQUIRED NUMERIC
	Total     *big.Rat `bigquery:"total"`      // REQUIRED NUMERIC

	Status string `bigquery:"status"` // draft | sent | paid

	CreatedTS time.Time `bigquery:"created_ts"` // REQUIRED
}

// NewInvoiceRow converts a domain invoice into its stored shape.
func NewInvoiceRow(inv *domain.Invoice) (*InvoiceRow, error) {
	lines, err := json.Marshal(inv.Lines)
	if err != nil {
		return nil, fmt.Errorf("NewInvoiceRow: encoding lines: %w", err)
	}
	return &InvoiceRow{
		InvoiceID:       inv.ID,
		UserID:          inv.UserID,
		InvoiceNumber:   inv.Number,
		InvoiceYear:     int64(inv.Year),
		InvoiceSeq:      int64(inv.Sequence),
		CustomerName:    inv.CustomerName,
		CustomerAddress: nullString(inv.CustomerAddress),
		IssueDate:       inv.IssueDate,
		DueDate:         inv.DueDate,
		Lines:           bigquery.NullJSON{JSONVal: string(lines), Valid: true},
		Subtotal:        ratFromDecimal(inv.Subtotal),
		VATAmount:       ratFromDecimal(inv.VATAmount),
		Total:           ratFromDecimal(inv.Total),
		Status:          string(inv.Status),
		CreatedTS:       inv.CreatedAt,
	}, nil
}

// Invoice converts a stored row back into the domain shape.
func (r *InvoiceRow) Invoice() (*domain.Invoice, error) {
	lines, err := linesFromJSON(r.Lines)
	if err != nil {
		return nil, fmt.Errorf("InvoiceRow: decoding lines for %s: %w", r.InvoiceID, err)
	}
	return &domain.Invoice{
		ID:              r.InvoiceID,
		UserID:          r.UserID,
		Number:          r.InvoiceNumber,
		Year:            int(r.InvoiceYear),
		Sequence:        int(r.InvoiceSeq),
		CustomerName:    r.CustomerName,
		CustomerAddress: r.CustomerAddress.StringVal,
		IssueDate:       r.IssueDate,
		DueDate:         r.DueDate,
		Lines:           lines,
		Subtotal:        decimalFromRat(r.Subtotal),
		VATAmount:       decimalFromRat(r.VATAmount),
		Total:           decimalFromRat(r.Total),
		Status:          domain.InvoiceStatus(r.Status),
		CreatedAt:       r.CreatedTS,
	}, nil
}

func linesFromJSON(v bigquery.NullJSON) ([]domain.InvoiceLine, error) {
	if !v.Valid {
		return nil, nil
	}

	var raw []byte
	switch val := v.JSONVal.(type) {
	case string:
		raw = []byte(val)
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return nil, err
		}
		raw = b
	}

	var lines []domain.InvoiceLine
	if err := json.Unmarshal(raw, &lines); err != nil {
		return nil, err
	}
	return lines, nil
}
