package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/google/uuid"

	"github.com/mjansen/boekhouding/internal/domain"
)

// Repository exposes the store in domain terms over a shared BigQuery
// client. It satisfies the store interfaces declared by the packages that
// consume it (categorize, importer, reports, receipts, invoice, api).
type Repository struct {
	client  *bigquery.Client
	dataset string
}

// NewRepository creates a repository with its own BigQuery client.
func NewRepository(ctx context.Context, projectID, dataset string) (*Repository, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewRepository: creating client: %w", err)
	}
	return &Repository{client: client, dataset: dataset}, nil
}

// Close closes the underlying BigQuery client.
func (r *Repository) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

// InsertTransaction persists one transaction.
func (r *Repository) InsertTransaction(ctx context.Context, t *domain.Transaction) error {
	return InsertTransactionWithClient(ctx, r.client, r.dataset, NewTransactionRow(t))
}

// ListTransactionsByUserAndDateRange returns the user's transactions in
// the inclusive date window, oldest first.
func (r *Repository) ListTransactionsByUserAndDateRange(ctx context.Context, userID string, start, end civil.Date) ([]*domain.Transaction, error) {
	rows, err := ListTransactionsByUserAndDateRangeWithClient(ctx, r.client, r.dataset, userID, start, end)
	if err != nil {
		return nil, err
	}
	txs := make([]*domain.Transaction, len(rows))
	for i, row := range rows {
		txs[i] = row.Transaction()
	}
	return txs, nil
}

// GetTransaction returns one transaction, nil when it does not exist.
func (r *Repository) GetTransaction(ctx context.Context, userID, transactionID string) (*domain.Transaction, error) {
	row, err := GetTransactionWithClient(ctx, r.client, r.dataset, userID, transactionID)
	if err != nil || row == nil {
		return nil, err
	}
	return row.Transaction(), nil
}

// UpdateTransaction rewrites a transaction's mutable fields.
func (r *Repository) UpdateTransaction(ctx context.Context, t *domain.Transaction) error {
	return UpdateTransactionWithClient(ctx, r.client, r.dataset, NewTransactionRow(t))
}

// DeleteTransaction removes one transaction.
func (r *Repository) DeleteTransaction(ctx context.Context, userID, transactionID string) error {
	return DeleteTransactionWithClient(ctx, r.client, r.dataset, userID, transactionID)
}

// RecordModelOutput stores a raw model response for auditing.
func (r *Repository) RecordModelOutput(ctx context.Context, userID, kind, model, raw string) error {
	row := &ModelOutputRow{
		OutputID:  uuid.NewString(),
		UserID:    userID,
		Kind:      kind,
		ModelName: model,
		RawOutput: raw,
		CreatedTS: time.Now().UTC(),
	}
	return InsertModelOutputWithClient(ctx, r.client, r.dataset, row)
}

// InsertReceipt persists one receipt.
func (r *Repository) InsertReceipt(ctx context.Context, rec *domain.Receipt) error {
	row, err := NewReceiptRow(rec)
	if err != nil {
		return err
	}
	return InsertReceiptWithClient(ctx, r.client, r.dataset, row)
}

// GetReceipt returns one receipt, nil when it does not exist.
func (r *Repository) GetReceipt(ctx context.Context, userID, receiptID string) (*domain.Receipt, error) {
	row, err := GetReceiptWithClient(ctx, r.client, r.dataset, userID, receiptID)
	if err != nil || row == nil {
		return nil, err
	}
	return row.Receipt()
}

// ListReceiptsByUser returns all of a user's receipts, newest first.
func (r *Repository) ListReceiptsByUser(ctx context.Context, userID string) ([]*domain.Receipt, error) {
	rows, err := ListReceiptsByUserWithClient(ctx, r.client, r.dataset, userID)
	if err != nil {
		return nil, err
	}
	receipts := make([]*domain.Receipt, len(rows))
	for i, row := range rows {
		receipts[i], err = row.Receipt()
		if err != nil {
			return nil, err
		}
	}
	return receipts, nil
}

// MarkReceiptExtracted stores the extraction draft and flips the receipt
// to extracted.
func (r *Repository) MarkReceiptExtracted(ctx context.Context, userID, receiptID string, draft *domain.ReceiptDraft) error {
	extraction, err := draftJSON(draft)
	if err != nil {
		return fmt.Errorf("MarkReceiptExtracted: encoding extraction: %w", err)
	}
	return MarkReceiptExtractedWithClient(ctx, r.client, r.dataset, userID, receiptID, extraction)
}

// MarkReceiptFailed records an extraction failure.
func (r *Repository) MarkReceiptFailed(ctx context.Context, userID, receiptID, errMsg string) error {
	return MarkReceiptFailedWithClient(ctx, r.client, r.dataset, userID, receiptID, errMsg)
}

// MarkReceiptApproved links the created transaction and flips the receipt
// to approved.
func (r *Repository) MarkReceiptApproved(ctx context.Context, userID, receiptID, transactionID string) error {
	return MarkReceiptApprovedWithClient(ctx, r.client, r.dataset, userID, receiptID, transactionID)
}

// InsertInvoice persists one invoice.
func (r *Repository) InsertInvoice(ctx context.Context, inv *domain.Invoice) error {
	row, err := NewInvoiceRow(inv)
	if err != nil {
		return err
	}
	return InsertInvoiceWithClient(ctx, r.client, r.dataset, row)
}

// GetInvoice returns one invoice, nil when it does not exist.
func (r *Repository) GetInvoice(ctx context.Context, userID, invoiceID string) (*domain.Invoice, error) {
	row, err := GetInvoiceWithClient(ctx, r.client, r.dataset, userID, invoiceID)
	if err != nil || row == nil {
		return nil, err
	}
	return row.Invoice()
}

// ListInvoicesByUser returns all of a user's invoices.
func (r *Repository) ListInvoicesByUser(ctx context.Context, userID string) ([]*domain.Invoice, error) {
	rows, err := ListInvoicesByUserWithClient(ctx, r.client, r.dataset, userID)
	if err != nil {
		return nil, err
	}
	invoices := make([]*domain.Invoice, len(rows))
	for i, row := range rows {
		invoices[i], err = row.Invoice()
		if err != nil {
			return nil, err
		}
	}
	return invoices, nil
}

// MaxInvoiceSequence returns the highest invoice sequence issued in the
// year, zero when none.
func (r *Repository) MaxInvoiceSequence(ctx context.Context, userID string, year int) (int, error) {
	return MaxInvoiceSequenceWithClient(ctx, r.client, r.dataset, userID, year)
}

// UpdateInvoiceStatus moves an invoice to a new status.
func (r *Repository) UpdateInvoiceStatus(ctx context.Context, userID, invoiceID string, status domain.InvoiceStatus) error {
	return UpdateInvoiceStatusWithClient(ctx, r.client, r.dataset, userID, invoiceID, string(status))
}
