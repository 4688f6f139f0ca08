package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"
)

const receiptsTable = "receipts"

const receiptColumns = `
	receipt_id,
	user_id,
	gcs_uri,
	original_filename,
	content_type,
	status,
	extraction,
	transaction_id,
	error_message,
	created_ts,
	updated_ts`

// InsertReceiptWithClient inserts a single ReceiptRow using the provided
// BigQuery client.
func InsertReceiptWithClient(ctx context.Context, client *bigquery.Client, dataset string, row *ReceiptRow) error {
	q := client.Query(fmt.Sprintf(`
		INSERT %s.%s (%s)
		VALUES (
			@receipt_id,
			@user_id,
			@gcs_uri,
			@original_filename,
			@content_type,
			@status,
			@extraction,
			@transaction_id,
			@error_message,
			@created_ts,
			@updated_ts
		)
	`, dataset, receiptsTable, receiptColumns))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "receipt_id", Value: row.ReceiptID},
		{Name: "user_id", Value: row.UserID},
		{Name: "gcs_uri", Value: row.GCSURI},
		{Name: "original_filename", Value: row.OriginalFilename},
		{Name: "content_type", Value: row.ContentType},
		{Name: "status", Value: row.Status},
		{Name: "extraction", Value: row.Extraction},
		{Name: "transaction_id", Value: row.TransactionID},
		{Name: "error_message", Value: row.ErrorMessage},
		{Name: "created_ts", Value: row.CreatedTS},
		{Name: "updated_ts", Value: row.UpdatedTS},
	}

	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("InsertReceipt: running insert query: %w", err)
	}

	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("InsertReceipt: waiting for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("InsertReceipt: job error: %w", err)
	}

	return nil
}

// GetReceiptWithClient returns one receipt by ID, scoped to the user.
// Returns nil if no matching row exists.
func GetReceiptWithClient(ctx context.Context, client *bigquery.Client, dataset, userID, receiptID string) (*ReceiptRow, error) {
	q := client.Query(fmt.Sprintf(`
		SELECT %s
		FROM %s.%s
		WHERE user_id = @user_id
		  AND receipt_id = @receipt_id
		LIMIT 1
	`, receiptColumns, dataset, receiptsTable))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
		{Name: "receipt_id", Value: receiptID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("GetReceipt: query read: %w", err)
	}

	var row ReceiptRow
	err = it.Next(&row)
	if err == iterator.Done {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("GetReceipt: iter next: %w", err)
	}

	return &row, nil
}

// ListReceiptsByUserWithClient returns all of a user's receipts, newest
// first.
func ListReceiptsByUserWithClient(ctx context.Context, client *bigquery.Client, dataset, userID string) ([]*ReceiptRow, error) {
	q := client.Query(fmt.Sprintf(`
		SELECT %s
		FROM %s.%s
		WHERE user_id = @user_id
		ORDER BY created_ts DESC
	`, receiptColumns, dataset, receiptsTable))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListReceiptsByUser: query read: %w", err)
	}

	var rows []*ReceiptRow
	for {
		var r ReceiptRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListReceiptsByUser: iter next: %w", err)
		}
		rows = append(rows, &r)
	}

	return rows, nil
}

// MarkReceiptExtractedWithClient stores the extraction draft and moves the
// receipt to status extracted.
func MarkReceiptExtractedWithClient(ctx context.Context, client *bigquery.Client, dataset, userID, receiptID string, extraction bigquery.NullJSON) error {
	q := client.Query(fmt.Sprintf(`
		UPDATE %s.%s
		SET status = @status,
		    extraction = @extraction,
		    error_message = NULL,
		    updated_ts = @updated_ts
		WHERE user_id = @user_id
		  AND receipt_id = @receipt_id
	`, dataset, receiptsTable))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "status", Value: "extracted"},
		{Name: "extraction", Value: extraction},
		{Name: "updated_ts", Value: time.Now().UTC()},
		{Name: "user_id", Value: userID},
		{Name: "receipt_id", Value: receiptID},
	}

	return runReceiptUpdate(ctx, q, "MarkReceiptExtracted")
}

// MarkReceiptFailedWithClient records the extraction failure and moves the
// receipt to status failed.
func MarkReceiptFailedWithClient(ctx context.Context, client *bigquery.Client, dataset, userID, receiptID, errMsg string) error {
	const maxLen = 2000
	if len(errMsg) > maxLen {
		errMsg = errMsg[:maxLen]
	}

	q := client.Query(fmt.Sprintf(`
		UPDATE %s.%s
		SET status = @status,
		    error_message = @error_message,
		    updated_ts = @updated_ts
		WHERE user_id = @user_id
		  AND receipt_id = @receipt_id
	`, dataset, receiptsTable))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "status", Value: "failed"},
		{Name: "error_message", Value: errMsg},
		{Name: "updated_ts", Value: time.Now().UTC()},
		{Name: "user_id", Value: userID},
		{Name: "receipt_id", Value: receiptID},
	}

	return runReceiptUpdate(ctx, q, "MarkReceiptFailed")
}

// MarkReceiptApprovedWithClient links the created transaction and moves
// the receipt to status approved.
func MarkReceiptApprovedWithClient(ctx context.Context, client *bigquery.Client, dataset, userID, receiptID, transactionID string) error {
	q := client.Query(fmt.Sprintf(`
		UPDATE %s.%s
		SET status = @status,
		    transaction_id = @transaction_id,
		    updated_ts = @updated_ts
		WHERE user_id = @user_id
		  AND receipt_id = @receipt_id
	`, dataset, receiptsTable))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "status", Value: "approved"},
		{Name: "transaction_id", Value: transactionID},
		{Name: "updated_ts", Value: time.Now().UTC()},
		{Name: "user_id", Value: userID},
		{Name: "receipt_id", Value: receiptID},
	}

	return runReceiptUpdate(ctx, q, "MarkReceiptApproved")
}

func runReceiptUpdate(ctx context.Context, q *bigquery.Query, op string) error {
	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("%s: running update query: %w", op, err)
	}

	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("%s: waiting for job: %w", op, err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("%s: job error: %w", op, err)
	}

	return nil
}
