package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"google.golang.org/api/iterator"
)

const transactionsTable = "transactions"

const transactionColumns = `
	transaction_id,
	user_id,
	transaction_date,
	amount,
	transaction_type,
	category,
	vat_rate,
	vat_treatment,
	eu_location,
	description,
	source,
	attachment_uri,
	created_ts,
	updated_ts`

// InsertTransactionWithClient inserts a single TransactionRow using the
// provided BigQuery client. Uses DML INSERT rather than the streaming
// inserter so the row is immediately updatable and deletable.
func InsertTransactionWithClient(ctx context.Context, client *bigquery.Client, dataset string, row *TransactionRow) error {
	q := client.Query(fmt.Sprintf(`
		INSERT %s.%s (%s)
		VALUES (
			@transaction_id,
			@user_id,
			@transaction_date,
			@amount,
			@transaction_type,
			@category,
			@vat_rate,
			@vat_treatment,
			@eu_location,
			@description,
			@source,
			@attachment_uri,
			@created_ts,
			@updated_ts
		)
	`, dataset, transactionsTable, transactionColumns))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "transaction_id", Value: row.TransactionID},
		{Name: "user_id", Value: row.UserID},
		{Name: "transaction_date", Value: row.TransactionDate},
		{Name: "amount", Value: row.Amount},
		{Name: "transaction_type", Value: row.TransactionType},
		{Name: "category", Value: row.Category},
		{Name: "vat_rate", Value: row.VATRate},
		{Name: "vat_treatment", Value: row.VATTreatment},
		{Name: "eu_location", Value: row.EULocation},
		{Name: "description", Value: row.Description},
		{Name: "source", Value: row.Source},
		{Name: "attachment_uri", Value: row.AttachmentURI},
		{Name: "created_ts", Value: row.CreatedTS},
		{Name: "updated_ts", Value: row.UpdatedTS},
	}

	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("InsertTransaction: running insert query: %w", err)
	}

	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("InsertTransaction: waiting for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("InsertTransaction: job error: %w", err)
	}

	return nil
}

// ListTransactionsByUserAndDateRangeWithClient returns the user's
// transactions whose date falls within [start, end], oldest first.
func ListTransactionsByUserAndDateRangeWithClient(ctx context.Context, client *bigquery.Client, dataset, userID string, start, end civil.Date) ([]*TransactionRow, error) {
	q := client.Query(fmt.Sprintf(`
		SELECT %s
		FROM %s.%s
		WHERE user_id = @user_id
		  AND transaction_date >= @start_date
		  AND transaction_date <= @end_date
		ORDER BY transaction_date, created_ts
	`, transactionColumns, dataset, transactionsTable))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
		{Name: "start_date", Value: start},
		{Name: "end_date", Value: end},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListTransactionsByUserAndDateRange: query read: %w", err)
	}

	var rows []*TransactionRow
	for {
		var r TransactionRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListTransactionsByUserAndDateRange: iter next: %w", err)
		}
		rows = append(rows, &r)
	}

	return rows, nil
}

// GetTransactionWithClient returns one transaction by ID, scoped to the
// user. Returns nil if no matching row exists.
func GetTransactionWithClient(ctx context.Context, client *bigquery.Client, dataset, userID, transactionID string) (*TransactionRow, error) {
	q := client.Query(fmt.Sprintf(`
		SELECT %s
		FROM %s.%s
		WHERE user_id = @user_id
		  AND transaction_id = @transaction_id
		LIMIT 1
	`, transactionColumns, dataset, transactionsTable))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
		{Name: "transaction_id", Value: transactionID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("GetTransaction: query read: %w", err)
	}

	var row TransactionRow
	err = it.Next(&row)
	if err == iterator.Done {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("GetTransaction: iter next: %w", err)
	}

	return &row, nil
}

// UpdateTransactionWithClient rewrites the mutable fields of a
// transaction, scoped to the user.
func UpdateTransactionWithClient(ctx context.Context, client *bigquery.Client, dataset string, row *TransactionRow) error {
	q := client.Query(fmt.Sprintf(`
		UPDATE %s.%s
		SET transaction_date = @transaction_date,
		    amount = @amount,
		    transaction_type = @transaction_type,
		    category = @category,
		    vat_rate = @vat_rate,
		    vat_treatment = @vat_treatment,
		    eu_location = @eu_location,
		    description = @description,
		    attachment_uri = @attachment_uri,
		    updated_ts = @updated_ts
		WHERE user_id = @user_id
		  AND transaction_id = @transaction_id
	`, dataset, transactionsTable))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "transaction_date", Value: row.TransactionDate},
		{Name: "amount", Value: row.Amount},
		{Name: "transaction_type", Value: row.TransactionType},
		{Name: "category", Value: row.Category},
		{Name: "vat_rate", Value: row.VATRate},
		{Name: "vat_treatment", Value: row.VATTreatment},
		{Name: "eu_location", Value: row.EULocation},
		{Name: "description", Value: row.Description},
		{Name: "attachment_uri", Value: row.AttachmentURI},
		{Name: "updated_ts", Value: row.UpdatedTS},
		{Name: "user_id", Value: row.UserID},
		{Name: "transaction_id", Value: row.TransactionID},
	}

	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("UpdateTransaction: running update query: %w", err)
	}

	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("UpdateTransaction: waiting for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("UpdateTransaction: job error: %w", err)
	}

	return nil
}

// DeleteTransactionWithClient removes one transaction by ID, scoped to
// the user. Deleting an absent row is not an error.
func DeleteTransactionWithClient(ctx context.Context, client *bigquery.Client, dataset, userID, transactionID string) error {
	q := client.Query(fmt.Sprintf(`
		DELETE FROM %s.%s
		WHERE user_id = @user_id
		  AND transaction_id = @transaction_id
	`, dataset, transactionsTable))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
		{Name: "transaction_id", Value: transactionID},
	}

	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("DeleteTransaction: running delete query: %w", err)
	}

	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("DeleteTransaction: waiting for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("DeleteTransaction: job error: %w", err)
	}

	return nil
}
