package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"
)

const invoicesTable = "invoices"

const invoiceColumns = `
	invoice_id,
	user_id,
	invoice_number,
	invoice_year,
	invoice_seq,
	customer_name,
	customer_address,
	issue_date,
	due_date,
	lines,
	subtotal,
	vat_amount,
	total,
	status,
	created_ts`

// InsertInvoiceWithClient inserts a single InvoiceRow using the provided
// BigQuery client.
func InsertInvoiceWithClient(ctx context.Context, client *bigquery.Client, dataset string, row *InvoiceRow) error {
	q := client.Query(fmt.Sprintf(`
		INSERT %s.%s (%s)
		VALUES (
			@invoice_id,
			@user_id,
			@invoice_number,
			@invoice_year,
			@invoice_seq,
			@customer_name,
			@customer_address,
			@issue_date,
			@due_date,
			@lines,
			@subtotal,
			@vat_amount,
			@total,
			@status,
			@created_ts
		)
	`, dataset, invoicesTable, invoiceColumns))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "invoice_id", Value: row.InvoiceID},
		{Name: "user_id", Value: row.UserID},
		{Name: "invoice_number", Value: row.InvoiceNumber},
		{Name: "invoice_year", Value: row.InvoiceYear},
		{Name: "invoice_seq", Value: row.InvoiceSeq},
		{Name: "customer_name", Value: row.CustomerName},
		{Name: "customer_address", Value: row.CustomerAddress},
		{Name: "issue_date", Value: row.IssueDate},
		{Name: "due_date", Value: row.DueDate},
		{Name: "lines", Value: row.Lines},
		{Name: "subtotal", Value: row.Subtotal},
		{Name: "vat_amount", Value: row.VATAmount},
		{Name: "total", Value: row.Total},
		{Name: "status", Value: row.Status},
		{Name: "created_ts", Value: row.CreatedTS},
	}

	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("InsertInvoice: running insert query: %w", err)
	}

	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("InsertInvoice: waiting for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("InsertInvoice: job error: %w", err)
	}

	return nil
}

// GetInvoiceWithClient returns one invoice by ID, scoped to the user.
// Returns nil if no matching row exists.
func GetInvoiceWithClient(ctx context.Context, client *bigquery.Client, dataset, userID, invoiceID string) (*InvoiceRow, error) {
	q := client.Query(fmt.Sprintf(`
		SELECT %s
		FROM %s.%s
		WHERE user_id = @user_id
		  AND invoice_id = @invoice_id
		LIMIT 1
	`, invoiceColumns, dataset, invoicesTable))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
		{Name: "invoice_id", Value: invoiceID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("GetInvoice: query read: %w", err)
	}

	var row InvoiceRow
	err = it.Next(&row)
	if err == iterator.Done {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("GetInvoice: iter next: %w", err)
	}

	return &row, nil
}

// ListInvoicesByUserWithClient returns all of a user's invoices, newest
// numbering first.
func ListInvoicesByUserWithClient(ctx context.Context, client *bigquery.Client, dataset, userID string) ([]*InvoiceRow, error) {
	q := client.Query(fmt.Sprintf(`
		SELECT %s
		FROM %s.%s
		WHERE user_id = @user_id
		ORDER BY invoice_year DESC, invoice_seq DESC
	`, invoiceColumns, dataset, invoicesTable))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListInvoicesByUser: query read: %w", err)
	}

	var rows []*InvoiceRow
	for {
		var r InvoiceRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListInvoicesByUser: iter next: %w", err)
		}
		rows = append(rows, &r)
	}

	return rows, nil
}

// MaxInvoiceSequenceWithClient returns the highest sequence number the
// user has issued in the given year, zero when none exist yet.
func MaxInvoiceSequenceWithClient(ctx context.Context, client *bigquery.Client, dataset, userID string, year int) (int, error) {
	q := client.Query(fmt.Sprintf(`
		SELECT MAX(invoice_seq) AS max_seq
		FROM %s.%s
		WHERE user_id = @user_id
		  AND invoice_year = @invoice_year
	`, dataset, invoicesTable))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
		{Name: "invoice_year", Value: int64(year)},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return 0, fmt.Errorf("MaxInvoiceSequence: query read: %w", err)
	}

	var row struct {
		MaxSeq bigquery.NullInt64 `bigquery:"max_seq"`
	}
	err = it.Next(&row)
	if err == iterator.Done {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("MaxInvoiceSequence: iter next: %w", err)
	}

	if !row.MaxSeq.Valid {
		return 0, nil
	}
	return int(row.MaxSeq.Int64), nil
}

// UpdateInvoiceStatusWithClient moves an invoice to a new status, scoped
// to the user.
func UpdateInvoiceStatusWithClient(ctx context.Context, client *bigquery.Client, dataset, userID, invoiceID, newStatus string) error {
	q := client.Query(fmt.Sprintf(`
		UPDATE %s.%s
		SET status = @status
		WHERE user_id = @user_id
		  AND invoice_id = @invoice_id
	`, dataset, invoicesTable))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "status", Value: newStatus},
		{Name: "user_id", Value: userID},
		{Name: "invoice_id", Value: invoiceID},
	}

	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("UpdateInvoiceStatus: running update query: %w", err)
	}

	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("UpdateInvoiceStatus: waiting for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("UpdateInvoiceStatus: job error: %w", err)
	}

	return nil
}
