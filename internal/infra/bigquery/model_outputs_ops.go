package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
)

const modelOutputsTable = "model_outputs"

// InsertModelOutputWithClient inserts a single ModelOutputRow using the
// provided BigQuery client. Raw model text is kept verbatim so bad
// answers can be replayed against parser fixes.
func InsertModelOutputWithClient(ctx context.Context, client *bigquery.Client, dataset string, row *ModelOutputRow) error {
	q := client.Query(fmt.Sprintf(`
		INSERT %s.%s (
			output_id,
			user_id,
			kind,
			model_name,
			raw_output,
			created_ts
		)
		VALUES (
			@output_id,
			@user_id,
			@kind,
			@model_name,
			@raw_output,
			@created_ts
		)
	`, dataset, modelOutputsTable))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "output_id", Value: row.OutputID},
		{Name: "user_id", Value: row.UserID},
		{Name: "kind", Value: row.Kind},
		{Name: "model_name", Value: row.ModelName},
		{Name: "raw_output", Value: row.RawOutput},
		{Name: "created_ts", Value: row.CreatedTS},
	}

	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("InsertModelOutput: running insert query: %w", err)
	}

	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("InsertModelOutput: waiting for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("InsertModelOutput: job error: %w", err)
	}

	return nil
}
