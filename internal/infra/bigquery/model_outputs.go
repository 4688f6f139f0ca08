package bigquery

import "time"

type ModelOutputRow struct {
	OutputID string `bigquery:"output_id"` // REQUIRED
	UserID   string `bigquery:"user_id"`   // REQUIRED

	Kind      string `bigquery:"kind"`       // categorize | receipt_extract
	ModelName string `bigquery:"model_name"` // REQUIRED

	RawOutput string `bigquery:"raw_output"` // REQUIRED, verbatim model text

	CreatedTS time.Time `bigquery:"created_ts"` // REQUIRED
}
