package bigquery

import (
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"

	"github.com/mjansen/boekhouding/internal/domain"
)

type ReceiptRow struct {
	ReceiptID string `bigquery:"receipt_id"` // REQUIRED
	UserID    string `bigquery:"user_id"`    // REQUIRED

	GCSURI           string `bigquery:"gcs_uri"`           // REQUIRED
	OriginalFilename string `bigquery:"original_filename"` // REQUIRED
	ContentType      string `bigquery:"content_type"`      // REQUIRED

	Status string `bigquery:"status"` // pending | extracted | approved | failed

	Extraction    bigquery.NullJSON   `bigquery:"extraction"`     // NULLABLE, set once extracted
	TransactionID bigquery.NullString `bigquery:"transaction_id"` // NULLABLE, set on approval
	ErrorMessage  bigquery.NullString `bigquery:"error_message"`  // NULLABLE

	CreatedTS time.Time `bigquery:"created_ts"` // REQUIRED
	UpdatedTS time.Time `bigquery:"updated_ts"` // REQUIRED
}

// NewReceiptRow converts a domain receipt into its stored shape.
func NewReceiptRow(r *domain.Receipt) (*ReceiptRow, error) {
	extraction, err := draftJSON(r.Draft)
	if err != nil {
		return nil, fmt.Errorf("NewReceiptRow: encoding extraction: %w", err)
	}
	return &ReceiptRow{
		ReceiptID:        r.ID,
		UserID:           r.UserID,
		GCSURI:           r.GCSURI,
		OriginalFilename: r.OriginalFilename,
		ContentType:      r.ContentType,
		Status:           string(r.Status),
		Extraction:       extraction,
		TransactionID:    nullString(r.TransactionID),
		ErrorMessage:     nullString(r.Error),
		CreatedTS:        r.CreatedAt,
		UpdatedTS:        r.UpdatedAt,
	}, nil
}

// Receipt converts a stored row back into the domain shape.
func (r *ReceiptRow) Receipt() (*domain.Receipt, error) {
	draft, err := draftFromJSON(r.Extraction)
	if err != nil {
		return nil, fmt.Errorf("ReceiptRow: decoding extraction for %s: %w", r.ReceiptID, err)
	}
	return &domain.Receipt{
		ID:               r.ReceiptID,
		UserID:           r.UserID,
		GCSURI:           r.GCSURI,
		OriginalFilename: r.OriginalFilename,
		ContentType:      r.ContentType,
		Status:           domain.ReceiptStatus(r.Status),
		Draft:            draft,
		TransactionID:    r.TransactionID.StringVal,
		Error:            r.ErrorMessage.StringVal,
		CreatedAt:        r.CreatedTS,
		UpdatedAt:        r.UpdatedTS,
	}, nil
}

// draftJSON encodes an extraction draft for the JSON column. A nil draft
// stores NULL.
func draftJSON(d *domain.ReceiptDraft) (bigquery.NullJSON, error) {
	if d == nil {
		return bigquery.NullJSON{Valid: false}, nil
	}
	b, err := json.Marshal(d)
	if err != nil {
		return bigquery.NullJSON{}, err
	}
	return bigquery.NullJSON{JSONVal: string(b), Valid: true}, nil
}

// draftFromJSON decodes the JSON column. The client library hands JSON
// values back either as the raw string or as an unmarshaled value
// depending on the read path, so both are handled.
func draftFromJSON(v bigquery.NullJSON) (*domain.ReceiptDraft, error) {
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

	var d domain.ReceiptDraft
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, err
	}
	return &d, nil
}
