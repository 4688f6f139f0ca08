package domain

import (
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// ReceiptStatus tracks a receipt through the extraction pipeline.
type ReceiptStatus string

const (
	ReceiptPending   ReceiptStatus = "pending"
	ReceiptExtracted ReceiptStatus = "extracted"
	ReceiptApproved  ReceiptStatus = "approved"
	ReceiptFailed    ReceiptStatus = "failed"
)

// ReceiptDraft is the expense proposal extracted from a receipt image or
// PDF. Amount is absolute; receipts are always expenses.
type ReceiptDraft struct {
	Date        civil.Date      `json:"date"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Category    Category        `json:"category"`
	VATRate     int             `json:"vatRate"`
}

// Receipt is an uploaded expense document and its extraction state.
type Receipt struct {
	ID               string        `json:"id"`
	UserID           string        `json:"userId"`
	GCSURI           string        `json:"gcsUri"`
	OriginalFilename string        `json:"originalFilename"`
	ContentType      string        `json:"contentType"`
	Status           ReceiptStatus `json:"status"`
	Draft            *ReceiptDraft `json:"draft,omitempty"`
	TransactionID    string        `json:"transactionId,omitempty"`
	Error            string        `json:"error,omitempty"`
	CreatedAt        time.Time     `json:"createdAt"`
	UpdatedAt        time.Time     `json:"updatedAt"`
}
