package domain

import (
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// InvoiceStatus lifecycle: draft until sent, paid when settled.
type InvoiceStatus string

const (
	InvoiceDraft InvoiceStatus = "draft"
	InvoiceSent  InvoiceStatus = "sent"
	InvoicePaid  InvoiceStatus = "paid"
)

// InvoiceLine is one billed item. UnitPrice excludes VAT.
type InvoiceLine struct {
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	VATRate     int             `json:"vatRate"`
}

// Invoice is an outgoing sales invoice. Number is assigned sequentially per
// user per year ("2026-0001"); totals are computed from the lines at
// creation and stored.
type Invoice struct {
	ID              string          `json:"id"`
	UserID          string          `json:"userId"`
	Number          string          `json:"number"`
	Year            int             `json:"year"`
	Sequence        int             `json:"sequence"`
	CustomerName    string          `json:"customerName"`
	CustomerAddress string          `json:"customerAddress,omitempty"`
	IssueDate       civil.Date      `json:"issueDate"`
	DueDate         civil.Date      `json:"dueDate"`
	Lines           []InvoiceLine   `json:"lines"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	VATAmount       decimal.Decimal `json:"vatAmount"`
	Total           decimal.Decimal `json:"total"`
	Status          InvoiceStatus   `json:"status"`
	CreatedAt       time.Time       `json:"createdAt"`
}
