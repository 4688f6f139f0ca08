package invoice

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/mjansen/boekhouding/internal/domain"
)

var (
	// ErrNotFound means the invoice does not exist for this user.
	ErrNotFound = errors.New("invoice not found")
	// ErrInvalid means the create input failed validation.
	ErrInvalid = errors.New("invalid invoice")
	// ErrInvalidTransition means the requested status change is not allowed.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// defaultPaymentTermDays is the due date offset applied when the caller
// gives none. Thirty days is the standard Dutch payment term.
const defaultPaymentTermDays = 30

// Store is the persistence surface the invoice service works against.
type Store interface {
	InsertInvoice(ctx context.Context, inv *domain.Invoice) error
	GetInvoice(ctx context.Context, userID, invoiceID string) (*domain.Invoice, error)
	ListInvoicesByUser(ctx context.Context, userID string) ([]*domain.Invoice, error)
	MaxInvoiceSequence(ctx context.Context, userID string, year int) (int, error)
	UpdateInvoiceStatus(ctx context.Context, userID, invoiceID string, status domain.InvoiceStatus) error
}

// CreateInput is the caller's invoice request. Totals and numbering are
// never accepted from the caller; they are computed here.
type CreateInput struct {
	CustomerName    string               `json:"customerName"`
	CustomerAddress string               `json:"customerAddress"`
	IssueDate       civil.Date           `json:"issueDate"`
	DueDate         civil.Date           `json:"dueDate"`
	Lines           []domain.InvoiceLine `json:"lines"`
}

// Service creates and manages outgoing invoices.
type Service struct {
	store Store
	log   zerolog.Logger
}

// NewService creates an invoice service over the given store.
func NewService(store Store, log zerolog.Logger) *Service {
	return &Service{
		store: store,
		log:   log.With().Str("component", "invoice").Logger(),
	}
}

// Create validates the input, computes totals, assigns the next sequential
// number for the issue year and stores the invoice as a draft.
//
// Numbering reads max(sequence)+1 without a lock. A single bookkeeping
// user does not create invoices concurrently, so the race is accepted.
func (s *Service) Create(ctx context.Context, userID string, in CreateInput) (*domain.Invoice, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	issue := in.IssueDate
	if issue.IsZero() {
		issue = civil.DateOf(time.Now().UTC())
	}
	due := in.DueDate
	if due.IsZero() {
		due = issue.AddDays(defaultPaymentTermDays)
	}
	if due.Before(issue) {
		return nil, fmt.Errorf("%w: due date %s before issue date %s", ErrInvalid, due, issue)
	}

	lines := make([]domain.InvoiceLine, len(in.Lines))
	for i, l := range in.Lines {
		l.VATRate = domain.NormalizeVATRate(l.VATRate)
		lines[i] = l
	}
	subtotal, vatAmount := ComputeTotals(lines)

	maxSeq, err := s.store.MaxInvoiceSequence(ctx, userID, issue.Year)
	if err != nil {
		return nil, fmt.Errorf("Create: reading invoice sequence: %w", err)
	}
	seq := maxSeq + 1

	inv := &domain.Invoice{
		ID:              uuid.NewString(),
		UserID:          userID,
		Number:          fmt.Sprintf("%d-%04d", issue.Year, seq),
		Year:            issue.Year,
		Sequence:        seq,
		CustomerName:    in.CustomerName,
		CustomerAddress: in.CustomerAddress,
		IssueDate:       issue,
		DueDate:         due,
		Lines:           lines,
		Subtotal:        subtotal,
		VATAmount:       vatAmount,
		Total:           subtotal.Add(vatAmount),
		Status:          domain.InvoiceDraft,
		CreatedAt:       time.Now().UTC(),
	}

	if err := s.store.InsertInvoice(ctx, inv); err != nil {
		return nil, fmt.Errorf("Create: inserting invoice %s: %w", inv.Number, err)
	}

	s.log.Info().
		Str("invoice_id", inv.ID).
		Str("number", inv.Number).
		Str("total", inv.Total.StringFixed(2)).
		Msg("Invoice created")
	return inv, nil
}

func validateInput(in CreateInput) error {
	if in.CustomerName == "" {
		return fmt.Errorf("%w: customer name is required", ErrInvalid)
	}
	if len(in.Lines) == 0 {
		return fmt.Errorf("%w: at least one line is required", ErrInvalid)
	}
	for i, l := range in.Lines {
		if l.Description == "" {
			return fmt.Errorf("%w: line %d: description is required", ErrInvalid, i)
		}
		if !l.Quantity.IsPositive() {
			return fmt.Errorf("%w: line %d: quantity must be positive", ErrInvalid, i)
		}
		if l.UnitPrice.IsNegative() {
			return fmt.Errorf("%w: line %d: unit price must not be negative", ErrInvalid, i)
		}
	}
	return nil
}

// ComputeTotals sums the lines into a VAT-exclusive subtotal and the VAT
// amount. Each line is rounded to cents before summing so the printed
// line amounts add up to the printed totals.
func ComputeTotals(lines []domain.InvoiceLine) (subtotal, vatAmount decimal.Decimal) {
	for _, l := range lines {
		net := l.Quantity.Mul(l.UnitPrice).Round(2)
		vat := net.Mul(decimal.NewFromInt(int64(l.VATRate))).Div(decimal.NewFromInt(100)).Round(2)
		subtotal = subtotal.Add(net)
		vatAmount = vatAmount.Add(vat)
	}
	return subtotal, vatAmount
}

// Get returns one invoice, or ErrNotFound.
func (s *Service) Get(ctx context.Context, userID, invoiceID string) (*domain.Invoice, error) {
	inv, err := s.store.GetInvoice(ctx, userID, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("Get: loading invoice %s: %w", invoiceID, err)
	}
	if inv == nil {
		return nil, ErrNotFound
	}
	return inv, nil
}

// List returns the user's invoices, newest numbering first.
func (s *Service) List(ctx context.Context, userID string) ([]*domain.Invoice, error) {
	invs, err := s.store.ListInvoicesByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	return invs, nil
}

// transitions lists the allowed status moves. Paid is terminal and a sent
// invoice cannot go back to draft.
var transitions = map[domain.InvoiceStatus]domain.InvoiceStatus{
	domain.InvoiceDraft: domain.InvoiceSent,
	domain.InvoiceSent:  domain.InvoicePaid,
}

// UpdateStatus advances the invoice lifecycle. Only draft to sent and
// sent to paid are allowed.
func (s *Service) UpdateStatus(ctx context.Context, userID, invoiceID string, status domain.InvoiceStatus) (*domain.Invoice, error) {
	inv, err := s.store.GetInvoice(ctx, userID, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("UpdateStatus: loading invoice %s: %w", invoiceID, err)
	}
	if inv == nil {
		return nil, ErrNotFound
	}
	if transitions[inv.Status] != status {
		return nil, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, inv.Status, status)
	}

	if err := s.store.UpdateInvoiceStatus(ctx, userID, invoiceID, status); err != nil {
		return nil, fmt.Errorf("UpdateStatus: updating invoice %s: %w", invoiceID, err)
	}
	inv.Status = status

	s.log.Info().
		Str("invoice_id", invoiceID).
		Str("status", string(status)).
		Msg("Invoice status updated")
	return inv, nil
}
