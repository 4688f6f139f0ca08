package receipts

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
	"github.com/mjansen/boekhouding/internal/jobs"
)

var (
	// ErrNotFound means the receipt does not exist for this user.
	ErrNotFound = errors.New("receipt not found")
	// ErrNotReady means the receipt has no reviewed draft to approve yet.
	ErrNotReady = errors.New("receipt has no extracted draft")
	// ErrAlreadyApproved means the receipt was booked before.
	ErrAlreadyApproved = errors.New("receipt already approved")
)

// Store is the persistence surface the receipt service works against.
type Store interface {
	GetReceipt(ctx context.Context, userID, receiptID string) (*domain.Receipt, error)
	MarkReceiptExtracted(ctx context.Context, userID, receiptID string, draft *domain.ReceiptDraft) error
	MarkReceiptFailed(ctx context.Context, userID, receiptID, errMsg string) error
	MarkReceiptApproved(ctx context.Context, userID, receiptID, transactionID string) error
	InsertTransaction(ctx context.Context, t *domain.Transaction) error
}

// Fetcher reads uploaded receipt bytes back from object storage.
type Fetcher interface {
	Fetch(ctx context.Context, gcsURI string) ([]byte, error)
}

// Auditor records raw model output for later inspection.
type Auditor interface {
	RecordModelOutput(ctx context.Context, userID, kind, model, raw string) error
}

// Service runs receipt extraction jobs and turns approved drafts into
// transactions.
type Service struct {
	store     Store
	fetcher   Fetcher
	extractor Extractor
	audit     Auditor
	log       zerolog.Logger
}

// NewService wires the receipt pipeline.
func NewService(store Store, fetcher Fetcher, extractor Extractor, audit Auditor, log zerolog.Logger) *Service {
	return &Service{
		store:     store,
		fetcher:   fetcher,
		extractor: extractor,
		audit:     audit,
		log:       log.With().Str("component", "receipts").Logger(),
	}
}

// ProcessJob is the queue handler. It accepts the generic job interface
// and only knows how to run receipt extractions.
func (s *Service) ProcessJob(ctx context.Context, job jobs.Job) error {
	j, ok := job.(*jobs.ExtractReceiptJob)
	if !ok {
		return fmt.Errorf("ProcessJob: unexpected job type %s", job.GetType())
	}
	return s.runExtraction(ctx, j)
}

// runExtraction fetches the uploaded bytes, asks the model for a draft and
// stores the result. On failure the receipt is only marked failed when the
// queue will not retry again, so a transient error does not leave a
// permanently failed receipt behind.
func (s *Service) runExtraction(ctx context.Context, j *jobs.ExtractReceiptJob) error {
	ext, err := s.extract(ctx, j)
	if err != nil {
		s.log.Error().Err(err).
			Str("receipt_id", j.ReceiptID).
			Int("retry_count", j.RetryCount).
			Msg("Receipt extraction failed")
		if j.RetryCount >= j.MaxRetries {
			if markErr := s.store.MarkReceiptFailed(ctx, j.UserID, j.ReceiptID, err.Error()); markErr != nil {
				s.log.Error().Err(markErr).Str("receipt_id", j.ReceiptID).
					Msg("Marking receipt failed did not stick")
			}
		}
		return err
	}

	if err := s.store.MarkReceiptExtracted(ctx, j.UserID, j.ReceiptID, ext.Draft); err != nil {
		return fmt.Errorf("runExtraction: storing draft for receipt %s: %w", j.ReceiptID, err)
	}

	s.log.Info().
		Str("receipt_id", j.ReceiptID).
		Str("category", string(ext.Draft.Category)).
		Str("amount", ext.Draft.Amount.StringFixed(2)).
		Msg("Receipt extracted")
	return nil
}

func (s *Service) extract(ctx context.Context, j *jobs.ExtractReceiptJob) (*Extraction, error) {
	data, err := s.fetcher.Fetch(ctx, j.GCSURI)
	if err != nil {
		return nil, fmt.Errorf("extract: fetching %s: %w", j.GCSURI, err)
	}

	ext, err := s.extractor.Extract(ctx, data, j.ContentType)
	if err != nil {
		return nil, err
	}

	if auditErr := s.audit.RecordModelOutput(ctx, j.UserID, "receipt_extract", ext.Model, ext.Raw); auditErr != nil {
		s.log.Warn().Err(auditErr).Str("receipt_id", j.ReceiptID).
			Msg("Recording model output failed")
	}
	return ext, nil
}

// ApproveOverride carries the user's edits to the extracted draft. Nil
// fields keep the draft's value.
type ApproveOverride struct {
	Date        *civil.Date      `json:"date,omitempty"`
	Description *string          `json:"description,omitempty"`
	Amount      *decimal.Decimal `json:"amount,omitempty"`
	Category    *domain.Category `json:"category,omitempty"`
	VATRate     *int             `json:"vatRate,omitempty"`
}

// Approve books the extracted draft as an expense transaction and marks
// the receipt approved. Overrides from the review UI win over the draft.
func (s *Service) Approve(ctx context.Context, userID, receiptID string, override *ApproveOverride) (*domain.Transaction, error) {
	rec, err := s.store.GetReceipt(ctx, userID, receiptID)
	if err != nil {
		return nil, fmt.Errorf("Approve: loading receipt %s: %w", receiptID, err)
	}
	if rec == nil {
		return nil, ErrNotFound
	}
	if rec.Status == domain.ReceiptApproved {
		return nil, ErrAlreadyApproved
	}
	if rec.Status != domain.ReceiptExtracted || rec.Draft == nil {
		return nil, ErrNotReady
	}

	draft := *rec.Draft
	if override != nil {
		if override.Date != nil {
			draft.Date = *override.Date
		}
		if override.Description != nil {
			draft.Description = *override.Description
		}
		if override.Amount != nil {
			draft.Amount = *override.Amount
		}
		if override.Category != nil {
			draft.Category = domain.NormalizeExpenseCategory(string(*override.Category))
		}
		if override.VATRate != nil {
			draft.VATRate = domain.NormalizeVATRate(*override.VATRate)
		}
	}

	now := time.Now().UTC()
	tx := &domain.Transaction{
		ID:            uuid.NewString(),
		UserID:        userID,
		Date:          draft.Date,
		Amount:        draft.Amount.Abs(),
		Type:          domain.TypeExpense,
		Category:      draft.Category,
		VATRate:       draft.VATRate,
		VATTreatment:  domain.VATTreatmentDomestic,
		Description:   draft.Description,
		Source:        domain.SourceReceipt,
		AttachmentURI: rec.GCSURI,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.store.InsertTransaction(ctx, tx); err != nil {
		return nil, fmt.Errorf("Approve: inserting transaction for receipt %s: %w", receiptID, err)
	}

	if err := s.store.MarkReceiptApproved(ctx, userID, receiptID, tx.ID); err != nil {
		return nil, fmt.Errorf("Approve: transaction %s created but receipt %s not marked approved: %w", tx.ID, receiptID, err)
	}

	s.log.Info().
		Str("receipt_id", receiptID).
		Str("transaction_id", tx.ID).
		Msg("Receipt approved")
	return tx, nil
}
