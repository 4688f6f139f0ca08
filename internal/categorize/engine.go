package categorize

import (
	"context"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/mjansen/boekhouding/internal/domain"
)

// maxBatchSize caps the number of rows per oracle call.
const maxBatchSize = 100

// TransactionStore is the slice of the persisted store the engine needs
// for duplicate detection.
type TransactionStore interface {
	ListTransactionsByUserAndDateRange(ctx context.Context, userID string, start, end civil.Date) ([]*domain.Transaction, error)
}

// OutputAuditor records raw model responses for later inspection.
type OutputAuditor interface {
	RecordModelOutput(ctx context.Context, userID, kind, model, raw string) error
}

// Engine turns parsed statement rows into categorization proposals and
// flags likely duplicates against the user's existing transactions.
type Engine struct {
	oracle Oracle
	store  TransactionStore
	audit  OutputAuditor
	log    zerolog.Logger
}

// NewEngine creates a categorization engine. audit may be nil.
func NewEngine(oracle Oracle, store TransactionStore, audit OutputAuditor, log zerolog.Logger) *Engine {
	return &Engine{
		oracle: oracle,
		store:  store,
		audit:  audit,
		log:    log.With().Str("component", "categorize").Logger(),
	}
}

// Categorize proposes a category, VAT rate and confidence for every row.
// Rows go to the oracle in batches of at most 100, sequentially; a failed
// batch falls back to Other/21/low for its rows only and processing
// continues. The returned slice always has one proposal per input row, in
// input order.
func (e *Engine) Categorize(ctx context.Context, userID string, rows []domain.ParsedRow) ([]domain.Proposal, error) {
	proposals := make([]domain.Proposal, 0, len(rows))

	for start := 0; start < len(rows); start += maxBatchSize {
		end := start + maxBatchSize
		if end > len(rows) {
			end = len(rows)
		}
		proposals = append(proposals, e.categorizeBatch(ctx, userID, rows[start:end])...)
	}

	e.flagDuplicates(ctx, userID, proposals)

	return proposals, nil
}

func (e *Engine) categorizeBatch(ctx context.Context, userID string, batch []domain.ParsedRow) []domain.Proposal {
	reqs := make([]Request, len(batch))
	for i, row := range batch {
		reqs[i] = Request{
			Index:       i,
			Date:        row.Date,
			Type:        domain.TypeForAmount(row.Amount),
			Amount:      row.Amount.Abs(),
			Description: row.Description,
		}
	}

	var outs []outcome
	resp, err := e.oracle.Categorize(ctx, reqs)
	if err != nil {
		e.log.Error().Err(err).Int("rows", len(batch)).
			Msg("Oracle call failed, falling back to default categorization")
		outs = fallbackOutcomes(len(reqs))
	} else {
		outs = sanitizeResults(reqs, resp.Results)
		e.recordOutput(ctx, userID, resp)
	}

	proposals := make([]domain.Proposal, len(batch))
	for i, row := range batch {
		proposals[i] = domain.Proposal{
			Row:        row,
			Type:       reqs[i].Type,
			Amount:     reqs[i].Amount,
			Category:   outs[i].Category,
			VATRate:    outs[i].VATRate,
			Confidence: outs[i].Confidence,
		}
	}
	return proposals
}

// recordOutput audits the raw model answer. Failures only log; auditing
// never blocks an import.
func (e *Engine) recordOutput(ctx context.Context, userID string, resp *OracleResponse) {
	if e.audit == nil {
		return
	}
	if err := e.audit.RecordModelOutput(ctx, userID, "categorize", resp.Model, resp.Raw); err != nil {
		e.log.Warn().Err(err).Msg("Recording model output failed")
	}
}

// flagDuplicates marks proposals that match an existing transaction in the
// batch's date window. A failed lookup leaves all proposals unflagged; the
// user still gets their categorizations.
func (e *Engine) flagDuplicates(ctx context.Context, userID string, proposals []domain.Proposal) {
	if len(proposals) == 0 {
		return
	}

	minDate := proposals[0].Row.Date
	maxDate := proposals[0].Row.Date
	for _, p := range proposals[1:] {
		if p.Row.Date.Before(minDate) {
			minDate = p.Row.Date
		}
		if p.Row.Date.After(maxDate) {
			maxDate = p.Row.Date
		}
	}

	existing, err := e.store.ListTransactionsByUserAndDateRange(ctx, userID, minDate, maxDate)
	if err != nil {
		e.log.Error().Err(err).Str("user_id", userID).
			Msg("Duplicate lookup failed, proposals returned unflagged")
		return
	}

	keys := make(map[string]bool, len(existing))
	for _, t := range existing {
		keys[DuplicateKey(t.Date, t.SignedAmount(), t.Description)] = true
	}

	for i := range proposals {
		row := proposals[i].Row
		if keys[DuplicateKey(row.Date, row.Amount, row.Description)] {
			proposals[i].IsDuplicate = true
		}
	}
}

// DuplicateKey identifies a transaction for import de-duplication: equal
// calendar date, signed amount at two decimals and case-folded trimmed
// description collide. Interior whitespace differences keep keys distinct.
func DuplicateKey(date civil.Date, amount decimal.Decimal, description string) string {
	return date.String() + "_" + amount.StringFixed(2) + "_" + strings.ToLower(strings.TrimSpace(description))
}
