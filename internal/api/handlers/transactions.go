package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/mjansen/boekhouding/internal/api/middleware"
	"github.com/mjansen/boekhouding/internal/domain"
)

// TransactionRepository is the store surface the transaction endpoints
// need.
type TransactionRepository interface {
	InsertTransaction(ctx context.Context, t *domain.Transaction) error
	ListTransactionsByUserAndDateRange(ctx context.Context, userID string, start, end civil.Date) ([]*domain.Transaction, error)
	GetTransaction(ctx context.Context, userID, transactionID string) (*domain.Transaction, error)
	UpdateTransaction(ctx context.Context, t *domain.Transaction) error
	DeleteTransaction(ctx context.Context, userID, transactionID string) error
}

// TransactionsHandler handles transaction CRUD endpoints.
type TransactionsHandler struct {
	repo TransactionRepository
	log  zerolog.Logger
}

// NewTransactionsHandler creates a new transactions handler.
func NewTransactionsHandler(repo TransactionRepository, log zerolog.Logger) *TransactionsHandler {
	return &TransactionsHandler{
		repo: repo,
		log:  log,
	}
}

// transactionInput is the JSON body for create and update.
type transactionInput struct {
	Date         civil.Date             `json:"date"`
	Description  string                 `json:"description"`
	Amount       decimal.Decimal        `json:"amount"`
	Type         domain.TransactionType `json:"type"`
	Category     domain.Category        `json:"category"`
	VATRate      int                    `json:"vatRate"`
	VATTreatment domain.VATTreatment    `json:"vatTreatment"`
	EULocation   domain.EULocation      `json:"euLocation"`
}

func (in *transactionInput) validate() string {
	if in.Date.IsZero() {
		return "date is required"
	}
	if in.Type != domain.TypeIncome && in.Type != domain.TypeExpense {
		return "type must be INCOME or EXPENSE"
	}
	if !in.Amount.IsPositive() {
		return "amount must be positive"
	}
	switch in.VATTreatment {
	case "", domain.VATTreatmentDomestic, domain.VATTreatmentReverseCharge:
	default:
		return "vatTreatment must be domestic or reverse_charge"
	}
	switch in.EULocation {
	case "", domain.EULocationEU, domain.EULocationNonEU:
	default:
		return "euLocation must be eu or non_eu"
	}
	return ""
}

// apply copies the validated input onto a transaction. Categories are
// coerced into the vocabulary matching the transaction type; location is
// only meaningful on reverse-charge rows.
func (in *transactionInput) apply(t *domain.Transaction) {
	t.Date = in.Date
	t.Description = in.Description
	t.Amount = in.Amount.Abs()
	t.Type = in.Type
	t.VATRate = domain.NormalizeVATRate(in.VATRate)

	if in.Type == domain.TypeExpense {
		t.Category = domain.NormalizeExpenseCategory(string(in.Category))
	} else {
		t.Category = domain.NormalizeCategory(string(in.Category))
	}

	t.VATTreatment = in.VATTreatment
	if t.VATTreatment == "" {
		t.VATTreatment = domain.VATTreatmentDomestic
	}
	t.EULocation = in.EULocation
	if t.VATTreatment != domain.VATTreatmentReverseCharge {
		t.EULocation = ""
	}
}

// List handles GET /api/v1/transactions
func (h *TransactionsHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	var start, end civil.Date
	switch {
	case query.Get("year") != "":
		year, ok := queryInt(w, r, "year")
		if !ok {
			return
		}
		start = civil.Date{Year: year, Month: time.January, Day: 1}
		end = civil.Date{Year: year, Month: time.December, Day: 31}
	default:
		// Default window is the trailing year.
		today := civil.DateOf(time.Now().UTC())
		start, end = today.AddDays(-365), today

		var err error
		if raw := query.Get("from"); raw != "" {
			if start, err = civil.ParseDate(raw); err != nil {
				middleware.WriteError(w, http.StatusBadRequest, "Invalid from date, want YYYY-MM-DD")
				return
			}
		}
		if raw := query.Get("to"); raw != "" {
			if end, err = civil.ParseDate(raw); err != nil {
				middleware.WriteError(w, http.StatusBadRequest, "Invalid to date, want YYYY-MM-DD")
				return
			}
		}
	}

	userID := middleware.UserFrom(r.Context())
	transactions, err := h.repo.ListTransactionsByUserAndDateRange(r.Context(), userID, start, end)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list transactions")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list transactions")
		return
	}

	// Return array directly for frontend compatibility
	if transactions == nil {
		transactions = []*domain.Transaction{}
	}
	middleware.WriteJSON(w, http.StatusOK, transactions)
}

// Create handles POST /api/v1/transactions
func (h *TransactionsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in transactionInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if msg := in.validate(); msg != "" {
		middleware.WriteError(w, http.StatusBadRequest, msg)
		return
	}

	now := time.Now().UTC()
	tx := &domain.Transaction{
		ID:        uuid.NewString(),
		UserID:    middleware.UserFrom(r.Context()),
		Source:    domain.SourceManual,
		CreatedAt: now,
		UpdatedAt: now,
	}
	in.apply(tx)

	if err := h.repo.InsertTransaction(r.Context(), tx); err != nil {
		h.log.Error().Err(err).Msg("Failed to insert transaction")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to create transaction")
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, tx)
}

// Get handles GET /api/v1/transactions/{id}
func (h *TransactionsHandler) Get(w http.ResponseWriter, r *http.Request, transactionID string) {
	userID := middleware.UserFrom(r.Context())

	tx, err := h.repo.GetTransaction(r.Context(), userID, transactionID)
	if err != nil {
		h.log.Error().Err(err).Str("transaction_id", transactionID).Msg("Failed to get transaction")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to get transaction")
		return
	}
	if tx == nil {
		middleware.WriteError(w, http.StatusNotFound, "Transaction not found")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, tx)
}

// Update handles PUT /api/v1/transactions/{id}
func (h *TransactionsHandler) Update(w http.ResponseWriter, r *http.Request, transactionID string) {
	var in transactionInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if msg := in.validate(); msg != "" {
		middleware.WriteError(w, http.StatusBadRequest, msg)
		return
	}

	userID := middleware.UserFrom(r.Context())
	tx, err := h.repo.GetTransaction(r.Context(), userID, transactionID)
	if err != nil {
		h.log.Error().Err(err).Str("transaction_id", transactionID).Msg("Failed to load transaction")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to update transaction")
		return
	}
	if tx == nil {
		middleware.WriteError(w, http.StatusNotFound, "Transaction not found")
		return
	}

	in.apply(tx)
	tx.UpdatedAt = time.Now().UTC()

	if err := h.repo.UpdateTransaction(r.Context(), tx); err != nil {
		h.log.Error().Err(err).Str("transaction_id", transactionID).Msg("Failed to update transaction")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to update transaction")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, tx)
}

// Delete handles DELETE /api/v1/transactions/{id}
func (h *TransactionsHandler) Delete(w http.ResponseWriter, r *http.Request, transactionID string) {
	userID := middleware.UserFrom(r.Context())

	if err := h.repo.DeleteTransaction(r.Context(), userID, transactionID); err != nil {
		h.log.Error().Err(err).Str("transaction_id", transactionID).Msg("Failed to delete transaction")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to delete transaction")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
