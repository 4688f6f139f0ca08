package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/mjansen/boekhouding/internal/api/middleware"
	"github.com/mjansen/boekhouding/internal/domain"
	"github.com/mjansen/boekhouding/internal/invoice"
)

// InvoicesHandler handles invoice endpoints.
type InvoicesHandler struct {
	service *invoice.Service
	log     zerolog.Logger
}

// NewInvoicesHandler creates a new invoices handler.
func NewInvoicesHandler(service *invoice.Service, log zerolog.Logger) *InvoicesHandler {
	return &InvoicesHandler{
		service: service,
		log:     log,
	}
}

// Create handles POST /api/v1/invoices
func (h *InvoicesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in invoice.CreateInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	userID := middleware.UserFrom(r.Context())
	inv, err := h.service.Create(r.Context(), userID, in)
	if errors.Is(err, invoice.ErrInvalid) {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to create invoice")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to create invoice")
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, inv)
}

// List handles GET /api/v1/invoices
func (h *InvoicesHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserFrom(r.Context())

	invs, err := h.service.List(r.Context(), userID)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list invoices")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list invoices")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"invoices": invs,
		"count":    len(invs),
	})
}

// Get handles GET /api/v1/invoices/{id}
func (h *InvoicesHandler) Get(w http.ResponseWriter, r *http.Request, invoiceID string) {
	userID := middleware.UserFrom(r.Context())

	inv, err := h.service.Get(r.Context(), userID, invoiceID)
	if errors.Is(err, invoice.ErrNotFound) {
		middleware.WriteError(w, http.StatusNotFound, "Invoice not found")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("invoice_id", invoiceID).Msg("Failed to get invoice")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to get invoice")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, inv)
}

// UpdateStatus handles PUT /api/v1/invoices/{id}
func (h *InvoicesHandler) UpdateStatus(w http.ResponseWriter, r *http.Request, invoiceID string) {
	var req struct {
		Status domain.InvoiceStatus `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	userID := middleware.UserFrom(r.Context())
	inv, err := h.service.UpdateStatus(r.Context(), userID, invoiceID, req.Status)
	switch {
	case errors.Is(err, invoice.ErrNotFound):
		middleware.WriteError(w, http.StatusNotFound, "Invoice not found")
		return
	case errors.Is(err, invoice.ErrInvalidTransition):
		middleware.WriteError(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		h.log.Error().Err(err).Str("invoice_id", invoiceID).Msg("Failed to update invoice status")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to update invoice")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, inv)
}
