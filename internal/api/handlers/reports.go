package handlers

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/mjansen/boekhouding/internal/api/middleware"
	"github.com/mjansen/boekhouding/internal/reports"
)

// ReportsHandler serves the VAT return and income tax summaries.
type ReportsHandler struct {
	btw *reports.BTWEngine
	ib  *reports.IBEngine
	log zerolog.Logger
}

// NewReportsHandler creates a new reports handler.
func NewReportsHandler(btw *reports.BTWEngine, ib *reports.IBEngine, log zerolog.Logger) *ReportsHandler {
	return &ReportsHandler{
		btw: btw,
		ib:  ib,
		log: log,
	}
}

// BTW handles GET /api/v1/reports/btw
func (h *ReportsHandler) BTW(w http.ResponseWriter, r *http.Request) {
	year, ok := queryInt(w, r, "year")
	if !ok {
		return
	}
	quarter, ok := queryInt(w, r, "quarter")
	if !ok {
		return
	}
	if quarter < 1 || quarter > 4 {
		middleware.WriteError(w, http.StatusBadRequest, "Quarter must be between 1 and 4")
		return
	}

	userID := middleware.UserFrom(r.Context())
	summary, err := h.btw.Summary(r.Context(), userID, year, quarter)
	if err != nil {
		h.log.Error().Err(err).Int("year", year).Int("quarter", quarter).Msg("BTW summary failed")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to build BTW summary")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, summary)
}

// IB handles GET /api/v1/reports/ib
func (h *ReportsHandler) IB(w http.ResponseWriter, r *http.Request) {
	year, ok := queryInt(w, r, "year")
	if !ok {
		return
	}

	userID := middleware.UserFrom(r.Context())
	summary, err := h.ib.Summary(r.Context(), userID, year)
	if err != nil {
		h.log.Error().Err(err).Int("year", year).Msg("IB summary failed")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to build IB summary")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, summary)
}
