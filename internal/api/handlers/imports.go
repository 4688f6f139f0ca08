package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/mjansen/boekhouding/internal/api/middleware"
	"github.com/mjansen/boekhouding/internal/bankimport"
	"github.com/mjansen/boekhouding/internal/categorize"
	"github.com/mjansen/boekhouding/internal/domain"
	"github.com/mjansen/boekhouding/internal/importer"
)

// ImportsHandler runs the three steps of the bank import wizard. Each
// step is stateless; the client carries the rows between calls.
type ImportsHandler struct {
	engine    *categorize.Engine
	committer *importer.Committer
	log       zerolog.Logger
}

// NewImportsHandler creates a new imports handler.
func NewImportsHandler(engine *categorize.Engine, committer *importer.Committer, log zerolog.Logger) *ImportsHandler {
	return &ImportsHandler{
		engine:    engine,
		committer: committer,
		log:       log,
	}
}

// ParseStatement handles POST /api/v1/import/parse
func (h *ImportsHandler) ParseStatement(w http.ResponseWriter, r *http.Request) {
	raw, ok := readUpload(w, r)
	if !ok {
		return
	}

	stmt, err := bankimport.ParseStatement(raw)
	if errors.Is(err, bankimport.ErrUnknownFormat) {
		middleware.WriteError(w, http.StatusBadRequest, "Statement format not recognized")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to parse statement")
		middleware.WriteError(w, http.StatusBadRequest, "Failed to parse statement")
		return
	}

	// Return an empty array rather than null for frontend compatibility
	if stmt.Rows == nil {
		stmt.Rows = []domain.ParsedRow{}
	}
	middleware.WriteJSON(w, http.StatusOK, stmt)
}

// Categorize handles POST /api/v1/import/categorize
func (h *ImportsHandler) Categorize(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Rows []domain.ParsedRow `json:"rows"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	userID := middleware.UserFrom(r.Context())
	proposals, err := h.engine.Categorize(r.Context(), userID, req.Rows)
	if err != nil {
		h.log.Error().Err(err).Msg("Categorization failed")
		middleware.WriteError(w, http.StatusInternalServerError, "Categorization failed")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"proposals": proposals,
		"count":     len(proposals),
	})
}

// Commit handles POST /api/v1/import/commit
func (h *ImportsHandler) Commit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Rows []importer.CommitRow `json:"rows"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	for i, row := range req.Rows {
		if row.Type != domain.TypeIncome && row.Type != domain.TypeExpense {
			middleware.WriteError(w, http.StatusBadRequest, fmt.Sprintf("Row %d has an invalid type", i))
			return
		}
		if row.Date.IsZero() {
			middleware.WriteError(w, http.StatusBadRequest, fmt.Sprintf("Row %d has no date", i))
			return
		}
	}

	userID := middleware.UserFrom(r.Context())
	res := h.committer.Commit(r.Context(), userID, req.Rows)
	middleware.WriteJSON(w, http.StatusOK, res)
}
