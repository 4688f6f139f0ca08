package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mjansen/boekhouding/internal/api/middleware"
	"github.com/mjansen/boekhouding/internal/domain"
	"github.com/mjansen/boekhouding/internal/jobs"
	"github.com/mjansen/boekhouding/internal/receipts"
)

// ReceiptRepository is the store surface the receipt endpoints need.
type ReceiptRepository interface {
	InsertReceipt(ctx context.Context, rec *domain.Receipt) error
	GetReceipt(ctx context.Context, userID, receiptID string) (*domain.Receipt, error)
	ListReceiptsByUser(ctx context.Context, userID string) ([]*domain.Receipt, error)
}

// Uploader stores receipt files and returns their object URI.
type Uploader interface {
	UploadReceipt(ctx context.Context, userID, filename, contentType string, r io.Reader) (string, error)
}

// receiptContentTypes lists the upload types the extraction model accepts.
var receiptContentTypes = map[string]bool{
	"image/jpeg":      true,
	"image/png":       true,
	"image/webp":      true,
	"application/pdf": true,
}

// ReceiptsHandler handles receipt upload, status and approval endpoints.
type ReceiptsHandler struct {
	repo      ReceiptRepository
	uploader  Uploader
	publisher jobs.Publisher
	service   *receipts.Service
	log       zerolog.Logger
}

// NewReceiptsHandler creates a new receipts handler.
func NewReceiptsHandler(repo ReceiptRepository, uploader Uploader, publisher jobs.Publisher, service *receipts.Service, log zerolog.Logger) *ReceiptsHandler {
	return &ReceiptsHandler{
		repo:      repo,
		uploader:  uploader,
		publisher: publisher,
		service:   service,
		log:       log,
	}
}

// Upload handles POST /api/v1/receipts
func (h *ReceiptsHandler) Upload(w http.ResponseWriter, r *http.Request) {
	raw, header, ok := readMultipartFile(w, r)
	if !ok {
		return
	}

	contentType := header.Header.Get("Content-Type")
	if !receiptContentTypes[contentType] {
		middleware.WriteError(w, http.StatusBadRequest, "Unsupported file type, want JPEG, PNG, WebP or PDF")
		return
	}
	filename := path.Base(header.Filename)

	ctx := r.Context()
	userID := middleware.UserFrom(ctx)

	gcsURI, err := h.uploader.UploadReceipt(ctx, userID, filename, contentType, bytes.NewReader(raw))
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to upload receipt file")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to store file")
		return
	}

	now := time.Now().UTC()
	rec := &domain.Receipt{
		ID:               uuid.NewString(),
		UserID:           userID,
		GCSURI:           gcsURI,
		OriginalFilename: filename,
		ContentType:      contentType,
		Status:           domain.ReceiptPending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := h.repo.InsertReceipt(ctx, rec); err != nil {
		h.log.Error().Err(err).Msg("Failed to insert receipt")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to save receipt")
		return
	}

	job := &jobs.ExtractReceiptJob{
		ReceiptID:   rec.ID,
		UserID:      userID,
		GCSURI:      gcsURI,
		ContentType: contentType,
	}
	if err := h.publisher.PublishExtractReceipt(ctx, job); err != nil {
		h.log.Error().Err(err).Str("receipt_id", rec.ID).Msg("Failed to enqueue extraction job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue extraction job")
		return
	}

	h.log.Info().
		Str("receipt_id", rec.ID).
		Str("job_id", job.JobID).
		Str("gcs_uri", gcsURI).
		Msg("Receipt uploaded")

	middleware.WriteJSON(w, http.StatusAccepted, map[string]interface{}{
		"receipt": rec,
		"jobId":   job.JobID,
	})
}

// Get handles GET /api/v1/receipts/{id}
func (h *ReceiptsHandler) Get(w http.ResponseWriter, r *http.Request, receiptID string) {
	userID := middleware.UserFrom(r.Context())

	rec, err := h.repo.GetReceipt(r.Context(), userID, receiptID)
	if err != nil {
		h.log.Error().Err(err).Str("receipt_id", receiptID).Msg("Failed to get receipt")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to get receipt")
		return
	}
	if rec == nil {
		middleware.WriteError(w, http.StatusNotFound, "Receipt not found")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, rec)
}

// List handles GET /api/v1/receipts
func (h *ReceiptsHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserFrom(r.Context())

	recs, err := h.repo.ListReceiptsByUser(r.Context(), userID)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list receipts")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list receipts")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"receipts": recs,
		"count":    len(recs),
	})
}

// Approve handles POST /api/v1/receipts/{id}/approve
func (h *ReceiptsHandler) Approve(w http.ResponseWriter, r *http.Request, receiptID string) {
	// The body is optional; an empty body approves the draft as extracted.
	var override receipts.ApproveOverride
	if err := json.NewDecoder(r.Body).Decode(&override); err != nil && !errors.Is(err, io.EOF) {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	userID := middleware.UserFrom(r.Context())
	tx, err := h.service.Approve(r.Context(), userID, receiptID, &override)
	switch {
	case errors.Is(err, receipts.ErrNotFound):
		middleware.WriteError(w, http.StatusNotFound, "Receipt not found")
		return
	case errors.Is(err, receipts.ErrAlreadyApproved):
		middleware.WriteError(w, http.StatusConflict, "Receipt already approved")
		return
	case errors.Is(err, receipts.ErrNotReady):
		middleware.WriteError(w, http.StatusConflict, "Receipt has no extracted draft yet")
		return
	case err != nil:
		h.log.Error().Err(err).Str("receipt_id", receiptID).Msg("Failed to approve receipt")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to approve receipt")
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, tx)
}
