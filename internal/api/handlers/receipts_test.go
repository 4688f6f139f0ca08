package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mjansen/boekhouding/internal/domain"
	"github.com/mjansen/boekhouding/internal/jobs"
	"github.com/mjansen/boekhouding/internal/receipts"
)

type mockReceiptRepo struct {
	inserted []*domain.Receipt
	receipt  *domain.Receipt
	listed   []*domain.Receipt
}

func (m *mockReceiptRepo) InsertReceipt(ctx context.Context, rec *domain.Receipt) error {
	m.inserted = append(m.inserted, rec)
	return nil
}

func (m *mockReceiptRepo) GetReceipt(ctx context.Context, userID, receiptID string) (*domain.Receipt, error) {
	return m.receipt, nil
}

func (m *mockReceiptRepo) ListReceiptsByUser(ctx context.Context, userID string) ([]*domain.Receipt, error) {
	return m.listed, nil
}

type mockUploader struct {
	gotFilename    string
	gotContentType string
	gotBytes       []byte
}

func (m *mockUploader) UploadReceipt(ctx context.Context, userID, filename, contentType string, r io.Reader) (string, error) {
	m.gotFilename = filename
	m.gotContentType = contentType
	m.gotBytes, _ = io.ReadAll(r)
	return "gs://bucket/receipts/" + userID + "/abc_" + filename, nil
}

type mockPublisher struct {
	published []*jobs.ExtractReceiptJob
}

func (m *mockPublisher) PublishExtractReceipt(ctx context.Context, job *jobs.ExtractReceiptJob) error {
	if job.JobID == "" {
		job.JobID = "job-test"
	}
	m.published = append(m.published, job)
	return nil
}

func (m *mockPublisher) Close() error { return nil }

// approveStore backs the approve flow; only the methods Approve touches do
// anything.
type approveStore struct {
	receipt    *domain.Receipt
	insertedTx *domain.Transaction
	approvedTx string
}

func (s *approveStore) GetReceipt(ctx context.Context, userID, receiptID string) (*domain.Receipt, error) {
	return s.receipt, nil
}

func (s *approveStore) MarkReceiptExtracted(ctx context.Context, userID, receiptID string, draft *domain.ReceiptDraft) error {
	return nil
}

func (s *approveStore) MarkReceiptFailed(ctx context.Context, userID, receiptID, errMsg string) error {
	return nil
}

func (s *approveStore) MarkReceiptApproved(ctx context.Context, userID, receiptID, transactionID string) error {
	s.approvedTx = transactionID
	return nil
}

func (s *approveStore) InsertTransaction(ctx context.Context, t *domain.Transaction) error {
	s.insertedTx = t
	return nil
}

func multipartUpload(t *testing.T, filename, contentType string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	header.Set("Content-Type", contentType)
	part, err := w.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	return body, w.FormDataContentType()
}

func extractedReceipt() *domain.Receipt {
	return &domain.Receipt{
		ID:               "rec-1",
		UserID:           "demo",
		GCSURI:           "gs://bucket/receipts/demo/abc_bon.jpg",
		OriginalFilename: "bon.jpg",
		ContentType:      "image/jpeg",
		Status:           domain.ReceiptExtracted,
		Draft: &domain.ReceiptDraft{
			Date:        civil.Date{Year: 2023, Month: 3, Day: 5},
			Description: "Office chair",
			Amount:      decimal.RequireFromString("150.00"),
			Category:    domain.CategoryOffice,
			VATRate:     21,
		},
	}
}

func newReceiptsHandler(repo *mockReceiptRepo, uploader *mockUploader, pub *mockPublisher, store receipts.Store) *ReceiptsHandler {
	var service *receipts.Service
	if store != nil {
		service = receipts.NewService(store, nil, nil, nil, zerolog.Nop())
	}
	return NewReceiptsHandler(repo, uploader, pub, service, zerolog.Nop())
}

func TestReceiptUpload(t *testing.T) {
	repo := &mockReceiptRepo{}
	uploader := &mockUploader{}
	pub := &mockPublisher{}
	h := newReceiptsHandler(repo, uploader, pub, nil)

	body, contentType := multipartUpload(t, "bon.jpg", "image/jpeg", []byte("jpeg-bytes"))
	req := asUser(httptest.NewRequest(http.MethodPost, "/api/v1/receipts", body), "demo")
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.Upload(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	require.Len(t, repo.inserted, 1)
	saved := repo.inserted[0]
	assert.Equal(t, "demo", saved.UserID)
	assert.Equal(t, "bon.jpg", saved.OriginalFilename)
	assert.Equal(t, "image/jpeg", saved.ContentType)
	assert.Equal(t, domain.ReceiptPending, saved.Status)
	assert.Equal(t, "gs://bucket/receipts/demo/abc_bon.jpg", saved.GCSURI)

	assert.Equal(t, []byte("jpeg-bytes"), uploader.gotBytes)

	require.Len(t, pub.published, 1)
	job := pub.published[0]
	assert.Equal(t, saved.ID, job.ReceiptID)
	assert.Equal(t, "demo", job.UserID)
	assert.Equal(t, "image/jpeg", job.ContentType)

	var resp struct {
		Receipt domain.Receipt `json:"receipt"`
		JobID   string         `json:"jobId"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, saved.ID, resp.Receipt.ID)
	assert.Equal(t, "job-test", resp.JobID)
}

func TestReceiptUploadStripsClientPath(t *testing.T) {
	repo := &mockReceiptRepo{}
	uploader := &mockUploader{}
	h := newReceiptsHandler(repo, uploader, &mockPublisher{}, nil)

	body, contentType := multipartUpload(t, "../../etc/bon.png", "image/png", []byte("png"))
	req := asUser(httptest.NewRequest(http.MethodPost, "/api/v1/receipts", body), "demo")
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.Upload(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	assert.Equal(t, "bon.png", uploader.gotFilename)
}

func TestReceiptUploadRejectsContentType(t *testing.T) {
	h := newReceiptsHandler(&mockReceiptRepo{}, &mockUploader{}, &mockPublisher{}, nil)

	body, contentType := multipartUpload(t, "notes.txt", "text/plain", []byte("hello"))
	req := asUser(httptest.NewRequest(http.MethodPost, "/api/v1/receipts", body), "demo")
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.Upload(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Unsupported file type")
}

func TestReceiptUploadRequiresFile(t *testing.T) {
	h := newReceiptsHandler(&mockReceiptRepo{}, &mockUploader{}, &mockPublisher{}, nil)

	req := asUser(httptest.NewRequest(http.MethodPost, "/api/v1/receipts", strings.NewReader("raw")), "demo")
	req.Header.Set("Content-Type", "image/jpeg")
	rec := httptest.NewRecorder()
	h.Upload(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReceiptGetNotFound(t *testing.T) {
	h := newReceiptsHandler(&mockReceiptRepo{}, &mockUploader{}, &mockPublisher{}, nil)

	req := asUser(httptest.NewRequest(http.MethodGet, "/api/v1/receipts/rec-9", nil), "demo")
	rec := httptest.NewRecorder()
	h.Get(rec, req, "rec-9")

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReceiptList(t *testing.T) {
	repo := &mockReceiptRepo{listed: []*domain.Receipt{
		{ID: "rec-1", UserID: "demo"},
		{ID: "rec-2", UserID: "demo"},
	}}
	h := newReceiptsHandler(repo, &mockUploader{}, &mockPublisher{}, nil)

	req := asUser(httptest.NewRequest(http.MethodGet, "/api/v1/receipts", nil), "demo")
	rec := httptest.NewRecorder()
	h.List(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Receipts []domain.Receipt `json:"receipts"`
		Count    int              `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Count)
	require.Len(t, resp.Receipts, 2)
}

func TestReceiptApprove(t *testing.T) {
	store := &approveStore{receipt: extractedReceipt()}
	h := newReceiptsHandler(&mockReceiptRepo{}, &mockUploader{}, &mockPublisher{}, store)

	req := asUser(httptest.NewRequest(http.MethodPost, "/api/v1/receipts/rec-1/approve", nil), "demo")
	rec := httptest.NewRecorder()
	h.Approve(rec, req, "rec-1")

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	require.NotNil(t, store.insertedTx)
	assert.Equal(t, domain.TypeExpense, store.insertedTx.Type)
	assert.Equal(t, domain.CategoryOffice, store.insertedTx.Category)
	assert.Equal(t, "150.00", store.insertedTx.Amount.StringFixed(2))
	assert.Equal(t, store.insertedTx.ID, store.approvedTx)

	var resp struct {
		Amount string `json:"amount"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "150", resp.Amount)
}

func TestReceiptApproveOverride(t *testing.T) {
	store := &approveStore{receipt: extractedReceipt()}
	h := newReceiptsHandler(&mockReceiptRepo{}, &mockUploader{}, &mockPublisher{}, store)

	body := strings.NewReader(`{"vatRate": 9, "description": "Koffie"}`)
	req := asUser(httptest.NewRequest(http.MethodPost, "/api/v1/receipts/rec-1/approve", body), "demo")
	rec := httptest.NewRecorder()
	h.Approve(rec, req, "rec-1")

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, 9, store.insertedTx.VATRate)
	assert.Equal(t, "Koffie", store.insertedTx.Description)
}

func TestReceiptApproveMissing(t *testing.T) {
	h := newReceiptsHandler(&mockReceiptRepo{}, &mockUploader{}, &mockPublisher{}, &approveStore{})

	req := asUser(httptest.NewRequest(http.MethodPost, "/api/v1/receipts/rec-9/approve", nil), "demo")
	rec := httptest.NewRecorder()
	h.Approve(rec, req, "rec-9")

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReceiptApprovePending(t *testing.T) {
	pending := extractedReceipt()
	pending.Status = domain.ReceiptPending
	pending.Draft = nil
	h := newReceiptsHandler(&mockReceiptRepo{}, &mockUploader{}, &mockPublisher{}, &approveStore{receipt: pending})

	req := asUser(httptest.NewRequest(http.MethodPost, "/api/v1/receipts/rec-1/approve", nil), "demo")
	rec := httptest.NewRecorder()
	h.Approve(rec, req, "rec-1")

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "no extracted draft")
}

func TestReceiptApproveTwice(t *testing.T) {
	approved := extractedReceipt()
	approved.Status = domain.ReceiptApproved
	h := newReceiptsHandler(&mockReceiptRepo{}, &mockUploader{}, &mockPublisher{}, &approveStore{receipt: approved})

	req := asUser(httptest.NewRequest(http.MethodPost, "/api/v1/receipts/rec-1/approve", nil), "demo")
	rec := httptest.NewRecorder()
	h.Approve(rec, req, "rec-1")

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "already approved")
}
