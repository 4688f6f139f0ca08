package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mjansen/boekhouding/internal/jobs"
	"github.com/mjansen/boekhouding/internal/jobs/inmemory"
)

func seedJob(t *testing.T, store *inmemory.Store, jobID, userID, receiptID string, status jobs.JobStatus) {
	t.Helper()
	err := store.SaveJob(context.Background(), &jobs.ExtractReceiptJob{
		JobID:     jobID,
		ReceiptID: receiptID,
		UserID:    userID,
		GCSURI:    "gs://bucket/receipts/" + userID + "/" + receiptID,
		Status:    status,
	})
	require.NoError(t, err)
}

func TestGetJob(t *testing.T) {
	store := inmemory.NewStore()
	seedJob(t, store, "job-1", "demo", "rec-1", jobs.JobStatusCompleted)
	h := NewJobsHandler(store, zerolog.Nop())

	req := asUser(httptest.NewRequest(http.MethodGet, "/api/v1/jobs/job-1", nil), "demo")
	rec := httptest.NewRecorder()
	h.GetJob(rec, req, "job-1")

	require.Equal(t, http.StatusOK, rec.Code)

	var got jobs.ExtractReceiptJob
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "rec-1", got.ReceiptID)
	assert.Equal(t, jobs.JobStatusCompleted, got.Status)
}

func TestGetJobOtherUser(t *testing.T) {
	store := inmemory.NewStore()
	seedJob(t, store, "job-1", "mara", "rec-1", jobs.JobStatusCompleted)
	h := NewJobsHandler(store, zerolog.Nop())

	req := asUser(httptest.NewRequest(http.MethodGet, "/api/v1/jobs/job-1", nil), "demo")
	rec := httptest.NewRecorder()
	h.GetJob(rec, req, "job-1")

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetJobMissing(t *testing.T) {
	h := NewJobsHandler(inmemory.NewStore(), zerolog.Nop())

	req := asUser(httptest.NewRequest(http.MethodGet, "/api/v1/jobs/nope", nil), "demo")
	rec := httptest.NewRecorder()
	h.GetJob(rec, req, "nope")

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListJobsScopedToUser(t *testing.T) {
	store := inmemory.NewStore()
	seedJob(t, store, "job-1", "demo", "rec-1", jobs.JobStatusCompleted)
	seedJob(t, store, "job-2", "demo", "rec-2", jobs.JobStatusFailed)
	seedJob(t, store, "job-3", "mara", "rec-3", jobs.JobStatusCompleted)
	h := NewJobsHandler(store, zerolog.Nop())

	req := asUser(httptest.NewRequest(http.MethodGet, "/api/v1/jobs", nil), "demo")
	rec := httptest.NewRecorder()
	h.ListJobs(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Jobs  []jobs.ExtractReceiptJob `json:"jobs"`
		Count int                      `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Count)
	for _, j := range resp.Jobs {
		assert.Equal(t, "demo", j.UserID)
	}
}

func TestListJobsByReceipt(t *testing.T) {
	store := inmemory.NewStore()
	seedJob(t, store, "job-1", "demo", "rec-1", jobs.JobStatusCompleted)
	seedJob(t, store, "job-2", "demo", "rec-2", jobs.JobStatusCompleted)
	h := NewJobsHandler(store, zerolog.Nop())

	req := asUser(httptest.NewRequest(http.MethodGet, "/api/v1/jobs?receipt_id=rec-2", nil), "demo")
	rec := httptest.NewRecorder()
	h.ListJobs(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Jobs  []jobs.ExtractReceiptJob `json:"jobs"`
		Count int                      `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, 1, resp.Count)
	assert.Equal(t, "job-2", resp.Jobs[0].JobID)
}
