package inmemory

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mjansen/boekhouding/internal/jobs"
)

func newJob(id string) *jobs.ExtractReceiptJob {
	return &jobs.ExtractReceiptJob{
		JobID:       id,
		ReceiptID:   "rec-1",
		UserID:      "demo",
		GCSURI:      "gs://bucket/receipts/demo/rec-1.jpg",
		ContentType: "image/jpeg",
	}
}

// waitForStatus polls the store until the job reaches the wanted status.
func waitForStatus(t *testing.T, store *Store, jobID string, want jobs.JobStatus) *jobs.ExtractReceiptJob {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		job, err := store.GetJob(context.Background(), jobID)
		if err == nil && job.Status == want {
			return job
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("job %s never reached status %s", jobID, want)
	return nil
}

func TestQueueProcessesPublishedJob(t *testing.T) {
	store := NewStore()
	q := NewQueue(4, store)
	defer q.Close()

	var calls atomic.Int32
	err := q.Start(context.Background(), func(ctx context.Context, job jobs.Job) error {
		calls.Add(1)
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, q.PublishExtractReceipt(context.Background(), newJob("job-1")))

	done := waitForStatus(t, store, "job-1", jobs.JobStatusCompleted)
	assert.Equal(t, int32(1), calls.Load())
	assert.NotNil(t, done.StartedAt)
	assert.NotNil(t, done.CompletedAt)
	assert.Empty(t, done.Error)
}

func TestQueueRetriesThenFails(t *testing.T) {
	store := NewStore()
	q := NewQueue(4, store)
	defer q.Close()

	var calls atomic.Int32
	err := q.Start(context.Background(), func(ctx context.Context, job jobs.Job) error {
		calls.Add(1)
		return errors.New("model unavailable")
	})
	require.NoError(t, err)

	job := newJob("job-2")
	job.MaxRetries = 1
	require.NoError(t, q.PublishExtractReceipt(context.Background(), job))

	failed := waitForStatus(t, store, "job-2", jobs.JobStatusFailed)
	// One original attempt plus one retry.
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, 1, failed.RetryCount)
	assert.Contains(t, failed.Error, "model unavailable")
}

func TestQueueRetrySucceeds(t *testing.T) {
	store := NewStore()
	q := NewQueue(4, store)
	defer q.Close()

	var calls atomic.Int32
	err := q.Start(context.Background(), func(ctx context.Context, job jobs.Job) error {
		if calls.Add(1) == 1 {
			return errors.New("transient")
		}
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, q.PublishExtractReceipt(context.Background(), newJob("job-3")))

	done := waitForStatus(t, store, "job-3", jobs.JobStatusCompleted)
	assert.Equal(t, int32(2), calls.Load())
	assert.Empty(t, done.Error)
}

func TestQueuePublishFillsDefaults(t *testing.T) {
	store := NewStore()
	q := NewQueue(4, store)
	defer q.Close()

	job := newJob("")
	require.NoError(t, q.PublishExtractReceipt(context.Background(), job))

	assert.NotEmpty(t, job.JobID)
	assert.Equal(t, jobs.JobStatusPending, job.Status)
	assert.Equal(t, 3, job.MaxRetries)
	assert.False(t, job.CreatedAt.IsZero())

	saved, err := store.GetJob(context.Background(), job.JobID)
	require.NoError(t, err)
	assert.Equal(t, "rec-1", saved.ReceiptID)
}

func TestQueuePublishAfterStop(t *testing.T) {
	q := NewQueue(4, NewStore())
	require.NoError(t, q.Stop(context.Background()))

	err := q.PublishExtractReceipt(context.Background(), newJob("job-4"))
	assert.Error(t, err)
}

func TestQueueStopIsIdempotent(t *testing.T) {
	q := NewQueue(4, NewStore())
	require.NoError(t, q.Stop(context.Background()))
	require.NoError(t, q.Stop(context.Background()))
}

func TestStoreSaveKeepsACopy(t *testing.T) {
	store := NewStore()

	job := newJob("job-5")
	job.Status = jobs.JobStatusPending
	require.NoError(t, store.SaveJob(context.Background(), job))

	job.Status = jobs.JobStatusFailed

	saved, err := store.GetJob(context.Background(), "job-5")
	require.NoError(t, err)
	assert.Equal(t, jobs.JobStatusPending, saved.Status)
}

func TestStoreSaveRequiresID(t *testing.T) {
	err := NewStore().SaveJob(context.Background(), &jobs.ExtractReceiptJob{})
	assert.Error(t, err)
}

func TestStoreGetMissing(t *testing.T) {
	_, err := NewStore().GetJob(context.Background(), "job-404")
	assert.Error(t, err)
}

func TestStoreListJobsFilters(t *testing.T) {
	store := NewStore()
	seed := []*jobs.ExtractReceiptJob{
		{JobID: "a", UserID: "demo", ReceiptID: "rec-1", Status: jobs.JobStatusCompleted},
		{JobID: "b", UserID: "demo", ReceiptID: "rec-2", Status: jobs.JobStatusPending},
		{JobID: "c", UserID: "mara", ReceiptID: "rec-3", Status: jobs.JobStatusCompleted},
	}
	for _, j := range seed {
		require.NoError(t, store.SaveJob(context.Background(), j))
	}

	byUser, err := store.ListJobs(context.Background(), jobs.JobFilter{UserID: "demo"})
	require.NoError(t, err)
	assert.Len(t, byUser, 2)

	byReceipt, err := store.ListJobs(context.Background(), jobs.JobFilter{ReceiptID: "rec-3"})
	require.NoError(t, err)
	require.Len(t, byReceipt, 1)
	assert.Equal(t, "c", byReceipt[0].JobID)

	byStatus, err := store.ListJobs(context.Background(), jobs.JobFilter{UserID: "demo", Status: jobs.JobStatusPending})
	require.NoError(t, err)
	require.Len(t, byStatus, 1)
	assert.Equal(t, "b", byStatus[0].JobID)

	limited, err := store.ListJobs(context.Background(), jobs.JobFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	beyond, err := store.ListJobs(context.Background(), jobs.JobFilter{Offset: 10})
	require.NoError(t, err)
	assert.Empty(t, beyond)
}

func TestStoreUpdateJobStatus(t *testing.T) {
	store := NewStore()
	require.NoError(t, store.SaveJob(context.Background(), newJob("job-6")))

	require.NoError(t, store.UpdateJobStatus(context.Background(), "job-6", jobs.JobStatusFailed, "boom"))

	saved, err := store.GetJob(context.Background(), "job-6")
	require.NoError(t, err)
	assert.Equal(t, jobs.JobStatusFailed, saved.Status)
	assert.Equal(t, "boom", saved.Error)

	assert.Error(t, store.UpdateJobStatus(context.Background(), "job-404", jobs.JobStatusFailed, ""))
}
