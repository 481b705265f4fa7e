package valkey

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/buildrelay/relay-worker/internal/domain/model"
	"github.com/buildrelay/relay-worker/internal/testutil"
)

func TestJobStoreLifecycle(t *testing.T) {
	client := testutil.SetupTestValkey(t)
	store := NewJobStore(client)
	ctx := context.Background()

	job := testutil.NewTestJob("job-1")

	// New jobs have no record yet; the first transition treats them as queued.
	job.Status = model.JobStatusRunning
	require.NoError(t, store.Transition(ctx, job, model.JobStatusQueued))

	stored, err := store.Get(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusRunning, stored.Status)

	job.Status = model.JobStatusComplete
	require.NoError(t, store.Transition(ctx, job, model.JobStatusRunning))

	stored, err = store.Get(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusComplete, stored.Status)

	counts, err := store.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), counts[model.JobStatusRunning])
	assert.Equal(t, int64(1), counts[model.JobStatusComplete])
	assert.Equal(t, int64(0), counts[model.JobStatusFailed])
}

func TestJobStoreTransitionConflict(t *testing.T) {
	client := testutil.SetupTestValkey(t)
	store := NewJobStore(client)
	ctx := context.Background()

	job := testutil.NewTestJob("job-2")
	job.Status = model.JobStatusRunning
	require.NoError(t, store.Transition(ctx, job, model.JobStatusQueued))

	// A second writer claiming the same queued job loses the race.
	rival := testutil.NewTestJob("job-2")
	rival.Status = model.JobStatusRunning
	err := store.Transition(ctx, rival, model.JobStatusQueued)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStatusConflict)

	// The stored record still belongs to the winner.
	stored, getErr := store.Get(ctx, "job-2")
	require.NoError(t, getErr)
	assert.Equal(t, model.JobStatusRunning, stored.Status)

	counts, countErr := store.Counts(ctx)
	require.NoError(t, countErr)
	assert.Equal(t, int64(1), counts[model.JobStatusRunning])
}

func TestJobStoreRejectsIllegalEdges(t *testing.T) {
	client := testutil.SetupTestValkey(t)
	store := NewJobStore(client)
	ctx := context.Background()

	job := testutil.NewTestJob("job-3")
	job.Status = model.JobStatusComplete
	err := store.Transition(ctx, job, model.JobStatusQueued)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "illegal transition")

	// Nothing was written.
	_, getErr := store.Get(ctx, "job-3")
	assert.ErrorIs(t, getErr, ErrNotFound)
}

func TestJobStoreIndexMovesWithMutatedRecord(t *testing.T) {
	client := testutil.SetupTestValkey(t)
	store := NewJobStore(client)
	ctx := context.Background()

	job := testutil.NewTestJob("job-4")
	job.Status = model.JobStatusRunning
	require.NoError(t, store.Transition(ctx, job, model.JobStatusQueued))

	// Mutate the in-memory job heavily between transitions; the keyed store
	// must still move exactly one index entry.
	job.Error = "Job processing failed: boom"
	job.Status = model.JobStatusFailed
	job.EnsureResults()
	job.UploadResults.CDN = append(job.UploadResults.CDN, model.CDNUploadResult{Bucket: "releases"})
	require.NoError(t, store.Transition(ctx, job, model.JobStatusRunning))

	running, err := store.IDsByStatus(ctx, model.JobStatusRunning)
	require.NoError(t, err)
	assert.Empty(t, running)

	failed, err := store.IDsByStatus(ctx, model.JobStatusFailed)
	require.NoError(t, err)
	assert.Equal(t, []string{"job-4"}, failed)

	stored, err := store.Get(ctx, "job-4")
	require.NoError(t, err)
	assert.Equal(t, "Job processing failed: boom", stored.Error)
	require.NotNil(t, stored.UploadResults)
	require.Len(t, stored.UploadResults.CDN, 1)
}

func TestJobStoreGetMissing(t *testing.T) {
	client := testutil.SetupTestValkey(t)
	store := NewJobStore(client)

	_, err := store.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}
