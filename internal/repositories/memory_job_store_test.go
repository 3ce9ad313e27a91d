package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brainlattice/internal/models"
)

func TestMemoryJobStore_CreateAndGet(t *testing.T) {
	store := NewMemoryJobStore()
	ctx := context.Background()

	created, err := store.CreateJob(ctx, "job-1", models.JobTypeIngestPDF, map[string]interface{}{
		"filename": "doc.pdf",
	})
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusPending, created.Status)
	assert.Equal(t, 0, created.Progress)

	got, err := store.GetJob(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, "doc.pdf", got.MetadataString("filename"))
}

func TestMemoryJobStore_GetMissing(t *testing.T) {
	store := NewMemoryJobStore()
	_, err := store.GetJob(context.Background(), "nope")
	require.Error(t, err)
	assert.True(t, IsJobNotFound(err))
}

func TestMemoryJobStore_CreateInvalidType(t *testing.T) {
	store := NewMemoryJobStore()
	_, err := store.CreateJob(context.Background(), "job-1", models.JobType("bogus"), nil)
	assert.Error(t, err)
}

func TestMemoryJobStore_ProgressNeverDecreases(t *testing.T) {
	store := NewMemoryJobStore()
	ctx := context.Background()
	_, err := store.CreateJob(ctx, "job-1", models.JobTypeIngestPDF, nil)
	require.NoError(t, err)

	require.NoError(t, store.UpdateProgress(ctx, "job-1", models.JobStatusProcessing, 60, nil))
	require.NoError(t, store.UpdateProgress(ctx, "job-1", models.JobStatusProcessing, 40, nil))

	job, err := store.GetJob(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, 60, job.Progress)

	// negative progress leaves the stored value untouched
	require.NoError(t, store.UpdateProgress(ctx, "job-1", models.JobStatusProcessing, -1, nil))
	job, err = store.GetJob(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, 60, job.Progress)
}

func TestMemoryJobStore_DetailsOnlyOnTerminalStatus(t *testing.T) {
	store := NewMemoryJobStore()
	ctx := context.Background()
	_, err := store.CreateJob(ctx, "job-1", models.JobTypeIngestPDF, nil)
	require.NoError(t, err)

	require.NoError(t, store.UpdateProgress(ctx, "job-1", models.JobStatusProcessing, 40, map[string]interface{}{
		"ignored": true,
	}))
	job, err := store.GetJob(ctx, "job-1")
	require.NoError(t, err)
	assert.Nil(t, job.Result)

	require.NoError(t, store.UpdateProgress(ctx, "job-1", models.JobStatusCompleted, 100, map[string]interface{}{
		"chunks_count": 12,
	}))
	job, err = store.GetJob(ctx, "job-1")
	require.NoError(t, err)
	require.NotNil(t, job.Result)
	assert.Equal(t, 12, job.Result["chunks_count"])
}

func TestMemoryJobStore_UpdateMetadata(t *testing.T) {
	store := NewMemoryJobStore()
	ctx := context.Background()
	_, err := store.CreateJob(ctx, "job-1", models.JobTypeIngestPDF, map[string]interface{}{
		"filename": "doc.pdf",
	})
	require.NoError(t, err)

	require.NoError(t, store.UpdateMetadata(ctx, "job-1", map[string]interface{}{
		"gemini_key": "new-key",
	}))

	job, err := store.GetJob(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, "doc.pdf", job.MetadataString("filename"))
	assert.Equal(t, "new-key", job.MetadataString("gemini_key"))
}

func TestMemoryJobStore_ResetJob(t *testing.T) {
	store := NewMemoryJobStore()
	ctx := context.Background()
	_, err := store.CreateJob(ctx, "job-1", models.JobTypeIngestPDF, nil)
	require.NoError(t, err)

	require.NoError(t, store.UpdateProgress(ctx, "job-1", models.JobStatusFailed, 80, nil))
	require.NoError(t, store.ResetJob(ctx, "job-1"))

	job, err := store.GetJob(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusPending, job.Status)
	assert.Equal(t, 0, job.Progress)

	assert.Error(t, store.ResetJob(ctx, "missing"))
}

func TestMemoryJobStore_ExtractionCache(t *testing.T) {
	store := NewMemoryJobStore()
	ctx := context.Background()

	got, err := store.GetExtractionCache(ctx, "job-1")
	require.NoError(t, err)
	assert.Nil(t, got)

	fragments := []models.GraphFragment{
		{Nodes: []models.FragmentNode{{ID: "entropy"}}},
	}
	require.NoError(t, store.SetExtractionCache(ctx, "job-1", fragments))

	got, err = store.GetExtractionCache(ctx, "job-1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "entropy", got[0].Nodes[0].ID)
}

func TestMemoryJobStore_Expiry(t *testing.T) {
	store := NewMemoryJobStore()
	ctx := context.Background()

	now := time.Now()
	store.now = func() time.Time { return now }
	_, err := store.CreateJob(ctx, "job-1", models.JobTypeIngestPDF, nil)
	require.NoError(t, err)

	store.now = func() time.Time { return now.Add((JobTTLSeconds + 1) * time.Second) }
	_, err = store.GetJob(ctx, "job-1")
	assert.True(t, IsJobNotFound(err))
}

func TestMemoryJobStore_CopiesAreIsolated(t *testing.T) {
	store := NewMemoryJobStore()
	ctx := context.Background()
	_, err := store.CreateJob(ctx, "job-1", models.JobTypeIngestPDF, map[string]interface{}{
		"filename": "doc.pdf",
	})
	require.NoError(t, err)

	job, err := store.GetJob(ctx, "job-1")
	require.NoError(t, err)
	job.Metadata["filename"] = "mutated.pdf"

	fresh, err := store.GetJob(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, "doc.pdf", fresh.MetadataString("filename"))
}
