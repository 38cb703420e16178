package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSyncJobLifecycle(t *testing.T) {
	job := NewSyncJob("user-1", SyncModeMovie, 3)
	assert.Equal(t, JobStatusPending, job.Status)
	assert.True(t, job.CanRetry())

	job.MarkProcessing()
	assert.Equal(t, JobStatusProcessing, job.Status)
	assert.Equal(t, 1, job.Attempt)

	job.MarkCompleted(4)
	assert.Equal(t, JobStatusCompleted, job.Status)
	assert.Equal(t, 4, job.PairCount)
	assert.NotNil(t, job.CompletedAt)
}

func TestSyncJobRetryExhaustion(t *testing.T) {
	job := NewSyncJob("user-1", SyncModeSeries, 2)
	job.MarkProcessing()
	job.MarkFailed("boom")
	assert.True(t, job.CanRetry())

	job.MarkProcessing()
	job.MarkFailed("boom again")
	assert.False(t, job.CanRetry())
	assert.Equal(t, "boom again", job.ErrorMessage)
}

func TestSyncJobCanceled(t *testing.T) {
	job := NewSyncJob("user-1", SyncModeMovie, 3)
	job.MarkProcessing()
	job.MarkCanceled()
	assert.Equal(t, JobStatusCanceled, job.Status)
	assert.NotNil(t, job.CompletedAt)
	assert.Empty(t, job.ErrorMessage)
}

func TestIsVideoFile(t *testing.T) {
	assert.True(t, IsVideoFile("movie.mp4"))
	assert.True(t, IsVideoFile("Movie.MKV"))
	assert.True(t, IsVideoFile("/abs/path/clip.webm"))
	assert.False(t, IsVideoFile("audio.wav"))
	assert.False(t, IsVideoFile("noext"))
}
