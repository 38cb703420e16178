package entity

import (
	"time"

	"github.com/google/uuid"
)

type JobStatus string

const (
	JobStatusPending    JobStatus = "PENDING"
	JobStatusProcessing JobStatus = "PROCESSING"
	JobStatusCompleted  JobStatus = "COMPLETED"
	JobStatusFailed     JobStatus = "FAILED"
	JobStatusCanceled   JobStatus = "CANCELED"
)

// SyncJob tracks one synchronization batch through its lifecycle.
type SyncJob struct {
	ID           uuid.UUID
	UserID       string
	Mode         SyncMode
	Status       JobStatus
	PairCount    int
	Attempt      int
	MaxAttempts  int
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	CompletedAt  *time.Time
}

func NewSyncJob(userID string, mode SyncMode, maxAttempts int) *SyncJob {
	now := time.Now().UTC()
	return &SyncJob{
		ID:          uuid.New(),
		UserID:      userID,
		Mode:        mode,
		Status:      JobStatusPending,
		Attempt:     0,
		MaxAttempts: maxAttempts,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func (j *SyncJob) MarkProcessing() {
	j.Status = JobStatusProcessing
	j.Attempt++
	j.UpdatedAt = time.Now().UTC()
}

func (j *SyncJob) MarkCompleted(pairCount int) {
	now := time.Now().UTC()
	j.Status = JobStatusCompleted
	j.PairCount = pairCount
	j.UpdatedAt = now
	j.CompletedAt = &now
}

func (j *SyncJob) MarkFailed(errMsg string) {
	j.Status = JobStatusFailed
	j.ErrorMessage = errMsg
	j.UpdatedAt = time.Now().UTC()
}

func (j *SyncJob) MarkCanceled() {
	now := time.Now().UTC()
	j.Status = JobStatusCanceled
	j.UpdatedAt = now
	j.CompletedAt = &now
}

func (j *SyncJob) CanRetry() bool {
	return j.Attempt < j.MaxAttempts
}
