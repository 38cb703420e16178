package port

import (
	"context"

	"github.com/AdkHex/AudioSyncMaster/internal/domain/entity"
	"github.com/google/uuid"
)

type JobRepository interface {
	Create(ctx context.Context, job *entity.SyncJob) error
	Update(ctx context.Context, job *entity.SyncJob) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.SyncJob, error)
}

type ResultRepository interface {
	ReplaceForJob(ctx context.Context, jobID uuid.UUID, results []entity.SyncResult) error
	FindByJobID(ctx context.Context, jobID uuid.UUID) ([]entity.SyncResult, error)
}
