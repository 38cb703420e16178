package postgres

import (
	"context"
	"fmt"

	"github.com/AdkHex/AudioSyncMaster/internal/domain/entity"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type JobRepository struct {
	pool *pgxpool.Pool
}

func NewJobRepository(pool *pgxpool.Pool) *JobRepository {
	return &JobRepository{pool: pool}
}

func (r *JobRepository) Create(ctx context.Context, job *entity.SyncJob) error {
	query := `
		INSERT INTO sync_jobs (
			id, user_id, mode, status, pair_count, attempt, max_attempts,
			error_message, created_at, updated_at, completed_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`

	_, err := r.pool.Exec(ctx, query,
		job.ID, job.UserID, string(job.Mode), string(job.Status),
		job.PairCount, job.Attempt, job.MaxAttempts, job.ErrorMessage,
		job.CreatedAt, job.UpdatedAt, job.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("insert sync job: %w", err)
	}
	return nil
}

func (r *JobRepository) Update(ctx context.Context, job *entity.SyncJob) error {
	query := `
		UPDATE sync_jobs SET
			status=$2, pair_count=$3, attempt=$4, error_message=$5,
			updated_at=$6, completed_at=$7
		WHERE id=$1`

	_, err := r.pool.Exec(ctx, query,
		job.ID, string(job.Status), job.PairCount, job.Attempt,
		job.ErrorMessage, job.UpdatedAt, job.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("update sync job: %w", err)
	}
	return nil
}

func (r *JobRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.SyncJob, error) {
	query := `
		SELECT id, user_id, mode, status, pair_count, attempt, max_attempts,
			error_message, created_at, updated_at, completed_at
		FROM sync_jobs WHERE id=$1`

	job := &entity.SyncJob{}
	var mode, status string
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&job.ID, &job.UserID, &mode, &status, &job.PairCount,
		&job.Attempt, &job.MaxAttempts, &job.ErrorMessage,
		&job.CreatedAt, &job.UpdatedAt, &job.CompletedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("find sync job by id: %w", err)
	}
	job.Mode = entity.SyncMode(mode)
	job.Status = entity.JobStatus(status)
	return job, nil
}
