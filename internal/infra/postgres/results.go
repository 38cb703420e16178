package postgres

import (
	"context"
	"fmt"

	"github.com/AdkHex/AudioSyncMaster/internal/domain/entity"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ResultRepository struct {
	pool *pgxpool.Pool
}

func NewResultRepository(pool *pgxpool.Pool) *ResultRepository {
	return &ResultRepository{pool: pool}
}

// ReplaceForJob stores the final ordered result list for a job, replacing any
// rows from a previous attempt.
func (r *ResultRepository) ReplaceForJob(ctx context.Context, jobID uuid.UUID, results []entity.SyncResult) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM sync_results WHERE job_id=$1`, jobID); err != nil {
		return fmt.Errorf("delete stale results: %w", err)
	}

	query := `
		INSERT INTO sync_results (
			job_id, position, video_file, audio_file,
			start_delay, end_delay, error, elapsed_ms
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`

	for i, res := range results {
		_, err := tx.Exec(ctx, query,
			jobID, i, res.VideoFile, res.AudioFile,
			res.StartDelay, res.EndDelay, res.Error, res.ElapsedMs,
		)
		if err != nil {
			return fmt.Errorf("insert result %d: %w", i, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit results: %w", err)
	}
	return nil
}

func (r *ResultRepository) FindByJobID(ctx context.Context, jobID uuid.UUID) ([]entity.SyncResult, error) {
	query := `
		SELECT video_file, audio_file, start_delay, end_delay, error, elapsed_ms
		FROM sync_results WHERE job_id=$1 ORDER BY position`

	rows, err := r.pool.Query(ctx, query, jobID)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()

	var results []entity.SyncResult
	for rows.Next() {
		var res entity.SyncResult
		err := rows.Scan(
			&res.VideoFile, &res.AudioFile,
			&res.StartDelay, &res.EndDelay, &res.Error, &res.ElapsedMs,
		)
		if err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		results = append(results, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate results: %w", err)
	}
	return results, nil
}
