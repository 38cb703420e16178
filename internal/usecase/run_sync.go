package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/AdkHex/AudioSyncMaster/internal/bridge"
	"github.com/AdkHex/AudioSyncMaster/internal/domain/entity"
	"github.com/AdkHex/AudioSyncMaster/internal/domain/port"
	"github.com/AdkHex/AudioSyncMaster/internal/infra/metrics"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// EventSinkFactory builds the per-job event sink the bridge session
// dispatches to.
type EventSinkFactory func(jobID uuid.UUID) port.EventSink

// Canceler is the cancel side of the shared cancellation token.
type Canceler interface {
	Cancel()
}

type RunSyncUseCase struct {
	repo        port.JobRepository
	results     port.ResultRepository
	storage     port.MediaStorage
	prober      port.MediaProber
	runner      port.SyncRunner
	sinkFactory EventSinkFactory
	canceler    Canceler
	publisher   port.StatusPublisher
	dlq         port.DLQPublisher
	notifier    port.FailureNotifier
	logger      *zap.Logger
	tempDir     string
	maxRetry    int

	mu           sync.Mutex
	currentJobID uuid.UUID
}

type RunSyncConfig struct {
	TempDir    string
	MaxRetries int
}

func NewRunSyncUseCase(
	repo port.JobRepository,
	results port.ResultRepository,
	storage port.MediaStorage,
	prober port.MediaProber,
	runner port.SyncRunner,
	sinkFactory EventSinkFactory,
	canceler Canceler,
	publisher port.StatusPublisher,
	dlq port.DLQPublisher,
	notifier port.FailureNotifier,
	logger *zap.Logger,
	cfg RunSyncConfig,
) *RunSyncUseCase {
	return &RunSyncUseCase{
		repo:        repo,
		results:     results,
		storage:     storage,
		prober:      prober,
		runner:      runner,
		sinkFactory: sinkFactory,
		canceler:    canceler,
		publisher:   publisher,
		dlq:         dlq,
		notifier:    notifier,
		logger:      logger,
		tempDir:     cfg.TempDir,
		maxRetry:    cfg.MaxRetries,
	}
}

func (uc *RunSyncUseCase) Execute(ctx context.Context, rawMsg []byte) error {
	tracer := otel.Tracer("usecase")
	ctx, span := tracer.Start(ctx, "RunSyncUseCase.Execute")
	defer span.End()

	totalTimer := time.Now()

	var msg entity.SyncJobMessage
	if err := json.Unmarshal(rawMsg, &msg); err != nil {
		uc.logger.Error("failed to unmarshal message", zap.Error(err), zap.ByteString("body", rawMsg))
		_ = uc.dlq.PublishToDLQ(ctx, rawMsg, "unmarshal_error: "+err.Error())
		return nil
	}

	span.SetAttributes(
		attribute.String("job.id", msg.JobID.String()),
		attribute.String("job.mode", string(msg.Mode)),
	)

	log := uc.logger.With(zap.String("job_id", msg.JobID.String()), zap.String("mode", string(msg.Mode)))

	job, err := uc.repo.FindByID(ctx, msg.JobID)
	if err != nil {
		job = entity.NewSyncJob(msg.UserID, msg.Mode, uc.maxRetry)
		job.ID = msg.JobID
		if err := uc.repo.Create(ctx, job); err != nil {
			log.Error("failed to create job record", zap.Error(err))
			return fmt.Errorf("create job: %w", err)
		}
	}

	if !job.CanRetry() {
		log.Warn("job exhausted retries, sending to DLQ")
		_ = uc.handlePermanentFailure(ctx, job, msg, rawMsg, "max retries exceeded")
		return nil
	}

	job.MarkProcessing()
	if err := uc.repo.Update(ctx, job); err != nil {
		log.Error("failed to update job to PROCESSING", zap.Error(err))
		return fmt.Errorf("update job: %w", err)
	}

	metrics.ActiveJobs.Inc()
	defer metrics.ActiveJobs.Dec()

	uc.setCurrentJob(job.ID)
	defer uc.clearCurrentJob()

	if err := uc.runSyncPipeline(ctx, job, msg, rawMsg, log); err != nil {
		return err
	}

	metrics.JobsProcessedTotal.WithLabelValues(string(job.Status)).Inc()
	metrics.JobDuration.WithLabelValues("total").Observe(time.Since(totalTimer).Seconds())

	return nil
}

// Cancel requests cooperative termination of the currently running job.
// Idempotent: no active job, or a job id that does not match, is a no-op.
func (uc *RunSyncUseCase) Cancel(msg entity.CancelMessage) {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	if uc.currentJobID == uuid.Nil {
		return
	}
	if msg.JobID != uuid.Nil && msg.JobID != uc.currentJobID {
		return
	}
	uc.canceler.Cancel()
}

func (uc *RunSyncUseCase) runSyncPipeline(
	ctx context.Context,
	job *entity.SyncJob,
	msg entity.SyncJobMessage,
	rawMsg []byte,
	log *zap.Logger,
) error {
	tracer := otel.Tracer("usecase")

	workDir := filepath.Join(uc.tempDir, job.ID.String())
	if err := os.MkdirAll(workDir, 0755); err != nil {
		return fmt.Errorf("create workdir: %w", err)
	}
	defer os.RemoveAll(workDir)

	// Materialize media from object storage
	dlStart := time.Now()
	ctx2, spanDl := tracer.Start(ctx, "download_media")
	req, err := uc.stageMedia(ctx2, workDir, msg, log)
	if err != nil {
		spanDl.End()
		log.Error("failed to stage media", zap.Error(err))
		return uc.handleRetryableFailure(ctx, job, msg, rawMsg, "stage_media: "+err.Error(), log)
	}
	spanDl.End()
	metrics.JobDuration.WithLabelValues("download").Observe(time.Since(dlStart).Seconds())

	// Run the bridge session
	syncStart := time.Now()
	ctx3, spanSync := tracer.Start(ctx, "run_bridge")
	sink := uc.sinkFactory(job.ID)
	results, err := uc.runner.Run(ctx3, *req, sink)
	spanSync.End()
	metrics.JobDuration.WithLabelValues("sync").Observe(time.Since(syncStart).Seconds())

	switch {
	case errors.Is(err, bridge.ErrCanceled):
		log.Info("job canceled")
		job.MarkCanceled()
		if err := uc.repo.Update(ctx, job); err != nil {
			log.Error("failed to update job to CANCELED", zap.Error(err))
		}
		uc.publishStatus(ctx, job, nil, log)
		return nil
	case errors.Is(err, bridge.ErrWorkerNotFound):
		// A missing worker is a deployment problem; retrying the message
		// will not make the binary appear.
		log.Error("sync worker not found")
		return uc.handlePermanentFailure(ctx, job, msg, rawMsg, err.Error())
	case err != nil:
		log.Error("bridge session failed", zap.Error(err))
		return uc.handleRetryableFailure(ctx, job, msg, rawMsg, "run_bridge: "+err.Error(), log)
	}

	// Persist results
	persistStart := time.Now()
	ctx4, spanPersist := tracer.Start(ctx, "persist_results")
	if err := uc.results.ReplaceForJob(ctx4, job.ID, results); err != nil {
		spanPersist.End()
		log.Error("failed to persist results", zap.Error(err))
		return uc.handleRetryableFailure(ctx, job, msg, rawMsg, "persist_results: "+err.Error(), log)
	}
	spanPersist.End()
	metrics.JobDuration.WithLabelValues("persist").Observe(time.Since(persistStart).Seconds())

	job.MarkCompleted(len(results))
	if err := uc.repo.Update(ctx, job); err != nil {
		log.Error("failed to update job to COMPLETED", zap.Error(err))
		return fmt.Errorf("update job completed: %w", err)
	}

	uc.publishStatus(ctx, job, results, log)

	log.Info("job completed successfully", zap.Int("pair_count", len(results)))

	return nil
}

// stageMedia downloads the referenced objects into the job workdir and
// builds the worker request. Layout: workDir/video holds video inputs,
// workDir/audio holds audio inputs.
func (uc *RunSyncUseCase) stageMedia(
	ctx context.Context,
	workDir string,
	msg entity.SyncJobMessage,
	log *zap.Logger,
) (*entity.SyncRequest, error) {
	videoDir := filepath.Join(workDir, "video")
	audioDir := filepath.Join(workDir, "audio")
	for _, dir := range []string{videoDir, audioDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create media dir: %w", err)
		}
	}

	var videoFiles []string
	for _, key := range msg.VideoKeys {
		if !entity.IsVideoFile(key) {
			log.Warn("skipping object without a video extension", zap.String("key", key))
			continue
		}
		dest := filepath.Join(videoDir, filepath.Base(key))
		if err := uc.storage.DownloadMedia(ctx, key, dest); err != nil {
			return nil, fmt.Errorf("download %s: %w", key, err)
		}
		uc.probeAndLog(ctx, dest, log)
		videoFiles = append(videoFiles, dest)
	}
	if len(videoFiles) == 0 {
		return nil, fmt.Errorf("no video inputs in message")
	}

	segment := msg.SegmentDuration
	if segment <= 0 {
		segment = entity.DefaultSegmentDuration
	}

	req := &entity.SyncRequest{
		Mode:            msg.Mode,
		SegmentDuration: segment,
		MatchPattern:    msg.MatchPattern,
	}

	switch msg.Mode {
	case entity.SyncModeMovie:
		if msg.AudioKey == "" {
			return nil, fmt.Errorf("movie mode requires an audio key")
		}
		dest := filepath.Join(audioDir, filepath.Base(msg.AudioKey))
		if err := uc.storage.DownloadMedia(ctx, msg.AudioKey, dest); err != nil {
			return nil, fmt.Errorf("download %s: %w", msg.AudioKey, err)
		}
		uc.probeAndLog(ctx, dest, log)
		req.AudioFile = dest
		req.VideoFiles = videoFiles
		req.VideoFolder = videoDir
	case entity.SyncModeSeries:
		for _, key := range msg.AudioKeys {
			dest := filepath.Join(audioDir, filepath.Base(key))
			if err := uc.storage.DownloadMedia(ctx, key, dest); err != nil {
				return nil, fmt.Errorf("download %s: %w", key, err)
			}
			uc.probeAndLog(ctx, dest, log)
		}
		req.VideoFolder = videoDir
		req.AudioFolder = audioDir
	default:
		return nil, fmt.Errorf("unknown sync mode %q", msg.Mode)
	}

	return req, nil
}

// probeAndLog inspects a staged file. A failed probe is logged and does not
// fail the job; the worker reports its own per-item errors.
func (uc *RunSyncUseCase) probeAndLog(ctx context.Context, path string, log *zap.Logger) {
	probe, err := uc.prober.Probe(ctx, path)
	if err != nil {
		log.Warn("media probe failed", zap.String("path", path), zap.Error(err))
		return
	}
	fields := []zap.Field{
		zap.String("path", path),
		zap.Bool("has_audio", probe.HasAudio),
		zap.Bool("has_video", probe.HasVideo),
	}
	if probe.Duration != nil {
		fields = append(fields, zap.Float64("duration_secs", *probe.Duration))
	}
	log.Debug("media probed", fields...)
}

func (uc *RunSyncUseCase) handleRetryableFailure(
	ctx context.Context,
	job *entity.SyncJob,
	msg entity.SyncJobMessage,
	rawMsg []byte,
	errMsg string,
	log *zap.Logger,
) error {
	job.MarkFailed(errMsg)
	_ = uc.repo.Update(ctx, job)

	if !job.CanRetry() {
		return uc.handlePermanentFailure(ctx, job, msg, rawMsg, errMsg)
	}

	metrics.RetryTotal.WithLabelValues(strconv.Itoa(job.Attempt)).Inc()
	uc.publishStatus(ctx, job, nil, log)

	return fmt.Errorf("retryable failure (attempt %d/%d): %s", job.Attempt, job.MaxAttempts, errMsg)
}

func (uc *RunSyncUseCase) handlePermanentFailure(
	ctx context.Context,
	job *entity.SyncJob,
	msg entity.SyncJobMessage,
	rawMsg []byte,
	errMsg string,
) error {
	job.MarkFailed(errMsg)
	_ = uc.repo.Update(ctx, job)

	_ = uc.dlq.PublishToDLQ(ctx, rawMsg, errMsg)

	uc.publishStatus(ctx, job, nil, uc.logger)

	metrics.JobsProcessedTotal.WithLabelValues("dlq").Inc()

	if msg.UserEmail != "" {
		_ = uc.notifier.NotifyFailure(ctx, msg.UserEmail, job.ID.String(), string(job.Mode), errMsg)
	}

	return nil
}

func (uc *RunSyncUseCase) publishStatus(ctx context.Context, job *entity.SyncJob, results []entity.SyncResult, log *zap.Logger) {
	statusMsg := entity.SyncStatusMessage{
		JobID:        job.ID,
		UserID:       job.UserID,
		Status:       job.Status,
		Mode:         job.Mode,
		PairCount:    job.PairCount,
		Results:      results,
		ErrorMessage: job.ErrorMessage,
		Attempt:      job.Attempt,
		MaxAttempts:  job.MaxAttempts,
	}
	data, _ := json.Marshal(statusMsg)
	if err := uc.publisher.PublishStatus(ctx, data); err != nil {
		log.Error("failed to publish status", zap.Error(err))
	}
}

func (uc *RunSyncUseCase) setCurrentJob(id uuid.UUID) {
	uc.mu.Lock()
	uc.currentJobID = id
	uc.mu.Unlock()
}

func (uc *RunSyncUseCase) clearCurrentJob() {
	uc.mu.Lock()
	uc.currentJobID = uuid.Nil
	uc.mu.Unlock()
}
