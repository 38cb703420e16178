//go:build !windows

package integration

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/AdkHex/AudioSyncMaster/internal/bridge"
	"github.com/AdkHex/AudioSyncMaster/internal/domain/entity"
	"github.com/AdkHex/AudioSyncMaster/internal/domain/port"
	"github.com/AdkHex/AudioSyncMaster/internal/infra/email"
	miniostorage "github.com/AdkHex/AudioSyncMaster/internal/infra/minio"
	"github.com/AdkHex/AudioSyncMaster/internal/infra/postgres"
	"github.com/AdkHex/AudioSyncMaster/internal/infra/rabbitmq"
	"github.com/AdkHex/AudioSyncMaster/internal/usecase"
	"github.com/AdkHex/AudioSyncMaster/pkg/logger"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcminio "github.com/testcontainers/testcontainers-go/modules/minio"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	tcrabbitmq "github.com/testcontainers/testcontainers-go/modules/rabbitmq"
)

// stubWorker speaks the bridge protocol: it consumes the request from stdin
// and emits a fixed event stream.
const stubWorker = `#!/bin/sh
request=$(cat)
echo '{"type":"log","message":"stub worker started"}'
echo '{"type":"file_start","file":"a.mp4"}'
echo '{"type":"result","videoFile":"a.mp4","audioFile":"a.wav","startDelay":120.5,"endDelay":-30.0,"error":null,"elapsed_ms":842}'
echo '{"type":"done","results":[{"videoFile":"a.mp4","audioFile":"a.wav","startDelay":120.5,"endDelay":-30.0,"error":null,"elapsed_ms":842}]}'
exit 0
`

type noopProber struct{}

func (noopProber) Probe(context.Context, string) (*port.MediaProbe, error) {
	return &port.MediaProbe{HasAudio: true, HasVideo: true}, nil
}

func TestSyncJobEndToEnd(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	// Start PostgreSQL container
	pgContainer, err := tcpostgres.Run(ctx,
		"postgres:15-alpine",
		tcpostgres.WithDatabase("jobs"),
		tcpostgres.WithUsername("sync_user"),
		tcpostgres.WithPassword("sync_pass"),
		tcpostgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	defer pgContainer.Terminate(ctx)

	pgConnStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	// Start RabbitMQ container
	rmqContainer, err := tcrabbitmq.Run(ctx,
		"rabbitmq:3.12-management-alpine",
	)
	require.NoError(t, err)
	defer rmqContainer.Terminate(ctx)

	rmqURL, err := rmqContainer.AmqpURL(ctx)
	require.NoError(t, err)

	// Start MinIO container
	minioContainer, err := tcminio.Run(ctx,
		"minio/minio:latest",
		tcminio.WithUsername("minioadmin"),
		tcminio.WithPassword("minioadmin"),
	)
	require.NoError(t, err)
	defer minioContainer.Terminate(ctx)

	minioEndpoint, err := minioContainer.ConnectionString(ctx)
	require.NoError(t, err)

	// Run migrations
	err = postgres.RunMigrations(pgConnStr, "../../migrations")
	require.NoError(t, err)

	// Setup MinIO storage
	storage, err := miniostorage.NewStorage(miniostorage.StorageConfig{
		Endpoint:    minioEndpoint,
		AccessKey:   "minioadmin",
		SecretKey:   "minioadmin",
		UseSSL:      false,
		MediaBucket: "media",
	})
	require.NoError(t, err)
	require.NoError(t, storage.EnsureBuckets(ctx))

	// Upload placeholder media; the stub worker never opens them.
	minioClient, err := miniogo.New(minioEndpoint, &miniogo.Options{
		Creds:  credentials.NewStaticV4("minioadmin", "minioadmin", ""),
		Secure: false,
	})
	require.NoError(t, err)

	mediaDir := t.TempDir()
	for _, name := range []string{"a.mp4", "a.wav"} {
		local := filepath.Join(mediaDir, name)
		require.NoError(t, os.WriteFile(local, []byte("media"), 0o644))
		_, err = minioClient.FPutObject(ctx, "media", "testuser/"+name, local, miniogo.PutObjectOptions{})
		require.NoError(t, err)
	}

	// Install the stub worker as the sidecar binary.
	resourceDir := t.TempDir()
	sidecar := filepath.Join(resourceDir, "bin", "audiosync-cli")
	require.NoError(t, os.MkdirAll(filepath.Dir(sidecar), 0o755))
	require.NoError(t, os.WriteFile(sidecar, []byte(stubWorker), 0o755))

	// Setup RabbitMQ publishers
	rmqConn, err := amqp.Dial(rmqURL)
	require.NoError(t, err)
	defer rmqConn.Close()

	pub, err := rabbitmq.NewPublisher(rmqConn, "audiosync")
	require.NoError(t, err)

	statusPub := rabbitmq.NewStatusPublisher(pub)
	dlqPub := rabbitmq.NewDLQPublisher(pub, "sync.jobs.dlq")

	// Database pool and repositories
	pool, err := pgxpool.New(ctx, pgConnStr)
	require.NoError(t, err)
	defer pool.Close()

	jobRepo := postgres.NewJobRepository(pool)
	resultRepo := postgres.NewResultRepository(pool)

	log, err := logger.New("debug")
	require.NoError(t, err)

	token := bridge.NewCancelToken()
	session := bridge.NewSession(bridge.NewLocator(resourceDir), token, log)
	notifier := email.NewSMTPNotifier("localhost", 1025, "noreply@audiosync.local", log)

	uc := usecase.NewRunSyncUseCase(
		jobRepo, resultRepo, storage, noopProber{}, session,
		func(jobID uuid.UUID) port.EventSink {
			return rabbitmq.NewEventPublisher(pub, jobID, log)
		},
		token,
		statusPub, dlqPub, notifier,
		log,
		usecase.RunSyncConfig{TempDir: t.TempDir(), MaxRetries: 3},
	)

	// Declare queues so published events/status have a destination.
	consumer, err := rabbitmq.NewConsumer(rabbitmq.ConsumerConfig{
		URL:         rmqURL,
		Queue:       "sync.jobs",
		Exchange:    "audiosync",
		DLQ:         "sync.jobs.dlq",
		StatusQueue: "sync.status",
		CancelQueue: "sync.cancel",
		Prefetch:    1,
		BaseDelayMs: 100,
	}, uc.Execute, log)
	require.NoError(t, err)
	defer consumer.Close()

	// Execute the job directly, as the consumer would.
	jobID := uuid.New()
	msg := entity.SyncJobMessage{
		JobID:           jobID,
		UserID:          "testuser",
		Mode:            entity.SyncModeMovie,
		VideoKeys:       []string{"testuser/a.mp4"},
		AudioKey:        "testuser/a.wav",
		SegmentDuration: 5.0,
	}
	raw, err := json.Marshal(msg)
	require.NoError(t, err)

	require.NoError(t, uc.Execute(ctx, raw))

	// Job reached COMPLETED with the done list persisted.
	job, err := jobRepo.FindByID(ctx, jobID)
	require.NoError(t, err)
	assert.Equal(t, entity.JobStatusCompleted, job.Status)
	assert.Equal(t, 1, job.PairCount)

	results, err := resultRepo.FindByJobID(ctx, jobID)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a.mp4", results[0].VideoFile)
	assert.Equal(t, "a.wav", results[0].AudioFile)
	require.NotNil(t, results[0].StartDelay)
	assert.Equal(t, 120.5, *results[0].StartDelay)
	require.NotNil(t, results[0].ElapsedMs)
	assert.Equal(t, int64(842), *results[0].ElapsedMs)

	// Terminal status was published to the status queue.
	statusCh, err := rmqConn.Channel()
	require.NoError(t, err)
	defer statusCh.Close()

	require.Eventually(t, func() bool {
		delivery, ok, err := statusCh.Get("sync.status", true)
		if err != nil || !ok {
			return false
		}
		var status entity.SyncStatusMessage
		if err := json.Unmarshal(delivery.Body, &status); err != nil {
			return false
		}
		return status.JobID == jobID && status.Status == entity.JobStatusCompleted
	}, 10*time.Second, 200*time.Millisecond)
}
