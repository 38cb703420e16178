package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AdkHex/AudioSyncMaster/internal/bridge"
	"github.com/AdkHex/AudioSyncMaster/internal/domain/port"
	"github.com/AdkHex/AudioSyncMaster/internal/infra/config"
	"github.com/AdkHex/AudioSyncMaster/internal/infra/email"
	"github.com/AdkHex/AudioSyncMaster/internal/infra/ffprobe"
	"github.com/AdkHex/AudioSyncMaster/internal/infra/metrics"
	miniostorage "github.com/AdkHex/AudioSyncMaster/internal/infra/minio"
	"github.com/AdkHex/AudioSyncMaster/internal/infra/postgres"
	"github.com/AdkHex/AudioSyncMaster/internal/infra/rabbitmq"
	"github.com/AdkHex/AudioSyncMaster/internal/infra/tracing"
	"github.com/AdkHex/AudioSyncMaster/internal/usecase"
	"github.com/AdkHex/AudioSyncMaster/pkg/logger"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	fatalOnErr(err, "load config")

	log, err := logger.New(cfg.LogLevel)
	fatalOnErr(err, "init logger")
	defer log.Sync()

	log.Info("starting audiosync-processing-service")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Tracing (non-fatal if the collector is unavailable)
	tp, err := tracing.InitTracer(ctx, cfg.JaegerEndpoint)
	if err != nil {
		log.Warn("tracing init failed, continuing without tracing", zap.Error(err))
	} else {
		defer tp.Shutdown(ctx)
	}

	// Database
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	fatalOnErr(err, "connect to postgres")
	defer pool.Close()

	// Migrations
	err = postgres.RunMigrations(cfg.DatabaseURL, "migrations")
	if err != nil {
		log.Warn("migration warning", zap.Error(err))
	}

	// MinIO
	storage, err := miniostorage.NewStorage(miniostorage.StorageConfig{
		Endpoint:    cfg.MinIOEndpoint,
		AccessKey:   cfg.MinIOAccessKey,
		SecretKey:   cfg.MinIOSecretKey,
		UseSSL:      cfg.MinIOUseSSL,
		MediaBucket: cfg.MinIOMediaBucket,
	})
	fatalOnErr(err, "create minio storage")
	fatalOnErr(storage.EnsureBuckets(ctx), "ensure minio buckets")

	// RabbitMQ publisher connection
	rmqConn, err := amqp.Dial(cfg.RabbitMQURL)
	fatalOnErr(err, "connect to rabbitmq for publisher")
	defer rmqConn.Close()

	pub, err := rabbitmq.NewPublisher(rmqConn, cfg.RabbitMQExchange)
	fatalOnErr(err, "create rabbitmq publisher")

	statusPub := rabbitmq.NewStatusPublisher(pub)
	dlqPub := rabbitmq.NewDLQPublisher(pub, cfg.RabbitMQDLQ)

	// Infra adapters
	jobRepo := postgres.NewJobRepository(pool)
	resultRepo := postgres.NewResultRepository(pool)
	prober := ffprobe.NewProber()
	notifier := email.NewSMTPNotifier(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom, log)

	// Bridge session: shared cancellation token, one job at a time
	token := bridge.NewCancelToken()
	locator := bridge.NewLocator(cfg.WorkerResourceDir)
	session := bridge.NewSession(locator, token, log.Named("bridge"))

	// Use case
	uc := usecase.NewRunSyncUseCase(
		jobRepo, resultRepo, storage, prober, session,
		func(jobID uuid.UUID) port.EventSink {
			return rabbitmq.NewEventPublisher(pub, jobID, log.Named("events"))
		},
		token,
		statusPub, dlqPub, notifier,
		log,
		usecase.RunSyncConfig{
			TempDir:    cfg.TempDir,
			MaxRetries: cfg.MaxRetries,
		},
	)

	// Metrics server
	metricsSrv := metrics.StartMetricsServer(ctx, cfg.MetricsPort, log)

	// Job consumer
	consumer, err := rabbitmq.NewConsumer(rabbitmq.ConsumerConfig{
		URL:         cfg.RabbitMQURL,
		Queue:       cfg.RabbitMQSyncQueue,
		Exchange:    cfg.RabbitMQExchange,
		DLQ:         cfg.RabbitMQDLQ,
		StatusQueue: cfg.RabbitMQStatus,
		CancelQueue: cfg.RabbitMQCancel,
		Prefetch:    cfg.RabbitMQPrefetch,
		BaseDelayMs: cfg.RetryBaseDelayMs,
	}, uc.Execute, log)
	fatalOnErr(err, "create consumer")

	// Cancel consumer on the publisher connection, so cancel requests are
	// seen while a job delivery is in flight
	cancelConsumer, err := rabbitmq.NewCancelConsumer(rmqConn, cfg.RabbitMQCancel, uc.Cancel, log)
	fatalOnErr(err, "create cancel consumer")
	fatalOnErr(cancelConsumer.Start(ctx), "start cancel consumer")

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Info("received shutdown signal", zap.String("signal", sig.String()))
		cancel()
	}()

	log.Info("audiosync-processing-service started, consuming jobs")

	if err := consumer.Start(ctx); err != nil {
		log.Error("consumer error", zap.Error(err))
	}

	// Shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	metricsSrv.Shutdown(shutdownCtx)

	cancelConsumer.Close()
	consumer.Close()
	log.Info("audiosync-processing-service stopped")
}

func fatalOnErr(err error, msg string) {
	if err != nil {
		panic(msg + ": " + err.Error())
	}
}
