package rabbitmq

import (
	"context"
	"encoding/json"

	"github.com/AdkHex/AudioSyncMaster/internal/domain/entity"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Routing keys, one notification channel per bridge event variant plus a
// generic log channel.
const (
	routingProgress     = "sync.progress"
	routingFileStart    = "sync.file-start"
	routingFileEnd      = "sync.file-end"
	routingFileProgress = "sync.file-progress"
	routingLog          = "sync.log"
	routingResult       = "sync.result"
	routingDone         = "sync.done"
)

// EventPublisher forwards decoded bridge events for one job to the exchange,
// one message per event in arrival order. Delivery is fire-and-forget: a
// publish failure is logged and never aborts the job.
type EventPublisher struct {
	pub   *Publisher
	jobID uuid.UUID
	log   *zap.Logger
}

func NewEventPublisher(pub *Publisher, jobID uuid.UUID, log *zap.Logger) *EventPublisher {
	return &EventPublisher{pub: pub, jobID: jobID, log: log}
}

func (ep *EventPublisher) OnProgress(ev entity.ProgressEvent) {
	ep.emit(routingProgress, ev)
}

func (ep *EventPublisher) OnFileStart(ev entity.FileStartEvent) {
	ep.emit(routingFileStart, ev)
}

func (ep *EventPublisher) OnFileEnd(ev entity.FileEndEvent) {
	ep.emit(routingFileEnd, ev)
}

func (ep *EventPublisher) OnFileProgress(ev entity.FileProgressEvent) {
	ep.emit(routingFileProgress, ev)
}

func (ep *EventPublisher) OnResult(ev entity.ResultEvent) {
	ep.emit(routingResult, ev)
}

func (ep *EventPublisher) OnDone(ev entity.DoneEvent) {
	ep.emit(routingDone, ev)
}

func (ep *EventPublisher) OnLog(message string) {
	ep.emit(routingLog, entity.LogEvent{Message: message})
}

func (ep *EventPublisher) emit(routingKey string, payload any) {
	body, err := json.Marshal(struct {
		JobID uuid.UUID `json:"job_id"`
		Event any       `json:"event"`
	}{JobID: ep.jobID, Event: payload})
	if err != nil {
		ep.log.Warn("marshal event", zap.String("routing_key", routingKey), zap.Error(err))
		return
	}

	err = ep.pub.publish(context.Background(), routingKey, body, amqp.Table{
		"x-job-id": ep.jobID.String(),
	})
	if err != nil {
		ep.log.Warn("publish event", zap.String("routing_key", routingKey), zap.Error(err))
	}
}
