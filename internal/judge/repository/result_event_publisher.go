package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"codejudge/internal/common/mq"
	"codejudge/internal/judge/model"
	appErr "codejudge/pkg/errors"
)

// ResultEventPublisher publishes terminal verdicts for downstream consumers.
type ResultEventPublisher interface {
	PublishFinalResult(ctx context.Context, status model.SubmissionStatus) error
}

// MQResultEventPublisher publishes result events to a message queue topic.
type MQResultEventPublisher struct {
	queue mq.MessageQueue
	topic string
}

// NewMQResultEventPublisher creates a new MQ result event publisher.
func NewMQResultEventPublisher(queue mq.MessageQueue, topic string) *MQResultEventPublisher {
	return &MQResultEventPublisher{queue: queue, topic: topic}
}

// PublishFinalResult publishes a final result event.
func (p *MQResultEventPublisher) PublishFinalResult(ctx context.Context, status model.SubmissionStatus) error {
	if p == nil || p.queue == nil {
		return appErr.New(appErr.ServiceUnavailable).WithMessage("result publisher is not configured")
	}
	if p.topic == "" {
		return appErr.New(appErr.InvalidParams).WithMessage("result topic is required")
	}
	if status.SubmissionID == "" {
		return appErr.ValidationError("submission_id", "required")
	}
	if !status.Status.IsFinal() {
		return appErr.New(appErr.InvalidParams).WithMessage("only final statuses are published")
	}
	event := model.ResultEvent{
		Type:      model.ResultEventFinal,
		Status:    status,
		CreatedAt: time.Now().Unix(),
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal result event failed: %w", err)
	}
	message := mq.NewMessage(payload)
	message.ID = status.SubmissionID
	if err := p.queue.Publish(ctx, p.topic, message); err != nil {
		return appErr.Wrapf(err, appErr.ServiceUnavailable, "publish result event failed")
	}
	return nil
}
