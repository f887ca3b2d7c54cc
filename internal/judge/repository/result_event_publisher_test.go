package repository

import (
	"context"
	"encoding/json"
	"testing"

	"codejudge/internal/common/mq"
	"codejudge/internal/judge/model"
	appErr "codejudge/pkg/errors"
)

type fakeQueue struct {
	published []publishedMessage
	err       error
}

type publishedMessage struct {
	topic   string
	message *mq.Message
}

func (f *fakeQueue) Publish(ctx context.Context, topic string, message *mq.Message) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, publishedMessage{topic: topic, message: message})
	return nil
}

func (f *fakeQueue) Subscribe(ctx context.Context, topic string, handler mq.HandlerFunc, opts *mq.SubscribeOptions) error {
	return nil
}

func (f *fakeQueue) Start() error                   { return nil }
func (f *fakeQueue) Stop() error                    { return nil }
func (f *fakeQueue) Ping(ctx context.Context) error { return nil }
func (f *fakeQueue) Close() error                   { return nil }

func TestPublishFinalResult(t *testing.T) {
	t.Parallel()

	queue := &fakeQueue{}
	pub := NewMQResultEventPublisher(queue, "judge.results")

	status := model.SubmissionStatus{
		SubmissionID: "sub-9",
		TaskID:       "two_sum",
		Status:       model.StatusFinished,
		Result:       &model.JudgeResult{TaskID: "two_sum", Passed: true},
	}
	if err := pub.PublishFinalResult(context.Background(), status); err != nil {
		t.Fatalf("PublishFinalResult: %v", err)
	}

	if len(queue.published) != 1 {
		t.Fatalf("expected 1 published message, got %d", len(queue.published))
	}
	got := queue.published[0]
	if got.topic != "judge.results" {
		t.Fatalf("unexpected topic %q", got.topic)
	}
	if got.message.ID != "sub-9" {
		t.Fatalf("unexpected message id %q", got.message.ID)
	}

	var event model.ResultEvent
	if err := json.Unmarshal(got.message.Body, &event); err != nil {
		t.Fatalf("decode event: %v", err)
	}
	if event.Type != model.ResultEventFinal {
		t.Fatalf("unexpected event type %q", event.Type)
	}
	if event.Status.Result == nil || !event.Status.Result.Passed {
		t.Fatalf("unexpected event status %+v", event.Status)
	}
}

func TestPublishFinalResultRejectsNonFinal(t *testing.T) {
	t.Parallel()

	pub := NewMQResultEventPublisher(&fakeQueue{}, "judge.results")
	err := pub.PublishFinalResult(context.Background(), model.SubmissionStatus{
		SubmissionID: "sub-1",
		Status:       model.StatusRunning,
	})
	if appErr.GetCode(err) != appErr.InvalidParams {
		t.Fatalf("expected InvalidParams, got %v", err)
	}
}
