package service

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"testing"

	"codejudge/internal/common/mq"
	"codejudge/internal/judge/model"
)

func evaluateMessage(t *testing.T, payload model.EvaluateMessage) *mq.Message {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return mq.NewMessage(body)
}

func TestHandleMessageEvaluates(t *testing.T) {
	svc := newTestService(t, Config{
		Runner:   &fakeRunner{handler: sumHandler},
		Verdicts: newVerdictRepo(t),
	})

	msg := evaluateMessage(t, model.EvaluateMessage{
		SubmissionID: "sub-mq-1",
		TaskID:       "sum",
		Language:     "python",
		Code:         "code",
	})
	if err := svc.HandleMessage(context.Background(), msg); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}

	status, err := svc.GetStatus(context.Background(), "sub-mq-1")
	if err != nil {
		t.Fatalf("GetStatus: %v", err)
	}
	if status.Status != model.StatusFinished {
		t.Fatalf("unexpected status %q", status.Status)
	}
}

func TestHandleMessageDropsMalformedPayloads(t *testing.T) {
	svc := newTestService(t, Config{Runner: &fakeRunner{handler: sumHandler}})

	if err := svc.HandleMessage(context.Background(), mq.NewMessage([]byte("{garbage"))); err != nil {
		t.Fatalf("malformed payload must not be retried: %v", err)
	}
	if err := svc.HandleMessage(context.Background(), evaluateMessage(t, model.EvaluateMessage{TaskID: "sum"})); err != nil {
		t.Fatalf("incomplete payload must not be retried: %v", err)
	}
}

func TestHandleMessagePermanentRejectionIsNotRetried(t *testing.T) {
	svc := newTestService(t, Config{
		Runner: &fakeRunner{handler: sumHandler},
		Tasks: newTaskRepoWith(t, map[string]string{
			"sum":    sumTask,
			"broken": `{"task_id": "broken"`,
		}),
	})

	cases := []struct {
		name   string
		taskID string
	}{
		{"missing task", "ghost"},
		{"malformed task definition", "broken"},
	}
	for i, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			msg := evaluateMessage(t, model.EvaluateMessage{
				SubmissionID: "sub-mq-perm-" + strconv.Itoa(i),
				TaskID:       tc.taskID,
				Language:     "python",
				Code:         "code",
			})
			if err := svc.HandleMessage(context.Background(), msg); err != nil {
				t.Fatalf("%s must not be retried: %v", tc.name, err)
			}
		})
	}
}

func TestHandleMessageInfrastructureErrorIsRetried(t *testing.T) {
	svc := newTestService(t, Config{Runner: &fakeRunner{pingErr: errors.New("daemon down")}})

	msg := evaluateMessage(t, model.EvaluateMessage{
		SubmissionID: "sub-mq-3",
		TaskID:       "sum",
		Language:     "python",
		Code:         "code",
	})
	if err := svc.HandleMessage(context.Background(), msg); err == nil {
		t.Fatal("infrastructure failure must be surfaced for retry")
	}
}
