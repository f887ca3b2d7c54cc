package repository

import (
	"context"
	"testing"
	"time"

	"codejudge/internal/judge/model"
	appErr "codejudge/pkg/errors"
)

func TestVerdictRepositorySaveAndGet(t *testing.T) {
	t.Parallel()

	repo := NewVerdictRepository(newTestCache(t), time.Hour)

	status := model.SubmissionStatus{
		SubmissionID: "sub-1",
		TaskID:       "two_sum",
		Language:     "python",
		Status:       model.StatusFinished,
		Result: &model.JudgeResult{
			TaskID:            "two_sum",
			Passed:            true,
			VisibleTests:      []model.VisibleTestResult{{Input: "1 2\n", Expected: "3", Stdout: "3\n", Passed: true, ElapsedMs: 12.5}},
			HiddenTestsPassed: 1,
			Metrics:           model.JudgeMetrics{MaxElapsedMs: 12.5},
		},
		ReceivedAt: time.Now().Unix(),
		FinishedAt: time.Now().Unix(),
	}
	if err := repo.Save(context.Background(), status); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := repo.Get(context.Background(), "sub-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != model.StatusFinished {
		t.Fatalf("unexpected status %q", got.Status)
	}
	if got.Result == nil || !got.Result.Passed || got.Result.HiddenTestsPassed != 1 {
		t.Fatalf("unexpected result %+v", got.Result)
	}
	if got.Result.Metrics.MaxElapsedMs != 12.5 {
		t.Fatalf("unexpected metrics %+v", got.Result.Metrics)
	}
}

func TestVerdictRepositoryGetMissing(t *testing.T) {
	t.Parallel()

	repo := NewVerdictRepository(newTestCache(t), time.Hour)
	_, err := repo.Get(context.Background(), "nope")
	if appErr.GetCode(err) != appErr.SubmissionNotFound {
		t.Fatalf("expected SubmissionNotFound, got %v", err)
	}
}

func TestVerdictRepositorySaveRequiresID(t *testing.T) {
	t.Parallel()

	repo := NewVerdictRepository(newTestCache(t), time.Hour)
	err := repo.Save(context.Background(), model.SubmissionStatus{})
	if appErr.GetCode(err) != appErr.ValidationFailed {
		t.Fatalf("expected ValidationFailed, got %v", err)
	}
}
