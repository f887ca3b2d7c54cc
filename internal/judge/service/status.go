package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"codejudge/internal/judge/language"
	"codejudge/internal/judge/model"
	appErr "codejudge/pkg/errors"
	"codejudge/pkg/utils/logger"
)

// EvaluateSubmission runs Evaluate under a tracked submission id: status
// snapshots are written before, during and after judging, the terminal
// verdict is published, and the submission record is stored.
func (s *Service) EvaluateSubmission(ctx context.Context, submissionID, taskID string, lang language.Language, code string) (model.JudgeResult, error) {
	if submissionID == "" {
		return model.JudgeResult{}, appErr.ValidationError("submission_id", "required")
	}

	now := time.Now().Unix()
	status := model.SubmissionStatus{
		SubmissionID: submissionID,
		TaskID:       taskID,
		Language:     string(lang),
		Status:       model.StatusPending,
		ReceivedAt:   now,
	}
	s.saveStatus(ctx, status)
	s.recordSubmission(ctx, submissionID, taskID, lang, code)

	status.Status = model.StatusRunning
	s.saveStatus(ctx, status)

	result, err := s.Evaluate(ctx, taskID, lang, code)
	if err != nil {
		return model.JudgeResult{}, s.handleFailure(ctx, status, err)
	}

	status.Status = model.StatusFinished
	status.Result = &result
	status.FinishedAt = time.Now().Unix()
	s.saveStatus(ctx, status)
	s.publishFinal(ctx, status)
	s.finishSubmission(ctx, submissionID, model.StatusFinished, &result)
	return result, nil
}

// handleFailure records the failed terminal state and passes the original
// error back to the caller.
func (s *Service) handleFailure(ctx context.Context, status model.SubmissionStatus, err error) error {
	status.Status = model.StatusFailed
	status.Result = nil
	status.ErrorCode = int(appErr.GetCode(err))
	status.ErrorMessage = err.Error()
	status.FinishedAt = time.Now().Unix()
	s.saveStatus(ctx, status)
	s.publishFinal(ctx, status)
	s.finishSubmission(ctx, status.SubmissionID, model.StatusFailed, nil)
	return err
}

func (s *Service) saveStatus(ctx context.Context, status model.SubmissionStatus) {
	if s.verdicts == nil {
		return
	}
	if err := s.verdicts.Save(ctx, status); err != nil {
		logger.Warn(ctx, "save submission status failed", zap.Error(err))
	}
}

func (s *Service) publishFinal(ctx context.Context, status model.SubmissionStatus) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishFinalResult(ctx, status); err != nil {
		logger.Warn(ctx, "publish final result failed", zap.Error(err))
	}
}

func (s *Service) recordSubmission(ctx context.Context, submissionID, taskID string, lang language.Language, code string) {
	if s.submissions == nil {
		return
	}
	err := s.submissions.Create(ctx, model.Submission{
		ID:        submissionID,
		TaskID:    taskID,
		Language:  string(lang),
		CodeHash:  codeHash(code),
		Status:    model.StatusPending,
		CreatedAt: time.Now(),
	})
	if err != nil {
		logger.Warn(ctx, "store submission record failed", zap.Error(err))
	}
}

func (s *Service) finishSubmission(ctx context.Context, submissionID string, status model.JudgeStatus, result *model.JudgeResult) {
	if s.submissions == nil {
		return
	}
	if err := s.submissions.Finish(ctx, submissionID, status, result); err != nil {
		logger.Warn(ctx, "finalize submission record failed", zap.Error(err))
	}
}

// GetStatus returns the stored status snapshot for a submission.
func (s *Service) GetStatus(ctx context.Context, submissionID string) (model.SubmissionStatus, error) {
	if s.verdicts == nil {
		return model.SubmissionStatus{}, appErr.New(appErr.ServiceUnavailable).WithMessage("verdict storage is not configured")
	}
	return s.verdicts.Get(ctx, submissionID)
}
