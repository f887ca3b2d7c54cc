package service

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"codejudge/internal/common/mq"
	"codejudge/internal/judge/language"
	"codejudge/internal/judge/model"
	appErr "codejudge/pkg/errors"
	"codejudge/pkg/utils/contextkey"
	"codejudge/pkg/utils/logger"
)

// HandleMessage processes one evaluation request from the message queue.
// Malformed messages and permanent rejections return nil so they are not
// redelivered; infrastructure failures return the error for retry.
func (s *Service) HandleMessage(ctx context.Context, msg *mq.Message) error {
	if msg == nil {
		return appErr.New(appErr.InvalidParams).WithMessage("message is nil")
	}
	var payload model.EvaluateMessage
	if err := json.Unmarshal(msg.Body, &payload); err != nil {
		logger.Warn(ctx, "drop undecodable evaluate message", zap.Error(err))
		return nil
	}
	if payload.SubmissionID == "" || payload.TaskID == "" || payload.Language == "" || payload.Code == "" {
		logger.Warn(ctx, "drop evaluate message with missing fields",
			zap.String("submission_id", payload.SubmissionID),
			zap.String("task_id", payload.TaskID))
		return nil
	}

	ctx = context.WithValue(ctx, contextkey.SubmissionID, payload.SubmissionID)

	_, err := s.EvaluateSubmission(ctx, payload.SubmissionID, payload.TaskID, language.Language(payload.Language), payload.Code)
	if err != nil {
		code := appErr.GetCode(err)
		switch code {
		case appErr.TaskNotFound, appErr.TaskDataInvalid, appErr.LanguageNotSupported, appErr.CodeTooLarge, appErr.ValidationFailed, appErr.InvalidParams:
			// Permanent rejection; retrying cannot succeed.
			return nil
		}
		return err
	}
	return nil
}
