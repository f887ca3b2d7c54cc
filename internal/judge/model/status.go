package model

// JudgeStatus is the lifecycle state of one submission.
type JudgeStatus string

const (
	StatusPending  JudgeStatus = "pending"
	StatusRunning  JudgeStatus = "running"
	StatusFinished JudgeStatus = "finished"
	StatusFailed   JudgeStatus = "failed"
)

// IsFinal reports whether the status is terminal.
func (s JudgeStatus) IsFinal() bool {
	return s == StatusFinished || s == StatusFailed
}

// SubmissionStatus is the point-in-time snapshot of a submission's judging
// progress. Result is set only once the status is finished; ErrorCode and
// ErrorMessage are set only when the status is failed.
type SubmissionStatus struct {
	SubmissionID string       `json:"submission_id"`
	TaskID       string       `json:"task_id"`
	Language     string       `json:"language"`
	Status       JudgeStatus  `json:"status"`
	Result       *JudgeResult `json:"result,omitempty"`
	ErrorCode    int          `json:"error_code,omitempty"`
	ErrorMessage string       `json:"error_message,omitempty"`
	ReceivedAt   int64        `json:"received_at"`
	FinishedAt   int64        `json:"finished_at,omitempty"`
}
