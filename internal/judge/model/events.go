package model

// EvaluateMessage is the payload consumed from the evaluation topic.
// It mirrors the HTTP evaluate request plus a caller-assigned submission id.
type EvaluateMessage struct {
	SubmissionID string `json:"submission_id"`
	TaskID       string `json:"task_id"`
	Language     string `json:"language"`
	Code         string `json:"code"`
}

// ResultEvent is published to the result topic when a submission reaches a
// terminal status.
type ResultEvent struct {
	Type      string           `json:"type"`
	Status    SubmissionStatus `json:"status"`
	CreatedAt int64            `json:"created_at"`
}

// ResultEventFinal is the only event type currently emitted.
const ResultEventFinal = "final"
