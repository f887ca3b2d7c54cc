package model

import "time"

// Submission is the durable record of one judged submission.
// The submitted code itself is not stored, only its hash.
type Submission struct {
	ID           string
	TaskID       string
	Language     string
	CodeHash     string
	Status       JudgeStatus
	Passed       bool
	HiddenPassed int
	MaxElapsedMs float64
	CreatedAt    time.Time
	FinishedAt   time.Time
}
