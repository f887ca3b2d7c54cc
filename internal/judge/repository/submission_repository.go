package repository

import (
	"context"
	"time"

	"codejudge/internal/common/db"
	"codejudge/internal/judge/model"
	appErr "codejudge/pkg/errors"
)

// SubmissionRepository persists judged submissions in MySQL. Only the
// verdict summary is stored; the submitted code is kept as a hash.
type SubmissionRepository struct {
	db *db.MySQL
}

// NewSubmissionRepository creates a new repository.
func NewSubmissionRepository(database *db.MySQL) *SubmissionRepository {
	return &SubmissionRepository{db: database}
}

// Create inserts a new submission row in pending state.
func (r *SubmissionRepository) Create(ctx context.Context, sub model.Submission) error {
	if sub.ID == "" {
		return appErr.ValidationError("id", "required")
	}
	query := `INSERT INTO submissions
		(id, task_id, language, code_hash, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`
	if _, err := r.db.Exec(ctx, query,
		sub.ID, sub.TaskID, sub.Language, sub.CodeHash, string(model.StatusPending), sub.CreatedAt,
	); err != nil {
		return appErr.Wrapf(err, appErr.DatabaseError, "insert submission %s", sub.ID)
	}
	return nil
}

// Finish records the terminal verdict for a submission.
func (r *SubmissionRepository) Finish(ctx context.Context, id string, status model.JudgeStatus, result *model.JudgeResult) error {
	if id == "" {
		return appErr.ValidationError("id", "required")
	}
	if !status.IsFinal() {
		return appErr.New(appErr.InvalidParams).WithMessage("status must be terminal")
	}

	passed := false
	hiddenPassed := 0
	maxElapsed := 0.0
	if result != nil {
		passed = result.Passed
		hiddenPassed = result.HiddenTestsPassed
		maxElapsed = result.Metrics.MaxElapsedMs
	}

	query := `UPDATE submissions
		SET status = ?, passed = ?, hidden_passed = ?, max_elapsed_ms = ?, finished_at = ?
		WHERE id = ?`
	res, err := r.db.Exec(ctx, query,
		string(status), passed, hiddenPassed, maxElapsed, time.Now(), id,
	)
	if err != nil {
		return appErr.Wrapf(err, appErr.DatabaseError, "finish submission %s", id)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return appErr.Newf(appErr.SubmissionNotFound, "submission %s not found", id)
	}
	return nil
}

// Get returns one submission row.
func (r *SubmissionRepository) Get(ctx context.Context, id string) (model.Submission, error) {
	if id == "" {
		return model.Submission{}, appErr.ValidationError("id", "required")
	}
	query := `SELECT id, task_id, language, code_hash, status, passed, hidden_passed, max_elapsed_ms, created_at, COALESCE(finished_at, created_at)
		FROM submissions WHERE id = ?`

	var sub model.Submission
	var status string
	err := r.db.QueryRow(ctx, query, id).Scan(
		&sub.ID, &sub.TaskID, &sub.Language, &sub.CodeHash, &status,
		&sub.Passed, &sub.HiddenPassed, &sub.MaxElapsedMs, &sub.CreatedAt, &sub.FinishedAt,
	)
	if err != nil {
		if db.IsNoRows(err) {
			return model.Submission{}, appErr.Newf(appErr.SubmissionNotFound, "submission %s not found", id)
		}
		return model.Submission{}, appErr.Wrapf(err, appErr.DatabaseError, "query submission %s", id)
	}
	sub.Status = model.JudgeStatus(status)
	return sub, nil
}
