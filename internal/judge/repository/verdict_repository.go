package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"codejudge/internal/common/cache"
	"codejudge/internal/judge/model"
	appErr "codejudge/pkg/errors"
)

const verdictKeyPrefix = "judge:verdict:"

// VerdictRepository stores submission status snapshots in the cache so
// clients can poll judging progress. Snapshots expire after TTL.
type VerdictRepository struct {
	cache cache.Cache
	TTL   time.Duration
}

// NewVerdictRepository creates a new repository.
func NewVerdictRepository(cacheClient cache.Cache, ttl time.Duration) *VerdictRepository {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &VerdictRepository{cache: cacheClient, TTL: ttl}
}

// Get returns the status snapshot for a submission id.
func (r *VerdictRepository) Get(ctx context.Context, submissionID string) (model.SubmissionStatus, error) {
	if submissionID == "" {
		return model.SubmissionStatus{}, appErr.ValidationError("submission_id", "required")
	}
	if r.cache == nil {
		return model.SubmissionStatus{}, appErr.New(appErr.CacheError).WithMessage("cache client is not initialized")
	}
	val, err := r.cache.Get(ctx, verdictKeyPrefix+submissionID)
	if err != nil || val == "" {
		return model.SubmissionStatus{}, appErr.Newf(appErr.SubmissionNotFound, "submission %s not found", submissionID)
	}
	var status model.SubmissionStatus
	if err := json.Unmarshal([]byte(val), &status); err != nil {
		return model.SubmissionStatus{}, appErr.Wrapf(err, appErr.CacheError, "decode verdict failed")
	}
	return status, nil
}

// Save persists a status snapshot.
func (r *VerdictRepository) Save(ctx context.Context, status model.SubmissionStatus) error {
	if status.SubmissionID == "" {
		return appErr.ValidationError("submission_id", "required")
	}
	if r.cache == nil {
		return appErr.New(appErr.CacheError).WithMessage("cache client is not initialized")
	}
	data, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("marshal verdict failed: %w", err)
	}
	if err := r.cache.Set(ctx, verdictKeyPrefix+status.SubmissionID, string(data), r.TTL); err != nil {
		return appErr.Wrapf(err, appErr.CacheError, "store verdict failed")
	}
	return nil
}
