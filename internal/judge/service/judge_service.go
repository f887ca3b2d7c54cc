package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"codejudge/internal/judge/language"
	"codejudge/internal/judge/model"
	"codejudge/internal/judge/repository"
	"codejudge/internal/judge/sandbox"
	appErr "codejudge/pkg/errors"
	"codejudge/pkg/utils/logger"
)

const (
	defaultMaxCodeBytes = 64 * 1024
	defaultSlotWait     = 2 * time.Second
)

// Service evaluates submissions against stored tasks. Concurrency is capped
// by a semaphore sized to the worker pool; callers that cannot get a slot
// within the wait window are rejected instead of queued.
type Service struct {
	runner      sandbox.Runner
	catalog     *language.Catalog
	tasks       repository.TaskRepository
	verdicts    *repository.VerdictRepository
	submissions *repository.SubmissionRepository
	publisher   repository.ResultEventPublisher

	maxCodeBytes int
	slotWait     time.Duration
	sem          chan struct{}
}

// Config holds service dependencies and settings. Runner, Catalog and Tasks
// are required; the persistence and publishing dependencies are optional and
// skipped when nil.
type Config struct {
	Runner      sandbox.Runner
	Catalog     *language.Catalog
	Tasks       repository.TaskRepository
	Verdicts    *repository.VerdictRepository
	Submissions *repository.SubmissionRepository
	Publisher   repository.ResultEventPublisher

	MaxCodeBytes    int
	WorkerPoolSize  int
	SlotWaitTimeout time.Duration
}

// NewService creates a new judge service.
func NewService(cfg Config) (*Service, error) {
	if cfg.Runner == nil {
		return nil, fmt.Errorf("runner is required")
	}
	if cfg.Catalog == nil {
		return nil, fmt.Errorf("language catalog is required")
	}
	if cfg.Tasks == nil {
		return nil, fmt.Errorf("task repository is required")
	}
	poolSize := cfg.WorkerPoolSize
	if poolSize <= 0 {
		poolSize = 1
	}
	maxCode := cfg.MaxCodeBytes
	if maxCode <= 0 {
		maxCode = defaultMaxCodeBytes
	}
	slotWait := cfg.SlotWaitTimeout
	if slotWait <= 0 {
		slotWait = defaultSlotWait
	}
	return &Service{
		runner:       cfg.Runner,
		catalog:      cfg.Catalog,
		tasks:        cfg.Tasks,
		verdicts:     cfg.Verdicts,
		submissions:  cfg.Submissions,
		publisher:    cfg.Publisher,
		maxCodeBytes: maxCode,
		slotWait:     slotWait,
		sem:          make(chan struct{}, poolSize),
	}, nil
}

// Languages returns the supported language ids.
func (s *Service) Languages() []language.Language {
	return s.catalog.Languages()
}

// Evaluate runs the submission against every test case of the task and
// returns the verdict. The judge itself holds no state between calls; all
// state lives in the verdict and submission repositories.
func (s *Service) Evaluate(ctx context.Context, taskID string, lang language.Language, code string) (model.JudgeResult, error) {
	if taskID == "" {
		return model.JudgeResult{}, appErr.ValidationError("task_id", "required")
	}
	if code == "" {
		return model.JudgeResult{}, appErr.ValidationError("code", "required")
	}
	if len(code) > s.maxCodeBytes {
		return model.JudgeResult{}, appErr.Newf(appErr.CodeTooLarge, "code exceeds %d bytes", s.maxCodeBytes)
	}
	if !s.catalog.Contains(lang) {
		return model.JudgeResult{}, appErr.Newf(appErr.LanguageNotSupported, "language %q is not supported", lang)
	}

	if err := s.acquireSlot(ctx); err != nil {
		return model.JudgeResult{}, err
	}
	defer s.releaseSlot()

	if err := s.runner.Ping(ctx); err != nil {
		return model.JudgeResult{}, err
	}

	suite, err := s.tasks.GetTestSuite(ctx, taskID)
	if err != nil {
		return model.JudgeResult{}, err
	}

	res := model.JudgeResult{
		TaskID:       suite.TaskID,
		Passed:       true,
		VisibleTests: make([]model.VisibleTestResult, 0, len(suite.Tests.Visible)),
	}

	for i, tc := range suite.Tests.Visible {
		exec := s.runTest(ctx, lang, code, tc.Input, i, "visible")
		passed := testPassed(exec, tc.Output)
		res.VisibleTests = append(res.VisibleTests, model.VisibleTestResult{
			Input:     tc.Input,
			Expected:  tc.Output,
			Stdout:    exec.Stdout,
			Stderr:    exec.Stderr,
			Passed:    passed,
			ElapsedMs: exec.ElapsedMs,
		})
		res.Metrics.Observe(exec.ElapsedMs)
		if !passed {
			res.Passed = false
		}
	}

	for i, tc := range suite.Tests.Hidden {
		exec := s.runTest(ctx, lang, code, tc.Input, i, "hidden")
		res.Metrics.Observe(exec.ElapsedMs)
		if testPassed(exec, tc.Output) {
			res.HiddenTestsPassed++
		} else {
			res.Passed = false
		}
	}

	return res, nil
}

// runTest executes one test case. Infrastructure failures are absorbed: the
// test counts as failed and judging continues with the remaining cases.
func (s *Service) runTest(ctx context.Context, lang language.Language, code, input string, index int, group string) sandbox.ExecutionResult {
	exec, err := s.runner.Run(ctx, sandbox.ExecutionRequest{
		Code:     code,
		Language: lang,
		Stdin:    input,
	})
	if err != nil {
		logger.Warn(ctx, "test execution failed",
			zap.String("group", group),
			zap.Int("index", index),
			zap.Error(err))
		return sandbox.ExecutionResult{ExitCode: -1}
	}
	return exec
}

// testPassed applies the verdict rule: trimmed stdout must match the trimmed
// expected output and the program must exit cleanly.
func testPassed(exec sandbox.ExecutionResult, expected string) bool {
	return exec.ExitCode == 0 && strings.TrimSpace(exec.Stdout) == strings.TrimSpace(expected)
}

func (s *Service) acquireSlot(ctx context.Context) error {
	select {
	case s.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(s.slotWait):
		return appErr.New(appErr.JudgeQueueFull).WithMessage("worker pool is full")
	}
}

func (s *Service) releaseSlot() {
	select {
	case <-s.sem:
	default:
	}
}

func codeHash(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}
