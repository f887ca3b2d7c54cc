// Package docker runs submissions in throwaway Docker containers. Every run
// gets a fresh container with memory capped and networking disabled; the
// container is force-removed on every exit path.
package docker

import (
	"bytes"
	"context"
	"errors"
	"io"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"codejudge/internal/judge/language"
	"codejudge/internal/judge/sandbox"
	appErr "codejudge/pkg/errors"
	"codejudge/pkg/utils/logger"
)

const (
	// DefaultMemoryLimitBytes caps each execution unit at 512 MiB.
	DefaultMemoryLimitBytes = 512 * 1024 * 1024

	// DefaultRunTimeout bounds the wall clock of a single run.
	DefaultRunTimeout = 30 * time.Second

	containerNamePrefix = "judge-runner-"

	stopGracePeriod = 5 * time.Second
	postStopWaitMax = 15 * time.Second
)

// Config controls the runner. Zero values fall back to defaults; Catalog is
// required.
type Config struct {
	Catalog          *language.Catalog
	MemoryLimitBytes int64         `yaml:"memory_limit_bytes"`
	RunTimeout       time.Duration `yaml:"run_timeout"`
}

// Runner implements sandbox.Runner on top of the Docker Engine API.
type Runner struct {
	cli         dockerClient
	catalog     *language.Catalog
	memoryLimit int64
	runTimeout  time.Duration
}

// NewRunner connects to the Docker daemon from the environment.
func NewRunner(cfg Config) (*Runner, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, appErr.Wrap(err, appErr.SandboxUnavailable)
	}
	return newRunner(cli, cfg)
}

func newRunner(cli dockerClient, cfg Config) (*Runner, error) {
	if cfg.Catalog == nil {
		return nil, appErr.New(appErr.RequiredFieldEmpty).WithMessage("language catalog is required")
	}
	if cfg.MemoryLimitBytes <= 0 {
		cfg.MemoryLimitBytes = DefaultMemoryLimitBytes
	}
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = DefaultRunTimeout
	}
	return &Runner{
		cli:         cli,
		catalog:     cfg.Catalog,
		memoryLimit: cfg.MemoryLimitBytes,
		runTimeout:  cfg.RunTimeout,
	}, nil
}

// Ping checks connectivity to the Docker daemon.
func (r *Runner) Ping(ctx context.Context) error {
	if _, err := r.cli.Ping(ctx); err != nil {
		return appErr.Wrap(err, appErr.SandboxUnavailable)
	}
	return nil
}

// EnsureImages pulls every catalog image so the first submission does not
// pay the pull cost.
func (r *Runner) EnsureImages(ctx context.Context) error {
	for _, id := range r.catalog.Languages() {
		desc, err := r.catalog.Get(id)
		if err != nil {
			return err
		}
		reader, err := r.cli.ImagePull(ctx, desc.Image, image.PullOptions{})
		if err != nil {
			return appErr.Wrapf(err, appErr.SandboxUnavailable, "pull image %s", desc.Image)
		}
		_, copyErr := io.Copy(io.Discard, reader)
		reader.Close()
		if copyErr != nil {
			return appErr.Wrapf(copyErr, appErr.SandboxUnavailable, "pull image %s", desc.Image)
		}
		logger.Info(ctx, "execution image ready", zap.String("image", desc.Image))
	}
	return nil
}

// Close releases the underlying client connection.
func (r *Runner) Close() error {
	return r.cli.Close()
}

// Run executes the request in a fresh container and returns the captured
// output. The container is removed before Run returns, on success and on
// every failure path.
func (r *Runner) Run(ctx context.Context, req sandbox.ExecutionRequest) (sandbox.ExecutionResult, error) {
	desc, err := r.catalog.Get(req.Language)
	if err != nil {
		return sandbox.ExecutionResult{}, err
	}

	name := containerNamePrefix + uuid.NewString()
	resp, err := r.cli.ContainerCreate(
		ctx,
		&container.Config{
			Image:           desc.Image,
			Cmd:             []string{"bash", "-lc", desc.Command},
			WorkingDir:      language.WorkspaceDir,
			AttachStdout:    true,
			AttachStderr:    true,
			NetworkDisabled: true,
		},
		&container.HostConfig{
			Resources: container.Resources{
				Memory:     r.memoryLimit,
				MemorySwap: r.memoryLimit,
			},
		},
		nil,
		nil,
		name,
	)
	if err != nil {
		return sandbox.ExecutionResult{}, engineError(err, "create container")
	}
	defer r.removeContainer(resp.ID)

	archive, err := workspaceArchive(language.WorkspaceDir, []fileSpec{
		{Name: desc.SourceFileName(), Data: []byte(req.Code)},
		{Name: language.InputFileName, Data: []byte(req.Stdin)},
	})
	if err != nil {
		return sandbox.ExecutionResult{}, err
	}
	if err := r.cli.CopyToContainer(ctx, resp.ID, "/", archive, types.CopyToContainerOptions{AllowOverwriteDirWithFile: true}); err != nil {
		return sandbox.ExecutionResult{}, engineError(err, "copy workspace")
	}

	start := time.Now()
	if err := r.cli.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		return sandbox.ExecutionResult{}, engineError(err, "start container")
	}

	waitCtx, cancel := context.WithTimeout(ctx, r.runTimeout)
	status, err := r.waitForExit(waitCtx, resp.ID)
	cancel()
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return r.collectAfterTimeout(ctx, resp.ID, start)
		}
		return sandbox.ExecutionResult{}, engineError(err, "wait for container")
	}
	elapsed := time.Since(start)

	stdout, stderr, err := r.fetchLogs(ctx, resp.ID)
	if err != nil {
		return sandbox.ExecutionResult{}, engineError(err, "fetch logs")
	}

	return sandbox.ExecutionResult{
		Stdout:    stdout,
		Stderr:    stderr,
		ExitCode:  status.StatusCode,
		ElapsedMs: float64(elapsed.Microseconds()) / 1000.0,
	}, nil
}

// collectAfterTimeout stops an overrunning container and salvages whatever
// output it produced. The run counts as finished with a non-zero exit code.
func (r *Runner) collectAfterTimeout(ctx context.Context, containerID string, start time.Time) (sandbox.ExecutionResult, error) {
	logger.Warn(ctx, "run timeout exceeded, stopping container",
		zap.String("container_id", containerID))

	stopCtx, cancelStop := context.WithTimeout(context.Background(), stopGracePeriod)
	defer cancelStop()
	if err := r.cli.ContainerStop(stopCtx, containerID, container.StopOptions{}); err != nil && !client.IsErrNotFound(err) {
		return sandbox.ExecutionResult{}, engineError(err, "stop container after timeout")
	}

	waitCtx, cancelWait := context.WithTimeout(context.Background(), postStopWaitMax)
	defer cancelWait()
	status, waitErr := r.waitForExit(waitCtx, containerID)
	if waitErr != nil && !errors.Is(waitErr, context.DeadlineExceeded) && !client.IsErrNotFound(waitErr) {
		return sandbox.ExecutionResult{}, engineError(waitErr, "wait for container after timeout")
	}
	elapsed := time.Since(start)

	stdout, stderr, err := r.fetchLogs(context.Background(), containerID)
	if err != nil {
		return sandbox.ExecutionResult{}, engineError(err, "fetch logs")
	}

	exitCode := int64(-1)
	if status != nil && status.StatusCode != 0 {
		exitCode = status.StatusCode
	}
	return sandbox.ExecutionResult{
		Stdout:    stdout,
		Stderr:    stderr,
		ExitCode:  exitCode,
		ElapsedMs: float64(elapsed.Microseconds()) / 1000.0,
	}, nil
}

func (r *Runner) waitForExit(ctx context.Context, containerID string) (*container.WaitResponse, error) {
	statusCh, errCh := r.cli.ContainerWait(ctx, containerID, container.WaitConditionNotRunning)
	select {
	case status := <-statusCh:
		if status.Error != nil {
			return nil, appErr.Newf(appErr.ExecutionFailed, "container error: %s", status.Error.Message)
		}
		return &status, nil
	case err := <-errCh:
		return nil, err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (r *Runner) fetchLogs(ctx context.Context, containerID string) (stdout, stderr string, err error) {
	logs, err := r.cli.ContainerLogs(ctx, containerID, container.LogsOptions{ShowStdout: true, ShowStderr: true})
	if err != nil {
		return "", "", err
	}
	defer logs.Close()

	var stdoutBuf, stderrBuf bytes.Buffer
	if _, err := stdcopy.StdCopy(&stdoutBuf, &stderrBuf, logs); err != nil {
		return "", "", err
	}
	return stdoutBuf.String(), stderrBuf.String(), nil
}

// removeContainer always runs with a background context so teardown survives
// caller cancellation.
func (r *Runner) removeContainer(containerID string) {
	removeCtx, cancel := context.WithTimeout(context.Background(), stopGracePeriod)
	defer cancel()
	if err := r.cli.ContainerRemove(removeCtx, containerID, container.RemoveOptions{Force: true}); err != nil && !client.IsErrNotFound(err) {
		logger.Warn(removeCtx, "failed to remove container",
			zap.String("container_id", containerID),
			zap.Error(err))
	}
}

// engineError classifies an engine failure: daemon unreachable maps to the
// unavailable code, everything else to a generic execution failure.
func engineError(err error, op string) error {
	if client.IsErrConnectionFailed(err) {
		return appErr.Wrapf(err, appErr.SandboxUnavailable, "%s", op)
	}
	return appErr.Wrapf(err, appErr.ExecutionFailed, "%s", op)
}
