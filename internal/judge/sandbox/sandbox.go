// Package sandbox defines the contract for executing untrusted submission
// code in an isolated environment.
package sandbox

import (
	"context"

	"codejudge/internal/judge/language"
)

// ExecutionRequest describes one program run: the source code, the language
// it is written in, and the data fed to its standard input.
type ExecutionRequest struct {
	Code     string
	Language language.Language
	Stdin    string
}

// ExecutionResult is the observable outcome of one program run. ExitCode is
// the process exit status; a non-zero value is a normal outcome, not an
// error. MemoryBytes is reserved and currently always zero.
type ExecutionResult struct {
	Stdout      string
	Stderr      string
	ExitCode    int64
	ElapsedMs   float64
	MemoryBytes int64
}

// Runner executes submission code in a fresh isolated execution unit per
// call. Run returns an error only for infrastructure failures; program
// crashes, wrong output and resource-limit kills surface through the result.
type Runner interface {
	Run(ctx context.Context, req ExecutionRequest) (ExecutionResult, error)
	Ping(ctx context.Context) error
}
