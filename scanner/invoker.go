package scanner

import (
	"context"
	"slices"
	"time"

	execute "github.com/alexellis/go-execute/v2"

	"github.com/tidewell/filegate/types"
)

// Invoker runs the external scanner against a file and reports its captured
// output and exit code. The process itself is an opaque dependency; only the
// invocation contract lives here.
type Invoker interface {
	Invoke(ctx context.Context, path string) (output string, exitCode int, err error)
}

// ExecInvoker invokes the configured scanner binary with fixed
// non-interactive flags. Completion is event driven: Execute blocks on
// process exit and the context carries the timeout, so there is no
// poll-and-sleep loop.
type ExecInvoker struct {
	command string
	args    []string
	timeout time.Duration
}

func NewExecInvoker(cfg types.ScannerConfig) *ExecInvoker {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &ExecInvoker{command: cfg.Command, args: cfg.Args, timeout: timeout}
}

func (e *ExecInvoker) Invoke(ctx context.Context, path string) (string, int, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	task := execute.ExecTask{
		Command: e.command,
		Args:    append(slices.Clone(e.args), path),
	}
	result, err := task.Execute(ctx)
	if err != nil {
		return result.Stdout + result.Stderr, result.ExitCode, err
	}
	return result.Stdout + result.Stderr, result.ExitCode, nil
}
