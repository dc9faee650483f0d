// Package bootstrap implements the bootstrap sequence: validate the host,
// fetch the remote Python installer into a download target, mark it
// executable, run it under the interpreter, and remove the target on every
// exit path.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/tiboeycken/kdg-kiosk-installer/internal/config"
	"github.com/tiboeycken/kdg-kiosk-installer/internal/domain"
	"github.com/tiboeycken/kdg-kiosk-installer/internal/sysinfo"
	"github.com/tiboeycken/kdg-kiosk-installer/internal/transfer"
	"github.com/tiboeycken/kdg-kiosk-installer/internal/workspace"
	"go.uber.org/zap"
)

// ToolSelector picks the transfer tool used for the fetch step
type ToolSelector interface {
	Select(names []string) (transfer.Tool, error)
}

// FetchFunc downloads url into dest with the selected tool
type FetchFunc func(ctx context.Context, tool transfer.Tool, url, dest string) error

// ExecFunc runs the fetched installer under the interpreter with the
// console inherited, returning once it exits
type ExecFunc func(ctx context.Context, interpreter, script string) error

// Runner executes the linear bootstrap sequence with guard clauses. There
// is no state machine, no concurrency, and no retry: the first error stops
// the run.
type Runner struct {
	cfg      config.BootstrapConfig
	host     *sysinfo.Host
	selector ToolSelector
	fetch    FetchFunc
	execute  ExecFunc
	out      io.Writer
	logger   *zap.Logger
}

// New creates a Runner wired to the real host, transfer tools, and
// interpreter
func New(cfg config.BootstrapConfig, logger *zap.Logger) *Runner {
	return &Runner{
		cfg:      cfg,
		host:     sysinfo.NewHost(),
		selector: transfer.NewSelector(logger),
		fetch:    transfer.Fetch,
		execute:  runInterpreter,
		out:      os.Stdout,
		logger:   logger,
	}
}

// WithHost substitutes the host probes, for tests
func (r *Runner) WithHost(host *sysinfo.Host) *Runner {
	r.host = host
	return r
}

// WithSelector substitutes the tool selector, for tests
func (r *Runner) WithSelector(selector ToolSelector) *Runner {
	r.selector = selector
	return r
}

// WithFetch substitutes the fetch step, for tests
func (r *Runner) WithFetch(fetch FetchFunc) *Runner {
	r.fetch = fetch
	return r
}

// WithExec substitutes the execution step, for tests
func (r *Runner) WithExec(execute ExecFunc) *Runner {
	r.execute = execute
	return r
}

// WithOutput substitutes the console writer, for tests
func (r *Runner) WithOutput(out io.Writer) *Runner {
	r.out = out
	return r
}

// Run performs the bootstrap sequence. All host checks happen before any
// network access; the download target is created only once they pass and
// is released on success, fetch failure, and execution failure alike.
//
// The installer's own exit code propagates through the returned error
// rather than being swallowed, so "installed" in the banner actually means
// the installer finished cleanly.
func (r *Runner) Run(ctx context.Context) error {
	if err := r.host.CheckPlatform(); err != nil {
		return err
	}
	if err := r.host.CheckInterpreter(r.cfg.Interpreter, r.cfg.InterpreterHint); err != nil {
		return err
	}
	tool, err := r.selector.Select(r.cfg.Tools)
	if err != nil {
		return err
	}

	target, err := workspace.Acquire(r.cfg.TempParent)
	if err != nil {
		return domain.NewCommandError("workspace setup", err)
	}
	defer func() {
		if err := target.Release(); err != nil {
			r.logger.Warn("failed to remove download target", zap.Error(err))
		}
	}()

	script := target.File(r.cfg.Filename)
	r.logger.Info("fetching installer",
		zap.String("url", r.cfg.URL),
		zap.String("tool", tool.Name),
		zap.String("dest", script),
	)
	if err := r.fetch(ctx, tool, r.cfg.URL, script); err != nil {
		return err
	}

	if err := target.MakeExecutable(r.cfg.Filename); err != nil {
		return domain.NewCommandError("permission grant", err)
	}

	r.logger.Info("running installer", zap.String("interpreter", r.cfg.Interpreter))
	if err := r.execute(ctx, r.cfg.Interpreter, script); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return domain.NewExitError("installer", err, exitErr.ExitCode())
		}
		return domain.NewCommandError("installer", err)
	}

	fmt.Fprintln(r.out)
	fmt.Fprintln(r.out, "KdG Kiosk installed successfully.")
	return nil
}

// runInterpreter runs the fetched script under the interpreter with
// stdin/stdout/stderr inherited, so the installer's own prompts and
// progress reach the user directly.
func runInterpreter(ctx context.Context, interpreter, script string) error {
	cmd := exec.CommandContext(ctx, interpreter, script)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}
