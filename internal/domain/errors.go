// Package domain holds the error taxonomy shared by the bootstrap and
// native install sequences. Every failure is terminal: nothing here is
// retried, errors surface as a printed diagnostic plus a non-zero exit.
package domain

import (
	"errors"
	"fmt"
)

// Common domain errors
var (
	ErrUnsupportedPlatform = errors.New("unsupported platform")
	ErrMissingDependency   = errors.New("missing dependency")
	ErrNotRoot             = errors.New("root privileges required")
	ErrNoRelease           = errors.New("no releases found")
	ErrAssetNotFound       = errors.New("release asset not found")
)

// DependencyError reports an absent host tool or runtime. InstallHint is
// shown to the user verbatim, so it must be a runnable command.
type DependencyError struct {
	Name        string
	InstallHint string
}

// Error returns the error message
func (e *DependencyError) Error() string {
	if e.InstallHint != "" {
		return fmt.Sprintf("%s not found (install it with: %s)", e.Name, e.InstallHint)
	}
	return fmt.Sprintf("%s not found", e.Name)
}

// Unwrap returns the underlying error
func (e *DependencyError) Unwrap() error {
	return ErrMissingDependency
}

// NewDependencyError creates a new dependency error
func NewDependencyError(name, installHint string) *DependencyError {
	return &DependencyError{Name: name, InstallHint: installHint}
}

// CommandError reports a failed step of the stop-on-first-error sequence:
// fetch, permission grant, package install, or installer execution.
type CommandError struct {
	Step     string
	Err      error
	ExitCode int
}

// Error returns the error message
func (e *CommandError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s failed: %v", e.Step, e.Err)
	}
	return fmt.Sprintf("%s failed", e.Step)
}

// Unwrap returns the underlying error
func (e *CommandError) Unwrap() error {
	return e.Err
}

// NewCommandError creates a new command error
func NewCommandError(step string, err error) *CommandError {
	return &CommandError{Step: step, Err: err, ExitCode: 1}
}

// NewExitError creates a command error carrying a subprocess exit code
func NewExitError(step string, err error, exitCode int) *CommandError {
	return &CommandError{Step: step, Err: err, ExitCode: exitCode}
}

// IsMissingDependency returns true if the error reports an absent tool
func IsMissingDependency(err error) bool {
	return errors.Is(err, ErrMissingDependency)
}

// IsUnsupportedPlatform returns true if the error reports a bad host OS
func IsUnsupportedPlatform(err error) bool {
	return errors.Is(err, ErrUnsupportedPlatform)
}

// ExitCode maps an error to the process exit status. A CommandError keeps
// the exit code of the command that failed; everything else is 1.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var ce *CommandError
	if errors.As(err, &ce) && ce.ExitCode != 0 {
		return ce.ExitCode
	}
	return 1
}
