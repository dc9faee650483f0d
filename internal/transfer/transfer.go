// Package transfer picks and drives an external tool that can fetch a URL
// to a local file. Tools are probed in the configured priority order and
// the first one present on PATH wins.
package transfer

import (
	"context"
	"errors"
	"os"
	"os/exec"

	"github.com/tiboeycken/kdg-kiosk-installer/internal/domain"
	"go.uber.org/zap"
)

// Tool describes one command-line fetcher
type Tool struct {
	Name string
	// Args builds the argument list that downloads url to dest.
	Args func(url, dest string) []string
}

// known maps tool names to their invocation. curl fails on HTTP errors
// thanks to -f; wget does so by default.
var known = map[string]Tool{
	"curl": {
		Name: "curl",
		Args: func(url, dest string) []string {
			return []string{"-fsSL", "-o", dest, url}
		},
	},
	"wget": {
		Name: "wget",
		Args: func(url, dest string) []string {
			return []string{"-q", "-O", dest, url}
		},
	},
}

// Lookup resolves a configured tool name. Unknown names are a
// configuration mistake, not a missing dependency.
func Lookup(name string) (Tool, bool) {
	t, ok := known[name]
	return t, ok
}

// Selector finds the first usable transfer tool
type Selector struct {
	lookPath func(file string) (string, error)
	logger   *zap.Logger
}

// NewSelector creates a Selector probing the real PATH
func NewSelector(logger *zap.Logger) *Selector {
	return NewSelectorWithLookPath(exec.LookPath, logger)
}

// NewSelectorWithLookPath creates a Selector with a custom PATH probe
func NewSelectorWithLookPath(lookPath func(string) (string, error), logger *zap.Logger) *Selector {
	return &Selector{lookPath: lookPath, logger: logger}
}

// Select returns the first tool from names that is present on PATH. When
// none is, the error names the preferred tool and its install command.
func (s *Selector) Select(names []string) (Tool, error) {
	for _, name := range names {
		tool, ok := Lookup(name)
		if !ok {
			s.logger.Warn("skipping unknown transfer tool", zap.String("tool", name))
			continue
		}
		if _, err := s.lookPath(tool.Name); err == nil {
			s.logger.Debug("selected transfer tool", zap.String("tool", tool.Name))
			return tool, nil
		}
	}
	if len(names) == 0 {
		return Tool{}, domain.NewCommandError("tool selection", errors.New("no transfer tools configured"))
	}
	return Tool{}, domain.NewDependencyError(names[0], "sudo apt install "+names[0])
}

// Fetch downloads url into dest using the given tool. The tool's output
// streams to the console; a non-zero exit propagates as a CommandError
// without a distinguished kind.
func Fetch(ctx context.Context, tool Tool, url, dest string) error {
	cmd := exec.CommandContext(ctx, tool.Name, tool.Args(url, dest)...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return domain.NewCommandError("download", err)
	}
	return nil
}
