// Package sysinfo validates the host before anything touches the network.
package sysinfo

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/tiboeycken/kdg-kiosk-installer/internal/domain"
)

// Host answers questions about the machine the installer runs on. The
// probe functions are fields so tests can substitute them.
type Host struct {
	GOOS          string
	GOARCH        string
	LookPath      func(file string) (string, error)
	Geteuid       func() int
	OSReleasePath string
}

// NewHost creates a Host backed by the real operating system
func NewHost() *Host {
	return &Host{
		GOOS:          runtime.GOOS,
		GOARCH:        runtime.GOARCH,
		LookPath:      exec.LookPath,
		Geteuid:       os.Geteuid,
		OSReleasePath: "/etc/os-release",
	}
}

// CheckPlatform fails unless the host runs Linux, the only supported target
func (h *Host) CheckPlatform() error {
	if h.GOOS != "linux" {
		return fmt.Errorf("%w: this installer only works on Linux systems (got %s)",
			domain.ErrUnsupportedPlatform, h.GOOS)
	}
	return nil
}

// CheckInterpreter fails when the language runtime needed to run the
// installer script is not on PATH. The hint is a runnable install command.
func (h *Host) CheckInterpreter(name, installHint string) error {
	if _, err := h.LookPath(name); err != nil {
		return domain.NewDependencyError(name, installHint)
	}
	return nil
}

// CheckRoot fails unless the process runs with effective uid 0
func (h *Host) CheckRoot() error {
	if h.Geteuid() != 0 {
		return fmt.Errorf("%w: re-run with sudo", domain.ErrNotRoot)
	}
	return nil
}

// CheckCompatibility performs the full native-mode host validation and
// returns every problem found, not just the first one.
func (h *Host) CheckCompatibility() []error {
	var errs []error

	if err := h.CheckPlatform(); err != nil {
		errs = append(errs, err)
	}

	// Distribution: the .deb package only targets Debian/Ubuntu
	data, err := os.ReadFile(h.OSReleasePath)
	if err != nil {
		errs = append(errs, fmt.Errorf("%w: could not detect Linux distribution",
			domain.ErrUnsupportedPlatform))
	} else {
		release := strings.ToLower(string(data))
		if !strings.Contains(release, "debian") && !strings.Contains(release, "ubuntu") {
			errs = append(errs, fmt.Errorf("%w: this package is designed for Debian/Ubuntu systems",
				domain.ErrUnsupportedPlatform))
		}
	}

	if h.GOARCH != "amd64" {
		errs = append(errs, fmt.Errorf("%w: unsupported architecture %s, only amd64 is supported",
			domain.ErrUnsupportedPlatform, h.GOARCH))
	}

	for _, tool := range []string{"dpkg", "apt"} {
		if _, err := h.LookPath(tool); err != nil {
			errs = append(errs, domain.NewDependencyError(tool, ""))
		}
	}

	return errs
}
