// Package workspace manages the download target: a uniquely named
// temporary directory that holds the fetched payload for exactly one run
// and is removed on every exit path.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

const dirPrefix = "kdg-kiosk-install-"

// Target is one run's temporary directory. It is exclusively owned by its
// creator and never shared; Release must run no matter how the run ends.
type Target struct {
	path     string
	released bool
}

// Acquire creates the download target under parent. An empty parent uses
// the system temp directory. The directory name carries a fresh UUID so
// concurrent invocations can never collide.
func Acquire(parent string) (*Target, error) {
	if parent == "" {
		parent = os.TempDir()
	}
	path := filepath.Join(parent, dirPrefix+uuid.NewString())
	if err := os.MkdirAll(path, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create download target: %w", err)
	}
	return &Target{path: path}, nil
}

// Path returns the directory path
func (t *Target) Path() string {
	return t.path
}

// File returns the path of name inside the target
func (t *Target) File(name string) string {
	return filepath.Join(t.path, name)
}

// MakeExecutable sets the execute bits on a file inside the target
func (t *Target) MakeExecutable(name string) error {
	if err := os.Chmod(t.File(name), 0o755); err != nil {
		return fmt.Errorf("failed to mark %s executable: %w", name, err)
	}
	return nil
}

// Release removes the directory tree. It is idempotent and safe to defer
// immediately after Acquire.
func (t *Target) Release() error {
	if t.released {
		return nil
	}
	t.released = true
	if err := os.RemoveAll(t.path); err != nil {
		return fmt.Errorf("failed to remove download target: %w", err)
	}
	return nil
}
