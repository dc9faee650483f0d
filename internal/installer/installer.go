// Package installer performs the native install: locate the kdg-kiosk
// release on GitHub, download the .deb into a download target, and install
// it through apt, falling back to dpkg when apt refuses.
package installer

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/tiboeycken/kdg-kiosk-installer/internal/config"
	"github.com/tiboeycken/kdg-kiosk-installer/internal/domain"
	"github.com/tiboeycken/kdg-kiosk-installer/internal/release"
	"github.com/tiboeycken/kdg-kiosk-installer/internal/sysinfo"
	"github.com/tiboeycken/kdg-kiosk-installer/internal/workspace"
	"go.uber.org/zap"
)

// ReleaseClient locates and downloads release assets
type ReleaseClient interface {
	Latest(ctx context.Context) (*release.Release, error)
	ByTag(ctx context.Context, version string) (*release.Release, error)
	FindDebAsset(rel *release.Release, version string) (*release.Asset, error)
	Download(ctx context.Context, url, dest string, progress release.ProgressFunc) error
}

// RunCommand runs a host command with output streamed to the console
type RunCommand func(ctx context.Context, name string, args ...string) error

// StartCommand launches a host command without waiting for it
type StartCommand func(name string, args ...string) error

// Options control one native install run
type Options struct {
	// Version pins the release to install; empty means latest.
	Version string
	// AssumeYes skips the setup wizard prompt and launches it.
	AssumeYes bool
}

// Installer drives the native install sequence
type Installer struct {
	cfg    *config.Config
	host   *sysinfo.Host
	client ReleaseClient
	run    RunCommand
	start  StartCommand
	in     io.Reader
	out    io.Writer
	logger *zap.Logger
}

// New creates an Installer wired to the real host and GitHub
func New(cfg *config.Config, logger *zap.Logger) *Installer {
	return &Installer{
		cfg:  cfg,
		host: sysinfo.NewHost(),
		client: release.NewClient(
			cfg.Release.APIBase,
			cfg.Release.Repo,
			cfg.Release.AssetPattern,
			cfg.Release.GetTimeout(),
		),
		run:    streamCommand,
		start:  startCommand,
		in:     os.Stdin,
		out:    os.Stdout,
		logger: logger,
	}
}

// WithHost substitutes the host probes, for tests
func (i *Installer) WithHost(host *sysinfo.Host) *Installer {
	i.host = host
	return i
}

// WithClient substitutes the release client, for tests
func (i *Installer) WithClient(client ReleaseClient) *Installer {
	i.client = client
	return i
}

// WithRunCommand substitutes host command execution, for tests
func (i *Installer) WithRunCommand(run RunCommand) *Installer {
	i.run = run
	return i
}

// WithStartCommand substitutes detached command launching, for tests
func (i *Installer) WithStartCommand(start StartCommand) *Installer {
	i.start = start
	return i
}

// WithConsole substitutes the prompt reader and writer, for tests
func (i *Installer) WithConsole(in io.Reader, out io.Writer) *Installer {
	i.in = in
	i.out = out
	return i
}

// Run performs the native install. Host validation happens before any
// network access, and the download target is removed on every exit path.
func (i *Installer) Run(ctx context.Context, opts Options) error {
	fmt.Fprintln(i.out, strings.Repeat("=", 60))
	fmt.Fprintln(i.out, "  KdG Kiosk Installer")
	fmt.Fprintln(i.out, strings.Repeat("=", 60))

	fmt.Fprintln(i.out, "Checking system compatibility...")
	if errs := i.host.CheckCompatibility(); len(errs) > 0 {
		for _, err := range errs {
			fmt.Fprintf(i.out, "   - %v\n", err)
		}
		return errs[0]
	}
	if err := i.host.CheckRoot(); err != nil {
		return err
	}
	fmt.Fprintln(i.out, "System compatible.")

	fmt.Fprintln(i.out, "Fetching release information...")
	rel, err := i.lookupRelease(ctx, opts.Version)
	if err != nil {
		return err
	}
	version := opts.Version
	if version == "" {
		version = rel.Version()
	}
	fmt.Fprintf(i.out, "Found version %s (%s)\n", version, rel.Name)

	asset, err := i.client.FindDebAsset(rel, version)
	if err != nil {
		return err
	}
	i.logger.Info("located package",
		zap.String("asset", asset.Name),
		zap.String("version", version),
	)

	target, err := workspace.Acquire(i.cfg.Bootstrap.TempParent)
	if err != nil {
		return domain.NewCommandError("workspace setup", err)
	}
	defer func() {
		if err := target.Release(); err != nil {
			i.logger.Warn("failed to remove download target", zap.Error(err))
		}
	}()

	fmt.Fprintf(i.out, "Downloading %s...\n", asset.Name)
	debPath := target.File(asset.Name)
	bar := &progressBar{out: i.out}
	if err := i.client.Download(ctx, asset.BrowserDownloadURL, debPath, bar.Update); err != nil {
		bar.Finish()
		return domain.NewCommandError("download", err)
	}
	bar.Finish()
	fmt.Fprintln(i.out, "Download complete.")

	fmt.Fprintf(i.out, "Installing %s...\n", i.cfg.Release.Package)
	if err := i.installDeb(ctx, debPath); err != nil {
		return err
	}

	fmt.Fprintln(i.out)
	fmt.Fprintln(i.out, "KdG Kiosk installed successfully.")

	return i.maybeLaunchWizard(ctx, opts.AssumeYes)
}

func (i *Installer) lookupRelease(ctx context.Context, version string) (*release.Release, error) {
	if version == "" {
		return i.client.Latest(ctx)
	}
	return i.client.ByTag(ctx, version)
}

// installDeb installs through apt, which resolves dependencies on its own.
// When apt fails it retries with dpkg and repairs dependencies afterwards,
// matching what an admin would do by hand.
func (i *Installer) installDeb(ctx context.Context, debPath string) error {
	if err := i.run(ctx, "apt", "install", "-y", debPath); err == nil {
		return nil
	}

	fmt.Fprintln(i.out, "Trying alternative installation method...")
	if err := i.run(ctx, "dpkg", "-i", debPath); err != nil {
		return domain.NewCommandError("package install", err)
	}
	if err := i.run(ctx, "apt", "install", "-f", "-y"); err != nil {
		return domain.NewCommandError("dependency fix", err)
	}
	return nil
}

// maybeLaunchWizard offers to start the setup wizard. The wizard is
// detached: the installer does not wait for it.
func (i *Installer) maybeLaunchWizard(ctx context.Context, assumeYes bool) error {
	if !assumeYes {
		fmt.Fprint(i.out, "\nWould you like to run the setup wizard now? [Y/n]: ")
		answer, err := bufio.NewReader(i.in).ReadString('\n')
		if err != nil && answer == "" {
			// No usable stdin, treat as declined.
			return nil
		}
		if strings.EqualFold(strings.TrimSpace(answer), "n") {
			return nil
		}
	}

	fmt.Fprintln(i.out, "Launching setup wizard...")
	if err := i.start(i.cfg.Bootstrap.Interpreter, i.cfg.Install.WizardPath); err != nil {
		fmt.Fprintf(i.out, "Could not launch setup wizard: %v\n", err)
		fmt.Fprintf(i.out, "You can run it manually with: %s\n", i.cfg.Install.WizardAlias)
	}
	return nil
}

// streamCommand runs a command with its output inherited by the console
func streamCommand(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// startCommand launches a command on the inherited console without
// waiting for it to finish
func startCommand(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Start()
}
