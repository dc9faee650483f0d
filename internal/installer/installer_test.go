package installer

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tiboeycken/kdg-kiosk-installer/internal/config"
	"github.com/tiboeycken/kdg-kiosk-installer/internal/domain"
	"github.com/tiboeycken/kdg-kiosk-installer/internal/release"
	"github.com/tiboeycken/kdg-kiosk-installer/internal/sysinfo"
	"go.uber.org/zap"
)

func lookPathWith(present ...string) func(string) (string, error) {
	return func(file string) (string, error) {
		for _, p := range present {
			if p == file {
				return "/usr/bin/" + file, nil
			}
		}
		return "", errors.New("executable file not found in $PATH")
	}
}

func compatibleHost(t *testing.T) *sysinfo.Host {
	t.Helper()
	osRelease := filepath.Join(t.TempDir(), "os-release")
	if err := os.WriteFile(osRelease, []byte("ID=debian\n"), 0o644); err != nil {
		t.Fatalf("writing os-release: %v", err)
	}
	return &sysinfo.Host{
		GOOS:          "linux",
		GOARCH:        "amd64",
		LookPath:      lookPathWith("dpkg", "apt"),
		Geteuid:       func() int { return 0 },
		OSReleasePath: osRelease,
	}
}

// fakeClient implements ReleaseClient against canned data
type fakeClient struct {
	rel         *release.Release
	relErr      error
	downloadErr error
	latestCalls int
	byTagCalls  []string
}

func (f *fakeClient) Latest(ctx context.Context) (*release.Release, error) {
	f.latestCalls++
	return f.rel, f.relErr
}

func (f *fakeClient) ByTag(ctx context.Context, version string) (*release.Release, error) {
	f.byTagCalls = append(f.byTagCalls, version)
	return f.rel, f.relErr
}

func (f *fakeClient) FindDebAsset(rel *release.Release, version string) (*release.Asset, error) {
	for i := range rel.Assets {
		if strings.HasSuffix(rel.Assets[i].Name, ".deb") {
			return &rel.Assets[i], nil
		}
	}
	return nil, domain.ErrAssetNotFound
}

func (f *fakeClient) Download(ctx context.Context, url, dest string, progress release.ProgressFunc) error {
	if f.downloadErr != nil {
		return f.downloadErr
	}
	if progress != nil {
		progress(100, 2048, 2048)
	}
	return os.WriteFile(dest, []byte("deb-payload"), 0o644)
}

// fakeRun records host commands
type fakeRun struct {
	commands [][]string
}

func (f *fakeRun) run(ctx context.Context, name string, args ...string) error {
	f.commands = append(f.commands, append([]string{name}, args...))
	return nil
}

func testInstaller(t *testing.T, host *sysinfo.Host, client *fakeClient, run *fakeRun) (*Installer, string, *bytes.Buffer) {
	t.Helper()
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("loading config: %v", err)
	}
	parent := t.TempDir()
	cfg.Bootstrap.TempParent = parent

	out := &bytes.Buffer{}
	inst := New(cfg, zap.NewNop()).
		WithHost(host).
		WithClient(client).
		WithRunCommand(run.run).
		WithConsole(strings.NewReader("n\n"), out)
	return inst, parent, out
}

func testRelease() *release.Release {
	return &release.Release{
		TagName: "v1.2.0",
		Name:    "KdG Kiosk 1.2.0",
		Assets: []release.Asset{
			{Name: "kdg-kiosk_1.2.0_amd64.deb", BrowserDownloadURL: "https://example.com/kdg-kiosk_1.2.0_amd64.deb", Size: 2048},
		},
	}
}

func assertNoLeak(t *testing.T, parent string) {
	t.Helper()
	entries, err := os.ReadDir(parent)
	if err != nil {
		t.Fatalf("reading temp parent: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("download target leaked: %v", entries)
	}
}

func TestInstaller_Success(t *testing.T) {
	client := &fakeClient{rel: testRelease()}
	run := &fakeRun{}
	inst, parent, out := testInstaller(t, compatibleHost(t), client, run)

	if err := inst.Run(context.Background(), Options{}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if client.latestCalls != 1 {
		t.Errorf("Latest calls = %d, want 1", client.latestCalls)
	}
	if len(run.commands) != 1 {
		t.Fatalf("commands = %v, want a single apt install", run.commands)
	}
	cmd := run.commands[0]
	if cmd[0] != "apt" || cmd[1] != "install" || cmd[2] != "-y" {
		t.Errorf("install command = %v", cmd)
	}
	if !strings.HasSuffix(cmd[3], "kdg-kiosk_1.2.0_amd64.deb") {
		t.Errorf("install command %v should point at the downloaded .deb", cmd)
	}
	if !strings.Contains(out.String(), "installed successfully") {
		t.Errorf("output %q missing the success banner", out.String())
	}
	assertNoLeak(t, parent)
}

func TestInstaller_PinnedVersion(t *testing.T) {
	client := &fakeClient{rel: testRelease()}
	run := &fakeRun{}
	inst, parent, _ := testInstaller(t, compatibleHost(t), client, run)

	if err := inst.Run(context.Background(), Options{Version: "1.2.0"}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if client.latestCalls != 0 {
		t.Error("pinned install should not query the latest release")
	}
	if len(client.byTagCalls) != 1 || client.byTagCalls[0] != "1.2.0" {
		t.Errorf("ByTag calls = %v, want [1.2.0]", client.byTagCalls)
	}
	assertNoLeak(t, parent)
}

func TestInstaller_AptFallbackToDpkg(t *testing.T) {
	client := &fakeClient{rel: testRelease()}
	// apt fails only on its first invocation (the install -y one); the
	// dependency fix afterwards succeeds.
	aptFailed := false
	direct := &fakeRun{}
	runFunc := func(ctx context.Context, name string, args ...string) error {
		direct.commands = append(direct.commands, append([]string{name}, args...))
		if name == "apt" && !aptFailed {
			aptFailed = true
			return errors.New("exit status 100")
		}
		return nil
	}

	inst, parent, out := testInstaller(t, compatibleHost(t), client, &fakeRun{})
	inst.WithRunCommand(runFunc)

	if err := inst.Run(context.Background(), Options{}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(direct.commands) != 3 {
		t.Fatalf("commands = %v, want apt, dpkg, apt -f", direct.commands)
	}
	if direct.commands[1][0] != "dpkg" || direct.commands[1][1] != "-i" {
		t.Errorf("fallback command = %v, want dpkg -i", direct.commands[1])
	}
	if direct.commands[2][0] != "apt" || direct.commands[2][2] != "-f" {
		t.Errorf("repair command = %v, want apt install -f -y", direct.commands[2])
	}
	if !strings.Contains(out.String(), "alternative installation") {
		t.Errorf("output %q should mention the fallback", out.String())
	}
	assertNoLeak(t, parent)
}

func TestInstaller_DpkgFallbackFailure(t *testing.T) {
	client := &fakeClient{rel: testRelease()}
	runFunc := func(ctx context.Context, name string, args ...string) error {
		return errors.New("exit status 1")
	}

	inst, parent, _ := testInstaller(t, compatibleHost(t), client, &fakeRun{})
	inst.WithRunCommand(runFunc)

	err := inst.Run(context.Background(), Options{})
	if err == nil {
		t.Fatal("Run() should fail when every install path fails")
	}
	assertNoLeak(t, parent)
}

func TestInstaller_DownloadFailure(t *testing.T) {
	client := &fakeClient{rel: testRelease(), downloadErr: errors.New("connection reset")}
	run := &fakeRun{}
	inst, parent, _ := testInstaller(t, compatibleHost(t), client, run)

	err := inst.Run(context.Background(), Options{})
	if err == nil {
		t.Fatal("Run() should fail when the download fails")
	}
	if len(run.commands) != 0 {
		t.Errorf("install commands ran after a failed download: %v", run.commands)
	}
	assertNoLeak(t, parent)
}

func TestInstaller_NotRoot(t *testing.T) {
	host := compatibleHost(t)
	host.Geteuid = func() int { return 1000 }
	client := &fakeClient{rel: testRelease()}
	inst, parent, _ := testInstaller(t, host, client, &fakeRun{})

	err := inst.Run(context.Background(), Options{})
	if !errors.Is(err, domain.ErrNotRoot) {
		t.Fatalf("Run() error = %v, want ErrNotRoot", err)
	}
	if client.latestCalls != 0 {
		t.Error("release lookup ran without root privileges")
	}
	assertNoLeak(t, parent)
}

func TestInstaller_IncompatibleHost(t *testing.T) {
	host := compatibleHost(t)
	host.GOARCH = "arm64"
	client := &fakeClient{rel: testRelease()}
	inst, parent, out := testInstaller(t, host, client, &fakeRun{})

	err := inst.Run(context.Background(), Options{})
	if err == nil {
		t.Fatal("Run() should fail on an incompatible host")
	}
	if client.latestCalls != 0 {
		t.Error("release lookup ran on an incompatible host")
	}
	if !strings.Contains(out.String(), "arm64") {
		t.Errorf("output %q should name the offending architecture", out.String())
	}
	assertNoLeak(t, parent)
}

// fakeStart records detached launches
type fakeStart struct {
	commands [][]string
	err      error
}

func (f *fakeStart) start(name string, args ...string) error {
	f.commands = append(f.commands, append([]string{name}, args...))
	return f.err
}

func TestInstaller_WizardLaunch(t *testing.T) {
	tests := []struct {
		name       string
		assumeYes  bool
		input      string
		wantLaunch bool
	}{
		{
			name:       "--yes launches without prompting",
			assumeYes:  true,
			input:      "",
			wantLaunch: true,
		},
		{
			name:       "empty answer defaults to yes",
			input:      "\n",
			wantLaunch: true,
		},
		{
			name:       "explicit yes",
			input:      "y\n",
			wantLaunch: true,
		},
		{
			name:       "declined",
			input:      "n\n",
			wantLaunch: false,
		},
		{
			name:       "uppercase decline",
			input:      "N\n",
			wantLaunch: false,
		},
		{
			name:       "unreadable stdin is treated as declined",
			input:      "",
			wantLaunch: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &fakeClient{rel: testRelease()}
			start := &fakeStart{}
			inst, parent, out := testInstaller(t, compatibleHost(t), client, &fakeRun{})
			inst.WithStartCommand(start.start).
				WithConsole(strings.NewReader(tt.input), out)

			if err := inst.Run(context.Background(), Options{AssumeYes: tt.assumeYes}); err != nil {
				t.Fatalf("Run() error = %v", err)
			}

			if tt.wantLaunch {
				if len(start.commands) != 1 {
					t.Fatalf("wizard launches = %v, want exactly one", start.commands)
				}
				cmd := start.commands[0]
				if cmd[0] != "python3" || cmd[1] != "/usr/share/kdg-kiosk/setup_wizard.py" {
					t.Errorf("wizard command = %v", cmd)
				}
				if !strings.Contains(out.String(), "Launching setup wizard") {
					t.Errorf("output %q missing the wizard banner", out.String())
				}
			} else if len(start.commands) != 0 {
				t.Errorf("wizard launched unexpectedly: %v", start.commands)
			}
			if tt.assumeYes && strings.Contains(out.String(), "[Y/n]") {
				t.Error("--yes should skip the wizard prompt")
			}
			assertNoLeak(t, parent)
		})
	}
}

func TestInstaller_WizardLaunchFailure(t *testing.T) {
	client := &fakeClient{rel: testRelease()}
	start := &fakeStart{err: errors.New("no such file or directory")}
	inst, parent, out := testInstaller(t, compatibleHost(t), client, &fakeRun{})
	inst.WithStartCommand(start.start).
		WithConsole(strings.NewReader("y\n"), out)

	// A wizard that fails to start must not fail the install.
	if err := inst.Run(context.Background(), Options{}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !strings.Contains(out.String(), "Could not launch setup wizard") {
		t.Errorf("output %q missing the launch failure notice", out.String())
	}
	if !strings.Contains(out.String(), "kdg-kiosk-setup") {
		t.Errorf("output %q missing the manual fallback alias", out.String())
	}
	assertNoLeak(t, parent)
}

func TestInstaller_NoRelease(t *testing.T) {
	client := &fakeClient{relErr: domain.ErrNoRelease}
	inst, parent, _ := testInstaller(t, compatibleHost(t), client, &fakeRun{})

	err := inst.Run(context.Background(), Options{})
	if !errors.Is(err, domain.ErrNoRelease) {
		t.Fatalf("Run() error = %v, want ErrNoRelease", err)
	}
	assertNoLeak(t, parent)
}
