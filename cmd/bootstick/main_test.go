package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"bootstick/internal/config"
	"bootstick/internal/hdiutil"
	"bootstick/internal/mounttable"
	"bootstick/internal/prompt"
	"bootstick/internal/testsupport"
	"bootstick/internal/workflow"
)

type cliTestEnv struct {
	baseDir    string
	configPath string
	imageDir   string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)
	t.Setenv("XDG_CACHE_HOME", filepath.Join(base, "cache"))
	for _, key := range []string{config.EnvImage, config.EnvDevice, config.EnvAuto, config.EnvConfig} {
		t.Setenv(key, "")
	}

	env := &cliTestEnv{
		baseDir:    base,
		configPath: filepath.Join(base, "config.toml"),
		imageDir:   filepath.Join(base, "images"),
	}
	if err := os.MkdirAll(env.imageDir, 0o755); err != nil {
		t.Fatalf("mkdir images: %v", err)
	}
	contents := fmt.Sprintf("[image]\ndir = %q\n\n[run]\nlock_dir = %q\n", env.imageDir, filepath.Join(base, "lock"))
	if err := os.WriteFile(env.configPath, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return env
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

// fakeSystem replaces the system collaborators for the duration of a test.
type fakeSystem struct {
	devices  *testsupport.FakeDevices
	attacher *testsupport.FakeAttacher
	copier   *testsupport.FakeCopier
	splitter *testsupport.FakeSplitter
	prompter *prompt.Scripted
	volume   string
}

func installFakeSystem(t *testing.T, fs *fakeSystem) {
	t.Helper()
	prevCollab, prevPrompter, prevPreflight := newCollaborators, openPrompter, runPreflight
	t.Cleanup(func() {
		newCollaborators, openPrompter, runPreflight = prevCollab, prevPrompter, prevPreflight
	})
	runPreflight = false
	openPrompter = func() (prompt.Prompter, io.Closer) {
		return fs.prompter, io.NopCloser(nil)
	}
	newCollaborators = func(_ *config.Config, p prompt.Prompter, _ *slog.Logger) workflow.Collaborators {
		return workflow.Collaborators{
			Devices:  fs.devices,
			Attacher: fs.attacher,
			Copier:   fs.copier,
			Splitter: fs.splitter,
			Packages: &testsupport.FakePackages{},
			Prompter: p,
			Lookup: func(device string) (string, error) {
				if device == "/dev/disk9" {
					return fs.volume, nil
				}
				return "", mounttable.ErrNotMounted
			},
		}
	}
}

func newFakeSystem(t *testing.T, answers ...string) (*fakeSystem, string) {
	t.Helper()
	imageRoot := t.TempDir()
	testsupport.WriteSparseFile(t, filepath.Join(imageRoot, "sources", "install.wim"), 5<<30)
	image := filepath.Join(t.TempDir(), "fake.iso")
	testsupport.WriteFile(t, image, 1024)

	fs := &fakeSystem{
		devices:  testsupport.NewFakeDevices(testsupport.USBDevice("disk9", 32<<30)),
		attacher: &testsupport.FakeAttacher{Report: hdiutil.Report{Entities: []hdiutil.Entity{{DevEntry: "/dev/disk10", MountPoint: imageRoot}}}},
		copier:   &testsupport.FakeCopier{},
		splitter: &testsupport.FakeSplitter{},
		prompter: prompt.NewScripted(answers...),
		volume:   t.TempDir(),
	}
	return fs, image
}

func TestReportError(t *testing.T) {
	var buf bytes.Buffer
	if code := reportError(&buf, nil); code != 0 || buf.Len() != 0 {
		t.Fatalf("expected silent success, got %d %q", code, buf.String())
	}
	if code := reportError(&buf, errors.New("/dev/disk9 is an internal device")); code != 1 {
		t.Fatalf("expected exit 1, got %d", code)
	}
	if got := buf.String(); got != "bootstick: /dev/disk9 is an internal device\n" {
		t.Fatalf("unexpected diagnostic %q", got)
	}
}

func TestRunCommandWritesImage(t *testing.T) {
	env := setupCLITestEnv(t)
	fs, image := newFakeSystem(t, "yes")
	installFakeSystem(t, fs)
	testsupport.StubBinaries(t, "wimlib-imagex")

	out, _, err := runCLI(t, []string{"--iso", image, "--disk", "/dev/disk9"}, env.configPath)
	if code := reportError(io.Discard, err); code != 0 {
		t.Fatalf("expected exit 0, got %d: %v", code, err)
	}
	requireContains(t, out, "Wrote "+image+" to disk9")
	if len(fs.devices.Erased) != 1 || fs.devices.Erased[0].Label != "WIN11" {
		t.Fatalf("expected one WIN11 erase, got %+v", fs.devices.Erased)
	}
	if len(fs.copier.Calls) != 1 || fs.copier.Calls[0].Excludes[0] != "sources/install.wim" {
		t.Fatalf("unexpected copy calls %+v", fs.copier.Calls)
	}
	if len(fs.splitter.Calls) != 1 || fs.splitter.Calls[0].ChunkMiB != 3800 {
		t.Fatalf("unexpected split calls %+v", fs.splitter.Calls)
	}
}

func TestRunCommandRejectsInternalDevice(t *testing.T) {
	env := setupCLITestEnv(t)
	fs, image := newFakeSystem(t, "yes")
	dev := fs.devices.Infos["disk9"]
	dev.Internal = true
	fs.devices.Infos["disk9"] = dev
	installFakeSystem(t, fs)

	_, _, err := runCLI(t, []string{"run", "--iso", image, "--disk", "disk9"}, env.configPath)
	var stderr bytes.Buffer
	if code := reportError(&stderr, err); code != 1 {
		t.Fatalf("expected exit 1, got %d", code)
	}
	line := stderr.String()
	if strings.Count(line, "\n") != 1 || !strings.Contains(line, "internal") {
		t.Fatalf("expected one diagnostic line naming internal, got %q", line)
	}
	if len(fs.devices.Erased) != 0 || len(fs.copier.Calls) != 0 || len(fs.splitter.Calls) != 0 {
		t.Fatal("device work happened after rejection")
	}
}

func TestRunCommandEnvOverrides(t *testing.T) {
	env := setupCLITestEnv(t)
	fs, image := newFakeSystem(t, "no")
	installFakeSystem(t, fs)
	t.Setenv(config.EnvImage, image)
	t.Setenv(config.EnvDevice, "/dev/disk9")

	_, _, err := runCLI(t, nil, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "declined") {
		t.Fatalf("expected declined confirmation, got %v", err)
	}
	if !fs.prompter.Asked("disk9") {
		t.Fatalf("expected confirmation naming disk9, got %v", fs.prompter.Prompts)
	}
}

func TestImagesCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	older := filepath.Join(env.imageDir, "Win11_23H2.iso")
	newer := filepath.Join(env.imageDir, "Win11_24H2.ISO")
	testsupport.WriteFile(t, older, 2048)
	testsupport.WriteFile(t, newer, 4096)
	past := time.Now().Add(-48 * time.Hour)
	if err := os.Chtimes(older, past, past); err != nil {
		t.Fatal(err)
	}

	out, _, err := runCLI(t, []string{"images"}, env.configPath)
	if err != nil {
		t.Fatalf("images: %v", err)
	}
	requireContains(t, out, "Win11_23H2.iso")
	requireContains(t, out, "Win11_24H2.ISO")
	for _, line := range strings.Split(out, "\n") {
		if strings.Contains(line, "latest") && !strings.Contains(line, "Win11_24H2.ISO") {
			t.Fatalf("latest marker on wrong row: %q", line)
		}
	}
}

func TestImagesCommandEmpty(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, []string{"images"}, env.configPath)
	if err != nil {
		t.Fatalf("images: %v", err)
	}
	requireContains(t, out, "No images found")
}

func TestDevicesCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	fs, _ := newFakeSystem(t)
	installFakeSystem(t, fs)

	out, _, err := runCLI(t, []string{"devices"}, env.configPath)
	if err != nil {
		t.Fatalf("devices: %v", err)
	}
	requireContains(t, out, "disk9")
	requireContains(t, out, "32 GiB")
	requireContains(t, out, "yes")
}

func TestDevicesCommandReportsUndescribedDevices(t *testing.T) {
	env := setupCLITestEnv(t)
	fs, _ := newFakeSystem(t)
	fs.devices.External = append(fs.devices.External, "disk5")
	installFakeSystem(t, fs)

	out, _, err := runCLI(t, []string{"devices"}, env.configPath)
	if err != nil {
		t.Fatalf("devices: %v", err)
	}
	requireContains(t, out, "disk5: could not be described")
	requireContains(t, out, "disk9")
}
