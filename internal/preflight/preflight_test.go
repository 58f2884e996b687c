package preflight

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"bootstick/internal/config"
	"bootstick/internal/deps"
	"bootstick/internal/diskutil"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	result := CheckDirectoryAccess("test", t.TempDir())
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed || result.Detail == "" {
		t.Fatalf("expected failure with detail for missing dir, got %+v", result)
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if result := CheckDirectoryAccess("test", f); result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckReadableFile(t *testing.T) {
	dir := t.TempDir()
	f := filepath.Join(dir, "win.iso")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := CheckReadableFile(f); err != nil {
		t.Fatalf("expected readable file, got %v", err)
	}
	if err := CheckReadableFile(dir); err == nil {
		t.Fatal("expected error for directory")
	}
	if err := CheckReadableFile(filepath.Join(dir, "missing.iso")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

func TestCheckPlatform(t *testing.T) {
	orig := goos
	t.Cleanup(func() { goos = orig })

	goos = "darwin"
	if !CheckPlatform().Passed {
		t.Fatal("expected darwin to pass")
	}
	goos = "linux"
	if r := CheckPlatform(); r.Passed || !strings.Contains(r.Detail, "macOS") {
		t.Fatalf("expected linux to fail with macOS hint, got %+v", r)
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	if results := RunAll(context.Background(), nil); results != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func TestRunAllReportsMissingTools(t *testing.T) {
	orig := goos
	goos = "darwin"
	t.Cleanup(func() { goos = orig })

	cfg := config.Default()
	cfg.Image.Dir = filepath.Join(t.TempDir(), "absent")
	cfg.Run.LockDir = t.TempDir()
	cfg.Tools.Diskutil = "bootstick-missing-diskutil"
	cfg.Tools.Wimlib = "bootstick-missing-wimlib"

	results := RunAll(context.Background(), &cfg)
	failure, ok := FirstFailure(results)
	if !ok {
		t.Fatalf("expected a required failure, got %+v", results)
	}
	if failure.Name != "diskutil" {
		t.Fatalf("expected diskutil to fail first, got %+v", failure)
	}
	for _, r := range results {
		if r.Name == "wimlib" && (r.Passed || !r.Optional) {
			t.Fatalf("expected wimlib to be an optional failure, got %+v", r)
		}
		if r.Name == "Image directory" && !r.Optional {
			t.Fatalf("missing image directory must not block a run: %+v", r)
		}
	}
}

func TestFromStatus(t *testing.T) {
	r := FromStatus(deps.Status{Name: "wimlib", Optional: true, Detail: `binary "wimlib-imagex" not found`, Description: "Splits payloads"})
	if r.Passed || !r.Optional || !strings.Contains(r.Detail, "optional") {
		t.Fatalf("unexpected result %+v", r)
	}
	r = FromStatus(deps.Status{Name: "rsync", Command: "rsync", Available: true})
	if !r.Passed || r.Detail != "rsync" {
		t.Fatalf("unexpected result %+v", r)
	}
}

type probeManager struct {
	diskutil.Manager
	ids   []string
	infos map[string]diskutil.DeviceInfo
	err   error
}

func (m probeManager) ListExternalPhysical(context.Context) ([]string, error) { return m.ids, m.err }

func (m probeManager) Info(_ context.Context, id string) (diskutil.DeviceInfo, error) {
	info, ok := m.infos[id]
	if !ok {
		return diskutil.DeviceInfo{}, diskutil.ErrUnknownDevice
	}
	return info, nil
}

func TestProbeDevices(t *testing.T) {
	mgr := probeManager{
		ids:   []string{"disk4", "disk8"},
		infos: map[string]diskutil.DeviceInfo{"disk4": {Identifier: "disk4"}},
	}
	probe := ProbeDevices(context.Background(), mgr)
	if len(probe.Devices) != 1 || probe.DeviceDetail() != "1 external device (disk4), 1 could not be described" {
		t.Fatalf("unexpected probe %+v: %s", probe, probe.DeviceDetail())
	}
	if len(probe.Listed) != 2 || probe.Complete() {
		t.Fatalf("listing should keep the undescribed device: %+v", probe.Listing)
	}

	failed := ProbeDevices(context.Background(), probeManager{err: errors.New("diskutil missing")})
	if !strings.Contains(failed.DeviceDetail(), "diskutil missing") {
		t.Fatalf("unexpected detail %q", failed.DeviceDetail())
	}
	if (DeviceProbe{}).DeviceDetail() != "No external devices detected" {
		t.Fatal("unexpected empty detail")
	}
}
