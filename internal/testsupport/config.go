package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"bootstick/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Image.Dir = filepath.Join(base, "images")
	cfgVal.Device.VolumesDir = filepath.Join(base, "volumes")
	cfgVal.Logging.Dir = filepath.Join(base, "logs")
	cfgVal.Run.LockDir = filepath.Join(base, "lock")
	for _, dir := range []string{cfgVal.Image.Dir, cfgVal.Device.VolumesDir, cfgVal.Run.LockDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
	}

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithImage pins the image path on the test config.
func WithImage(path string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Image.Path = path
	}
}

// WithDevice pins the target device on the test config.
func WithDevice(id string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Device.ID = config.NormalizeDeviceID(id)
	}
}

// WithAuto sets the automation flag on the test config.
func WithAuto(auto bool) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Run.Auto = auto
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, the binaries every run requires
// are stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = b.cfg.RequiredBinaries()
		}
		stubBinaries(b.t, filepath.Join(b.baseDir, "bin"), names)
	}
}

// StubBinaries writes stub executables into a temp directory and prepends it
// to PATH for the rest of the test.
func StubBinaries(t testing.TB, names ...string) {
	t.Helper()
	stubBinaries(t, t.TempDir(), names)
}

func stubBinaries(t testing.TB, binDir string, names []string) {
	t.Helper()
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		t.Fatalf("mkdir bin dir: %v", err)
	}
	script := []byte("#!/bin/sh\nexit 0\n")
	for _, name := range names {
		target := filepath.Join(binDir, name)
		if err := os.WriteFile(target, script, 0o755); err != nil {
			t.Fatalf("write stub %s: %v", name, err)
		}
	}
	t.Setenv("PATH", binDir+string(os.PathListSeparator)+os.Getenv("PATH"))
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Image.Dir)
}
