package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"bootstick/internal/config"
)

func clearBootstickEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{config.EnvImage, config.EnvDevice, config.EnvAuto, config.EnvConfig} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	clearBootstickEnv(t)
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("XDG_CACHE_HOME", "")
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved != filepath.Join(tempHome, ".config", "bootstick", "config.toml") {
		t.Fatalf("unexpected resolved path: %q", resolved)
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}
	if cfg.Image.Dir != filepath.Join(tempHome, "Downloads") {
		t.Fatalf("unexpected image dir: %q", cfg.Image.Dir)
	}
	if cfg.Run.LockDir != filepath.Join(tempHome, ".cache", "bootstick") {
		t.Fatalf("unexpected lock dir: %q", cfg.Run.LockDir)
	}
	if cfg.Device.Label != "WIN11" || cfg.Device.Scheme != "MBR" {
		t.Fatalf("unexpected device defaults: %+v", cfg.Device)
	}
	if cfg.Transfer.SplitChunkMiB != 3800 {
		t.Fatalf("unexpected chunk size: %d", cfg.Transfer.SplitChunkMiB)
	}
	if cfg.SplitChunkBytes() != 3800*1024*1024 {
		t.Fatalf("unexpected chunk bytes: %d", cfg.SplitChunkBytes())
	}
	if cfg.Transfer.PrimaryPayload != "sources/install.wim" || cfg.Transfer.AlternativePayload != "sources/install.esd" {
		t.Fatalf("unexpected payload defaults: %+v", cfg.Transfer)
	}
	if cfg.Image.MinImageBytes != 1<<30 {
		t.Fatalf("unexpected min image bytes: %d", cfg.Image.MinImageBytes)
	}
	if cfg.Run.Auto {
		t.Fatal("expected auto disabled by default")
	}
	if cfg.Logging.Dir != "" {
		t.Fatalf("expected file logging disabled by default, got %q", cfg.Logging.Dir)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	if info, err := os.Stat(cfg.Run.LockDir); err != nil || !info.IsDir() {
		t.Fatalf("expected lock dir to exist: %v", err)
	}
}

func TestLoadFallsBackToProjectConfig(t *testing.T) {
	clearBootstickEnv(t)
	t.Setenv("HOME", t.TempDir())
	project := t.TempDir()
	t.Chdir(project)
	if err := os.WriteFile(filepath.Join(project, "bootstick.toml"), []byte("[device]\nlabel = \"setup\"\n"), 0o644); err != nil {
		t.Fatalf("write project config: %v", err)
	}

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || filepath.Base(resolved) != "bootstick.toml" {
		t.Fatalf("expected project config, got %q exists=%v", resolved, exists)
	}
	if cfg.Device.Label != "SETUP" {
		t.Fatalf("expected label to be upper-cased, got %q", cfg.Device.Label)
	}
}

func TestLoadCustomPath(t *testing.T) {
	clearBootstickEnv(t)
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "bootstick.toml")

	type payload struct {
		Image struct {
			Dir           string `toml:"dir"`
			MinImageBytes int64  `toml:"min_image_bytes"`
		} `toml:"image"`
		Device struct {
			ID string `toml:"id"`
		} `toml:"device"`
		Transfer struct {
			SplitChunkMiB int `toml:"split_chunk_mib"`
		} `toml:"transfer"`
		Logging struct {
			Format string `toml:"format"`
		} `toml:"logging"`
	}
	custom := payload{}
	custom.Image.Dir = filepath.Join(tempDir, "isos")
	custom.Image.MinImageBytes = 42
	custom.Device.ID = "/dev/disk7"
	custom.Transfer.SplitChunkMiB = 2000
	custom.Logging.Format = "JSON"
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.Image.Dir != custom.Image.Dir {
		t.Fatalf("expected image dir from file, got %q", cfg.Image.Dir)
	}
	if cfg.Image.MinImageBytes != 42 {
		t.Fatalf("expected min image bytes 42, got %d", cfg.Image.MinImageBytes)
	}
	if cfg.Device.ID != "disk7" {
		t.Fatalf("expected /dev/ prefix stripped, got %q", cfg.Device.ID)
	}
	if cfg.Transfer.SplitChunkMiB != 2000 {
		t.Fatalf("expected chunk size 2000, got %d", cfg.Transfer.SplitChunkMiB)
	}
	if cfg.Logging.Format != "json" {
		t.Fatalf("expected json format, got %q", cfg.Logging.Format)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	clearBootstickEnv(t)
	configPath := filepath.Join(t.TempDir(), "bootstick.toml")
	if err := os.WriteFile(configPath, []byte("[device]\nforce = true\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(configPath); err == nil {
		t.Fatal("expected unknown key to be rejected")
	}
}

func TestEnvOverridesConfigFile(t *testing.T) {
	clearBootstickEnv(t)
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "bootstick.toml")
	contents := "[image]\npath = \"/srv/file.iso\"\n[device]\nid = \"disk2\"\n[run]\nauto = false\n"
	if err := os.WriteFile(configPath, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	envImage := filepath.Join(tempDir, "env.iso")
	t.Setenv(config.EnvImage, envImage)
	t.Setenv(config.EnvDevice, "/dev/disk9")
	t.Setenv(config.EnvAuto, "YES")

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Image.Path != envImage {
		t.Errorf("expected image path from env, got %q", cfg.Image.Path)
	}
	if cfg.Device.ID != "disk9" {
		t.Errorf("expected device from env, got %q", cfg.Device.ID)
	}
	if !cfg.Run.Auto {
		t.Error("expected auto from env")
	}
}

func TestConfigEnvSelectsFile(t *testing.T) {
	clearBootstickEnv(t)
	configPath := filepath.Join(t.TempDir(), "elsewhere.toml")
	if err := os.WriteFile(configPath, []byte("[device]\nlabel = \"ALT\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(config.EnvConfig, configPath)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved != configPath || !exists {
		t.Fatalf("expected %s to be used, got %q exists=%v", configPath, resolved, exists)
	}
	if cfg.Device.Label != "ALT" {
		t.Fatalf("unexpected label %q", cfg.Device.Label)
	}
}

func TestParseFlag(t *testing.T) {
	cases := map[string]bool{
		"1": true, "true": true, "TRUE": true, " yes ": true,
		"0": false, "no": false, "": false, "on": false,
	}
	for input, want := range cases {
		if got := config.ParseFlag(input); got != want {
			t.Errorf("ParseFlag(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(contents), "BOOTSTICK_ISO") {
		t.Fatalf("sample config should document env overrides: %s", contents)
	}

	var cfg config.Config
	if err := toml.Unmarshal(contents, &cfg); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}
	if cfg.Transfer.SplitChunkMiB != 3800 {
		t.Fatalf("expected sample chunk size 3800, got %d", cfg.Transfer.SplitChunkMiB)
	}
	if cfg.Device.Label != "WIN11" {
		t.Fatalf("expected sample label WIN11, got %q", cfg.Device.Label)
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"chunk too large", func(c *config.Config) { c.Transfer.SplitChunkMiB = 4096 }},
		{"chunk zero", func(c *config.Config) { c.Transfer.SplitChunkMiB = 0 }},
		{"label too long", func(c *config.Config) { c.Device.Label = "WINDOWS11SETUP" }},
		{"label bad char", func(c *config.Config) { c.Device.Label = "WIN 11" }},
		{"scheme", func(c *config.Config) { c.Device.Scheme = "APM" }},
		{"absolute payload", func(c *config.Config) { c.Transfer.PrimaryPayload = "/sources/install.wim" }},
		{"escaping payload", func(c *config.Config) { c.Transfer.AlternativePayload = "../install.esd" }},
		{"same payloads", func(c *config.Config) { c.Transfer.AlternativePayload = c.Transfer.PrimaryPayload }},
		{"missing tool", func(c *config.Config) { c.Tools.Rsync = " " }},
		{"negative size", func(c *config.Config) { c.Image.MinImageBytes = -1 }},
		{"level", func(c *config.Config) { c.Logging.Level = "verbose" }},
		{"retention", func(c *config.Config) { c.Logging.RetentionDays = -1 }},
		{"device path", func(c *config.Config) { c.Device.ID = "/dev/disk4" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}

	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}
