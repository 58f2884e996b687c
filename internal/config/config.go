package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Image contains settings for locating the installation image.
type Image struct {
	// Dir is scanned for *.iso candidates when no explicit path is given.
	Dir string `toml:"dir"`
	// Path pins a specific image and skips the candidate scan.
	Path string `toml:"path"`
	// MinImageBytes triggers a warning when the chosen image is smaller.
	MinImageBytes int64 `toml:"min_image_bytes"`
}

// Device contains settings for the removable target.
type Device struct {
	ID         string `toml:"id"`
	Label      string `toml:"label"`
	Scheme     string `toml:"scheme"`
	VolumesDir string `toml:"volumes_dir"`
}

// Transfer contains payload copy settings.
type Transfer struct {
	SplitChunkMiB      int    `toml:"split_chunk_mib"`
	PrimaryPayload     string `toml:"primary_payload"`
	AlternativePayload string `toml:"alternative_payload"`
}

// Tools names the external executables bootstick drives.
type Tools struct {
	Diskutil       string `toml:"diskutil"`
	Hdiutil        string `toml:"hdiutil"`
	Rsync          string `toml:"rsync"`
	Wimlib         string `toml:"wimlib"`
	PackageManager string `toml:"package_manager"`
	WimlibPackage  string `toml:"wimlib_package"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
	// Dir receives a JSON log file per run when set.
	Dir string `toml:"dir"`
	// RetentionDays prunes run logs older than this many days; 0 keeps all.
	RetentionDays int `toml:"retention_days"`
}

// Run contains run-controller behaviour.
type Run struct {
	Auto    bool   `toml:"auto"`
	LockDir string `toml:"lock_dir"`
}

// Config encapsulates all configuration values for bootstick.
//
// Configuration sections by subsystem:
//   - Image: image directory, pinned path and size warning threshold
//   - Device: target identifier, volume label and partition scheme
//   - Transfer: split chunk size and payload locations inside the image
//   - Tools: external executable names
//   - Logging: log format, level and optional file directory
//   - Run: automation flag and lock directory
type Config struct {
	Image    Image    `toml:"image"`
	Device   Device   `toml:"device"`
	Transfer Transfer `toml:"transfer"`
	Tools    Tools    `toml:"tools"`
	Logging  Logging  `toml:"logging"`
	Run      Run      `toml:"run"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and environment overrides applied.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config %s: %w", resolvedPath, err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if strings.TrimSpace(path) == "" {
		path = strings.TrimSpace(os.Getenv(EnvConfig))
	}
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs(projectConfigName)
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the lock directory and, when file logging is
// enabled, the log directory.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Run.LockDir}
	if strings.TrimSpace(c.Logging.Dir) != "" {
		dirs = append(dirs, c.Logging.Dir)
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// SplitChunkBytes returns the maximum size of one split payload chunk.
func (c *Config) SplitChunkBytes() int64 {
	return int64(c.Transfer.SplitChunkMiB) * 1024 * 1024
}

// RequiredBinaries lists the executables every run depends on. The split
// tool is excluded because it is only needed, and installable, on demand.
func (c *Config) RequiredBinaries() []string {
	return []string{c.Tools.Diskutil, c.Tools.Hdiutil, c.Tools.Rsync}
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

func defaultLockDir() string {
	if base, ok := os.LookupEnv("XDG_CACHE_HOME"); ok && strings.TrimSpace(base) != "" {
		return filepath.Join(base, "bootstick")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "~/.cache/bootstick"
	}
	return filepath.Join(home, ".cache", "bootstick")
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
