package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	c.applyEnv()
	if err := c.normalizeImage(); err != nil {
		return err
	}
	if err := c.normalizeDevice(); err != nil {
		return err
	}
	c.normalizeTransfer()
	c.normalizeTools()
	if err := c.normalizeLogging(); err != nil {
		return err
	}
	return c.normalizeRun()
}

// applyEnv copies environment overrides over file values.
func (c *Config) applyEnv() {
	if value, ok := lookupNonEmpty(EnvImage); ok {
		c.Image.Path = value
	}
	if value, ok := lookupNonEmpty(EnvDevice); ok {
		c.Device.ID = value
	}
	if value, ok := lookupNonEmpty(EnvAuto); ok {
		c.Run.Auto = ParseFlag(value)
	}
}

// ParseFlag reports whether value is one of the accepted truthy spellings
// (1, true, yes), ignoring case and surrounding space.
func ParseFlag(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes":
		return true
	default:
		return false
	}
}

func lookupNonEmpty(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	value = strings.TrimSpace(value)
	return value, value != ""
}

func (c *Config) normalizeImage() error {
	var err error
	if strings.TrimSpace(c.Image.Dir) == "" {
		c.Image.Dir = defaultImageDir
	}
	if c.Image.Dir, err = expandPath(c.Image.Dir); err != nil {
		return fmt.Errorf("image.dir: %w", err)
	}
	c.Image.Path = strings.TrimSpace(c.Image.Path)
	if c.Image.Path, err = expandPath(c.Image.Path); err != nil {
		return fmt.Errorf("image.path: %w", err)
	}
	return nil
}

func (c *Config) normalizeDevice() error {
	c.Device.ID = NormalizeDeviceID(c.Device.ID)
	c.Device.Label = strings.ToUpper(strings.TrimSpace(c.Device.Label))
	if c.Device.Label == "" {
		c.Device.Label = defaultLabel
	}
	c.Device.Scheme = strings.ToUpper(strings.TrimSpace(c.Device.Scheme))
	if c.Device.Scheme == "" {
		c.Device.Scheme = defaultScheme
	}
	if strings.TrimSpace(c.Device.VolumesDir) == "" {
		c.Device.VolumesDir = defaultVolumesDir
	}
	var err error
	if c.Device.VolumesDir, err = expandPath(c.Device.VolumesDir); err != nil {
		return fmt.Errorf("device.volumes_dir: %w", err)
	}
	return nil
}

// NormalizeDeviceID strips a leading /dev/ so "/dev/disk4" and "disk4" name
// the same device.
func NormalizeDeviceID(id string) string {
	id = strings.TrimSpace(id)
	return strings.TrimPrefix(id, "/dev/")
}

func (c *Config) normalizeTransfer() {
	if c.Transfer.SplitChunkMiB == 0 {
		c.Transfer.SplitChunkMiB = defaultSplitChunkMiB
	}
	c.Transfer.PrimaryPayload = cleanPayload(c.Transfer.PrimaryPayload, defaultPrimaryPayload)
	c.Transfer.AlternativePayload = cleanPayload(c.Transfer.AlternativePayload, defaultAlternativePayload)
}

func cleanPayload(value, fallback string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		value = fallback
	}
	return filepath.ToSlash(filepath.Clean(value))
}

func (c *Config) normalizeTools() {
	defaults := Default().Tools
	fill := func(value *string, fallback string) {
		*value = strings.TrimSpace(*value)
		if *value == "" {
			*value = fallback
		}
	}
	fill(&c.Tools.Diskutil, defaults.Diskutil)
	fill(&c.Tools.Hdiutil, defaults.Hdiutil)
	fill(&c.Tools.Rsync, defaults.Rsync)
	fill(&c.Tools.Wimlib, defaults.Wimlib)
	fill(&c.Tools.PackageManager, defaults.PackageManager)
	fill(&c.Tools.WimlibPackage, defaults.WimlibPackage)
}

func (c *Config) normalizeLogging() error {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	var err error
	if c.Logging.Dir, err = expandPath(strings.TrimSpace(c.Logging.Dir)); err != nil {
		return fmt.Errorf("logging.dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeRun() error {
	var err error
	if strings.TrimSpace(c.Run.LockDir) == "" {
		c.Run.LockDir = defaultLockDir()
	}
	if c.Run.LockDir, err = expandPath(c.Run.LockDir); err != nil {
		return fmt.Errorf("run.lock_dir: %w", err)
	}
	return nil
}
