package config

import (
	"errors"
	"fmt"
	"path"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateImage(); err != nil {
		return err
	}
	if err := c.validateDevice(); err != nil {
		return err
	}
	if err := c.validateTransfer(); err != nil {
		return err
	}
	if err := c.validateTools(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateImage() error {
	if strings.TrimSpace(c.Image.Dir) == "" {
		return errors.New("image.dir must be set")
	}
	if c.Image.MinImageBytes < 0 {
		return errors.New("image.min_image_bytes must be >= 0")
	}
	return nil
}

func (c *Config) validateDevice() error {
	label := c.Device.Label
	if label == "" {
		return errors.New("device.label must be set")
	}
	if len(label) > maxLabelLength {
		return fmt.Errorf("device.label %q exceeds the FAT32 limit of %d characters", label, maxLabelLength)
	}
	for _, r := range label {
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') && r != '_' && r != '-' {
			return fmt.Errorf("device.label %q may only contain A-Z, 0-9, '_' and '-'", label)
		}
	}
	switch c.Device.Scheme {
	case "MBR", "GPT":
	default:
		return fmt.Errorf("device.scheme must be MBR or GPT, got %q", c.Device.Scheme)
	}
	if strings.Contains(c.Device.ID, "/") {
		return fmt.Errorf("device.id %q must be a device identifier such as disk4", c.Device.ID)
	}
	return nil
}

func (c *Config) validateTransfer() error {
	if c.Transfer.SplitChunkMiB <= 0 || c.Transfer.SplitChunkMiB > maxSplitChunkMiB {
		return fmt.Errorf("transfer.split_chunk_mib must be between 1 and %d", maxSplitChunkMiB)
	}
	payloads := map[string]string{
		"transfer.primary_payload":     c.Transfer.PrimaryPayload,
		"transfer.alternative_payload": c.Transfer.AlternativePayload,
	}
	for key, value := range payloads {
		if err := validateRelative(key, value); err != nil {
			return err
		}
	}
	if c.Transfer.PrimaryPayload == c.Transfer.AlternativePayload {
		return errors.New("transfer.primary_payload and transfer.alternative_payload must differ")
	}
	return nil
}

func validateRelative(key, value string) error {
	if value == "" {
		return fmt.Errorf("%s must be set", key)
	}
	if path.IsAbs(value) {
		return fmt.Errorf("%s must be relative to the image root, got %q", key, value)
	}
	if value == ".." || strings.HasPrefix(value, "../") {
		return fmt.Errorf("%s must stay inside the image root, got %q", key, value)
	}
	return nil
}

func (c *Config) validateTools() error {
	return ensureSetMap(map[string]string{
		"tools.diskutil":        c.Tools.Diskutil,
		"tools.hdiutil":         c.Tools.Hdiutil,
		"tools.rsync":           c.Tools.Rsync,
		"tools.wimlib":          c.Tools.Wimlib,
		"tools.package_manager": c.Tools.PackageManager,
		"tools.wimlib_package":  c.Tools.WimlibPackage,
	})
}

func (c *Config) validateLogging() error {
	if c.Logging.RetentionDays < 0 {
		return fmt.Errorf("logging.retention_days must be 0 or more, got %d", c.Logging.RetentionDays)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
		return nil
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error, got %q", c.Logging.Level)
	}
}

func ensureSetMap(values map[string]string) error {
	for key, value := range values {
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("%s must be set", key)
		}
	}
	return nil
}
