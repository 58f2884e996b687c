// Package config loads, normalizes, and validates bootstick configuration data.
//
// It supplies defaults, expands user paths (including tilde shortcuts), reads
// TOML files, and applies the BOOTSTICK_ISO, BOOTSTICK_DISK and
// BOOTSTICK_AUTO environment overrides, which always win over file values.
//
// Always obtain settings through this package so downstream code receives
// expanded paths, canonical log formats, and clear validation errors.
package config
