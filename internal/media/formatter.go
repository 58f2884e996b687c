// Package media prepares the target device: it clears existing volumes and
// erases the whole device into a single FAT32 partition.
package media

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"

	"bootstick/internal/config"
	"bootstick/internal/diskutil"
	"bootstick/internal/fault"
	"bootstick/internal/logging"
	"bootstick/internal/mounttable"
)

// FilesystemFormat is the diskutil personality for FAT32.
const FilesystemFormat = "MS-DOS"

// Formatter erases target devices.
type Formatter struct {
	Devices    diskutil.Manager
	Label      string
	Scheme     string
	VolumesDir string
	// Lookup maps a device node to its mount point. Defaults to the live
	// mount table.
	Lookup func(device string) (string, error)
	Logger *slog.Logger
}

// New creates a Formatter from the device section of cfg.
func New(cfg *config.Config, devices diskutil.Manager, logger *slog.Logger) *Formatter {
	return &Formatter{
		Devices:    devices,
		Label:      cfg.Device.Label,
		Scheme:     cfg.Device.Scheme,
		VolumesDir: cfg.Device.VolumesDir,
		Lookup:     mounttable.Lookup,
		Logger:     logging.NewComponentLogger(logger, "formatter"),
	}
}

// Format erases dev and returns the root of the new volume.
func (f *Formatter) Format(ctx context.Context, dev diskutil.DeviceInfo) (string, error) {
	logger := f.Logger
	if logger == nil {
		logger = logging.NewNop()
	}

	if err := f.Devices.UnmountDisk(ctx, dev.Identifier); err != nil {
		logging.WarnWithContext(logger, "unmount before erase failed", "device_unmount_failed",
			logging.String("device", dev.Identifier),
			logging.Error(err),
			logging.String(logging.FieldImpact, "continuing; the device may already be unmounted"),
		)
	}

	logger.Info("erasing device",
		logging.String("device", dev.Identifier),
		logging.Int64("size_bytes", dev.SizeBytes),
		logging.String("label", f.Label),
		logging.String("scheme", f.Scheme),
	)
	if err := f.Devices.EraseDisk(ctx, dev.Identifier, FilesystemFormat, f.Label, f.Scheme); err != nil {
		return "", fault.Tool(fmt.Sprintf("erase %s as %s", dev.Identifier, f.Label), err)
	}

	root, err := f.volumeRoot(dev)
	if err != nil {
		return "", err
	}
	logger.Info("device formatted",
		logging.String("device", dev.Identifier),
		logging.String("volume", root),
		logging.String("capacity", humanize.IBytes(uint64(max(dev.SizeBytes, 0)))),
	)
	return root, nil
}

func (f *Formatter) volumeRoot(dev diskutil.DeviceInfo) (string, error) {
	node := dev.Node
	if node == "" {
		node = "/dev/" + dev.Identifier
	}
	lookup := f.Lookup
	if lookup == nil {
		lookup = mounttable.Lookup
	}
	if mp, err := lookup(node); err == nil && isDir(mp) {
		return mp, nil
	}
	fallback := filepath.Join(f.VolumesDir, f.Label)
	if isDir(fallback) {
		return fallback, nil
	}
	return "", fault.Tool(fmt.Sprintf("volume %s did not mount after erasing %s", f.Label, dev.Identifier), nil)
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
