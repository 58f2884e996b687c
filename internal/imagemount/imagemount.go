// Package imagemount attaches an installation image and resolves a readable
// directory for its content. Images differ in layout, so resolution falls
// back from the attach report's own mount point, to mounting the primary
// device entry, to mounting the entry whose content hint names an optical
// filesystem. Every returned path has been verified to be a directory.
package imagemount

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"bootstick/internal/diskutil"
	"bootstick/internal/fault"
	"bootstick/internal/hdiutil"
	"bootstick/internal/logging"
	"bootstick/internal/mounttable"
)

// Strategy names the resolution step that produced a mount point.
type Strategy string

const (
	StrategyDirect     Strategy = "direct"
	StrategyDevEntry   Strategy = "dev_entry"
	StrategyFilesystem Strategy = "filesystem_entry"
)

// Result is a verified image mount.
type Result struct {
	Path     string
	Strategy Strategy
	// DevEntry is the whole-disk node the attach created, used for detach
	// when the mount path is gone.
	DevEntry string
}

// DetachTarget returns what Detach should hand to the attach collaborator.
func (r Result) DetachTarget() string {
	if strings.TrimSpace(r.Path) != "" {
		return r.Path
	}
	return r.DevEntry
}

// Adapter resolves image mounts.
type Adapter struct {
	Attacher hdiutil.Attacher
	Devices  diskutil.Manager
	// Lookup maps a device node to its mount point. Defaults to the live
	// mount table.
	Lookup func(device string) (string, error)
	Logger *slog.Logger
}

// New creates an Adapter backed by the live mount table.
func New(attacher hdiutil.Attacher, devices diskutil.Manager, logger *slog.Logger) *Adapter {
	return &Adapter{
		Attacher: attacher,
		Devices:  devices,
		Lookup:   mounttable.Lookup,
		Logger:   logging.NewComponentLogger(logger, "imagemount"),
	}
}

func (a *Adapter) logger() *slog.Logger {
	if a.Logger == nil {
		return logging.NewNop()
	}
	return a.Logger
}

func (a *Adapter) lookup(device string) (string, error) {
	if a.Lookup == nil {
		return mounttable.Lookup(device)
	}
	return a.Lookup(device)
}

// Mount attaches image and returns a verified mount. When no strategy
// yields a directory the image is detached again and a tool error is
// returned.
func (a *Adapter) Mount(ctx context.Context, image string) (Result, error) {
	logger := a.logger()
	report, err := a.Attacher.Attach(ctx, image)
	if err != nil {
		return Result{}, fault.Tool(fmt.Sprintf("attach %s", image), err)
	}
	primary := report.PrimaryDevEntry()

	if mp := report.MountPoint(); mp != "" {
		if verifyDir(mp) {
			a.logChoice(StrategyDirect, mp, "attach reported a mount point")
			return Result{Path: mp, Strategy: StrategyDirect, DevEntry: primary}, nil
		}
		logging.WarnWithContext(logger, "reported mount point is not a directory", "mount_unverified",
			logging.String("mount_point", mp),
			logging.String(logging.FieldImpact, "trying device entry mount"),
		)
	}

	if primary != "" {
		if mp, ok := a.mountEntry(ctx, primary, a.Devices.MountDisk); ok {
			a.logChoice(StrategyDevEntry, mp, "primary device entry mounted")
			return Result{Path: mp, Strategy: StrategyDevEntry, DevEntry: primary}, nil
		}
	}

	if entry, found := report.FilesystemEntry(); found {
		if mp, ok := a.mountEntry(ctx, entry, a.Devices.Mount); ok {
			a.logChoice(StrategyFilesystem, mp, "optical filesystem entry mounted")
			return Result{Path: mp, Strategy: StrategyFilesystem, DevEntry: primary}, nil
		}
	}

	if primary != "" {
		if err := a.Attacher.Detach(ctx, primary); err != nil {
			logging.WarnWithContext(logger, "detach after failed mount resolution failed", "image_detach_failed",
				logging.String("dev_entry", primary),
				logging.Error(err),
				logging.String(logging.FieldImpact, "image stays attached"),
			)
		}
	}
	return Result{}, fault.Tool(
		fmt.Sprintf("could not resolve a mount point for %s; the image is likely corrupt or unsupported", image),
		nil,
	)
}

func (a *Adapter) mountEntry(ctx context.Context, entry string, mount func(context.Context, string) error) (string, bool) {
	logger := a.logger()
	if err := mount(ctx, entry); err != nil {
		logger.Debug("mount entry failed", logging.String("dev_entry", entry), logging.Error(err))
	}
	mp, err := a.lookup(entry)
	if err != nil {
		logger.Debug("mount table lookup failed", logging.String("dev_entry", entry), logging.Error(err))
		return "", false
	}
	if !verifyDir(mp) {
		logger.Debug("mount point is not a directory", logging.String("dev_entry", entry), logging.String("mount_point", mp))
		return "", false
	}
	return mp, true
}

func (a *Adapter) logChoice(strategy Strategy, mountPoint, reason string) {
	a.logger().Info("image mounted",
		logging.Args(append(logging.DecisionAttrs("mount_strategy", string(strategy), reason),
			logging.String("mount_point", mountPoint))...)...)
}

// Detach releases an image mounted by Mount.
func (a *Adapter) Detach(ctx context.Context, res Result) error {
	target := res.DetachTarget()
	if target == "" {
		return nil
	}
	if err := a.Attacher.Detach(ctx, target); err != nil {
		return fault.Tool(fmt.Sprintf("detach %s", target), err)
	}
	return nil
}

func verifyDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
