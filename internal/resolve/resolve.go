// Package resolve determines the image and target device for a run from
// overrides, automatic single-choice selection, or interactive menus.
package resolve

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"

	"bootstick/internal/config"
	"bootstick/internal/diskutil"
	"bootstick/internal/fault"
	"bootstick/internal/logging"
	"bootstick/internal/preflight"
	"bootstick/internal/prompt"
	"bootstick/internal/safety"
)

// Resolver resolves run inputs.
type Resolver struct {
	Devices  diskutil.Manager
	Prompter prompt.Prompter
	Logger   *slog.Logger

	ImageDir  string
	ImagePath string
	DeviceID  string
	Auto      bool
}

// New creates a Resolver from cfg, whose Image.Path, Device.ID and Run.Auto
// already carry any environment overrides.
func New(cfg *config.Config, devices diskutil.Manager, p prompt.Prompter, logger *slog.Logger) *Resolver {
	return &Resolver{
		Devices:   devices,
		Prompter:  p,
		Logger:    logging.NewComponentLogger(logger, "resolver"),
		ImageDir:  cfg.Image.Dir,
		ImagePath: cfg.Image.Path,
		DeviceID:  cfg.Device.ID,
		Auto:      cfg.Run.Auto,
	}
}

func (r *Resolver) logger() *slog.Logger {
	if r.Logger == nil {
		return logging.NewNop()
	}
	return r.Logger
}

// ResolveImage returns a readable image path.
func (r *Resolver) ResolveImage(_ context.Context) (string, error) {
	logger := r.logger()
	if override := strings.TrimSpace(r.ImagePath); override != "" {
		logger.Info("using image override",
			logging.Args(append(logging.DecisionAttrs("image_source", "override", "image path supplied"),
				logging.String("image", override))...)...)
		return r.readable(override)
	}

	cands, err := ScanImages(r.ImageDir)
	if err != nil {
		return "", fault.New(fault.KindInput, "cannot list images", err)
	}

	if len(cands) == 0 {
		logger.Info("no images found; asking for a path",
			logging.Args(append(logging.DecisionAttrs("image_source", "manual", "no candidates"),
				logging.String("dir", r.ImageDir))...)...)
		return r.manualImage()
	}

	latest, _ := LatestImage(cands)
	if r.Auto {
		logger.Info("selected latest image",
			logging.Args(append(logging.DecisionAttrs("image_source", "auto", "latest modification time"),
				logging.String("image", latest.Path),
				logging.Int("candidates", len(cands)))...)...)
		return r.readable(latest.Path)
	}

	if r.Auto && !listing.Complete() {
		logger.Info("automatic device selection skipped",
			logging.Args(append(logging.DecisionAttrs("device_source", "menu", "listed devices could not all be described"),
				logging.Int("listed", len(listing.Listed)))...)...)
	}
	cands := listing.Devices
	rows := make([][]string, 0, len(cands))
	for _, c := range cands {
		marker := ""
		if c.Path == latest.Path {
			marker = "latest"
		}
		rows = append(rows, []string{
			filepath.Base(c.Path),
			humanize.IBytes(uint64(c.Size)),
			c.ModTime.Format("2006-01-02 15:04"),
			marker,
		})
	}
	choice, err := prompt.Select(r.Prompter, prompt.Menu{
		Title:   fmt.Sprintf("Images in %s:", r.ImageDir),
		Headers: []string{"Image", "Size", "Modified", ""},
		Rows:    rows,
		Aligns:  []prompt.Alignment{prompt.AlignLeft, prompt.AlignRight},
		Manual:  "Enter an image path",
	})
	if err != nil {
		return "", err
	}
	if choice.Manual {
		return r.manualImage()
	}
	return r.readable(cands[choice.Index].Path)
}

func (r *Resolver) manualImage() (string, error) {
	answer, err := r.Prompter.Ask("Path to the installation image: ")
	if err != nil {
		return "", fault.New(fault.KindInput, "no image available and none entered", err)
	}
	if strings.TrimSpace(answer) == "" {
		return "", fault.Input("no image path entered")
	}
	path, err := config.ExpandPath(strings.TrimSpace(answer))
	if err != nil {
		return "", fault.New(fault.KindInput, "invalid image path", err)
	}
	return r.readable(path)
}

func (r *Resolver) readable(path string) (string, error) {
	if err := preflight.CheckReadableFile(path); err != nil {
		return "", fault.New(fault.KindInput, "image is not readable", err)
	}
	return path, nil
}

// DeviceCandidates lists and describes every external physical device.
// Devices that cannot be described are logged and kept in the listing so
// they still count against automatic selection.
func (r *Resolver) DeviceCandidates(ctx context.Context) (diskutil.Listing, error) {
	listing, err := diskutil.DescribeExternal(ctx, r.Devices)
	if err != nil {
		return diskutil.Listing{}, fault.Tool("list external devices", err)
	}
	for _, u := range listing.Undescribed {
		logging.WarnWithContext(r.logger(), "device cannot be described", "device_describe_failed",
			logging.String("device", u.ID),
			logging.Error(u.Err),
			logging.String(logging.FieldImpact, "device not offered for selection; automatic selection disabled"),
		)
	}
	return listing, nil
}

// ResolveDevice returns a device that passed safety validation.
func (r *Resolver) ResolveDevice(ctx context.Context) (diskutil.DeviceInfo, error) {
	logger := r.logger()
	if override := config.NormalizeDeviceID(r.DeviceID); override != "" {
		logger.Info("using device override",
			logging.Args(append(logging.DecisionAttrs("device_source", "override", "device identifier supplied"),
				logging.String("device", override))...)...)
		return safety.Validate(ctx, r.Devices, override)
	}

	listing, err := r.DeviceCandidates(ctx)
	if err != nil {
		return diskutil.DeviceInfo{}, err
	}
	picked, ok, err := AutoPickDevice(listing, r.Auto)
	if err != nil {
		return diskutil.DeviceInfo{}, err
	}
	if ok {
		logger.Info("selected only external device",
			logging.Args(append(logging.DecisionAttrs("device_source", "auto", "single candidate"),
				logging.String("device", picked.Identifier))...)...)
		return safety.Validate(ctx, r.Devices, picked.Identifier)
	}

	if r.Auto && !listing.Complete() {
		logger.Info("automatic device selection skipped",
			logging.Args(append(logging.DecisionAttrs("device_source", "menu", "listed devices could not all be described"),
				logging.Int("listed", len(listing.Listed)))...)...)
	}
	cands := listing.Devices
	rows := make([][]string, 0, len(cands))
	for _, c := range cands {
		rows = append(rows, []string{c.Identifier, humanize.IBytes(uint64(max(c.SizeBytes, 0))), c.MediaName, c.BusProtocol})
	}
	choice, err := prompt.Select(r.Prompter, prompt.Menu{
		Title:   "External devices:",
		Headers: []string{"Device", "Capacity", "Name", "Bus"},
		Rows:    rows,
		Aligns:  []prompt.Alignment{prompt.AlignLeft, prompt.AlignRight},
		Manual:  "Enter a device identifier",
	})
	if err != nil {
		return diskutil.DeviceInfo{}, err
	}
	id := ""
	if choice.Manual {
		answer, err := r.Prompter.Ask("Device identifier (e.g. disk4): ")
		if err != nil {
			return diskutil.DeviceInfo{}, fault.New(fault.KindInput, "no device entered", err)
		}
		id = config.NormalizeDeviceID(answer)
		if id == "" {
			return diskutil.DeviceInfo{}, fault.Input("no device identifier entered")
		}
	} else {
		id = cands[choice.Index].Identifier
	}
	return safety.Validate(ctx, r.Devices, id)
}
