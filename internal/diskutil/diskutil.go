// Package diskutil wraps the macOS diskutil tool for device discovery,
// description, erase and mount control. Structured output is requested with
// -plist and decoded with howett.net/plist.
package diskutil

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/text/cases"
	"howett.net/plist"

	"bootstick/internal/command"
	"bootstick/internal/logging"
)

// ErrUnknownDevice is returned when an identifier names no attached device.
var ErrUnknownDevice = errors.New("unknown device")

// DeviceInfo describes one device as reported by diskutil info.
type DeviceInfo struct {
	Identifier  string
	Node        string
	WholeDisk   bool
	Internal    bool
	BusProtocol string
	SizeBytes   int64
	MediaName   string
}

// IsDiskImage reports whether the device is backed by an attached disk image
// rather than physical media.
func (d DeviceInfo) IsDiskImage() bool {
	bus := strings.ReplaceAll(strings.TrimSpace(d.BusProtocol), "-", " ")
	fold := cases.Fold()
	return fold.String(bus) == fold.String("Disk Image")
}

// Manager is the device-management collaborator.
type Manager interface {
	ListExternalPhysical(ctx context.Context) ([]string, error)
	Info(ctx context.Context, id string) (DeviceInfo, error)
	UnmountDisk(ctx context.Context, id string) error
	EraseDisk(ctx context.Context, id, format, label, scheme string) error
	MountDisk(ctx context.Context, id string) error
	Mount(ctx context.Context, id string) error
	Eject(ctx context.Context, id string) error
}

// Client implements Manager by shelling out to diskutil.
type Client struct {
	runner command.Runner
	binary string
	logger *slog.Logger
}

// New creates a diskutil client. An empty binary defaults to "diskutil".
func New(runner command.Runner, binary string, logger *slog.Logger) *Client {
	if strings.TrimSpace(binary) == "" {
		binary = "diskutil"
	}
	return &Client{
		runner: runner,
		binary: binary,
		logger: logging.NewComponentLogger(logger, "diskutil"),
	}
}

type listPlist struct {
	WholeDisks []string `plist:"WholeDisks"`
}

type infoPlist struct {
	DeviceIdentifier string `plist:"DeviceIdentifier"`
	DeviceNode       string `plist:"DeviceNode"`
	WholeDisk        bool   `plist:"WholeDisk"`
	Internal         bool   `plist:"Internal"`
	BusProtocol      string `plist:"BusProtocol"`
	Size             int64  `plist:"Size"`
	TotalSize        int64  `plist:"TotalSize"`
	MediaName        string `plist:"MediaName"`
	IORegistryName   string `plist:"IORegistryEntryName"`
}

// ListExternalPhysical returns the identifiers of external physical whole disks.
func (c *Client) ListExternalPhysical(ctx context.Context) ([]string, error) {
	out, err := c.runner.Output(ctx, c.binary, "list", "-plist", "external", "physical")
	if err != nil {
		return nil, fmt.Errorf("list external disks: %w", err)
	}
	var list listPlist
	if _, err := plist.Unmarshal(out, &list); err != nil {
		return nil, fmt.Errorf("decode disk list: %w", err)
	}
	ids := make([]string, 0, len(list.WholeDisks))
	for _, id := range list.WholeDisks {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	c.logger.Debug("listed external disks", logging.Int("count", len(ids)))
	return ids, nil
}

// Info describes id. Identifiers diskutil cannot resolve yield ErrUnknownDevice.
func (c *Client) Info(ctx context.Context, id string) (DeviceInfo, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return DeviceInfo{}, fmt.Errorf("describe device: empty identifier: %w", ErrUnknownDevice)
	}
	out, err := c.runner.Output(ctx, c.binary, "info", "-plist", id)
	if err != nil {
		if isNotFound(err) {
			return DeviceInfo{}, fmt.Errorf("describe %s: %w", id, ErrUnknownDevice)
		}
		return DeviceInfo{}, fmt.Errorf("describe %s: %w", id, err)
	}
	var raw infoPlist
	if _, err := plist.Unmarshal(out, &raw); err != nil {
		return DeviceInfo{}, fmt.Errorf("decode device info for %s: %w", id, err)
	}
	if raw.DeviceIdentifier == "" {
		return DeviceInfo{}, fmt.Errorf("describe %s: %w", id, ErrUnknownDevice)
	}
	info := DeviceInfo{
		Identifier:  raw.DeviceIdentifier,
		Node:        raw.DeviceNode,
		WholeDisk:   raw.WholeDisk,
		Internal:    raw.Internal,
		BusProtocol: raw.BusProtocol,
		SizeBytes:   raw.TotalSize,
		MediaName:   raw.MediaName,
	}
	if info.SizeBytes == 0 {
		info.SizeBytes = raw.Size
	}
	if info.MediaName == "" {
		info.MediaName = raw.IORegistryName
	}
	if info.Node == "" {
		info.Node = "/dev/" + info.Identifier
	}
	return info, nil
}

func isNotFound(err error) bool {
	var cmdErr *command.Error
	if errors.As(err, &cmdErr) {
		return strings.Contains(strings.ToLower(cmdErr.Stderr), "could not find")
	}
	return false
}

// UnmountDisk force-unmounts every volume on id.
func (c *Client) UnmountDisk(ctx context.Context, id string) error {
	if err := c.runner.Run(ctx, c.binary, "unmountDisk", "force", id); err != nil {
		return fmt.Errorf("unmount %s: %w", id, err)
	}
	return nil
}

// EraseDisk erases id into a single volume of the given format, label and scheme.
func (c *Client) EraseDisk(ctx context.Context, id, format, label, scheme string) error {
	c.logger.Info("erasing device",
		logging.String("device", id),
		logging.String("format", format),
		logging.String("label", label),
		logging.String("scheme", scheme),
	)
	if err := c.runner.Run(ctx, c.binary, "eraseDisk", format, label, scheme, id); err != nil {
		return fmt.Errorf("erase %s: %w", id, err)
	}
	return nil
}

// MountDisk mounts every mountable volume of a whole disk.
func (c *Client) MountDisk(ctx context.Context, id string) error {
	if err := c.runner.Run(ctx, c.binary, "mountDisk", id); err != nil {
		return fmt.Errorf("mount disk %s: %w", id, err)
	}
	return nil
}

// Mount mounts a single volume.
func (c *Client) Mount(ctx context.Context, id string) error {
	if err := c.runner.Run(ctx, c.binary, "mount", id); err != nil {
		return fmt.Errorf("mount %s: %w", id, err)
	}
	return nil
}

// Eject unmounts and ejects id.
func (c *Client) Eject(ctx context.Context, id string) error {
	if err := c.runner.Run(ctx, c.binary, "eject", id); err != nil {
		return fmt.Errorf("eject %s: %w", id, err)
	}
	return nil
}
