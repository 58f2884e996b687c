// Package hdiutil attaches and detaches disk images with the macOS hdiutil
// tool and decodes its attach report.
package hdiutil

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"howett.net/plist"

	"bootstick/internal/command"
	"bootstick/internal/logging"
)

// ErrNoEntities is returned when an attach report lists no devices.
var ErrNoEntities = errors.New("attach report lists no system entities")

// Entity is one device node created by an attach.
type Entity struct {
	DevEntry    string `plist:"dev-entry"`
	MountPoint  string `plist:"mount-point"`
	ContentHint string `plist:"content-hint"`
	VolumeKind  string `plist:"volume-kind"`
}

// Report is the decoded result of hdiutil attach -plist.
type Report struct {
	Entities []Entity `plist:"system-entities"`
}

var wholeDevPattern = regexp.MustCompile(`^/dev/disk[0-9]+$`)

// MountPoint returns the first entity mount point, if any.
func (r Report) MountPoint() string {
	for _, e := range r.Entities {
		if mp := strings.TrimSpace(e.MountPoint); mp != "" {
			return mp
		}
	}
	return ""
}

// PrimaryDevEntry returns the whole-disk device node created by the attach.
// When no entry looks like a whole disk the first entry is used.
func (r Report) PrimaryDevEntry() string {
	for _, e := range r.Entities {
		if wholeDevPattern.MatchString(strings.TrimSpace(e.DevEntry)) {
			return strings.TrimSpace(e.DevEntry)
		}
	}
	for _, e := range r.Entities {
		if dev := strings.TrimSpace(e.DevEntry); dev != "" {
			return dev
		}
	}
	return ""
}

// FilesystemEntry returns the device node whose content hint names an
// optical filesystem (ISO 9660 or UDF).
func (r Report) FilesystemEntry() (string, bool) {
	for _, e := range r.Entities {
		if IsOpticalFilesystem(e.ContentHint) || IsOpticalFilesystem(e.VolumeKind) {
			if dev := strings.TrimSpace(e.DevEntry); dev != "" {
				return dev, true
			}
		}
	}
	return "", false
}

// IsOpticalFilesystem reports whether a content hint names ISO 9660 or UDF.
func IsOpticalFilesystem(hint string) bool {
	hint = strings.ToUpper(hint)
	return strings.Contains(hint, "ISO") || strings.Contains(hint, "9660") || strings.Contains(hint, "UDF")
}

// Parse decodes an attach report.
func Parse(data []byte) (Report, error) {
	var report Report
	if _, err := plist.Unmarshal(data, &report); err != nil {
		return Report{}, fmt.Errorf("decode attach report: %w", err)
	}
	if len(report.Entities) == 0 {
		return Report{}, ErrNoEntities
	}
	return report, nil
}

// Attacher is the disk-image attach collaborator.
type Attacher interface {
	Attach(ctx context.Context, image string) (Report, error)
	Detach(ctx context.Context, target string) error
}

// Client implements Attacher by shelling out to hdiutil.
type Client struct {
	runner command.Runner
	binary string
	logger *slog.Logger
}

// New creates an hdiutil client. An empty binary defaults to "hdiutil".
func New(runner command.Runner, binary string, logger *slog.Logger) *Client {
	if strings.TrimSpace(binary) == "" {
		binary = "hdiutil"
	}
	return &Client{
		runner: runner,
		binary: binary,
		logger: logging.NewComponentLogger(logger, "hdiutil"),
	}
}

// Attach attaches image read-only without showing it in Finder.
func (c *Client) Attach(ctx context.Context, image string) (Report, error) {
	out, err := c.runner.Output(ctx, c.binary, "attach", "-plist", "-nobrowse", "-readonly", image)
	if err != nil {
		return Report{}, fmt.Errorf("attach %s: %w", image, err)
	}
	report, err := Parse(out)
	if err != nil {
		return Report{}, fmt.Errorf("attach %s: %w", image, err)
	}
	c.logger.Debug("image attached",
		logging.String("image", image),
		logging.Int("entities", len(report.Entities)),
		logging.String("primary_dev_entry", report.PrimaryDevEntry()),
	)
	return report, nil
}

// Detach detaches target, a mount path or device node. A refused detach is
// reported, not retried.
func (c *Client) Detach(ctx context.Context, target string) error {
	if err := c.runner.Run(ctx, c.binary, "detach", target); err != nil {
		return fmt.Errorf("detach %s (close any windows or shells using the image): %w", target, err)
	}
	return nil
}
