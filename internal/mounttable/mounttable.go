// Package mounttable answers where a device node is mounted by reading the
// live mount table of the running system.
package mounttable

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"
)

// ErrNotMounted is returned when no mounted filesystem matches the request.
var ErrNotMounted = errors.New("not mounted")

// Entry is one mounted filesystem.
type Entry struct {
	Device     string
	MountPoint string
	FSType     string
}

// readEntries returns the current mount table. It is a package-level
// variable so tests can replace it with a fixture.
var readEntries = systemEntries

// Entries returns the current mount table.
func Entries() ([]Entry, error) {
	return readEntries()
}

// Lookup returns the mount point of device or, when the device itself is not
// mounted, of the first mounted slice or partition that belongs to it.
func Lookup(device string) (string, error) {
	device = strings.TrimSpace(device)
	if device == "" {
		return "", fmt.Errorf("lookup mount: empty device: %w", ErrNotMounted)
	}
	entries, err := readEntries()
	if err != nil {
		return "", err
	}
	for _, e := range entries {
		if sameDevice(device, e.Device) {
			return e.MountPoint, nil
		}
	}
	for _, e := range entries {
		if isChildOf(device, e.Device) {
			return e.MountPoint, nil
		}
	}
	return "", fmt.Errorf("lookup mount for %s: %w", device, ErrNotMounted)
}

// DeviceAt returns the device mounted at mountPoint.
func DeviceAt(mountPoint string) (string, error) {
	entries, err := readEntries()
	if err != nil {
		return "", err
	}
	target := filepath.Clean(mountPoint)
	for _, e := range entries {
		if filepath.Clean(e.MountPoint) == target {
			return e.Device, nil
		}
	}
	return "", fmt.Errorf("lookup device at %s: %w", mountPoint, ErrNotMounted)
}

func sameDevice(a, b string) bool {
	if a == b {
		return true
	}
	return deviceName(a) == deviceName(b)
}

var (
	sliceSuffix     = regexp.MustCompile(`^[sp][0-9]+$`)
	partitionSuffix = regexp.MustCompile(`^[0-9]+$`)
)

// isChildOf reports whether candidate names a slice of parent, e.g.
// disk5s1 of disk5 or sdb1 of sdb. A parent ending in a digit needs an
// s or p separator so disk50 is never taken for a slice of disk5.
func isChildOf(parent, candidate string) bool {
	p, c := deviceName(parent), deviceName(candidate)
	if p == "" || c == p || !strings.HasPrefix(c, p) {
		return false
	}
	suffix := c[len(p):]
	last := p[len(p)-1]
	if last >= '0' && last <= '9' {
		return sliceSuffix.MatchString(suffix)
	}
	return partitionSuffix.MatchString(suffix)
}

func deviceName(dev string) string {
	dev = strings.TrimSpace(dev)
	if !strings.HasPrefix(dev, "/dev/") {
		if strings.Contains(dev, "/") {
			return ""
		}
		return dev
	}
	return strings.TrimPrefix(dev, "/dev/")
}

// parseMounts reads the fstab-style layout of /proc/mounts.
func parseMounts(r io.Reader) ([]Entry, error) {
	var entries []Entry
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}
		entry := Entry{
			Device:     decodeMountField(fields[0]),
			MountPoint: decodeMountField(fields[1]),
		}
		if len(fields) > 2 {
			entry.FSType = fields[2]
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan mounts: %w", err)
	}
	return entries, nil
}

func decodeMountField(field string) string {
	replacer := strings.NewReplacer(
		"\\040", " ",
		"\\011", "\t",
		"\\012", "\n",
		"\\134", "\\",
	)
	return replacer.Replace(field)
}
