// Package safety decides whether a device may be erased. Every target,
// whether picked from a menu or supplied by override, passes through
// Validate before anything destructive happens.
package safety

import (
	"context"
	"errors"
	"fmt"

	"bootstick/internal/diskutil"
	"bootstick/internal/fault"
)

// Check accepts info only when it describes a whole, external, physical
// device. Each rejected clause has its own message.
func Check(info diskutil.DeviceInfo) error {
	id := info.Identifier
	switch {
	case !info.WholeDisk:
		return fault.Safety("%s is a partition or slice, not a whole device", id)
	case info.Internal:
		return fault.Safety("%s is an internal device; only external media can be erased", id)
	case info.IsDiskImage():
		return fault.Safety("%s is backed by a disk image (bus %q), not physical media", id, info.BusProtocol)
	}
	return nil
}

// Validate describes id through mgr and applies Check.
func Validate(ctx context.Context, mgr diskutil.Manager, id string) (diskutil.DeviceInfo, error) {
	info, err := mgr.Info(ctx, id)
	if err != nil {
		if errors.Is(err, diskutil.ErrUnknownDevice) {
			return diskutil.DeviceInfo{}, fault.New(fault.KindSafety, fmt.Sprintf("device %q does not resolve to any attached device", id), err)
		}
		return diskutil.DeviceInfo{}, fault.Tool(fmt.Sprintf("describe device %q", id), err)
	}
	if err := Check(info); err != nil {
		return diskutil.DeviceInfo{}, err
	}
	return info, nil
}
