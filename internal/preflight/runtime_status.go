package preflight

import (
	"context"
	"fmt"

	"bootstick/internal/diskutil"
)

// DeviceProbe reports the removable devices currently attached.
type DeviceProbe struct {
	diskutil.Listing
	Err error
}

// ProbeDevices lists external physical devices and describes each one.
func ProbeDevices(ctx context.Context, mgr diskutil.Manager) DeviceProbe {
	listing, err := diskutil.DescribeExternal(ctx, mgr)
	return DeviceProbe{Listing: listing, Err: err}
}

// DeviceDetail renders a display-friendly summary for status UIs.
func (p DeviceProbe) DeviceDetail() string {
	var detail string
	switch {
	case p.Err != nil:
		return fmt.Sprintf("device scan failed (%v)", p.Err)
	case len(p.Listed) == 0:
		return "No external devices detected"
	case len(p.Devices) == 1:
		detail = fmt.Sprintf("1 external device (%s)", p.Devices[0].Identifier)
	default:
		detail = fmt.Sprintf("%d external devices", len(p.Devices))
	}
	if n := len(p.Undescribed); n > 0 {
		detail += fmt.Sprintf(", %d could not be described", n)
	}
	return detail
}
