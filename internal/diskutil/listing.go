package diskutil

import "context"

// Undescribed records a listed device whose Info call failed.
type Undescribed struct {
	ID  string
	Err error
}

// Listing is the result of listing external physical devices and describing
// each one. Listed keeps the raw identifiers so callers can tell how many
// devices are attached even when some cannot be described.
type Listing struct {
	Listed      []string
	Devices     []DeviceInfo
	Undescribed []Undescribed
}

// Complete reports whether every listed device was described.
func (l Listing) Complete() bool {
	return len(l.Undescribed) == 0
}

// DescribeExternal lists external physical devices and describes each one.
// A listing failure is returned as is; describe failures are collected.
func DescribeExternal(ctx context.Context, mgr Manager) (Listing, error) {
	ids, err := mgr.ListExternalPhysical(ctx)
	if err != nil {
		return Listing{}, err
	}
	l := Listing{Listed: ids}
	for _, id := range ids {
		info, err := mgr.Info(ctx, id)
		if err != nil {
			l.Undescribed = append(l.Undescribed, Undescribed{ID: id, Err: err})
			continue
		}
		l.Devices = append(l.Devices, info)
	}
	return l, nil
}
