package mounttable

import (
	"fmt"
	"path/filepath"

	"golang.org/x/sys/unix"
)

func systemEntries() ([]Entry, error) {
	n, err := unix.Getfsstat(nil, unix.MNT_NOWAIT)
	if err != nil {
		return nil, fmt.Errorf("count mounts: %w", err)
	}
	if n <= 0 {
		return nil, nil
	}
	buf := make([]unix.Statfs_t, n)
	n, err = unix.Getfsstat(buf, unix.MNT_NOWAIT)
	if err != nil {
		return nil, fmt.Errorf("read mounts: %w", err)
	}
	entries := make([]Entry, 0, n)
	for _, st := range buf[:n] {
		entries = append(entries, Entry{
			Device:     unix.ByteSliceToString(st.Mntfromname[:]),
			MountPoint: filepath.Clean(unix.ByteSliceToString(st.Mntonname[:])),
			FSType:     unix.ByteSliceToString(st.Fstypename[:]),
		})
	}
	return entries, nil
}
