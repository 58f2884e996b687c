//go:build !darwin

package mounttable

import (
	"fmt"
	"os"
)

func systemEntries() ([]Entry, error) {
	f, err := os.Open("/proc/mounts")
	if err != nil {
		return nil, fmt.Errorf("open mounts: %w", err)
	}
	defer f.Close()
	return parseMounts(f)
}
