package resolve

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/text/cases"

	"bootstick/internal/diskutil"
	"bootstick/internal/fault"
)

// ImageExtension is matched case-insensitively against candidate names.
const ImageExtension = ".iso"

// ImageCandidate is one image file found during a scan.
type ImageCandidate struct {
	Path    string
	ModTime time.Time
	Size    int64
}

// ScanImages lists image files in dir in lexical name order. A missing
// directory yields no candidates.
func ScanImages(dir string) ([]ImageCandidate, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan image directory %s: %w", dir, err)
	}
	fold := cases.Fold()
	want := fold.String(ImageExtension)
	var out []ImageCandidate
	for _, entry := range entries {
		if fold.String(filepath.Ext(entry.Name())) != want {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		out = append(out, ImageCandidate{Path: path, ModTime: info.ModTime(), Size: info.Size()})
	}
	return out, nil
}

// LatestImage returns the candidate with the greatest modification time.
// Ties resolve to the candidate that appears last in cands, which for
// ScanImages output is the lexically greatest name.
func LatestImage(cands []ImageCandidate) (ImageCandidate, bool) {
	if len(cands) == 0 {
		return ImageCandidate{}, false
	}
	best := cands[0]
	for _, c := range cands[1:] {
		if !c.ModTime.Before(best.ModTime) {
			best = c
		}
	}
	return best, true
}

// AutoPickDevice returns the only device when auto is set and exactly one
// device is listed and described. Nothing listed is fatal, as is a listing
// where no device could be described; otherwise the caller must prompt.
func AutoPickDevice(l diskutil.Listing, auto bool) (diskutil.DeviceInfo, bool, error) {
	switch {
	case len(l.Listed) == 0:
		return diskutil.DeviceInfo{}, false, fault.Input("no eligible device found; attach a USB drive and retry")
	case len(l.Devices) == 0:
		return diskutil.DeviceInfo{}, false, fault.Tool("could not describe any external device", l.Undescribed[0].Err)
	case auto && len(l.Listed) == 1 && len(l.Devices) == 1:
		return l.Devices[0], true, nil
	default:
		return diskutil.DeviceInfo{}, false, nil
	}
}
