package testsupport

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"bootstick/internal/diskutil"
	"bootstick/internal/hdiutil"
)

// Journal records collaborator calls in order across fakes.
type Journal struct {
	mu    sync.Mutex
	calls []string
}

// Record appends a call. A nil Journal ignores the call.
func (j *Journal) Record(name string, args ...string) {
	if j == nil {
		return
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	j.calls = append(j.calls, strings.TrimSpace(name+" "+strings.Join(args, " ")))
}

// Calls returns a copy of the recorded calls.
func (j *Journal) Calls() []string {
	if j == nil {
		return nil
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	return slices.Clone(j.calls)
}

// Count returns how many recorded calls start with name.
func (j *Journal) Count(name string) int {
	n := 0
	for _, c := range j.Calls() {
		if c == name || strings.HasPrefix(c, name+" ") {
			n++
		}
	}
	return n
}

// EraseCall captures one EraseDisk invocation.
type EraseCall struct {
	ID, Format, Label, Scheme string
}

// FakeDevices is an in-memory diskutil.Manager.
type FakeDevices struct {
	Journal *Journal

	External []string
	Infos    map[string]diskutil.DeviceInfo

	ListErr      error
	UnmountErr   error
	EraseErr     error
	MountDiskErr error
	MountErr     error
	EjectErr     error

	Erased []EraseCall
	// OnMount runs after a successful MountDisk or Mount.
	OnMount func(id string)
}

// NewFakeDevices registers infos as attached; external ones are listed.
func NewFakeDevices(infos ...diskutil.DeviceInfo) *FakeDevices {
	f := &FakeDevices{Infos: map[string]diskutil.DeviceInfo{}}
	for _, info := range infos {
		f.Infos[info.Identifier] = info
		if !info.Internal && info.WholeDisk {
			f.External = append(f.External, info.Identifier)
		}
	}
	return f
}

// USBDevice returns a whole external USB device record.
func USBDevice(id string, size int64) diskutil.DeviceInfo {
	return diskutil.DeviceInfo{
		Identifier:  id,
		Node:        "/dev/" + id,
		WholeDisk:   true,
		BusProtocol: "USB",
		SizeBytes:   size,
		MediaName:   "SanDisk Ultra",
	}
}

func (f *FakeDevices) ListExternalPhysical(context.Context) ([]string, error) {
	f.Journal.Record("list")
	return slices.Clone(f.External), f.ListErr
}

func (f *FakeDevices) Info(_ context.Context, id string) (diskutil.DeviceInfo, error) {
	f.Journal.Record("info", id)
	info, ok := f.Infos[id]
	if !ok {
		return diskutil.DeviceInfo{}, fmt.Errorf("%s: %w", id, diskutil.ErrUnknownDevice)
	}
	return info, nil
}

func (f *FakeDevices) UnmountDisk(_ context.Context, id string) error {
	f.Journal.Record("unmountDisk", id)
	return f.UnmountErr
}

func (f *FakeDevices) EraseDisk(_ context.Context, id, format, label, scheme string) error {
	f.Journal.Record("eraseDisk", id, format, label, scheme)
	f.Erased = append(f.Erased, EraseCall{ID: id, Format: format, Label: label, Scheme: scheme})
	return f.EraseErr
}

func (f *FakeDevices) MountDisk(_ context.Context, id string) error {
	f.Journal.Record("mountDisk", id)
	if f.MountDiskErr != nil {
		return f.MountDiskErr
	}
	if f.OnMount != nil {
		f.OnMount(id)
	}
	return nil
}

func (f *FakeDevices) Mount(_ context.Context, id string) error {
	f.Journal.Record("mount", id)
	if f.MountErr != nil {
		return f.MountErr
	}
	if f.OnMount != nil {
		f.OnMount(id)
	}
	return nil
}

func (f *FakeDevices) Eject(_ context.Context, id string) error {
	f.Journal.Record("eject", id)
	return f.EjectErr
}

// FakeAttacher is an in-memory hdiutil.Attacher returning a fixed report.
type FakeAttacher struct {
	Journal *Journal

	Report    hdiutil.Report
	AttachErr error
	DetachErr error

	Detached []string
}

func (f *FakeAttacher) Attach(_ context.Context, image string) (hdiutil.Report, error) {
	f.Journal.Record("attach", image)
	if f.AttachErr != nil {
		return hdiutil.Report{}, f.AttachErr
	}
	return f.Report, nil
}

func (f *FakeAttacher) Detach(_ context.Context, target string) error {
	f.Journal.Record("detach", target)
	f.Detached = append(f.Detached, target)
	return f.DetachErr
}

// CopyCall captures one bulk copy.
type CopyCall struct {
	Src, Dst string
	Excludes []string
}

// FakeCopier records bulk copies.
type FakeCopier struct {
	Journal *Journal
	Err     error
	Calls   []CopyCall
}

func (f *FakeCopier) Copy(_ context.Context, src, dst string, excludes []string) error {
	f.Journal.Record("copy", src, dst, strings.Join(excludes, ","))
	f.Calls = append(f.Calls, CopyCall{Src: src, Dst: dst, Excludes: slices.Clone(excludes)})
	return f.Err
}

// SplitCall captures one split.
type SplitCall struct {
	Src, Dst string
	ChunkMiB int
}

// FakeSplitter records splits.
type FakeSplitter struct {
	Journal *Journal
	Err     error
	Calls   []SplitCall
}

func (f *FakeSplitter) Split(_ context.Context, src, dst string, chunkMiB int) error {
	f.Journal.Record("split", src, dst, fmt.Sprint(chunkMiB))
	f.Calls = append(f.Calls, SplitCall{Src: src, Dst: dst, ChunkMiB: chunkMiB})
	return f.Err
}

// FakePackages records package installs.
type FakePackages struct {
	Journal   *Journal
	Err       error
	Installed []string
	// OnInstall runs after a successful install.
	OnInstall func(pkg string)
}

func (f *FakePackages) Name() string { return "fakebrew" }

func (f *FakePackages) Install(_ context.Context, pkg string) error {
	f.Journal.Record("install", pkg)
	if f.Err != nil {
		return f.Err
	}
	f.Installed = append(f.Installed, pkg)
	if f.OnInstall != nil {
		f.OnInstall(pkg)
	}
	return nil
}
