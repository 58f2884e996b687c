package imagemount

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"bootstick/internal/fault"
	"bootstick/internal/hdiutil"
	"bootstick/internal/mounttable"
	"bootstick/internal/testsupport"
)

type mountTable map[string]string

func (m mountTable) lookup(device string) (string, error) {
	if mp, ok := m[device]; ok {
		return mp, nil
	}
	return "", fmt.Errorf("%s: %w", device, mounttable.ErrNotMounted)
}

func newAdapter(report hdiutil.Report, table mountTable) (*Adapter, *testsupport.FakeAttacher, *testsupport.FakeDevices, *testsupport.Journal) {
	journal := &testsupport.Journal{}
	attacher := &testsupport.FakeAttacher{Journal: journal, Report: report}
	devices := testsupport.NewFakeDevices()
	devices.Journal = journal
	return &Adapter{Attacher: attacher, Devices: devices, Lookup: table.lookup}, attacher, devices, journal
}

func TestMountDirectMountPoint(t *testing.T) {
	dir := t.TempDir()
	report := hdiutil.Report{Entities: []hdiutil.Entity{
		{DevEntry: "/dev/disk6"},
		{DevEntry: "/dev/disk6s1", MountPoint: dir, ContentHint: "Apple_HFS"},
	}}
	a, _, _, journal := newAdapter(report, mountTable{})

	res, err := a.Mount(context.Background(), "/tmp/win.iso")
	if err != nil {
		t.Fatalf("Mount: %v", err)
	}
	if res.Path != dir || res.Strategy != StrategyDirect || res.DevEntry != "/dev/disk6" {
		t.Fatalf("unexpected result %+v", res)
	}
	if journal.Count("mountDisk") != 0 || journal.Count("mount") != 0 {
		t.Fatalf("fallback strategies invoked: %v", journal.Calls())
	}
}

func TestMountFallsBackToDevEntry(t *testing.T) {
	dir := t.TempDir()
	report := hdiutil.Report{Entities: []hdiutil.Entity{{DevEntry: "/dev/disk6"}}}
	a, _, _, journal := newAdapter(report, mountTable{"/dev/disk6": dir})

	res, err := a.Mount(context.Background(), "/tmp/win.iso")
	if err != nil {
		t.Fatalf("Mount: %v", err)
	}
	if res.Path != dir || res.Strategy != StrategyDevEntry {
		t.Fatalf("unexpected result %+v", res)
	}
	if journal.Count("mountDisk") != 1 || journal.Count("mount") != 0 {
		t.Fatalf("unexpected calls: %v", journal.Calls())
	}
}

func TestMountFallsBackToFilesystemEntry(t *testing.T) {
	dir := t.TempDir()
	report := hdiutil.Report{Entities: []hdiutil.Entity{
		{DevEntry: "/dev/disk6", ContentHint: "FDisk_partition_scheme"},
		{DevEntry: "/dev/disk6s1", ContentHint: "ISO9660"},
	}}
	a, _, _, journal := newAdapter(report, mountTable{"/dev/disk6s1": dir})
	// The whole-disk lookup finds nothing, so only the filesystem entry resolves.
	a.Lookup = func(device string) (string, error) {
		if device == "/dev/disk6s1" {
			return dir, nil
		}
		return "", mounttable.ErrNotMounted
	}

	res, err := a.Mount(context.Background(), "/tmp/win.iso")
	if err != nil {
		t.Fatalf("Mount: %v", err)
	}
	if res.Path != dir || res.Strategy != StrategyFilesystem {
		t.Fatalf("unexpected result %+v", res)
	}
	calls := strings.Join(journal.Calls(), ";")
	if !strings.Contains(calls, "mountDisk /dev/disk6;mount /dev/disk6s1") {
		t.Fatalf("strategies ran out of order: %s", calls)
	}
}

func TestMountSkipsUnverifiedDirectMountPoint(t *testing.T) {
	dir := t.TempDir()
	report := hdiutil.Report{Entities: []hdiutil.Entity{{DevEntry: "/dev/disk6", MountPoint: "/nonexistent/mount"}}}
	a, _, _, _ := newAdapter(report, mountTable{"/dev/disk6": dir})

	res, err := a.Mount(context.Background(), "/tmp/win.iso")
	if err != nil || res.Path != dir || res.Strategy != StrategyDevEntry {
		t.Fatalf("expected dev entry fallback, got %+v %v", res, err)
	}
}

func TestMountExhaustedIsFatalAndDetaches(t *testing.T) {
	report := hdiutil.Report{Entities: []hdiutil.Entity{{DevEntry: "/dev/disk6", ContentHint: "Apple_partition_scheme"}}}
	a, attacher, _, _ := newAdapter(report, mountTable{})

	_, err := a.Mount(context.Background(), "/tmp/win.iso")
	if !errors.Is(err, fault.ErrTool) || !strings.Contains(err.Error(), "corrupt or unsupported") {
		t.Fatalf("expected tool error, got %v", err)
	}
	if len(attacher.Detached) != 1 || attacher.Detached[0] != "/dev/disk6" {
		t.Fatalf("expected detach of primary entry, got %v", attacher.Detached)
	}
}

func TestMountAttachFailure(t *testing.T) {
	a, _, _, journal := newAdapter(hdiutil.Report{}, mountTable{})
	a.Attacher.(*testsupport.FakeAttacher).AttachErr = errors.New("image not recognized")

	_, err := a.Mount(context.Background(), "/tmp/win.iso")
	if !errors.Is(err, fault.ErrTool) || !strings.Contains(err.Error(), "image not recognized") {
		t.Fatalf("expected attach tool error, got %v", err)
	}
	if journal.Count("mountDisk") != 0 {
		t.Fatalf("mount attempted after attach failure: %v", journal.Calls())
	}
}

func TestDetachPrefersMountPath(t *testing.T) {
	a, attacher, _, _ := newAdapter(hdiutil.Report{}, mountTable{})
	if err := a.Detach(context.Background(), Result{Path: "/Volumes/CCCOMA", DevEntry: "/dev/disk6"}); err != nil {
		t.Fatalf("Detach: %v", err)
	}
	if err := a.Detach(context.Background(), Result{DevEntry: "/dev/disk7"}); err != nil {
		t.Fatalf("Detach: %v", err)
	}
	if got := strings.Join(attacher.Detached, ","); got != "/Volumes/CCCOMA,/dev/disk7" {
		t.Fatalf("unexpected detach targets %q", got)
	}
}
