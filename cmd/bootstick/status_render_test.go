package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"bootstick/internal/config"
	"bootstick/internal/diskutil"
	"bootstick/internal/preflight"
)

func TestRenderStatusLine(t *testing.T) {
	got := renderStatusLine("rsync", statusOK, "/usr/bin/rsync", false)
	if got != "  rsync:"+strings.Repeat(" ", 11)+"[OK] /usr/bin/rsync" {
		t.Fatalf("unexpected line %q", got)
	}
	colored := renderStatusLine("rsync", statusError, "", true)
	if !strings.HasPrefix(colored, ansiRed) || !strings.HasSuffix(colored, ansiReset) {
		t.Fatalf("expected red line, got %q", colored)
	}
}

func TestResultKind(t *testing.T) {
	cases := []struct {
		result preflight.Result
		want   statusKind
	}{
		{preflight.Result{Passed: true}, statusOK},
		{preflight.Result{Optional: true}, statusWarn},
		{preflight.Result{}, statusError},
	}
	for _, tc := range cases {
		if got := resultKind(tc.result); got != tc.want {
			t.Errorf("resultKind(%+v) = %v, want %v", tc.result, got, tc.want)
		}
	}
}

func TestStatusReportSections(t *testing.T) {
	cfg := config.Default()
	cfg.Device.ID = "disk4"

	var buf bytes.Buffer
	report := newStatusReport(&buf)
	report.section("Run")
	addOverrides(report, &cfg)
	report.section("Devices")
	report.add("Devices", probeKind(preflight.DeviceProbe{}), "none")
	if _, err := report.WriteTo(&buf); err != nil {
		t.Fatalf("write: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"Run\n===\n", "disk4", "latest or chosen from", "WIN11 (MBR)", "Auto:", "\n\nDevices\n", "[WARN] none"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
	if strings.Contains(out, ansiReset) {
		t.Fatal("buffer output must not be colourised")
	}
}

func TestProbeKind(t *testing.T) {
	if got := probeKind(preflight.DeviceProbe{Err: errors.New("boom")}); got != statusError {
		t.Fatalf("error probe = %v", got)
	}
	populated := preflight.DeviceProbe{Listing: diskutil.Listing{Listed: []string{"disk4"}, Devices: make([]diskutil.DeviceInfo, 1)}}
	if got := probeKind(populated); got != statusOK {
		t.Fatalf("populated probe = %v", got)
	}
	populated.Undescribed = []diskutil.Undescribed{{ID: "disk5", Err: errors.New("busy")}}
	if got := probeKind(populated); got != statusWarn {
		t.Fatalf("partially described probe = %v", got)
	}
}

func TestShouldColorizeBuffer(t *testing.T) {
	if shouldColorize(&bytes.Buffer{}) {
		t.Fatal("buffers are never terminals")
	}
}
