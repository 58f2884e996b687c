package safety

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"bootstick/internal/diskutil"
	"bootstick/internal/fault"
)

func TestCheckAcceptsOnlyWholeExternalPhysical(t *testing.T) {
	messages := map[string]bool{}
	for _, whole := range []bool{true, false} {
		for _, internal := range []bool{true, false} {
			for _, bus := range []string{"USB", "Disk Image"} {
				info := diskutil.DeviceInfo{Identifier: "disk9", WholeDisk: whole, Internal: internal, BusProtocol: bus}
				err := Check(info)
				want := whole && !internal && bus == "USB"
				if (err == nil) != want {
					t.Fatalf("Check(%+v) = %v, want accept=%v", info, err, want)
				}
				if err != nil {
					if !errors.Is(err, fault.ErrSafety) {
						t.Fatalf("expected safety error, got %v", err)
					}
					messages[err.Error()] = true
				}
			}
		}
	}
	if len(messages) != 3 {
		t.Fatalf("expected one distinct message per clause, got %v", messages)
	}
}

func TestCheckMessages(t *testing.T) {
	cases := []struct {
		info diskutil.DeviceInfo
		want string
	}{
		{diskutil.DeviceInfo{Identifier: "disk9s1", BusProtocol: "USB"}, "partition"},
		{diskutil.DeviceInfo{Identifier: "disk0", WholeDisk: true, Internal: true, BusProtocol: "Apple Fabric"}, "internal"},
		{diskutil.DeviceInfo{Identifier: "disk5", WholeDisk: true, BusProtocol: "Disk Image"}, "disk image"},
	}
	for _, tc := range cases {
		err := Check(tc.info)
		if err == nil || !strings.Contains(err.Error(), tc.want) {
			t.Errorf("Check(%s) = %v, want message containing %q", tc.info.Identifier, err, tc.want)
		}
	}
}

type infoManager struct {
	diskutil.Manager
	info diskutil.DeviceInfo
	err  error
}

func (m infoManager) Info(context.Context, string) (diskutil.DeviceInfo, error) {
	return m.info, m.err
}

func TestValidate(t *testing.T) {
	ctx := context.Background()
	good := diskutil.DeviceInfo{Identifier: "disk9", WholeDisk: true, BusProtocol: "USB"}
	info, err := Validate(ctx, infoManager{info: good}, "disk9")
	if err != nil || info != good {
		t.Fatalf("Validate = %+v, %v", info, err)
	}

	_, err = Validate(ctx, infoManager{err: fmt.Errorf("describe: %w", diskutil.ErrUnknownDevice)}, "disk42")
	if fault.KindOf(err) != fault.KindSafety || !strings.Contains(err.Error(), "does not resolve") {
		t.Fatalf("expected unresolvable safety error, got %v", err)
	}

	_, err = Validate(ctx, infoManager{err: errors.New("diskutil crashed")}, "disk9")
	if fault.KindOf(err) != fault.KindTool {
		t.Fatalf("expected tool error, got %v", err)
	}

	_, err = Validate(ctx, infoManager{info: diskutil.DeviceInfo{Identifier: "disk0", WholeDisk: true, Internal: true}}, "disk0")
	if !errors.Is(err, fault.ErrSafety) {
		t.Fatalf("expected safety rejection, got %v", err)
	}
}
