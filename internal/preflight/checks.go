package preflight

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"bootstick/internal/config"
	"bootstick/internal/deps"
)

// CheckPlatform verifies the run happens on macOS, whose diskutil and
// hdiutil tools bootstick drives.
func CheckPlatform() Result {
	const name = "Platform"
	if goos != "darwin" {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: macOS required for diskutil and hdiutil)", goos)}
	}
	return Result{Name: name, Passed: true, Detail: "macOS"}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	return checkDirectory(name, path, unix.R_OK|unix.W_OK|unix.X_OK, "read/write ok", false)
}

// CheckReadableDirectory verifies that the directory exists and can be
// listed. Optional results do not block a run; a missing image directory only
// means candidates must be entered by hand.
func CheckReadableDirectory(name, path string, optional bool) Result {
	return checkDirectory(name, path, unix.R_OK|unix.X_OK, "readable", optional)
}

func checkDirectory(name, path string, mode uint32, okDetail string, optional bool) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Optional: optional, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Optional: optional, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Optional: optional, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, mode); err != nil {
		return Result{Name: name, Optional: optional, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Optional: optional, Passed: true, Detail: fmt.Sprintf("%s (%s)", path, okDetail)}
}

// CheckReadableFile verifies that path is a regular file the current user can read.
func CheckReadableFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%s is not a regular file", path)
	}
	if err := unix.Access(path, unix.R_OK); err != nil {
		return fmt.Errorf("%s is not readable: %w", path, err)
	}
	return nil
}

// CheckSystemDeps evaluates the external tools named in cfg. Both the run
// controller and the CLI status command use this to avoid duplicating the
// requirements list.
func CheckSystemDeps(_ context.Context, cfg *config.Config) []deps.Status {
	return deps.CheckBinaries(deps.Requirements(cfg))
}

// FromStatus converts a dependency status into a preflight result.
func FromStatus(status deps.Status) Result {
	detail := status.Command
	if !status.Available {
		detail = status.Detail
		if status.Optional {
			detail += " (optional: " + status.Description + ")"
		}
	}
	return Result{
		Name:     status.Name,
		Passed:   status.Available,
		Optional: status.Optional,
		Detail:   detail,
	}
}
