// Package deps reports which external tools are available and installs the
// on-demand split tool through the package manager when the operator agrees.
package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"bootstick/internal/config"
)

// lookPath resolves executables. It is a package-level variable so tests can
// simulate missing or freshly installed tools.
var lookPath = exec.LookPath

// Requirement defines an external dependency bootstick relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// Requirements lists the tools named in cfg. The split tool and package
// manager are optional because a run only needs them for split payloads.
func Requirements(cfg *config.Config) []Requirement {
	return []Requirement{
		{Name: "diskutil", Command: cfg.Tools.Diskutil, Description: "Describes, erases and ejects devices"},
		{Name: "hdiutil", Command: cfg.Tools.Hdiutil, Description: "Attaches the installation image"},
		{Name: "rsync", Command: cfg.Tools.Rsync, Description: "Copies image contents"},
		{Name: "wimlib", Command: cfg.Tools.Wimlib, Description: "Splits oversized install.wim payloads", Optional: true},
		{Name: "Package manager", Command: cfg.Tools.PackageManager, Description: "Installs wimlib on demand", Optional: true},
	}
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		if _, err := lookPath(cmd); err != nil {
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Available = true
		results = append(results, status)
	}
	return results
}
