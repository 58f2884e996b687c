package deps

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"bootstick/internal/command"
	"bootstick/internal/logging"
	"bootstick/internal/prompt"
)

var (
	// ErrToolMissing is returned when a tool is absent and cannot be installed.
	ErrToolMissing = errors.New("required tool missing")
	// ErrInstallDeclined is returned when the operator refuses an install.
	ErrInstallDeclined = errors.New("installation declined")
)

// PackageManager installs packages.
type PackageManager interface {
	Name() string
	Install(ctx context.Context, pkg string) error
}

// Brew installs packages with Homebrew.
type Brew struct {
	runner command.Runner
	binary string
}

// NewBrew creates a Homebrew package manager. An empty binary defaults to "brew".
func NewBrew(runner command.Runner, binary string) *Brew {
	if strings.TrimSpace(binary) == "" {
		binary = "brew"
	}
	return &Brew{runner: runner, binary: binary}
}

func (b *Brew) Name() string { return b.binary }

func (b *Brew) Install(ctx context.Context, pkg string) error {
	if _, err := lookPath(b.binary); err != nil {
		return fmt.Errorf("%s not available: %w", b.binary, err)
	}
	if err := b.runner.Run(ctx, b.binary, "install", pkg); err != nil {
		return fmt.Errorf("%s install %s: %w", b.binary, pkg, err)
	}
	return nil
}

// Tool is an executable that can be installed from a package.
type Tool struct {
	Command string
	Package string
}

// Ensurer makes tools available, installing them after operator consent.
type Ensurer struct {
	Packages PackageManager
	Prompter prompt.Prompter
	Logger   *slog.Logger
}

// Ensure returns the resolved path of tool, installing its package when it is
// missing and the operator agrees. Declined, non-interactive and failed
// installs are errors.
func (e *Ensurer) Ensure(ctx context.Context, tool Tool) (string, error) {
	logger := logging.NewComponentLogger(e.Logger, "deps")
	if path, err := lookPath(tool.Command); err == nil {
		logger.Debug("tool available", logging.String("tool", tool.Command), logging.String("path", path))
		return path, nil
	}
	if e.Packages == nil {
		return "", fmt.Errorf("%s: %w", tool.Command, ErrToolMissing)
	}
	if e.Prompter == nil || !e.Prompter.Interactive() {
		logger.Info("tool missing; not installing without an operator",
			logging.Args(logging.DecisionAttrs("tool_install", "skipped", "non-interactive session")...)...,
		)
		return "", fmt.Errorf("%s: %w (install it with %s install %s)", tool.Command, ErrToolMissing, e.Packages.Name(), tool.Package)
	}

	question := fmt.Sprintf("%s is required to split the install payload. Install %s with %s?", tool.Command, tool.Package, e.Packages.Name())
	ok, err := e.Prompter.Confirm(question)
	if err != nil {
		return "", fmt.Errorf("confirm install of %s: %w", tool.Package, err)
	}
	if !ok {
		logger.Info("tool install declined", logging.Args(logging.DecisionAttrs("tool_install", "declined", "operator answered no")...)...)
		return "", fmt.Errorf("%s: %w", tool.Package, ErrInstallDeclined)
	}

	logger.Info("installing tool", logging.String("package", tool.Package), logging.String("manager", e.Packages.Name()))
	if err := e.Packages.Install(ctx, tool.Package); err != nil {
		return "", err
	}
	path, err := lookPath(tool.Command)
	if err != nil {
		return "", fmt.Errorf("%s still missing after installing %s: %w", tool.Command, tool.Package, ErrToolMissing)
	}
	return path, nil
}
