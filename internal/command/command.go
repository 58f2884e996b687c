// Package command runs the external tools bootstick drives and turns their
// failures into errors that carry the tool's own diagnostics.
package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"bootstick/internal/logging"
)

// Runner executes external commands.
type Runner interface {
	// Output runs name and returns its standard output.
	Output(ctx context.Context, name string, args ...string) ([]byte, error)
	// Run runs name with its output streamed to the operator.
	Run(ctx context.Context, name string, args ...string) error
}

// Error describes a failed command.
type Error struct {
	Name     string
	Args     []string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *Error) Error() string {
	detail := strings.TrimSpace(e.Stderr)
	if detail != "" {
		return fmt.Sprintf("%s: %v: %s", e.Name, e.Err, lastLine(detail))
	}
	return fmt.Sprintf("%s: %v", e.Name, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func lastLine(s string) string {
	if idx := strings.LastIndexByte(s, '\n'); idx >= 0 {
		return strings.TrimSpace(s[idx+1:])
	}
	return s
}

// Exec runs commands with os/exec.
type Exec struct {
	Logger *slog.Logger
	// Stream receives Run output; nil means stderr.
	Stream io.Writer
}

// NewExec creates an Exec runner logging under the command component.
func NewExec(logger *slog.Logger) *Exec {
	return &Exec{Logger: logging.NewComponentLogger(logger, "command")}
}

func (e *Exec) logger() *slog.Logger {
	if e == nil || e.Logger == nil {
		return logging.NewNop()
	}
	return e.Logger
}

func (e *Exec) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := e.run(cmd, name, args)
	if err != nil {
		return stdout.Bytes(), wrapError(name, args, stderr.String(), err)
	}
	return stdout.Bytes(), nil
}

func (e *Exec) Run(ctx context.Context, name string, args ...string) error {
	stream := io.Writer(os.Stderr)
	if e != nil && e.Stream != nil {
		stream = e.Stream
	}
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = stream
	cmd.Stderr = io.MultiWriter(stream, &stderr)
	if err := e.run(cmd, name, args); err != nil {
		return wrapError(name, args, stderr.String(), err)
	}
	return nil
}

func (e *Exec) run(cmd *exec.Cmd, name string, args []string) error {
	logger := e.logger()
	start := time.Now()
	logger.Debug("running command", logging.String("command", name), logging.Any("args", args))
	err := cmd.Run()
	logger.Debug("command finished",
		logging.String("command", name),
		logging.Duration("elapsed", time.Since(start)),
		logging.Bool("success", err == nil),
	)
	return err
}

func wrapError(name string, args []string, stderr string, err error) error {
	code := -1
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code = exitErr.ExitCode()
	}
	return &Error{Name: name, Args: args, ExitCode: code, Stderr: stderr, Err: err}
}

// Func adapts a pair of functions into a Runner. Nil functions succeed with
// no output.
type Func struct {
	OutputFunc func(ctx context.Context, name string, args ...string) ([]byte, error)
	RunFunc    func(ctx context.Context, name string, args ...string) error
}

func (f Func) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	if f.OutputFunc == nil {
		return nil, nil
	}
	return f.OutputFunc(ctx, name, args...)
}

func (f Func) Run(ctx context.Context, name string, args ...string) error {
	if f.RunFunc == nil {
		return nil
	}
	return f.RunFunc(ctx, name, args...)
}
