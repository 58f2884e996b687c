package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"bootstick/internal/preflight"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

const (
	statusLabelWidth = 16
	statusIndent     = "  "
)

var statusKinds = map[statusKind]struct {
	label string
	color string
}{
	statusInfo:  {"INFO", ansiBlue},
	statusOK:    {"OK", ansiGreen},
	statusWarn:  {"WARN", ansiYellow},
	statusError: {"ERROR", ansiRed},
}

// statusReport accumulates the sections printed by `bootstick status`.
type statusReport struct {
	colorize bool
	lines    []string
}

func newStatusReport(w io.Writer) *statusReport {
	return &statusReport{colorize: shouldColorize(w)}
}

func (r *statusReport) section(title string) {
	if len(r.lines) > 0 {
		r.lines = append(r.lines, "")
	}
	title = strings.TrimSpace(title)
	r.lines = append(r.lines, r.paint(ansiBlue, title), r.paint(ansiBlue, strings.Repeat("=", len(title))))
}

func (r *statusReport) add(label string, kind statusKind, message string) {
	r.lines = append(r.lines, renderStatusLine(label, kind, message, r.colorize))
}

func (r *statusReport) addResult(result preflight.Result) {
	r.add(result.Name, resultKind(result), result.Detail)
}

func (r *statusReport) paint(color, s string) string {
	if !r.colorize {
		return s
	}
	return color + s + ansiReset
}

func (r *statusReport) WriteTo(w io.Writer) (int64, error) {
	n, err := fmt.Fprintln(w, strings.Join(r.lines, "\n"))
	return int64(n), err
}

func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	meta, ok := statusKinds[kind]
	if !ok {
		meta = statusKinds[statusInfo]
	}
	text := "[" + meta.label + "]"
	if message != "" {
		text += " " + message
	}
	line := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, label+":", text)
	if colorize {
		return meta.color + line + ansiReset
	}
	return line
}

// resultKind maps a preflight result onto a status line. Optional checks that
// fail only warn.
func resultKind(r preflight.Result) statusKind {
	switch {
	case r.Passed:
		return statusOK
	case r.Optional:
		return statusWarn
	default:
		return statusError
	}
}

func probeKind(p preflight.DeviceProbe) statusKind {
	switch {
	case p.Err != nil:
		return statusError
	case len(p.Devices) == 0, !p.Complete():
		return statusWarn
	default:
		return statusOK
	}
}

func shouldColorize(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
