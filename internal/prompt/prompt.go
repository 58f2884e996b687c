// Package prompt carries every question bootstick asks the operator. The
// Prompter interface is satisfied by a terminal implementation for real runs
// and a scripted one that feeds canned answers in tests and automation.
package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

// ErrNotInteractive is returned when a question needs an answer and no
// operator can give one.
var ErrNotInteractive = errors.New("no interactive terminal available")

// Prompter asks the operator questions.
type Prompter interface {
	// Interactive reports whether a human can answer questions.
	Interactive() bool
	Println(a ...any)
	Ask(question string) (string, error)
	Confirm(question string) (bool, error)
}

// Terminal is a Prompter backed by a reader and writer, normally /dev/tty.
type Terminal struct {
	in          *bufio.Reader
	out         io.Writer
	interactive bool
}

// NewTerminal creates a Terminal over explicit streams.
func NewTerminal(in io.Reader, out io.Writer, interactive bool) *Terminal {
	return &Terminal{in: bufio.NewReader(in), out: out, interactive: interactive}
}

// OpenTTY opens the controlling terminal. When none exists the returned
// Terminal is non-interactive and every question fails with
// ErrNotInteractive. The closer releases the terminal handle.
func OpenTTY() (*Terminal, io.Closer) {
	tty, err := os.OpenFile("/dev/tty", os.O_RDWR, 0)
	if err == nil {
		if isTerminal(tty.Fd()) {
			return NewTerminal(tty, tty, true), tty
		}
		_ = tty.Close()
	}
	return NewTerminal(os.Stdin, os.Stderr, isTerminal(os.Stdin.Fd())), nopCloser{}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func isTerminal(fd uintptr) bool {
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func (t *Terminal) Interactive() bool { return t.interactive }

func (t *Terminal) Println(a ...any) {
	fmt.Fprintln(t.out, a...)
}

func (t *Terminal) Ask(question string) (string, error) {
	if !t.interactive {
		return "", fmt.Errorf("%s: %w", strings.TrimSpace(question), ErrNotInteractive)
	}
	fmt.Fprint(t.out, question)
	text, err := t.in.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && text != "" {
			return strings.TrimSpace(text), nil
		}
		return "", fmt.Errorf("read answer: %w", err)
	}
	return strings.TrimSpace(text), nil
}

func (t *Terminal) Confirm(question string) (bool, error) {
	ans, err := t.Ask(fmt.Sprintf("%s (yes/no): ", question))
	if err != nil {
		return false, err
	}
	return IsYes(ans), nil
}

// IsYes reports whether an answer accepts a yes/no question.
func IsYes(answer string) bool {
	ans := strings.ToLower(strings.TrimSpace(answer))
	return ans == "y" || ans == "yes"
}
