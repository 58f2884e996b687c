// Package fault classifies fatal run errors so the CLI can report them with a
// single diagnostic line and tests can assert on the failure category.
package fault

import (
	"errors"
	"fmt"
	"strings"
)

// Kind names a failure category.
type Kind string

const (
	// KindInput covers malformed selections, unreadable images and missing devices.
	KindInput Kind = "input"
	// KindSafety covers targets that must never be erased.
	KindSafety Kind = "safety"
	// KindTool covers failing or missing external collaborators.
	KindTool Kind = "tool"
	// KindContent covers images that lack a usable layout or payload.
	KindContent Kind = "content"
	// KindInterrupted covers runs cancelled by a signal.
	KindInterrupted Kind = "interrupted"
)

// Markers usable with errors.Is.
var (
	ErrInput       = errors.New("input error")
	ErrSafety      = errors.New("safety error")
	ErrTool        = errors.New("external tool error")
	ErrContent     = errors.New("content error")
	ErrInterrupted = errors.New("run interrupted")
)

// ErrorClassifier allows errors to declare their classification.
type ErrorClassifier interface {
	ErrorKind() string
}

// Error is a classified fatal error.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	msg := strings.TrimSpace(e.Msg)
	switch {
	case msg == "" && e.Err == nil:
		return string(e.Kind) + " failure"
	case msg == "":
		return e.Err.Error()
	case e.Err == nil:
		return msg
	default:
		return msg + ": " + e.Err.Error()
	}
}

func (e *Error) Unwrap() error { return e.Err }

// ErrorKind implements ErrorClassifier.
func (e *Error) ErrorKind() string { return string(e.Kind) }

// Is matches the marker for the error's kind.
func (e *Error) Is(target error) bool {
	return target != nil && target == marker(e.Kind)
}

func marker(kind Kind) error {
	switch kind {
	case KindInput:
		return ErrInput
	case KindSafety:
		return ErrSafety
	case KindTool:
		return ErrTool
	case KindContent:
		return ErrContent
	case KindInterrupted:
		return ErrInterrupted
	}
	return nil
}

// New builds a classified error.
func New(kind Kind, msg string, err error) error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// Input builds an input error from a format string.
func Input(format string, args ...any) error {
	return &Error{Kind: KindInput, Msg: fmt.Sprintf(format, args...)}
}

// Safety builds a safety error from a format string.
func Safety(format string, args ...any) error {
	return &Error{Kind: KindSafety, Msg: fmt.Sprintf(format, args...)}
}

// Content builds a content error from a format string.
func Content(format string, args ...any) error {
	return &Error{Kind: KindContent, Msg: fmt.Sprintf(format, args...)}
}

// Tool wraps a collaborator failure.
func Tool(msg string, err error) error {
	return &Error{Kind: KindTool, Msg: msg, Err: err}
}

// Interrupted wraps a context cancellation.
func Interrupted(err error) error {
	return &Error{Kind: KindInterrupted, Msg: "run interrupted", Err: err}
}

// KindOf reports the classification of err. Unclassified errors are treated
// as tool failures since every other category is raised explicitly.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var classifier ErrorClassifier
	if errors.As(err, &classifier) {
		return Kind(classifier.ErrorKind())
	}
	return KindTool
}
