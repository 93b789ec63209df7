// Package errs defines the error taxonomy shared by cliscore's parser,
// matcher, shell driver, and runner.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies the way a cliscore operation failed.
type Kind int

const (
	// KindParse means a test file could not be decoded (unreadable file or
	// unsupported suffix).
	KindParse Kind = iota
	// KindShellStartFailure means the child shell could not spawn or died
	// before announcing readiness.
	KindShellStartFailure
	// KindTimeout means a command exceeded its per-command deadline.
	KindTimeout
	// KindShellDead means a command was attempted against a shell already
	// killed by a prior timeout or fatal error.
	KindShellDead
	// KindHookFailure means a lifecycle hook exited non-zero.
	KindHookFailure
	// KindMatchFailure means captured output violated the declared
	// expectations.
	KindMatchFailure
)

// String returns the string representation of the error kind.
func (k Kind) String() string {
	switch k {
	case KindParse:
		return "parse"
	case KindShellStartFailure:
		return "shell-start-failure"
	case KindTimeout:
		return "timeout"
	case KindShellDead:
		return "shell-dead"
	case KindHookFailure:
		return "hook-failure"
	case KindMatchFailure:
		return "match-failure"
	default:
		return "unknown"
	}
}

// Sentinel errors for use with errors.Is.
var (
	// ErrShellDead is returned by Driver.Execute once the shell has been
	// killed by a timeout or a prior fatal error.
	ErrShellDead = errors.New("shell is dead")
	// ErrTimeout is returned when a command exceeds its deadline.
	ErrTimeout = errors.New("command timed out")
)

// Error wraps a lower-level error with the Kind that classifies it and
// enough context (source line, command) to render any verbosity tier
// without re-deriving it from the original call site.
type Error struct {
	Kind       Kind
	Command    string
	SourceLine int
	Err        error
}

// New constructs an Error of the given kind wrapping cause.
func New(kind Kind, cause error) *Error {
	return &Error{Kind: kind, Err: cause}
}

// WithCommand attaches command and source-line context to the error.
func (e *Error) WithCommand(command string, sourceLine int) *Error {
	e.Command = command
	e.SourceLine = sourceLine
	return e
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.SourceLine > 0 {
		return fmt.Sprintf("%s: line %d: %v", e.Kind, e.SourceLine, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

// Unwrap exposes the wrapped cause for errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.Err
}
