package errs

import (
	"errors"
	"testing"
)

func TestKindString(t *testing.T) {
	tests := []struct {
		kind Kind
		want string
	}{
		{KindParse, "parse"},
		{KindShellStartFailure, "shell-start-failure"},
		{KindTimeout, "timeout"},
		{KindShellDead, "shell-dead"},
		{KindHookFailure, "hook-failure"},
		{KindMatchFailure, "match-failure"},
		{Kind(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("Kind(%d).String() = %q, want %q", tt.kind, got, tt.want)
		}
	}
}

func TestErrorMessageWithoutSourceLine(t *testing.T) {
	err := New(KindShellDead, ErrShellDead)
	want := "shell-dead: shell is dead"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestErrorMessageWithCommand(t *testing.T) {
	err := New(KindTimeout, ErrTimeout).WithCommand("sleep 10", 7)
	want := "timeout: line 7: command timed out"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if err.Command != "sleep 10" || err.SourceLine != 7 {
		t.Errorf("WithCommand did not attach context: %+v", err)
	}
}

func TestErrorUnwrap(t *testing.T) {
	err := New(KindShellDead, ErrShellDead)
	if !errors.Is(err, ErrShellDead) {
		t.Error("errors.Is(err, ErrShellDead) = false, want true")
	}

	var target *Error
	if !errors.As(err, &target) {
		t.Error("errors.As did not match *Error")
	}
	if target.Kind != KindShellDead {
		t.Errorf("target.Kind = %v, want %v", target.Kind, KindShellDead)
	}
}
