package shell

import (
	"strings"
	"testing"
)

func TestBuildFramedScriptNoExit(t *testing.T) {
	script := buildFramedScript("echo hi", "OUT_SENTINEL", "ERR_SENTINEL")
	if strings.Contains(script, "(echo hi)") {
		t.Errorf("script wrapped a command with no exit token: %q", script)
	}
	if !strings.Contains(script, "echo hi\n") {
		t.Errorf("script missing command body: %q", script)
	}
	if !strings.Contains(script, `echo "OUT_SENTINEL:$__E"`) {
		t.Errorf("script missing stdout sentinel echo: %q", script)
	}
	if !strings.Contains(script, `echo "ERR_SENTINEL" 1>&2`) {
		t.Errorf("script missing stderr sentinel echo: %q", script)
	}
}

func TestBuildFramedScriptWrapsExit(t *testing.T) {
	script := buildFramedScript("exit 1", "OUT", "ERR")
	if !strings.Contains(script, "(exit 1)") {
		t.Errorf("script should wrap a command containing exit: %q", script)
	}
}

func TestBuildFramedScriptDoesNotWrapExitSubstring(t *testing.T) {
	script := buildFramedScript("echo exitcode", "OUT", "ERR")
	if strings.Contains(script, "(echo exitcode)") {
		t.Errorf("script should not treat 'exitcode' as the exit builtin: %q", script)
	}
}

func TestContainsExitTokenFallbackOnParseFailure(t *testing.T) {
	if !containsExitToken("exit 1 <<") {
		t.Errorf("expected fallback regexp to still detect a word-boundaried exit")
	}
}

func TestContainsExitTokenInsideConditional(t *testing.T) {
	if !containsExitToken("false || exit 2") {
		t.Errorf("expected containsExitToken to find exit inside a binary command")
	}
}

func TestDrainFramedSplitsStdoutAndStderr(t *testing.T) {
	stdoutR, stdoutW := pipePair(t)
	stderrR, stderrW := pipePair(t)

	go func() {
		stdoutW.Write([]byte("first\nsecond\nSTDOUT_SEN:0\n"))
		stdoutW.Close()
	}()
	go func() {
		stderrW.Write([]byte("oops\nSTDERR_SEN\n"))
		stderrW.Close()
	}()

	fr := drainFramed(newLineReader(stdoutR), newLineReader(stderrR), "STDOUT_SEN", "STDERR_SEN")
	if len(fr.stdout) != 2 || fr.stdout[0] != "first" || fr.stdout[1] != "second" {
		t.Errorf("stdout = %v", fr.stdout)
	}
	if fr.exitStatus != 0 {
		t.Errorf("exitStatus = %d, want 0", fr.exitStatus)
	}
	if fr.stdoutNoEol {
		t.Errorf("stdoutNoEol = true, want false")
	}
	if len(fr.stderr) != 1 || fr.stderr[0] != "oops" {
		t.Errorf("stderr = %v", fr.stderr)
	}
}

func TestDrainFramedDetectsNoTrailingNewline(t *testing.T) {
	stdoutR, stdoutW := pipePair(t)
	stderrR, stderrW := pipePair(t)

	go func() {
		stdoutW.Write([]byte("lastSTDOUT_SEN:3\n"))
		stdoutW.Close()
	}()
	go func() {
		stderrW.Write([]byte("STDERR_SEN\n"))
		stderrW.Close()
	}()

	fr := drainFramed(newLineReader(stdoutR), newLineReader(stderrR), "STDOUT_SEN", "STDERR_SEN")
	if len(fr.stdout) != 1 || fr.stdout[0] != "last" {
		t.Errorf("stdout = %v", fr.stdout)
	}
	if !fr.stdoutNoEol {
		t.Errorf("stdoutNoEol = false, want true")
	}
	if fr.exitStatus != 3 {
		t.Errorf("exitStatus = %d, want 3", fr.exitStatus)
	}
}
