package shell

import (
	"context"
	"testing"
	"time"
)

func TestDriverLifecycleStates(t *testing.T) {
	d := New("/bin/sh", nil)
	if d.State() != StateNew {
		t.Fatalf("initial state = %s, want new", d.State())
	}
	if err := d.Start(context.Background(), ""); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if d.State() != StateReady {
		t.Fatalf("state after Start = %s, want ready", d.State())
	}
	if err := d.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if d.State() != StateClosed {
		t.Fatalf("state after Close = %s, want closed", d.State())
	}
}

func TestDriverExecuteReturnsShellDeadAfterClose(t *testing.T) {
	d := New("/bin/sh", nil)
	if err := d.Start(context.Background(), ""); err != nil {
		t.Fatalf("Start: %v", err)
	}
	d.Close()
	res := d.Execute(context.Background(), "echo hi", time.Second)
	if res.Err == nil {
		t.Fatalf("expected an error executing against a closed driver")
	}
}

func TestDriverExecuteCapturesOutput(t *testing.T) {
	d := New("/bin/sh", nil)
	if err := d.Start(context.Background(), ""); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer d.Close()

	res := d.Execute(context.Background(), "echo hello", 2*time.Second)
	if res.Err != nil {
		t.Fatalf("Execute: %v", res.Err)
	}
	if len(res.Stdout) != 1 || res.Stdout[0] != "hello" {
		t.Errorf("Stdout = %v, want [hello]", res.Stdout)
	}
	if res.ExitStatus != 0 {
		t.Errorf("ExitStatus = %d, want 0", res.ExitStatus)
	}
}

func TestDriverExecuteCapturesNonZeroExit(t *testing.T) {
	d := New("/bin/sh", nil)
	if err := d.Start(context.Background(), ""); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer d.Close()

	res := d.Execute(context.Background(), "exit 7", 2*time.Second)
	if res.Err != nil {
		t.Fatalf("Execute: %v", res.Err)
	}
	if res.ExitStatus != 7 {
		t.Errorf("ExitStatus = %d, want 7", res.ExitStatus)
	}
}

func TestDriverExecuteTimesOutAndKillsChild(t *testing.T) {
	d := New("/bin/sh", nil).WithGracePeriod(50 * time.Millisecond)
	if err := d.Start(context.Background(), ""); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer d.Close()

	res := d.Execute(context.Background(), "sleep 5", 100*time.Millisecond)
	if res.Err == nil {
		t.Fatalf("expected a timeout error")
	}
	if d.State() != StateDead {
		t.Errorf("state after timeout = %s, want dead", d.State())
	}
}

func TestDriverStartRunsSetupScript(t *testing.T) {
	d := New("/bin/sh", nil)
	if err := d.Start(context.Background(), "GREETING=hi\n"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer d.Close()

	res := d.Execute(context.Background(), "echo $GREETING", 2*time.Second)
	if res.Err != nil {
		t.Fatalf("Execute: %v", res.Err)
	}
	if len(res.Stdout) != 1 || res.Stdout[0] != "hi" {
		t.Errorf("Stdout = %v, want [hi]", res.Stdout)
	}
}
