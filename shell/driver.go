// Package shell drives one persistent child shell process per test file,
// framing each command's captured stdout, stderr, and exit status with
// unique sentinels so they can be split unambiguously out of the child's
// raw byte streams.
package shell

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/user/cliscore/internal/errs"
)

// State is the lifecycle state of a Driver, per spec.md §4.4's state
// machine: NEW -> READY -> {READY, DEAD, CLOSED}. Transitions out of DEAD
// or CLOSED are terminal.
type State int

const (
	StateNew State = iota
	StateReady
	StateDead
	StateClosed
)

// String returns the state's name.
func (s State) String() string {
	switch s {
	case StateNew:
		return "new"
	case StateReady:
		return "ready"
	case StateDead:
		return "dead"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// DefaultGracePeriod is how long Driver waits after SIGTERM before
// escalating to SIGKILL on a timed-out command, adapted from the
// supervisor-style escalation the example pack uses for long-lived child
// processes.
const DefaultGracePeriod = 3 * time.Second

// Result is the framed outcome of one command execution.
type Result struct {
	Stdout      []string
	Stderr      []string
	ExitStatus  int
	Duration    time.Duration
	StdoutNoEol bool
	Err         error
}

// Driver owns one child shell process and executes commands against it
// sequentially, each framed by a pair of freshly generated sentinels.
type Driver struct {
	shellPath    string
	gracePeriod  time.Duration
	sink         Sink

	mu    sync.Mutex
	state State

	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *lineReader
	stderr *lineReader
}

// Sink is the trace-event consumer the driver reports to, satisfied by
// tracing.Sink; kept as a local alias so this package does not need to
// import tracing for its own internal wiring tests.
type Sink interface {
	Trace(kind string, payload string)
}

// New constructs a Driver for shellPath (typically "/bin/sh"). sink may be
// nil, in which case trace events are discarded.
func New(shellPath string, sink Sink) *Driver {
	if shellPath == "" {
		shellPath = "/bin/sh"
	}
	return &Driver{
		shellPath:   shellPath,
		gracePeriod: DefaultGracePeriod,
		sink:        sink,
		state:       StateNew,
	}
}

// WithGracePeriod overrides the SIGTERM-to-SIGKILL grace period. Intended
// for tests that want a short deadline.
func (d *Driver) WithGracePeriod(gp time.Duration) *Driver {
	d.gracePeriod = gp
	return d
}

// State reports the driver's current lifecycle state.
func (d *Driver) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Start spawns the child shell, optionally sourcing setupScript into it
// first. It transitions NEW -> READY, or returns a KindShellStartFailure
// error and leaves the driver in a state that rejects further calls.
func (d *Driver) Start(ctx context.Context, setupScript string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state != StateNew {
		return errs.New(errs.KindShellStartFailure, fmt.Errorf("driver already started (state %s)", d.state))
	}

	cmd := exec.CommandContext(ctx, d.shellPath)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return errs.New(errs.KindShellStartFailure, err)
	}
	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return errs.New(errs.KindShellStartFailure, err)
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return errs.New(errs.KindShellStartFailure, err)
	}

	if err := cmd.Start(); err != nil {
		return errs.New(errs.KindShellStartFailure, err)
	}

	d.cmd = cmd
	d.stdin = stdin
	d.stdout = newLineReader(stdoutPipe)
	d.stderr = newLineReader(stderrPipe)
	d.state = StateReady
	d.trace("SPAWN", d.shellPath)

	if setupScript != "" {
		if _, err := d.writeLine(setupScript); err != nil {
			d.killLocked()
			return errs.New(errs.KindShellStartFailure, fmt.Errorf("sourcing setup script: %w", err))
		}
	}
	return nil
}

// Execute runs one command through the framing protocol and returns its
// captured result. If the driver is dead or closed, it returns immediately
// with errs.ErrShellDead and no attempt to execute.
func (d *Driver) Execute(ctx context.Context, command string, timeout time.Duration) Result {
	d.mu.Lock()
	if d.state != StateReady {
		d.mu.Unlock()
		return Result{Err: errs.New(errs.KindShellDead, errs.ErrShellDead)}
	}
	d.mu.Unlock()

	stdoutSentinel := newSentinel("STDOUT")
	stderrSentinel := newSentinel("STDERR")
	script := buildFramedScript(command, stdoutSentinel, stderrSentinel)

	start := time.Now()
	d.trace("STDIN", command)
	if _, err := d.writeLine(script); err != nil {
		d.markDead()
		return Result{Err: errs.New(errs.KindShellDead, err), Duration: time.Since(start)}
	}

	done := make(chan frameResult, 1)
	go func() {
		done <- drainFramed(d.stdout, d.stderr, stdoutSentinel, stderrSentinel)
	}()

	select {
	case fr := <-done:
		dur := time.Since(start)
		d.trace("EXIT", strconv.Itoa(fr.exitStatus))
		return Result{
			Stdout:      fr.stdout,
			Stderr:      fr.stderr,
			ExitStatus:  fr.exitStatus,
			Duration:    dur,
			StdoutNoEol: fr.stdoutNoEol,
		}
	case <-time.After(timeout):
		d.trace("ERROR", "timeout")
		d.markDead()
		d.escalateKill()
		partial := awaitPartial(done)
		return Result{
			Stdout:      partial.stdout,
			Stderr:      partial.stderr,
			Duration:    time.Since(start),
			StdoutNoEol: partial.stdoutNoEol,
			Err:         errs.New(errs.KindTimeout, errs.ErrTimeout),
		}
	case <-ctx.Done():
		d.markDead()
		d.escalateKill()
		partial := awaitPartial(done)
		return Result{
			Stdout:      partial.stdout,
			Stderr:      partial.stderr,
			Duration:    time.Since(start),
			StdoutNoEol: partial.stdoutNoEol,
			Err:         errs.New(errs.KindTimeout, ctx.Err()),
		}
	}
}

// awaitPartial waits briefly for the draining goroutine to unblock after
// the child process has been killed (its pipes closing should make that
// near-immediate) and returns whatever partial output it captured. It
// never blocks indefinitely, since a pipe that somehow fails to close
// would otherwise leak the goroutine's wait forever.
func awaitPartial(done <-chan frameResult) frameResult {
	select {
	case fr := <-done:
		return fr
	case <-time.After(2 * time.Second):
		return frameResult{}
	}
}

// Close terminates the child shell gracefully, transitioning to CLOSED.
// Calling Close on an already-closed driver is a no-op; on a dead driver it
// only marks the driver closed.
func (d *Driver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state == StateClosed {
		return nil
	}
	if d.state == StateDead {
		d.state = StateClosed
		return nil
	}
	if d.stdin != nil {
		_, _ = io.WriteString(d.stdin, "exit\n")
		d.stdin.Close()
	}
	done := make(chan error, 1)
	go func() { done <- d.cmd.Wait() }()
	select {
	case <-done:
	case <-time.After(d.gracePeriod):
		d.killLocked()
		<-done
	}
	d.state = StateClosed
	return nil
}

func (d *Driver) markDead() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state == StateReady {
		d.state = StateDead
	}
}

// escalateKill sends SIGTERM and, if the process is still alive after the
// grace period, SIGKILL — the same grace-period-then-kill shape the
// example pack's process supervisor uses for a long-lived child, adapted
// here to a single timed-out command.
func (d *Driver) escalateKill() {
	d.mu.Lock()
	cmd := d.cmd
	gp := d.gracePeriod
	d.mu.Unlock()
	if cmd == nil || cmd.Process == nil {
		return
	}
	terminate(cmd.Process)
	time.Sleep(gp)
	if processAlive(cmd.Process) {
		_ = cmd.Process.Kill()
	}
}

func (d *Driver) killLocked() {
	if d.cmd != nil && d.cmd.Process != nil {
		_ = d.cmd.Process.Kill()
	}
	d.state = StateDead
}

func (d *Driver) writeLine(s string) (int, error) {
	if !strings.HasSuffix(s, "\n") {
		s += "\n"
	}
	return io.WriteString(d.stdin, s)
}

func (d *Driver) trace(kind, payload string) {
	if d.sink != nil {
		d.sink.Trace(kind, payload)
	}
}

// newSentinel returns a fresh, unguessable sentinel string wrapping a
// uuid-derived hex token, per spec.md §4.4's framing protocol.
func newSentinel(which string) string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("__CLISCORE_%s_END_%s__", which, id)
}

// lineReader buffers a pipe's bytes and exposes them as completed lines
// plus any trailing partial line, so the sentinel-splitting logic in
// script.go can distinguish "ended with newline" from "ended mid-line".
type lineReader struct {
	r   *bufio.Reader
}

func newLineReader(r io.Reader) *lineReader {
	return &lineReader{r: bufio.NewReaderSize(r, 64*1024)}
}

// readLine returns the next line (without its trailing '\n') and whether a
// newline terminated it, or an error (typically io.EOF) if the pipe closed.
func (lr *lineReader) readLine() (string, bool, error) {
	line, err := lr.r.ReadString('\n')
	if err != nil {
		return line, false, err
	}
	return strings.TrimSuffix(line, "\n"), true, nil
}
