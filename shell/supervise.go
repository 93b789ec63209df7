package shell

import (
	"os"
	"syscall"
)

// terminate sends SIGTERM to proc, the first step of the grace-period-then-
// kill escalation used when a command exceeds its deadline.
func terminate(proc *os.Process) {
	_ = proc.Signal(syscall.SIGTERM)
}

// processAlive reports whether proc is still running, by sending it the
// null signal (signal 0), the same liveness check the example pack's
// process supervisor uses before escalating to SIGKILL.
func processAlive(proc *os.Process) bool {
	return proc.Signal(syscall.Signal(0)) == nil
}
