package shell

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"syscall"
	"time"
)

// Hook names as they must appear as shell function definitions at the top
// level of a setup script, per spec.md §4.4 "Lifecycle hooks".
const (
	HookRunFirst       = "run-first"
	HookBeforeEachFile = "before-each-file"
	HookAfterEachFile  = "after-each-file"
	HookRunLast        = "run-last"
)

// AfterEachFileCap is the hard cap spec.md §4.4 places on after-each-file.
const AfterEachFileCap = 5 * time.Second

// Hooks records which lifecycle hooks a setup script defines.
type Hooks struct {
	RunFirst       bool
	BeforeEachFile bool
	AfterEachFile  bool
	RunLast        bool
}

// hookDefRE matches a shell function definition for name, in either the
// "name() {" or "function name {" form, anchored to the start of a line.
func hookDefRE(name string) *regexp.Regexp {
	n := regexp.QuoteMeta(name)
	return regexp.MustCompile(`(?m)^\s*(?:function\s+` + n + `\s*(?:\(\)\s*)?|` + n + `\s*\(\)\s*)\{`)
}

// DetectHooks scans setupScript's text for top-level definitions of the
// four lifecycle hook functions.
func DetectHooks(setupScript string) Hooks {
	return Hooks{
		RunFirst:       hookDefRE(HookRunFirst).MatchString(setupScript),
		BeforeEachFile: hookDefRE(HookBeforeEachFile).MatchString(setupScript),
		AfterEachFile:  hookDefRE(HookAfterEachFile).MatchString(setupScript),
		RunLast:        hookDefRE(HookRunLast).MatchString(setupScript),
	}
}

// setupScriptName is the fixed filename DiscoverSetupScript looks for.
const setupScriptName = "cliscore.sh"

// DiscoverSetupScript implements spec.md §4.4 "Setup-script discovery":
// starting at the directory containing testFilePath and walking toward the
// filesystem root, it returns the first cliscore.sh whose owning user
// matches that of the test file. A mismatched-ownership candidate is
// skipped (not treated as found); skipped is true when at least one
// candidate was rejected this way, so the caller can log it.
func DiscoverSetupScript(testFilePath string) (path string, found bool, skipped bool) {
	testOwner, err := fileOwner(testFilePath)
	if err != nil {
		return "", false, false
	}

	dir := filepath.Dir(testFilePath)
	for {
		candidate := filepath.Join(dir, setupScriptName)
		if owner, err := fileOwner(candidate); err == nil {
			if owner == testOwner {
				return candidate, true, false
			}
			skipped = true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, skipped
}

func fileOwner(path string) (uint32, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return 0, os.ErrInvalid
	}
	return stat.Uid, nil
}

// RunThrowaway sources setupScript into a brand-new shell and invokes
// functionName as a whole-script invocation, per spec.md §4.4's rule that
// run-first and run-last "run as whole-script invocations in throwaway
// shells and may set environment only within their own process". The
// throwaway shell is always closed before returning.
func RunThrowaway(ctx context.Context, shellPath, setupScript, functionName string, timeout time.Duration, sink Sink) Result {
	d := New(shellPath, sink)
	if err := d.Start(ctx, setupScript); err != nil {
		return Result{Err: err}
	}
	defer d.Close()
	return d.Execute(ctx, functionName, timeout)
}
