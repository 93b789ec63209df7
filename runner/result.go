package runner

import (
	"time"

	"github.com/user/cliscore/matcher"
)

// ExecutionResult is the outcome of running a single Test to completion,
// bundling what happened during execution with what the matcher said about
// it.
type ExecutionResult struct {
	SourceLine int
	Command    string
	Match      matcher.Result
	Stdout     []string
	Stderr     []string
	Duration   time.Duration
}

// HookResult captures the outcome of one lifecycle hook invocation, or is
// the zero value if the hook was never invoked (spec.md §3's
// `hook-results: {run-first?, before-each?, after-each?, run-last?}`).
type HookResult struct {
	Invoked    bool
	Stdout     []string
	Stderr     []string
	ExitStatus int
	Err        error
	Duration   time.Duration
}

// HookResults collects the four optional lifecycle-hook outcomes for one
// file.
type HookResults struct {
	RunFirst       HookResult
	BeforeEachFile HookResult
	AfterEachFile  HookResult
	RunLast        HookResult
}

// TestResult is the per-file report spec.md §3 defines: pass/fail/skip
// counts plus the full detail needed to render any verbosity tier.
type TestResult struct {
	Path            string
	SetupScriptPath string
	Passed          int
	Failed          int
	Skipped         int
	Failures        []ExecutionResult
	Passes          []ExecutionResult
	Skips           []ExecutionResult
	Hooks           HookResults
	Duration        time.Duration
	Err             error
}

// Summary aggregates pass/fail/skip counts and total duration across a
// batch of per-file results, giving the runner's caller the top-level
// report spec.md §1 expects but does not otherwise name a type for.
type Summary struct {
	Files    int
	Passed   int
	Failed   int
	Skipped  int
	Duration time.Duration
}

// Summarize folds a batch of TestResults into one Summary. A file whose Err
// is set counts as one failure.
func Summarize(results []TestResult) Summary {
	var s Summary
	s.Files = len(results)
	for _, r := range results {
		s.Passed += r.Passed
		s.Failed += r.Failed
		if r.Err != nil {
			s.Failed++
		}
		s.Skipped += r.Skipped
		s.Duration += r.Duration
	}
	return s
}

// OK reports whether every file in the summary passed, i.e. whether the
// embedding tool should exit 0 per spec.md §6.
func (s Summary) OK() bool {
	return s.Failed == 0
}
