// Package runner drives one or more test files to completion: for each
// file it discovers a setup script, runs lifecycle hooks, starts a shell
// driver, executes each test's command, matches captured output, and
// aggregates the results, per spec.md §4.5.
package runner

import (
	"context"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/user/cliscore/internal/errs"
	"github.com/user/cliscore/matcher"
	"github.com/user/cliscore/parser"
	"github.com/user/cliscore/shell"
)

// Runner executes TestFiles end to end.
type Runner struct {
	cfg    *config
	parser *parser.Parser
}

// New constructs a Runner from the given options.
func New(opts ...Option) *Runner {
	cfg := newConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return &Runner{
		cfg:    cfg,
		parser: parser.New(cfg.allowedLanguages),
	}
}

// RunFiles parses and runs each path, fanning out across up to Jobs files
// concurrently via errgroup.SetLimit, per spec.md §4.5 and §5. Results are
// returned in the same order as paths regardless of completion order.
func (r *Runner) RunFiles(ctx context.Context, paths []string) ([]TestResult, error) {
	results := make([]TestResult, len(paths))
	total := len(paths)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.jobs)

	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			start := time.Now()
			res := r.runFile(ctx, path)
			res.Duration = time.Since(start)
			results[i] = res
			if r.cfg.onFileComplete != nil {
				r.cfg.onFileComplete(res, i, total, res.Duration)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

// runFile implements spec.md §4.5's per-file algorithm. It never returns an
// error directly; a file-level failure (unparseable file, shell start
// failure) is reported as a TestResult with Err set and all tests
// unaccounted for, since RunFiles must keep going for the other files in
// the batch.
func (r *Runner) runFile(ctx context.Context, path string) TestResult {
	result := TestResult{Path: path}

	tf, err := r.parser.ParseFile(path)
	if err != nil {
		result.Err = err
		return result
	}

	setupPath, found, skipped := shell.DiscoverSetupScript(path)
	var setupScript string
	if found {
		result.SetupScriptPath = setupPath
		data, readErr := readFile(setupPath)
		if readErr == nil {
			setupScript = data
		}
	}
	if skipped {
		r.trace("ERROR", "setup script found with mismatched ownership, skipped: "+path)
	}

	hooks := shell.DetectHooks(setupScript)

	if hooks.RunFirst {
		result.Hooks.RunFirst = r.runThrowawayHook(ctx, setupScript, shell.HookRunFirst)
		if result.Hooks.RunFirst.Err != nil {
			r.trace("ERROR", "run-first failed: "+result.Hooks.RunFirst.Err.Error())
		}
	}

	d := shell.New(r.cfg.shell, r.traceSink())
	if startErr := d.Start(ctx, setupScript); startErr != nil {
		result.Err = startErr
		if hooks.RunLast {
			result.Hooks.RunLast = r.runThrowawayHook(ctx, setupScript, shell.HookRunLast)
		}
		return result
	}

	if len(tf.Tests) > 0 && hooks.BeforeEachFile {
		result.Hooks.BeforeEachFile = r.runHookOnDriver(ctx, d, shell.HookBeforeEachFile, r.cfg.timeout)
	}

	shellDead := false
	for _, test := range tf.Tests {
		if shellDead {
			result.Failures = append(result.Failures, ExecutionResult{
				SourceLine: test.SourceLine,
				Command:    test.Command,
				Match: matcher.Result{
					Diagnostics: []matcher.Diagnostic{{Reason: "shell is dead from a prior timeout"}},
				},
			})
			result.Failed++
			continue
		}

		execStart := time.Now()
		res := d.Execute(ctx, test.Command, r.cfg.timeout)
		execDur := time.Since(execStart)

		if res.Err != nil {
			shellDead = true
			result.Failures = append(result.Failures, ExecutionResult{
				SourceLine: test.SourceLine,
				Command:    test.Command,
				Stdout:     res.Stdout,
				Stderr:     res.Stderr,
				Duration:   execDur,
				Match: matcher.Result{
					Diagnostics: []matcher.Diagnostic{{Reason: res.Err.Error()}},
				},
			})
			result.Failed++
			continue
		}

		mr := matcher.Match(test.Expectations, matcher.Captured{
			Stdout:      res.Stdout,
			Stderr:      res.Stderr,
			StdoutNoEol: res.StdoutNoEol,
		})
		er := ExecutionResult{
			SourceLine: test.SourceLine,
			Command:    test.Command,
			Match:      mr,
			Stdout:     res.Stdout,
			Stderr:     res.Stderr,
			Duration:   execDur,
		}
		switch {
		case mr.Skipped:
			result.Skipped++
			result.Skips = append(result.Skips, er)
		case mr.Passed:
			result.Passed++
			result.Passes = append(result.Passes, er)
		default:
			result.Failed++
			result.Failures = append(result.Failures, er)
		}
	}

	// A file-level cancellation skips after-each-file (spec.md §5
	// "Cancellation & timeouts"); run-last below still runs unconditionally.
	if hooks.AfterEachFile && result.Hooks.BeforeEachFile.Invoked && ctx.Err() == nil {
		afterCtx, cancel := context.WithTimeout(ctx, shell.AfterEachFileCap)
		result.Hooks.AfterEachFile = r.runHookOnDriver(afterCtx, d, shell.HookAfterEachFile, shell.AfterEachFileCap)
		cancel()
	}

	d.Close()

	if hooks.RunLast {
		result.Hooks.RunLast = r.runThrowawayHook(ctx, setupScript, shell.HookRunLast)
	}

	return result
}

func (r *Runner) runHookOnDriver(ctx context.Context, d *shell.Driver, fn string, timeout time.Duration) HookResult {
	start := time.Now()
	res := d.Execute(ctx, fn, timeout)
	return HookResult{
		Invoked:    true,
		Stdout:     res.Stdout,
		Stderr:     res.Stderr,
		ExitStatus: res.ExitStatus,
		Err:        res.Err,
		Duration:   time.Since(start),
	}
}

func (r *Runner) runThrowawayHook(ctx context.Context, setupScript, fn string) HookResult {
	start := time.Now()
	res := shell.RunThrowaway(ctx, r.cfg.shell, setupScript, fn, r.cfg.timeout, r.traceSink())
	return HookResult{
		Invoked:    true,
		Stdout:     res.Stdout,
		Stderr:     res.Stderr,
		ExitStatus: res.ExitStatus,
		Err:        res.Err,
		Duration:   time.Since(start),
	}
}

func (r *Runner) traceSink() shell.Sink {
	if !r.cfg.trace {
		return nil
	}
	return r.cfg.traceSink
}

func (r *Runner) trace(kind, payload string) {
	if r.cfg.trace && r.cfg.traceSink != nil {
		r.cfg.traceSink.Trace(kind, payload)
	}
}

func readFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", errs.New(errs.KindParse, err)
	}
	return string(data), nil
}
